package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// PasswordHasher produces salted one-way digests.
type PasswordHasher interface {
	// Hash returns a digest that embeds its own salt and parameters.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches digest. Malformed digests
	// verify as false.
	Verify(plaintext, digest string) bool
}

// Request is the part of an incoming request the auth core reads.
type Request interface {
	Path() string
	Header(name string) string
	Cookie(name string) (string, bool)
}

// IdentityResolver turns request credentials into a user. A nil user with a
// nil error means "no identity"; errors are reserved for backend failures.
type IdentityResolver interface {
	CurrentUser(ctx context.Context, req Request) (*domain.User, error)
}

// AuthService is the facade route handlers and middleware call into.
type AuthService interface {
	IdentityResolver

	RequiresAuth(path string) bool
	SessionCookieName() string

	Register(ctx context.Context, email, password string) (*domain.User, error)
	ValidLogin(ctx context.Context, email, password string) bool
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Logout(ctx context.Context, sessionID string) (bool, error)
	UserForSession(ctx context.Context, sessionID string) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
}
