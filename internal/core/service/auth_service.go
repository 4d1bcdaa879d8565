package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

// AuthServiceConfig carries the facade's tunables.
type AuthServiceConfig struct {
	AuthType      AuthType
	ExcludedPaths []string
}

// AuthService composes the credential store, the session manager and the
// path filter into the operations the request pipeline needs.
type AuthService struct {
	users    *CredentialStore
	sessions *SessionManager
	filter   *PathFilter
	identity ports.IdentityResolver
	audit    ports.AuditSink
	log      zerolog.Logger

	// dummyHash is verified against when an email is unknown so a failed
	// login costs the same with or without a matching record.
	dummyHash string
}

func NewAuthService(
	users *CredentialStore,
	sessions *SessionManager,
	audit ports.AuditSink,
	cfg AuthServiceConfig,
	log zerolog.Logger,
) (*AuthService, error) {
	if users == nil || sessions == nil {
		return nil, fmt.Errorf("%w: credential store and session manager are required", domain.ErrInvalidInput)
	}
	if cfg.AuthType == "" {
		cfg.AuthType = AuthTypeSession
	}
	identity, err := NewIdentityResolver(cfg.AuthType, users, sessions)
	if err != nil {
		return nil, err
	}

	s := &AuthService{
		users:    users,
		sessions: sessions,
		filter:   NewPathFilter(cfg.ExcludedPaths),
		identity: identity,
		audit:    audit,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
	if h, err := users.HashPassword(uuid.NewString()); err == nil {
		s.dummyHash = h
	}
	return s, nil
}

// RequiresAuth reports whether path needs credentials.
func (s *AuthService) RequiresAuth(path string) bool {
	return s.filter.RequiresAuth(path)
}

// SessionCookieName returns the cookie the session flavor reads.
func (s *AuthService) SessionCookieName() string {
	return s.sessions.CookieName()
}

// CurrentUser resolves the request's identity with the configured strategy.
func (s *AuthService) CurrentUser(ctx context.Context, req ports.Request) (*domain.User, error) {
	return s.identity.CurrentUser(ctx, req)
}

// Register creates a new user.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.Register(ctx, email, password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		return nil, err
	}
	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	s.record(domain.EventRegistered, user.ID, email)
	return user, nil
}

// ValidLogin reports whether the credentials match a user.
func (s *AuthService) ValidLogin(ctx context.Context, email, password string) bool {
	_, err := s.authenticate(ctx, email, password)
	return err == nil
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords both fail with domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			s.record(domain.EventLoginFailed, "", email)
		}
		return "", nil, err
	}

	sessionID, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.record(domain.EventLoginSucceeded, user.ID, user.Email)
	return sessionID, user, nil
}

// Logout destroys a session and reports whether it existed. The owner is
// looked up first so the logout event carries the same email as the
// account's other events.
func (s *AuthService) Logout(ctx context.Context, sessionID string) (bool, error) {
	userID, found, err := s.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return false, err
	}
	var email string
	if found {
		user, err := s.users.Find(ctx, domain.By(domain.FieldID, userID))
		switch {
		case err == nil:
			email = user.Email
		case !errors.Is(err, domain.ErrNotFound):
			return false, fmt.Errorf("logout: %w", err)
		}
	}

	ok, err := s.sessions.Destroy(ctx, sessionID)
	if err != nil || !ok {
		return false, err
	}
	s.record(domain.EventLogout, userID, email)
	return true, nil
}

// UserForSession loads the user bound to sessionID, or nil.
func (s *AuthService) UserForSession(ctx context.Context, sessionID string) (*domain.User, error) {
	return s.sessions.UserForSession(ctx, sessionID)
}

// RequestPasswordReset issues a reset token, replacing any earlier one.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	user, err := s.users.Find(ctx, domain.By(domain.FieldEmail, email))
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	if err := s.users.Update(ctx, user.ID, domain.Changes{}.Set(domain.FieldResetToken, token)); err != nil {
		return "", fmt.Errorf("request password reset: %w", err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	s.record(domain.EventResetRequested, user.ID, user.Email)
	return token, nil
}

// CompletePasswordReset consumes token and stores a new password hash. The
// hash and the cleared token are written in one update, after re-checking
// under the record lock that token is still the current one.
func (s *AuthService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return domain.ErrInvalidToken
	}
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", domain.ErrInvalidInput)
	}

	user, err := s.users.Find(ctx, domain.By(domain.FieldResetToken, token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.PasswordResetsTotal.WithLabelValues("rejected").Inc()
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("complete password reset: %w", err)
	}

	hash, err := s.users.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("complete password reset: %w", err)
	}

	err = s.users.WithUserLock(ctx, user.ID, func(update func(domain.Changes) error) error {
		current, err := s.users.Find(ctx, domain.By(domain.FieldID, user.ID))
		if err != nil {
			return err
		}
		if got, ok := current.Value(domain.FieldResetToken); !ok || got != token {
			return domain.ErrInvalidToken
		}
		return update(domain.Changes{}.
			Set(domain.FieldHashedPassword, hash).
			Clear(domain.FieldResetToken))
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrNotFound) {
			metrics.PasswordResetsTotal.WithLabelValues("rejected").Inc()
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("complete password reset: %w", err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	s.record(domain.EventPasswordReset, user.ID, user.Email)
	return nil
}

// Close releases the session table and the audit sink.
func (s *AuthService) Close() error {
	var errs []error
	if c, ok := s.sessions.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := s.audit.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.users.Find(ctx, domain.By(domain.FieldEmail, email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if s.dummyHash != "" {
				s.users.VerifyPassword(&domain.User{HashedPassword: s.dummyHash}, password)
			}
			return nil, domain.ErrUnauthorized
		}
		s.log.Error().Err(err).Msg("credential lookup failed")
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !s.users.VerifyPassword(user, password) {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

func (s *AuthService) record(kind domain.AuthEventKind, userID, email string) {
	if s.audit == nil {
		return
	}
	s.audit.Enqueue(domain.AuthEvent{
		Kind:      kind,
		UserID:    userID,
		Email:     email,
		Timestamp: time.Now().UTC(),
	})
}

func registrationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return "duplicate"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}

var _ ports.AuthService = (*AuthService)(nil)
