package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

// DefaultSessionCookie is the cookie carrying the session id when none is configured.
const DefaultSessionCookie = "_my_session_id"

// SessionManager issues, resolves and destroys opaque session ids.
type SessionManager struct {
	users      *CredentialStore
	store      ports.SessionStore
	cookieName string
	log        zerolog.Logger
}

func NewSessionManager(users *CredentialStore, store ports.SessionStore, cookieName string, log zerolog.Logger) *SessionManager {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return &SessionManager{
		users:      users,
		store:      store,
		cookieName: cookieName,
		log:        log.With().Str("component", "session_manager").Logger(),
	}
}

// CookieName returns the name of the session cookie.
func (m *SessionManager) CookieName() string {
	return m.cookieName
}

// CreateSession issues a fresh random session id for an existing user.
func (m *SessionManager) CreateSession(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if _, err := m.users.Find(ctx, domain.By(domain.FieldID, userID)); err != nil {
		return "", err
	}

	sessionID := uuid.NewString()
	if err := m.store.Save(ctx, sessionID, userID); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	metrics.SessionsCreatedTotal.Inc()
	m.log.Debug().Str("user_id", userID).Msg("session created")
	return sessionID, nil
}

// Resolve maps a session id to its user id without side effects.
func (m *SessionManager) Resolve(ctx context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, nil
	}
	return m.store.UserID(ctx, sessionID)
}

// Destroy removes a session. Destroying an unknown session returns false.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	ok, err := m.store.Delete(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("destroy session: %w", err)
	}
	if ok {
		metrics.SessionsDestroyedTotal.Inc()
	}
	return ok, nil
}

// DestroyUser removes every session of a user.
func (m *SessionManager) DestroyUser(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	ok, err := m.store.DeleteUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("destroy user sessions: %w", err)
	}
	if ok {
		metrics.SessionsDestroyedTotal.Inc()
	}
	return ok, nil
}

// UserForSession loads the record bound to a session id, or nil.
func (m *SessionManager) UserForSession(ctx context.Context, sessionID string) (*domain.User, error) {
	userID, ok, err := m.Resolve(ctx, sessionID)
	if err != nil || !ok {
		return nil, err
	}
	user, err := m.users.Find(ctx, domain.By(domain.FieldID, userID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CurrentUser reads the session cookie and returns its user, or nil when the
// cookie is absent or does not resolve.
func (m *SessionManager) CurrentUser(ctx context.Context, req ports.Request) (*domain.User, error) {
	if req == nil {
		return nil, nil
	}
	sessionID, ok := req.Cookie(m.cookieName)
	if !ok {
		return nil, nil
	}
	return m.UserForSession(ctx, sessionID)
}

var _ ports.IdentityResolver = (*SessionManager)(nil)
