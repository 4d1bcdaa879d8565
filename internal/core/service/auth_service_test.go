package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func newTestAuthService(t *testing.T, authType AuthType) (*AuthService, *recordingSink) {
	t.Helper()
	users, _ := newTestCredentialStore()
	sessions := NewSessionManager(users, NewRecordSessions(users), "", zerolog.Nop())
	sink := &recordingSink{}
	svc, err := NewAuthService(users, sessions, sink, AuthServiceConfig{
		AuthType:      authType,
		ExcludedPaths: []string{"/api/v1/status/", "/api/v1/public/*"},
	}, zerolog.Nop())
	require.NoError(t, err)
	return svc, sink
}

func TestNewAuthService(t *testing.T) {
	users, _ := newTestCredentialStore()
	sessions := NewSessionManager(users, NewRecordSessions(users), "", zerolog.Nop())

	_, err := NewAuthService(nil, sessions, nil, AuthServiceConfig{}, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewAuthService(users, sessions, nil, AuthServiceConfig{AuthType: "jwt"}, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	svc, err := NewAuthService(users, sessions, nil, AuthServiceConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionCookie, svc.SessionCookieName())
	assert.True(t, svc.RequiresAuth("/anything"))
	assert.NoError(t, svc.Close())
}

func TestAuthService_RequiresAuth(t *testing.T) {
	svc, _ := newTestAuthService(t, AuthTypeSession)

	assert.False(t, svc.RequiresAuth("/api/v1/status"))
	assert.False(t, svc.RequiresAuth("/api/v1/public/docs/1"))
	assert.True(t, svc.RequiresAuth("/api/v1/profile"))
	assert.True(t, svc.RequiresAuth(""))
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, sink := newTestAuthService(t, AuthTypeSession)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "pass123")
	assert.ErrorIs(t, err, domain.ErrUserExists)

	assert.True(t, svc.ValidLogin(ctx, "alice@example.com", "pass123"))
	assert.False(t, svc.ValidLogin(ctx, "alice@example.com", "wrong"))
	assert.False(t, svc.ValidLogin(ctx, "bob@example.com", "pass123"))

	sid, got, err := svc.Login(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)
	assert.NotEmpty(t, sid)
	assert.Equal(t, user.ID, got.ID)

	current, err := svc.CurrentUser(ctx, fakeRequest{cookies: map[string]string{DefaultSessionCookie: sid}})
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, user.ID, current.ID)

	assert.Equal(t, []domain.AuthEventKind{domain.EventRegistered, domain.EventLoginSucceeded}, sink.kinds())
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, sink := newTestAuthService(t, AuthTypeSession)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(ctx, "alice@example.com", "wrong")
	_, _, unknownEmail := svc.Login(ctx, "bob@example.com", "pass123")
	_, _, empty := svc.Login(ctx, "", "")

	for _, err := range []error{wrongPassword, unknownEmail, empty} {
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, domain.ErrUnauthorized.Error(), err.Error())
	}
	assert.Contains(t, sink.kinds(), domain.EventLoginFailed)
}

func TestAuthService_Logout(t *testing.T) {
	svc, sink := newTestAuthService(t, AuthTypeSession)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)
	sid, _, err := svc.Login(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)

	ok, err := svc.Logout(ctx, sid)
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := svc.UserForSession(ctx, sid)
	require.NoError(t, err)
	assert.Nil(t, user)

	ok, err = svc.Logout(ctx, sid)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Logout(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, domain.EventLogout, sink.kinds()[len(sink.kinds())-1])
}

func TestAuthService_LogoutEventSharesAccountKey(t *testing.T) {
	svc, sink := newTestAuthService(t, AuthTypeSession)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)
	sid, user, err := svc.Login(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)
	ok, err := svc.Logout(ctx, sid)
	require.NoError(t, err)
	require.True(t, ok)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	byKind := map[domain.AuthEventKind]domain.AuthEvent{}
	for _, e := range sink.events {
		byKind[e.Kind] = e
	}
	login, logout := byKind[domain.EventLoginSucceeded], byKind[domain.EventLogout]
	require.Equal(t, domain.EventLogout, logout.Kind)
	assert.Equal(t, "alice@example.com", logout.Email)
	assert.Equal(t, login.Email, logout.Email)
	assert.Equal(t, user.ID, logout.UserID)
	assert.Equal(t, login.UserID, logout.UserID)
}

func TestAuthService_PasswordReset(t *testing.T) {
	svc, sink := newTestAuthService(t, AuthTypeSession)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)

	_, err = svc.RequestPasswordReset(ctx, "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.RequestPasswordReset(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	stale, err := svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	token, err := svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, stale, token)

	assert.ErrorIs(t, svc.CompletePasswordReset(ctx, stale, "newpass"), domain.ErrInvalidToken)
	assert.ErrorIs(t, svc.CompletePasswordReset(ctx, token, ""), domain.ErrInvalidInput)

	require.NoError(t, svc.CompletePasswordReset(ctx, token, "newpass"))
	assert.ErrorIs(t, svc.CompletePasswordReset(ctx, token, "again"), domain.ErrInvalidToken)
	assert.ErrorIs(t, svc.CompletePasswordReset(ctx, "", "again"), domain.ErrInvalidToken)

	assert.False(t, svc.ValidLogin(ctx, "alice@example.com", "pass123"))
	assert.True(t, svc.ValidLogin(ctx, "alice@example.com", "newpass"))
	assert.Contains(t, sink.kinds(), domain.EventPasswordReset)
}

func TestAuthService_ConcurrentResetIsSingleUse(t *testing.T) {
	svc, _ := newTestAuthService(t, AuthTypeSession)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "pass123")
	require.NoError(t, err)
	token, err := svc.RequestPasswordReset(ctx, "alice@example.com")
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.CompletePasswordReset(ctx, token, "newpass")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrInvalidToken), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestAuthService_BasicAuthIdentity(t *testing.T) {
	svc, _ := newTestAuthService(t, AuthTypeBasic)
	ctx := context.Background()
	user, err := svc.Register(ctx, "foo@bar.com", "se:cret")
	require.NoError(t, err)

	got, err := svc.CurrentUser(ctx, fakeRequest{headers: map[string]string{"Authorization": basicHeader("foo@bar.com:se:cret")}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthService_NoIdentityStrategy(t *testing.T) {
	svc, _ := newTestAuthService(t, AuthTypeNone)
	ctx := context.Background()
	_, err := svc.Register(ctx, "foo@bar.com", "secret")
	require.NoError(t, err)

	got, err := svc.CurrentUser(ctx, fakeRequest{headers: map[string]string{"Authorization": basicHeader("foo@bar.com:secret")}})
	require.NoError(t, err)
	assert.Nil(t, got)
}
