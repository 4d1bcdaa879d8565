package service

import (
	"context"
	"fmt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// AuthType selects how request credentials become an identity.
type AuthType string

const (
	AuthTypeNone       AuthType = "auth"
	AuthTypeBasic      AuthType = "basic_auth"
	AuthTypeSession    AuthType = "session_auth"
	AuthTypeSessionExp AuthType = "session_exp_auth"
)

// NewIdentityResolver returns the strategy for kind.
func NewIdentityResolver(kind AuthType, users *CredentialStore, sessions *SessionManager) (ports.IdentityResolver, error) {
	switch kind {
	case AuthTypeNone:
		return noIdentity{}, nil
	case AuthTypeBasic:
		return NewBasicAuth(users), nil
	case AuthTypeSession, AuthTypeSessionExp:
		return sessions, nil
	}
	return nil, fmt.Errorf("%w: unknown auth type %q", domain.ErrInvalidInput, kind)
}

// noIdentity gates paths but never recognizes anyone.
type noIdentity struct{}

func (noIdentity) CurrentUser(context.Context, ports.Request) (*domain.User, error) {
	return nil, nil
}
