package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const basicPrefix = "Basic "

// BasicAuth resolves identities from an "Authorization: Basic" header. Every
// step returns ok=false instead of an error; callers only learn whether a
// user was found.
type BasicAuth struct {
	users *CredentialStore
}

func NewBasicAuth(users *CredentialStore) *BasicAuth {
	return &BasicAuth{users: users}
}

// AuthorizationHeader returns the raw Authorization header.
func (b *BasicAuth) AuthorizationHeader(req ports.Request) string {
	if req == nil {
		return ""
	}
	return req.Header("Authorization")
}

// ExtractBasicToken returns the base64 part of a Basic header.
func (b *BasicAuth) ExtractBasicToken(header string) (string, bool) {
	if !strings.HasPrefix(header, basicPrefix) {
		return "", false
	}
	token := header[len(basicPrefix):]
	return token, token != ""
}

// DecodeBasicToken decodes the token into "email:password".
func (b *BasicAuth) DecodeBasicToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil || !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// SplitCredentials splits on the first colon; passwords may contain colons.
func (b *BasicAuth) SplitCredentials(decoded string) (email, password string, ok bool) {
	email, password, ok = strings.Cut(decoded, ":")
	if !ok {
		return "", "", false
	}
	return email, password, true
}

// ResolveUser returns the user whose email and password match, or nil.
func (b *BasicAuth) ResolveUser(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" {
		return nil, nil
	}
	user, err := b.users.Find(ctx, domain.By(domain.FieldEmail, email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !b.users.VerifyPassword(user, password) {
		return nil, nil
	}
	return user, nil
}

// CurrentUser chains header extraction, decoding, splitting and resolution.
func (b *BasicAuth) CurrentUser(ctx context.Context, req ports.Request) (*domain.User, error) {
	token, ok := b.ExtractBasicToken(b.AuthorizationHeader(req))
	if !ok {
		return nil, nil
	}
	decoded, ok := b.DecodeBasicToken(token)
	if !ok {
		return nil, nil
	}
	email, password, ok := b.SplitCredentials(decoded)
	if !ok {
		return nil, nil
	}
	return b.ResolveUser(ctx, email, password)
}

var _ ports.IdentityResolver = (*BasicAuth)(nil)
