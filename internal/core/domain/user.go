package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrInvalidField = errors.New("invalid field")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrInvalidToken = errors.New("invalid reset token")
)

// User is the credential record owned by the credential store.
// HashedPassword, SessionID and ResetToken never leave the process in JSON.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	SessionID      *string   `json:"-"`
	ResetToken     *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers never share nullable fields with a store.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.SessionID != nil {
		v := *u.SessionID
		c.SessionID = &v
	}
	if u.ResetToken != nil {
		v := *u.ResetToken
		c.ResetToken = &v
	}
	return &c
}

// Value returns the current value of a field and whether it is set.
func (u *User) Value(f Field) (string, bool) {
	switch f {
	case FieldID:
		return u.ID, u.ID != ""
	case FieldEmail:
		return u.Email, u.Email != ""
	case FieldHashedPassword:
		return u.HashedPassword, u.HashedPassword != ""
	case FieldSessionID:
		return deref(u.SessionID)
	case FieldResetToken:
		return deref(u.ResetToken)
	}
	return "", false
}

func deref(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}
