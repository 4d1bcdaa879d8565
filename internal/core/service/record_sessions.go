package service

import (
	"context"
	"errors"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// RecordSessions keeps the session id inside the user record, so each user
// has at most one live session and a new login replaces the old one.
type RecordSessions struct {
	users *CredentialStore
}

func NewRecordSessions(users *CredentialStore) *RecordSessions {
	return &RecordSessions{users: users}
}

func (r *RecordSessions) Save(ctx context.Context, sessionID, userID string) error {
	return r.users.Update(ctx, userID, domain.Changes{}.Set(domain.FieldSessionID, sessionID))
}

func (r *RecordSessions) UserID(ctx context.Context, sessionID string) (string, bool, error) {
	user, err := r.users.Find(ctx, domain.By(domain.FieldSessionID, sessionID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return user.ID, true, nil
}

func (r *RecordSessions) Delete(ctx context.Context, sessionID string) (bool, error) {
	user, err := r.users.Find(ctx, domain.By(domain.FieldSessionID, sessionID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return r.clearIf(ctx, user.ID, sessionID)
}

func (r *RecordSessions) DeleteUser(ctx context.Context, userID string) (bool, error) {
	return r.clearIf(ctx, userID, "")
}

// clearIf nulls the session slot, re-reading under the record lock so a
// concurrent login that already replaced want is left alone. An empty want
// clears whatever session is present.
func (r *RecordSessions) clearIf(ctx context.Context, userID, want string) (bool, error) {
	cleared := false
	err := r.users.WithUserLock(ctx, userID, func(update func(domain.Changes) error) error {
		user, err := r.users.Find(ctx, domain.By(domain.FieldID, userID))
		if err != nil {
			return err
		}
		current, ok := user.Value(domain.FieldSessionID)
		if !ok || (want != "" && current != want) {
			return nil
		}
		if err := update(domain.Changes{}.Clear(domain.FieldSessionID)); err != nil {
			return err
		}
		cleared = true
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return cleared, err
}

var _ ports.SessionStore = (*RecordSessions)(nil)
