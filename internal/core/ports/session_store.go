package ports

import "context"

// SessionStore owns session_id -> user_id mappings.
type SessionStore interface {
	// Save binds sessionID to userID.
	Save(ctx context.Context, sessionID, userID string) error

	// UserID resolves a session. ok is false for unknown, destroyed or expired ids.
	UserID(ctx context.Context, sessionID string) (userID string, ok bool, err error)

	// Delete removes one session and reports whether it existed.
	Delete(ctx context.Context, sessionID string) (bool, error)

	// DeleteUser removes every session of a user and reports whether any existed.
	DeleteUser(ctx context.Context, userID string) (bool, error)
}
