package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// UserRepository is the persistence backend of the credential store.
// Implementations receive validated queries and changes, return snapshots
// (never shared pointers) and map their native errors onto domain errors.
type UserRepository interface {
	// Create inserts the record. Returns domain.ErrUserExists on a duplicate email.
	Create(ctx context.Context, user *domain.User) error

	// Find returns the first record, in insertion order, matching every
	// constraint of q, or domain.ErrNotFound.
	Find(ctx context.Context, q domain.Query) (*domain.User, error)

	// Update applies all changes to the record atomically.
	// Returns domain.ErrNotFound for an unknown id.
	Update(ctx context.Context, userID string, changes domain.Changes) error
}
