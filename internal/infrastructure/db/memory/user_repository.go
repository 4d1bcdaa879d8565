// Package memory holds process-local implementations of the persistence ports.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// UserRepository keeps user records in insertion order behind an RWMutex.
// Every read returns a clone, so callers never observe a partial write.
type UserRepository struct {
	mu    sync.RWMutex
	users []*domain.User
	byID  map[string]int
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byID: make(map[string]int)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; ok {
		return domain.ErrUserExists
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	r.byID[user.ID] = len(r.users)
	r.users = append(r.users, user.Clone())
	return nil
}

func (r *UserRepository) Find(_ context.Context, q domain.Query) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := q[domain.FieldID]; ok {
		i, found := r.byID[id]
		if !found || !q.Matches(r.users[i]) {
			return nil, domain.ErrNotFound
		}
		return r.users[i].Clone(), nil
	}
	for _, u := range r.users {
		if q.Matches(u) {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) Update(_ context.Context, userID string, changes domain.Changes) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if v, ok := changes[domain.FieldEmail]; ok && v != nil {
		for j, u := range r.users {
			if j != i && u.Email == *v {
				return domain.ErrUserExists
			}
		}
	}

	next := r.users[i].Clone()
	changes.Apply(next)
	next.UpdatedAt = time.Now().UTC()
	r.users[i] = next
	return nil
}

// Len returns the number of stored records.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

var _ ports.UserRepository = (*UserRepository)(nil)
