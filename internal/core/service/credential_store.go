package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// CredentialStore is the single source of truth for user records. It validates
// every call before it reaches the repository and serializes mutations per
// record.
type CredentialStore struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	locks  *keyLocks
	log    zerolog.Logger
}

func NewCredentialStore(repo ports.UserRepository, hasher ports.PasswordHasher, log zerolog.Logger) *CredentialStore {
	return &CredentialStore{
		repo:   repo,
		hasher: hasher,
		locks:  &keyLocks{},
		log:    log.With().Str("component", "credential_store").Logger(),
	}
}

// Register hashes the password and creates the record. The email lookup and
// the insert run under the same lock, so a duplicate email is never persisted.
func (s *CredentialStore) Register(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	unlock := s.locks.lock("email:" + email)
	defer unlock()

	_, err := s.repo.Find(ctx, domain.By(domain.FieldEmail, email))
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Debug().Str("user_id", user.ID).Msg("user registered")
	return user.Clone(), nil
}

// Find returns the first record matching q.
func (s *CredentialStore) Find(ctx context.Context, q domain.Query) (*domain.User, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Find(ctx, q)
}

// Update applies a partial update to one record.
func (s *CredentialStore) Update(ctx context.Context, userID string, changes domain.Changes) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if err := changes.Validate(); err != nil {
		return err
	}

	unlock := s.locks.lock(userID)
	defer unlock()
	return s.update(ctx, userID, changes)
}

// WithUserLock runs fn while holding the record's lock. fn must use the
// update callback it receives, not Update, to write.
func (s *CredentialStore) WithUserLock(ctx context.Context, userID string, fn func(update func(domain.Changes) error) error) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	return fn(func(changes domain.Changes) error {
		if err := changes.Validate(); err != nil {
			return err
		}
		return s.update(ctx, userID, changes)
	})
}

// VerifyPassword reports whether password matches the record's digest.
func (s *CredentialStore) VerifyPassword(user *domain.User, password string) bool {
	if user == nil || password == "" {
		return false
	}
	return s.hasher.Verify(password, user.HashedPassword)
}

// HashPassword exposes the configured hasher to the facade.
func (s *CredentialStore) HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	return s.hasher.Hash(password)
}

func (s *CredentialStore) update(ctx context.Context, userID string, changes domain.Changes) error {
	if len(changes) == 0 {
		_, err := s.repo.Find(ctx, domain.By(domain.FieldID, userID))
		return err
	}
	if err := s.repo.Update(ctx, userID, changes); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserExists) {
			return err
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
