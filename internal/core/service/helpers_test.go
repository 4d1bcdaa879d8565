package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type stubUserRepo struct {
	mu    sync.Mutex
	users []*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{}
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.ID == user.ID {
			return domain.ErrUserExists
		}
	}
	r.users = append(r.users, user.Clone())
	return nil
}

func (r *stubUserRepo) Find(_ context.Context, q domain.Query) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if q.Matches(u) {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubUserRepo) Update(_ context.Context, userID string, changes domain.Changes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == userID {
			changes.Apply(u)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *stubUserRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// stubHasher keeps tests fast; the real hashers are covered in their package.
type stubHasher struct{}

func (stubHasher) Hash(p string) (string, error) {
	if p == "" {
		return "", errors.New("password cannot be empty")
	}
	return "hashed:" + p, nil
}

func (stubHasher) Verify(p, d string) bool {
	return strings.HasPrefix(d, "hashed:") && d == "hashed:"+p
}

type fakeRequest struct {
	path    string
	headers map[string]string
	cookies map[string]string
}

func (r fakeRequest) Path() string { return r.path }

func (r fakeRequest) Header(name string) string { return r.headers[name] }

func (r fakeRequest) Cookie(name string) (string, bool) {
	v, ok := r.cookies[name]
	return v, ok
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (s *recordingSink) Enqueue(e domain.AuthEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) kinds() []domain.AuthEventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuthEventKind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

func newTestCredentialStore() (*CredentialStore, *stubUserRepo) {
	repo := newStubUserRepo()
	return NewCredentialStore(repo, stubHasher{}, zerolog.Nop()), repo
}
