package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/auth-service/internal/core/ports"
)

// SessionStore keeps one key per session plus a set of session ids per user.
// Key formats: session:<session_id> and user_sessions:<user_id>.
type SessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSessionStore wraps client. A zero ttl stores sessions without expiry.
func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, sessionID, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sessionID), userID, s.ttl)
		pipe.SAdd(ctx, userKey(userID), sessionID)
		if s.ttl > 0 {
			pipe.Expire(ctx, userKey(userID), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) UserID(ctx context.Context, sessionID string) (string, bool, error) {
	uid, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session: %w", err)
	}
	return uid, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	uid, err := s.client.GetDel(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if err := s.client.SRem(ctx, userKey(uid), sessionID).Err(); err != nil {
		return true, fmt.Errorf("unindex session: %w", err)
	}
	return true, nil
}

func (s *SessionStore) DeleteUser(ctx context.Context, userID string) (bool, error) {
	ids, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}

	var deleted int64
	if len(keys) > 0 {
		deleted, err = s.client.Del(ctx, keys...).Result()
		if err != nil {
			return false, fmt.Errorf("delete user sessions: %w", err)
		}
	}
	if err := s.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return deleted > 0, fmt.Errorf("delete session index: %w", err)
	}
	return deleted > 0, nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func userKey(userID string) string {
	return "user_sessions:" + userID
}

var _ ports.SessionStore = (*SessionStore)(nil)
