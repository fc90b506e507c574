// README: Conversation session store backed by Redis with a TTL.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"carpool/internal/types"
)

const sessionKeyPrefix = "conversation:session:%s"

// RedisStore keeps one State per requester under a TTL, so abandoned
// conversations expire instead of leaking.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{redis: client, ttl: ttl}
}

// Get returns the requester's in-flight state, or nil when the conversation
// is idle.
func (s *RedisStore) Get(ctx context.Context, id types.ID) (*State, error) {
	val, err := s.redis.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var st State
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &st, nil
}

// Save writes the state and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, st *State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(st.RequesterID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id types.ID) error {
	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func sessionKey(id types.ID) string {
	return fmt.Sprintf(sessionKeyPrefix, string(id))
}
