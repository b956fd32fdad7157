package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 5

// RedisStore sessions shared between bot replicas
type RedisStore struct {
	client      *redis.Client
	ttl         time.Duration
	defaultCity string
}

// NewRedisStore creates a store over client. Sessions expire after ttl
// without updates.
func NewRedisStore(client *redis.Client, ttl time.Duration, defaultCity string) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, defaultCity: defaultCity}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

// Get implements Store
func (r *RedisStore) Get(ctx context.Context, userID string) (Session, error) {
	return r.load(ctx, r.client, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) load(ctx context.Context, c getter, userID string) (Session, error) {
	val, err := c.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fresh(r.defaultCity), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return fresh(r.defaultCity), nil
	}
	return s, nil
}

// Update implements Store with optimistic WATCH/MULTI retries
func (r *RedisStore) Update(ctx context.Context, userID string, fn func(*Session) error) (Session, error) {
	key := sessionKey(userID)
	var out Session

	txf := func(tx *redis.Tx) error {
		s, err := r.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
		s.UpdatedAt = time.Now()

		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err == nil {
			out = s
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Session{}, err
	}
	return Session{}, fmt.Errorf("update session %s: too much contention", userID)
}
