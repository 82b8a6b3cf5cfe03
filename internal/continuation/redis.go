package continuation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// RedisStore keeps each token in a hash under checkout:continuation:{sessionID}
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. Tokens expire after ttl; zero means 24h.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, token Token) error {
	if err := validate(token); err != nil {
		return err
	}
	key := tokenKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, KeyOrderID, token.OrderID, KeyPaymentIntentID, token.PaymentIntentID)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save continuation failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Token, error) {
	fields, err := s.client.HGetAll(ctx, tokenKey(sessionID)).Result()
	if err != nil {
		return Token{}, fmt.Errorf("redis load continuation failed: %w", err)
	}
	if len(fields) == 0 || fields[KeyOrderID] == "" {
		return Token{}, notFound(sessionID)
	}
	return Token{
		OrderID:         fields[KeyOrderID],
		PaymentIntentID: fields[KeyPaymentIntentID],
	}, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, tokenKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis clear continuation failed: %w", err)
	}
	return nil
}

func tokenKey(sessionID string) string {
	return fmt.Sprintf("checkout:continuation:%s", sessionID)
}
