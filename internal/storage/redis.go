package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nerdneilsfield/inkwash-card/internal/card"
)

const redisKeyPrefix = "inkcard:card:"

// RedisCardStore keeps cards as JSON strings, one key per card. Expiry is left
// to Redis.
type RedisCardStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCardStore(client *redis.Client, ttl time.Duration) *RedisCardStore {
	return &RedisCardStore{client: client, ttl: ttl}
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisCardStore) Put(ctx context.Context, rec card.Record) error {
	data, err := json.Marshal(toModel(rec, s.ttl))
	if err != nil {
		return fmt.Errorf("failed to marshal card: %w", err)
	}
	// SETNX 保证 id 不被覆盖
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+rec.ID, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store card: %w", err)
	}
	if !ok {
		return card.ErrDuplicateID
	}
	return nil
}

func (s *RedisCardStore) Get(ctx context.Context, id string) (card.Record, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return card.Record{}, card.ErrNotFound
		}
		return card.Record{}, fmt.Errorf("failed to read card: %w", err)
	}

	var m CardModel
	if err := json.Unmarshal(data, &m); err != nil {
		return card.Record{}, fmt.Errorf("failed to unmarshal card %s: %w", id, err)
	}
	return m.toRecord(), nil
}
