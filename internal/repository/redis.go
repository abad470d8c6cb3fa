package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vinylbook/internal/config"

	"github.com/redis/go-redis/v9"
)

// SlotCache stores the booked time slots per date for the advisory
// availability endpoint. Implementations may lose data at any time; the
// database remains the source of truth.
type SlotCache interface {
	GetSlots(ctx context.Context, date string) ([]string, bool, error)
	SetSlots(ctx context.Context, date string, slots []string) error
	Invalidate(ctx context.Context, date string) error
}

type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	return &RedisSlotCache{client: client, ttl: ttl}
}

func slotKey(date string) string {
	return fmt.Sprintf("booked_slots:%s", date)
}

func (r *RedisSlotCache) GetSlots(ctx context.Context, date string) ([]string, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, slotKey(date)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get slots from redis: %w", err)
	}

	var slots []string
	if err := json.Unmarshal([]byte(val), &slots); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal slots: %w", err)
	}
	return slots, true, nil
}

func (r *RedisSlotCache) SetSlots(ctx context.Context, date string, slots []string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}
	if err := r.client.Set(ctx, slotKey(date), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set slots in redis: %w", err)
	}
	return nil
}

func (r *RedisSlotCache) Invalidate(ctx context.Context, date string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, slotKey(date)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate slots in redis: %w", err)
	}
	return nil
}
