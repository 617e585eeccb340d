package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"frontdesk/internal/config"
	"frontdesk/internal/models"

	"github.com/redis/go-redis/v9"
)

const summaryKeyPrefix = "booking_summary:"

// RedisSummaryCache keeps booking summaries in redis for TTL.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{
		client: client,
		ttl:    ttl,
	}
}

func summaryKey(bookingID int64) string {
	return fmt.Sprintf("%s%d", summaryKeyPrefix, bookingID)
}

// Get returns nil, nil on a miss.
func (r *RedisSummaryCache) Get(ctx context.Context, bookingID int64) (*models.Summary, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, summaryKey(bookingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary from redis: %w", err)
	}

	var sum models.Summary
	if err := json.Unmarshal(val, &sum); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &sum, nil
}

func (r *RedisSummaryCache) Set(ctx context.Context, sum *models.Summary) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := r.client.Set(ctx, summaryKey(sum.BookingID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set summary in redis: %w", err)
	}
	return nil
}

func (r *RedisSummaryCache) Invalidate(ctx context.Context, bookingID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, summaryKey(bookingID)).Err(); err != nil {
		return fmt.Errorf("failed to delete summary from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
