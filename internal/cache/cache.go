// Package cache mirrors the ranked top K into Redis for cheap reads.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/carter2099/best-bets/internal/config"
	"github.com/carter2099/best-bets/internal/models"
)

// RankCache is nil-safe: a nil *RankCache stores nothing and always misses.
type RankCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// New returns nil when cfg.Addr is empty.
func New(cfg config.RedisConfig, ttl time.Duration) *RankCache {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewWithClient(rdb, cfg.Prefix, ttl)
}

func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *RankCache {
	return &RankCache{client: client, key: topKey(prefix), ttl: ttl}
}

func topKey(prefix string) string {
	if prefix == "" {
		prefix = "best-bets"
	}
	return prefix + ":top"
}

func (c *RankCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *RankCache) StoreTop(ctx context.Context, items []models.Token) error {
	if c == nil {
		return nil
	}
	payload, err := encodeTop(items)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Top returns the cached ranking. ok is false on a miss or when disabled.
func (c *RankCache) Top(ctx context.Context) (items []models.Token, ok bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	val, err := c.client.Get(ctx, c.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal([]byte(val), &items); err != nil {
		return nil, false, fmt.Errorf("decode cached ranking: %w", err)
	}
	return items, true, nil
}

func (c *RankCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func encodeTop(items []models.Token) (string, error) {
	if items == nil {
		items = []models.Token{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode ranking: %w", err)
	}
	return string(b), nil
}
