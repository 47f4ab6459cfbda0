// Package publish pushes computed snapshots to Redis so other services can
// read the latest figures without talking to the record stores.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dbsmedya/outreachkpi/internal/config"
	"github.com/dbsmedya/outreachkpi/internal/kpi"
	"github.com/dbsmedya/outreachkpi/internal/logger"
)

// Publisher receives every applied snapshot.
type Publisher interface {
	Publish(ctx context.Context, snap *kpi.Snapshot) error
	Close() error
}

// Client is the subset of *redis.Client the publisher uses.
type Client interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisPublisher stores each snapshot as JSON under <prefix><dataset> and
// announces the dataset name on a channel.
type RedisPublisher struct {
	client  Client
	prefix  string
	ttl     time.Duration
	channel string
	log     *logger.Logger
}

// NewRedisPublisher connects to Redis using cfg.
func NewRedisPublisher(cfg *config.RedisConfig, log *logger.Logger) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(client, cfg, log)
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, cfg *config.RedisConfig, log *logger.Logger) *RedisPublisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisPublisher{
		client:  client,
		prefix:  cfg.KeyPrefix,
		ttl:     time.Duration(cfg.TTLSeconds) * time.Second,
		channel: cfg.Channel,
		log:     log.WithComponent("publish"),
	}
}

// Key returns the Redis key holding a dataset's snapshot.
func (p *RedisPublisher) Key(dataset string) string {
	return p.prefix + dataset
}

// Ping checks the connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Publish writes snap and notifies subscribers. A TTL of 0 keeps the key
// until the next write.
func (p *RedisPublisher) Publish(ctx context.Context, snap *kpi.Snapshot) error {
	if snap == nil {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := p.Key(snap.Dataset)
	if err := p.client.Set(ctx, key, data, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", key, err)
	}

	if p.channel != "" {
		if err := p.client.Publish(ctx, p.channel, snap.Dataset).Err(); err != nil {
			return fmt.Errorf("failed to publish on %s: %w", p.channel, err)
		}
	}

	p.log.Debugw("snapshot published", "key", key, "bytes", len(data))
	return nil
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
