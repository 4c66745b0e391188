// Package events publishes mission events on Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medishift/mission-matcher/internal/mission"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// publisher is the subset of *redis.Client used by RedisPublisher.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes each event as JSON on the channel named after its
// type, optionally prefixed.
type RedisPublisher struct {
	rdb    publisher
	prefix string
	logger *zap.Logger
}

func NewRedisPublisher(rdb publisher, prefix string, log *zap.Logger) *RedisPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisPublisher{rdb: rdb, prefix: prefix, logger: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, e mission.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Type, err)
	}

	channel := p.Channel(e.Type)
	receivers, err := p.rdb.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}

	p.logger.Debug("event published",
		zap.String("channel", channel),
		zap.String("mission_id", e.MissionID),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Channel returns the channel an event type is published on.
func (p *RedisPublisher) Channel(eventType string) string {
	return p.prefix + eventType
}
