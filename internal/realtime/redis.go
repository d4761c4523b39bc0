package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes on Redis channels prefixed with Prefix. Every
// instance runs a Relay that feeds those messages into its local Broker.
type RedisPublisher struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisPublisher(rdb *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, prefix: prefix}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, msg []byte) error {
	if err := p.rdb.Publish(ctx, p.prefix+channel, msg).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}
	return nil
}

func (p *RedisPublisher) Check(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Relay forwards every message published under a prefix to a local Broker.
type Relay struct {
	rdb    *redis.Client
	prefix string
	local  *Broker
	logger *slog.Logger
}

func NewRelay(rdb *redis.Client, prefix string, local *Broker, logger *slog.Logger) *Relay {
	return &Relay{rdb: rdb, prefix: prefix, local: local, logger: logger}
}

// Run subscribes and forwards until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.PSubscribe(ctx, r.prefix+"*")
	defer sub.Close()

	// Block until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribing to %s*: %w", r.prefix, err)
	}
	r.logger.Info("relaying pubsub", "pattern", r.prefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			channel := strings.TrimPrefix(m.Channel, r.prefix)
			r.local.Publish(ctx, channel, []byte(m.Payload))
		}
	}
}
