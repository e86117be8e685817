package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisClients holds the two connections the app needs: one for job
// queues and ephemeral keys, one dedicated to pub/sub. A subscribed
// connection cannot issue regular commands, hence the split.
type RedisClients struct {
	Queue  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(ctx context.Context, redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	queue, err := connect(ctx, opt, "queue")
	if err != nil {
		return nil, err
	}
	pubsub, err := connect(ctx, opt, "pubsub")
	if err != nil {
		queue.Close()
		return nil, err
	}

	return &RedisClients{Queue: queue, PubSub: pubsub}, nil
}

func connect(ctx context.Context, opt *redis.Options, role string) (*redis.Client, error) {
	o := *opt
	client := redis.NewClient(&o)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis (%s): %w", role, err)
	}
	return client, nil
}

func (r *RedisClients) Close() {
	r.Queue.Close()
	r.PubSub.Close()
}
