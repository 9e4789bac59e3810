package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 10 * time.Second

// RedisClients splits Redis traffic by role. Cache serves refresh tokens,
// identity cells and the notification list, whose BLPOP calls hold a pooled
// connection for seconds at a time. PubSub carries gallery and identity
// announcements and the hub's long-lived subscription.
type RedisClients struct {
	Cache  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	cache, err := dialRedis(ctx, *opt, "cache")
	if err != nil {
		return nil, err
	}

	pubsubOpt := *opt
	// Publishes are small and the subscription keeps its own connection.
	pubsubOpt.PoolSize = 4
	pubsub, err := dialRedis(ctx, pubsubOpt, "pubsub")
	if err != nil {
		cache.Close()
		return nil, err
	}

	return &RedisClients{Cache: cache, PubSub: pubsub}, nil
}

func dialRedis(ctx context.Context, opt redis.Options, role string) (*redis.Client, error) {
	client := redis.NewClient(&opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis (%s): %w", role, err)
	}
	return client, nil
}

func (r *RedisClients) Close() {
	r.Cache.Close()
	r.PubSub.Close()
}
