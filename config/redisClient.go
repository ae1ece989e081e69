package config

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for the job queue and rate limiter after a ping.
func ConnectRedis(ctx context.Context, s Settings) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     s.RedisAddress,
		Password: s.RedisPassword,
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to Redis at %s: %w", s.RedisAddress, err)
	}

	log.Println("Connected to Redis")
	return rdb, nil
}
