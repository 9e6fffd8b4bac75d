/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/quizbox/games/quiz/archive"
)

// newArchive connects to Redis when --redis-addr is set. Without it, results
// are not archived and the returned store is nil.
func newArchive(ctx context.Context, cfg *Config) (*archive.Redis, func(), error) {
	if cfg.redisAddr == "" {
		return nil, func() {}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.redisAddr},
		Password: cfg.redisPassword,
	})

	if cfg.verbose {
		client.AddHook(archive.LogHook{})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store, err := archive.NewRedis(&archive.Config{
		Client: client,
		Prefix: cfg.redisPrefix,
		TTL:    cfg.resultTTL,
	})
	if err != nil {
		_ = client.Close()

		return nil, nil, err
	}

	log.Info().Str("addr", cfg.redisAddr).Msg("ARCHIVE: Storing finished games in redis")

	return store, func() { _ = client.Close() }, nil
}
