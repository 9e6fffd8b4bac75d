/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package archive stores the results of finished quiz sessions in Redis.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Seednode/quizbox/games/quiz"
	"github.com/redis/go-redis/v9"
)

const (
	resultKeyPrefix = "result:"
	recentKey       = "results"
)

// ErrResultNotFound is returned when no result is stored for a code.
var ErrResultNotFound = errors.New("result not found")

// Config holds configuration for the Redis archive.
type Config struct {
	Client redis.UniversalClient
	Prefix string

	// TTL is how long a result is kept. Zero keeps results forever.
	TTL time.Duration
}

// Redis implements quiz.Archive.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(cfg *Config) (*Redis, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	return &Redis{
		client: cfg.Client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}, nil
}

// Save stores result and indexes it by finish time.
func (r *Redis) Save(ctx context.Context, result quiz.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	pipe := r.client.TxPipeline()

	pipe.Set(ctx, r.resultKey(result.Code), data, r.ttl)
	pipe.ZAdd(ctx, r.prefix+recentKey, redis.Z{
		Score:  float64(result.FinishedAt.UnixMilli()),
		Member: result.Code,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	return nil
}

// Get returns the result stored for code.
func (r *Redis) Get(ctx context.Context, code string) (*quiz.Result, error) {
	data, err := r.client.Get(ctx, r.resultKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}

	var result quiz.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}

	return &result, nil
}

// Recent returns up to limit results, newest first. Index entries whose
// result has expired are pruned.
func (r *Redis) Recent(ctx context.Context, limit int) ([]quiz.Result, error) {
	if limit <= 0 {
		return []quiz.Result{}, nil
	}

	codes, err := r.client.ZRevRange(ctx, r.prefix+recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	results := make([]quiz.Result, 0, len(codes))
	for _, code := range codes {
		result, err := r.Get(ctx, code)
		if errors.Is(err, ErrResultNotFound) {
			if err := r.client.ZRem(ctx, r.prefix+recentKey, code).Err(); err != nil {
				return nil, fmt.Errorf("prune results: %w", err)
			}

			continue
		}
		if err != nil {
			return nil, err
		}

		results = append(results, *result)
	}

	return results, nil
}

func (r *Redis) resultKey(code string) string {
	return r.prefix + resultKeyPrefix + code
}
