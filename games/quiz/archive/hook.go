/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package archive

import (
	"context"
	"net"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// LogHook logs every Redis command at debug level.
type LogHook struct{}

var _ redis.Hook = LogHook{}

func (LogHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		log.Debug().Str("network", network).Str("addr", addr).Err(err).Msg("redis: dial")
		return conn, err
	}
}

func (LogHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		log.Debug().Str("cmd", cmd.Name()).Err(err).Msg("redis: command")
		return err
	}
}

func (LogHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		log.Debug().Int("cmds", len(cmds)).Err(err).Msg("redis: pipeline")
		return err
	}
}
