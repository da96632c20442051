// Package statuscache keeps serialized job status views of finished jobs so
// repeated status reads skip the backend. Finished views never change, so a
// hit is always valid until it expires.
package statuscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"streamline/internal/config"
	"streamline/internal/logging"
)

const keyPrefix = "streamline:status:"

// Cache stores opaque payloads by job id.
type Cache interface {
	Get(ctx context.Context, jobID string) ([]byte, bool, error)
	Set(ctx context.Context, jobID string, payload []byte) error
	Close() error
}

// New returns a Redis cache when enabled, otherwise Nop.
func New(cfg *config.Config, logger *slog.Logger) Cache {
	if cfg == nil || !cfg.StatusCache.Enabled {
		return Nop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.StatusCache.Addr,
		Password: cfg.StatusCache.Password,
		DB:       cfg.StatusCache.DB,
	})
	return newRedis(client, cfg.StatusCacheTTL(), logger)
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }
func (Nop) Close() error                                      { return nil }

type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis stores payloads under streamline:status:<job id> with a TTL.
type Redis struct {
	client redisAPI
	ttl    time.Duration
	logger *slog.Logger
}

func newRedis(client redisAPI, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logging.NewComponentLogger(logger, "statuscache")}
}

func (r *Redis) Get(ctx context.Context, jobID string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+jobID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("status cache get %s: %w", jobID, err)
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, jobID string, payload []byte) error {
	if err := r.client.Set(ctx, keyPrefix+jobID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("status cache set %s: %w", jobID, err)
	}
	r.logger.Debug("status cached", logging.String(logging.FieldJobID, jobID), logging.Duration("ttl", r.ttl))
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
