package stats

import (
	"context"

	"fileconv/internal/config"
	"fileconv/internal/ports"
)

// Open returns Redis counters when cfg.RedisAddr is set, in-memory ones
// otherwise.
func Open(ctx context.Context, cfg *config.Config) (ports.ConversionStats, error) {
	if cfg.RedisAddr == "" {
		return NewMemory(), nil
	}
	return OpenRedis(ctx, cfg.RedisAddr)
}
