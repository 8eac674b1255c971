package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"fileconv/internal/models"
)

// DefaultKey is the Redis hash holding every counter. Fields are
// "<kind>:<status>".
const DefaultKey = "fileconv:stats"

// Redis shares counters between API replicas.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis wraps client. The Redis store owns the client and closes it.
func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key}
}

// OpenRedis connects to addr and pings it.
func OpenRedis(ctx context.Context, addr string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(rdb, DefaultKey), nil
}

func (r *Redis) Backend() string { return "redis" }

func (r *Redis) Incr(ctx context.Context, kind string, status models.ConversionStatus) error {
	return r.client.HIncrBy(ctx, r.key, kind+":"+string(status), 1).Err()
}

func (r *Redis) Snapshot(ctx context.Context) (map[string]models.KindStats, error) {
	vals, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.KindStats)
	for field, raw := range vals {
		i := strings.LastIndex(field, ":")
		if i <= 0 {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}

		kind := field[:i]
		s := out[kind]
		switch models.ConversionStatus(field[i+1:]) {
		case models.StatusSucceeded:
			s.Succeeded = n
		case models.StatusFailed:
			s.Failed = n
		default:
			continue
		}
		out[kind] = s
	}
	return out, nil
}

func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *Redis) Close() error { return r.client.Close() }
