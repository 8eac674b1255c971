package stats

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileconv/internal/config"
	"fileconv/internal/models"
	"fileconv/internal/ports"
)

func exerciseStats(t *testing.T, s ports.ConversionStats) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Incr(ctx, "pdf-to-jpg", models.StatusSucceeded))
		}()
	}
	wg.Wait()
	require.NoError(t, s.Incr(ctx, "pdf-to-jpg", models.StatusFailed))
	require.NoError(t, s.Incr(ctx, "word-to-pdf", models.StatusFailed))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.KindStats{
		"pdf-to-jpg":  {Succeeded: 10, Failed: 1},
		"word-to-pdf": {Failed: 1},
	}, snap)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	assert.Equal(t, "memory", m.Backend())
	exerciseStats(t, m)
}

func TestOpenDefaultsToMemory(t *testing.T) {
	s, err := Open(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Backend())
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	key := "fileconv:test:" + t.Name()
	require.NoError(t, rdb.Del(context.Background(), key).Err())

	s := NewRedis(rdb, key)
	t.Cleanup(func() {
		rdb.Del(context.Background(), key)
		s.Close()
	})

	assert.Equal(t, "redis", s.Backend())
	exerciseStats(t, s)
}
