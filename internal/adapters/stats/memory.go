// Package stats keeps per-kind conversion counters, in process or in Redis.
package stats

import (
	"context"
	"sync"

	"fileconv/internal/models"
	"fileconv/internal/ports"
)

var (
	_ ports.ConversionStats = (*Memory)(nil)
	_ ports.ConversionStats = (*Redis)(nil)
)

// Memory counts in process; counters reset on restart.
type Memory struct {
	mu     sync.Mutex
	counts map[string]models.KindStats
}

func NewMemory() *Memory {
	return &Memory{counts: map[string]models.KindStats{}}
}

func (m *Memory) Backend() string { return "memory" }

func (m *Memory) Incr(_ context.Context, kind string, status models.ConversionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.counts[kind]
	switch status {
	case models.StatusSucceeded:
		s.Succeeded++
	case models.StatusFailed:
		s.Failed++
	}
	m.counts[kind] = s
	return nil
}

func (m *Memory) Snapshot(_ context.Context) (map[string]models.KindStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]models.KindStats, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
