package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fileconv/internal/models"
	"fileconv/internal/ports"
)

// MemoryRepository keeps the most recent conversions in process. The oldest
// row is evicted once capacity is reached.
type MemoryRepository struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	rows     map[string]models.Conversion
}

func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryRepository{
		capacity: capacity,
		rows:     make(map[string]models.Conversion, capacity),
	}
}

func (r *MemoryRepository) Driver() string { return "memory" }

func (r *MemoryRepository) Record(ctx context.Context, c *models.Conversion) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[c.JobID]; ok {
		return fmt.Errorf("%w: %s", ports.ErrConversionExists, c.JobID)
	}
	if len(r.order) >= r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.rows, oldest)
	}
	r.order = append(r.order, c.JobID)
	r.rows[c.JobID] = *c
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, jobID string) (*models.Conversion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.rows[jobID]
	if !ok {
		return nil, ports.ErrConversionNotFound
	}
	return &c, nil
}

// List walks insertion order backwards, which is newest first.
func (r *MemoryRepository) List(ctx context.Context, f models.ConversionFilter) ([]models.Conversion, error) {
	limit := ListLimit(f.Limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Conversion{}
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		c := r.rows[r.order[i]]
		if f.Kind != "" && c.Kind != f.Kind {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepository) ClearObject(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.rows[jobID]
	if !ok {
		return ports.ErrConversionNotFound
	}
	c.ObjectKey = ""
	c.Provider = ""
	r.rows[jobID] = c
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryRepository) Close() error { return nil }
