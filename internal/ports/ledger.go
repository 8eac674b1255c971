package ports

import (
	"context"
	"errors"

	"fileconv/internal/models"
)

var (
	ErrConversionNotFound = errors.New("conversion not found")
	ErrConversionExists   = errors.New("conversion already recorded")
)

// ConversionLedger stores one row per conversion job. Implementations:
// in-memory, Postgres (pgx) and SQLite.
type ConversionLedger interface {
	Driver() string

	Record(ctx context.Context, c *models.Conversion) error
	Get(ctx context.Context, jobID string) (*models.Conversion, error)
	List(ctx context.Context, f models.ConversionFilter) ([]models.Conversion, error)
	// ClearObject forgets the retained artifact of a job.
	ClearObject(ctx context.Context, jobID string) error

	Ping(ctx context.Context) error
	Close() error
}

// ConversionStats keeps per-kind success and failure counters.
type ConversionStats interface {
	Backend() string

	Incr(ctx context.Context, kind string, status models.ConversionStatus) error
	Snapshot(ctx context.Context) (map[string]models.KindStats, error)

	Ping(ctx context.Context) error
	Close() error
}
