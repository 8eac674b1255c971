package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fileconv/internal/models"
	"fileconv/internal/ports"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS conversions (
		job_id        TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		source_name   TEXT NOT NULL,
		download_name TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		error_code    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		input_bytes   BIGINT NOT NULL DEFAULT 0,
		output_bytes  BIGINT NOT NULL DEFAULT 0,
		pages         INTEGER NOT NULL DEFAULT 0,
		duration_ms   BIGINT NOT NULL DEFAULT 0,
		object_key    TEXT NOT NULL DEFAULT '',
		provider      TEXT NOT NULL DEFAULT '',
		content_type  TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS conversions_created_at_idx ON conversions (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS conversions_kind_status_idx ON conversions (kind, status)`,
}

const conversionColumns = `job_id, kind, source_name, download_name, status, error_code, error_message,
	input_bytes, output_bytes, pages, duration_ms, object_key, provider, content_type, created_at`

// ConversionRepository is the Postgres conversion ledger.
type ConversionRepository struct {
	db *pgxpool.Pool
}

func NewConversionRepository(db *pgxpool.Pool) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// OpenPostgres connects, pings and migrates.
func OpenPostgres(ctx context.Context, url string) (*ConversionRepository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := NewConversionRepository(pool)
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Migrate creates the conversions table if it is missing.
func (r *ConversionRepository) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate conversions: %w", err)
		}
	}
	return nil
}

func (r *ConversionRepository) Driver() string { return "postgres" }

func (r *ConversionRepository) Record(ctx context.Context, c *models.Conversion) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO conversions (`+conversionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		c.JobID, c.Kind, c.SourceName, c.DownloadName, string(c.Status), c.ErrorCode, c.ErrorMessage,
		c.InputBytes, c.OutputBytes, c.Pages, c.DurationMs, c.ObjectKey, c.Provider, c.ContentType, c.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ports.ErrConversionExists, c.JobID)
		}
		return err
	}
	return nil
}

func (r *ConversionRepository) Get(ctx context.Context, jobID string) (*models.Conversion, error) {
	row := r.db.QueryRow(ctx, `SELECT `+conversionColumns+` FROM conversions WHERE job_id=$1`, jobID)

	c, err := scanConversion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrConversionNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ConversionRepository) List(ctx context.Context, f models.ConversionFilter) ([]models.Conversion, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		args = append(args, f.Kind)
		where = append(where, fmt.Sprintf("kind=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	args = append(args, ListLimit(f.Limit))

	q := `SELECT ` + conversionColumns + ` FROM conversions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Conversion{}
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *ConversionRepository) ClearObject(ctx context.Context, jobID string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE conversions
		SET object_key='', provider=''
		WHERE job_id=$1
	`, jobID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ports.ErrConversionNotFound
	}
	return nil
}

func (r *ConversionRepository) Ping(ctx context.Context) error { return r.db.Ping(ctx) }

// Stat exposes pool counters for the deep health check.
func (r *ConversionRepository) Stat() map[string]any {
	s := r.db.Stat()
	return map[string]any{
		"total_conns":    s.TotalConns(),
		"idle_conns":     s.IdleConns(),
		"acquired_conns": s.AcquiredConns(),
	}
}

func (r *ConversionRepository) Close() error {
	r.db.Close()
	return nil
}

// IsUniqueViolation returns true if the error is a PostgreSQL unique constraint violation.
// 23505 = unique_violation
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
