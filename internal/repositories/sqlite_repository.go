package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fileconv/internal/models"
	"fileconv/internal/ports"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS conversions (
		job_id        TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		source_name   TEXT NOT NULL,
		download_name TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		error_code    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		input_bytes   INTEGER NOT NULL DEFAULT 0,
		output_bytes  INTEGER NOT NULL DEFAULT 0,
		pages         INTEGER NOT NULL DEFAULT 0,
		duration_ms   INTEGER NOT NULL DEFAULT 0,
		object_key    TEXT NOT NULL DEFAULT '',
		provider      TEXT NOT NULL DEFAULT '',
		content_type  TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS conversions_created_at_idx ON conversions (created_at DESC)`,
}

// SQLiteRepository is the single-file conversion ledger. created_at is kept
// as Unix nanoseconds so ordering is exact.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; concurrent handlers queue on the pool.
	db.SetMaxOpenConns(1)

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate conversions: %w", err)
		}
	}
	return &SQLiteRepository{db: db, path: path}, nil
}

func (r *SQLiteRepository) Driver() string { return "sqlite" }

func (r *SQLiteRepository) Record(ctx context.Context, c *models.Conversion) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversions (`+conversionColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		c.JobID, c.Kind, c.SourceName, c.DownloadName, string(c.Status), c.ErrorCode, c.ErrorMessage,
		c.InputBytes, c.OutputBytes, c.Pages, c.DurationMs, c.ObjectKey, c.Provider, c.ContentType,
		c.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return fmt.Errorf("%w: %s", ports.ErrConversionExists, c.JobID)
		}
		return err
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, jobID string) (*models.Conversion, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conversionColumns+` FROM conversions WHERE job_id=?`, jobID)

	c, err := scanSQLite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrConversionNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f models.ConversionFilter) ([]models.Conversion, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind=?")
		args = append(args, f.Kind)
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(f.Status))
	}

	q := `SELECT ` + conversionColumns + ` FROM conversions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, ListLimit(f.Limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Conversion{}
	for rows.Next() {
		c, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ClearObject(ctx context.Context, jobID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversions SET object_key='', provider='' WHERE job_id=?`, jobID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrConversionNotFound
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *SQLiteRepository) Close() error { return r.db.Close() }

func scanSQLite(row rowScanner) (*models.Conversion, error) {
	var (
		c       models.Conversion
		created int64
	)
	if err := scanInto(row, &c, &created); err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	return &c, nil
}

func isSQLiteConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// Extended codes carry the primary code in the low byte.
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
