// Package repositories holds the conversion ledger implementations.
package repositories

import (
	"fileconv/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListLimit clamps a requested page size to (0, 200], defaulting to 50.
func ListLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversion(row rowScanner) (*models.Conversion, error) {
	var c models.Conversion
	if err := scanInto(row, &c, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// scanInto reads conversionColumns into c. created receives the created_at
// column, whose storage type differs between drivers.
func scanInto(row rowScanner, c *models.Conversion, created any) error {
	var status string
	err := row.Scan(
		&c.JobID,
		&c.Kind,
		&c.SourceName,
		&c.DownloadName,
		&status,
		&c.ErrorCode,
		&c.ErrorMessage,
		&c.InputBytes,
		&c.OutputBytes,
		&c.Pages,
		&c.DurationMs,
		&c.ObjectKey,
		&c.Provider,
		&c.ContentType,
		created,
	)
	if err != nil {
		return err
	}
	c.Status = models.ConversionStatus(status)
	return nil
}
