package conversion

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator hands out job ids.
type IDGenerator interface {
	NewID() string
}

// TimestampIDs produces ids like 20240131_154500_9f86d081884c. The timestamp
// keeps ids sortable; the random suffix keeps two jobs started in the same
// second apart.
type TimestampIDs struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewID implements IDGenerator.
func (g TimestampIDs) NewID() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return now().Format("20060102_150405") + "_" + suffix
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func() string

// NewID implements IDGenerator.
func (f IDFunc) NewID() string { return f() }
