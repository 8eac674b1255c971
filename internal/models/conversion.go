package models

import "time"

// ConversionStatus is the terminal state of a conversion job.
type ConversionStatus string

const (
	StatusSucceeded ConversionStatus = "succeeded"
	StatusFailed    ConversionStatus = "failed"
)

// Conversion is the ledger row for one job that got past validation.
type Conversion struct {
	JobID        string           `json:"job_id"`
	Kind         string           `json:"kind"`
	SourceName   string           `json:"source_name"`
	DownloadName string           `json:"download_name,omitempty"`
	Status       ConversionStatus `json:"status"`
	ErrorCode    string           `json:"error_code,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	InputBytes   int64            `json:"input_bytes"`
	OutputBytes  int64            `json:"output_bytes,omitempty"`
	Pages        int              `json:"pages,omitempty"`
	DurationMs   int64            `json:"duration_ms"`
	// ObjectKey is set while the artifact is retained in storage.
	ObjectKey   string    `json:"object_key,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Retained reports whether the artifact can still be downloaded.
func (c *Conversion) Retained() bool { return c.ObjectKey != "" }

// ConversionFilter narrows a ledger listing. Zero values match everything.
type ConversionFilter struct {
	Kind   string
	Status ConversionStatus
	Limit  int
}

// KindStats are the counters kept per conversion kind.
type KindStats struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}
