package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{
		Level:       level,
		Format:      "json",
		Output:      &buf,
		ServiceName: "fileconv-test",
	}), &buf
}

// lines decodes every JSON line written to buf.
func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLoggerOutput(t *testing.T) {
	log, buf := newBufferLogger("debug")

	log.Info("conversion completed", "download", "report.pdf", "output_bytes", 1024)

	entries := lines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 line, got %d", len(entries))
	}
	entry := entries[0]

	if entry["msg"] != "conversion completed" {
		t.Errorf("expected msg='conversion completed', got %v", entry["msg"])
	}
	if entry["download"] != "report.pdf" {
		t.Errorf("expected download='report.pdf', got %v", entry["download"])
	}
	if entry["service"] != "fileconv-test" {
		t.Errorf("expected service='fileconv-test', got %v", entry["service"])
	}
	ts, _ := entry["time"].(string)
	if !strings.HasSuffix(ts, "Z") {
		t.Errorf("expected UTC RFC3339 time, got %q", ts)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "text", Output: &buf})

	log.Warn("job cleanup failed", "job_id", "20240101_000000_abc")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "job_id=20240101_000000_abc") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"warning", []string{"WARN", "ERROR"}},
		{"error", []string{"ERROR"}},
		{"bogus", []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, buf := newBufferLogger(tt.level)

			log.Debug("d")
			log.Info("i")
			log.Warn("w")
			log.Error("e")

			var got []string
			for _, e := range lines(t, buf) {
				got = append(got, e["level"].(string))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("expected levels %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	log, buf := newBufferLogger("info")

	ctx := ContextWithRequestID(context.Background(), "req-42")
	jobCtx := ContextWithKind(ContextWithJobID(ctx, "20240101_000000_abc"), "pdf-to-jpg")

	log.FromContext(jobCtx).Info("conversion started")
	log.FromContext(ctx).Info("request completed")
	log.FromContext(context.Background()).Info("startup")

	entries := lines(t, buf)
	if len(entries) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(entries))
	}

	job := entries[0]
	if job["request_id"] != "req-42" || job["job_id"] != "20240101_000000_abc" || job["kind"] != "pdf-to-jpg" {
		t.Errorf("job line missing scope: %v", job)
	}

	// The parent context never sees the job fields added below it.
	req := entries[1]
	if req["request_id"] != "req-42" {
		t.Errorf("expected request_id on request line, got %v", req["request_id"])
	}
	if _, ok := req["job_id"]; ok {
		t.Errorf("job_id leaked into parent context: %v", req)
	}

	if _, ok := entries[2]["request_id"]; ok {
		t.Errorf("expected no request_id without scope: %v", entries[2])
	}

	if got := RequestIDFromContext(jobCtx); got != "req-42" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
}

func TestWithComponent(t *testing.T) {
	log, buf := newBufferLogger("info")

	log.WithComponent("pipeline").Info("x")

	if c := lines(t, buf)[0]["component"]; c != "pipeline" {
		t.Errorf("expected component='pipeline', got %v", c)
	}
}

func TestRedaction(t *testing.T) {
	log, buf := newBufferLogger("info")

	log.Info("opening ledger",
		"database_url", "postgres://fileconv:s3cret@db:5432/fileconv?sslmode=disable",
		"gdrive_refresh_token", "1//0gabc",
		"redis_addr", "redis:6379",
		"source", "Annual Report @ 2024.docx",
	)

	out := buf.String()
	if strings.Contains(out, "s3cret") || strings.Contains(out, "1//0gabc") {
		t.Fatalf("secret leaked: %s", out)
	}

	entry := lines(t, buf)[0]
	if entry["database_url"] != "postgres://fileconv:xxxxx@db:5432/fileconv?sslmode=disable" {
		t.Errorf("unexpected database_url: %v", entry["database_url"])
	}
	if entry["gdrive_refresh_token"] != "[redacted]" {
		t.Errorf("unexpected refresh token: %v", entry["gdrive_refresh_token"])
	}
	if entry["redis_addr"] != "redis:6379" || entry["source"] != "Annual Report @ 2024.docx" {
		t.Errorf("non-secret values must pass through: %v", entry)
	}
}

func TestRedactURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@h/db":     "postgres://u:xxxxx@h/db",
		"postgres://u@h/db":       "postgres://u@h/db",
		"plain text":              "plain text",
		"mailto:someone@example":  "mailto:someone@example",
		"https://example.com/a@b": "https://example.com/a@b",
	}
	for in, want := range tests {
		if got := redactURL(in); got != want {
			t.Errorf("redactURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Error("dropped")
	if !log.Enabled(context.Background(), slog.LevelInfo) {
		// The nop logger still reports levels; it only discards output.
		t.Error("expected info to be enabled on the nop logger")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Format != "json" || cfg.ServiceName != "fileconv" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
