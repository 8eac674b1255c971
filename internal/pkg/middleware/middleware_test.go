package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fileconv/internal/pkg/errors"
	"fileconv/internal/pkg/logger"
)

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that request ID is in context
		if logger.RequestIDFromContext(r.Context()) == "" {
			t.Error("expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates new request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		reqID := rec.Header().Get(RequestIDHeader)
		if reqID == "" {
			t.Error("expected X-Request-ID header to be set")
		}
		if len(reqID) != 32 { // hex encoded 16 bytes
			t.Errorf("expected request ID length 32, got %d", len(reqID))
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-id-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		reqID := rec.Header().Get(RequestIDHeader)
		if reqID != "existing-id-123" {
			t.Errorf("expected preserved request ID 'existing-id-123', got %s", reqID)
		}
	})

	t.Run("replaces unsafe request ID", func(t *testing.T) {
		for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("a", 65)} {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set(RequestIDHeader, bad)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get(RequestIDHeader); got == bad || len(got) != 32 {
				t.Errorf("expected generated ID for %q, got %q", bad, got)
			}
		}
	})
}

func TestLogging(t *testing.T) {
	var logBuf bytes.Buffer
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "json",
		Output: &logBuf,
	})

	handler := RequestID(Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Job-ID", "20240101_120000_abc")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("%PDF-1.4"))
	})))

	req := httptest.NewRequest("POST", "/api/convert/word-to-pdf", strings.NewReader("upload"))
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	var entry map[string]any
	if err := json.Unmarshal(logBuf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", logBuf.String(), err)
	}

	want := map[string]any{
		"msg":        "request completed",
		"method":     "POST",
		"path":       "/api/convert/word-to-pdf",
		"status":     float64(200),
		"size":       float64(8),
		"job_id":     "20240101_120000_abc",
		"request_id": "req-1",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("expected %s=%v, got %v", k, v, entry[k])
		}
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log")
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		expectedLevel string
	}{
		{"2xx logs info", 200, "INFO"},
		{"3xx logs info", 302, "INFO"},
		{"4xx logs warn", 404, "WARN"},
		{"5xx logs error", 500, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			log := logger.New(logger.Config{
				Level:  "debug",
				Format: "json",
				Output: &logBuf,
			})

			handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			logOutput := logBuf.String()
			if !strings.Contains(logOutput, tt.expectedLevel) {
				t.Errorf("expected log level %s, got: %s", tt.expectedLevel, logOutput)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var logBuf bytes.Buffer
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "json",
		Output: &logBuf,
	})

	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	// Should not panic
	handler.ServeHTTP(rec, req)

	// Should return 500
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	// Should return JSON error
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body, got: %s", rec.Body.String())
	}
	if body.Code != "INTERNAL_ERROR" || body.Error != "internal server error" {
		t.Errorf("unexpected body: %+v", body)
	}
	if strings.Contains(rec.Body.String(), "test panic") {
		t.Error("panic value must not reach the client")
	}

	// Should log the panic
	logOutput := logBuf.String()
	if !strings.Contains(logOutput, "panic recovered") {
		t.Errorf("expected 'panic recovered' in log, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "test panic") {
		t.Errorf("expected panic message in log, got: %s", logOutput)
	}
}

func TestResponseWriter(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantSize   int
	}{
		{
			name:       "artifact body defaults to 200",
			write:      func(w http.ResponseWriter) { w.Write([]byte("%PDF-1.4")) },
			wantStatus: http.StatusOK,
			wantSize:   8,
		},
		{
			name:       "delete answers 204",
			write:      func(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) },
			wantStatus: http.StatusNoContent,
		},
		{
			name: "first status wins",
			write: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadRequest)
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"error":"No file provided"}`))
			},
			wantStatus: http.StatusBadRequest,
			wantSize:   len(`{"error":"No file provided"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rw := wrapResponseWriter(rec)

			tt.write(rw)

			if rw.status != tt.wantStatus || rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got wrapper=%d recorder=%d", tt.wantStatus, rw.status, rec.Code)
			}
			if rw.size != tt.wantSize {
				t.Errorf("expected size %d, got %d", tt.wantSize, rw.size)
			}
		})
	}

	t.Run("flush reaches the recorder", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := wrapResponseWriter(rec)

		if err := http.NewResponseController(rw).Flush(); err != nil {
			t.Fatalf("flush through wrapper failed: %v", err)
		}
		if !rec.Flushed {
			t.Error("expected the recorder to be flushed")
		}
	})
}

func TestWrapHandler(t *testing.T) {
	var logBuf bytes.Buffer
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "json",
		Output: &logBuf,
	})

	t.Run("successful handler", func(t *testing.T) {
		handler := WrapHandler(log, func(w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("success"))
			return nil
		})

		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("handler with error", func(t *testing.T) {
		logBuf.Reset()

		handler := WrapHandler(log, func(w http.ResponseWriter, r *http.Request) error {
			return errors.NotFound("user", "123")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}

		body := rec.Body.String()
		if !strings.Contains(body, "NOT_FOUND") {
			t.Errorf("expected NOT_FOUND in body, got: %s", body)
		}
	})

	t.Run("wrapped cause stays in the log", func(t *testing.T) {
		logBuf.Reset()

		handler := WrapHandler(log, func(w http.ResponseWriter, r *http.Request) error {
			cause := errors.New(errors.CodeInternal, "open /srv/data/uploads/x: permission denied")
			return errors.Storage(cause, "workspace.allocate", "failed to store upload")
		})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/convert/word-to-pdf", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
		var body ErrorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Error != "failed to store upload" || body.Code != "STORAGE_ERROR" {
			t.Errorf("unexpected body: %+v", body)
		}
		if !strings.Contains(logBuf.String(), "permission denied") {
			t.Errorf("expected cause in log, got: %s", logBuf.String())
		}
		if !strings.Contains(logBuf.String(), `"stack"`) {
			t.Errorf("expected stack for a server fault, got: %s", logBuf.String())
		}
	})

	t.Run("rejected upload logs at info", func(t *testing.T) {
		logBuf.Reset()

		handler := WrapHandler(log, func(w http.ResponseWriter, r *http.Request) error {
			return errors.ValidationField("file", "No file selected")
		})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/convert/word-to-pdf", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
		out := logBuf.String()
		if !strings.Contains(out, `"level":"INFO"`) || !strings.Contains(out, "upload rejected") {
			t.Errorf("expected info-level rejection log, got: %s", out)
		}
		if !strings.Contains(out, `"field":"file"`) {
			t.Errorf("expected the field in the log, got: %s", out)
		}
	})

	t.Run("conversion failure logs as warning", func(t *testing.T) {
		logBuf.Reset()

		handler := WrapHandler(log, func(w http.ResponseWriter, r *http.Request) error {
			return errors.ConversionFailed("soffice", 1, "source file could not be loaded")
		})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/convert/word-to-pdf", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
		out := logBuf.String()
		if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, "conversion failed") {
			t.Errorf("expected warn-level conversion log, got: %s", out)
		}
		if strings.Contains(out, `"stack"`) {
			t.Errorf("conversion failures carry no stack: %s", out)
		}
		if !strings.Contains(out, `"exit_code":1`) {
			t.Errorf("expected error fields in log, got: %s", out)
		}
	})
}

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		code     errors.Code
		message  string
		expected int
	}{
		{"validation error", errors.CodeValidation, "No file provided", 400},
		{"not found", errors.CodeNotFound, "converter not found: pdf-to-midi", 404},
		{"rate limited", errors.CodeRateLimited, "Too many requests", 429},
		{"conversion timeout", errors.CodeConversionTimeout, "Conversion timeout", 500},
		{"quotes survive", errors.CodeConversionFailed, `Conversion failed: "x" not found`, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.Header().Set("Content-Disposition", "attachment")

			WriteErrorResponse(rec, tt.code, tt.message)

			if rec.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}
			if rec.Header().Get("Content-Disposition") != "" {
				t.Error("error responses must not be attachments")
			}

			var body ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
			}
			if body.Code != string(tt.code) || body.Error != tt.message {
				t.Errorf("unexpected body: %+v", body)
			}
		})
	}
}

func TestDeadline(t *testing.T) {
	var got time.Time
	handler := Deadline(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if got.IsZero() || time.Until(got) > time.Minute {
		t.Errorf("expected deadline within a minute, got %v", got)
	}

	t.Run("zero disables", func(t *testing.T) {
		handler := Deadline(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				t.Error("expected no deadline")
			}
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	})

	t.Run("expiry writes nothing", func(t *testing.T) {
		handler := Deadline(time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			if r.Context().Err() != context.DeadlineExceeded {
				t.Errorf("unexpected ctx error %v", r.Context().Err())
			}
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Body.Len() != 0 {
			t.Errorf("expected empty body, got %q", rec.Body.String())
		}
	})
}

func TestRateLimit(t *testing.T) {
	log := logger.NewNop()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	handler := RateLimit(0.001, 2, log)(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		codes = append(codes, rec.Code)
	}

	if codes[0] != 204 || codes[1] != 204 || codes[2] != 429 {
		t.Errorf("expected [204 204 429], got %v", codes)
	}

	t.Run("disabled", func(t *testing.T) {
		handler := RateLimit(0, 0, log)(ok)
		for i := 0; i < 50; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
			if rec.Code != 204 {
				t.Fatalf("request %d: expected 204, got %d", i, rec.Code)
			}
		}
	})
}

func TestGenerateRequestID(t *testing.T) {
	id1 := generateRequestID()
	id2 := generateRequestID()

	if id1 == id2 {
		t.Error("expected unique request IDs")
	}

	if len(id1) != 32 {
		t.Errorf("expected length 32, got %d", len(id1))
	}
}
