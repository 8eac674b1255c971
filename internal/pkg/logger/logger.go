// Package logger wraps log/slog with the request and job context the
// conversion service attaches to every line.
package logger

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

type scopeKey struct{}

// scope is the per-request context a line can be tagged with. It is copied
// on every change so a parent context never sees a child's job id.
type scope struct {
	requestID string
	jobID     string
	kind      string
}

// Logger wraps slog.Logger with request and job enrichment.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the output format (json, text).
	Format string
	// Output defaults to os.Stdout.
	Output    io.Writer
	AddSource bool
	// ServiceName is attached to every line as "service".
	ServiceName string
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "json",
		Output:      os.Stdout,
		ServiceName: "fileconv",
	}
}

// secretKeys are attribute keys whose values never reach the output.
var secretKeys = map[string]bool{
	"password":             true,
	"client_secret":        true,
	"refresh_token":        true,
	"gdrive_client_secret": true,
	"gdrive_refresh_token": true,
}

// New creates a new Logger with the given configuration.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   cfg.AddSource,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	if cfg.ServiceName != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", cfg.ServiceName),
		})
	}

	return &Logger{Logger: slog.New(handler)}
}

// replaceAttr formats times as RFC3339Nano UTC and masks credentials, both
// by key and inside connection URLs such as DATABASE_URL.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch {
	case a.Key == slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
		}
	case secretKeys[strings.ToLower(a.Key)]:
		a.Value = slog.StringValue("[redacted]")
	case a.Value.Kind() == slog.KindString:
		a.Value = slog.StringValue(redactURL(a.Value.String()))
	}
	return a
}

// redactURL hides the password of a URL with userinfo. Anything else is
// returned unchanged.
func redactURL(s string) string {
	if !strings.Contains(s, "://") || !strings.Contains(s, "@") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	if _, has := u.User.Password(); !has {
		return s
	}
	return u.Redacted()
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// NewNop returns a logger that drops everything.
func NewNop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithComponent returns a new logger with the component name attached.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("component", component))}
}

// FromContext returns l tagged with whatever request id, job id and kind
// the context carries.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	s, ok := ctx.Value(scopeKey{}).(scope)
	if !ok {
		return l
	}

	attrs := make([]any, 0, 3)
	if s.requestID != "" {
		attrs = append(attrs, slog.String("request_id", s.requestID))
	}
	if s.jobID != "" {
		attrs = append(attrs, slog.String("job_id", s.jobID))
	}
	if s.kind != "" {
		attrs = append(attrs, slog.String("kind", s.kind))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.Logger.With(attrs...)}
}

// LogFatal logs a fatal error and exits.
func (l *Logger) LogFatal(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.Error(msg, args...)
	os.Exit(1)
}

func scopeFrom(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	s := scopeFrom(ctx)
	s.requestID = requestID
	return context.WithValue(ctx, scopeKey{}, s)
}

// ContextWithJobID adds a job ID to the context.
func ContextWithJobID(ctx context.Context, jobID string) context.Context {
	s := scopeFrom(ctx)
	s.jobID = jobID
	return context.WithValue(ctx, scopeKey{}, s)
}

// ContextWithKind adds a conversion kind to the context.
func ContextWithKind(ctx context.Context, kind string) context.Context {
	s := scopeFrom(ctx)
	s.kind = kind
	return context.WithValue(ctx, scopeKey{}, s)
}

// RequestIDFromContext returns the request id set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	return scopeFrom(ctx).requestID
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
