package shutdown

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fileconv/internal/pkg/logger"
)

func newTestLogger() (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: &buf,
	}), &buf
}

func TestNewManagerDefaults(t *testing.T) {
	mgr := NewManager(nil, 0)
	if mgr.timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %s", mgr.timeout)
	}
	if len(mgr.signals) != 3 {
		t.Errorf("expected 3 signals, got %d", len(mgr.signals))
	}
}

func TestShutdownRunsInReverseOrder(t *testing.T) {
	log, _ := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}
	mgr.RegisterSimple("ledger", record("ledger"))
	mgr.RegisterSimple("stats", record("stats"))
	mgr.RegisterSimple("workspace-sweep", record("workspace-sweep"))
	mgr.RegisterSimple("http-server", record("http-server"))

	if err := mgr.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "http-server,workspace-sweep,stats,ledger"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected order %s, got %s", want, got)
	}

	select {
	case <-mgr.Done():
	default:
		t.Error("Done should be closed after Shutdown")
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	log, _ := newTestLogger()
	mgr := NewManager(log, time.Second)

	var calls int32
	mgr.Register("ledger", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("close: connection reset")
	})

	first := mgr.Shutdown()
	second := mgr.Shutdown()

	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if first == nil || first != second {
		t.Errorf("expected the same error on both calls, got %v and %v", first, second)
	}
}

func TestShutdownJoinsHandlerErrors(t *testing.T) {
	log, buf := newTestLogger()
	mgr := NewManager(log, time.Second)

	errLedger := errors.New("pgx: conn busy")
	var statsClosed bool
	mgr.Register("ledger", func(ctx context.Context) error { return errLedger })
	mgr.RegisterSimple("stats", func() { statsClosed = true })
	mgr.Register("http-server", func(ctx context.Context) error { return context.DeadlineExceeded })

	err := mgr.Shutdown()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, errLedger) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected both failures in %v", err)
	}
	if !strings.Contains(err.Error(), "ledger: pgx: conn busy") {
		t.Errorf("expected handler name in error, got %q", err.Error())
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("no timeout expected")
	}
	if !statsClosed {
		t.Error("a failing handler must not stop the others")
	}
	if !strings.Contains(buf.String(), `"msg":"shutdown handler failed"`) {
		t.Errorf("expected failure to be logged: %s", buf.String())
	}
}

func TestShutdownTimeout(t *testing.T) {
	log, _ := newTestLogger()
	mgr := NewManager(log, 50*time.Millisecond)

	var skipped atomic.Bool
	skipped.Store(true)
	mgr.RegisterSimple("ledger", func() { skipped.Store(false) })
	mgr.Register("http-server", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return ctx.Err()
	})

	start := time.Now()
	err := mgr.Shutdown()
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("shutdown took %s", elapsed)
	}

	// Give the handler goroutine time to reach the next handler.
	time.Sleep(50 * time.Millisecond)
	if !skipped.Load() {
		t.Error("handlers after the deadline should be skipped")
	}
}

func TestWaitReturnsAfterShutdown(t *testing.T) {
	log, _ := newTestLogger()
	mgr := NewManager(log, time.Second)

	errStats := errors.New("redis: client is closed")
	mgr.Register("stats", func(ctx context.Context) error { return errStats })

	result := make(chan error, 1)
	go func() { result <- mgr.Wait() }()

	go mgr.Shutdown()

	select {
	case err := <-result:
		if !errors.Is(err, errStats) {
			t.Errorf("expected stats error from Wait, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}
