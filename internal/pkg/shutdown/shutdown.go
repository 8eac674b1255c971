// Package shutdown runs registered cleanup handlers when the process is asked to stop.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fileconv/internal/pkg/logger"
)

// ErrTimeout is reported when the handlers did not finish within the
// manager's timeout.
var ErrTimeout = errors.New("shutdown timeout exceeded")

// Manager runs cleanup handlers in reverse registration order. Register the
// stores first and the HTTP server last: the server then drains in-flight
// conversions before the ledger and counters they write to are closed.
type Manager struct {
	log      *logger.Logger
	timeout  time.Duration
	signals  []os.Signal
	handlers []Handler
	mu       sync.Mutex
	done     chan struct{}
	once     sync.Once
	err      error
}

// Handler is a named cleanup step.
type Handler struct {
	Name    string
	Cleanup func(ctx context.Context) error
}

// NewManager creates a manager that gives all handlers timeout in total.
func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		log:     log.WithComponent("shutdown"),
		timeout: timeout,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP},
		done:    make(chan struct{}),
	}
}

// Register adds a cleanup handler.
func (m *Manager) Register(name string, cleanup func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, Handler{Name: name, Cleanup: cleanup})
	m.log.Debug("registered shutdown handler", "name", name)
}

// RegisterSimple adds a cleanup handler that cannot fail.
func (m *Manager) RegisterSimple(name string, cleanup func()) {
	m.Register(name, func(ctx context.Context) error {
		cleanup()
		return nil
	})
}

// Wait blocks until a stop signal arrives, runs the handlers and returns
// what Shutdown returns.
func (m *Manager) Wait() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, m.signals...)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.log.Info("shutdown signal received", "signal", sig.String())
	case <-m.done:
		return m.err
	}
	return m.Shutdown()
}

// Shutdown runs all cleanup handlers once. It returns the handler failures
// joined together, plus ErrTimeout when the deadline cut the run short.
// Later calls return the first result.
func (m *Manager) Shutdown() error {
	m.once.Do(func() {
		m.err = m.run()
		close(m.done)
	})
	<-m.done
	return m.err
}

func (m *Manager) run() error {
	m.mu.Lock()
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.log.Info("starting graceful shutdown", "handlers", len(handlers), "timeout", m.timeout.String())

	var (
		errMu sync.Mutex
		errs  []error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := len(handlers) - 1; i >= 0; i-- {
			h := handlers[i]
			if ctx.Err() != nil {
				m.log.Warn("skipping shutdown handler", "name", h.Name)
				continue
			}
			start := time.Now()
			if err := h.Cleanup(ctx); err != nil {
				m.log.Error("shutdown handler failed",
					"name", h.Name,
					"error", err.Error(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
				errMu.Unlock()
				continue
			}
			m.log.Debug("shutdown handler completed",
				"name", h.Name,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}()

	select {
	case <-finished:
		m.log.Info("graceful shutdown completed")
	case <-ctx.Done():
		m.log.Warn("shutdown timeout exceeded, forcing exit")
		errMu.Lock()
		errs = append(errs, ErrTimeout)
		errMu.Unlock()
	}

	errMu.Lock()
	defer errMu.Unlock()
	return errors.Join(errs...)
}

// Done is closed once every handler has run or the timeout hit.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
