package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"fileconv/internal/adapters/stats"
	"fileconv/internal/config"
	"fileconv/internal/conversion"
	"fileconv/internal/converters"
	"fileconv/internal/httpapi"
	"fileconv/internal/httpapi/handlers"
	"fileconv/internal/pkg/logger"
	"fileconv/internal/pkg/shutdown"
	"fileconv/internal/repositories"
	"fileconv/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "fileconv-api",
		AddSource:   cfg.LogSource,
	})

	log.Info("starting fileconv API",
		"version", handlers.Version,
		"ledger", cfg.LedgerDriver,
		"storage", cfg.StorageProvider,
		"max_concurrent", cfg.MaxConcurrent,
	)

	ctx := context.Background()

	// Initialize shutdown manager
	shutdownMgr := shutdown.NewManager(log, cfg.ShutdownTimeout)

	// Workspace
	ws := conversion.NewWorkspace(cfg.WorkspaceRoot, nil, log)
	if err := ws.Init(); err != nil {
		log.LogFatal("failed to initialize workspace", err, "root", cfg.WorkspaceRoot)
	}
	if _, err := ws.Sweep(cfg.WorkspaceSweepAge); err != nil {
		log.Warn("startup sweep incomplete", "error", err.Error())
	}

	reg, err := converters.NewRegistry(conversion.ExecRunner{Log: log})
	if err != nil {
		log.LogFatal("failed to build converter table", err)
	}
	pipeline := conversion.NewPipeline(reg, ws, log, conversion.Options{MaxConcurrent: cfg.MaxConcurrent})

	// Conversion ledger
	log.Info("opening conversion ledger", "driver", cfg.LedgerDriver)
	ledger, err := repositories.OpenLedger(ctx, cfg)
	if err != nil {
		log.LogFatal("failed to open conversion ledger", err)
	}
	shutdownMgr.Register("ledger", func(ctx context.Context) error {
		return ledger.Close()
	})

	// Stats counters
	counters, err := stats.Open(ctx, cfg)
	if err != nil {
		log.LogFatal("failed to open stats backend", err)
	}
	shutdownMgr.Register("stats", func(ctx context.Context) error {
		return counters.Close()
	})
	log.Info("stats backend ready", "backend", counters.Backend())

	// Retention storage, nil when disabled
	sp, err := storage.NewProvider(ctx, cfg)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	if sp != nil {
		log.Info("storage provider initialized", "provider", sp.Provider())
	}

	stopSweep := startSweeper(ws, cfg.WorkspaceSweepAge, log)
	shutdownMgr.RegisterSimple("workspace-sweep", stopSweep)

	router := httpapi.NewRouter(httpapi.Deps{
		Config:   cfg,
		Pipeline: pipeline,
		Ledger:   ledger,
		Stats:    counters,
		SP:       sp,
		Log:      log,
	})

	// Conversions may legitimately stream for the whole request timeout.
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Registered last so it drains first.
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", cfg.HTTPPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	if err := shutdownMgr.Wait(); err != nil {
		log.Error("shutdown finished with errors", "error", err.Error())
		os.Exit(1)
	}
}

// startSweeper removes stale workspace entries every half sweep age.
func startSweeper(ws *conversion.Workspace, age time.Duration, log *logger.Logger) func() {
	if age <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(age / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if _, err := ws.Sweep(age); err != nil {
					log.Warn("workspace sweep failed", "error", err.Error())
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
