package handlers

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"time"

	"fileconv/internal/httpkit"
)

// Health performs a health check of the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	// Basic health response
	health := map[string]any{
		"status":  "ok",
		"message": "File Converter API is running",
		"service": "fileconv",
		"version": Version,
	}

	// Check if deep health check is requested
	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		// If any check failed, change status
		for _, check := range checks {
			if check["status"] != "ok" {
				health["status"] = "degraded"
				log.Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, 200, health)
}

// deepHealthCheck performs detailed health checks on dependencies.
func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	checks := make(map[string]map[string]any)

	checks["workspace"] = h.checkWorkspace()
	checks["converters"] = h.checkBinaries()
	checks["ledger"] = h.checkLedger(ctx)
	checks["stats"] = h.checkStats(ctx)
	checks["storage"] = h.checkStorage()

	return checks
}

func (h *Handler) checkWorkspace() map[string]any {
	ws := h.pipeline.Workspace()
	result := map[string]any{
		"status": "ok",
		"root":   ws.Root(),
	}
	for _, dir := range []string{ws.UploadsDir(), ws.WorkDir(), ws.OutputsDir()} {
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			result["status"] = "error"
			result["error"] = "missing directory: " + dir
			break
		}
	}
	return result
}

// checkBinaries reports which external converters are on PATH.
func (h *Handler) checkBinaries() map[string]any {
	result := map[string]any{
		"status": "ok",
	}
	found := map[string]string{}
	for _, prog := range h.pipeline.Registry().Programs() {
		p, err := exec.LookPath(prog)
		if err != nil {
			result["status"] = "error"
			found[prog] = "missing"
			continue
		}
		found[prog] = p
	}
	result["binaries"] = found
	return result
}

func (h *Handler) checkLedger(ctx context.Context) map[string]any {
	start := time.Now()
	result := map[string]any{
		"status": "ok",
		"driver": h.ledger.Driver(),
	}

	// Create a context with timeout
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.ledger.Ping(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	} else if s, ok := h.ledger.(interface{ Stat() map[string]any }); ok {
		for k, v := range s.Stat() {
			result[k] = v
		}
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkStats(ctx context.Context) map[string]any {
	start := time.Now()
	result := map[string]any{
		"status":  "ok",
		"backend": h.stats.Backend(),
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.stats.Ping(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *Handler) checkStorage() map[string]any {
	provider := "none"
	if h.sp != nil {
		provider = h.sp.Provider()
	}
	return map[string]any{
		"status":   "ok",
		"provider": provider,
	}
}
