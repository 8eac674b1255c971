package handlers

import (
	"net/http"

	"fileconv/internal/httpkit"
	"fileconv/internal/models"
	"fileconv/internal/pkg/errors"
)

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) error {
	snap, err := h.stats.Snapshot(r.Context())
	if err != nil {
		return errors.Wrap(err, "stats.snapshot", "failed to read stats")
	}

	var total models.KindStats
	for _, s := range snap {
		total.Succeeded += s.Succeeded
		total.Failed += s.Failed
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"backend": h.stats.Backend(),
		"kinds":   snap,
		"total":   total,
	})
	return nil
}
