package handlers

import (
	"net/http"

	"fileconv/internal/conversion"
	"fileconv/internal/httpkit"
)

type converterInfo struct {
	Kind        conversion.Kind `json:"kind"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Accept      []string        `json:"accept"`
	Output      string          `json:"output"`
	Endpoint    string          `json:"endpoint"`
	TimeoutSec  int             `json:"timeout_seconds"`
}

// ListConverters handles GET /api/converters: the catalogue a frontend
// renders one upload page per entry from.
func (h *Handler) ListConverters(w http.ResponseWriter, r *http.Request) {
	specs := h.pipeline.Registry().All()
	out := make([]converterInfo, 0, len(specs))
	for _, s := range specs {
		accept := make([]string, len(s.Accept))
		for i, a := range s.Accept {
			accept[i] = "." + a
		}
		out = append(out, converterInfo{
			Kind:        s.Kind,
			Title:       s.Title,
			Description: s.Description,
			Accept:      accept,
			Output:      "." + s.OutputExt,
			Endpoint:    "/api/convert/" + string(s.Kind),
			TimeoutSec:  int(s.Timeout.Seconds()),
		})
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"converters": out})
}
