package handlers

import (
	stderrors "errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fileconv/internal/httpkit"
	"fileconv/internal/models"
	"fileconv/internal/pkg/errors"
	"fileconv/internal/ports"
)

// ListConversions handles GET /api/conversions?kind=&status=&limit=.
func (h *Handler) ListConversions(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	f := models.ConversionFilter{
		Kind:   strings.TrimSpace(q.Get("kind")),
		Status: models.ConversionStatus(strings.TrimSpace(q.Get("status"))),
	}

	switch f.Status {
	case "", models.StatusSucceeded, models.StatusFailed:
	default:
		return errors.ValidationField("status", "status must be succeeded or failed")
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return errors.ValidationField("limit", "limit must be a positive integer")
		}
		f.Limit = n
	}

	rows, err := h.ledger.List(r.Context(), f)
	if err != nil {
		return errors.Wrap(err, "ledger.list", "failed to list conversions")
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"conversions": rows,
		"count":       len(rows),
	})
	return nil
}

// GetConversion handles GET /api/conversions/{jobId}.
func (h *Handler) GetConversion(w http.ResponseWriter, r *http.Request) error {
	c, err := h.lookup(r)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"conversion": c})
	return nil
}

// DownloadConversion handles GET /api/conversions/{jobId}/download by
// streaming the retained artifact.
func (h *Handler) DownloadConversion(w http.ResponseWriter, r *http.Request) error {
	c, err := h.lookupRetained(r)
	if err != nil {
		return err
	}

	rc, info, err := h.sp.GetObject(r.Context(), c.ObjectKey)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return errors.NotFound("retained output", c.JobID)
		}
		return errors.Unavailable("retention storage", err).WithField("provider", h.sp.Provider())
	}
	defer rc.Close()

	att := httpkit.Attachment{
		Name:        c.DownloadName,
		ContentType: info.ContentType,
		Size:        info.Size,
		JobID:       c.JobID,
	}
	if c.ContentType != "" {
		att.ContentType = c.ContentType
	}
	if att.Size <= 0 {
		att.Size = c.OutputBytes
	}
	httpkit.WriteAttachment(w, att)

	if _, err := io.Copy(w, rc); err != nil {
		h.log.FromContext(r.Context()).Warn("download interrupted", "job_id", c.JobID, "error", err.Error())
	}
	return nil
}

// DeleteDownload handles DELETE /api/conversions/{jobId}/download. The
// ledger row stays; only the retained file goes.
func (h *Handler) DeleteDownload(w http.ResponseWriter, r *http.Request) error {
	c, err := h.lookupRetained(r)
	if err != nil {
		return err
	}

	if err := h.sp.DeleteObject(r.Context(), c.ObjectKey); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return errors.Unavailable("retention storage", err).
			WithField("provider", h.sp.Provider()).
			WithField("object_key", c.ObjectKey)
	}
	if err := h.ledger.ClearObject(r.Context(), c.JobID); err != nil {
		return errors.Wrap(err, "ledger.clear", "failed to update conversion")
	}

	h.log.FromContext(r.Context()).Info("retained output deleted", "job_id", c.JobID, "object_key", c.ObjectKey)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) lookup(r *http.Request) (*models.Conversion, error) {
	jobID := chi.URLParam(r, "jobId")
	c, err := h.ledger.Get(r.Context(), jobID)
	if err != nil {
		if stderrors.Is(err, ports.ErrConversionNotFound) {
			return nil, errors.NotFound("conversion", jobID)
		}
		return nil, errors.Wrap(err, "ledger.get", "failed to load conversion")
	}
	return c, nil
}

func (h *Handler) lookupRetained(r *http.Request) (*models.Conversion, error) {
	c, err := h.lookup(r)
	if err != nil {
		return nil, err
	}
	if h.sp == nil || !c.Retained() {
		return nil, errors.NotFound("retained output", c.JobID)
	}
	return c, nil
}
