package handlers

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fileconv/internal/conversion"
	"fileconv/internal/httpkit"
	"fileconv/internal/models"
	"fileconv/internal/pkg/errors"
	"fileconv/internal/ports"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// Convert handles POST /api/convert/{kind}: one multipart "file" in, the
// converted file (or a zip of pages) out as an attachment.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) error {
	kind := conversion.Kind(chi.URLParam(r, "kind"))
	if _, ok := h.pipeline.Registry().Lookup(kind); !ok {
		return errors.NotFound("converter", string(kind))
	}

	up, release, err := h.readUpload(w, r)
	if err != nil {
		return err
	}
	defer release()

	ctx := r.Context()
	art, report, err := h.pipeline.Run(ctx, kind, up)
	if err != nil {
		if report != nil {
			h.record(ctx, report, nil, "", err)
		}
		return err
	}
	defer func() {
		if err := art.Close(); err != nil {
			h.log.FromContext(ctx).Warn("failed to remove delivered artifact", "path", art.Path, "error", err.Error())
		}
	}()

	objectKey := h.retain(ctx, art)
	h.record(ctx, report, art, objectKey, nil)

	return h.sendArtifact(w, r, art)
}

// readUpload pulls the "file" part out of a size-capped multipart body. The
// release func drops multipart temp files.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (conversion.Upload, func(), error) {
	noop := func() {}

	if h.maxUpload > 0 {
		if r.ContentLength > h.maxUpload {
			return conversion.Upload{}, noop, fileTooLarge(h.maxUpload)
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooBig), strings.Contains(err.Error(), "request body too large"):
			return conversion.Upload{}, noop, fileTooLarge(h.maxUpload)
		case stderrors.Is(err, http.ErrNotMultipart), stderrors.Is(err, http.ErrMissingBoundary):
			return conversion.Upload{Present: false}, noop, nil
		default:
			return conversion.Upload{}, noop, errors.WrapWithCode(err, errors.CodeValidation, "http.multipart", "Invalid multipart form")
		}
	}

	release := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		// A part named "file" with an empty filename arrives as a plain value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			return conversion.Upload{Present: true}, release, nil
		}
		return conversion.Upload{Present: false}, release, nil
	}

	return conversion.Upload{
			Present:  true,
			Filename: header.Filename,
			Body:     file,
		}, func() {
			_ = file.Close()
			release()
		}, nil
}

func fileTooLarge(limit int64) *errors.Error {
	return errors.ValidationField("file", "File too large").
		WithField("max_bytes", limit)
}

// retainTimeout bounds one upload to the storage provider.
const retainTimeout = 2 * time.Minute

// retain publishes the artifact to the storage provider. Retention is best
// effort: the client still gets the file when it fails.
func (h *Handler) retain(ctx context.Context, art *conversion.Artifact) string {
	if h.sp == nil {
		return ""
	}
	log := h.log.FromContext(ctx)
	// A conversion that ends near the request deadline still gets retained.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), retainTimeout)
	defer cancel()

	f, err := art.Open()
	if err != nil {
		log.Warn("retention skipped", "error", err.Error())
		return ""
	}
	defer f.Close()

	out, err := h.sp.PutObject(ctx, ports.ObjectInfo{
		Key:         path.Join("conversions", art.JobID, art.DownloadName),
		ContentType: art.ContentType,
		Size:        art.Size,
	}, f)
	if err != nil {
		log.Warn("retention failed", "provider", h.sp.Provider(), "error", err.Error())
		return ""
	}

	log.Info("output retained", "provider", h.sp.Provider(), "object_key", out.Key)
	return out.Key
}

// record writes the ledger row and bumps the counters. Failures here are
// logged and never change the response.
func (h *Handler) record(ctx context.Context, report *conversion.Report, art *conversion.Artifact, objectKey string, convErr error) {
	log := h.log.FromContext(ctx)
	// The request context may already be past its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	row := &models.Conversion{
		JobID:      report.JobID,
		Kind:       string(report.Kind),
		SourceName: report.SourceName,
		Status:     models.StatusSucceeded,
		InputBytes: report.InputSize,
		DurationMs: time.Since(report.Started).Milliseconds(),
		CreatedAt:  report.Started.UTC(),
	}
	if art != nil {
		row.DownloadName = art.DownloadName
		row.OutputBytes = art.Size
		row.Pages = art.Pages
		row.ContentType = art.ContentType
	}
	if objectKey != "" {
		row.ObjectKey = objectKey
		row.Provider = h.sp.Provider()
	}
	if convErr != nil {
		row.Status = models.StatusFailed
		row.ErrorCode = string(errors.GetCode(convErr))
		row.ErrorMessage = errors.PublicMessage(convErr)
	}

	if h.ledger != nil {
		if err := h.ledger.Record(ctx, row); err != nil {
			log.Error("ledger write failed", "driver", h.ledger.Driver(), "error", err.Error())
		}
	}
	if h.stats != nil {
		if err := h.stats.Incr(ctx, row.Kind, row.Status); err != nil {
			log.Warn("stats update failed", "backend", h.stats.Backend(), "error", err.Error())
		}
	}
}

func (h *Handler) sendArtifact(w http.ResponseWriter, r *http.Request, art *conversion.Artifact) error {
	f, err := art.Open()
	if err != nil {
		return errors.Storage(err, "http.send", "failed to read converted file")
	}
	defer f.Close()

	httpkit.WriteAttachment(w, httpkit.Attachment{
		Name:        art.DownloadName,
		ContentType: art.ContentType,
		Size:        art.Size,
		JobID:       art.JobID,
	})

	if _, err := io.Copy(w, f); err != nil {
		// Headers are gone; all that is left is to log.
		h.log.FromContext(r.Context()).Warn("download interrupted", "error", err.Error())
	}
	return nil
}
