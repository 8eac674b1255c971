// Package httpkit holds the response helpers shared by the API handlers.
package httpkit

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Attachment describes a file download.
type Attachment struct {
	Name        string
	ContentType string
	// Size is sent as Content-Length when positive.
	Size  int64
	JobID string
}

// WriteAttachment writes the download headers and a 200 status. The caller
// copies the body afterwards.
func WriteAttachment(w http.ResponseWriter, a Attachment) {
	h := w.Header()
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	// FormatMediaType quotes names that need it and switches to RFC 2231
	// encoding for non-ASCII ones.
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": strings.ReplaceAll(a.Name, `"`, ""),
	}))
	if a.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
	if a.JobID != "" {
		h.Set("X-Job-ID", a.JobID)
	}
	w.WriteHeader(http.StatusOK)
}
