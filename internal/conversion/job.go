// Package conversion runs one uploaded file through a converter: it
// validates the upload, gives the job an isolated workspace, invokes the
// converter under a time bound, packages the result for download and
// removes every intermediate file on the way out.
package conversion

import (
	stderrors "errors"
	"io"
	"os"
	"time"
)

// Kind names one conversion, e.g. "word-to-pdf". It is also the URL segment.
type Kind string

// Known conversion kinds.
const (
	WordToPDF       Kind = "word-to-pdf"
	ExcelToPDF      Kind = "excel-to-pdf"
	PowerPointToPDF Kind = "powerpoint-to-pdf"
	JPGToPDF        Kind = "jpg-to-pdf"
	HTMLToPDF       Kind = "html-to-pdf"
	PDFToWord       Kind = "pdf-to-word"
	PDFToExcel      Kind = "pdf-to-excel"
	PDFToPowerPoint Kind = "pdf-to-powerpoint"
	PDFToJPG        Kind = "pdf-to-jpg"
	PDFToPDFA       Kind = "pdf-to-pdfa"
)

// Upload is the client's file as received from the transport.
type Upload struct {
	// Present is false when the request had no file part at all.
	Present  bool
	Filename string
	Body     io.Reader
}

// Job is the per-request record of a conversion. It owns InputPath and
// WorkDir until Cleanup runs.
type Job struct {
	ID         string
	Kind       Kind
	SourceName string
	BaseName   string
	InputExt   string
	InputPath  string
	InputSize  int64
	WorkDir    string
	Timeout    time.Duration
	CreatedAt  time.Time
}

// Cleanup removes the job's input file and work directory. Missing paths
// are not an error.
func (j *Job) Cleanup() error {
	var errs []error
	if j.InputPath != "" {
		if err := os.Remove(j.InputPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if j.WorkDir != "" {
		if err := os.RemoveAll(j.WorkDir); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Result lists the artifacts a converter produced, in page order.
type Result struct {
	Paths []string
}

// IsArchive reports whether the result has to be bundled.
func (r *Result) IsArchive() bool {
	return len(r.Paths) > 1
}

// Artifact is the packaged, downloadable output of a job.
type Artifact struct {
	JobID        string
	Path         string
	DownloadName string
	ContentType  string
	Size         int64
	Pages        int
}

// Open opens the packaged file for streaming.
func (a *Artifact) Open() (*os.File, error) {
	return os.Open(a.Path)
}

// Close removes the packaged file once it has been delivered.
func (a *Artifact) Close() error {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
