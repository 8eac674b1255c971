package conversion

import (
	"archive/zip"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"fileconv/internal/pkg/errors"
	"fileconv/internal/pkg/logger"
)

// Packager turns converter results into a single downloadable artifact.
type Packager struct {
	ws  *Workspace
	log *logger.Logger
}

// NewPackager returns a packager writing into ws's outputs directory.
func NewPackager(ws *Workspace, log *logger.Logger) *Packager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Packager{ws: ws, log: log.WithComponent("packager")}
}

// Package moves a single artifact into place, or zips several. The download
// name never carries the job id.
func (p *Packager) Package(job *Job, spec *Spec, res *Result) (*Artifact, error) {
	if res == nil || len(res.Paths) == 0 {
		return nil, errors.OutputMissing(job.WorkDir)
	}
	if res.IsArchive() {
		return p.archive(job, res)
	}
	return p.single(job, spec, res.Paths[0])
}

func (p *Packager) single(job *Job, spec *Spec, src string) (*Artifact, error) {
	ext := spec.OutputExt
	download := job.BaseName + spec.OutputSuffix + "." + ext
	dst := p.ws.OutputPath(job.ID, download)

	if err := moveFile(src, dst); err != nil {
		return nil, errors.Storage(err, "packager.single", "failed to store converted file")
	}

	st, err := os.Stat(dst)
	if err != nil {
		return nil, errors.Storage(err, "packager.single", "failed to store converted file")
	}

	return &Artifact{
		JobID:        job.ID,
		Path:         dst,
		DownloadName: download,
		ContentType:  contentType(ext),
		Size:         st.Size(),
		Pages:        1,
	}, nil
}

func (p *Packager) archive(job *Job, res *Result) (*Artifact, error) {
	download := job.BaseName + ".zip"
	dst := p.ws.OutputPath(job.ID, download)

	if err := p.writeZip(dst, job.BaseName, res.Paths); err != nil {
		_ = os.Remove(dst)
		return nil, errors.Storage(err, "packager.archive", "failed to build archive")
	}

	st, err := os.Stat(dst)
	if err != nil {
		return nil, errors.Storage(err, "packager.archive", "failed to build archive")
	}

	return &Artifact{
		JobID:        job.ID,
		Path:         dst,
		DownloadName: download,
		ContentType:  "application/zip",
		Size:         st.Size(),
		Pages:        len(res.Paths),
	}, nil
}

// writeZip stores pages as <base>_page_<n>.<ext>, 1-based, and deletes each
// page once it is in the archive.
func (p *Packager) writeZip(dst, base string, pages []string) error {
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)

	for i, page := range pages {
		ext := strings.ToLower(filepath.Ext(page))
		name := fmt.Sprintf("%s_page_%d%s", base, i+1, ext)
		if err := addToZip(zw, page, name); err != nil {
			_ = zw.Close()
			_ = f.Close()
			return err
		}
		if err := os.Remove(page); err != nil {
			p.log.Warn("failed to remove archived page", "path", page, "error", err.Error())
		}
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func addToZip(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(st)
	if err != nil {
		return err
	}
	hdr.Name = name
	// JPEG pages do not shrink under deflate.
	hdr.Method = zip.Store

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func contentType(ext string) string {
	switch ext {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case "zip":
		return "application/zip"
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
