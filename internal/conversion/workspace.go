package conversion

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"fileconv/internal/pkg/errors"
	"fileconv/internal/pkg/logger"
)

const allocateAttempts = 3

// Workspace lays jobs out under one root:
//
//	<root>/uploads/<job_id>_<name>.<ext>   client input
//	<root>/work/<job_id>/                  converter scratch
//	<root>/outputs/<job_id>_<base>.<ext>   packaged artifact
type Workspace struct {
	root string
	ids  IDGenerator
	now  func() time.Time
	log  *logger.Logger
}

// NewWorkspace returns a workspace rooted at root. Call Init before use.
func NewWorkspace(root string, ids IDGenerator, log *logger.Logger) *Workspace {
	if ids == nil {
		ids = TimestampIDs{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Workspace{root: root, ids: ids, now: time.Now, log: log.WithComponent("workspace")}
}

func (w *Workspace) Root() string       { return w.root }
func (w *Workspace) UploadsDir() string { return filepath.Join(w.root, "uploads") }
func (w *Workspace) WorkDir() string    { return filepath.Join(w.root, "work") }
func (w *Workspace) OutputsDir() string { return filepath.Join(w.root, "outputs") }

// Init creates the three workspace directories.
func (w *Workspace) Init() error {
	for _, dir := range []string{w.UploadsDir(), w.WorkDir(), w.OutputsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Storage(err, "workspace.init", "failed to create workspace directory").
				WithField("dir", dir)
		}
	}
	return nil
}

// Allocate stores the upload under a fresh job id and creates the job's work
// directory. The input file is created exclusively; an id that collides with
// an existing file is discarded and a new one drawn.
func (w *Workspace) Allocate(ctx context.Context, spec *Spec, up Upload) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInternal, "workspace.allocate", "request canceled")
	}

	stem, ext, _ := SplitExt(up.Filename)
	base := SanitizeStem(stem)
	safeName := base + "." + ext

	for attempt := 0; attempt < allocateAttempts; attempt++ {
		id := w.ids.NewID()
		inputPath := filepath.Join(w.UploadsDir(), id+"_"+safeName)

		f, err := os.OpenFile(inputPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if os.IsExist(err) {
			w.log.Warn("job id collision, retrying", "job_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, errors.Storage(err, "workspace.allocate", "failed to save upload")
		}

		n, copyErr := io.Copy(f, up.Body)
		closeErr := f.Close()
		if copyErr != nil || closeErr != nil {
			_ = os.Remove(inputPath)
			if copyErr == nil {
				copyErr = closeErr
			}
			return nil, errors.Storage(copyErr, "workspace.allocate", "failed to save upload")
		}

		workDir := filepath.Join(w.WorkDir(), id)
		if err := os.Mkdir(workDir, 0o700); err != nil {
			_ = os.Remove(inputPath)
			if os.IsExist(err) {
				w.log.Warn("work dir collision, retrying", "job_id", id, "attempt", attempt+1)
				continue
			}
			return nil, errors.Storage(err, "workspace.allocate", "failed to create work directory")
		}

		return &Job{
			ID:         id,
			Kind:       spec.Kind,
			SourceName: up.Filename,
			BaseName:   base,
			InputExt:   ext,
			InputPath:  inputPath,
			InputSize:  n,
			WorkDir:    workDir,
			Timeout:    spec.Timeout,
			CreatedAt:  w.now().UTC(),
		}, nil
	}

	return nil, errors.Storage(nil, "workspace.allocate", "could not allocate a unique job id")
}

// OutputPath is where the packager places a job's artifact.
func (w *Workspace) OutputPath(jobID, name string) string {
	return filepath.Join(w.OutputsDir(), jobID+"_"+name)
}

// Sweep removes entries older than age from all workspace directories.
// Leftovers only exist when a previous process died mid-request.
func (w *Workspace) Sweep(age time.Duration) (int, error) {
	cutoff := w.now().Add(-age)
	removed := 0
	var firstErr error

	for _, dir := range []string{w.UploadsDir(), w.WorkDir(), w.OutputsDir()} {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			p := filepath.Join(dir, e.Name())
			if err := os.RemoveAll(p); err != nil {
				w.log.Warn("sweep failed to remove entry", "path", p, "error", err.Error())
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		w.log.Info("workspace swept", "removed", removed, "older_than", age.String())
	}
	if firstErr != nil {
		return removed, errors.Storage(firstErr, "workspace.sweep", "failed to sweep workspace")
	}
	return removed, nil
}
