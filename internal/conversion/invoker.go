package conversion

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"fileconv/internal/pkg/errors"
)

// Command runs an external program that writes exactly one artifact.
type Command struct {
	Binary string
	Runner Runner
	// Args builds the argument list for a job.
	Args func(job *Job) []string
	// Output is the path the program is expected to write.
	Output func(job *Job) string
}

// Program implements Invoker.
func (c *Command) Program() string { return c.Binary }

// Invoke implements Invoker.
func (c *Command) Invoke(ctx context.Context, job *Job) (*Result, error) {
	res, err := c.Runner.Run(ctx, c.Binary, c.Args(job)...)
	if err := runError(ctx, job, c.Binary, res, err); err != nil {
		return nil, err
	}

	out := c.Output(job)
	if !isFile(out) {
		return nil, errors.OutputMissing(out).WithField("program", c.Binary)
	}
	return &Result{Paths: []string{out}}, nil
}

// Raster renders every page of a PDF to JPEG with pdftoppm.
type Raster struct {
	Binary  string
	Runner  Runner
	DPI     int
	Quality int
}

// Program implements Invoker.
func (r *Raster) Program() string { return r.Binary }

// Invoke implements Invoker.
func (r *Raster) Invoke(ctx context.Context, job *Job) (*Result, error) {
	prefix := filepath.Join(job.WorkDir, "page")
	args := []string{
		"-r", strconv.Itoa(r.DPI),
		"-jpeg",
		"-jpegopt", "quality=" + strconv.Itoa(r.Quality),
		job.InputPath,
		prefix,
	}

	res, err := r.Runner.Run(ctx, r.Binary, args...)
	if err := runError(ctx, job, r.Binary, res, err); err != nil {
		return nil, err
	}

	pages, err := collectPages(prefix, "jpg")
	if err != nil {
		return nil, errors.Storage(err, "raster.collect", "failed to read rendered pages")
	}
	if len(pages) == 0 {
		return nil, errors.EmptyDocument().WithField("program", r.Binary)
	}
	return &Result{Paths: pages}, nil
}

// collectPages finds prefix-N.ext files and orders them by N. pdftoppm pads
// N with zeros depending on the page count, so lexical order is not enough.
func collectPages(prefix, ext string) ([]string, error) {
	matches, err := filepath.Glob(prefix + "-*." + ext)
	if err != nil {
		return nil, err
	}

	type page struct {
		n    int
		path string
	}
	pages := make([]page, 0, len(matches))
	for _, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(m, prefix+"-"), "."+ext)
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: m})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}

// Library runs an in-process converter.
type Library struct {
	Name string
	Fn   func(ctx context.Context, job *Job) ([]string, error)
}

// Program implements Invoker.
func (l *Library) Program() string { return "" }

// Invoke implements Invoker.
func (l *Library) Invoke(ctx context.Context, job *Job) (res *Result, err error) {
	op := "convert." + l.Name
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = errors.New(errors.CodeConversionFailed, fmt.Sprintf("Conversion failed: %v", rec)).
				WithField("converter", l.Name)
		}
	}()

	paths, err := l.Fn(ctx, job)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.ConversionTimeout(l.Name, job.Timeout)
		}
		var typed *errors.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.CodeConversionFailed, op, "Conversion failed: "+err.Error()).
			WithField("converter", l.Name)
	}

	for _, p := range paths {
		if !isFile(p) {
			return nil, errors.OutputMissing(p).WithField("converter", l.Name)
		}
	}
	if len(paths) == 0 {
		return nil, errors.OutputMissing(job.WorkDir).WithField("converter", l.Name)
	}
	return &Result{Paths: paths}, nil
}

// runError classifies a failed external run. Deadline expiry wins over the
// exit status because the kill itself produces a non-zero exit.
func runError(ctx context.Context, job *Job, program string, res RunResult, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.ConversionTimeout(program, job.Timeout)
	}
	if ctx.Err() != nil {
		return errors.WrapWithCode(ctx.Err(), errors.CodeConversionFailed, "convert."+program, "Conversion canceled").
			WithField("program", program)
	}

	msg := strings.TrimSpace(string(res.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(res.Stdout))
	}
	if msg == "" {
		msg = err.Error()
	}
	e := errors.ConversionFailed(program, res.ExitCode, truncate(msg, 4<<10))
	e.Err = err
	return e
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}
