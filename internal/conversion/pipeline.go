package conversion

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"fileconv/internal/pkg/errors"
	"fileconv/internal/pkg/logger"
)

// Options tunes a Pipeline.
type Options struct {
	// MaxConcurrent caps conversions running at once. Zero means 1.
	MaxConcurrent int
	// SkipVerify disables the output format check.
	SkipVerify bool
}

// Pipeline is the generic job lifecycle shared by every conversion kind.
type Pipeline struct {
	registry *Registry
	ws       *Workspace
	packager *Packager
	slots    *semaphore.Weighted
	verify   bool
	log      *logger.Logger
}

// Report describes a job that got past validation, successful or not.
type Report struct {
	JobID      string
	Kind       Kind
	SourceName string
	InputSize  int64
	Started    time.Time
	Duration   time.Duration
}

// NewPipeline wires a pipeline over reg and ws.
func NewPipeline(reg *Registry, ws *Workspace, log *logger.Logger, opts Options) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Pipeline{
		registry: reg,
		ws:       ws,
		packager: NewPackager(ws, log),
		slots:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		verify:   !opts.SkipVerify,
		log:      log.WithComponent("pipeline"),
	}
}

// Registry returns the conversion table.
func (p *Pipeline) Registry() *Registry { return p.registry }

// Workspace returns the job workspace.
func (p *Pipeline) Workspace() *Workspace { return p.ws }

// Run converts one upload. On success the caller owns the artifact and must
// Close it after delivery. The input file and work directory are gone by the
// time Run returns, whatever the outcome. The report is nil only when the
// request failed before a job id was assigned.
func (p *Pipeline) Run(ctx context.Context, kind Kind, up Upload) (*Artifact, *Report, error) {
	spec, ok := p.registry.Lookup(kind)
	if !ok {
		return nil, nil, errors.NotFound("converter", string(kind))
	}
	if err := ValidateUpload(up, spec); err != nil {
		return nil, nil, err
	}

	job, err := p.ws.Allocate(ctx, spec, up)
	if err != nil {
		return nil, nil, err
	}

	ctx = logger.ContextWithJobID(ctx, job.ID)
	ctx = logger.ContextWithKind(ctx, string(kind))
	log := p.log.FromContext(ctx)

	report := &Report{
		JobID:      job.ID,
		Kind:       kind,
		SourceName: job.SourceName,
		InputSize:  job.InputSize,
		Started:    time.Now(),
	}
	defer func() {
		report.Duration = time.Since(report.Started)
		if err := job.Cleanup(); err != nil {
			log.Warn("job cleanup failed", "error", err.Error())
		}
	}()

	log.Info("conversion started", "source", job.SourceName, "input_bytes", job.InputSize)

	res, err := p.invoke(ctx, spec, job)
	if err != nil {
		log.Warn("conversion failed", "code", string(errors.GetCode(err)), "error", err.Error())
		return nil, report, err
	}

	if p.verify {
		for _, path := range res.Paths {
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
			if err := VerifyOutput(path, ext); err != nil {
				log.Warn("conversion output rejected", "path", path, "error", err.Error())
				return nil, report, err
			}
		}
	}

	art, err := p.packager.Package(job, spec, res)
	if err != nil {
		return nil, report, err
	}

	log.Info("conversion completed",
		"download", art.DownloadName,
		"output_bytes", art.Size,
		"pages", art.Pages,
		"duration_ms", time.Since(report.Started).Milliseconds(),
	)
	return art, report, nil
}

// invoke waits for a free slot, then runs the converter under the kind's
// time bound. Time spent waiting counts against the request, not the converter.
func (p *Pipeline) invoke(ctx context.Context, spec *Spec, job *Job) (*Result, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.ConversionTimeout("queue", spec.Timeout)
		}
		return nil, errors.WrapWithCode(err, errors.CodeInternal, "pipeline.acquire", "request canceled")
	}
	defer p.slots.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	return spec.Invoker.Invoke(runCtx, job)
}
