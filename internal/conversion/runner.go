package conversion

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"fileconv/internal/pkg/logger"
)

// RunResult is what an external command left behind.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (RunResult, error)
}

// ExecRunner runs commands with os/exec. Each command gets its own process
// group and the whole group is killed when ctx ends, so helper processes a
// converter forks do not outlive the request.
type ExecRunner struct {
	Log *logger.Logger
	// WaitDelay caps how long Wait lingers on open pipes after a kill.
	WaitDelay time.Duration
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (RunResult, error) {
	log := r.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.FromContext(ctx)

	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	configureProcessGroup(cmd)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	res := RunResult{
		Stdout:   out.Bytes(),
		Stderr:   errb.Bytes(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		log.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", res.Duration.Milliseconds(),
			"exit_code", res.ExitCode,
			"error", err.Error(),
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		log.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", res.Duration.Milliseconds(),
			"stdout_bytes", out.Len(),
			"stderr_bytes", errb.Len(),
		)
	}

	return res, err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
