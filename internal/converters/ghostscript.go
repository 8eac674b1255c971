package converters

import (
	"path/filepath"
	"runtime"

	"fileconv/internal/conversion"
)

// GhostscriptBinary is the Ghostscript CLI for the current platform.
func GhostscriptBinary() string {
	if runtime.GOOS == "windows" {
		return "gswin64c"
	}
	return "gs"
}

// pdfa rewrites a PDF as PDF/A-1b.
func pdfa(runner conversion.Runner) *conversion.Command {
	output := func(job *conversion.Job) string {
		return filepath.Join(job.WorkDir, "pdfa.pdf")
	}
	return &conversion.Command{
		Binary: GhostscriptBinary(),
		Runner: runner,
		Args: func(job *conversion.Job) []string {
			return []string{
				"-dPDFA=1",
				"-dBATCH",
				"-dNOPAUSE",
				"-dSAFER",
				"-dUseCIEColor",
				"-sProcessColorModel=DeviceRGB",
				"-sDEVICE=pdfwrite",
				"-sPDFACompatibilityPolicy=1",
				"-sOutputFile=" + output(job),
				job.InputPath,
			}
		},
		Output: output,
	}
}
