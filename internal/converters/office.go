package converters

import (
	"path/filepath"
	"strings"

	"fileconv/internal/conversion"
)

// SofficeBinary is the LibreOffice entry point looked up on PATH.
const SofficeBinary = "soffice"

// soffice builds a headless LibreOffice conversion. Each job gets its own
// user profile under its work dir: two soffice processes sharing the default
// profile block on its lock and the second exits without converting.
func soffice(runner conversion.Runner, convertTo, outExt, infilter string) *conversion.Command {
	return &conversion.Command{
		Binary: SofficeBinary,
		Runner: runner,
		Args: func(job *conversion.Job) []string {
			args := []string{
				"-env:UserInstallation=" + fileURL(filepath.Join(job.WorkDir, "lo-profile")),
				"--headless",
				"--norestore",
			}
			if infilter != "" {
				args = append(args, "--infilter="+infilter)
			}
			return append(args,
				"--convert-to", convertTo,
				"--outdir", absPath(job.WorkDir),
				absPath(job.InputPath),
			)
		},
		Output: func(job *conversion.Job) string {
			return filepath.Join(job.WorkDir, inputStem(job)+"."+outExt)
		},
	}
}

// inputStem is the stored input file name without its extension; soffice
// names its output after it.
func inputStem(job *conversion.Job) string {
	name := filepath.Base(job.InputPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// fileURL renders an absolute path as a file:// URL, including drive-letter
// paths on Windows.
func fileURL(p string) string {
	s := filepath.ToSlash(absPath(p))
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return "file://" + s
}
