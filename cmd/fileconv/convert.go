package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"fileconv/internal/conversion"
	"fileconv/internal/converters"
	"fileconv/internal/pkg/errors"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert one file",
	Long: `Convert runs one file through the conversion named by --kind and writes
the result into --out under the name the API would use for the download.
A multi-page pdf-to-jpg result is written as a zip of pages.`,
	Example: `  fileconv convert --kind word-to-pdf report.docx
  fileconv convert --kind pdf-to-jpg --out pages/ scan.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("kind", "", "conversion kind (see 'fileconv kinds')")
	convertCmd.Flags().String("out", ".", "directory to write the result into")
	_ = convertCmd.MarkFlagRequired("kind")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kind, _ := cmd.Flags().GetString("kind")
	outDir, _ := cmd.Flags().GetString("out")

	ws := conversion.NewWorkspace(cfg.WorkspaceRoot, nil, log)
	if err := ws.Init(); err != nil {
		return err
	}
	reg, err := converters.NewRegistry(conversion.ExecRunner{Log: log})
	if err != nil {
		return err
	}
	pipeline := conversion.NewPipeline(reg, ws, log, conversion.Options{MaxConcurrent: 1})

	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	art, report, err := pipeline.Run(cmd.Context(), conversion.Kind(kind), conversion.Upload{
		Present:  true,
		Filename: filepath.Base(args[0]),
		Body:     in,
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return fmt.Errorf("unknown kind %q, run 'fileconv kinds' for the list", kind)
		}
		return fmt.Errorf("%s", errors.PublicMessage(err))
	}
	defer art.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(outDir, art.DownloadName)
	if err := copyArtifact(art, dst); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes, job %s, %s)\n",
		dst, art.Size, report.JobID, report.Duration.Round(time.Millisecond))
	return nil
}

func copyArtifact(art *conversion.Artifact, dst string) error {
	src, err := art.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
