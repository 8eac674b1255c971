package converters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"fileconv/internal/conversion"
)

// imageDPI maps image pixels to page points.
const imageDPI = 100.0

// MaxImagePixels bounds width*height of an accepted image. Decoding is
// refused above it: a few hundred KB of PNG can otherwise expand into
// gigabytes of pixel buffers.
const MaxImagePixels = 178956970

// ErrImageTooLarge is returned for images above MaxImagePixels.
var ErrImageTooLarge = errors.New("image too large")

// ImageToPDF places a JPEG or PNG on a single PDF page sized to the image at
// 100 dpi. Transparency is flattened onto white.
func ImageToPDF(ctx context.Context, job *conversion.Job) ([]string, error) {
	f, err := os.Open(job.InputPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d pixels exceeds %d", ErrImageTooLarge, cfg.Width, cfg.Height, MaxImagePixels)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	rgb := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgb, rgb.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgb, rgb.Bounds(), src, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := float64(b.Dx()) * 72 / imageDPI
	h := float64(b.Dy()) * 72 / imageDPI

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("page", opts, &buf)
	pdf.ImageOptions("page", 0, 0, w, h, false, opts, 0, "")

	out := filepath.Join(job.WorkDir, "image.pdf")
	if err := pdf.OutputFileAndClose(out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return []string{out}, nil
}
