package conversion

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"fileconv/internal/pkg/errors"
)

// VerifyOutput checks that a converter artifact is a readable file of the
// declared type. Tools such as soffice exit zero after writing a stub when an
// import filter gives up, so existence alone is not enough.
func VerifyOutput(path, ext string) error {
	var err error
	switch ext {
	case "pdf":
		err = verifyPDF(path)
	case "jpg", "jpeg":
		err = verifyImage(path)
	case "docx", "pptx":
		err = verifyOOXML(path)
	case "xlsx":
		err = verifyWorkbook(path)
	default:
		return nil
	}
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeConversionFailed, "verify.output",
			fmt.Sprintf("Conversion failed: output is not a valid .%s file", ext)).
			WithField("path", path)
	}
	return nil
}

func verifyPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return err
	}
	if !bytes.Contains(head[:n], []byte("%PDF-")) {
		return fmt.Errorf("missing %%PDF header")
	}
	return nil
}

func verifyImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("empty image")
	}
	return nil
}

func verifyOOXML(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == "[Content_Types].xml" {
			return nil
		}
	}
	return fmt.Errorf("missing [Content_Types].xml")
}

func verifyWorkbook(path string) error {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return err
	}
	defer wb.Close()

	if len(wb.GetSheetList()) == 0 {
		return fmt.Errorf("workbook has no sheets")
	}
	return nil
}
