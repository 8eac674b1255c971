// Package converters declares the conversion table: which tool handles each
// kind, what it accepts, and what it produces.
package converters

import (
	"fileconv/internal/conversion"
)

// PdftoppmBinary is the Poppler rasterizer looked up on PATH.
const PdftoppmBinary = "pdftoppm"

// Table returns the spec for every supported kind. External tools run
// through runner.
func Table(runner conversion.Runner) []*conversion.Spec {
	return []*conversion.Spec{
		{
			Kind:        conversion.WordToPDF,
			Title:       "Word to PDF",
			Description: "Convert DOC and DOCX documents to PDF.",
			Accept:      []string{"doc", "docx"},
			OutputExt:   "pdf",
			Timeout:     conversion.DefaultTimeout,
			Invoker:     soffice(runner, "pdf", "pdf", ""),
		},
		{
			Kind:        conversion.ExcelToPDF,
			Title:       "Excel to PDF",
			Description: "Convert XLS and XLSX spreadsheets to PDF.",
			Accept:      []string{"xls", "xlsx"},
			OutputExt:   "pdf",
			Timeout:     conversion.DefaultTimeout,
			Invoker:     soffice(runner, "pdf", "pdf", ""),
		},
		{
			Kind:        conversion.PowerPointToPDF,
			Title:       "PowerPoint to PDF",
			Description: "Convert PPT and PPTX presentations to PDF.",
			Accept:      []string{"ppt", "pptx"},
			OutputExt:   "pdf",
			Timeout:     conversion.DefaultTimeout,
			Invoker:     soffice(runner, "pdf", "pdf", ""),
		},
		{
			Kind:        conversion.JPGToPDF,
			Title:       "JPG to PDF",
			Description: "Place a JPG or PNG image on a PDF page at 100 dpi.",
			Accept:      []string{"jpg", "jpeg", "png"},
			OutputExt:   "pdf",
			Timeout:     conversion.DefaultTimeout,
			Invoker:     &conversion.Library{Name: "image-to-pdf", Fn: ImageToPDF},
		},
		{
			Kind:        conversion.HTMLToPDF,
			Title:       "HTML to PDF",
			Description: "Render an HTML page to PDF.",
			Accept:      []string{"html", "htm"},
			OutputExt:   "pdf",
			Timeout:     conversion.DefaultTimeout,
			Invoker:     soffice(runner, "pdf", "pdf", ""),
		},
		{
			Kind:        conversion.PDFToWord,
			Title:       "PDF to Word",
			Description: "Convert a PDF to an editable DOCX document.",
			Accept:      []string{"pdf"},
			OutputExt:   "docx",
			Timeout:     conversion.DefaultTimeout,
			Invoker:     soffice(runner, "docx:MS Word 2007 XML", "docx", "writer_pdf_import"),
		},
		{
			Kind:        conversion.PDFToExcel,
			Title:       "PDF to Excel",
			Description: "Best-effort extraction of PDF content into an XLSX workbook.",
			Accept:      []string{"pdf"},
			OutputExt:   "xlsx",
			Timeout:     conversion.DefaultTimeout,
			Invoker:     soffice(runner, "xlsx", "xlsx", ""),
		},
		{
			Kind:        conversion.PDFToPowerPoint,
			Title:       "PDF to PowerPoint",
			Description: "Convert each PDF page to a PPTX slide.",
			Accept:      []string{"pdf"},
			OutputExt:   "pptx",
			Timeout:     conversion.DefaultTimeout,
			Invoker:     soffice(runner, "pptx", "pptx", "impress_pdf_import"),
		},
		{
			Kind:        conversion.PDFToJPG,
			Title:       "PDF to JPG",
			Description: "Render PDF pages at 300 dpi; several pages come back as a zip.",
			Accept:      []string{"pdf"},
			OutputExt:   "jpg",
			Timeout:     conversion.DefaultTimeout,
			Invoker: &conversion.Raster{
				Binary:  PdftoppmBinary,
				Runner:  runner,
				DPI:     300,
				Quality: 95,
			},
		},
		{
			Kind:         conversion.PDFToPDFA,
			Title:        "PDF to PDF/A",
			Description:  "Rewrite a PDF as archival PDF/A-1b with Ghostscript.",
			Accept:       []string{"pdf"},
			OutputExt:    "pdf",
			OutputSuffix: "_pdfa",
			Timeout:      conversion.DefaultTimeout,
			Invoker:      pdfa(runner),
		},
	}
}

// NewRegistry builds the conversion registry over runner.
func NewRegistry(runner conversion.Runner) (*conversion.Registry, error) {
	return conversion.NewRegistry(Table(runner)...)
}
