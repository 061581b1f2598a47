// Package document turns uploaded debit sheets into plain text and positioned
// word tokens. PDF pages keep their native coordinates; spreadsheet cells are
// laid out on a synthetic grid with the same origin convention.
package document

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

type Config struct {
	MaxPages     int     // PDF pages or workbook sheets; longer documents are unreadable. 0 = no limit
	CellWidth    float64 // synthetic x step between spreadsheet columns, default 100
	CellHeight   float64 // synthetic y step between spreadsheet rows, default 10
	WordGapRatio float64 // glyph gap, as a fraction of font size, that starts a new word; default 0.3
	TempDir      string  // scratch space for office documents; "" = os.TempDir()

	// OCR reads PDFs that carry no text layer. nil leaves them unreadable.
	OCR TextRecognizer
}

// TextRecognizer turns an image-only PDF into a layout.
type TextRecognizer interface {
	Recognize(ctx context.Context, pdf []byte) (*entity.DocumentLayout, error)
}

// Extractor reads source documents. It holds no per-request state.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CellWidth <= 0 {
		cfg.CellWidth = 100
	}
	if cfg.CellHeight <= 0 {
		cfg.CellHeight = 10
	}
	if cfg.WordGapRatio <= 0 {
		cfg.WordGapRatio = 0.3
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract picks a reader based on the detected format and returns the document's
// text and tokens. Any failure, and an empty document, is an *UnreadableError.
func (e *Extractor) Extract(ctx context.Context, doc entity.SourceDocument) (*entity.DocumentLayout, error) {
	start := time.Now()
	if len(doc.Data) == 0 {
		return nil, unreadable(doc.Name, "empty file", nil)
	}
	format := DetectFormat(doc)
	e.logger.Debug("document.extract.start", "name", doc.Name, "format", format, "bytes", len(doc.Data))

	var (
		layout *entity.DocumentLayout
		err    error
	)
	switch format {
	case constants.PDF:
		layout, err = e.extractPDF(ctx, doc)
	case constants.XLSX:
		layout, err = e.extractXLSX(ctx, doc)
	case constants.CSV:
		layout, err = e.extractCSV(doc)
	case constants.DOCX, constants.ODT, constants.RTF, constants.TXT:
		layout, err = e.extractOffice(doc, format)
	default:
		e.logger.Warn("document.extract.unsupported", "name", doc.Name, "mime", doc.MIMEType)
		return nil, unreadable(doc.Name, "unsupported format", nil)
	}
	if err != nil {
		e.logger.Warn("document.extract.failed", "name", doc.Name, "format", format, "error", err)
		return nil, err
	}
	if format == constants.PDF && e.cfg.OCR != nil && isBlank(layout) {
		layout, err = e.recognize(ctx, doc)
		if err != nil {
			return nil, err
		}
	}
	layout.Format = format
	if isBlank(layout) {
		return nil, unreadable(doc.Name, "no text content", nil)
	}

	e.logger.Info("document.extract.ok",
		"name", doc.Name,
		"format", format,
		"pages", len(layout.Pages),
		"tokens", layout.TokenCount(),
		"chars", len(layout.PlainText),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return layout, nil
}

func isBlank(l *entity.DocumentLayout) bool {
	return strings.TrimSpace(l.PlainText) == "" && l.TokenCount() == 0
}

func (e *Extractor) recognize(ctx context.Context, doc entity.SourceDocument) (*entity.DocumentLayout, error) {
	e.logger.Info("document.extract.ocr", "name", doc.Name)
	layout, err := e.cfg.OCR.Recognize(ctx, doc.Data)
	if err != nil {
		e.logger.Warn("document.extract.ocr_failed", "name", doc.Name, "error", err)
		if errors.Is(err, common.ErrTooManyPages) {
			return nil, unreadable(doc.Name, "too many pages", err)
		}
		return nil, unreadable(doc.Name, "ocr failed", err)
	}
	return layout, nil
}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
	rtfMagic = []byte(`{\rtf`)
)

// DetectFormat uses the file extension, then the declared MIME type, then the leading bytes.
func DetectFormat(doc entity.SourceDocument) constants.DocumentFormat {
	if f := constants.MapExtToFormat(filepath.Ext(doc.Name)); f != constants.UNKNOWN {
		return f
	}
	if doc.MIMEType != "" {
		if f := constants.MapMIMEToFormat(doc.MIMEType); f != constants.UNKNOWN {
			return f
		}
	}
	return sniff(doc.Data)
}

func sniff(data []byte) constants.DocumentFormat {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return constants.PDF
	case bytes.HasPrefix(data, rtfMagic):
		return constants.RTF
	case bytes.HasPrefix(data, zipMagic):
		return sniffZip(data)
	default:
		return constants.UNKNOWN
	}
}

// sniffZip tells OOXML spreadsheets, OOXML documents and ODF text apart by their entries.
func sniffZip(data []byte) constants.DocumentFormat {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return constants.UNKNOWN
	}
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "xl/"):
			return constants.XLSX
		case strings.HasPrefix(f.Name, "word/"):
			return constants.DOCX
		case f.Name == "content.xml":
			return constants.ODT
		}
	}
	return constants.UNKNOWN
}
