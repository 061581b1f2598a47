// Package ocr recognizes scanned PDF pages with poppler's pdftoppm and
// tesseract, returning words with their pixel positions.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Lang          string  // tesseract languages, default "fra+eng"
	DPI           int     // rasterization DPI, default 300
	MaxPages      int     // longer scans fail with common.ErrTooManyPages; 0 = no limit
	PSM           int     // page segmentation mode, default 6 (uniform block of text)
	MinConfidence float64 // words below this tesseract confidence (0..100) are dropped
	TempDir       string
}

// Recognizer turns image-only PDFs into a layout. It keeps no per-call state.
type Recognizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRecognizer(cfg Config, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "fra+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	return &Recognizer{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// Recognize rasterizes every page and reads it back. Token coordinates are
// converted to PDF points with y negated, so rows lower on the page sort after
// higher ones the same way PDF user space does.
func (r *Recognizer) Recognize(ctx context.Context, pdf []byte) (*entity.DocumentLayout, error) {
	start := time.Now()

	tmpDir, err := os.MkdirTemp(r.cfg.TempDir, "debitsheet-ocr-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("ocr.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, err
	}

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(r.cfg.DPI), "-png"}
	if r.cfg.MaxPages > 0 {
		// one page past the limit is enough to tell an over-long scan apart
		args = append(args, "-l", strconv.Itoa(r.cfg.MaxPages+1))
	}
	args = append(args, in, prefix)
	if _, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	// pdftoppm names pages prefix-1.png, prefix-01.png, ... depending on the count
	images, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(images, func(i, j int) bool { return pageNumber(images[i]) < pageNumber(images[j]) })
	if len(images) == 0 {
		return nil, errors.New("pdftoppm rendered no pages")
	}
	if r.cfg.MaxPages > 0 && len(images) > r.cfg.MaxPages {
		r.logger.Warn("ocr.recognize.too_many_pages", "max_pages", r.cfg.MaxPages)
		return nil, fmt.Errorf("%w: scan has more than %d pages", common.ErrTooManyPages, r.cfg.MaxPages)
	}

	out := &entity.DocumentLayout{}
	var text strings.Builder
	var confSum float64
	var words int
	for i, img := range images {
		stdout, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, img, "stdout",
			"-l", r.cfg.Lang, "--psm", strconv.Itoa(r.cfg.PSM), "tsv")
		if err != nil {
			return nil, fmt.Errorf("tesseract page %d: %w: %s", i+1, err, truncate(strings.TrimSpace(string(errb)), 512))
		}
		page := ParseTSV(stdout, i+1, r.cfg.MinConfidence, 72/float64(r.cfg.DPI))
		out.Pages = append(out.Pages, page.Tokens)
		if text.Len() > 0 && page.Text != "" {
			text.WriteString("\n\f\n")
		}
		text.WriteString(page.Text)
		confSum += page.ConfidenceSum
		words += len(page.Tokens)
	}
	out.PlainText = text.String()

	mean := 0.0
	if words > 0 {
		mean = confSum / float64(words)
	}
	r.logger.Info("ocr.recognize.ok",
		"pages", len(images),
		"words", words,
		"mean_confidence", mean,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndexByte(base, '-')
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return 0
	}
	return n
}
