package document

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

func (e *Extractor) extractPDF(ctx context.Context, doc entity.SourceDocument) (layout *entity.DocumentLayout, err error) {
	// the pdf package panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			layout = nil
			err = unreadable(doc.Name, "malformed pdf", fmt.Errorf("%v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return nil, unreadable(doc.Name, "open pdf", err)
	}

	numPages := r.NumPage()
	if e.cfg.MaxPages > 0 && numPages > e.cfg.MaxPages {
		e.logger.Warn("document.pdf.too_many_pages", "name", doc.Name, "pages", numPages, "max_pages", e.cfg.MaxPages)
		return nil, unreadable(doc.Name, fmt.Sprintf("%d pages, limit is %d", numPages, e.cfg.MaxPages), common.ErrTooManyPages)
	}

	layout = &entity.DocumentLayout{}
	var text strings.Builder
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			e.logger.Debug("document.pdf.null_page", "name", doc.Name, "page", i)
			layout.Pages = append(layout.Pages, nil)
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil, unreadable(doc.Name, fmt.Sprintf("page %d text", i), err)
		}
		if text.Len() > 0 {
			text.WriteString("\n\f\n")
		}
		text.WriteString(content)

		layout.Pages = append(layout.Pages, e.glyphsToWords(page.Content().Text, i))
	}
	layout.PlainText = text.String()
	return layout, nil
}

// glyphsToWords merges glyph runs into words in the producer's order.
// A word ends on a blank glyph, on a baseline change, or on a horizontal gap
// wider than WordGapRatio times the font size.
func (e *Extractor) glyphsToWords(glyphs []pdf.Text, pageNum int) []entity.PositionedToken {
	var (
		words   []entity.PositionedToken
		current *entity.PositionedToken
	)
	flush := func() {
		if current != nil && strings.TrimSpace(current.Text) != "" {
			words = append(words, *current)
		}
		current = nil
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		if current != nil {
			threshold := e.cfg.WordGapRatio * current.Height
			if current.Height == 0 {
				threshold = 3.0
			}
			gap := g.X - (current.X + current.Width)
			if math.Abs(g.Y-current.Y) > 0.5 || gap > threshold || gap < -threshold {
				flush()
			}
		}
		if current == nil {
			current = &entity.PositionedToken{
				Text:   g.S,
				X:      g.X,
				Y:      g.Y,
				Width:  g.W,
				Height: g.FontSize,
				Page:   pageNum,
			}
			continue
		}
		current.Text += g.S
		current.Width = g.X + g.W - current.X
	}
	flush()
	return words
}
