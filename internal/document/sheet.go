package document

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

func (e *Extractor) extractXLSX(ctx context.Context, doc entity.SourceDocument) (*entity.DocumentLayout, error) {
	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, unreadable(doc.Name, "open workbook", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("document.xlsx.close_failed", "name", doc.Name, "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if e.cfg.MaxPages > 0 && len(sheets) > e.cfg.MaxPages {
		e.logger.Warn("document.xlsx.too_many_sheets", "name", doc.Name, "sheets", len(sheets), "max_pages", e.cfg.MaxPages)
		return nil, unreadable(doc.Name, fmt.Sprintf("%d sheets, limit is %d", len(sheets), e.cfg.MaxPages), common.ErrTooManyPages)
	}

	layout := &entity.DocumentLayout{}
	var text strings.Builder
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, unreadable(doc.Name, "read sheet "+sheet, err)
		}
		if text.Len() > 0 {
			text.WriteString("\n\f\n")
		}
		layout.Pages = append(layout.Pages, e.cellsToTokens(rows, i+1, &text))
	}
	layout.PlainText = text.String()
	return layout, nil
}

func (e *Extractor) extractCSV(doc entity.SourceDocument) (*entity.DocumentLayout, error) {
	r := csv.NewReader(bytes.NewReader(doc.Data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = sniffDelimiter(doc.Data)

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unreadable(doc.Name, "parse csv", err)
		}
		rows = append(rows, rec)
	}

	var text strings.Builder
	tokens := e.cellsToTokens(rows, 1, &text)
	return &entity.DocumentLayout{PlainText: text.String(), Pages: [][]entity.PositionedToken{tokens}}, nil
}

// cellsToTokens places every non-empty cell on a grid: x grows with the column,
// y decreases with the row so that descending y reads top to bottom.
// Multi-word cells become one token per word sharing the cell's y.
func (e *Extractor) cellsToTokens(rows [][]string, page int, text *strings.Builder) []entity.PositionedToken {
	var tokens []entity.PositionedToken
	for r, row := range rows {
		y := -float64(r) * e.cfg.CellHeight
		var line []string
		for c, cell := range row {
			words := strings.Fields(cell)
			if len(words) == 0 {
				continue
			}
			line = append(line, strings.Join(words, " "))
			x := float64(c) * e.cfg.CellWidth
			step := e.cfg.CellWidth / float64(len(words))
			for w, word := range words {
				tokens = append(tokens, entity.PositionedToken{
					Text:   word,
					X:      x + float64(w)*step,
					Y:      y,
					Width:  step,
					Height: e.cfg.CellHeight,
					Page:   page,
				})
			}
		}
		if len(line) > 0 {
			text.WriteString(strings.Join(line, "\t"))
			text.WriteByte('\n')
		}
	}
	return tokens
}

// sniffDelimiter prefers ';' when the first line has more semicolons than commas,
// which is what French spreadsheet exports produce.
func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}
