package ocr

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

// Page is one recognized page.
type Page struct {
	Tokens        []entity.PositionedToken
	Text          string  // words joined by line, lines by "\n"
	ConfidenceSum float64 // sum of kept word confidences
}

const (
	colLevel = iota
	colPage
	colBlock
	colPar
	colLine
	colWord
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	tsvColumns
)

const (
	lineLevel = "4"
	wordLevel = "5"
)

// ParseTSV reads tesseract's tsv output. Only word rows (level 5) with text
// and a confidence of at least minConf are kept. Pixel geometry is multiplied
// by scale; every word takes the top of its line as y, negated, so words of
// one line share a row.
func ParseTSV(data []byte, page int, minConf, scale float64) Page {
	if scale <= 0 {
		scale = 1
	}
	var (
		out      Page
		lines    []string
		cur      []string
		lineKey  string
		lineTop  float64
		hasLine  bool
		lastWord string
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	num := func(s string) float64 {
		v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return v
	}

	for i, row := range strings.Split(string(data), "\n") {
		if i == 0 || row == "" {
			continue
		}
		cols := strings.SplitN(strings.TrimRight(row, "\r"), "\t", tsvColumns)
		if len(cols) < tsvColumns-1 {
			continue
		}
		key := cols[colBlock] + "." + cols[colPar] + "." + cols[colLine]

		switch cols[colLevel] {
		case lineLevel:
			lineKey, lineTop, hasLine = key, num(cols[colTop]), true
			continue
		case wordLevel:
		default:
			continue
		}
		if len(cols) < tsvColumns {
			continue
		}
		word := strings.TrimSpace(cols[colText])
		if word == "" {
			continue
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(cols[colConf]), 64)
		if err != nil || conf < minConf {
			continue
		}

		top := num(cols[colTop])
		if hasLine && key == lineKey {
			top = lineTop
		}
		if key != lastWord {
			flush()
			lastWord = key
		}
		cur = append(cur, word)

		out.Tokens = append(out.Tokens, entity.PositionedToken{
			Text:   word,
			X:      num(cols[colLeft]) * scale,
			Y:      -top * scale,
			Width:  num(cols[colWidth]) * scale,
			Height: num(cols[colHeight]) * scale,
			Page:   page,
		})
		out.ConfidenceSum += conf
	}
	flush()
	out.Text = strings.Join(lines, "\n")
	return out
}
