package entity

import (
	"github.com/joseph-ayodele/debitsheet-import/constants"
)

// SourceDocument is the uploaded file for the duration of one extraction request.
type SourceDocument struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// PositionedToken is one word of text with its position on a page.
// Coordinates follow the PDF convention: origin bottom-left, y grows upward.
type PositionedToken struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   int     `json:"page"`
}

// DocumentLayout is the output of the document extractor.
type DocumentLayout struct {
	Format    constants.DocumentFormat `json:"format"`
	PlainText string                   `json:"plain_text"`
	Pages     [][]PositionedToken      `json:"pages"`
}

// TokenCount returns the number of tokens across all pages.
func (l *DocumentLayout) TokenCount() int {
	n := 0
	for _, p := range l.Pages {
		n += len(p)
	}
	return n
}
