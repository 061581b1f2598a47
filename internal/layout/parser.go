// Package layout rebuilds debit-sheet table rows from positioned tokens. It is
// the fallback when the model path yields no usable items and never calls out.
package layout

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/material"
)

const DefaultRowTolerance = 3.0

// DefaultHeaderKeywords are the column labels of the table header row.
var DefaultHeaderKeywords = []string{"designation", "finition"}

type Config struct {
	RowTolerance   float64
	HeaderKeywords []string
	Rules          []ColumnRule
	Policy         material.Policy
}

type Stats struct {
	Rows       int // rows seen after the header
	Candidates int // rows carrying a finish keyword
	Dropped    int // candidates rejected by a column rule
}

type Result struct {
	Items    []entity.LineItem
	Stats    Stats
	Warnings []string
}

type Parser struct {
	cfg    Config
	logger *slog.Logger
}

func NewParser(cfg Config, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RowTolerance <= 0 {
		cfg.RowTolerance = DefaultRowTolerance
	}
	if len(cfg.HeaderKeywords) == 0 {
		cfg.HeaderKeywords = DefaultHeaderKeywords
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = DefaultRules
	}
	return &Parser{cfg: cfg, logger: logger}
}

// Parse returns the line items found on the pages.
func (p *Parser) Parse(pages [][]entity.PositionedToken) []entity.LineItem {
	return p.ParseLayout(pages).Items
}

// ParseLayout is Parse with counters and the warnings a caller should surface.
func (p *Parser) ParseLayout(pages [][]entity.PositionedToken) Result {
	res := Result{Items: []entity.LineItem{}}
	for pageIdx, tokens := range pages {
		rows := GroupRows(tokens, p.cfg.RowTolerance)
		start := 0
		if h := FindHeader(rows, p.cfg.HeaderKeywords); h >= 0 {
			start = h + 1
		} else if len(rows) > 0 {
			p.logger.Debug("layout.header.not_found", "page", pageIdx+1, "rows", len(rows))
		}

		for _, row := range rows[start:] {
			res.Stats.Rows++
			item, isCandidate, err := p.parseRow(row)
			if !isCandidate {
				continue
			}
			res.Stats.Candidates++
			if err != nil {
				res.Stats.Dropped++
				p.logger.Debug("layout.row.dropped", "page", pageIdx+1, "row", row.String(), "error", err)
				continue
			}
			if _, warning := material.Quantify(&item, p.cfg.Policy); warning != "" {
				res.Warnings = append(res.Warnings, warning)
			}
			res.Items = append(res.Items, item)
		}
	}

	if res.Stats.Dropped > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("layout fallback dropped %d unreadable row(s)", res.Stats.Dropped))
	}
	p.logger.Info("layout.parse.ok",
		"pages", len(pages),
		"rows", res.Stats.Rows,
		"candidates", res.Stats.Candidates,
		"dropped", res.Stats.Dropped,
		"items", len(res.Items),
	)
	return res
}

// parseRow anchors on the finish keyword. Rows without one are not candidates.
func (p *Parser) parseRow(row Row) (entity.LineItem, bool, error) {
	texts := row.Texts()
	idx, finish := FindFinish(texts)
	if idx < 0 {
		return entity.LineItem{}, false, nil
	}

	item := entity.LineItem{Finish: string(finish)}
	item.Description, item.MaterialName = SplitNameMaterial(texts[:idx])
	for _, rule := range p.cfg.Rules {
		pos := idx + rule.Offset
		if pos >= len(texts) {
			return entity.LineItem{}, true, fmt.Errorf("column %s missing", rule.Name)
		}
		if err := rule.Assign(&item, texts[pos]); err != nil {
			return entity.LineItem{}, true, fmt.Errorf("column %s: %w", rule.Name, err)
		}
	}
	if item.MaterialName == "" {
		return entity.LineItem{}, true, fmt.Errorf("no material before finish")
	}
	return item, true, nil
}

func isCodeToken(token string) bool {
	return material.TrailingCode(token) != ""
}
