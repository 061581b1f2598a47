package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/utils"
)

// Row is one visual line of a page.
type Row struct {
	Y      float64
	Tokens []entity.PositionedToken
}

// GroupRows buckets tokens into rows. A token joins the first row whose
// representative y (its first token's y) is within tolerance; otherwise it
// starts a new row. Rows come back top to bottom, tokens left to right.
func GroupRows(tokens []entity.PositionedToken, tolerance float64) []Row {
	var rows []Row
	for _, t := range tokens {
		placed := false
		for i := range rows {
			if math.Abs(t.Y-rows[i].Y) <= tolerance {
				rows[i].Tokens = append(rows[i].Tokens, t)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, Row{Y: t.Y, Tokens: []entity.PositionedToken{t}})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Y > rows[j].Y })
	for i := range rows {
		sort.SliceStable(rows[i].Tokens, func(a, b int) bool { return rows[i].Tokens[a].X < rows[i].Tokens[b].X })
	}
	return rows
}

// FindHeader returns the index of the first row whose folded token set holds
// every keyword, or -1.
func FindHeader(rows []Row, keywords []string) int {
	if len(keywords) == 0 {
		return -1
	}
	for i, row := range rows {
		set := make(map[string]struct{}, len(row.Tokens))
		for _, t := range row.Tokens {
			set[utils.FoldWord(t.Text)] = struct{}{}
		}
		all := true
		for _, k := range keywords {
			if _, ok := set[utils.FoldWord(k)]; !ok {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

// Texts returns the token texts of a row.
func (r Row) Texts() []string {
	out := make([]string, len(r.Tokens))
	for i, t := range r.Tokens {
		out[i] = t.Text
	}
	return out
}

func (r Row) String() string {
	return strings.Join(r.Texts(), " ")
}
