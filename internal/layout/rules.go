package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/utils"
)

// ColumnRule maps the token Offset positions after the finish keyword onto a field.
type ColumnRule struct {
	Name   string
	Offset int
	Assign func(item *entity.LineItem, text string) error
}

// DefaultRules is the debit-sheet column order after the finish:
// length, width, thickness, pieces, quantity.
var DefaultRules = []ColumnRule{
	{Name: "length", Offset: 1, Assign: assignFloat(func(it *entity.LineItem, v float64) { it.LengthCm = v })},
	{Name: "width", Offset: 2, Assign: assignFloat(func(it *entity.LineItem, v float64) { it.WidthCm = v })},
	{Name: "thickness", Offset: 3, Assign: assignFloat(func(it *entity.LineItem, v float64) { it.ThicknessCm = v })},
	{Name: "pieces", Offset: 4, Assign: assignPieces},
	{Name: "quantity", Offset: 5, Assign: assignFloat(func(it *entity.LineItem, v float64) { it.DeclaredQuantity = v })},
}

func assignFloat(set func(*entity.LineItem, float64)) func(*entity.LineItem, string) error {
	return func(item *entity.LineItem, text string) error {
		v, ok := utils.ParseNumber(text)
		if !ok || v < 0 {
			return fmt.Errorf("not a measure: %q", text)
		}
		set(item, v)
		return nil
	}
}

func assignPieces(item *entity.LineItem, text string) error {
	v, ok := utils.ParseNumber(text)
	if !ok || v < 0 || v != math.Trunc(v) {
		return fmt.Errorf("not a piece count: %q", text)
	}
	item.PieceCount = int(v)
	return nil
}

// FindFinish returns the index of the first finish keyword in texts, or -1.
func FindFinish(texts []string) (int, constants.Finish) {
	for i, t := range texts {
		if f, ok := constants.CanonicalFinish(t); ok {
			return i, f
		}
	}
	return -1, ""
}

// SplitNameMaterial splits the tokens before the finish into the item name and
// the material. The material starts at the first stone-family word; failing
// that, it is the trailing code token. When neither is found the whole segment
// is both name and material.
func SplitNameMaterial(texts []string) (name, materialName string) {
	for i, t := range texts {
		if constants.IsMaterialFamily(t) {
			return strings.Join(texts[:i], " "), strings.Join(texts[i:], " ")
		}
	}
	if n := len(texts); n > 0 && isCodeToken(texts[n-1]) {
		return strings.Join(texts[:n-1], " "), texts[n-1]
	}
	joined := strings.Join(texts, " ")
	return joined, joined
}
