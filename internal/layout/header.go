package layout

import (
	"strings"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/utils"
)

// HeaderConfidence is the confidence given to header values read by label.
const HeaderConfidence = 0.5

type headerLabel struct {
	field string
	words []string // every folded word must appear in the label
	set   func(h *entity.DraftHeader, v entity.Field[string])
}

// Order matters: "date livraison" must win over the plain "date" label.
var headerLabels = []headerLabel{
	{field: "arc", words: []string{"arc"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.ARCNumber = v }},
	{field: "due", words: []string{"livraison"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.DueDate = v }},
	{field: "due", words: []string{"echeance"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.DueDate = v }},
	{field: "due", words: []string{"delai"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.DueDate = v }},
	{field: "order_date", words: []string{"date"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.OrderDate = v }},
	{field: "order", words: []string{"os"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.OrderNumber = v }},
	{field: "order", words: []string{"commande"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.OrderNumber = v }},
	{field: "client", words: []string{"client"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.ClientName = v }},
	{field: "site", words: []string{"chantier"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.SiteReference = v }},
	{field: "salesperson", words: []string{"commercial"}, set: func(h *entity.DraftHeader, v entity.Field[string]) { h.SalespersonCode = v }},
}

// HeaderFromText reads "Label: value" (or tab separated) lines from the plain
// text of a sheet. The first value found for a field wins.
func HeaderFromText(text string) entity.DraftHeader {
	var h entity.DraftHeader
	filled := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		label, value, ok := splitLabel(line)
		if !ok {
			continue
		}
		words := labelWords(label)
		for _, hl := range headerLabels {
			if !containsAll(words, hl.words) {
				continue
			}
			if !filled[hl.field] {
				hl.set(&h, entity.NewField(value, HeaderConfidence, constants.SourceHeuristic))
				filled[hl.field] = true
			}
			break
		}
	}
	return h
}

func splitLabel(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	sep := strings.IndexAny(line, ":\t")
	if sep <= 0 {
		return "", "", false
	}
	label := line[:sep]
	value := strings.TrimSpace(strings.TrimLeft(line[sep+1:], ":\t "))
	if tab := strings.IndexByte(value, '\t'); tab >= 0 {
		value = strings.TrimSpace(value[:tab])
	}
	if value == "" || len(label) > 40 {
		return "", "", false
	}
	return label, value, true
}

func labelWords(label string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(label, func(r rune) bool {
		return r == ' ' || r == '.' || r == '°' || r == '/' || r == '-' || r == '_'
	}) {
		if f := utils.FoldWord(w); f != "" {
			words[f] = true
		}
	}
	return words
}

func containsAll(set map[string]bool, words []string) bool {
	for _, w := range words {
		if !set[w] {
			return false
		}
	}
	return true
}
