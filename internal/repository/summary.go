package repository

import (
	"strconv"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

// SummarizeMaterial returns the most frequent material name. Ties go to the
// name seen first.
func SummarizeMaterial(items []entity.LineItem) string {
	counts := map[string]int{}
	var order []string
	for _, it := range items {
		if it.MaterialName == "" {
			continue
		}
		if counts[it.MaterialName] == 0 {
			order = append(order, it.MaterialName)
		}
		counts[it.MaterialName]++
	}
	best, bestCount := "", 0
	for _, name := range order {
		if counts[name] > bestCount {
			best, bestCount = name, counts[name]
		}
	}
	return best
}

// SummarizeThickness returns the thickness shared by every item, or
// constants.MixedThickness when they differ.
func SummarizeThickness(items []entity.LineItem) string {
	if len(items) == 0 {
		return ""
	}
	first := items[0].ThicknessCm
	for _, it := range items[1:] {
		if it.ThicknessCm != first {
			return constants.MixedThickness
		}
	}
	return strconv.FormatFloat(first, 'g', -1, 64)
}
