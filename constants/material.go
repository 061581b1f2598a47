package constants

import (
	"strings"
)

// Finish is the surface treatment printed on each production line.
type Finish string

const (
	FinishRaw      Finish = "raw"
	FinishSmoothed Finish = "smoothed"
	FinishPolished Finish = "polished"
)

// MixedThickness is stored on an order whose items do not share one thickness.
const MixedThickness = "mixed"

// PromptVersion identifies the extraction instruction template sent to the model.
// Bump it whenever the prompt or the JSON schema changes.
const PromptVersion = "debit-sheet/v3"

var allFinishes = []Finish{FinishRaw, FinishSmoothed, FinishPolished}

// finishSynonyms maps the spellings seen on shop documents to the canonical finish.
var finishSynonyms = map[string]Finish{
	"raw":      FinishRaw,
	"brut":     FinishRaw,
	"brute":    FinishRaw,
	"sawn":     FinishRaw,
	"scié":     FinishRaw,
	"scie":     FinishRaw,
	"smoothed": FinishSmoothed,
	"honed":    FinishSmoothed,
	"adouci":   FinishSmoothed,
	"adoucie":  FinishSmoothed,
	"polished": FinishPolished,
	"poli":     FinishPolished,
	"polie":    FinishPolished,
}

// FinishesAsStringSlice lists the canonical finish names.
func FinishesAsStringSlice() []string {
	result := make([]string, len(allFinishes))
	for i, f := range allFinishes {
		result[i] = string(f)
	}
	return result
}

// CanonicalFinish resolves a token or free-text label to a Finish.
func CanonicalFinish(input string) (Finish, bool) {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(input), ".,;:"))
	if normalized == "" {
		return "", false
	}
	f, ok := finishSynonyms[normalized]
	return f, ok
}

// MaterialFamilies are the stone family words that start the material segment of a line.
var MaterialFamilies = []string{
	"granite", "granit",
	"marble", "marbre",
	"quartz", "quartzite",
	"limestone", "calcaire",
	"travertine", "travertin",
	"slate", "ardoise",
	"onyx",
	"basalt", "basalte",
	"sandstone", "grès", "gres",
	"porcelain", "céramique", "ceramique",
}

// IsMaterialFamily reports whether token names a stone family.
func IsMaterialFamily(token string) bool {
	t := strings.ToLower(strings.Trim(strings.TrimSpace(token), ".,;:"))
	for _, fam := range MaterialFamilies {
		if t == fam {
			return true
		}
	}
	return false
}
