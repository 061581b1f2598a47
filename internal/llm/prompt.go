package llm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

// DefaultExcerptChars is how much extracted text a text-only provider receives.
const DefaultExcerptChars = 12000

// BuildSystemPrompt composes the fixed extraction instructions and the schema.
// Changes here must bump constants.PromptVersion.
func BuildSystemPrompt() string {
	parts := []string{
		"You read stone-workshop debit sheets (fiches de débit) and return ONLY one JSON object that matches the JSON Schema below.",
		"The header carries the order number (numéro OS), the ARC reference, the order date, the due date, the client, the site (chantier) and the salesperson code.",
		"Every table row is one item: description, material name with its stock code, finish, length, width and thickness in centimetres, piece count and the declared quantity.",
		"Finish must be one of: " + strings.Join(constants.FinishesAsStringSlice(), ", ") + " (brut = raw, adouci = smoothed, poli = polished).",
		"Slab codes end with letters followed by digits (K2, AB12) and their quantity is an area in square metres.",
		"Block codes end with a bare letter (K, 12B) and their quantity is a volume in cubic metres.",
		"Copy the material name exactly as printed, including its code.",
		"If the sheet prints a grand total quantity, put it in declared_total_quantity.",
		"Never invent values. If a field is not on the document, use null or omit it.",
		"Numbers are plain JSON numbers with a dot as decimal separator.",
		"Put anything you could not read reliably in warnings, and your overall certainty (0..1) in confidence.",
	}
	return strings.Join(parts, " ") + "\n\nJSON Schema:\n" + mustJSON(BuildDraftJSONSchema())
}

// BuildUserPrompt names the document and, for text providers, appends the
// first excerptChars characters of its extracted text.
func BuildUserPrompt(documentName, excerpt string) string {
	var b strings.Builder
	if name := strings.TrimSpace(documentName); name != "" {
		b.WriteString("Filename: ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	if excerpt = strings.TrimSpace(excerpt); excerpt != "" {
		b.WriteString("\nExtracted text:\n")
		b.WriteString(excerpt)
		b.WriteString("\n")
	} else {
		b.WriteString("\nThe debit sheet is attached.\n")
	}
	b.WriteString("\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}

// BuildRequest assembles the request for the method the router picked.
func BuildRequest(doc entity.SourceDocument, layout *entity.DocumentLayout, method constants.ExtractionMethod, excerptChars int) ModelRequest {
	if excerptChars <= 0 {
		excerptChars = DefaultExcerptChars
	}
	req := ModelRequest{
		DocumentName: doc.Name,
		SystemPrompt: BuildSystemPrompt(),
	}
	if method == constants.MethodModelDocument {
		req.Document = doc.Data
		req.MIMEType = doc.MIMEType
		if layout != nil {
			req.MIMEType = constants.MIMEForFormat(layout.Format)
		}
		req.UserPrompt = BuildUserPrompt(doc.Name, "")
		return req
	}
	if layout != nil {
		req.TextExcerpt = truncateRunes(layout.PlainText, excerptChars)
	}
	req.UserPrompt = BuildUserPrompt(doc.Name, req.TextExcerpt)
	return req
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "\n…(truncated)"
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
