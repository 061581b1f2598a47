package llm

import (
	"github.com/joseph-ayodele/debitsheet-import/constants"
)

// BuildDraftJSONSchema returns the JSON-Schema (draft 2020-12 subset) of a canonical
// draft as a generic map. It is published in the prompt and used locally to validate.
func BuildDraftJSONSchema() map[string]any {
	header := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			keyOrderNumber:     stringProp(),
			keyARCNumber:       stringProp(),
			keyOrderDate:       stringProp(),
			keyDueDate:         stringProp(),
			keyClientName:      stringProp(),
			keySiteReference:   stringProp(),
			keySalespersonCode: stringProp(),
		},
	}

	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			keyDescription:  stringProp(),
			keyMaterialName: stringProp(),
			keyFinish: map[string]any{
				"type":        "string",
				"description": "one of " + joinQuoted(constants.FinishesAsStringSlice()),
			},
			keyLengthCm:    measureProp(),
			keyWidthCm:     measureProp(),
			keyThicknessCm: measureProp(),
			keyPieceCount:  measureProp(),
			keyQuantity:    measureProp(),
			keyReference:   stringProp(),
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			keyHeader: header,
			keyItems: map[string]any{
				"type":  "array",
				"items": item,
			},
			keyDeclaredTotal: map[string]any{"type": []string{"number", "null"}, "minimum": 0},
			keyConfidence:    map[string]any{"type": []string{"number", "null"}, "minimum": 0.0, "maximum": 1.0},
			keyWarnings: map[string]any{
				"type":  "array",
				"items": stringProp(),
			},
		},
		"required": []string{keyItems},
	}
}

func stringProp() map[string]any {
	return map[string]any{"type": "string"}
}

func measureProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0}
}

func joinQuoted(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += `"` + v + `"`
	}
	return out
}
