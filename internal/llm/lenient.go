package llm

import (
	"fmt"
	"math"
	"sort"
)

var headerKeys = []string{
	keyOrderNumber, keyARCNumber, keyOrderDate, keyDueDate,
	keyClientName, keySiteReference, keySalespersonCode,
}

// SanitizeOptionalFields removes values that don't meet the draft schema so the
// overall document can still validate. Every field of a draft is optional, so
// nothing here is fatal. It returns the paths it dropped.
func SanitizeOptionalFields(doc map[string]any) []string {
	var dropped []string
	drop := func(m map[string]any, key, path string) {
		delete(m, key)
		dropped = append(dropped, path)
	}

	if h, ok := doc[keyHeader].(map[string]any); ok {
		for _, k := range headerKeys {
			if v, present := h[k]; present {
				if _, isString := v.(string); !isString {
					drop(h, k, "header."+k)
				}
			}
		}
	} else {
		doc[keyHeader] = map[string]any{}
		dropped = append(dropped, keyHeader)
	}

	if list, ok := doc[keyItems].([]any); ok {
		kept := make([]any, 0, len(list))
		for i, entry := range list {
			item, ok := entry.(map[string]any)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("items[%d]", i))
				continue
			}
			for k, v := range item {
				path := fmt.Sprintf("items[%d].%s", i, k)
				if numericItemKeys[k] {
					if !isMeasure(v) {
						drop(item, k, path)
					}
					continue
				}
				if _, isString := v.(string); !isString {
					drop(item, k, path)
				}
			}
			kept = append(kept, item)
		}
		doc[keyItems] = kept
	} else {
		doc[keyItems] = []any{}
		dropped = append(dropped, keyItems)
	}

	if v, present := doc[keyDeclaredTotal]; present && v != nil && !isMeasure(v) {
		drop(doc, keyDeclaredTotal, keyDeclaredTotal)
	}
	if v, present := doc[keyConfidence]; present && v != nil {
		if f, ok := v.(float64); !ok || f < 0 || f > 1 || math.IsNaN(f) {
			drop(doc, keyConfidence, keyConfidence)
		}
	}
	if v, present := doc[keyWarnings]; present {
		doc[keyWarnings] = stringsOnly(v)
	}
	sort.Strings(dropped)
	return dropped
}

func isMeasure(v any) bool {
	f, ok := v.(float64)
	return ok && f >= 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func stringsOnly(v any) []any {
	list, ok := v.([]any)
	if !ok {
		if s, isString := v.(string); isString && s != "" {
			return []any{s}
		}
		return []any{}
	}
	out := make([]any, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
