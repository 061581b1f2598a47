package llm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/debitsheet-import/internal/utils"
)

// Canonical keys of the draft document validated against BuildDraftJSONSchema.
const (
	keyHeader        = "header"
	keyItems         = "items"
	keyDeclaredTotal = "declared_total_quantity"
	keyConfidence    = "confidence"
	keyWarnings      = "warnings"

	keyOrderNumber     = "order_number"
	keyARCNumber       = "arc_number"
	keyOrderDate       = "order_date"
	keyDueDate         = "due_date"
	keyClientName      = "client_name"
	keySiteReference   = "site_reference"
	keySalespersonCode = "salesperson_code"

	keyDescription  = "description"
	keyMaterialName = "material_name"
	keyFinish       = "finish"
	keyLengthCm     = "length_cm"
	keyWidthCm      = "width_cm"
	keyThicknessCm  = "thickness_cm"
	keyPieceCount   = "piece_count"
	keyQuantity     = "quantity"
	keyReference    = "reference"
)

// Aliases are matched after folding: lowercase, letters and digits only.
var topAliases = map[string]string{
	"header": keyHeader, "entete": keyHeader, "entête": keyHeader,
	"items": keyItems, "lignes": keyItems, "lines": keyItems, "lineitems": keyItems,
	"declaredtotalquantity": keyDeclaredTotal, "totalquantite": keyDeclaredTotal, "totalquantity": keyDeclaredTotal, "total": keyDeclaredTotal,
	"confidence": keyConfidence, "confiance": keyConfidence,
	"warnings": keyWarnings, "avertissements": keyWarnings,
}

var headerAliases = map[string]string{
	"ordernumber": keyOrderNumber, "numeroos": keyOrderNumber, "os": keyOrderNumber, "orderno": keyOrderNumber,
	"arcnumber": keyARCNumber, "numeroarc": keyARCNumber, "arc": keyARCNumber,
	"orderdate": keyOrderDate, "datecommande": keyOrderDate,
	"duedate": keyDueDate, "datelivraison": keyDueDate, "deliverydate": keyDueDate,
	"clientname": keyClientName, "client": keyClientName, "customer": keyClientName,
	"sitereference": keySiteReference, "chantier": keySiteReference, "site": keySiteReference,
	"salespersoncode": keySalespersonCode, "salesperson": keySalespersonCode, "commercial": keySalespersonCode,
}

var itemAliases = map[string]string{
	"description": keyDescription, "designation": keyDescription, "libelle": keyDescription,
	"materialname": keyMaterialName, "material": keyMaterialName, "materiaux": keyMaterialName, "materiau": keyMaterialName,
	"finish": keyFinish, "finition": keyFinish,
	"lengthcm": keyLengthCm, "length": keyLengthCm, "longueur": keyLengthCm,
	"widthcm": keyWidthCm, "width": keyWidthCm, "largeur": keyWidthCm,
	"thicknesscm": keyThicknessCm, "thickness": keyThicknessCm, "epaisseur": keyThicknessCm,
	"piececount": keyPieceCount, "pieces": keyPieceCount, "nbpieces": keyPieceCount,
	"quantity": keyQuantity, "declaredquantity": keyQuantity, "qte": keyQuantity, "quantite": keyQuantity,
	"reference": keyReference, "ref": keyReference, "code": keyReference,
}

var numericItemKeys = map[string]bool{
	keyLengthCm: true, keyWidthCm: true, keyThicknessCm: true, keyPieceCount: true, keyQuantity: true,
}

func foldKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CoerceDraft maps a decoded reply onto the canonical key set. Header fields may
// sit under a header object or at the top level. Unknown keys are reported in
// ignored. rawHeader keeps every header value under the key the model used.
func CoerceDraft(raw map[string]any) (doc map[string]any, rawHeader map[string]string, ignored []string) {
	doc = map[string]any{}
	header := map[string]any{}
	rawHeader = map[string]string{}

	addHeader := func(origKey, canon string, v any) {
		s := stringValue(v)
		rawHeader[origKey] = s
		if _, exists := header[canon]; !exists || header[canon] == "" {
			header[canon] = s
		}
	}

	for _, k := range sortedKeys(raw) {
		v := raw[k]
		folded := foldKey(k)
		if canon, ok := topAliases[folded]; ok {
			switch canon {
			case keyHeader:
				if hm, ok := v.(map[string]any); ok {
					for _, hk := range sortedKeys(hm) {
						if hc, ok := headerAliases[foldKey(hk)]; ok {
							addHeader(hk, hc, hm[hk])
						} else {
							ignored = append(ignored, k+"."+hk)
						}
					}
				} else {
					ignored = append(ignored, k)
				}
			case keyItems:
				doc[keyItems] = coerceItems(v, &ignored)
			case keyDeclaredTotal, keyConfidence:
				doc[canon] = numberOrOriginal(v)
			case keyWarnings:
				doc[keyWarnings] = v
			}
			continue
		}
		if hc, ok := headerAliases[folded]; ok {
			addHeader(k, hc, v)
			continue
		}
		ignored = append(ignored, k)
	}

	doc[keyHeader] = header
	if _, ok := doc[keyItems]; !ok {
		doc[keyItems] = []any{}
	}
	return doc, rawHeader, ignored
}

func coerceItems(v any, ignored *[]string) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			out = append(out, entry)
			continue
		}
		item := map[string]any{}
		for _, k := range sortedKeys(obj) {
			canon, ok := itemAliases[foldKey(k)]
			if !ok {
				*ignored = append(*ignored, fmt.Sprintf("items[%d].%s", i, k))
				continue
			}
			if _, exists := item[canon]; exists {
				continue
			}
			val := obj[k]
			if val == nil {
				continue
			}
			if numericItemKeys[canon] {
				item[canon] = numberOrOriginal(val)
			} else {
				item[canon] = stringValue(val)
			}
		}
		out = append(out, item)
	}
	return out
}

// numberOrOriginal converts permissively; values that are not numbers are kept
// so schema validation can report and drop them.
func numberOrOriginal(v any) any {
	if v == nil {
		return nil
	}
	if f, ok := utils.ParseNumber(v); ok {
		return f
	}
	return v
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
