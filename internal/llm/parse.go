package llm

import (
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/material"
)

// DefaultReplyConfidence applies when the reply carries no confidence of its own.
const DefaultReplyConfidence = 0.5

type ParseOptions struct {
	Policy            material.Policy
	DefaultConfidence float64
	Logger            *slog.Logger
}

// ParseModelReply turns a raw model reply into a draft. Only a reply that no
// repair stage can decode is an error; schema problems drop the offending
// values and are reported as draft warnings.
func ParseModelReply(reply string, opts ParseOptions) (*entity.DebitOrderDraft, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	raw, stage, err := ParseJSONReply(reply)
	if err != nil {
		logger.Warn("llm.parse.unparsable", "reply_len", len(reply), "error", err)
		return nil, err
	}
	if stage != "direct" {
		logger.Info("llm.parse.repaired", "stage", stage)
	}

	doc, rawHeader, ignored := CoerceDraft(raw)
	if len(ignored) > 0 {
		logger.Debug("llm.parse.ignored_keys", "keys", ignored)
	}

	var dropped []string
	if err := ValidateDraft(doc); err != nil {
		dropped = SanitizeOptionalFields(doc)
		if vErr := ValidateDraft(doc); vErr != nil {
			logger.Warn("llm.parse.schema_validation_failed", "error", vErr, "dropped", dropped)
		} else {
			logger.Warn("llm.parse.lenient_sanitize_applied", "dropped", dropped)
		}
	}

	draft := DraftFromCanonical(doc, rawHeader, opts)
	for _, path := range dropped {
		draft.AddWarning("dropped invalid value at " + path)
	}

	logger.Info("llm.parse.ok",
		"items", len(draft.Items),
		"confidence", draft.OverallConfidence,
		"warnings", len(draft.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return draft, nil
}

// DraftFromCanonical builds a draft from a canonical document. Values of the
// wrong type are treated as absent.
func DraftFromCanonical(doc map[string]any, rawHeader map[string]string, opts ParseOptions) *entity.DebitOrderDraft {
	confidence := opts.DefaultConfidence
	if confidence <= 0 {
		confidence = DefaultReplyConfidence
	}
	if f, ok := doc[keyConfidence].(float64); ok && f >= 0 && f <= 1 {
		confidence = f
	}

	header, _ := doc[keyHeader].(map[string]any)
	field := func(key string) entity.Field[string] {
		s, _ := header[key].(string)
		if s == "" {
			return entity.NewField("", 0, constants.SourceModel)
		}
		return entity.NewField(s, confidence, constants.SourceModel)
	}

	draft := &entity.DebitOrderDraft{
		Header: entity.DraftHeader{
			OrderNumber:     field(keyOrderNumber),
			ARCNumber:       field(keyARCNumber),
			OrderDate:       field(keyOrderDate),
			DueDate:         field(keyDueDate),
			ClientName:      field(keyClientName),
			SiteReference:   field(keySiteReference),
			SalespersonCode: field(keySalespersonCode),
		},
		RawHeader:         rawHeader,
		Items:             []entity.LineItem{},
		OverallConfidence: confidence,
	}

	if f, ok := doc[keyDeclaredTotal].(float64); ok {
		draft.DeclaredTotalQuantity = entity.NewField(&f, confidence, constants.SourceModel)
	} else {
		draft.DeclaredTotalQuantity = entity.NewField[*float64](nil, 0, constants.SourceModel)
	}

	if warnings, ok := doc[keyWarnings].([]any); ok {
		for _, w := range warnings {
			if s, ok := w.(string); ok && s != "" {
				draft.AddWarning(s)
			}
		}
	}

	list, _ := doc[keyItems].([]any)
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := itemFromCanonical(obj)
		if item.MaterialName == "" && item.Description == "" {
			continue
		}
		if _, warning := material.Quantify(&item, opts.Policy); warning != "" {
			draft.AddWarning(warning)
		}
		draft.Items = append(draft.Items, item)
	}

	draft.ComputeTotals()
	return draft
}

func itemFromCanonical(obj map[string]any) entity.LineItem {
	str := func(k string) string {
		s, _ := obj[k].(string)
		return s
	}
	num := func(k string) float64 {
		f, _ := obj[k].(float64)
		return f
	}
	item := entity.LineItem{
		Description:      str(keyDescription),
		MaterialName:     str(keyMaterialName),
		Finish:           str(keyFinish),
		LengthCm:         num(keyLengthCm),
		WidthCm:          num(keyWidthCm),
		ThicknessCm:      num(keyThicknessCm),
		PieceCount:       int(math.Round(num(keyPieceCount))),
		DeclaredQuantity: num(keyQuantity),
		Reference:        str(keyReference),
	}
	if f, ok := constants.CanonicalFinish(item.Finish); ok {
		item.Finish = string(f)
	}
	if item.MaterialName == "" {
		item.MaterialName = item.Description
	}
	return item
}
