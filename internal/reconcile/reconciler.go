// Package reconcile matches extracted lines against the catalog snapshot and
// checks the draft for gaps an operator must review. It never fails.
package reconcile

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/material"
)

const DefaultTolerance = 0.05

const (
	WarnMissingARC         = "missing ARC reference"
	WarnMissingClient      = "missing client name"
	WarnMissingOrderNumber = "missing order number"
	WarnMissingDueDate     = "missing due date"
)

type Config struct {
	Tolerance float64 // relative gap between declared and computed totals, default 0.05
}

type Result struct {
	Items             []entity.MatchedLineItem `json:"items"`
	UnknownReferences []string                 `json:"unknown_references"`
	Warnings          []string                 `json:"warnings"`
}

type Reconciler struct {
	cfg    Config
	logger *slog.Logger
}

func NewReconciler(cfg Config, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &Reconciler{cfg: cfg, logger: logger}
}

// Reconcile matches every line by exact, case-insensitive code and returns the
// warnings for the draft. catalog is a point-in-time snapshot.
func (r *Reconciler) Reconcile(draft *entity.DebitOrderDraft, catalog []entity.CatalogReference) Result {
	index := make(map[string]string, len(catalog))
	for _, c := range catalog {
		key := strings.ToLower(strings.TrimSpace(c.Code))
		if _, dup := index[key]; !dup {
			index[key] = c.ID
		}
	}

	res := Result{
		Items:             make([]entity.MatchedLineItem, 0, len(draft.Items)),
		UnknownReferences: []string{},
		Warnings:          []string{},
	}
	seen := map[string]bool{}
	for _, item := range draft.Items {
		matched := entity.MatchedLineItem{LineItem: item}
		code := ReferenceCode(item)
		if code != "" {
			if id, ok := index[strings.ToLower(code)]; ok {
				matched.CatalogID = &id
				matched.Matched = true
			} else if !seen[code] {
				seen[code] = true
				res.UnknownReferences = append(res.UnknownReferences, code)
			}
		}
		res.Items = append(res.Items, matched)
	}

	if w := r.checkTotals(draft); w != "" {
		res.Warnings = append(res.Warnings, w)
	}
	res.Warnings = append(res.Warnings, MissingFieldWarnings(draft.Header)...)

	r.logger.Debug("reconcile.done",
		"items", len(res.Items),
		"unknown_references", len(res.UnknownReferences),
		"warnings", len(res.Warnings),
	)
	return res
}

// ReferenceCode is the explicit reference of a line, or the code at the end of its material name.
func ReferenceCode(item entity.LineItem) string {
	if ref := strings.TrimSpace(item.Reference); ref != "" {
		return ref
	}
	return material.TrailingCode(item.MaterialName)
}

func (r *Reconciler) checkTotals(draft *entity.DebitOrderDraft) string {
	declared := draft.DeclaredTotalQuantity.Value
	if declared == nil || *declared <= 0 {
		return ""
	}
	computed := draft.ComputedTotalArea + draft.ComputedTotalVolume
	gap := math.Abs(*declared-computed) / *declared
	if gap <= r.cfg.Tolerance {
		return ""
	}
	return fmt.Sprintf("declared total %g differs from computed total %g by %.1f%%", *declared, computed, gap*100)
}

// MissingFieldWarnings names each critical header field that is empty.
func MissingFieldWarnings(h entity.DraftHeader) []string {
	var out []string
	if strings.TrimSpace(h.ARCNumber.Value) == "" {
		out = append(out, WarnMissingARC)
	}
	if strings.TrimSpace(h.ClientName.Value) == "" {
		out = append(out, WarnMissingClient)
	}
	if strings.TrimSpace(h.OrderNumber.Value) == "" {
		out = append(out, WarnMissingOrderNumber)
	}
	if strings.TrimSpace(h.DueDate.Value) == "" {
		out = append(out, WarnMissingDueDate)
	}
	return out
}
