package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/layout"
	"github.com/joseph-ayodele/debitsheet-import/internal/llm"
	"github.com/joseph-ayodele/debitsheet-import/internal/material"
	"github.com/joseph-ayodele/debitsheet-import/internal/metrics"
	"github.com/joseph-ayodele/debitsheet-import/internal/reconcile"
	"github.com/joseph-ayodele/debitsheet-import/internal/repository"
)

const (
	// DefaultMinConfidence is the overall confidence below which a draft needs review.
	DefaultMinConfidence = 0.6
	// FallbackConfidence is the overall confidence of a draft built by the layout parser.
	FallbackConfidence = 0.5
)

// Warnings the orchestration itself adds to a draft.
const (
	WarnNoItems            = "no line items extracted"
	WarnFallbackAfterError = "model extraction failed, layout fallback used"
	WarnFallbackNoItems    = "model returned no line items, layout fallback used"
	WarnFallbackNoProvider = "no model provider configured, layout fallback used"
)

// ErrNoExtractionMethod means neither a model provider nor the layout fallback
// could handle the document.
var ErrNoExtractionMethod = errors.New("no extraction method available for document")

type DocumentExtractor interface {
	Extract(ctx context.Context, doc entity.SourceDocument) (*entity.DocumentLayout, error)
}

type ModelRouter interface {
	Route(format constants.DocumentFormat) (llm.ModelClient, constants.ExtractionMethod, bool)
}

type LayoutParser interface {
	ParseLayout(pages [][]entity.PositionedToken) layout.Result
}

// Config holds thresholds and behavior flags for the processor.
type Config struct {
	MinConfidence   float64 // default 0.6
	FallbackEnabled bool
	ExcerptChars    int
	Policy          material.Policy
}

// Deps are the collaborators of a Processor. Router may be nil when no model
// provider is configured.
type Deps struct {
	Extractor  DocumentExtractor
	Router     ModelRouter
	Layout     LayoutParser
	Reconciler *reconcile.Reconciler
	Orders     repository.OrderRepository
	Catalog    repository.CatalogRepository
	Audit      *AuditWriter
}

type Options struct {
	PreviewOnly bool   // run extraction and reconciliation, skip persistence
	SubmittedBy string // falls back to the user stored on the context
}

// Result is the outcome of one successful extraction.
type Result struct {
	RequestID      string
	OrderID        *uuid.UUID
	Draft          *entity.DebitOrderDraft
	Reconciliation reconcile.Result
	Format         constants.DocumentFormat
	Method         constants.ExtractionMethod
	Status         constants.ExtractionStatus
	Warnings       []string
	ProcessingTime time.Duration
}

// Processor coordinates extraction, the model path or the layout fallback,
// reconciliation, persistence and the audit record for one document.
type Processor struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

func NewProcessor(cfg Config, deps Deps, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if deps.Reconciler == nil {
		deps.Reconciler = reconcile.NewReconciler(reconcile.Config{}, logger)
	}
	if deps.Layout == nil {
		deps.Layout = layout.NewParser(layout.Config{Policy: cfg.Policy}, logger)
	}
	return &Processor{cfg: cfg, deps: deps, logger: logger, now: time.Now}
}

// Process runs one extraction to completion. Every call is audited, whatever
// the outcome. Each call is independent; nothing is shared between calls.
func (p *Processor) Process(ctx context.Context, doc entity.SourceDocument, opts Options) (*Result, error) {
	ec := NewExtractionContext(common.RequestIDFromContext(ctx), doc.Name, p.now())
	ec.SubmittedBy = opts.SubmittedBy
	if ec.SubmittedBy == "" {
		ec.SubmittedBy = common.UserIDFromContext(ctx)
	}
	p.logger.Info("pipeline.start",
		"request_id", ec.RequestID,
		"document", doc.Name,
		"bytes", len(doc.Data),
		"preview", opts.PreviewOnly,
	)

	res, err := p.run(ctx, ec, doc, opts)
	if res != nil {
		res.ProcessingTime = ec.Elapsed()
	}
	p.deps.Audit.Write(ctx, ec, res, err)

	status := constants.StatusError
	if res != nil && err == nil {
		status = res.Status
	}
	metrics.ObserveExtraction(string(ec.Method), string(status), ec.Elapsed())

	if err != nil {
		p.logger.Error("pipeline.failed",
			"request_id", ec.RequestID,
			"document", doc.Name,
			"method", ec.Method,
			"error", err,
			"elapsed_ms", ec.Elapsed().Milliseconds(),
		)
		return nil, err
	}
	p.logger.Info("pipeline.ok",
		"request_id", ec.RequestID,
		"document", doc.Name,
		"method", res.Method,
		"status", res.Status,
		"items", len(res.Draft.Items),
		"warnings", len(res.Warnings),
		"elapsed_ms", ec.Elapsed().Milliseconds(),
	)
	return res, nil
}

func (p *Processor) run(ctx context.Context, ec *ExtractionContext, doc entity.SourceDocument, opts Options) (*Result, error) {
	docLayout, err := p.deps.Extractor.Extract(ctx, doc)
	if err != nil {
		ec.Record("extract", err.Error())
		return nil, err
	}
	ec.Format = docLayout.Format
	ec.Record("extract", fmt.Sprintf("%s, %d page(s), %d token(s)", docLayout.Format, len(docLayout.Pages), docLayout.TokenCount()))

	draft, modelErr := p.modelStage(ctx, ec, doc, docLayout)
	if modelErr != nil || len(draft.Items) == 0 {
		if fb, ok := p.fallbackStage(ec, docLayout, draft, modelErr); ok {
			draft = fb
		} else if modelErr != nil {
			return nil, modelErr
		}
	}
	ec.Warn(draft.Warnings...)
	if len(draft.Items) == 0 {
		ec.Warn(WarnNoItems)
	}

	catalog, err := p.deps.Catalog.List(ctx)
	if err != nil {
		ec.Record("reconcile", err.Error())
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}
	rec := p.deps.Reconciler.Reconcile(draft, catalog)
	ec.Warn(rec.Warnings...)
	ec.Record("reconcile", fmt.Sprintf("%d item(s), %d unknown reference(s)", len(rec.Items), len(rec.UnknownReferences)))

	res := &Result{
		RequestID:      ec.RequestID,
		Draft:          draft,
		Reconciliation: rec,
		Format:         ec.Format,
		Method:         ec.Method,
		Warnings:       append([]string{}, ec.Warnings...),
	}
	res.Status = p.status(res)

	if opts.PreviewOnly {
		ec.Record("commit", "skipped in preview mode")
		return res, nil
	}

	order, err := p.deps.Orders.Commit(ctx, &repository.CommitRequest{
		Draft:          draft,
		Items:          rec.Items,
		SourceDocument: doc.Name,
		SubmittedBy:    ec.SubmittedBy,
		NeedsReview:    res.Status == constants.StatusNeedsReview,
	})
	if err != nil {
		ec.Record("commit", err.Error())
		res.Status = constants.StatusError
		return res, err
	}
	res.OrderID = &order.ID
	ec.Record("commit", "order "+order.ID.String())
	return res, nil
}

// modelStage asks the routed provider for the draft. A nil draft is only
// returned together with an error.
func (p *Processor) modelStage(ctx context.Context, ec *ExtractionContext, doc entity.SourceDocument, docLayout *entity.DocumentLayout) (*entity.DebitOrderDraft, error) {
	if p.deps.Router == nil {
		ec.Record("model", "no provider configured")
		return nil, ErrNoExtractionMethod
	}
	client, method, ok := p.deps.Router.Route(docLayout.Format)
	if !ok {
		ec.Record("model", "no provider for "+string(docLayout.Format))
		return nil, ErrNoExtractionMethod
	}

	start := time.Now()
	req := llm.BuildRequest(doc, docLayout, method, p.cfg.ExcerptChars)
	reply, err := client.Complete(ctx, req)
	if err != nil {
		ec.Record("model", err.Error())
		return nil, err
	}
	ec.RawReply = reply

	draft, err := llm.ParseModelReply(reply, llm.ParseOptions{Policy: p.cfg.Policy, Logger: p.logger})
	if err != nil {
		ec.Record("parse", err.Error())
		return nil, err
	}
	ec.Method = method
	ec.Record("model", fmt.Sprintf("%s via %s, %d item(s) in %dms", method, llm.ProviderName(client), len(draft.Items), time.Since(start).Milliseconds()))
	return draft, nil
}

// fallbackStage rebuilds the items from token positions. ok is false when the
// fallback is disabled, the format has no layout, or it finds nothing.
func (p *Processor) fallbackStage(ec *ExtractionContext, docLayout *entity.DocumentLayout, modelDraft *entity.DebitOrderDraft, modelErr error) (*entity.DebitOrderDraft, bool) {
	if !p.cfg.FallbackEnabled {
		ec.Record("fallback", "disabled")
		return nil, false
	}
	if !docLayout.Format.HasLayout() || docLayout.TokenCount() == 0 {
		ec.Record("fallback", "no positioned tokens for "+string(docLayout.Format))
		return nil, false
	}

	parsed := p.deps.Layout.ParseLayout(docLayout.Pages)
	if len(parsed.Items) == 0 {
		ec.Record("fallback", fmt.Sprintf("no items in %d row(s)", parsed.Stats.Rows))
		return nil, false
	}

	draft := &entity.DebitOrderDraft{
		Items:             parsed.Items,
		OverallConfidence: FallbackConfidence,
		Warnings:          []string{},
	}
	if modelDraft != nil {
		draft.Header = modelDraft.Header
		draft.RawHeader = modelDraft.RawHeader
		draft.DeclaredTotalQuantity = modelDraft.DeclaredTotalQuantity
		for _, w := range modelDraft.Warnings {
			draft.AddWarning(w)
		}
	} else {
		draft.Header = layout.HeaderFromText(docLayout.PlainText)
		draft.DeclaredTotalQuantity = entity.NewField[*float64](nil, 0, constants.SourceHeuristic)
	}

	switch {
	case errors.Is(modelErr, ErrNoExtractionMethod):
		draft.AddWarning(WarnFallbackNoProvider)
	case modelErr != nil:
		draft.AddWarning(WarnFallbackAfterError)
	default:
		draft.AddWarning(WarnFallbackNoItems)
	}
	for _, w := range parsed.Warnings {
		draft.AddWarning(w)
	}
	draft.ComputeTotals()

	ec.Method = constants.MethodLayoutFallback
	ec.Record("fallback", fmt.Sprintf("%d item(s), %d row(s) dropped", len(parsed.Items), parsed.Stats.Dropped))
	return draft, true
}

func (p *Processor) status(res *Result) constants.ExtractionStatus {
	switch {
	case len(res.Warnings) > 0,
		len(res.Reconciliation.UnknownReferences) > 0,
		res.Draft.OverallConfidence < p.cfg.MinConfidence:
		return constants.StatusNeedsReview
	default:
		return constants.StatusSuccess
	}
}
