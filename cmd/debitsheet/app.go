package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/document"
	"github.com/joseph-ayodele/debitsheet-import/internal/layout"
	"github.com/joseph-ayodele/debitsheet-import/internal/llm"
	"github.com/joseph-ayodele/debitsheet-import/internal/llm/gemini"
	"github.com/joseph-ayodele/debitsheet-import/internal/llm/openai"
	"github.com/joseph-ayodele/debitsheet-import/internal/material"
	"github.com/joseph-ayodele/debitsheet-import/internal/ocr"
	"github.com/joseph-ayodele/debitsheet-import/internal/pipeline"
	"github.com/joseph-ayodele/debitsheet-import/internal/reconcile"
	"github.com/joseph-ayodele/debitsheet-import/internal/repository"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	db        *repository.DB
	orders    repository.OrderRepository
	catalog   repository.CatalogRepository
	logs      repository.ExtractionLogRepository
	processor *pipeline.Processor
}

// openApp connects the database and runs migrations. inMemory swaps the
// configured database for a throwaway SQLite one.
func openApp(ctx context.Context, cfg *common.Config, logger *slog.Logger, inMemory bool) (*app, error) {
	var (
		db  *repository.DB
		err error
	)
	if inMemory {
		db, err = repository.OpenSQLite(ctx, "", logger)
	} else {
		db, err = repository.Open(ctx, repository.Config{
			Driver:           cfg.Database.Driver,
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		orders:  repository.NewOrderRepository(db, logger),
		catalog: repository.NewCatalogRepository(db, logger),
		logs:    repository.NewExtractionLogRepository(db, logger),
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// withProcessor builds the extraction pipeline on top of the repositories.
func (a *app) withProcessor(ctx context.Context) error {
	router, err := buildRouter(ctx, a.cfg.LLM, a.logger)
	if err != nil {
		return err
	}
	policy := material.Policy{AmbiguousBoth: a.cfg.Pipeline.AmbiguousBoth}

	docCfg := document.Config{MaxPages: a.cfg.Pipeline.MaxPages}
	if c := a.cfg.OCR; c.Enabled {
		docCfg.OCR = ocr.NewRecognizer(ocr.Config{
			Pdftoppm:      c.Pdftoppm,
			Tesseract:     c.Tesseract,
			Lang:          c.Lang,
			DPI:           c.DPI,
			MaxPages:      c.MaxPages,
			MinConfidence: c.MinConfidence,
		}, a.logger)
	}

	deps := pipeline.Deps{
		Extractor: document.NewExtractor(docCfg, a.logger),
		Layout: layout.NewParser(layout.Config{
			RowTolerance:   a.cfg.Pipeline.RowTolerance,
			HeaderKeywords: a.cfg.Pipeline.HeaderKeywords,
			Policy:         policy,
		}, a.logger),
		Reconciler: reconcile.NewReconciler(reconcile.Config{Tolerance: a.cfg.Pipeline.Tolerance}, a.logger),
		Orders:     a.orders,
		Catalog:    a.catalog,
		Audit:      pipeline.NewAuditWriter(a.logs, a.cfg.Pipeline.RawSampleChars, a.logger),
	}
	if router != nil {
		deps.Router = router
	}
	a.processor = pipeline.NewProcessor(pipeline.Config{
		MinConfidence:   a.cfg.Pipeline.MinConfidence,
		FallbackEnabled: a.cfg.Pipeline.FallbackEnabled,
		ExcerptChars:    a.cfg.LLM.ExcerptChars,
		Policy:          policy,
	}, deps, a.logger)
	return nil
}

// buildRouter wires the configured providers behind retries. It returns nil
// when no provider is available, leaving only the layout fallback.
func buildRouter(ctx context.Context, c common.LLMConfig, logger *slog.Logger) (*llm.Router, error) {
	retry := llm.RetryConfig{MaxAttempts: c.MaxAttempts, BaseDelay: c.BaseDelay}
	router := &llm.Router{}

	useGemini := c.Provider == common.ProviderGemini || (c.Provider == common.ProviderAuto && c.GeminiAPIKey != "")
	useOpenAI := c.Provider == common.ProviderOpenAI || (c.Provider == common.ProviderAuto && c.OpenAIAPIKey != "")

	if useGemini {
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      c.GeminiAPIKey,
			Model:       c.GeminiModel,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		router.Document = llm.NewRetryingClient(client, retry, logger)
	}
	if useOpenAI {
		client := openai.NewClient(openai.Config{
			APIKey:      c.OpenAIAPIKey,
			BaseURL:     c.OpenAIBaseURL,
			Model:       c.OpenAIModel,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		}, logger)
		router.Text = llm.NewRetryingClient(client, retry, logger)
	}

	if router.Document == nil && router.Text == nil {
		logger.Warn("llm.provider.none", "provider", c.Provider, "fallback", "layout only")
		return nil, nil
	}
	logger.Info("llm.provider.ready",
		"provider", c.Provider,
		"document", router.Document != nil,
		"text", router.Text != nil,
	)
	return router, nil
}
