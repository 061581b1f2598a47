// Package gemini is the document-capable provider: PDF bytes go to the model
// inline next to the instructions.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/debitsheet-import/internal/llm"
)

type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	Model       string // default "gemini-2.5-flash"
	BaseURL     string // override for tests and proxies
	Temperature float32
	Timeout     time.Duration // per call, default 90s
}

type Client struct {
	cfg    Config
	client *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	logger.Info("llm.gemini.client_created", "model", cfg.Model)
	return &Client{cfg: cfg, client: gc, logger: logger}, nil
}

func (c *Client) Name() string { return "gemini" }

// Complete implements llm.ModelClient. The document is attached when present;
// otherwise the user prompt carries the text excerpt.
func (c *Client) Complete(ctx context.Context, req llm.ModelRequest) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var parts []*genai.Part
	if len(req.Document) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Document, req.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.UserPrompt))

	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
	}

	c.logger.Info("llm.gemini.start",
		"model", c.cfg.Model,
		"document", req.DocumentName,
		"inline_bytes", len(req.Document),
		"text_len", len(req.TextExcerpt),
	)

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, contentConfig)
	if err != nil {
		c.logger.Warn("llm.gemini.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty gemini reply")
	}

	c.logger.Info("llm.gemini.ok", "reply_len", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
