package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/metrics"
)

// DefaultBaseDelay is the wait after the first failed attempt. Tests override it.
var DefaultBaseDelay = time.Second

const DefaultMaxAttempts = 3

// ModelCallFailedError is returned once every attempt has failed.
type ModelCallFailedError struct {
	Attempts int
	Last     error
}

func (e *ModelCallFailedError) Error() string {
	return fmt.Sprintf("model call failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *ModelCallFailedError) Unwrap() error { return e.Last }

func (e *ModelCallFailedError) Is(target error) bool {
	return target == common.ErrModelCallFailed
}

type RetryConfig struct {
	MaxAttempts int           // default 3
	BaseDelay   time.Duration // default DefaultBaseDelay; doubled after each failure
	// Sleep waits for d or until ctx is done. Defaults to a timer select.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RetryingClient retries any ModelClient with exponential backoff. Attempts are
// strictly sequential and every error is treated as transient.
type RetryingClient struct {
	inner  ModelClient
	cfg    RetryConfig
	logger *slog.Logger
}

func NewRetryingClient(inner ModelClient, cfg RetryConfig, logger *slog.Logger) *RetryingClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	return &RetryingClient{inner: inner, cfg: cfg, logger: logger}
}

func (c *RetryingClient) Name() string { return ProviderName(c.inner) }

// Complete calls the inner client up to MaxAttempts times. The backoff is also
// taken after the final failure, so three failures wait 1s+2s+4s in total.
func (c *RetryingClient) Complete(ctx context.Context, req ModelRequest) (string, error) {
	provider := c.Name()
	delay := c.cfg.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		reply, err := c.inner.Complete(ctx, req)
		if err == nil {
			metrics.ObserveModelAttempt(provider, "ok")
			if attempt > 1 {
				c.logger.Info("llm.retry.recovered", "provider", provider, "attempt", attempt)
			}
			return reply, nil
		}
		lastErr = err
		metrics.ObserveModelAttempt(provider, "error")
		c.logger.Warn("llm.retry.attempt_failed",
			"provider", provider,
			"attempt", attempt,
			"max_attempts", c.cfg.MaxAttempts,
			"backoff_ms", delay.Milliseconds(),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if err := c.cfg.Sleep(ctx, delay); err != nil {
			return "", &ModelCallFailedError{Attempts: attempt, Last: err}
		}
		delay *= 2
	}

	c.logger.Error("llm.retry.exhausted", "provider", provider, "attempts", c.cfg.MaxAttempts, "error", lastErr)
	return "", &ModelCallFailedError{Attempts: c.cfg.MaxAttempts, Last: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
