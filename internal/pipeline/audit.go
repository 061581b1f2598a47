package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/llm"
	"github.com/joseph-ayodele/debitsheet-import/internal/repository"
)

// DefaultRawSampleChars bounds the model reply kept on the audit record.
const DefaultRawSampleChars = 2000

const auditTimeout = 5 * time.Second

// AuditWriter appends extraction log entries. Write failures are logged and
// never returned, so they cannot change the outcome of an extraction.
type AuditWriter struct {
	logs           repository.ExtractionLogRepository
	rawSampleChars int
	logger         *slog.Logger
}

func NewAuditWriter(logs repository.ExtractionLogRepository, rawSampleChars int, logger *slog.Logger) *AuditWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if rawSampleChars <= 0 {
		rawSampleChars = DefaultRawSampleChars
	}
	return &AuditWriter{logs: logs, rawSampleChars: rawSampleChars, logger: logger}
}

// Write stores the entry for one finished extraction. It runs detached from
// the caller's cancellation so a timed-out request is still audited.
func (w *AuditWriter) Write(ctx context.Context, ec *ExtractionContext, res *Result, procErr error) {
	if w == nil || w.logs == nil {
		return
	}
	entry := w.entry(ec, res, procErr)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := w.logs.Insert(ctx, entry); err != nil {
		w.logger.Error("audit.write_failed",
			"request_id", ec.RequestID,
			"document", ec.DocumentName,
			"status", entry.Status,
			"error", err,
		)
		return
	}
	w.logger.Debug("audit.write_ok", "request_id", ec.RequestID, "log_id", entry.ID)
}

func (w *AuditWriter) entry(ec *ExtractionContext, res *Result, procErr error) *entity.ExtractionLogEntry {
	entry := &entity.ExtractionLogEntry{
		Timestamp:      ec.Started,
		RequestID:      ec.RequestID,
		DocumentName:   ec.DocumentName,
		Method:         ec.Method,
		Status:         constants.StatusError,
		RawModelSample: llm.Sample(ec.RawReply, w.rawSampleChars),
		Warnings:       append([]string(nil), ec.Warnings...),
		DurationMs:     ec.Elapsed().Milliseconds(),
		SubmittedBy:    ec.SubmittedBy,
		PromptVersion:  constants.PromptVersion,
	}
	if procErr != nil {
		entry.ErrorMessage = procErr.Error()
	}
	if res != nil {
		entry.Status = res.Status
		entry.OrderID = res.OrderID
		if res.Draft != nil {
			entry.Confidence = res.Draft.OverallConfidence
			if b, err := json.Marshal(res.Draft); err == nil {
				entry.ParsedDraft = b
			}
		}
	}
	return entry
}
