package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

// ExtractionLogRepository is append-only: entries are never updated or deleted.
type ExtractionLogRepository interface {
	Insert(ctx context.Context, entry *entity.ExtractionLogEntry) error
	List(ctx context.Context, limit int) ([]*entity.ExtractionLogEntry, error)
}

type extractionLogRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewExtractionLogRepository(db *DB, logger *slog.Logger) ExtractionLogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &extractionLogRepository{db: db, logger: logger}
}

var extractionLogColumns = columnNames(ExtractionLogsTable)

// Insert appends entry. A zero ID or Timestamp is filled in.
func (r *extractionLogRepository) Insert(ctx context.Context, entry *entity.ExtractionLogEntry) error {
	if entry == nil {
		return common.NewAppError("INVALID_LOG", "nil extraction log entry", common.ErrInvalidInput)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	warnings := entry.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}

	spec := sqlgraph.NewCreateSpec(tableExtractions, sqlgraph.NewFieldSpec("id", field.TypeUUID))
	spec.ID.Value = &entry.ID
	spec.SetField("created_at", field.TypeTime, entry.Timestamp.UTC())
	spec.SetField("request_id", field.TypeString, entry.RequestID)
	spec.SetField("document_name", field.TypeString, entry.DocumentName)
	spec.SetField("method", field.TypeString, string(entry.Method))
	spec.SetField("status", field.TypeString, string(entry.Status))
	spec.SetField("raw_model_sample", field.TypeString, entry.RawModelSample)
	if len(entry.ParsedDraft) > 0 {
		spec.SetField("parsed_draft", field.TypeString, string(entry.ParsedDraft))
	}
	spec.SetField("warnings", field.TypeString, string(warningsJSON))
	spec.SetField("confidence", field.TypeFloat64, entry.Confidence)
	spec.SetField("duration_ms", field.TypeInt64, entry.DurationMs)
	spec.SetField("error_message", field.TypeString, entry.ErrorMessage)
	if entry.OrderID != nil {
		spec.SetField("order_id", field.TypeUUID, *entry.OrderID)
	}
	spec.SetField("submitted_by", field.TypeString, entry.SubmittedBy)
	spec.SetField("prompt_version", field.TypeString, entry.PromptVersion)

	if err := sqlgraph.CreateNode(ctx, r.db.Driver, spec); err != nil {
		r.logger.Error("repository.extraction_log.insert_failed", "document", entry.DocumentName, "error", err)
		return common.NewAppError("LOG_INSERT_FAILED", "insert extraction log", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Debug("repository.extraction_log.insert_ok", "log_id", entry.ID, "status", entry.Status)
	return nil
}

// List returns the newest entries first.
func (r *extractionLogRepository) List(ctx context.Context, limit int) ([]*entity.ExtractionLogEntry, error) {
	var out []*entity.ExtractionLogEntry
	spec := sqlgraph.NewQuerySpec(tableExtractions, extractionLogColumns, sqlgraph.NewFieldSpec("id", field.TypeUUID))
	spec.Order = func(s *entsql.Selector) {
		s.OrderBy(entsql.Desc(s.C("created_at")))
	}
	if limit > 0 {
		spec.Limit = limit
	}
	spec.ScanValues = scanTargets(ExtractionLogsTable)
	spec.Assign = func(columns []string, values []any) error {
		rec, err := toRecord(columns, values)
		if err != nil {
			return err
		}
		e := &entity.ExtractionLogEntry{
			ID:             rec.uid("id"),
			Timestamp:      rec.timeAt("created_at"),
			RequestID:      rec.str("request_id"),
			DocumentName:   rec.str("document_name"),
			Method:         constants.ExtractionMethod(rec.str("method")),
			Status:         constants.ExtractionStatus(rec.str("status")),
			RawModelSample: rec.str("raw_model_sample"),
			Confidence:     rec.float("confidence"),
			DurationMs:     rec.int64("duration_ms"),
			ErrorMessage:   rec.str("error_message"),
			OrderID:        rec.uidPtr("order_id"),
			SubmittedBy:    rec.str("submitted_by"),
			PromptVersion:  rec.str("prompt_version"),
		}
		if draft := rec.str("parsed_draft"); draft != "" {
			e.ParsedDraft = json.RawMessage(draft)
		}
		if w := rec.str("warnings"); w != "" {
			if err := json.Unmarshal([]byte(w), &e.Warnings); err != nil {
				r.logger.Warn("repository.extraction_log.bad_warnings", "log_id", e.ID, "error", err)
			}
		}
		out = append(out, e)
		return nil
	}
	if err := sqlgraph.QueryNodes(ctx, r.db.Driver, spec); err != nil {
		r.logger.Error("repository.extraction_log.list_failed", "error", err)
		return nil, common.NewAppError("LOG_QUERY_FAILED", "query extraction logs", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}
