package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

type CatalogRepository interface {
	List(ctx context.Context) ([]entity.CatalogReference, error)
	Upsert(ctx context.Context, refs []entity.CatalogReference) (int, error)
}

type catalogRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewCatalogRepository(db *DB, logger *slog.Logger) CatalogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogRepository{db: db, logger: logger}
}

// List returns the whole catalog ordered by code. Callers treat the result as
// a read-only snapshot for one reconciliation.
func (r *catalogRepository) List(ctx context.Context) ([]entity.CatalogReference, error) {
	var out []entity.CatalogReference
	spec := sqlgraph.NewQuerySpec(tableCatalog, []string{"id", "code", "description", "unit_weight"}, sqlgraph.NewFieldSpec("id", field.TypeUUID))
	spec.Order = func(s *entsql.Selector) {
		s.OrderBy(entsql.Asc(s.C("code")))
	}
	spec.ScanValues = scanTargets(CatalogReferencesTable)
	spec.Assign = func(columns []string, values []any) error {
		rec, err := toRecord(columns, values)
		if err != nil {
			return err
		}
		out = append(out, entity.CatalogReference{
			ID:          rec.uid("id").String(),
			Code:        rec.str("code"),
			Description: rec.str("description"),
			UnitWeight:  rec.float("unit_weight"),
		})
		return nil
	}
	if err := sqlgraph.QueryNodes(ctx, r.db.Driver, spec); err != nil {
		r.logger.Error("repository.catalog.list_failed", "error", err)
		return nil, common.NewAppError("CATALOG_QUERY_FAILED", "query catalog", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

// Upsert inserts references by code, updating description and unit weight of
// codes already present. Blank codes are skipped. It returns the number written.
func (r *catalogRepository) Upsert(ctx context.Context, refs []entity.CatalogReference) (int, error) {
	start := time.Now()
	tx, err := r.db.Driver.Tx(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin catalog transaction: %w", err)
	}
	drv := newTxDriver(tx, r.db.Dialect())

	now := time.Now().UTC()
	written := 0
	for _, ref := range refs {
		code := strings.TrimSpace(ref.Code)
		if code == "" {
			continue
		}
		id := uuid.New()
		spec := sqlgraph.NewCreateSpec(tableCatalog, sqlgraph.NewFieldSpec("id", field.TypeUUID))
		spec.ID.Value = &id
		spec.SetField("code", field.TypeString, code)
		spec.SetField("description", field.TypeString, strings.TrimSpace(ref.Description))
		spec.SetField("unit_weight", field.TypeFloat64, ref.UnitWeight)
		spec.SetField("updated_at", field.TypeTime, now)
		spec.OnConflict = []entsql.ConflictOption{
			entsql.ConflictColumns("code"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("description")
				u.SetExcluded("unit_weight")
				u.SetExcluded("updated_at")
			}),
		}
		if err := sqlgraph.CreateNode(ctx, drv, spec); err != nil {
			_ = tx.Rollback()
			r.logger.Error("repository.catalog.upsert_failed", "code", code, "error", err)
			return 0, common.NewAppError("CATALOG_UPSERT_FAILED", fmt.Sprintf("upsert %q", code), errors.Join(common.ErrDatabase, err))
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, common.NewAppError("CATALOG_UPSERT_FAILED", "commit transaction", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("repository.catalog.upsert_ok", "written", written, "elapsed_ms", time.Since(start).Milliseconds())
	return written, nil
}
