package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

// DuplicateOrderReferenceError reports an ARC number that is already stored.
type DuplicateOrderReferenceError struct {
	ARCNumber string
}

func (e *DuplicateOrderReferenceError) Error() string {
	return fmt.Sprintf("order with ARC reference %q already exists", e.ARCNumber)
}

func (e *DuplicateOrderReferenceError) Is(target error) bool {
	return target == common.ErrDuplicateOrderReference
}

// CommitRequest wraps parameters for persisting a reconciled draft.
type CommitRequest struct {
	Draft          *entity.DebitOrderDraft
	Items          []entity.MatchedLineItem
	SourceDocument string
	SubmittedBy    string
	NeedsReview    bool
}

// OrderFilter narrows List. Zero values mean no bound.
type OrderFilter struct {
	From      *time.Time
	To        *time.Time
	Limit     int
	WithItems bool
}

type OrderRepository interface {
	FindByReference(ctx context.Context, arcNumber string) (*entity.Order, error)
	Commit(ctx context.Context, req *CommitRequest) (*entity.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*entity.Order, error)
}

type orderRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
	// lookup runs the duplicate pre-check; the unique index still decides races.
	lookup func(ctx context.Context, arcNumber string) (*entity.Order, error)
}

func NewOrderRepository(db *DB, logger *slog.Logger) OrderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &orderRepository{db: db, logger: logger, now: time.Now}
	r.lookup = r.FindByReference
	return r
}

var (
	orderColumns     = columnNames(OrdersTable)
	orderItemColumns = columnNames(OrderItemsTable)
)

func orderIDSpec() *sqlgraph.FieldSpec {
	return sqlgraph.NewFieldSpec("id", field.TypeUUID)
}

// FindByReference returns the order carrying arcNumber, or an error matching
// common.ErrNotFound.
func (r *orderRepository) FindByReference(ctx context.Context, arcNumber string) (*entity.Order, error) {
	spec := sqlgraph.NewQuerySpec(tableOrders, orderColumns, orderIDSpec())
	spec.Predicate = func(s *entsql.Selector) {
		s.Where(entsql.EQ(s.C("arc_number"), arcNumber))
	}
	spec.Limit = 1
	orders, err := r.queryOrders(ctx, r.db.Driver, spec)
	if err != nil {
		r.logger.Error("repository.order.find_failed", "arc_number", arcNumber, "error", err)
		return nil, err
	}
	if len(orders) == 0 {
		return nil, common.NewAppError("ORDER_NOT_FOUND", fmt.Sprintf("no order with ARC reference %q", arcNumber), common.ErrNotFound)
	}
	return orders[0], nil
}

// Commit stores the order and its items in one transaction. A draft whose ARC
// number is already stored yields *DuplicateOrderReferenceError and nothing is
// written, including when a concurrent commit claims the number first.
func (r *orderRepository) Commit(ctx context.Context, req *CommitRequest) (*entity.Order, error) {
	if req == nil || req.Draft == nil {
		return nil, common.NewAppError("INVALID_ORDER", "commit requires a draft", common.ErrInvalidInput)
	}
	start := time.Now()
	order := buildOrder(req, r.now().UTC())
	arc := strings.TrimSpace(req.Draft.Header.ARCNumber.Value)

	if arc != "" {
		existing, err := r.lookup(ctx, arc)
		switch {
		case err == nil && existing != nil:
			r.logger.Warn("repository.order.duplicate", "arc_number", arc, "existing_id", existing.ID)
			return nil, &DuplicateOrderReferenceError{ARCNumber: arc}
		case err != nil && !errors.Is(err, common.ErrNotFound):
			return nil, err
		}
	}

	tx, err := r.db.Driver.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin commit transaction: %w", err)
	}
	drv := newTxDriver(tx, r.db.Dialect())
	if err := sqlgraph.CreateNode(ctx, drv, orderCreateSpec(order)); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) && arc != "" {
			r.logger.Warn("repository.order.duplicate", "arc_number", arc, "race", true)
			return nil, &DuplicateOrderReferenceError{ARCNumber: arc}
		}
		r.logger.Error("repository.order.commit_failed", "stage", "order", "error", err)
		return nil, common.NewAppError("ORDER_COMMIT_FAILED", "insert order", errors.Join(common.ErrDatabase, err))
	}
	if len(order.Items) > 0 {
		nodes := make([]*sqlgraph.CreateSpec, len(order.Items))
		for i := range order.Items {
			nodes[i] = orderItemCreateSpec(&order.Items[i])
		}
		if err := sqlgraph.BatchCreate(ctx, drv, &sqlgraph.BatchCreateSpec{Nodes: nodes}); err != nil {
			_ = tx.Rollback()
			r.logger.Error("repository.order.commit_failed", "stage", "items", "items", len(nodes), "error", err)
			return nil, common.NewAppError("ORDER_COMMIT_FAILED", "insert order items", errors.Join(common.ErrDatabase, err))
		}
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) && arc != "" {
			return nil, &DuplicateOrderReferenceError{ARCNumber: arc}
		}
		return nil, common.NewAppError("ORDER_COMMIT_FAILED", "commit transaction", errors.Join(common.ErrDatabase, err))
	}

	r.logger.Info("repository.order.commit_ok",
		"order_id", order.ID,
		"arc_number", arc,
		"items", len(order.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return order, nil
}

func orderCreateSpec(o *entity.Order) *sqlgraph.CreateSpec {
	spec := sqlgraph.NewCreateSpec(tableOrders, orderIDSpec())
	spec.ID.Value = &o.ID
	spec.SetField("order_number", field.TypeString, o.OrderNumber)
	if o.ARCNumber != nil {
		spec.SetField("arc_number", field.TypeString, *o.ARCNumber)
	}
	spec.SetField("order_date", field.TypeString, o.OrderDate)
	spec.SetField("due_date", field.TypeString, o.DueDate)
	spec.SetField("client_name", field.TypeString, o.ClientName)
	spec.SetField("site_reference", field.TypeString, o.SiteReference)
	spec.SetField("salesperson_code", field.TypeString, o.SalespersonCode)
	spec.SetField("material", field.TypeString, o.Material)
	spec.SetField("thickness", field.TypeString, o.Thickness)
	spec.SetField("total_area", field.TypeFloat64, o.TotalArea)
	spec.SetField("total_volume", field.TypeFloat64, o.TotalVolume)
	if o.DeclaredTotal != nil {
		spec.SetField("declared_total", field.TypeFloat64, *o.DeclaredTotal)
	}
	spec.SetField("confidence", field.TypeFloat64, o.Confidence)
	spec.SetField("needs_review", field.TypeBool, o.NeedsReview)
	spec.SetField("source_document", field.TypeString, o.SourceDocument)
	spec.SetField("submitted_by", field.TypeString, o.SubmittedBy)
	spec.SetField("created_at", field.TypeTime, o.CreatedAt)
	return spec
}

// orderItemCreateSpec sets every column so the batch insert shares one column list.
func orderItemCreateSpec(it *entity.OrderItem) *sqlgraph.CreateSpec {
	spec := sqlgraph.NewCreateSpec(tableOrderItems, sqlgraph.NewFieldSpec("id", field.TypeUUID))
	spec.ID.Value = &it.ID
	spec.SetField("order_id", field.TypeUUID, it.OrderID)
	spec.SetField("position", field.TypeInt, it.Position)
	spec.SetField("description", field.TypeString, it.Description)
	spec.SetField("material_name", field.TypeString, it.MaterialName)
	spec.SetField("finish", field.TypeString, it.Finish)
	spec.SetField("length_cm", field.TypeFloat64, it.LengthCm)
	spec.SetField("width_cm", field.TypeFloat64, it.WidthCm)
	spec.SetField("thickness_cm", field.TypeFloat64, it.ThicknessCm)
	spec.SetField("piece_count", field.TypeInt, it.PieceCount)
	spec.SetField("declared_quantity", field.TypeFloat64, it.DeclaredQuantity)
	spec.SetField("area_m2", field.TypeFloat64, nullable(it.AreaM2))
	spec.SetField("volume_m3", field.TypeFloat64, nullable(it.VolumeM3))
	spec.SetField("catalog_id", field.TypeString, nullable(it.CatalogID))
	spec.SetField("matched", field.TypeBool, it.Matched)
	return spec
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	spec := sqlgraph.NewQuerySpec(tableOrders, orderColumns, orderIDSpec())
	spec.Predicate = func(s *entsql.Selector) {
		s.Where(entsql.EQ(s.C("id"), id))
	}
	orders, err := r.queryOrders(ctx, r.db.Driver, spec)
	if err != nil {
		r.logger.Error("repository.order.get_failed", "order_id", id, "error", err)
		return nil, err
	}
	if len(orders) == 0 {
		return nil, common.NewAppError("ORDER_NOT_FOUND", fmt.Sprintf("order %s not found", id), common.ErrNotFound)
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders[0], nil
}

// List returns orders newest first.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*entity.Order, error) {
	spec := sqlgraph.NewQuerySpec(tableOrders, orderColumns, orderIDSpec())
	spec.Predicate = func(s *entsql.Selector) {
		var preds []*entsql.Predicate
		if filter.From != nil {
			preds = append(preds, entsql.GTE(s.C("created_at"), filter.From.UTC()))
		}
		if filter.To != nil {
			preds = append(preds, entsql.LT(s.C("created_at"), filter.To.UTC()))
		}
		if len(preds) > 0 {
			s.Where(entsql.And(preds...))
		}
	}
	spec.Order = func(s *entsql.Selector) {
		s.OrderBy(entsql.Desc(s.C("created_at")), entsql.Asc(s.C("id")))
	}
	if filter.Limit > 0 {
		spec.Limit = filter.Limit
	}
	orders, err := r.queryOrders(ctx, r.db.Driver, spec)
	if err != nil {
		r.logger.Error("repository.order.list_failed", "error", err)
		return nil, err
	}
	if filter.WithItems {
		if err := r.loadItems(ctx, orders); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, drv dialect.Driver, spec *sqlgraph.QuerySpec) ([]*entity.Order, error) {
	var out []*entity.Order
	spec.ScanValues = scanTargets(OrdersTable)
	spec.Assign = func(columns []string, values []any) error {
		rec, err := toRecord(columns, values)
		if err != nil {
			return err
		}
		out = append(out, orderFromRecord(rec))
		return nil
	}
	if err := sqlgraph.QueryNodes(ctx, drv, spec); err != nil {
		return nil, common.NewAppError("ORDER_QUERY_FAILED", "query orders", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

func orderFromRecord(rec record) *entity.Order {
	return &entity.Order{
		ID:              rec.uid("id"),
		OrderNumber:     rec.str("order_number"),
		ARCNumber:       rec.strPtr("arc_number"),
		OrderDate:       rec.str("order_date"),
		DueDate:         rec.str("due_date"),
		ClientName:      rec.str("client_name"),
		SiteReference:   rec.str("site_reference"),
		SalespersonCode: rec.str("salesperson_code"),
		Material:        rec.str("material"),
		Thickness:       rec.str("thickness"),
		TotalArea:       rec.float("total_area"),
		TotalVolume:     rec.float("total_volume"),
		DeclaredTotal:   rec.floatPtr("declared_total"),
		Confidence:      rec.float("confidence"),
		NeedsReview:     rec.bool("needs_review"),
		SourceDocument:  rec.str("source_document"),
		SubmittedBy:     rec.str("submitted_by"),
		CreatedAt:       rec.timeAt("created_at"),
	}
}

// loadItems attaches items to each order in one query.
func (r *orderRepository) loadItems(ctx context.Context, orders []*entity.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*entity.Order, len(orders))
	ids := make([]any, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	spec := sqlgraph.NewQuerySpec(tableOrderItems, orderItemColumns, sqlgraph.NewFieldSpec("id", field.TypeUUID))
	spec.Predicate = func(s *entsql.Selector) {
		s.Where(entsql.In(s.C("order_id"), ids...))
	}
	spec.Order = func(s *entsql.Selector) {
		s.OrderBy(entsql.Asc(s.C("order_id")), entsql.Asc(s.C("position")))
	}
	spec.ScanValues = scanTargets(OrderItemsTable)
	spec.Assign = func(columns []string, values []any) error {
		rec, err := toRecord(columns, values)
		if err != nil {
			return err
		}
		it := orderItemFromRecord(rec)
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
		return nil
	}
	if err := sqlgraph.QueryNodes(ctx, r.db.Driver, spec); err != nil {
		return common.NewAppError("ORDER_QUERY_FAILED", "query order items", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

func orderItemFromRecord(rec record) entity.OrderItem {
	return entity.OrderItem{
		ID:               rec.uid("id"),
		OrderID:          rec.uid("order_id"),
		Position:         rec.integer("position"),
		Description:      rec.str("description"),
		MaterialName:     rec.str("material_name"),
		Finish:           rec.str("finish"),
		LengthCm:         rec.float("length_cm"),
		WidthCm:          rec.float("width_cm"),
		ThicknessCm:      rec.float("thickness_cm"),
		PieceCount:       rec.integer("piece_count"),
		DeclaredQuantity: rec.float("declared_quantity"),
		AreaM2:           rec.floatPtr("area_m2"),
		VolumeM3:         rec.floatPtr("volume_m3"),
		CatalogID:        rec.strPtr("catalog_id"),
		Matched:          rec.bool("matched"),
	}
}

// buildOrder maps a reconciled draft onto the stored order shape.
func buildOrder(req *CommitRequest, now time.Time) *entity.Order {
	d := req.Draft
	h := d.Header
	o := &entity.Order{
		ID:              uuid.New(),
		OrderNumber:     strings.TrimSpace(h.OrderNumber.Value),
		OrderDate:       strings.TrimSpace(h.OrderDate.Value),
		DueDate:         strings.TrimSpace(h.DueDate.Value),
		ClientName:      strings.TrimSpace(h.ClientName.Value),
		SiteReference:   strings.TrimSpace(h.SiteReference.Value),
		SalespersonCode: strings.TrimSpace(h.SalespersonCode.Value),
		TotalArea:       d.ComputedTotalArea,
		TotalVolume:     d.ComputedTotalVolume,
		DeclaredTotal:   d.DeclaredTotalQuantity.Value,
		Confidence:      d.OverallConfidence,
		NeedsReview:     req.NeedsReview,
		SourceDocument:  req.SourceDocument,
		SubmittedBy:     req.SubmittedBy,
		CreatedAt:       now,
	}
	if arc := strings.TrimSpace(h.ARCNumber.Value); arc != "" {
		o.ARCNumber = &arc
	}

	lines := make([]entity.LineItem, 0, len(req.Items))
	for i, m := range req.Items {
		lines = append(lines, m.LineItem)
		o.Items = append(o.Items, entity.OrderItem{
			ID:               uuid.New(),
			OrderID:          o.ID,
			Position:         i + 1,
			Description:      m.Description,
			MaterialName:     m.MaterialName,
			Finish:           m.Finish,
			LengthCm:         m.LengthCm,
			WidthCm:          m.WidthCm,
			ThicknessCm:      m.ThicknessCm,
			PieceCount:       m.PieceCount,
			DeclaredQuantity: m.DeclaredQuantity,
			AreaM2:           m.AreaM2,
			VolumeM3:         m.VolumeM3,
			CatalogID:        m.CatalogID,
			Matched:          m.Matched,
		})
	}
	o.Material = SummarizeMaterial(lines)
	o.Thickness = SummarizeThickness(lines)
	return o
}

// nullable turns a nil pointer into a NULL column value.
func nullable[T any](v *T) driver.Value {
	if v == nil {
		return nil
	}
	return *v
}

// isUniqueViolation recognises unique-constraint failures from both drivers.
// sqlgraph matches the SQLite message; pgx reports SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return sqlgraph.IsUniqueConstraintError(err)
}
