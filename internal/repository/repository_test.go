package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "debitsheet.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func ptr(v float64) *float64 { return &v }

func testDraft(arc string) *entity.DebitOrderDraft {
	d := &entity.DebitOrderDraft{
		Header: entity.DraftHeader{
			OrderNumber: entity.NewField("OS-1042", 0.9, constants.SourceModel),
			ARCNumber:   entity.NewField(arc, 0.9, constants.SourceModel),
			ClientName:  entity.NewField("Marbrerie Dupont", 0.9, constants.SourceModel),
			DueDate:     entity.NewField("2026-11-02", 0.9, constants.SourceModel),
		},
		DeclaredTotalQuantity: entity.NewField(ptr(4.5), 0.8, constants.SourceModel),
		OverallConfidence:     0.85,
	}
	d.Items = []entity.LineItem{
		{Description: "Plan de travail", MaterialName: "Granit Noir K2", Finish: "polished", LengthCm: 300, WidthCm: 100, ThicknessCm: 3, PieceCount: 1, DeclaredQuantity: 3, AreaM2: ptr(3)},
		{Description: "Credence", MaterialName: "Granit Noir K2", Finish: "polished", LengthCm: 150, WidthCm: 100, ThicknessCm: 2, PieceCount: 1, DeclaredQuantity: 1.5, AreaM2: ptr(1.5)},
	}
	d.ComputeTotals()
	return d
}

func matched(items []entity.LineItem) []entity.MatchedLineItem {
	out := make([]entity.MatchedLineItem, len(items))
	for i, it := range items {
		out[i] = entity.MatchedLineItem{LineItem: it}
	}
	return out
}

func TestOrderRepository_CommitAndRead(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewOrderRepository(db, testLogger())

	draft := testDraft("ARC-7")
	items := matched(draft.Items)
	catalogID := "cat-1"
	items[0].CatalogID = &catalogID
	items[0].Matched = true

	order, err := repo.Commit(ctx, &CommitRequest{Draft: draft, Items: items, SourceDocument: "os1042.pdf", SubmittedBy: "alice"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, "Granit Noir K2", order.Material)
	assert.Equal(t, constants.MixedThickness, order.Thickness)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ARCNumber)
	assert.Equal(t, "ARC-7", *got.ARCNumber)
	assert.Equal(t, "OS-1042", got.OrderNumber)
	assert.Equal(t, "Marbrerie Dupont", got.ClientName)
	assert.Equal(t, "alice", got.SubmittedBy)
	assert.InDelta(t, 4.5, got.TotalArea, 1e-9)
	require.NotNil(t, got.DeclaredTotal)
	assert.InDelta(t, 4.5, *got.DeclaredTotal, 1e-9)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 1, got.Items[0].Position)
	assert.True(t, got.Items[0].Matched)
	require.NotNil(t, got.Items[0].CatalogID)
	assert.Equal(t, "cat-1", *got.Items[0].CatalogID)
	assert.Nil(t, got.Items[1].VolumeM3)

	found, err := repo.FindByReference(ctx, "ARC-7")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByReference(ctx, "ARC-404")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOrderRepository_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewOrderRepository(db, testLogger())

	draft := testDraft("ARC-DUP")
	_, err := repo.Commit(ctx, &CommitRequest{Draft: draft, Items: matched(draft.Items), SourceDocument: "a.pdf"})
	require.NoError(t, err)

	_, err = repo.Commit(ctx, &CommitRequest{Draft: draft, Items: matched(draft.Items), SourceDocument: "b.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateOrderReference)
	var dup *DuplicateOrderReferenceError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "ARC-DUP", dup.ARCNumber)

	orders, err := repo.List(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestOrderRepository_ConcurrentDuplicateReference(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewOrderRepository(db, testLogger())

	const workers = 8
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			draft := testDraft("ARC-RACE")
			_, errs[i] = repo.Commit(ctx, &CommitRequest{Draft: draft, Items: matched(draft.Items), SourceDocument: fmt.Sprintf("race-%d.pdf", i)})
		}(i)
	}
	close(start)
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrDuplicateOrderReference):
			var de *DuplicateOrderReferenceError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, "ARC-RACE", de.ARCNumber)
			dup++
		default:
			t.Errorf("unexpected commit error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)

	orders, err := repo.List(ctx, OrderFilter{WithItems: true})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 2)
}

func TestOrderRepository_DuplicateCaughtByUniqueIndex(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewOrderRepository(db, testLogger()).(*orderRepository)

	draft := testDraft("ARC-INSERT")
	first, err := repo.Commit(ctx, &CommitRequest{Draft: draft, Items: matched(draft.Items), SourceDocument: "a.pdf"})
	require.NoError(t, err)

	// a concurrent commit that passed the pre-check before first was stored
	repo.lookup = func(context.Context, string) (*entity.Order, error) {
		return nil, common.NewAppError("ORDER_NOT_FOUND", "not yet stored", common.ErrNotFound)
	}
	_, err = repo.Commit(ctx, &CommitRequest{Draft: draft, Items: matched(draft.Items), SourceDocument: "b.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateOrderReference)
	assert.NotErrorIs(t, err, common.ErrDatabase)
	var dup *DuplicateOrderReferenceError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "ARC-INSERT", dup.ARCNumber)

	orders, err := repo.List(ctx, OrderFilter{WithItems: true})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, first.ID, orders[0].ID)
	assert.Len(t, orders[0].Items, 2)
}

func TestOrderRepository_EmptyReferenceNeverCollides(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewOrderRepository(db, testLogger())

	for i := 0; i < 2; i++ {
		draft := testDraft("")
		_, err := repo.Commit(ctx, &CommitRequest{Draft: draft, Items: matched(draft.Items), SourceDocument: fmt.Sprintf("%d.pdf", i)})
		require.NoError(t, err)
	}
	orders, err := repo.List(ctx, OrderFilter{WithItems: true})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Nil(t, o.ARCNumber)
		assert.Len(t, o.Items, 2)
	}
}

func TestOrderRepository_ItemFailureRollsBackParent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewOrderRepository(db, testLogger())

	_, err := db.Driver.ExecContext(ctx, "DROP TABLE order_items")
	require.NoError(t, err)

	draft := testDraft("ARC-RB")
	_, err = repo.Commit(ctx, &CommitRequest{Draft: draft, Items: matched(draft.Items), SourceDocument: "rb.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)

	_, err = repo.FindByReference(ctx, "ARC-RB")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOrderRepository_ListFilter(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewOrderRepository(db, testLogger()).(*orderRepository)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.AddDate(0, 0, i)
		repo.now = func() time.Time { return at }
		draft := testDraft(fmt.Sprintf("ARC-%d", i))
		_, err := repo.Commit(ctx, &CommitRequest{Draft: draft, Items: matched(draft.Items), SourceDocument: "x.pdf"})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ARC-2", *all[0].ARCNumber)

	from := base.AddDate(0, 0, 1)
	ranged, err := repo.List(ctx, OrderFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	limited, err := repo.List(ctx, OrderFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCatalogRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewCatalogRepository(db, testLogger())

	n, err := repo.Upsert(ctx, []entity.CatalogReference{
		{Code: "K2", Description: "Granit noir", UnitWeight: 2.7},
		{Code: "AB3", Description: "Marbre blanc", UnitWeight: 2.6},
		{Code: "  ", Description: "blank"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.Upsert(ctx, []entity.CatalogReference{{Code: "K2", Description: "Granit noir absolu", UnitWeight: 2.8}})
	require.NoError(t, err)

	refs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "AB3", refs[0].Code)
	assert.Equal(t, "K2", refs[1].Code)
	assert.Equal(t, "Granit noir absolu", refs[1].Description)
	assert.InDelta(t, 2.8, refs[1].UnitWeight, 1e-9)
	assert.NotEmpty(t, refs[1].ID)
}

func TestExtractionLogRepository_InsertAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewExtractionLogRepository(db, testLogger())

	orderID := uuid.New()
	first := &entity.ExtractionLogEntry{
		Timestamp:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		DocumentName: "a.pdf",
		Method:       constants.MethodModelDocument,
		Status:       constants.StatusSuccess,
		ParsedDraft:  json.RawMessage(`{"items":[]}`),
		Confidence:   0.9,
		DurationMs:   1200,
		OrderID:      &orderID,
	}
	second := &entity.ExtractionLogEntry{
		Timestamp:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		DocumentName:   "b.pdf",
		Method:         constants.MethodNone,
		Status:         constants.StatusError,
		RawModelSample: "not json",
		Warnings:       []string{"missing due date"},
		ErrorMessage:   "unparsable model reply",
	}
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))
	assert.NotEqual(t, uuid.Nil, first.ID)

	entries, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "b.pdf", entries[0].DocumentName)
	assert.Equal(t, constants.StatusError, entries[0].Status)
	assert.Equal(t, []string{"missing due date"}, entries[0].Warnings)
	assert.Nil(t, entries[0].OrderID)
	assert.Empty(t, entries[0].ParsedDraft)

	assert.Equal(t, constants.MethodModelDocument, entries[1].Method)
	require.NotNil(t, entries[1].OrderID)
	assert.Equal(t, orderID, *entries[1].OrderID)
	assert.JSONEq(t, `{"items":[]}`, string(entries[1].ParsedDraft))
	assert.Empty(t, entries[1].Warnings)
}

func TestSummaries(t *testing.T) {
	item := func(material string, thickness float64) entity.LineItem {
		return entity.LineItem{MaterialName: material, ThicknessCm: thickness}
	}
	tests := []struct {
		name          string
		items         []entity.LineItem
		wantMaterial  string
		wantThickness string
	}{
		{name: "empty", items: nil, wantMaterial: "", wantThickness: ""},
		{name: "single", items: []entity.LineItem{item("Granit K2", 3)}, wantMaterial: "Granit K2", wantThickness: "3"},
		{name: "most frequent", items: []entity.LineItem{item("A", 2), item("B", 2), item("B", 2)}, wantMaterial: "B", wantThickness: "2"},
		{name: "tie goes to first seen", items: []entity.LineItem{item("A", 2), item("B", 2), item("B", 2), item("A", 2)}, wantMaterial: "A", wantThickness: "2"},
		{name: "fractional thickness", items: []entity.LineItem{item("A", 2.5), item("A", 2.5)}, wantMaterial: "A", wantThickness: "2.5"},
		{name: "mixed thickness", items: []entity.LineItem{item("A", 2), item("A", 3)}, wantMaterial: "A", wantThickness: constants.MixedThickness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMaterial, SummarizeMaterial(tt.items))
			assert.Equal(t, tt.wantThickness, SummarizeThickness(tt.items))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: orders.arc_number (2067)")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))
}
