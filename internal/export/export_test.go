package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/repository"
)

type fakeOrders struct {
	repository.OrderRepository
	list func(ctx context.Context, filter repository.OrderFilter) ([]*entity.Order, error)
}

func (f *fakeOrders) List(ctx context.Context, filter repository.OrderFilter) ([]*entity.Order, error) {
	return f.list(ctx, filter)
}

type fakeLogs struct {
	repository.ExtractionLogRepository
	list func(ctx context.Context, limit int) ([]*entity.ExtractionLogEntry, error)
}

func (f *fakeLogs) List(ctx context.Context, limit int) ([]*entity.ExtractionLogEntry, error) {
	return f.list(ctx, limit)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestExportOrdersXLSX(t *testing.T) {
	arc := "ARC-77"
	area := 3.0
	created := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	order := &entity.Order{
		ID:          uuid.New(),
		OrderNumber: "OS-1042",
		ARCNumber:   &arc,
		ClientName:  "Marbrerie Dupont",
		Material:    "Granit Noir K2",
		Thickness:   "3",
		TotalArea:   3,
		Confidence:  0.9,
		CreatedAt:   created,
		Items: []entity.OrderItem{
			{Position: 1, Description: "Plan de travail", MaterialName: "Granit Noir K2", LengthCm: 300, WidthCm: 100, ThicknessCm: 3, PieceCount: 1, AreaM2: &area},
		},
	}

	var got repository.OrderFilter
	svc := NewService(&fakeOrders{list: func(_ context.Context, f repository.OrderFilter) ([]*entity.Order, error) {
		got = f
		return []*entity.Order{order}, nil
	}}, nil, quiet())
	svc.now = func() time.Time { return time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC) }

	from := time.Date(2026, 9, 30, 18, 0, 0, 0, time.UTC)
	data, err := svc.ExportOrdersXLSX(context.Background(), &from, nil)
	require.NoError(t, err)

	require.NotNil(t, got.From)
	require.NotNil(t, got.To)
	assert.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), *got.From)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), *got.To)
	assert.True(t, got.WithItems)

	rows := readRows(t, data, OrdersSheet)
	require.Len(t, rows, 2)
	assert.Equal(t, "Order Number", rows[0][1])
	assert.Equal(t, "OS-1042", rows[1][1])
	assert.Equal(t, "ARC-77", rows[1][2])
	assert.Equal(t, "1", rows[1][10])

	items := readRows(t, data, ItemsSheet)
	require.Len(t, items, 2)
	assert.Equal(t, "Plan de travail", items[1][2])
	assert.Equal(t, "3", items[1][10])
}

func TestExportOrdersXLSX_QueryError(t *testing.T) {
	svc := NewService(&fakeOrders{list: func(context.Context, repository.OrderFilter) ([]*entity.Order, error) {
		return nil, common.ErrDatabase
	}}, nil, quiet())

	_, err := svc.ExportOrdersXLSX(context.Background(), nil, nil)
	assert.ErrorIs(t, err, common.ErrDatabase)
}

func TestExportExtractionLogsXLSX(t *testing.T) {
	orderID := uuid.New()
	var gotLimit int
	svc := NewService(nil, &fakeLogs{list: func(_ context.Context, limit int) ([]*entity.ExtractionLogEntry, error) {
		gotLimit = limit
		return []*entity.ExtractionLogEntry{
			{
				Timestamp:    time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC),
				RequestID:    "req-1",
				DocumentName: "os-1042.pdf",
				Method:       constants.MethodLayoutFallback,
				Status:       constants.StatusNeedsReview,
				Warnings:     []string{"a", "b"},
				OrderID:      &orderID,
			},
			{DocumentName: "broken.pdf", Status: constants.StatusError, ErrorMessage: "document unreadable"},
		}, nil
	}}, quiet())

	data, err := svc.ExportExtractionLogsXLSX(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)

	rows := readRows(t, data, LogsSheet)
	require.Len(t, rows, 3)
	assert.Equal(t, "os-1042.pdf", rows[1][2])
	assert.Equal(t, string(constants.StatusNeedsReview), rows[1][4])
	assert.Equal(t, "a; b", rows[1][7])
	assert.Equal(t, orderID.String(), rows[1][9])
	assert.Equal(t, "document unreadable", rows[2][8])
}

func catalogWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportCatalogXLSX(t *testing.T) {
	buf := catalogWorkbook(t, [][]any{
		{"Reference", "Designation", "Poids"},
		{"GNK2-30", "Granit Noir K2 3cm", "84,5"},
		{"", "no code", "1"},
		{"MBC-20", "Marbre Blanc 2cm", ""},
		{"GNK2-30", "Granit Noir K2 3cm poli", 85},
	})

	refs, err := ImportCatalogXLSX(buf)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, entity.CatalogReference{Code: "GNK2-30", Description: "Granit Noir K2 3cm poli", UnitWeight: 85}, refs[0])
	assert.Equal(t, entity.CatalogReference{Code: "MBC-20", Description: "Marbre Blanc 2cm"}, refs[1])
}

func TestImportCatalogXLSX_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body io.Reader
	}{
		{"not a workbook", bytes.NewBufferString("code;description")},
		{"no code column", catalogWorkbook(t, [][]any{{"name", "weight"}, {"x", 1}})},
		{"bad weight", catalogWorkbook(t, [][]any{{"code", "unit_weight"}, {"A", "heavy"}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportCatalogXLSX(tt.body)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrInvalidInput))
		})
	}
}
