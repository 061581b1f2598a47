package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/debitsheet-import/internal/repository"
	"github.com/joseph-ayodele/debitsheet-import/internal/utils"
)

const (
	OrdersSheet = "Orders"
	ItemsSheet  = "Items"
	LogsSheet   = "Extractions"
)

// Service produces XLSX bytes for exports.
type Service struct {
	orders repository.OrderRepository
	logs   repository.ExtractionLogRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(orders repository.OrderRepository, logs repository.ExtractionLogRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orders: orders, logs: logs, logger: logger, now: time.Now}
}

// ExportOrdersXLSX returns a workbook with one row per order on the Orders
// sheet and one row per line on the Items sheet. Dates are inclusive days:
// only from means from..today, only to means beginning..to, neither means all.
func (s *Service) ExportOrdersXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	lo, hi := s.window(from, to)
	orders, err := s.orders.List(ctx, repository.OrderFilter{From: lo, To: hi, WithItems: true})
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	w, err := newSheetWriter(f, OrdersSheet, []string{
		"Created At", "Order Number", "ARC Number", "Order Date", "Due Date", "Client",
		"Site", "Salesperson", "Material", "Thickness", "Items", "Total Area (m2)",
		"Total Volume (m3)", "Declared Total", "Confidence", "Needs Review", "Source Document", "Submitted By",
	})
	if err != nil {
		return nil, err
	}
	iw, err := newSheetWriter(f, ItemsSheet, []string{
		"Order Number", "Position", "Description", "Material", "Finish", "Length (cm)",
		"Width (cm)", "Thickness (cm)", "Pieces", "Declared Quantity", "Area (m2)", "Volume (m3)", "Catalog ID",
	})
	if err != nil {
		return nil, err
	}
	if err := dropDefaultSheet(f, OrdersSheet); err != nil {
		return nil, err
	}

	for _, o := range orders {
		w.row(
			o.CreatedAt.UTC().Format(time.RFC3339),
			o.OrderNumber,
			utils.StrOrEmpty(o.ARCNumber),
			o.OrderDate,
			o.DueDate,
			o.ClientName,
			o.SiteReference,
			o.SalespersonCode,
			o.Material,
			o.Thickness,
			len(o.Items),
			o.TotalArea,
			o.TotalVolume,
			optional(o.DeclaredTotal),
			o.Confidence,
			o.NeedsReview,
			o.SourceDocument,
			o.SubmittedBy,
		)
		for _, it := range o.Items {
			iw.row(
				o.OrderNumber,
				it.Position,
				truncate(it.Description, 140),
				it.MaterialName,
				it.Finish,
				it.LengthCm,
				it.WidthCm,
				it.ThicknessCm,
				it.PieceCount,
				it.DeclaredQuantity,
				optional(it.AreaM2),
				optional(it.VolumeM3),
				utils.StrOrEmpty(it.CatalogID),
			)
		}
	}
	if w.err != nil {
		return nil, w.err
	}
	if iw.err != nil {
		return nil, iw.err
	}

	_ = f.SetColWidth(OrdersSheet, "A", "A", 22)
	_ = f.SetColWidth(OrdersSheet, "B", "H", 16)
	_ = f.SetColWidth(OrdersSheet, "I", "I", 24)
	_ = f.SetColWidth(OrdersSheet, "Q", "Q", 40)
	_ = f.SetColWidth(ItemsSheet, "C", "C", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.orders.ok",
		"rows", len(orders),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportExtractionLogsXLSX returns the most recent extraction attempts, newest first.
func (s *Service) ExportExtractionLogsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	entries, err := s.logs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query extraction logs: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	w, err := newSheetWriter(f, LogsSheet, []string{
		"Timestamp", "Request ID", "Document", "Method", "Status", "Confidence",
		"Duration (ms)", "Warnings", "Error", "Order ID", "Submitted By", "Prompt Version",
	})
	if err != nil {
		return nil, err
	}
	if err := dropDefaultSheet(f, LogsSheet); err != nil {
		return nil, err
	}

	for _, e := range entries {
		orderID := ""
		if e.OrderID != nil {
			orderID = e.OrderID.String()
		}
		w.row(
			e.Timestamp.UTC().Format(time.RFC3339),
			e.RequestID,
			e.DocumentName,
			string(e.Method),
			string(e.Status),
			e.Confidence,
			e.DurationMs,
			strings.Join(e.Warnings, "; "),
			truncate(e.ErrorMessage, 200),
			orderID,
			e.SubmittedBy,
			e.PromptVersion,
		)
	}
	if w.err != nil {
		return nil, w.err
	}
	_ = f.SetColWidth(LogsSheet, "A", "C", 24)
	_ = f.SetColWidth(LogsSheet, "H", "I", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.extraction_logs.ok",
		"rows", len(entries),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// window normalizes the inclusive day range to [lo, hi) instants in UTC.
func (s *Service) window(from, to *time.Time) (*time.Time, *time.Time) {
	day := func(t time.Time) time.Time {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	var lo, hi *time.Time
	if from != nil {
		d := day(*from)
		lo = &d
	}
	if to != nil {
		d := day(*to).AddDate(0, 0, 1)
		hi = &d
	}
	if lo != nil && hi == nil {
		d := day(s.now()).AddDate(0, 0, 1)
		hi = &d
	}
	return lo, hi
}

// sheetWriter appends rows to one sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func newSheetWriter(f *excelize.File, sheet string, headers []string) (*sheetWriter, error) {
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	w := &sheetWriter{f: f, sheet: sheet, next: 1}
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	w.row(row...)
	if w.err != nil {
		return nil, w.err
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return w, nil
}

func (w *sheetWriter) row(values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", w.sheet, w.next, err)
		return
	}
	w.next++
}

// dropDefaultSheet removes the sheet excelize.NewFile starts with.
func dropDefaultSheet(f *excelize.File, active string) error {
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	idx, err := f.GetSheetIndex(active)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	return nil
}

// optional leaves the cell empty for missing numbers.
func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
