package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/pipeline"
	"github.com/joseph-ayodele/debitsheet-import/internal/repository"
	"github.com/joseph-ayodele/debitsheet-import/internal/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	multipartMemory  = 8 << 20
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) handleExtraction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, err)
			return
		}
		s.writeError(w, r, common.NewAppError("BAD_UPLOAD", "expected a multipart form", errors.Join(common.ErrInvalidInput, err)))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("document")
	if err != nil {
		s.writeError(w, r, common.NewAppError("BAD_UPLOAD", `missing "document" file field`, common.ErrInvalidInput))
		return
	}
	defer func() { _ = file.Close() }()
	if err := common.ValidateAndReturnError(common.NewValidator().
		Field("document", hdr.Filename, common.Required, common.MaxLength(255))); err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc := entity.SourceDocument{
		Name:     hdr.Filename,
		MIMEType: hdr.Header.Get("Content-Type"),
		Data:     data,
	}
	res, err := s.deps.Processor.Process(r.Context(), doc, pipeline.Options{
		PreviewOnly: parseFlag(r.FormValue("preview")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Summary())
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	if err := common.ValidateAndReturnError(common.NewValidator().Field("id", raw, common.UUID)); err != nil {
		s.writeError(w, r, err)
		return
	}
	order, err := s.deps.Orders.GetByID(r.Context(), uuid.MustParse(raw))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	from, to, err := parseWindow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if to != nil {
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	orders, err := s.deps.Orders.List(r.Context(), repository.OrderFilter{
		From:      from,
		To:        to,
		Limit:     limit,
		WithItems: parseFlag(r.URL.Query().Get("items")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*entity.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.deps.Logs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*entity.ExtractionLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleExportOrders(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.deps.Exports.ExportOrdersXLSX(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeXLSX(w, "orders.xlsx", data)
}

func (s *Server) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.deps.Exports.ExportExtractionLogsXLSX(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeXLSX(w, "extraction-logs.xlsx", data)
}

func writeXLSX(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func parseLimit(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, common.NewAppError("BAD_LIMIT", "limit must be a positive integer", common.ErrInvalidInput)
	}
	return min(n, maxListLimit), nil
}

// parseWindow reads the optional from/to query dates (YYYY-MM-DD).
func parseWindow(r *http.Request) (*time.Time, *time.Time, error) {
	parse := func(key string) (*time.Time, error) {
		v := strings.TrimSpace(r.URL.Query().Get(key))
		if v == "" {
			return nil, nil
		}
		t, err := utils.ParseYMD(v)
		if err != nil {
			return nil, common.NewAppError("BAD_DATE", key+" must be YYYY-MM-DD", common.ErrInvalidInput)
		}
		return &t, nil
	}
	from, err := parse("from")
	if err != nil {
		return nil, nil, err
	}
	to, err := parse("to")
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
