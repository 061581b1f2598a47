package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/utils"
)

// catalogHeaders maps accepted header spellings to the column they fill.
var catalogHeaders = map[string]string{
	"code":        "code",
	"reference":   "code",
	"ref":         "code",
	"description": "description",
	"designation": "description",
	"unit_weight": "unit_weight",
	"unit weight": "unit_weight",
	"weight":      "unit_weight",
	"poids":       "unit_weight",
}

// ImportCatalogXLSX reads catalog rows from the first sheet of a workbook. The
// first row must name a code column; description and unit_weight are optional.
// Rows without a code are skipped, and a later row wins over an earlier one
// with the same code.
func ImportCatalogXLSX(r io.Reader) ([]entity.CatalogReference, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, common.NewAppError("CATALOG_UNREADABLE", "open catalog workbook", errors.Join(common.ErrInvalidInput, err))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, common.NewAppError("CATALOG_EMPTY", "workbook has no sheets", common.ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, common.NewAppError("CATALOG_EMPTY", "catalog sheet is empty", common.ErrInvalidInput)
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		if col, ok := catalogHeaders[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, seen := cols[col]; !seen {
				cols[col] = i
			}
		}
	}
	if _, ok := cols["code"]; !ok {
		return nil, common.NewAppError("CATALOG_NO_CODE_COLUMN", "catalog sheet has no code column", common.ErrInvalidInput)
	}

	cell := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	index := map[string]int{}
	var refs []entity.CatalogReference
	for n, row := range rows[1:] {
		code := cell(row, "code")
		if code == "" {
			continue
		}
		ref := entity.CatalogReference{
			Code:        code,
			Description: cell(row, "description"),
		}
		if w := cell(row, "unit_weight"); w != "" {
			v, ok := utils.ParseNumber(w)
			if !ok {
				return nil, common.NewAppError("CATALOG_BAD_WEIGHT",
					fmt.Sprintf("row %d: unit weight %q is not a number", n+2, w), common.ErrInvalidInput)
			}
			ref.UnitWeight = v
		}
		if i, dup := index[code]; dup {
			refs[i] = ref
			continue
		}
		index[code] = len(refs)
		refs = append(refs, ref)
	}
	return refs, nil
}
