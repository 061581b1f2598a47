package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

func completeHeader() entity.DraftHeader {
	f := func(v string) entity.Field[string] { return entity.NewField(v, 0.9, constants.SourceModel) }
	return entity.DraftHeader{
		OrderNumber: f("OS1"),
		ARCNumber:   f("ARC-1"),
		ClientName:  f("Dupont"),
		DueDate:     f("2024-06-12"),
	}
}

func draftWithTotals(declared, area float64) *entity.DebitOrderDraft {
	return &entity.DebitOrderDraft{
		Header:                completeHeader(),
		DeclaredTotalQuantity: entity.NewField(&declared, 0.9, constants.SourceModel),
		ComputedTotalArea:     area,
	}
}

func TestReconcile_TotalThreshold(t *testing.T) {
	tests := []struct {
		name     string
		declared float64
		computed float64
		wantWarn bool
	}{
		{"six percent over", 100, 106, true},
		{"four percent over", 100, 104, false},
		{"exactly five percent", 100, 105, false},
		{"six percent under", 100, 94, true},
		{"equal", 12.5, 12.5, false},
	}
	r := NewReconciler(Config{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Reconcile(draftWithTotals(tt.declared, tt.computed), nil)
			if tt.wantWarn {
				require.Len(t, res.Warnings, 1)
				assert.Contains(t, res.Warnings[0], "declared total")
				assert.Contains(t, res.Warnings[0], "%")
			} else {
				assert.Empty(t, res.Warnings)
			}
		})
	}
}

func TestReconcile_NoDeclaredTotalSkipsCheck(t *testing.T) {
	d := &entity.DebitOrderDraft{Header: completeHeader(), ComputedTotalArea: 42}
	res := NewReconciler(Config{}, nil).Reconcile(d, nil)
	assert.Empty(t, res.Warnings)

	zero := 0.0
	d.DeclaredTotalQuantity = entity.NewField(&zero, 0.9, constants.SourceModel)
	res = NewReconciler(Config{}, nil).Reconcile(d, nil)
	assert.Empty(t, res.Warnings)
}

func TestReconcile_VolumeCountsTowardsTotal(t *testing.T) {
	d := draftWithTotals(10, 6)
	d.ComputedTotalVolume = 4
	res := NewReconciler(Config{}, nil).Reconcile(d, nil)
	assert.Empty(t, res.Warnings)
}

func TestReconcile_CatalogMatching(t *testing.T) {
	catalog := []entity.CatalogReference{
		{ID: "cat-r10", Code: "R10", Description: "Granit rose"},
		{ID: "cat-k2", Code: "K2"},
	}
	d := &entity.DebitOrderDraft{
		Header: completeHeader(),
		Items: []entity.LineItem{
			{MaterialName: "Granit", Reference: "r10"},
			{MaterialName: "Granit R99"},
			{MaterialName: "Marbre k2"},
			{MaterialName: "Quartz R99"},
			{MaterialName: "Divers"},
		},
	}

	res := NewReconciler(Config{}, nil).Reconcile(d, catalog)
	require.Len(t, res.Items, 5)

	assert.True(t, res.Items[0].Matched)
	require.NotNil(t, res.Items[0].CatalogID)
	assert.Equal(t, "cat-r10", *res.Items[0].CatalogID)

	assert.False(t, res.Items[1].Matched)
	assert.Nil(t, res.Items[1].CatalogID)

	assert.True(t, res.Items[2].Matched)
	assert.Equal(t, "cat-k2", *res.Items[2].CatalogID)

	assert.False(t, res.Items[4].Matched)
	assert.Equal(t, []string{"R99"}, res.UnknownReferences)
}

func TestReconcile_MissingFields(t *testing.T) {
	res := NewReconciler(Config{}, nil).Reconcile(&entity.DebitOrderDraft{}, nil)
	assert.Equal(t, []string{
		WarnMissingARC,
		WarnMissingClient,
		WarnMissingOrderNumber,
		WarnMissingDueDate,
	}, res.Warnings)
	assert.Empty(t, res.UnknownReferences)
	assert.Empty(t, res.Items)
}
