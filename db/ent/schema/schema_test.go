package schema

import (
	"testing"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractionLogEnums(t *testing.T) {
	validators := map[string]func(string) error{}
	for _, f := range (ExtractionLog{}).Fields() {
		d := f.Descriptor()
		if len(d.Validators) == 1 {
			fn, ok := d.Validators[0].(func(string) error)
			require.True(t, ok, d.Name)
			validators[d.Name] = fn
		}
	}
	require.Contains(t, validators, "status")
	require.Contains(t, validators, "method")

	assert.NoError(t, validators["status"]("needs_review"))
	assert.Error(t, validators["status"]("done"))
	assert.NoError(t, validators["method"]("layout_fallback"))
	assert.Error(t, validators["method"]("ocr"))
}

func TestTableAnnotations(t *testing.T) {
	tests := []struct {
		schema ent.Interface
		table  string
	}{
		{Order{}, "orders"},
		{OrderItem{}, "order_items"},
		{CatalogReference{}, "catalog_references"},
		{ExtractionLog{}, "extraction_logs"},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			anns := tt.schema.Annotations()
			require.Len(t, anns, 1)
			ann, ok := anns[0].(entsql.Annotation)
			require.True(t, ok)
			assert.Equal(t, tt.table, ann.Table)

			require.NotEmpty(t, tt.schema.Fields())
			assert.Equal(t, "id", tt.schema.Fields()[0].Descriptor().Name)
		})
	}
}
