package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

func TestRouter_Route(t *testing.T) {
	doc := &fakeClient{}
	text := &fakeClient{}

	tests := []struct {
		name       string
		router     *Router
		format     constants.DocumentFormat
		wantClient ModelClient
		wantMethod constants.ExtractionMethod
		wantOK     bool
	}{
		{"pdf goes to document provider", &Router{Document: doc, Text: text}, constants.PDF, doc, constants.MethodModelDocument, true},
		{"xlsx goes to text provider", &Router{Document: doc, Text: text}, constants.XLSX, text, constants.MethodModelText, true},
		{"pdf without document provider", &Router{Text: text}, constants.PDF, text, constants.MethodModelText, true},
		{"document provider reads text too", &Router{Document: doc}, constants.DOCX, doc, constants.MethodModelText, true},
		{"nothing configured", &Router{}, constants.PDF, nil, constants.MethodNone, false},
		{"nil router", nil, constants.PDF, nil, constants.MethodNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m, ok := tt.router.Route(tt.format)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMethod, m)
			if tt.wantClient == nil {
				assert.Nil(t, c)
			} else {
				assert.Same(t, tt.wantClient, c)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	doc := entity.SourceDocument{Name: "debit.pdf", Data: []byte("%PDF-1.7")}
	layout := &entity.DocumentLayout{Format: constants.PDF, PlainText: "Granit K2 poli 120 60"}

	req := BuildRequest(doc, layout, constants.MethodModelDocument, 0)
	assert.Equal(t, doc.Data, req.Document)
	assert.Equal(t, "application/pdf", req.MIMEType)
	assert.Empty(t, req.TextExcerpt)
	assert.Contains(t, req.SystemPrompt, "JSON Schema")
	assert.Contains(t, req.UserPrompt, "debit.pdf")

	req = BuildRequest(doc, layout, constants.MethodModelText, 9)
	assert.Nil(t, req.Document)
	assert.Equal(t, "Granit K2\n…(truncated)", req.TextExcerpt)
	assert.Contains(t, req.UserPrompt, "Granit K2")
}

func TestBuildDraftJSONSchema_Compiles(t *testing.T) {
	_, err := CompileSchema(BuildDraftJSONSchema())
	require.NoError(t, err)
	assert.NoError(t, ValidateDraft(map[string]any{"items": []any{}}))
	assert.Error(t, ValidateDraft(map[string]any{"items": []any{}, "extra": 1}))
}
