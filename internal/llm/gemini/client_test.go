package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/debitsheet-import/internal/llm"
)

func TestNewClient_RequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := NewClient(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestClient_Complete_SendsDocumentInline(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"items\":[]}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{APIKey: "k", Model: "gemini-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	reply, err := c.Complete(context.Background(), llm.ModelRequest{
		Document:     []byte("%PDF-1.7"),
		MIMEType:     "application/pdf",
		SystemPrompt: "read the debit sheet",
		UserPrompt:   "Filename: a.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, reply)

	assert.True(t, strings.Contains(body, "inlineData"), body)
	assert.Contains(t, body, "application/pdf")
	assert.Contains(t, body, "read the debit sheet")
	assert.Contains(t, body, "application/json")
}
