package llm

import "context"

// ModelRequest is one extraction call. Document is set for providers that read
// the file itself; TextExcerpt carries the extracted text for the others.
type ModelRequest struct {
	Document     []byte
	MIMEType     string
	DocumentName string
	TextExcerpt  string
	SystemPrompt string
	UserPrompt   string
}

// ModelClient is the interface the pipeline depends on. Complete returns the
// model's raw text reply; parsing is the caller's job.
type ModelClient interface {
	Complete(ctx context.Context, req ModelRequest) (string, error)
}

// Named is implemented by clients that report a provider name for logs and metrics.
type Named interface {
	Name() string
}

// ProviderName returns c's name, or "unknown".
func ProviderName(c ModelClient) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return "unknown"
}
