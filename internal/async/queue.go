package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/debitsheet-import/internal/pipeline"
)

// Job is one document file waiting for extraction.
type Job struct {
	Path        string
	PreviewOnly bool
	SubmittedBy string
	SubmittedAt time.Time
	TraceID     string
}

// Outcome reports how one Job ended. Result is nil when Err is set.
type Outcome struct {
	Job     Job
	Result  *pipeline.Result
	Err     error
	Elapsed time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
