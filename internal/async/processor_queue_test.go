package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/pipeline"
)

type recordingProcessor struct {
	mu   sync.Mutex
	docs []entity.SourceDocument
	opts []pipeline.Options
	ids  []string
	err  error
}

func (p *recordingProcessor) Process(ctx context.Context, doc entity.SourceDocument, opts pipeline.Options) (*pipeline.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs = append(p.docs, doc)
	p.opts = append(p.opts, opts)
	p.ids = append(p.ids, common.RequestIDFromContext(ctx))
	if p.err != nil {
		return nil, p.err
	}
	return &pipeline.Result{Status: constants.StatusSuccess}, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessorQueue_ProcessesEveryJob(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "x;y")
	b := writeFile(t, dir, "b.pdf", "%PDF-1.4")

	proc := &recordingProcessor{}
	results := make(chan Outcome, 4)
	q := NewProcessorQueue(proc, quiet(), WithWorkers(2), WithQueueSize(4), WithResults(results))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{Path: a, PreviewOnly: true, TraceID: "t-a"}))
	require.NoError(t, q.Enqueue(ctx, Job{Path: b, SubmittedBy: "batch"}))

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	require.Len(t, results, 2)
	byName := map[string]Outcome{}
	for i := 0; i < 2; i++ {
		out := <-results
		require.NoError(t, out.Err)
		byName[filepath.Base(out.Job.Path)] = out
	}
	assert.Equal(t, constants.StatusSuccess, byName["a.csv"].Result.Status)
	assert.False(t, byName["a.csv"].Job.SubmittedAt.IsZero())

	proc.mu.Lock()
	defer proc.mu.Unlock()
	require.Len(t, proc.docs, 2)
	for i, doc := range proc.docs {
		switch doc.Name {
		case "a.csv":
			assert.Equal(t, []byte("x;y"), doc.Data)
			assert.True(t, proc.opts[i].PreviewOnly)
			assert.Equal(t, "t-a", proc.ids[i])
		case "b.pdf":
			assert.Equal(t, "application/pdf", doc.MIMEType)
			assert.Equal(t, "batch", proc.opts[i].SubmittedBy)
		default:
			t.Fatalf("unexpected document %q", doc.Name)
		}
	}
}

func TestProcessorQueue_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	ok := writeFile(t, dir, "ok.csv", "x")

	proc := &recordingProcessor{err: common.ErrDocumentUnreadable}
	results := make(chan Outcome, 2)
	q := NewProcessorQueue(proc, quiet(), WithWorkers(1), WithResults(results))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: ok}))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: filepath.Join(dir, "missing.pdf")}))
	q.Shutdown(context.Background())

	first, second := <-results, <-results
	assert.ErrorIs(t, first.Err, common.ErrDocumentUnreadable)
	assert.Nil(t, first.Result)
	require.Error(t, second.Err)
	assert.True(t, errors.Is(second.Err, os.ErrNotExist))
}

func TestProcessorQueue_RejectsAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingProcessor{}, quiet(), WithWorkers(1))
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "x.pdf"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
