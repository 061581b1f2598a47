package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/metrics"
	"github.com/joseph-ayodele/debitsheet-import/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Processor is the part of pipeline.Processor the queue needs.
type Processor interface {
	Process(ctx context.Context, doc entity.SourceDocument, opts pipeline.Options) (*pipeline.Result, error)
}

// ProcessorQueue runs jobs on a fixed pool of workers. Each job is still one
// sequential extraction; workers only process different files side by side.
type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	results chan<- Outcome

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResults delivers every Outcome on ch. The queue never closes ch.
func WithResults(ch chan<- Outcome) Option {
	return func(q *ProcessorQueue) {
		q.results = ch
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)

				for job := range q.ch {
					metrics.DecrementJobsInQueue()
					out := q.run(job)
					if out.Err != nil {
						q.logger.Error("async.job.failed", "worker_id", workerID, "path", job.Path, "trace_id", job.TraceID, "error", out.Err)
					} else {
						q.logger.Info("async.job.ok",
							"worker_id", workerID,
							"path", job.Path,
							"trace_id", job.TraceID,
							"status", out.Result.Status,
							"elapsed_ms", out.Elapsed.Milliseconds(),
						)
					}
					if q.results != nil {
						q.results <- out
					}
				}

				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(job Job) Outcome {
	start := time.Now()
	out := Outcome{Job: job}

	data, err := os.ReadFile(job.Path)
	if err != nil {
		out.Err = fmt.Errorf("read %s: %w", job.Path, err)
		out.Elapsed = time.Since(start)
		return out
	}
	doc := entity.SourceDocument{
		Name:     filepath.Base(job.Path),
		MIMEType: mime.TypeByExtension(filepath.Ext(job.Path)),
		Data:     data,
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	out.Result, out.Err = q.proc.Process(ctx, doc, pipeline.Options{PreviewOnly: job.PreviewOnly, SubmittedBy: job.SubmittedBy})
	out.Elapsed = time.Since(start)
	return out
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("async.enqueue.rejected", "path", job.Path, "reason", "shutting down")
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	metrics.IncrementJobsInQueue()
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("async.enqueue.backpressure", "path", job.Path)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			metrics.DecrementJobsInQueue()
			return ctx.Err()
		}
	}
	q.logger.Debug("async.enqueue.ok", "path", job.Path, "trace_id", job.TraceID)
	return nil
}

// Shutdown stops accepting jobs and waits for queued ones to finish or for ctx.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
