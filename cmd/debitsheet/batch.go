package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/debitsheet-import/constants"
	"github.com/joseph-ayodele/debitsheet-import/internal/async"
	"github.com/joseph-ayodele/debitsheet-import/internal/ingest"
)

type batchTally struct {
	mu          sync.Mutex
	success     int
	needsReview int
	failed      int
}

func (t *batchTally) add(out async.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case out.Err != nil:
		t.failed++
	case out.Result.Status == constants.StatusNeedsReview:
		t.needsReview++
	default:
		t.success++
	}
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Import every debit sheet under a directory",
	Long: `Batch scans --dir for importable files and runs each through the pipeline on a
pool of workers. With --watch it keeps running and imports files as they appear
until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		workers, _ := cmd.Flags().GetInt("workers")
		preview, _ := cmd.Flags().GetBool("preview")
		exts, _ := cmd.Flags().GetStringSlice("ext")
		includeHidden, _ := cmd.Flags().GetBool("include-hidden")
		watch, _ := cmd.Flags().GetBool("watch")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		user, _ := cmd.Flags().GetString("user")

		if dir == "" {
			return fmt.Errorf("--dir is required")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.withProcessor(ctx); err != nil {
			return err
		}

		results := make(chan async.Outcome, workers)
		tally := &batchTally{}
		collected := make(chan struct{})
		go func() {
			defer close(collected)
			for out := range results {
				tally.add(out)
				status := "error"
				if out.Err == nil {
					status = string(out.Result.Status)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s (%dms)\n", status, out.Job.Path, out.Elapsed.Milliseconds())
			}
		}()

		queue := async.NewProcessorQueue(a.processor, logger,
			async.WithWorkers(workers),
			async.WithQueueSize(workers*4),
			async.WithProcessTimeout(cfg.LLM.Timeout*time.Duration(max(cfg.LLM.MaxAttempts, 1))+time.Minute),
			async.WithResults(results),
		)
		enqueue := func(path string) error {
			return queue.Enqueue(ctx, async.Job{
				Path:        path,
				PreviewOnly: preview,
				SubmittedBy: user,
				TraceID:     "batch-" + uuid.NewString(),
			})
		}

		var runErr error
		if watch {
			runErr = watchDir(ctx, dir, exts, !includeHidden, debounce, enqueue)
		} else {
			runErr = scanDir(dir, exts, !includeHidden, enqueue)
		}

		queue.Shutdown(context.WithoutCancel(ctx))
		close(results)
		<-collected

		fmt.Fprintf(cmd.OutOrStdout(), "done: %d success, %d needs_review, %d failed\n",
			tally.success, tally.needsReview, tally.failed)
		if runErr != nil {
			return runErr
		}
		if tally.failed > 0 {
			return fmt.Errorf("%d document(s) failed", tally.failed)
		}
		return nil
	},
}

func scanDir(dir string, exts []string, skipHidden bool, enqueue func(string) error) error {
	paths, _, err := ingest.ScanDirectory(dir, exts, skipHidden, logger)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := enqueue(p); err != nil {
			return err
		}
	}
	return nil
}

func watchDir(ctx context.Context, dir string, exts []string, skipHidden bool, debounce time.Duration, enqueue func(string) error) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{abs},
		AllowedExts: ingest.ExtSet(exts),
		InitialScan: true,
		SkipHidden:  skipHidden,
		Debounce:    debounce,
	}, logger)
	if err != nil {
		return err
	}
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return nil
			}
			if err := enqueue(p); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		case err, ok := <-errs:
			if ok && err != nil {
				logger.Warn("batch.watch.error", "error", err)
			}
			if !ok {
				errs = nil
			}
		}
	}
}

func init() {
	batchCmd.Flags().String("dir", "", "directory to import")
	batchCmd.Flags().Int("workers", 4, "documents processed side by side")
	batchCmd.Flags().Bool("preview", false, "extract and reconcile without committing orders")
	batchCmd.Flags().StringSlice("ext", nil, "file extensions to import (default: all supported)")
	batchCmd.Flags().Bool("include-hidden", false, "also import hidden files and directories")
	batchCmd.Flags().Bool("watch", false, "keep watching --dir for new files")
	batchCmd.Flags().Duration("debounce", 2*time.Second, "quiet period before a changed file is imported (with --watch)")
	batchCmd.Flags().String("user", "batch", "submitter recorded on orders and audit logs")

	rootCmd.AddCommand(batchCmd)
}
