package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
	"github.com/joseph-ayodele/debitsheet-import/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract one debit sheet and print the result summary as JSON",
	Long: `Extract runs one document through the pipeline. With --preview nothing is
committed; with --inmem a throwaway SQLite database is used, so the catalog is
empty and every reference comes back as unknown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preview, _ := cmd.Flags().GetBool("preview")
		inMemory, _ := cmd.Flags().GetBool("inmem")
		showDraft, _ := cmd.Flags().GetBool("draft")
		if !inMemory {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx, cfg, logger, inMemory)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.withProcessor(ctx); err != nil {
			return err
		}

		user, _ := cmd.Flags().GetString("user")
		ctx = common.WithRequestID(ctx, "cli-"+filepath.Base(path))
		res, err := a.processor.Process(ctx, entity.SourceDocument{
			Name:     filepath.Base(path),
			MIMEType: mime.TypeByExtension(filepath.Ext(path)),
			Data:     data,
		}, pipeline.Options{PreviewOnly: preview, SubmittedBy: user})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if showDraft {
			return enc.Encode(struct {
				Summary pipeline.Summary        `json:"summary"`
				Draft   *entity.DebitOrderDraft `json:"draft"`
			}{res.Summary(), res.Draft})
		}
		if err := enc.Encode(res.Summary()); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().Bool("preview", false, "extract and reconcile without committing the order")
	extractCmd.Flags().Bool("inmem", false, "use a throwaway in-memory SQLite database")
	extractCmd.Flags().Bool("draft", false, "also print the full extracted draft")
	extractCmd.Flags().String("user", "cli", "submitter recorded on the order and audit log")

	rootCmd.AddCommand(extractCmd)
}
