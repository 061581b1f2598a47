package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/debitsheet-import/internal/export"
	"github.com/joseph-ayodele/debitsheet-import/internal/utils"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write XLSX exports",
}

var exportOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Export committed orders and their lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		from, err := dateFlag(cmd, "from")
		if err != nil {
			return err
		}
		to, err := dateFlag(cmd, "to")
		if err != nil {
			return err
		}
		return runExport(cmd, out, func(svc *export.Service) ([]byte, error) {
			return svc.ExportOrdersXLSX(cmd.Context(), from, to)
		})
	},
}

var exportLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Export the most recent extraction attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		limit, _ := cmd.Flags().GetInt("limit")
		return runExport(cmd, out, func(svc *export.Service) ([]byte, error) {
			return svc.ExportExtractionLogsXLSX(cmd.Context(), limit)
		})
	},
}

func runExport(cmd *cobra.Command, out string, build func(*export.Service) ([]byte, error)) error {
	if out == "" {
		return fmt.Errorf("--out is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := build(export.NewService(a.orders, a.logs, logger))
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
	return nil
}

func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return nil, nil
	}
	t, err := utils.ParseYMD(v)
	if err != nil {
		return nil, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return &t, nil
}

func init() {
	exportOrdersCmd.Flags().String("out", "orders.xlsx", "output file")
	exportOrdersCmd.Flags().String("from", "", "first creation day, YYYY-MM-DD")
	exportOrdersCmd.Flags().String("to", "", "last creation day, YYYY-MM-DD")
	exportLogsCmd.Flags().String("out", "extraction-logs.xlsx", "output file")
	exportLogsCmd.Flags().Int("limit", 1000, "number of most recent attempts")

	exportCmd.AddCommand(exportOrdersCmd, exportLogsCmd)
	rootCmd.AddCommand(exportCmd)
}
