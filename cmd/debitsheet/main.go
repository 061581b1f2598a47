// Command debitsheet imports stone-shop debit sheets into orders.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "debitsheet",
	Short:         "Extract, reconcile and store debit sheet orders",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `debitsheet reads supplier debit sheets (PDF, XLSX, CSV, DOCX, ODT, RTF, TXT),
extracts their header and line items with a model provider or the layout
fallback, reconciles them against the material catalog and stores the order.

Configuration comes from the environment, after an optional .env file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = common.LoadConfig()
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Log.Level = strings.ToLower(lvl)
		}
		logger = newLogger(cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}

func newLogger(c common.LogConfig) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
