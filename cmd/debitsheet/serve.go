package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/debitsheet-import/internal/export"
	"github.com/joseph-ayodele/debitsheet-import/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and gRPC health when GRPC_ADDR is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.db.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
			return err
		}
		if err := a.withProcessor(ctx); err != nil {
			return err
		}

		srv := server.New(cfg.Server, server.Deps{
			Processor: a.processor,
			Orders:    a.orders,
			Logs:      a.logs,
			Exports:   export.NewService(a.orders, a.logs, logger),
			DB:        a.db,
		}, logger)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
