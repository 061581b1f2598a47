package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cfg, logger, false)
		if err != nil {
			return err
		}
		a.Close()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
