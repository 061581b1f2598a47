package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/debitsheet-import/internal/export"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the material catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Upsert catalog references from a code | description | unit_weight sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		refs, err := export.ImportCatalogXLSX(f)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.catalog.Upsert(cmd.Context(), refs)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d catalog reference(s)\n", n)
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}
