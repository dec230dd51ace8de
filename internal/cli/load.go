package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/larderhq/inventory-ledger-service/internal/intake"
	"github.com/larderhq/inventory-ledger-service/internal/ledger/postgres"
)

var loadCmd = &cobra.Command{
	Use:   "load <file.json>",
	Short: "Bulk-load new in_stock items from a JSON file",
	Long: `Insert a JSON array of item records (scan output or hand-written) as
fresh in_stock rows, in one transaction. A single bad record aborts the
whole load.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		n, err := intake.NewLoader(a.store, a.logger).LoadFile(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("loaded %d item(s)\n", n)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the ledger table and indexes if absent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := postgres.EnsureSchema(context.Background(), a.db); err != nil {
			return err
		}
		fmt.Println("schema ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(initCmd)
}
