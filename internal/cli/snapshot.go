package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/larderhq/inventory-ledger-service/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the planner-facing snapshot of stocked items as JSON",
	Long: `Print every in_stock item in canonical order (creation time ascending,
ties broken by soonest expiry). This list is the only context the
external planner receives.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		snap, err := snapshot.NewReader(a.store).Read(context.Background())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(snap.View(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
