package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/larderhq/inventory-ledger-service/internal/admin"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <id> <quantity>",
	Short: "Administrative quantity fix for a single item",
	Long: `Overwrite one item's quantity directly, bypassing the plan pipeline.
This is the emergency escape hatch around the root-quantity-is-immutable
rule; use it to correct data, not to record consumption.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("item id %q is not an integer", args[0])
		}
		qty, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("quantity %q is not a number", args[1])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		before, err := admin.New(a.store, a.logger).RestoreQuantity(context.Background(), id, qty)
		if err != nil {
			return err
		}
		fmt.Printf("item %d (%s): %s%s -> %s%s\n",
			id, before.Name, before.Quantity, before.Unit, qty, before.Unit)
		return nil
	},
}

var restoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all non-consumed ledger rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		items, err := admin.New(a.store, a.logger).ListItems(context.Background())
		if err != nil {
			return err
		}
		for _, it := range items {
			parent := ""
			if it.ParentID != nil {
				parent = fmt.Sprintf(" (parent %d)", *it.ParentID)
			}
			fmt.Printf("  id %-4d %-30s %8s%-6s @ %-8s [%s]%s\n",
				it.ID, it.Name, it.Quantity, it.Unit, it.Location, it.Status, parent)
		}
		return nil
	},
}

func init() {
	restoreCmd.AddCommand(restoreListCmd)
	rootCmd.AddCommand(restoreCmd)
}
