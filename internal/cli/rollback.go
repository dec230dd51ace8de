package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/larderhq/inventory-ledger-service/internal/rollback"
)

var (
	rollbackAll     bool
	rollbackLast    int
	rollbackDays    int
	rollbackConfirm bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Undo splits: delete descendants, restore items to in_stock",
	Long: `Select processed items by activity window and roll their splits back:
the descendant subtree is deleted and the item returns to in_stock with
its quantity untouched.

Without --confirm only the selection is printed. The default window is
today; --last, --days and --all each replace it and are mutually
exclusive.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := rollback.NewWindow(rollbackAll, rollbackLast, rollbackDays)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		engine := rollback.New(a.store, a.logger)

		candidates, err := engine.Preview(ctx, window)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Printf("no candidates to roll back (window: %s)\n", window)
			return nil
		}

		fmt.Printf("candidates (window: %s):\n", window)
		for _, c := range candidates {
			fmt.Printf("  id %-4d %-25s %s%s  last activity %s, %d direct children\n",
				c.Item.ID, c.Item.Name, c.Item.Quantity, c.Item.Unit,
				c.LastActivity.Format("2006-01-02 15:04:05"), c.ChildCount)
		}

		if !rollbackConfirm {
			fmt.Println("\nrun again with --confirm to execute")
			return nil
		}

		result, err := engine.Execute(ctx, window)
		if err != nil {
			return err
		}
		fmt.Printf("restored %d item(s), deleted %d child row(s)\n",
			len(result.Restored), result.DeletedChildren)
		return nil
	},
}

func init() {
	rollbackCmd.Flags().BoolVar(&rollbackAll, "all", false, "roll back every processed item")
	rollbackCmd.Flags().IntVar(&rollbackLast, "last", 0, "roll back the N most recently active items")
	rollbackCmd.Flags().IntVar(&rollbackDays, "days", 0, "roll back items active in the trailing N days")
	rollbackCmd.Flags().BoolVar(&rollbackConfirm, "confirm", false, "execute instead of previewing")
	rootCmd.AddCommand(rollbackCmd)
}
