package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/larderhq/inventory-ledger-service/internal/executor"
	"github.com/larderhq/inventory-ledger-service/internal/plan"
	"github.com/larderhq/inventory-ledger-service/internal/snapshot"
)

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply [plan.json]",
	Short: "Validate a mutation plan and apply it atomically",
	Long: `Read a JSON action plan (from a file, or stdin when no argument is
given), validate it against the current snapshot, and apply it as one
all-or-nothing transaction.

Plans come from an untrusted planner: any error-severity finding rejects
the whole plan before a single row is touched. Warnings are printed and
the plan proceeds; audit them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readPlanInput(args)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		p, err := plan.Decode(data)
		if err != nil {
			return err
		}

		snap, err := snapshot.NewReader(a.store).Read(ctx)
		if err != nil {
			return err
		}

		verdict := plan.Validate(snap.Index(), p)
		for _, d := range verdict.Diagnostics {
			fmt.Println(d)
		}
		if !verdict.Accepted() {
			return fmt.Errorf("plan %s rejected: %d error(s)", p.ID, len(verdict.Errors()))
		}

		if applyDryRun {
			fmt.Printf("plan %s: %s (%d actions, dry run, nothing applied)\n",
				p.ID, verdict.Decision, len(p.Actions))
			return nil
		}

		report, err := executor.New(a.store, a.logger).Execute(ctx, p, verdict)
		if err != nil {
			return err
		}

		for _, w := range report.Warnings {
			fmt.Println("warning:", w)
		}
		fmt.Printf("plan %s committed: %d inserted, %d patched, %d transitions\n",
			report.PlanID, len(report.InsertedIDs), report.Patched, report.Transitions)
		return nil
	},
}

func readPlanInput(args []string) ([]byte, error) {
	if len(args) == 1 {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "validate only, apply nothing")
	rootCmd.AddCommand(applyCmd)
}
