// Package cli is the operator surface: snapshot export, plan apply,
// rollback, intake and the administrative escape hatches. One invocation
// does one thing against the ledger and exits; concurrent invocations
// are not coordinated.
package cli

import (
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/larderhq/inventory-ledger-service/config"
	"github.com/larderhq/inventory-ledger-service/internal/ledger/postgres"
	"github.com/larderhq/inventory-ledger-service/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "larder",
	Short: "Perishable inventory ledger with plan validation and rollback",
	Long: `larder tracks perishable household items through a stocked/split/
consumed/wasted lifecycle in a persistent ledger.

Mutation plans produced by an external planner are validated against a
snapshot of the ledger, executed atomically, and reversible through
compensating rollback.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// app bundles the per-invocation handles: config built once, one logger,
// one store connection, all released by close.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	store  *postgres.Store
}

func newApp() (*app, error) {
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, err
	}

	db, err := postgres.Connect(&cfg.Postgres)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: log,
		db:     db,
		store:  postgres.NewStore(db),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
	_ = a.db.Close()
}
