package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// schema is the conceptual ledger table from the interface contract.
// Children are disposable derived records, hence the cascading delete on
// the lineage edge; roots are permanent.
const schema = `
CREATE TABLE IF NOT EXISTS inventory (
    id          BIGSERIAL PRIMARY KEY,
    item_name   TEXT NOT NULL,
    category    TEXT NOT NULL DEFAULT 'uncategorized',
    location    TEXT NOT NULL DEFAULT 'fridge',
    quantity    NUMERIC(12,3) NOT NULL,
    unit        TEXT NOT NULL,
    expiry_date DATE,
    status      TEXT NOT NULL DEFAULT 'in_stock'
                CHECK (status IN ('in_stock', 'consumed', 'processed', 'waste')),
    parent_id   BIGINT REFERENCES inventory(id) ON DELETE CASCADE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_inventory_parent_id ON inventory (parent_id);
CREATE INDEX IF NOT EXISTS idx_inventory_status ON inventory (status);
`

// EnsureSchema creates the ledger table and indexes if absent. It is
// idempotent; migrating an existing table to a new shape is out of scope.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
