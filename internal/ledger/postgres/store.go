package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/internal/ledger"
	"github.com/larderhq/inventory-ledger-service/internal/model"
)

// Store is the Postgres ledger. It satisfies ledger.Store; the
// transaction handle it hands to WithTx callbacks satisfies ledger.Tx.
type Store struct {
	DB *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) InStockItems(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	// Canonical snapshot order: FIFO by creation, soonest expiry first
	// on ties, undated rows last.
	query := `
        SELECT * FROM inventory
        WHERE status = 'in_stock'
        ORDER BY created_at ASC, expiry_date ASC NULLS LAST, id ASC
    `
	if err := s.DB.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) AllItems(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	query := `SELECT * FROM inventory ORDER BY id ASC`
	if err := s.DB.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return getItem(ctx, s.DB, id)
}

type candidateRow struct {
	model.InventoryItem
	LastActivity time.Time `db:"last_activity"`
	ChildCount   int       `db:"child_count"`
}

func (s *Store) ProcessedCandidates(ctx context.Context) ([]ledger.Candidate, error) {
	// Last activity is the parent's own update or the newest child
	// creation/update, whichever is later.
	query := `
        SELECT p.*,
               GREATEST(
                   p.updated_at,
                   COALESCE((
                       SELECT MAX(GREATEST(c.created_at, c.updated_at))
                       FROM inventory c
                       WHERE c.parent_id = p.id
                   ), p.updated_at)
               ) AS last_activity,
               (SELECT COUNT(*) FROM inventory c WHERE c.parent_id = p.id) AS child_count
        FROM inventory p
        WHERE p.status = 'processed'
        ORDER BY last_activity DESC, p.id DESC
    `
	var rows []candidateRow
	if err := s.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	out := make([]ledger.Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledger.Candidate{
			Item:         r.InventoryItem,
			LastActivity: r.LastActivity,
			ChildCount:   r.ChildCount,
		})
	}
	return out, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) GetItem(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return getItem(ctx, t.tx, id)
}

func (t *pgTx) InsertItem(ctx context.Context, item *model.InventoryItem) (int64, error) {
	query := `
        INSERT INTO inventory (item_name, category, location, quantity, unit, expiry_date, status, parent_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
        RETURNING id
    `
	var id int64
	err := t.tx.QueryRowxContext(ctx, query,
		item.Name, item.Category, item.Location, item.Quantity,
		item.Unit, item.ExpiryDate, item.Status, item.ParentID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	item.ID = id
	return id, nil
}

func (t *pgTx) PatchItem(ctx context.Context, id int64, patch ledger.FieldPatch) error {
	if patch.Empty() {
		return nil
	}
	// Assemble SET from the supplied fields only; updated_at always
	// refreshes. The status guard keeps patches off terminal rows.
	set := "updated_at = now()"
	args := []interface{}{}
	n := 1
	if patch.Location != nil {
		set += fmt.Sprintf(", location = $%d", n)
		args = append(args, *patch.Location)
		n++
	}
	if patch.Status != nil {
		set += fmt.Sprintf(", status = $%d", n)
		args = append(args, *patch.Status)
		n++
	}
	if patch.ExpiryDate != nil {
		set += fmt.Sprintf(", expiry_date = $%d", n)
		args = append(args, *patch.ExpiryDate)
		n++
	}
	query := fmt.Sprintf("UPDATE inventory SET %s WHERE id = $%d AND status = 'in_stock'", set, n)
	args = append(args, id)

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patch item %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (t *pgTx) TransitionStatus(ctx context.Context, id int64, from, to model.Status) error {
	query := `UPDATE inventory SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`
	res, err := t.tx.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("transition item %d to %s: %w", id, to, err)
	}
	return expectOneRow(res, id)
}

func (t *pgTx) DeleteDescendants(ctx context.Context, id int64) (int64, error) {
	query := `
        WITH RECURSIVE sub AS (
            SELECT id FROM inventory WHERE parent_id = $1
            UNION ALL
            SELECT i.id FROM inventory i JOIN sub ON i.parent_id = sub.id
        )
        DELETE FROM inventory WHERE id IN (SELECT id FROM sub)
    `
	res, err := t.tx.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete descendants of %d: %w", id, err)
	}
	return res.RowsAffected()
}

func (t *pgTx) SetQuantity(ctx context.Context, id int64, qty decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE inventory SET quantity = $1, updated_at = now() WHERE id = $2`, qty, id)
	if err != nil {
		return fmt.Errorf("set quantity of %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func getItem(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := sqlx.GetContext(ctx, q, &item, `SELECT * FROM inventory WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, ledger.ErrStaleStatus)
	}
	return nil
}
