package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/larderhq/inventory-ledger-service/config"
	"github.com/larderhq/inventory-ledger-service/internal/ledger"
	"github.com/larderhq/inventory-ledger-service/internal/ledger/postgres"
	"github.com/larderhq/inventory-ledger-service/internal/model"
)

func TestStoreSplitAndRollbackRoundTrip(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	name, port := startPostgresContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(name) })

	db, err := postgres.Connect(&config.PostgresConfig{
		Host:            "127.0.0.1",
		Port:            port,
		User:            "larder",
		Password:        "testpw",
		DBName:          "larder_test",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 300,
		ConnMaxIdleTime: 60,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// Idempotent: a second call must not fail.
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("EnsureSchema (second run): %v", err)
	}

	store := postgres.NewStore(db)

	expiry := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	var rootID int64
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		id, err := tx.InsertItem(ctx, &model.InventoryItem{
			Name:       "猪肉",
			Category:   "meat",
			Location:   model.LocationFridge,
			Quantity:   decimal.RequireFromString("1000"),
			Unit:       "g",
			ExpiryDate: &expiry,
			Status:     model.StatusInStock,
		})
		rootID = id
		return err
	})
	if err != nil {
		t.Fatalf("seed root: %v", err)
	}

	stocked, err := store.InStockItems(ctx)
	if err != nil {
		t.Fatalf("InStockItems: %v", err)
	}
	if len(stocked) != 1 || stocked[0].ID != rootID {
		t.Fatalf("in stock = %v, want just the root", stocked)
	}
	if stocked[0].ExpiryDate == nil || !stocked[0].ExpiryDate.Equal(expiry) {
		t.Fatalf("expiry round-tripped as %v, want %v", stocked[0].ExpiryDate, expiry)
	}

	// Split: parent processed, two children conserve 1000g.
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		if err := tx.TransitionStatus(ctx, rootID, model.StatusInStock, model.StatusProcessed); err != nil {
			return err
		}
		for _, c := range []struct {
			qty    string
			status model.Status
		}{
			{"600", model.StatusInStock},
			{"400", model.StatusConsumed},
		} {
			if _, err := tx.InsertItem(ctx, &model.InventoryItem{
				Name:     "猪肉",
				Category: "meat",
				Location: model.LocationFridge,
				Quantity: decimal.RequireFromString(c.qty),
				Unit:     "g",
				Status:   c.status,
				ParentID: &rootID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("split transaction: %v", err)
	}

	// The stale-status guard must hold: the parent is no longer in_stock.
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		return tx.TransitionStatus(ctx, rootID, model.StatusInStock, model.StatusWaste)
	})
	if !errors.Is(err, ledger.ErrStaleStatus) {
		t.Fatalf("transition of a processed row: err = %v, want ErrStaleStatus", err)
	}

	candidates, err := store.ProcessedCandidates(ctx)
	if err != nil {
		t.Fatalf("ProcessedCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Item.ID != rootID || candidates[0].ChildCount != 2 {
		t.Fatalf("candidates = %+v, want the split root with 2 children", candidates)
	}

	// Roll back: delete the subtree, restore the root.
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		deleted, err := tx.DeleteDescendants(ctx, rootID)
		if err != nil {
			return err
		}
		if deleted != 2 {
			return fmt.Errorf("deleted %d rows, want 2", deleted)
		}
		return tx.TransitionStatus(ctx, rootID, model.StatusProcessed, model.StatusInStock)
	})
	if err != nil {
		t.Fatalf("rollback transaction: %v", err)
	}

	root, err := store.GetItem(ctx, rootID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if root.Status != model.StatusInStock {
		t.Errorf("root status = %s, want in_stock", root.Status)
	}
	if !root.Quantity.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("root quantity = %s, want the untouched 1000", root.Quantity)
	}

	all, err := store.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ledger holds %d rows after rollback, want 1", len(all))
	}

	// A failing action aborts the whole transaction.
	err = store.WithTx(ctx, func(tx ledger.Tx) error {
		if err := tx.TransitionStatus(ctx, rootID, model.StatusInStock, model.StatusConsumed); err != nil {
			return err
		}
		return tx.TransitionStatus(ctx, 999999, model.StatusInStock, model.StatusWaste)
	})
	if !errors.Is(err, ledger.ErrStaleStatus) {
		t.Fatalf("aborting tx: err = %v, want ErrStaleStatus", err)
	}
	root, _ = store.GetItem(ctx, rootID)
	if root.Status != model.StatusInStock {
		t.Fatalf("root status = %s after aborted tx, want in_stock", root.Status)
	}
}

func startPostgresContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("larder-test-pg-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "POSTGRES_USER=larder",
		"-e", "POSTGRES_PASSWORD=testpw",
		"-e", "POSTGRES_DB=larder_test",
		"-p", "127.0.0.1:0:5432",
		"postgres:16-alpine",
	)
	if err != nil {
		t.Fatalf("start postgres container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "5432/tcp")
	if err != nil {
		t.Fatalf("postgres docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(90 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "pg_isready", "-U", "larder", "-d", "larder_test")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("postgres did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
