package orders

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/uptrace/bun"

	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
)

func openOrdersTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "orders-test.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "..", "..", "infrastructure", "sqlite", "migrations")
	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func seedOrderData(t *testing.T, db *sqlite.DB) {
	t.Helper()
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		stmts := []string{
			`INSERT INTO stores (id, company_code, name, is_processed) VALUES (1, 'ST-01', 'Alpha Mart', 0)`,
			`INSERT INTO items (id, company_code, name) VALUES (1, 'IT-01', 'Cola 330ml'), (2, 'IT-02', 'Apple Juice 1L'), (3, 'IT-03', 'Biscuits')`,
			`INSERT INTO store_item_rows (id, store_id, item_id, final_order) VALUES
                (1, 1, 1, 100),
                (2, 1, 2, 80),
                (3, 1, 3, 90)`,
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed order data: %v", err)
	}
}

func TestCreateOrderSnapshotsLinesAndFlagsStore(t *testing.T) {
	db := openOrdersTestDB(t)
	seedOrderData(t, db)
	auditSvc := audit.NewService()

	// 270 units at capacity 255 packs into 2 boxes.
	order, err := CreateOrder(context.Background(), db, auditSvc, 1, "rush order", 255)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.PONumber != 1 {
		t.Fatalf("expected first PO number 1, got %d", order.PONumber)
	}
	if order.BoxNumber != 2 {
		t.Fatalf("expected box_number 2 for 270 units at capacity 255, got %d", order.BoxNumber)
	}
	if len(order.Lines) != 3 {
		t.Fatalf("expected 3 snapshot lines, got %d", len(order.Lines))
	}

	// Snapshot survives later worksheet and item edits.
	err = db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE store_item_rows SET final_order = 0`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE items SET name = 'Renamed' WHERE id = 1`)
		return err
	})
	if err != nil {
		t.Fatalf("mutate source data: %v", err)
	}

	got, err := GetOrder(context.Background(), db, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	var colaQty int64
	for _, line := range got.Lines {
		if line.ItemName == "Cola 330ml" {
			colaQty = line.Quantity
		}
	}
	if colaQty != 100 {
		t.Fatalf("expected snapshot quantity 100 for Cola 330ml, got %d", colaQty)
	}

	var isProcessed bool
	if err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT is_processed FROM stores WHERE id = 1`).Scan(ctx, &isProcessed)
	}); err != nil {
		t.Fatalf("read store flag: %v", err)
	}
	if !isProcessed {
		t.Fatalf("expected store flagged processed after order creation")
	}
}

func TestCreateOrderUsesStoreBoxCapacityOverride(t *testing.T) {
	db := openOrdersTestDB(t)
	seedOrderData(t, db)

	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE stores SET box_capacity = 90 WHERE id = 1`)
		return err
	})
	if err != nil {
		t.Fatalf("set capacity override: %v", err)
	}

	order, err := CreateOrder(context.Background(), db, audit.NewService(), 1, "", 255)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.BoxNumber != 3 {
		t.Fatalf("expected box_number 3 for 270 units at capacity 90, got %d", order.BoxNumber)
	}
}

func TestCreateOrderAllowsZeroLines(t *testing.T) {
	db := openOrdersTestDB(t)
	seedOrderData(t, db)

	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE store_item_rows SET final_order = 0`)
		return err
	})
	if err != nil {
		t.Fatalf("zero final orders: %v", err)
	}

	order, err := CreateOrder(context.Background(), db, audit.NewService(), 1, "", 255)
	if err != nil {
		t.Fatalf("create empty order: %v", err)
	}
	if len(order.Lines) != 0 || order.BoxNumber != 0 {
		t.Fatalf("expected empty order with box_number 0, got %d lines / %d boxes", len(order.Lines), order.BoxNumber)
	}
}

func TestCreateOrderRollsBackAsOneUnit(t *testing.T) {
	db := openOrdersTestDB(t)
	seedOrderData(t, db)

	// Force a failure after every order step has run inside the tx.
	boom := errors.New("boom")
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		if _, err := createOrderInTx(ctx, tx, audit.NewService(), 1, "", 255); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got: %v", err)
	}

	var orderCount, lineCount, counterCount int
	var isProcessed bool
	err = db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw(`SELECT COUNT(*) FROM orders`).Scan(ctx, &orderCount); err != nil {
			return err
		}
		if err := tx.NewRaw(`SELECT COUNT(*) FROM order_lines`).Scan(ctx, &lineCount); err != nil {
			return err
		}
		if err := tx.NewRaw(`SELECT COUNT(*) FROM counters`).Scan(ctx, &counterCount); err != nil {
			return err
		}
		return tx.NewRaw(`SELECT is_processed FROM stores WHERE id = 1`).Scan(ctx, &isProcessed)
	})
	if err != nil {
		t.Fatalf("verify rollback: %v", err)
	}
	if orderCount != 0 || lineCount != 0 {
		t.Fatalf("expected no persisted order rows, got %d orders / %d lines", orderCount, lineCount)
	}
	if counterCount != 0 {
		t.Fatalf("expected counter init to roll back with the order, got %d rows", counterCount)
	}
	if isProcessed {
		t.Fatalf("expected store flag rollback")
	}

	// The next successful order still gets PO number 1.
	order, err := CreateOrder(context.Background(), db, audit.NewService(), 1, "", 255)
	if err != nil {
		t.Fatalf("create order after rollback: %v", err)
	}
	if order.PONumber != 1 {
		t.Fatalf("expected PO number 1 after rolled-back attempt, got %d", order.PONumber)
	}
}

func TestListOrdersAggregatesLines(t *testing.T) {
	db := openOrdersTestDB(t)
	seedOrderData(t, db)

	if _, err := CreateOrder(context.Background(), db, audit.NewService(), 1, "first", 255); err != nil {
		t.Fatalf("create order: %v", err)
	}

	rows, err := ListOrders(context.Background(), db)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 order, got %d", len(rows))
	}
	if rows[0].LineCount != 3 || rows[0].TotalQty != 270 {
		t.Fatalf("expected 3 lines / 270 units, got %d / %d", rows[0].LineCount, rows[0].TotalQty)
	}
}
