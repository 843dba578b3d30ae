package worksheet

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/infrastructure/sqlite"
)

func openWorksheetTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "worksheet-test.db")
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

func seedWorksheetData(t *testing.T, db *sqlite.DB) {
	t.Helper()
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		stmts := []string{
			`INSERT INTO stores (id, company_code, name, is_processed) VALUES (1, 'ST-01', 'Alpha Mart', 0), (2, 'ST-02', 'Beta Mart', 0)`,
			`INSERT INTO items (id, company_code, name) VALUES (1, 'IT-01', 'Cola 330ml'), (2, 'IT-02', 'Apple Juice 1L')`,
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed worksheet data: %v", err)
	}
}

func TestDeriveFormulaChain(t *testing.T) {
	cases := []struct {
		name                                    string
		orderQty, inventory, dr6578, dr958, pic int64
		want                                    Derived
	}{
		{"all zero", 0, 0, 0, 0, 0, Derived{0, 0, 0, 0}},
		{"odd total", 3, 2, 1, 1, 0, Derived{7, 4, 8, 10}},
		{"even total", 4, 2, 2, 1, 1, Derived{10, 5, 10, 10}},
		{"single unit", 1, 0, 0, 0, 0, Derived{1, 1, 2, 5}},
		{"multiple of five", 10, 5, 0, 0, 0, Derived{15, 8, 16, 15}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Derive(tc.orderQty, tc.inventory, tc.dr6578, tc.dr958, tc.pic)
			if got != tc.want {
				t.Fatalf("Derive(%d,%d,%d,%d,%d) = %+v, want %+v", tc.orderQty, tc.inventory, tc.dr6578, tc.dr958, tc.pic, got, tc.want)
			}
		})
	}
}

func TestLoadPageDataCreatesMissingRows(t *testing.T) {
	db := openWorksheetTestDB(t)
	seedWorksheetData(t, db)

	data, err := LoadPageData(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("load page data: %v", err)
	}
	if data.StoreName != "Alpha Mart" {
		t.Fatalf("expected store name, got %q", data.StoreName)
	}
	if len(data.Rows) != 2 {
		t.Fatalf("expected one row per item, got %d", len(data.Rows))
	}
	// Sorted by item name: Apple Juice before Cola.
	if data.Rows[0].ItemName != "Apple Juice 1L" || data.Rows[1].ItemName != "Cola 330ml" {
		t.Fatalf("expected rows sorted by item name, got %q, %q", data.Rows[0].ItemName, data.Rows[1].ItemName)
	}
	for _, row := range data.Rows {
		if row.Total != 0 || row.FinalOrder != 0 {
			t.Fatalf("expected fresh rows zeroed, got %+v", row)
		}
	}
}

func TestBatchEditRecomputesDerivedFields(t *testing.T) {
	db := openWorksheetTestDB(t)
	seedWorksheetData(t, db)

	data, err := LoadPageData(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("load page data: %v", err)
	}
	rowID := data.Rows[0].ID

	err = db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := batch.Apply(ctx, tx, RowSchema(1), []batch.Update{
			{ID: rowID, Changes: map[string]any{
				"order_qty": float64(3), "inventory": float64(2), "dr_6578": float64(1),
				"dr_958": float64(1), "pic_53": float64(0), "final_order": float64(6),
			}},
		})
		return err
	})
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}

	var total, sDivide2, sOrder2, sOrder5, finalOrder int64
	err = db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT total, s_divide_2, s_order_2, s_order_5, final_order FROM store_item_rows WHERE id = ?`, rowID).
			Scan(ctx, &total, &sDivide2, &sOrder2, &sOrder5, &finalOrder)
	})
	if err != nil {
		t.Fatalf("read row: %v", err)
	}
	if total != 7 || sDivide2 != 4 || sOrder2 != 8 || sOrder5 != 10 {
		t.Fatalf("derived fields wrong: total=%d s_divide_2=%d s_order_2=%d s_order_5=%d", total, sDivide2, sOrder2, sOrder5)
	}
	if finalOrder != 6 {
		t.Fatalf("expected final_order 6, got %d", finalOrder)
	}
}

func TestBatchEditSkipsRowsOfOtherStores(t *testing.T) {
	db := openWorksheetTestDB(t)
	seedWorksheetData(t, db)

	if _, err := LoadPageData(context.Background(), db, 1); err != nil {
		t.Fatalf("load store 1: %v", err)
	}
	other, err := LoadPageData(context.Background(), db, 2)
	if err != nil {
		t.Fatalf("load store 2: %v", err)
	}
	otherRowID := other.Rows[0].ID

	var res batch.Result
	err = db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		res, err = batch.Apply(ctx, tx, RowSchema(1), []batch.Update{
			{ID: otherRowID, Changes: map[string]any{"order_qty": float64(9)}},
		})
		return err
	})
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	if res.Applied != 0 || res.Skipped != 1 {
		t.Fatalf("expected wrong-store row to be skipped, got %+v", res)
	}

	var orderQty int64
	if err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT order_qty FROM store_item_rows WHERE id = ?`, otherRowID).Scan(ctx, &orderQty)
	}); err != nil {
		t.Fatalf("read row: %v", err)
	}
	if orderQty != 0 {
		t.Fatalf("expected other store's row untouched, got order_qty=%d", orderQty)
	}
}

func TestResetRowsForProcessedStores(t *testing.T) {
	db := openWorksheetTestDB(t)
	seedWorksheetData(t, db)

	if _, err := LoadPageData(context.Background(), db, 1); err != nil {
		t.Fatalf("load store 1: %v", err)
	}
	if _, err := LoadPageData(context.Background(), db, 2); err != nil {
		t.Fatalf("load store 2: %v", err)
	}

	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE store_item_rows SET order_qty = 5, total = 5, final_order = 4`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE stores SET is_processed = 1 WHERE id = 1`)
		return err
	})
	if err != nil {
		t.Fatalf("seed quantities: %v", err)
	}

	err = db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		n, err := ResetRowsForProcessedStores(ctx, tx)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("expected 2 rows reset, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reset rows: %v", err)
	}

	var processedSum, otherSum int64
	err = db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw(`SELECT COALESCE(SUM(order_qty + total + final_order), 0) FROM store_item_rows WHERE store_id = 1`).Scan(ctx, &processedSum); err != nil {
			return err
		}
		return tx.NewRaw(`SELECT COALESCE(SUM(order_qty + total + final_order), 0) FROM store_item_rows WHERE store_id = 2`).Scan(ctx, &otherSum)
	})
	if err != nil {
		t.Fatalf("verify reset: %v", err)
	}
	if processedSum != 0 {
		t.Fatalf("expected processed store rows zeroed, sum=%d", processedSum)
	}
	if otherSum == 0 {
		t.Fatalf("expected non-processed store rows untouched")
	}
}
