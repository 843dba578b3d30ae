package worksheet

import (
	"context"

	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/infrastructure/sqlite"
)

// resetFields are the worksheet columns zeroed when the barcode-release
// commit closes an order cycle.
const resetFields = `order_qty = 0, inventory = 0, dr_6578 = 0, dr_958 = 0, pic_53 = 0,
    total = 0, s_divide_2 = 0, s_order_2 = 0, s_order_5 = 0, final_order = 0`

// LoadPageData returns the full worksheet for a store, creating missing
// zeroed rows so every item appears on the screen.
func LoadPageData(ctx context.Context, db *sqlite.DB, storeID int64) (PageData, error) {
	data := PageData{StoreID: storeID, Rows: make([]RowView, 0)}

	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw(`SELECT name, is_processed FROM stores WHERE id = ?`, storeID).Scan(ctx, &data.StoreName, &data.IsProcessed); err != nil {
			return err
		}
		if err := ensureRows(ctx, tx, storeID); err != nil {
			return err
		}
		return tx.NewRaw(`
SELECT sir.id, sir.store_id, sir.item_id, it.company_code AS item_code, it.name AS item_name,
       sir.order_qty, sir.inventory, sir.dr_6578, sir.dr_958, sir.pic_53,
       sir.total, sir.s_divide_2, sir.s_order_2, sir.s_order_5, sir.final_order
FROM store_item_rows sir
JOIN items it ON it.id = sir.item_id
WHERE sir.store_id = ?
ORDER BY it.name COLLATE NOCASE ASC`, storeID).Scan(ctx, &data.Rows)
	})
	return data, err
}

// ensureRows lazily creates zeroed worksheet rows for items the store does
// not have yet.
func ensureRows(ctx context.Context, tx bun.Tx, storeID int64) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO store_item_rows (store_id, item_id)
SELECT ?, it.id FROM items it
WHERE it.id NOT IN (SELECT item_id FROM store_item_rows WHERE store_id = ?)`, storeID, storeID)
	return err
}

// rawFields are the counted quantities feeding the derived columns.
var rawFields = map[string]bool{
	"order_qty": true, "inventory": true, "dr_6578": true, "dr_958": true, "pic_53": true,
}

// recomputeRowIfRawChanged is the batch AfterRow hook: a raw-field edit
// rewrites the derived columns, a final_order-only edit leaves them alone.
func recomputeRowIfRawChanged(ctx context.Context, tx bun.Tx, id int64, changed []string) error {
	touched := false
	for _, f := range changed {
		if rawFields[f] {
			touched = true
			break
		}
	}
	if !touched {
		return nil
	}
	return RecomputeRow(ctx, tx, id)
}

// RecomputeRow rereads a row's raw quantities and rewrites the derived
// columns.
func RecomputeRow(ctx context.Context, tx bun.Tx, id int64) error {
	var orderQty, inventory, dr6578, dr958, pic53 int64
	if err := tx.NewRaw(`SELECT order_qty, inventory, dr_6578, dr_958, pic_53 FROM store_item_rows WHERE id = ?`, id).Scan(ctx, &orderQty, &inventory, &dr6578, &dr958, &pic53); err != nil {
		return err
	}
	d := Derive(orderQty, inventory, dr6578, dr958, pic53)
	_, err := tx.ExecContext(ctx, `
UPDATE store_item_rows
SET total = ?, s_divide_2 = ?, s_order_2 = ?, s_order_5 = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, d.Total, d.SDivide2, d.SOrder2, d.SOrder5, id)
	return err
}

// RowSchema is the batch-update surface of worksheet rows, scoped to one
// store so a stray row id from another store is skipped rather than applied.
func RowSchema(storeID int64) batch.Schema {
	return batch.Schema{
		Table: "store_item_rows",
		Fields: map[string]batch.FieldKind{
			"order_qty":   batch.FieldInt,
			"inventory":   batch.FieldInt,
			"dr_6578":     batch.FieldInt,
			"dr_958":      batch.FieldInt,
			"pic_53":      batch.FieldInt,
			"final_order": batch.FieldInt,
		},
		Scope:    &batch.Scope{Column: "store_id", Value: storeID},
		AfterRow: recomputeRowIfRawChanged,
	}
}

// ResetRowsForProcessedStores zeroes every worksheet column for rows whose
// store is flagged processed. Runs inside the barcode-release transaction.
func ResetRowsForProcessedStores(ctx context.Context, tx bun.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, `
UPDATE store_item_rows
SET `+resetFields+`, updated_at = CURRENT_TIMESTAMP
WHERE store_id IN (SELECT id FROM stores WHERE is_processed = 1)`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
