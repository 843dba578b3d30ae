package ledger

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/infrastructure/sqlite"
	"storedesk/models"
)

// ListEntries returns all ledger entries ordered by item name.
func ListEntries(ctx context.Context, db *sqlite.DB) ([]models.BarcodeLedgerEntry, error) {
	rows := make([]models.BarcodeLedgerEntry, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).Order("item_name ASC").Scan(ctx)
	})
	return rows, err
}

// GetEntry loads one ledger entry.
func GetEntry(ctx context.Context, db *sqlite.DB, id int64) (models.BarcodeLedgerEntry, error) {
	var entry models.BarcodeLedgerEntry
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&entry).Where("ble.id = ?", id).Scan(ctx)
	})
	return entry, err
}

// DeleteEntry hard-deletes one ledger entry; there are no cascades.
func DeleteEntry(ctx context.Context, db *sqlite.DB, id int64) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM barcode_ledger_entries WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// totalInputs and endbalInputs split the formula chain: a change to the
// first group recomputes total, a change to the second cascades through
// endbal, final_total and s_request. Untouched steps keep their stored
// values.
var totalInputs = map[string]bool{
	"begbal": true, "m30": true, "apollo": true, "site3": true,
}

var endbalInputs = map[string]bool{
	"actual": true, "purchase": true, "returns": true, "damaged": true,
}

// EntrySchema is the mid-cycle batch-update surface of ledger entries.
func EntrySchema(mode TotalMode) batch.Schema {
	return batch.Schema{
		Table: "barcode_ledger_entries",
		Fields: map[string]batch.FieldKind{
			"begbal":    batch.FieldInt,
			"m30":       batch.FieldInt,
			"apollo":    batch.FieldInt,
			"site3":     batch.FieldInt,
			"actual":    batch.FieldInt,
			"purchase":  batch.FieldInt,
			"returns":   batch.FieldInt,
			"damaged":   batch.FieldInt,
			"f_request": batch.FieldInt,
			"notes":     batch.FieldNullableText,
			"condition": batch.FieldNullableText,
		},
		AfterRow: func(ctx context.Context, tx bun.Tx, id int64, changed []string) error {
			return RecomputeEntry(ctx, tx, mode, id, changed)
		},
	}
}

// RecomputeEntry reapplies the formula chain for one entry, recomputing
// only the steps whose inputs appear in changed.
func RecomputeEntry(ctx context.Context, tx bun.Tx, mode TotalMode, id int64, changed []string) error {
	recomputeTotal := false
	recomputeEndBal := false
	for _, f := range changed {
		if totalInputs[f] {
			recomputeTotal = true
		}
		if endbalInputs[f] {
			recomputeEndBal = true
		}
	}
	if !recomputeTotal && !recomputeEndBal {
		return nil
	}

	var begbal, m30, apollo, site3, actual, purchase, returns, damaged, reorderPoint int64
	err := tx.NewRaw(`
SELECT ble.begbal, ble.m30, ble.apollo, ble.site3,
       ble.actual, ble.purchase, ble.returns, ble.damaged,
       it.reorder_point
FROM barcode_ledger_entries ble
JOIN items it ON it.id = ble.item_id
WHERE ble.id = ?`, id).Scan(ctx, &begbal, &m30, &apollo, &site3, &actual, &purchase, &returns, &damaged, &reorderPoint)
	if err != nil {
		return err
	}

	if recomputeTotal {
		if _, err := tx.ExecContext(ctx, `UPDATE barcode_ledger_entries SET total = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			mode.Total(begbal, m30, apollo, site3), id); err != nil {
			return err
		}
	}
	if recomputeEndBal {
		endbal := EndBal(actual, purchase, returns, damaged)
		finalTotal := FinalTotal(reorderPoint, endbal)
		if _, err := tx.ExecContext(ctx, `
UPDATE barcode_ledger_entries
SET endbal = ?, final_total = ?, s_request = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, endbal, finalTotal, SRequest(finalTotal), id); err != nil {
			return err
		}
	}
	return nil
}
