package ledger

import (
	"context"
	"errors"
	"strconv"

	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/api/worksheet"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sequence"
	"storedesk/infrastructure/sqlite"
)

// ErrCycleClosed is returned when a barcode release targets a cycle that
// was already committed.
var ErrCycleClosed = errors.New("bmr cycle already closed")

// protectedFields are zeroed by the release roll-forward and stripped from
// the incoming change-set so stale client values cannot overwrite them.
var protectedFields = []string{
	"damaged", "actual", "purchase", "returns",
	"endbal", "final_total", "s_request", "f_request",
}

// GenerateResult reports what one barcode release committed.
type GenerateResult struct {
	ReleaseNumber    int64 `json:"release_number"`
	EntriesCommitted int   `json:"entries_committed"`
	Applied          int   `json:"applied"`
	Skipped          int   `json:"skipped"`
	WorksheetReset   int64 `json:"worksheet_rows_reset"`
	StoresReset      int64 `json:"stores_reset"`
}

// GenerateBarcodes is the stage-transition commit that closes an order
// cycle. In one transaction it rolls every scoped entry's ending balance
// forward into the next cycle's beginning balance, zeroes the
// reconciliation fields, stamps the allocated release number, applies the
// operator's remaining edits, resets the worksheets of processed stores
// and re-opens those stores for the next round. A failure anywhere rolls
// the whole commit back.
func GenerateBarcodes(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, mode TotalMode, cycleID int64, updates []batch.Update) (GenerateResult, error) {
	var res GenerateResult
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var closedAt *string
		if err := tx.NewRaw(`SELECT closed_at FROM bmr_cycles WHERE id = ?`, cycleID).Scan(ctx, &closedAt); err != nil {
			return err
		}
		if closedAt != nil {
			return ErrCycleClosed
		}

		scoped := make([]int64, 0)
		if err := tx.NewRaw(`
SELECT ble.id
FROM barcode_ledger_entries ble
JOIN bmr_cycle_items bci ON bci.item_id = ble.item_id
WHERE bci.cycle_id = ?`, cycleID).Scan(ctx, &scoped); err != nil {
			return err
		}

		release, err := sequence.Allocate(ctx, tx, sequence.KindBarcode)
		if err != nil {
			return err
		}
		res.ReleaseNumber = release

		inScope := make(map[int64]bool, len(scoped))
		for _, id := range scoped {
			if _, err := tx.ExecContext(ctx, `
UPDATE barcode_ledger_entries
SET begbal = endbal,
    actual = 0, purchase = 0, returns = 0, damaged = 0,
    endbal = 0, final_total = 0, s_request = 0, f_request = 0,
    release_number = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, release, id); err != nil {
				return err
			}
			// The roll-forward changed begbal, so the total step recomputes.
			if err := RecomputeEntry(ctx, tx, mode, id, []string{"begbal"}); err != nil {
				return err
			}
			inScope[id] = true
		}
		res.EntriesCommitted = len(scoped)

		applied, skipped, err := applyRemainingChanges(ctx, tx, mode, updates, inScope)
		if err != nil {
			return err
		}
		res.Applied = applied
		res.Skipped = skipped

		rowsReset, err := worksheet.ResetRowsForProcessedStores(ctx, tx)
		if err != nil {
			return err
		}
		res.WorksheetReset = rowsReset

		storesRes, err := tx.ExecContext(ctx, `UPDATE stores SET is_processed = 0, updated_at = CURRENT_TIMESTAMP WHERE is_processed = 1`)
		if err != nil {
			return err
		}
		res.StoresReset, err = storesRes.RowsAffected()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE bmr_cycles SET closed_at = CURRENT_TIMESTAMP WHERE id = ?`, cycleID); err != nil {
			return err
		}

		return auditSvc.Write(ctx, tx, audit.ActionBarcodesReleased, "bmr_cycles", strconv.FormatInt(cycleID, 10), nil, res)
	})
	return res, err
}

// applyRemainingChanges strips the protected fields from the incoming
// change-set, drops updates for entries outside the cycle, and applies
// the rest through the batch engine.
func applyRemainingChanges(ctx context.Context, tx bun.Tx, mode TotalMode, updates []batch.Update, inScope map[int64]bool) (applied, skipped int, err error) {
	filtered := make([]batch.Update, 0, len(updates))
	for _, u := range updates {
		if !inScope[u.ID] {
			skipped++
			continue
		}
		changes := make(map[string]any, len(u.Changes))
		for field, v := range u.Changes {
			changes[field] = v
		}
		for _, field := range protectedFields {
			delete(changes, field)
		}
		filtered = append(filtered, batch.Update{ID: u.ID, Changes: changes})
	}

	result, err := batch.Apply(ctx, tx, EntrySchema(mode), filtered)
	if err != nil {
		return 0, 0, err
	}
	return result.Applied, skipped + result.Skipped, nil
}
