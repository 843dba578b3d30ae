package bmr

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/uptrace/bun"

	"storedesk/api/ledger"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
	"storedesk/models"
)

// ErrCycleClosed is returned when an assignment targets a committed cycle.
var ErrCycleClosed = errors.New("bmr cycle already closed")

var factories = map[string]string{
	"m30":    "m30",
	"apollo": "apollo",
	"site3":  "site3",
}

// GroupByItem collects the finalized worksheet rows of every processed
// store and aggregates them per item. Pure query; nothing is mutated. Rows
// from non-processed stores or with a non-positive final order never
// contribute.
func GroupByItem(ctx context.Context, db *sqlite.DB) ([]GroupedItem, error) {
	type flatRow struct {
		ItemID    int64  `bun:"item_id"`
		ItemName  string `bun:"item_name"`
		StoreID   int64  `bun:"store_id"`
		StoreName string `bun:"store_name"`
		Quantity  int64  `bun:"quantity"`
	}

	flat := make([]flatRow, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT sir.item_id, it.name AS item_name, sir.store_id, st.name AS store_name, sir.final_order AS quantity
FROM store_item_rows sir
JOIN stores st ON st.id = sir.store_id
JOIN items it ON it.id = sir.item_id
WHERE st.is_processed = 1 AND sir.final_order > 0
ORDER BY it.name COLLATE NOCASE ASC, st.name COLLATE NOCASE ASC`).Scan(ctx, &flat)
	})
	if err != nil {
		return nil, err
	}

	groups := make([]GroupedItem, 0)
	index := make(map[int64]int)
	for _, row := range flat {
		i, ok := index[row.ItemID]
		if !ok {
			groups = append(groups, GroupedItem{ItemID: row.ItemID, ItemName: row.ItemName, Contributions: make([]Contribution, 0, 1)})
			i = len(groups) - 1
			index[row.ItemID] = i
		}
		groups[i].TotalFinalOrder += row.Quantity
		groups[i].Contributions = append(groups[i].Contributions, Contribution{
			StoreID:   row.StoreID,
			StoreName: row.StoreName,
			Quantity:  row.Quantity,
		})
	}
	return groups, nil
}

// OpenCycle starts a new workflow cycle. The returned id accompanies every
// assignment chunk and the final release commit.
func OpenCycle(ctx context.Context, db *sqlite.DB) (models.BMRCycle, error) {
	var cycle models.BMRCycle
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&cycle).Exec(ctx)
		return err
	})
	return cycle, err
}

// AssignFactory applies one chunk of factory assignments as its own
// transaction. Per item the three factory fields are zeroed and the chosen
// one set to the grouped total, so re-running a chunk or re-assigning an
// item to a different factory overwrites rather than adds.
func AssignFactory(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, mode ledger.TotalMode, cycleID int64, chunk AssignChunk) (AssignResult, error) {
	var res AssignResult
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var closedAt *string
		if err := tx.NewRaw(`SELECT closed_at FROM bmr_cycles WHERE id = ?`, cycleID).Scan(ctx, &closedAt); err != nil {
			return err
		}
		if closedAt != nil {
			return ErrCycleClosed
		}

		for i, a := range chunk.Assignments {
			column, ok := factories[a.AssignedFactory]
			if !ok {
				return fmt.Errorf("assignment %d: unknown factory %q", i, a.AssignedFactory)
			}
			if a.ItemID <= 0 {
				return fmt.Errorf("assignment %d: missing item id", i)
			}
			if err := assignOne(ctx, tx, mode, cycleID, a, column); err != nil {
				return fmt.Errorf("assign item %d: %w", a.ItemID, err)
			}
			res.Assigned++
		}

		return auditSvc.Write(ctx, tx, audit.ActionFactoryAssigned, "bmr_cycles", strconv.FormatInt(cycleID, 10), nil, chunk)
	})
	return res, err
}

func assignOne(ctx context.Context, tx bun.Tx, mode ledger.TotalMode, cycleID int64, a AssignRequest, column string) error {
	// Latest entry wins per item; the release commit rolls entries forward
	// in place, so the existing entry already carries the item's balance.
	var existing []int64
	if err := tx.NewRaw(`SELECT id FROM barcode_ledger_entries WHERE item_id = ? ORDER BY id DESC LIMIT 1`, a.ItemID).Scan(ctx, &existing); err != nil {
		return err
	}

	var entryID int64
	if len(existing) > 0 {
		entryID = existing[0]
		if _, err := tx.ExecContext(ctx, `
UPDATE barcode_ledger_entries
SET m30 = 0, apollo = 0, site3 = 0, `+column+` = ?, item_name = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, a.TotalFinalOrder, a.ItemName, entryID); err != nil {
			return err
		}
	} else {
		// First entry for the item starts from a zero beginning balance;
		// every other numeric field stays zero until edited.
		entry := models.BarcodeLedgerEntry{
			ItemID:   a.ItemID,
			ItemName: a.ItemName,
		}
		if _, err := tx.NewInsert().Model(&entry).Exec(ctx); err != nil {
			return err
		}
		entryID = entry.ID
		if _, err := tx.ExecContext(ctx, `UPDATE barcode_ledger_entries SET `+column+` = ? WHERE id = ?`, a.TotalFinalOrder, entryID); err != nil {
			return err
		}
	}

	// Factory allocations feed the total step of the formula chain.
	if err := ledger.RecomputeEntry(ctx, tx, mode, entryID, []string{column}); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `INSERT INTO bmr_cycle_items (cycle_id, item_id) VALUES (?, ?) ON CONFLICT (cycle_id, item_id) DO NOTHING`, cycleID, a.ItemID)
	return err
}

// CycleEntries returns the ledger entries scoped to one cycle's assigned
// items, ordered by item name. This feeds the factories and barcode
// screens.
func CycleEntries(ctx context.Context, db *sqlite.DB, cycleID int64) ([]models.BarcodeLedgerEntry, error) {
	rows := make([]models.BarcodeLedgerEntry, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var id int64
		if err := tx.NewRaw(`SELECT id FROM bmr_cycles WHERE id = ?`, cycleID).Scan(ctx, &id); err != nil {
			return err
		}
		return tx.NewRaw(`
SELECT ble.*
FROM barcode_ledger_entries ble
JOIN bmr_cycle_items bci ON bci.item_id = ble.item_id
WHERE bci.cycle_id = ?
ORDER BY ble.item_name COLLATE NOCASE ASC`, cycleID).Scan(ctx, &rows)
	})
	return rows, err
}
