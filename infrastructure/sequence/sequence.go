// Package sequence issues purchase-order and barcode-release numbers from
// the single shared counters row. Allocation runs inside the caller's write
// transaction; the single-writer sqlite connection serializes concurrent
// callers, so no two allocations ever return the same number. Gaps are
// acceptable (a rolled-back order burns nothing because the increment rolls
// back with it), duplicates are not.
package sequence

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"storedesk/infrastructure/sqlite"
)

// Kind selects which counter column an allocation draws from.
type Kind string

const (
	KindPO      Kind = "po"
	KindBarcode Kind = "barcode"
)

func column(kind Kind) (string, error) {
	switch kind {
	case KindPO:
		return "next_po_number", nil
	case KindBarcode:
		return "next_barcode_number", nil
	}
	return "", fmt.Errorf("unknown counter kind %q", kind)
}

// Allocate returns the current counter value and increments it, inside the
// caller's write transaction. The counters row is created as 1/1 on first use.
func Allocate(ctx context.Context, tx bun.Tx, kind Kind) (int64, error) {
	col, err := column(kind)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO counters (id, next_po_number, next_barcode_number) VALUES (1, 1, 1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return 0, fmt.Errorf("init counters row: %w", err)
	}

	var current int64
	if err := tx.NewRaw(`SELECT `+col+` FROM counters WHERE id = 1`).Scan(ctx, &current); err != nil {
		return 0, fmt.Errorf("read counter %s: %w", kind, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE counters SET `+col+` = ? WHERE id = 1`, current+1); err != nil {
		return 0, fmt.Errorf("advance counter %s: %w", kind, err)
	}
	return current, nil
}

// Peek returns the next value to be allocated without incrementing, for
// display on the order and barcode screens.
func Peek(ctx context.Context, db *sqlite.DB, kind Kind) (int64, error) {
	col, err := column(kind)
	if err != nil {
		return 0, err
	}

	next := int64(1)
	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var count int
		if err := tx.NewRaw(`SELECT COUNT(*) FROM counters WHERE id = 1`).Scan(ctx, &count); err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		return tx.NewRaw(`SELECT ` + col + ` FROM counters WHERE id = 1`).Scan(ctx, &next)
	})
	if err != nil {
		return 0, fmt.Errorf("peek counter %s: %w", kind, err)
	}
	return next, nil
}
