package stocklevels

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
	"storedesk/models"
)

// ListStockLevels returns every target joined with store and item names,
// ordered by store then item.
func ListStockLevels(ctx context.Context, db *sqlite.DB) ([]StockLevelView, error) {
	rows := make([]StockLevelView, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT sl.id, sl.store_id, st.name AS store_name, sl.item_id, it.name AS item_name, sl.target_qty, sl.note
FROM stock_levels sl
JOIN stores st ON st.id = sl.store_id
JOIN items it ON it.id = sl.item_id
ORDER BY st.name COLLATE NOCASE ASC, it.name COLLATE NOCASE ASC`).Scan(ctx, &rows)
	})
	return rows, err
}

// GetStockLevel loads one target.
func GetStockLevel(ctx context.Context, db *sqlite.DB, id int64) (models.StockLevel, error) {
	var level models.StockLevel
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&level).Where("sl.id = ?", id).Scan(ctx)
	})
	return level, err
}

// CreateStockLevel inserts one target. The (store, item) pair is unique;
// both sides must exist.
func CreateStockLevel(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, req CreateStockLevelRequest) (models.StockLevel, error) {
	level := models.StockLevel{
		StoreID:   req.StoreID,
		ItemID:    req.ItemID,
		TargetQty: req.TargetQty,
	}
	if req.Note != "" {
		note := req.Note
		level.Note = &note
	}
	if level.StoreID <= 0 {
		return level, &batch.ValidationError{Field: "store_id", Msg: "store id is required"}
	}
	if level.ItemID <= 0 {
		return level, &batch.ValidationError{Field: "item_id", Msg: "item id is required"}
	}

	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var stores, items int
		if err := tx.NewRaw(`SELECT COUNT(1) FROM stores WHERE id = ?`, level.StoreID).Scan(ctx, &stores); err != nil {
			return err
		}
		if stores == 0 {
			return &batch.ValidationError{Field: "store_id", Msg: "store does not exist"}
		}
		if err := tx.NewRaw(`SELECT COUNT(1) FROM items WHERE id = ?`, level.ItemID).Scan(ctx, &items); err != nil {
			return err
		}
		if items == 0 {
			return &batch.ValidationError{Field: "item_id", Msg: "item does not exist"}
		}
		if _, err := tx.NewInsert().Model(&level).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, audit.ActionCreated, "stock_levels", strconv.FormatInt(level.ID, 10), nil, level)
	})
	return level, err
}

// DeleteStockLevel removes one target.
func DeleteStockLevel(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, id int64) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.StockLevel
		if err := tx.NewSelect().Model(&before).Where("sl.id = ?", id).Scan(ctx); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM stock_levels WHERE id = ?`, id)
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
		return auditSvc.Write(ctx, tx, audit.ActionDeleted, "stock_levels", strconv.FormatInt(id, 10), before, nil)
	})
}

// StockLevelSchema is the batch-edit surface of stocking targets.
func StockLevelSchema() batch.Schema {
	return batch.Schema{
		Table: "stock_levels",
		Fields: map[string]batch.FieldKind{
			"target_qty": batch.FieldInt,
			"note":       batch.FieldNullableText,
		},
	}
}
