package disers

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
	"storedesk/models"
)

// ListDisers returns every diser joined with its store name.
func ListDisers(ctx context.Context, db *sqlite.DB) ([]DiserView, error) {
	rows := make([]DiserView, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT d.id, d.name, d.store_id, st.name AS store_name, d.rate, d.sales, d.commission
FROM disers d
LEFT JOIN stores st ON st.id = d.store_id
ORDER BY d.name COLLATE NOCASE ASC`).Scan(ctx, &rows)
	})
	return rows, err
}

// GetDiser loads one diser.
func GetDiser(ctx context.Context, db *sqlite.DB, id int64) (models.Diser, error) {
	var diser models.Diser
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&diser).Where("d.id = ?", id).Scan(ctx)
	})
	return diser, err
}

// CreateDiser inserts one diser. A store assignment must point at an
// existing store.
func CreateDiser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, req CreateDiserRequest) (models.Diser, error) {
	diser := models.Diser{
		Name:       strings.TrimSpace(req.Name),
		StoreID:    req.StoreID,
		Rate:       req.Rate,
		Sales:      req.Sales,
		Commission: req.Commission,
	}
	if diser.Name == "" {
		return diser, &batch.ValidationError{Field: "name", Msg: "name is required"}
	}

	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if diser.StoreID != nil {
			var count int
			if err := tx.NewRaw(`SELECT COUNT(1) FROM stores WHERE id = ?`, *diser.StoreID).Scan(ctx, &count); err != nil {
				return err
			}
			if count == 0 {
				return &batch.ValidationError{Field: "store_id", Msg: "store does not exist"}
			}
		}
		if _, err := tx.NewInsert().Model(&diser).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, audit.ActionCreated, "disers", strconv.FormatInt(diser.ID, 10), nil, diser)
	})
	return diser, err
}

// DeleteDiser removes one diser.
func DeleteDiser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, id int64) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.Diser
		if err := tx.NewSelect().Model(&before).Where("d.id = ?", id).Scan(ctx); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM disers WHERE id = ?`, id)
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
		return auditSvc.Write(ctx, tx, audit.ActionDeleted, "disers", strconv.FormatInt(id, 10), before, nil)
	})
}

// DiserSchema is the batch-edit surface of the diser roster.
func DiserSchema() batch.Schema {
	return batch.Schema{
		Table: "disers",
		Fields: map[string]batch.FieldKind{
			"name":       batch.FieldText,
			"store_id":   batch.FieldNullableInt,
			"rate":       batch.FieldFloat,
			"sales":      batch.FieldFloat,
			"commission": batch.FieldFloat,
		},
	}
}

// ResetSales zeroes the sales figure for every diser. With dryRun it only
// counts the rows a real run would touch. The monthly scheduler calls this
// through cmd/resetSales.
func ResetSales(ctx context.Context, db *sqlite.DB, dryRun bool) (int64, error) {
	if dryRun {
		var count int64
		err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			return tx.NewRaw(`SELECT COUNT(*) FROM disers WHERE sales <> 0`).Scan(ctx, &count)
		})
		return count, err
	}

	var affected int64
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE disers SET sales = 0, updated_at = CURRENT_TIMESTAMP WHERE sales <> 0`)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}
