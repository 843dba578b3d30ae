package items

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/uptrace/bun"

	"storedesk/api/batch"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
	"storedesk/models"
)

// ListItems returns the item master ordered by name.
func ListItems(ctx context.Context, db *sqlite.DB) ([]models.Item, error) {
	rows := make([]models.Item, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).Order("name ASC").Scan(ctx)
	})
	return rows, err
}

// GetItem loads one item.
func GetItem(ctx context.Context, db *sqlite.DB, id int64) (models.Item, error) {
	var item models.Item
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&item).Where("it.id = ?", id).Scan(ctx)
	})
	return item, err
}

// CreateItem inserts one item.
func CreateItem(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, req CreateItemRequest) (models.Item, error) {
	item := models.Item{
		CompanyCode:  strings.TrimSpace(req.CompanyCode),
		Name:         strings.TrimSpace(req.Name),
		ReorderPoint: req.ReorderPoint,
		Multiples:    req.Multiples,
		UnitPrice:    req.UnitPrice,
		Category:     strings.TrimSpace(req.Category),
	}
	if item.CompanyCode == "" {
		return item, &batch.ValidationError{Field: "company_code", Msg: "company code is required"}
	}
	if item.Name == "" {
		return item, &batch.ValidationError{Field: "name", Msg: "name is required"}
	}
	if item.Multiples <= 0 {
		item.Multiples = 1
	}

	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&item).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, audit.ActionCreated, "items", strconv.FormatInt(item.ID, 10), nil, item)
	})
	return item, err
}

// DeleteItem removes one item together with its worksheet rows, stock
// levels and ledger entries.
func DeleteItem(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, id int64) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.Item
		if err := tx.NewSelect().Model(&before).Where("it.id = ?", id).Scan(ctx); err != nil {
			return err
		}
		stmts := []string{
			`DELETE FROM store_item_rows WHERE item_id = ?`,
			`DELETE FROM stock_levels WHERE item_id = ?`,
			`DELETE FROM barcode_ledger_entries WHERE item_id = ?`,
			`DELETE FROM bmr_cycle_items WHERE item_id = ?`,
			`DELETE FROM items WHERE id = ?`,
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s, id); err != nil {
				return err
			}
		}
		return auditSvc.Write(ctx, tx, audit.ActionDeleted, "items", strconv.FormatInt(id, 10), before, nil)
	})
}

// ItemSchema is the batch-edit surface of the item master. Reorder point
// edits feed the ledger's final_total on the next recalculation; nothing
// here recomputes eagerly.
func ItemSchema() batch.Schema {
	return batch.Schema{
		Table: "items",
		Fields: map[string]batch.FieldKind{
			"name":          batch.FieldText,
			"reorder_point": batch.FieldInt,
			"multiples":     batch.FieldInt,
			"unit_price":    batch.FieldFloat,
			"category":      batch.FieldText,
		},
	}
}

// ImportCSV upserts items by company code. Header:
// company_code,name[,reorder_point,multiples,unit_price,category].
func ImportCSV(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, reader io.Reader) (ImportSummary, error) {
	summary := ImportSummary{}
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return summary, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "company_code") || !strings.EqualFold(strings.TrimSpace(header[1]), "name") {
		return summary, fmt.Errorf("invalid CSV header; expected company_code,name[,reorder_point,multiples,unit_price,category]")
	}

	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for {
			record, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				summary.Errors++
				continue
			}
			if len(record) < 2 {
				summary.Errors++
				continue
			}
			code := strings.TrimSpace(record[0])
			name := strings.TrimSpace(record[1])
			if code == "" || name == "" {
				summary.Errors++
				continue
			}

			reorderPoint, ok1 := parseIntCol(record, 2)
			multiples, ok2 := parseIntCol(record, 3)
			unitPrice, ok3 := parseFloatCol(record, 4)
			if !ok1 || !ok2 || !ok3 {
				summary.Errors++
				continue
			}
			if multiples <= 0 {
				multiples = 1
			}
			category := ""
			if len(record) > 5 {
				category = strings.TrimSpace(record[5])
			}

			var exists int
			if err := tx.NewRaw(`SELECT COUNT(1) FROM items WHERE company_code = ?`, code).Scan(ctx, &exists); err != nil {
				return err
			}
			if exists > 0 {
				summary.Updated++
			} else {
				summary.Inserted++
			}

			if _, err := tx.ExecContext(ctx, `
INSERT INTO items (company_code, name, reorder_point, multiples, unit_price, category)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(company_code) DO UPDATE SET
  name = excluded.name,
  reorder_point = excluded.reorder_point,
  multiples = excluded.multiples,
  unit_price = excluded.unit_price,
  category = excluded.category,
  updated_at = CURRENT_TIMESTAMP`, code, name, reorderPoint, multiples, unitPrice, category); err != nil {
				summary.Errors++
			}
		}

		after := map[string]any{"inserted": summary.Inserted, "updated": summary.Updated, "errors": summary.Errors}
		return auditSvc.Write(ctx, tx, audit.ActionImported, "items", "import", nil, after)
	})
	return summary, err
}

func parseIntCol(record []string, i int) (int64, bool) {
	if i >= len(record) || strings.TrimSpace(record[i]) == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(strings.TrimSpace(record[i]), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloatCol(record []string, i int) (float64, bool) {
	if i >= len(record) || strings.TrimSpace(record[i]) == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
