package stores

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

// ListStores returns the store master ordered by name.
func ListStores(ctx context.Context, db *sqlite.DB) ([]models.Store, error) {
	rows := make([]models.Store, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).Order("name ASC").Scan(ctx)
	})
	return rows, err
}

// GetStore loads one store.
func GetStore(ctx context.Context, db *sqlite.DB, id int64) (models.Store, error) {
	var store models.Store
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&store).Where("st.id = ?", id).Scan(ctx)
	})
	return store, err
}

// CreateStore inserts one store. Company code collisions surface as the
// driver's unique-constraint error.
func CreateStore(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, req CreateStoreRequest) (models.Store, error) {
	store := models.Store{
		CompanyCode: strings.TrimSpace(req.CompanyCode),
		Name:        strings.TrimSpace(req.Name),
		Class:       strings.TrimSpace(req.Class),
		Area:        strings.TrimSpace(req.Area),
		Town:        strings.TrimSpace(req.Town),
		Chain:       strings.TrimSpace(req.Chain),
		BoxCapacity: req.BoxCapacity,
	}
	if store.CompanyCode == "" {
		return store, &batch.ValidationError{Field: "company_code", Msg: "company code is required"}
	}
	if store.Name == "" {
		return store, &batch.ValidationError{Field: "name", Msg: "name is required"}
	}

	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&store).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, audit.ActionCreated, "stores", strconv.FormatInt(store.ID, 10), nil, store)
	})
	return store, err
}

// DeleteStore removes one store together with its worksheet rows and stock
// levels, and unassigns its disers.
func DeleteStore(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, id int64) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.Store
		if err := tx.NewSelect().Model(&before).Where("st.id = ?", id).Scan(ctx); err != nil {
			return err
		}
		stmts := []string{
			`DELETE FROM store_item_rows WHERE store_id = ?`,
			`DELETE FROM stock_levels WHERE store_id = ?`,
			`UPDATE disers SET store_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE store_id = ?`,
			`DELETE FROM stores WHERE id = ?`,
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s, id); err != nil {
				return err
			}
		}
		return auditSvc.Write(ctx, tx, audit.ActionDeleted, "stores", strconv.FormatInt(id, 10), before, nil)
	})
}

// StoreSchema is the batch-edit surface of the store master. The processed
// flag is workflow state and never editable here.
func StoreSchema() batch.Schema {
	return batch.Schema{
		Table: "stores",
		Fields: map[string]batch.FieldKind{
			"name":         batch.FieldText,
			"class":        batch.FieldText,
			"area":         batch.FieldText,
			"town":         batch.FieldText,
			"chain":        batch.FieldText,
			"box_capacity": batch.FieldNullableInt,
		},
	}
}

// ImportCSV upserts stores by company code from a CSV stream. The header
// must start with company_code,name; class, area, town and chain columns are
// optional. Malformed rows count as errors without aborting the run.
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
		return summary, fmt.Errorf("invalid CSV header; expected company_code,name[,class,area,town,chain]")
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
			col := func(i int) string {
				if i < len(record) {
					return strings.TrimSpace(record[i])
				}
				return ""
			}

			var exists int
			if err := tx.NewRaw(`SELECT COUNT(1) FROM stores WHERE company_code = ?`, code).Scan(ctx, &exists); err != nil {
				return err
			}
			if exists > 0 {
				summary.Updated++
			} else {
				summary.Inserted++
			}

			if _, err := tx.ExecContext(ctx, `
INSERT INTO stores (company_code, name, class, area, town, chain)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(company_code) DO UPDATE SET
  name = excluded.name,
  class = excluded.class,
  area = excluded.area,
  town = excluded.town,
  chain = excluded.chain,
  updated_at = CURRENT_TIMESTAMP`, code, name, col(2), col(3), col(4), col(5)); err != nil {
				summary.Errors++
			}
		}

		after := map[string]any{"inserted": summary.Inserted, "updated": summary.Updated, "errors": summary.Errors}
		return auditSvc.Write(ctx, tx, audit.ActionImported, "stores", "import", nil, after)
	})
	return summary, err
}
