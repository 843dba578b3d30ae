package orders

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/uptrace/bun"

	"storedesk/infrastructure/sqlite"
)

// writeOrderCSV streams one order's snapshot lines as CSV for the packing
// floor.
func writeOrderCSV(ctx context.Context, db *sqlite.DB, w io.Writer, orderID int64) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"po_number", "store", "item", "quantity", "box_number", "notes"}
	if err := writer.Write(header); err != nil {
		return err
	}

	type row struct {
		PONumber  int64  `bun:"po_number"`
		StoreName string `bun:"store_name"`
		ItemName  string `bun:"item_name"`
		Quantity  int64  `bun:"quantity"`
		BoxNumber int64  `bun:"box_number"`
		Notes     string `bun:"notes"`
	}

	rows := make([]row, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT o.po_number, o.store_name, ol.item_name, ol.quantity, o.box_number,
       COALESCE(o.notes, '') AS notes
FROM orders o
JOIN order_lines ol ON ol.order_id = o.id
WHERE o.id = ?
ORDER BY ol.item_name COLLATE NOCASE ASC`, orderID).Scan(ctx, &rows)
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.PONumber, 10),
			r.StoreName,
			r.ItemName,
			strconv.FormatInt(r.Quantity, 10),
			strconv.FormatInt(r.BoxNumber, 10),
			r.Notes,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
