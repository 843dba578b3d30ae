package orders

import (
	"context"
	"strconv"

	"github.com/uptrace/bun"

	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sequence"
	"storedesk/infrastructure/sqlite"
	"storedesk/models"
)

// DefaultBoxCapacity is used when neither the store nor the environment
// supplies a capacity. Observed packing capacity is 255-290 units per box.
const DefaultBoxCapacity int64 = 255

// CreateOrder finalizes a store's worksheet into an immutable order: one
// transaction allocating the PO number, snapshotting every row with a
// positive final order, computing the box count and flagging the store as
// processed. A failure anywhere leaves no trace, including the counter.
func CreateOrder(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, storeID int64, notes string, defaultBoxCapacity int64) (models.Order, error) {
	var order models.Order
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		order, err = createOrderInTx(ctx, tx, auditSvc, storeID, notes, defaultBoxCapacity)
		return err
	})
	return order, err
}

func createOrderInTx(ctx context.Context, tx bun.Tx, auditSvc *audit.Service, storeID int64, notes string, defaultBoxCapacity int64) (models.Order, error) {
	var order models.Order

	var storeName string
	var boxCapacity *int64
	if err := tx.NewRaw(`SELECT name, box_capacity FROM stores WHERE id = ?`, storeID).Scan(ctx, &storeName, &boxCapacity); err != nil {
		return order, err
	}
	capacity := defaultBoxCapacity
	if boxCapacity != nil && *boxCapacity > 0 {
		capacity = *boxCapacity
	}
	if capacity <= 0 {
		capacity = DefaultBoxCapacity
	}

	poNumber, err := sequence.Allocate(ctx, tx, sequence.KindPO)
	if err != nil {
		return order, err
	}

	// Snapshot item name and quantity now; later worksheet or item edits
	// must not alter a created order.
	var lines []models.OrderLine
	err = tx.NewRaw(`
SELECT sir.id AS store_item_row_id, it.name AS item_name, sir.final_order AS quantity
FROM store_item_rows sir
JOIN items it ON it.id = sir.item_id
WHERE sir.store_id = ? AND sir.final_order > 0
ORDER BY it.name COLLATE NOCASE ASC`, storeID).Scan(ctx, &lines)
	if err != nil {
		return order, err
	}

	var totalUnits int64
	for _, line := range lines {
		totalUnits += line.Quantity
	}
	boxNumber := (totalUnits + capacity - 1) / capacity

	order = models.Order{
		PONumber:  poNumber,
		StoreID:   storeID,
		StoreName: storeName,
		BoxNumber: boxNumber,
		Notes:     notes,
	}
	if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
		return order, err
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if len(lines) > 0 {
		if _, err := tx.NewInsert().Model(&lines).Exec(ctx); err != nil {
			return order, err
		}
	}
	order.Lines = lines

	if _, err := tx.ExecContext(ctx, `UPDATE stores SET is_processed = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, storeID); err != nil {
		return order, err
	}

	if err := auditSvc.Write(ctx, tx, audit.ActionOrderCreated, "orders", strconv.FormatInt(order.ID, 10), nil, order); err != nil {
		return order, err
	}
	return order, nil
}

// ListOrders returns order summaries, newest PO first.
func ListOrders(ctx context.Context, db *sqlite.DB) ([]OrderSummary, error) {
	rows := make([]OrderSummary, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT o.id, o.po_number, o.store_id, o.store_name, o.box_number, COALESCE(o.notes, '') AS notes,
       COUNT(ol.id) AS line_count, COALESCE(SUM(ol.quantity), 0) AS total_qty,
       strftime('%d/%m/%Y %H:%M', o.created_at) AS created_at
FROM orders o
LEFT JOIN order_lines ol ON ol.order_id = o.id
GROUP BY o.id
ORDER BY o.po_number DESC`).Scan(ctx, &rows)
	})
	return rows, err
}

// GetOrder loads one order with its snapshot lines.
func GetOrder(ctx context.Context, db *sqlite.DB, id int64) (models.Order, error) {
	var order models.Order
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&order).Where("o.id = ?", id).Scan(ctx); err != nil {
			return err
		}
		return tx.NewSelect().Model(&order.Lines).Where("order_id = ?", id).Order("item_name ASC").Scan(ctx)
	})
	return order, err
}
