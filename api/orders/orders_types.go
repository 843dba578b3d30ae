package orders

// CreateOrderRequest is the order-finalization payload for one store.
type CreateOrderRequest struct {
	Notes string `json:"notes"`
}

// OrderSummary is one row of the orders list screen.
type OrderSummary struct {
	ID        int64  `bun:"id" json:"id"`
	PONumber  int64  `bun:"po_number" json:"po_number"`
	StoreID   int64  `bun:"store_id" json:"store_id"`
	StoreName string `bun:"store_name" json:"store_name"`
	BoxNumber int64  `bun:"box_number" json:"box_number"`
	Notes     string `bun:"notes" json:"notes"`
	LineCount int64  `bun:"line_count" json:"line_count"`
	TotalQty  int64  `bun:"total_qty" json:"total_qty"`
	CreatedAt string `bun:"created_at" json:"created_at"`
}
