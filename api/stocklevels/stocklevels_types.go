package stocklevels

// CreateStockLevelRequest is the stock-level-create payload.
type CreateStockLevelRequest struct {
	StoreID   int64  `json:"store_id"`
	ItemID    int64  `json:"item_id"`
	TargetQty int64  `json:"target_qty"`
	Note      string `json:"note"`
}

// StockLevelView joins a target with its store and item names for the
// admin list.
type StockLevelView struct {
	ID        int64   `bun:"id" json:"id"`
	StoreID   int64   `bun:"store_id" json:"store_id"`
	StoreName string  `bun:"store_name" json:"store_name"`
	ItemID    int64   `bun:"item_id" json:"item_id"`
	ItemName  string  `bun:"item_name" json:"item_name"`
	TargetQty int64   `bun:"target_qty" json:"target_qty"`
	Note      *string `bun:"note" json:"note,omitempty"`
}
