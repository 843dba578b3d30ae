package worksheet

// RowView is one worksheet line joined with its item master data.
type RowView struct {
	ID         int64  `bun:"id" json:"id"`
	StoreID    int64  `bun:"store_id" json:"store_id"`
	ItemID     int64  `bun:"item_id" json:"item_id"`
	ItemCode   string `bun:"item_code" json:"item_code"`
	ItemName   string `bun:"item_name" json:"item_name"`
	OrderQty   int64  `bun:"order_qty" json:"order_qty"`
	Inventory  int64  `bun:"inventory" json:"inventory"`
	DR6578     int64  `bun:"dr_6578" json:"dr_6578"`
	DR958      int64  `bun:"dr_958" json:"dr_958"`
	Pic53      int64  `bun:"pic_53" json:"pic_53"`
	Total      int64  `bun:"total" json:"total"`
	SDivide2   int64  `bun:"s_divide_2" json:"s_divide_2"`
	SOrder2    int64  `bun:"s_order_2" json:"s_order_2"`
	SOrder5    int64  `bun:"s_order_5" json:"s_order_5"`
	FinalOrder int64  `bun:"final_order" json:"final_order"`
}

// PageData is the worksheet screen payload for one store.
type PageData struct {
	StoreID     int64     `json:"store_id"`
	StoreName   string    `json:"store_name"`
	IsProcessed bool      `json:"is_processed"`
	Rows        []RowView `json:"rows"`
}
