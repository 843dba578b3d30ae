package disers

// CreateDiserRequest is the diser-create payload.
type CreateDiserRequest struct {
	Name       string  `json:"name"`
	StoreID    *int64  `json:"store_id,omitempty"`
	Rate       float64 `json:"rate"`
	Sales      float64 `json:"sales"`
	Commission float64 `json:"commission"`
}

// DiserView is a diser row joined with its store name for the admin list.
type DiserView struct {
	ID         int64   `bun:"id" json:"id"`
	Name       string  `bun:"name" json:"name"`
	StoreID    *int64  `bun:"store_id" json:"store_id,omitempty"`
	StoreName  *string `bun:"store_name" json:"store_name,omitempty"`
	Rate       float64 `bun:"rate" json:"rate"`
	Sales      float64 `bun:"sales" json:"sales"`
	Commission float64 `bun:"commission" json:"commission"`
}
