package bmr

// Contribution is one store's share of a grouped item total.
type Contribution struct {
	StoreID   int64  `bun:"store_id" json:"store_id"`
	StoreName string `bun:"store_name" json:"store_name"`
	Quantity  int64  `bun:"quantity" json:"quantity"`
}

// GroupedItem aggregates the finalized order quantity for one item across
// every processed store.
type GroupedItem struct {
	ItemID          int64          `json:"item_id"`
	ItemName        string         `json:"item_name"`
	TotalFinalOrder int64          `json:"total_final_order"`
	Contributions   []Contribution `json:"contributions"`
}

// AssignRequest assigns one grouped item's total to a factory.
type AssignRequest struct {
	ItemID          int64  `json:"item_id"`
	AssignedFactory string `json:"assigned_factory"`
	TotalFinalOrder int64  `json:"total_final_order"`
	ItemName        string `json:"item_name"`
}

// AssignChunk is one independently-committed slice of a large assignment
// set. The chunk metadata is informational; each chunk fully overwrites
// its own items' factory fields, so retrying a chunk is safe.
type AssignChunk struct {
	Assignments []AssignRequest `json:"assignments"`
	ChunkIndex  int             `json:"chunk_index,omitempty"`
	TotalChunks int             `json:"total_chunks,omitempty"`
}

// AssignResult reports one committed chunk.
type AssignResult struct {
	Assigned int `json:"assigned"`
}
