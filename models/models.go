package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Store is a retail outlet managed by the admin screens.
//
// IsProcessed marks that an order has been finalized for the current
// ordering cycle; it is flipped back to false when the barcode-release
// commit closes the cycle.
type Store struct {
	bun.BaseModel `bun:"table:stores,alias:st"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	CompanyCode string    `bun:"company_code,notnull,unique" json:"company_code"`
	Name        string    `bun:"name,notnull" json:"name"`
	Class       string    `bun:"class" json:"class"`
	Area        string    `bun:"area" json:"area"`
	Town        string    `bun:"town" json:"town"`
	Chain       string    `bun:"chain" json:"chain"`
	BoxCapacity *int64    `bun:"box_capacity" json:"box_capacity,omitempty"`
	IsProcessed bool      `bun:"is_processed,notnull,default:false" json:"is_processed"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Item is the item master. ReorderPoint and Multiples feed the ledger
// recalculation; the rest is classification/pricing metadata.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:it"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	CompanyCode  string    `bun:"company_code,notnull,unique" json:"company_code"`
	Name         string    `bun:"name,notnull" json:"name"`
	ReorderPoint int64     `bun:"reorder_point,notnull,default:0" json:"reorder_point"`
	Multiples    int64     `bun:"multiples,notnull,default:1" json:"multiples"`
	UnitPrice    float64   `bun:"unit_price,notnull,default:0" json:"unit_price"`
	Category     string    `bun:"category" json:"category"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Diser is a sales representative assigned to a store.
type Diser struct {
	bun.BaseModel `bun:"table:disers,alias:d"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	Name       string    `bun:"name,notnull" json:"name"`
	StoreID    *int64    `bun:"store_id" json:"store_id,omitempty"`
	Rate       float64   `bun:"rate,notnull,default:0" json:"rate"`
	Sales      float64   `bun:"sales,notnull,default:0" json:"sales"`
	Commission float64   `bun:"commission,notnull,default:0" json:"commission"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// StockLevel is a per (store, item) stocking target.
type StockLevel struct {
	bun.BaseModel `bun:"table:stock_levels,alias:sl"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	StoreID   int64     `bun:"store_id,notnull" json:"store_id"`
	ItemID    int64     `bun:"item_id,notnull" json:"item_id"`
	TargetQty int64     `bun:"target_qty,notnull,default:0" json:"target_qty"`
	Note      *string   `bun:"note" json:"note,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// StoreItemRow is one order worksheet line for a (store, item) pair.
//
// OrderQty, Inventory, DR6578, DR958 and Pic53 are raw counted quantities.
// Total, SDivide2, SOrder2 and SOrder5 are derived and recomputed whenever
// a raw field changes. FinalOrder is chosen by the operator and is the only
// field outside the formula chain.
type StoreItemRow struct {
	bun.BaseModel `bun:"table:store_item_rows,alias:sir"`

	ID         int64 `bun:"id,pk,autoincrement" json:"id"`
	StoreID    int64 `bun:"store_id,notnull" json:"store_id"`
	ItemID     int64 `bun:"item_id,notnull" json:"item_id"`
	OrderQty   int64 `bun:"order_qty,notnull,default:0" json:"order_qty"`
	Inventory  int64 `bun:"inventory,notnull,default:0" json:"inventory"`
	DR6578     int64 `bun:"dr_6578,notnull,default:0" json:"dr_6578"`
	DR958      int64 `bun:"dr_958,notnull,default:0" json:"dr_958"`
	Pic53      int64 `bun:"pic_53,notnull,default:0" json:"pic_53"`
	Total      int64 `bun:"total,notnull,default:0" json:"total"`
	SDivide2   int64 `bun:"s_divide_2,notnull,default:0" json:"s_divide_2"`
	SOrder2    int64 `bun:"s_order_2,notnull,default:0" json:"s_order_2"`
	SOrder5    int64 `bun:"s_order_5,notnull,default:0" json:"s_order_5"`
	FinalOrder int64 `bun:"final_order,notnull,default:0" json:"final_order"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Order is an immutable purchase-order snapshot. Later edits to the
// worksheet or the item master never alter a created order.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	PONumber  int64     `bun:"po_number,notnull,unique" json:"po_number"`
	StoreID   int64     `bun:"store_id,notnull" json:"store_id"`
	StoreName string    `bun:"store_name,notnull" json:"store_name"`
	BoxNumber int64     `bun:"box_number,notnull,default:0" json:"box_number"`
	Notes     string    `bun:"notes" json:"notes"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	Lines []OrderLine `bun:"rel:has-many,join:id=order_id" json:"lines,omitempty"`
}

// OrderLine snapshots one worksheet row's item name and quantity at order
// creation time.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines,alias:ol"`

	ID             int64  `bun:"id,pk,autoincrement" json:"id"`
	OrderID        int64  `bun:"order_id,notnull" json:"order_id"`
	StoreItemRowID int64  `bun:"store_item_row_id,notnull" json:"store_item_row_id"`
	ItemName       string `bun:"item_name,notnull" json:"item_name"`
	Quantity       int64  `bun:"quantity,notnull" json:"quantity"`
}

// Counter is the single shared row backing PO and barcode-release number
// allocation. Values are monotonic and never reused; gaps are acceptable.
type Counter struct {
	bun.BaseModel `bun:"table:counters,alias:c"`

	ID                int64 `bun:"id,pk" json:"id"`
	NextPONumber      int64 `bun:"next_po_number,notnull,default:1" json:"next_po_number"`
	NextBarcodeNumber int64 `bun:"next_barcode_number,notnull,default:1" json:"next_barcode_number"`
}

// BarcodeLedgerEntry is the per-item production reconciliation row for a
// BMR cycle. Total, EndBal, FinalTotal and SRequest are derived; FRequest
// is the manually confirmed request quantity.
type BarcodeLedgerEntry struct {
	bun.BaseModel `bun:"table:barcode_ledger_entries,alias:ble"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	ItemID        int64     `bun:"item_id,notnull" json:"item_id"`
	ItemName      string    `bun:"item_name,notnull" json:"item_name"`
	BegBal        int64     `bun:"begbal,notnull,default:0" json:"begbal"`
	M30           int64     `bun:"m30,notnull,default:0" json:"m30"`
	Apollo        int64     `bun:"apollo,notnull,default:0" json:"apollo"`
	Site3         int64     `bun:"site3,notnull,default:0" json:"site3"`
	Total         int64     `bun:"total,notnull,default:0" json:"total"`
	Actual        int64     `bun:"actual,notnull,default:0" json:"actual"`
	Purchase      int64     `bun:"purchase,notnull,default:0" json:"purchase"`
	Returns       int64     `bun:"returns,notnull,default:0" json:"returns"`
	Damaged       int64     `bun:"damaged,notnull,default:0" json:"damaged"`
	EndBal        int64     `bun:"endbal,notnull,default:0" json:"endbal"`
	FinalTotal    int64     `bun:"final_total,notnull,default:0" json:"final_total"`
	SRequest      int64     `bun:"s_request,notnull,default:0" json:"s_request"`
	FRequest      int64     `bun:"f_request,notnull,default:0" json:"f_request"`
	ReleaseNumber *int64    `bun:"release_number" json:"release_number,omitempty"`
	Notes         *string   `bun:"notes" json:"notes,omitempty"`
	Condition     *string   `bun:"condition" json:"condition,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// BMRCycle is one run of the bulk-material-request workflow. The cycle id
// is carried explicitly on every assignment and release request so the
// pipeline stays stateless between screens.
type BMRCycle struct {
	bun.BaseModel `bun:"table:bmr_cycles,alias:bc"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id"`
	StartedAt time.Time  `bun:"started_at,notnull,default:current_timestamp" json:"started_at"`
	ClosedAt  *time.Time `bun:"closed_at" json:"closed_at,omitempty"`
}

// BMRCycleItem records that an item was assigned within a cycle; it scopes
// the factories and barcode screens to that cycle's items.
type BMRCycleItem struct {
	bun.BaseModel `bun:"table:bmr_cycle_items,alias:bci"`

	ID      int64 `bun:"id,pk,autoincrement" json:"id"`
	CycleID int64 `bun:"cycle_id,notnull" json:"cycle_id"`
	ItemID  int64 `bun:"item_id,notnull" json:"item_id"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	Action     string    `bun:"action,notnull" json:"action"`
	EntityType string    `bun:"entity_type,notnull" json:"entity_type"`
	EntityID   string    `bun:"entity_id,notnull" json:"entity_id"`
	BeforeJSON string    `bun:"before_json" json:"before_json,omitempty"`
	AfterJSON  string    `bun:"after_json" json:"after_json,omitempty"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
