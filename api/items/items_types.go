package items

// CreateItemRequest is the item-create payload. CompanyCode and Name are
// required; Multiples defaults to 1 when omitted.
type CreateItemRequest struct {
	CompanyCode  string  `json:"company_code"`
	Name         string  `json:"name"`
	ReorderPoint int64   `json:"reorder_point"`
	Multiples    int64   `json:"multiples"`
	UnitPrice    float64 `json:"unit_price"`
	Category     string  `json:"category"`
}

// ImportSummary reports one CSV import run.
type ImportSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
}
