package stores

// CreateStoreRequest is the store-create payload. CompanyCode and Name are
// required; the rest is optional classification.
type CreateStoreRequest struct {
	CompanyCode string `json:"company_code"`
	Name        string `json:"name"`
	Class       string `json:"class"`
	Area        string `json:"area"`
	Town        string `json:"town"`
	Chain       string `json:"chain"`
	BoxCapacity *int64 `json:"box_capacity,omitempty"`
}

// ImportSummary reports one CSV import run.
type ImportSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
}
