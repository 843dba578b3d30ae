package ledger

import "fmt"

// TotalMode selects how the ledger total treats factory allocations. The
// legacy screens disagreed on the sign, so the choice is a startup policy
// (LEDGER_TOTAL_MODE) rather than a hardcoded formula.
type TotalMode string

const (
	// TotalModeSubtract treats factory allocations as stock leaving the
	// beginning balance: total = begbal - (m30 + apollo + site3).
	TotalModeSubtract TotalMode = "subtract"
	// TotalModeAdd treats them as incoming production:
	// total = begbal + m30 + apollo + site3.
	TotalModeAdd TotalMode = "add"
)

// ParseTotalMode maps the config value onto a TotalMode; empty means the
// subtract default.
func ParseTotalMode(s string) (TotalMode, error) {
	switch TotalMode(s) {
	case "":
		return TotalModeSubtract, nil
	case TotalModeSubtract:
		return TotalModeSubtract, nil
	case TotalModeAdd:
		return TotalModeAdd, nil
	}
	return "", fmt.Errorf("invalid ledger total mode %q (want subtract or add)", s)
}

// Total applies the configured total formula.
func (m TotalMode) Total(begbal, m30, apollo, site3 int64) int64 {
	if m == TotalModeAdd {
		return begbal + m30 + apollo + site3
	}
	return begbal - (m30 + apollo + site3)
}

// EndBal sums the four reconciliation counts.
func EndBal(actual, purchase, returns, damaged int64) int64 {
	return actual + purchase + returns + damaged
}

// FinalTotal is the shortfall against the item's reorder point.
func FinalTotal(reorderPoint, endbal int64) int64 {
	return reorderPoint - endbal
}

// SRequest rounds the shortfall up to the next multiple of ten.
func SRequest(finalTotal int64) int64 {
	if finalTotal >= 0 {
		return (finalTotal + 9) / 10 * 10
	}
	// Go's truncating division already rounds negatives toward zero,
	// which is ceil for negative values.
	return finalTotal / 10 * 10
}
