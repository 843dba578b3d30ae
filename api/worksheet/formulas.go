package worksheet

// Derived holds the computed columns of a worksheet row.
type Derived struct {
	Total    int64
	SDivide2 int64
	SOrder2  int64
	SOrder5  int64
}

// Derive recomputes the worksheet formula chain from the raw counted
// quantities. FinalOrder is deliberately not part of the chain; it is the
// operator's choice.
func Derive(orderQty, inventory, dr6578, dr958, pic53 int64) Derived {
	total := orderQty + inventory + dr6578 + dr958 + pic53
	return Derived{
		Total:    total,
		SDivide2: ceilDiv(total, 2),
		SOrder2:  roundUpToMultiple(total, 2),
		SOrder5:  roundUpToMultiple(total, 5),
	}
}

func ceilDiv(n, d int64) int64 {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

func roundUpToMultiple(n, m int64) int64 {
	if n <= 0 {
		return 0
	}
	return ceilDiv(n, m) * m
}
