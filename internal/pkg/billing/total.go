package billing

import (
	"math"

	"tablepos/internal/pkg/ledger"
)

// LineTotal returns price × qty, failing rather than wrapping on overflow.
func LineTotal(price int64, qty int) (int64, error) {
	if price == 0 || qty == 0 {
		return 0, nil
	}
	q := int64(qty)
	if price > math.MaxInt64/q {
		return 0, ErrAmountOverflow
	}
	return price * q, nil
}

// Total adds up price × quantity over lines.
// Prices and quantities are non-negative, so overflow is the only failure.
func Total(lines ...ledger.Line) (int64, error) {
	var sum int64
	for _, line := range lines {
		t, err := LineTotal(line.Price, line.Quantity)
		if err != nil {
			return 0, err
		}
		if sum > math.MaxInt64-t {
			return 0, ErrAmountOverflow
		}
		sum += t
	}
	return sum, nil
}
