package billing

import "github.com/pkg/errors"

// ErrAmountOverflow is returned when a bill total does not fit in an int64.
var ErrAmountOverflow = errors.New("amount overflow")

// ErrMalformedBill is returned when a bill body cannot be parsed.
var ErrMalformedBill = errors.New("malformed bill")
