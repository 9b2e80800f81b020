package ledger

import "github.com/pkg/errors"

// ErrTableNotFound is returned when a table holds no unsettled orders.
var ErrTableNotFound = errors.New("table not found")

// ErrInvalidQuantity is returned when an order quantity is not positive.
var ErrInvalidQuantity = errors.New("invalid quantity")

// ErrInvalidTable is returned when a table number is not positive.
var ErrInvalidTable = errors.New("invalid table")

// ErrAmountOverflow is returned when an order would push a line or table
// total past the largest representable amount.
var ErrAmountOverflow = errors.New("amount overflow")
