package catalog

import "github.com/pkg/errors"

// ErrItemNotFound is returned when an item id is not on the menu.
var ErrItemNotFound = errors.New("item not found")

// ErrInvalidItem is returned when a menu entry cannot be represented on the wire.
var ErrInvalidItem = errors.New("invalid menu item")
