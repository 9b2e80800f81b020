// Package catalog holds the menu served to terminals.
//
// A Catalog is built once at startup and never modified afterwards, so it is
// safe to share between sessions without locking.
package catalog

import (
	"strings"

	"tablepos/internal/pkg/validate"

	"github.com/pkg/errors"
)

// Item is a single menu entry. Prices are integral currency units.
type Item struct {
	ID    int    `validate:"gt=0"`
	Name  string `validate:"required"`
	Price int64  `validate:"gte=0"`
}

// Validate checks the item can be listed and ordered over the line protocol.
func (i Item) Validate() error {
	if err := validate.Validate().Struct(i); err != nil {
		return errors.Wrap(ErrInvalidItem, err.Error())
	}
	if strings.ContainsAny(i.Name, ";\r\n") {
		return errors.Wrapf(ErrInvalidItem, "name %q contains a reserved character", i.Name)
	}
	return nil
}

// Catalog is an immutable menu indexed by item id.
type Catalog struct {
	items []Item
	byID  map[int]int
}

// New creates a Catalog from items, keeping their order.
// An invalid item or a duplicated id fails the whole catalog.
func New(items ...Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[int]int, len(items)),
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.byID[item.ID]; ok {
			return nil, errors.Wrapf(ErrInvalidItem, "duplicate item id %d", item.ID)
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

// Lookup returns the item with the given id.
func (c *Catalog) Lookup(id int) (Item, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return c.items[idx], nil
}

// Items returns a copy of all items in catalog order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items on the menu.
func (c *Catalog) Len() int {
	return len(c.items)
}
