// Package ledger keeps the unsettled orders of every table.
//
// The ledger is the only state shared between sessions. Every operation on a
// Store is atomic: an Upsert is never lost or split by a concurrent
// SnapshotAndClear of the same table, and the reverse.
package ledger

import (
	"math"
	"sort"
	"sync"
)

// Line is one item ordered at a table. Name and Price are copied from the
// menu when the item is first ordered.
type Line struct {
	ItemID   int
	Name     string
	Price    int64
	Quantity int
}

// Total returns Price × Quantity.
func (l Line) Total() int64 {
	return l.Price * int64(l.Quantity)
}

// Entry is a Line tagged with its table, as listed by Snapshot.
type Entry struct {
	Table int
	Line
}

// Store is the order ledger.
type Store interface {
	// Upsert adds line.Quantity of line.ItemID to table, creating the table
	// entry or the line as needed. It returns ErrAmountOverflow and changes
	// nothing if the line or the table total would no longer fit in int64.
	Upsert(table int, line Line) error
	// SnapshotAndClear removes the table and returns its lines as they were
	// at removal time.
	SnapshotAndClear(table int) ([]Line, error)
	// Snapshot returns every line of every table, tables ascending.
	Snapshot() []Entry
}

// MemoryStore is an in-memory Store guarded by a single lock.
type MemoryStore struct {
	tables map[int][]Line
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[int][]Line),
	}
}

func (p *MemoryStore) Upsert(table int, line Line) error {
	if table <= 0 {
		return ErrInvalidTable
	}
	if line.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := p.tables[table]
	idx := -1
	var sum int64
	for i := range lines {
		qty := lines[i].Quantity
		if lines[i].ItemID == line.ItemID {
			idx = i
			if qty > math.MaxInt-line.Quantity {
				return ErrAmountOverflow
			}
			qty += line.Quantity
		}
		var ok bool
		if sum, ok = addTotal(sum, lines[i].Price, qty); !ok {
			return ErrAmountOverflow
		}
	}
	if idx >= 0 {
		lines[idx].Quantity += line.Quantity
		return nil
	}
	if _, ok := addTotal(sum, line.Price, line.Quantity); !ok {
		return ErrAmountOverflow
	}
	p.tables[table] = append(lines, line)
	return nil
}

// addTotal returns sum + price × qty, or false if the result would not fit
// in int64. Arguments are non-negative.
func addTotal(sum, price int64, qty int) (int64, bool) {
	q := int64(qty)
	if q != 0 && price > math.MaxInt64/q {
		return 0, false
	}
	t := price * q
	if sum > math.MaxInt64-t {
		return 0, false
	}
	return sum + t, true
}

func (p *MemoryStore) SnapshotAndClear(table int) ([]Line, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines, ok := p.tables[table]
	if !ok || len(lines) == 0 {
		return nil, ErrTableNotFound
	}
	delete(p.tables, table)
	return lines, nil
}

func (p *MemoryStore) Snapshot() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tables := make([]int, 0, len(p.tables))
	n := 0
	for table, lines := range p.tables {
		tables = append(tables, table)
		n += len(lines)
	}
	sort.Ints(tables)
	entries := make([]Entry, 0, n)
	for _, table := range tables {
		for _, line := range p.tables[table] {
			entries = append(entries, Entry{Table: table, Line: line})
		}
	}
	return entries
}
