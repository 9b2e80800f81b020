// Package billing settles tables.
//
// Settlement takes a table's lines out of the ledger in one atomic step and
// prices them. Once Settle returns, the server keeps no copy of the bill
// other than what an Archiver chooses to record.
package billing

import (
	"context"
	"time"

	"tablepos/internal/pkg/ledger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Archiver records settled bills outside the server.
type Archiver interface {
	Archive(ctx context.Context, bill Bill) error
}

// Engine settles tables against a ledger.
type Engine struct {
	store    ledger.Store
	archiver Archiver
	now      func() time.Time
}

// Cfg configures an Engine.
type Cfg func(*Engine) error

// WithArchiver hands every settled bill to a.
func WithArchiver(a Archiver) Cfg {
	return func(e *Engine) error {
		e.archiver = a
		return nil
	}
}

// WithClock replaces time.Now for settlement timestamps.
func WithClock(now func() time.Time) Cfg {
	return func(e *Engine) error {
		e.now = now
		return nil
	}
}

// NewEngine creates an Engine settling tables held in store.
func NewEngine(store ledger.Store, cfgs ...Cfg) (*Engine, error) {
	if store == nil {
		return nil, errors.New("nil ledger store")
	}
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, cfg := range cfgs {
		if err := cfg(e); err != nil {
			return nil, errors.Wrap(err, "apply Engine cfg failed")
		}
	}
	return e, nil
}

// Settle removes the table from the ledger and returns its bill.
// It returns ledger.ErrTableNotFound if the table has no orders.
func (e *Engine) Settle(ctx context.Context, table int) (Bill, error) {
	lines, err := e.store.SnapshotAndClear(table)
	if err != nil {
		return Bill{}, err
	}
	bill := Bill{
		ID:        uuid.New(),
		Table:     table,
		Lines:     lines,
		SettledAt: e.now(),
	}
	// the ledger refuses orders whose table total would overflow
	bill.Total, err = Total(lines...)
	if err != nil {
		return bill, errors.Wrapf(err, "total table %d failed", table)
	}
	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, bill); err != nil {
			logger.WithFields(logrus.Fields{
				"bill":  bill.ID.String(),
				"table": table,
				"total": bill.Total,
			}).WithError(err).Error("archive bill failed")
		}
	}
	return bill, nil
}
