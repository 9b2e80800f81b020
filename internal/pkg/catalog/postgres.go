package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const selectMenuSQL = `SELECT id, name, price FROM menu_items ORDER BY id`

// Querier is the subset of pgxpool.Pool used to read the menu.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadPostgres reads the menu from the menu_items table at dsn.
func LoadPostgres(ctx context.Context, dsn string) (*Catalog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "create menu pool failed")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "ping menu database failed")
	}
	return LoadQuerier(ctx, pool)
}

// LoadQuerier reads the menu through q.
func LoadQuerier(ctx context.Context, q Querier) (*Catalog, error) {
	rows, err := q.Query(ctx, selectMenuSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query menu failed")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var item Item
		err := row.Scan(&item.ID, &item.Name, &item.Price)
		return item, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan menu failed")
	}
	logger.WithField("items", len(items)).Info("loaded menu from database")
	return New(items...)
}
