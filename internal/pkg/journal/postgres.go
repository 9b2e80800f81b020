package journal

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"tablepos/internal/pkg/billing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	insertBillSQL = `
		INSERT INTO settled_bills (id, table_no, total, settled_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	insertBillLineSQL = `
		INSERT INTO settled_bill_lines (bill_id, position, item_id, name, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bill_id, position) DO NOTHING`
)

// PostgresSink stores settled bills in PostgreSQL, one transaction per bill.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to dsn and applies the archive schema.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse archive dsn failed")
	}
	cfg.MaxConns = 4
	var pool *pgxpool.Pool
	err = withRetry(ctx, "connect archive database", 5, func() error {
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s := &PostgresSink{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema files in name order. They are idempotent.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return errors.Wrap(err, "list migrations failed")
	}
	sort.Strings(names)
	for _, name := range names {
		sqlBytes, err := migrationsFS.ReadFile(name)
		if err != nil {
			return errors.Wrapf(err, "read migration %s failed", name)
		}
		if _, err := s.pool.Exec(ctx, string(sqlBytes)); err != nil {
			return errors.Wrapf(err, "apply migration %s failed", name)
		}
		logger.WithField("migration", name).Debug("migration applied")
	}
	return nil
}

// Archive stores bill and its lines atomically. Archiving the same bill
// twice is a no-op.
func (s *PostgresSink) Archive(ctx context.Context, bill billing.Bill) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertBillSQL, bill.ID, bill.Table, bill.Total, bill.SettledAt); err != nil {
			return errors.Wrap(err, "insert bill failed")
		}
		batch := &pgx.Batch{}
		for i, line := range bill.Lines {
			batch.Queue(insertBillLineSQL, bill.ID, i, line.ItemID, line.Name, line.Price, line.Quantity)
		}
		return errors.Wrap(tx.SendBatch(ctx, batch).Close(), "insert bill lines failed")
	})
	if err != nil {
		return errors.Wrap(err, "archive bill failed")
	}
	logger.WithFields(logrus.Fields{
		"bill":  bill.ID.String(),
		"table": bill.Table,
	}).Debug("bill archived to database")
	return nil
}

// Close closes the connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
