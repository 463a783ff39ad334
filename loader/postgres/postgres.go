// Package postgres provides a Loader which streams batches into a Postgres
// table with COPY, using pgx v5
package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultBatchSize is the batch size advertised when none is configured
const DefaultBatchSize = 5000

// Copier is the part of a pgx connection or pool used by the Loader
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Config configures a Loader
type Config struct {
	Table     string   // target table, optionally schema-qualified, e.g. "public.events"
	Columns   []string // entries to copy, in column order
	BatchSize int      // preferred batch size. Defaults to DefaultBatchSize.
}

// Loader copies each batch into a table
type Loader struct {
	conn  Copier
	cfg   Config
	table pgx.Identifier
}

// New creates a Loader over conn
func New(conn Copier, cfg Config) (*Loader, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.InvalidConfigError{Param: "Table", Value: cfg.Table, Reason: "must not be empty"}
	}
	if len(cfg.Columns) == 0 {
		return nil, errors.InvalidConfigError{Param: "Columns", Value: cfg.Columns, Reason: "at least one column is required"}
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Loader{conn: conn, cfg: cfg, table: pgx.Identifier(strings.Split(cfg.Table, "."))}, nil
}

// Connect opens a connection pool for dsn and creates a Loader over it. The
// returned function closes the pool.
func Connect(ctx context.Context, dsn string, cfg Config) (*Loader, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	l, err := New(pool, cfg)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return l, pool.Close, nil
}

// PreferredBatchSize implements etl.BatchSizePreferrer
func (l *Loader) PreferredBatchSize() int {
	return l.cfg.BatchSize
}

// Load implements etl.Loader
func (l *Loader) Load(ctx context.Context, rows etl.Rows) error {
	if rows.Empty() {
		return nil
	}
	src := pgx.CopyFromSlice(rows.Len(), func(i int) ([]interface{}, error) {
		row := rows.At(i)
		values := make([]interface{}, len(l.cfg.Columns))
		for j, col := range l.cfg.Columns {
			values[j] = row.Value(col)
		}
		return values, nil
	})
	n, err := l.conn.CopyFrom(ctx, l.table, l.cfg.Columns, src)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Detail != "" {
			return fmt.Errorf("copy into %s: %s (%s): %w", l.cfg.Table, pgErr.Detail, pgErr.SQLState(), err)
		}
		return fmt.Errorf("copy into %s: %w", l.cfg.Table, err)
	}
	if n != int64(rows.Len()) {
		return fmt.Errorf("copy into %s: copied %d of %d rows", l.cfg.Table, n, rows.Len())
	}
	return nil
}
