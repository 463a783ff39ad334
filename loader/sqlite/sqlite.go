// Package sqlite provides a Loader which inserts Rows into a SQLite table
// using database/sql. Each batch is inserted inside one transaction with a
// prepared statement; SQLite has no bulk-load API, so large batches are
// preferred to amortise the commit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultBatchSize is the batch size advertised when none is configured
const DefaultBatchSize = 1000

// Config configures a Loader
type Config struct {
	DSN       string   // passed to database/sql, e.g. "file:etl.db" or ":memory:"
	Table     string   // target table
	Columns   []string // entries to insert, in column order. Defaults to the entries of the first Row of each batch.
	BatchSize int      // preferred batch size. Defaults to DefaultBatchSize.
}

// Loader inserts batches into a table
type Loader struct {
	db    *sql.DB
	cfg   Config
	owned bool
	lock  sync.Mutex // sqlite allows one writer at a time
}

// Open connects to the database named by cfg.DSN
func Open(ctx context.Context, cfg Config) (*Loader, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.InvalidConfigError{Param: "DSN", Value: cfg.DSN, Reason: "must not be empty"}
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// an in-memory database lives only as long as its connection
	db.SetMaxOpenConns(1)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	l, err := New(db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	l.owned = true
	return l, nil
}

// New creates a Loader over an existing connection, which the caller keeps
// ownership of
func New(db *sql.DB, cfg Config) (*Loader, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.InvalidConfigError{Param: "Table", Value: cfg.Table, Reason: "must not be empty"}
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Loader{db: db, cfg: cfg}, nil
}

// DB returns the underlying connection
func (l *Loader) DB() *sql.DB {
	return l.db
}

// Exec runs an arbitrary statement, typically DDL
func (l *Loader) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// PreferredBatchSize implements etl.BatchSizePreferrer
func (l *Loader) PreferredBatchSize() int {
	return l.cfg.BatchSize
}

// Load implements etl.Loader. A batch is inserted entirely or not at all.
func (l *Loader) Load(ctx context.Context, rows etl.Rows) error {
	if rows.Empty() {
		return nil
	}
	columns := l.cfg.Columns
	if len(columns) == 0 {
		columns = rows.At(0).Names()
	}
	l.lock.Lock()
	defer l.lock.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertStatement(l.cfg.Table, columns))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for i := 0; i < rows.Len(); i++ {
		row := rows.At(i)
		for j, col := range columns {
			v, err := driverValue(row.Value(col))
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("sqlite: column %s: %w", col, err)
			}
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Close closes the connection if it was opened by Open
func (l *Loader) Close() error {
	if !l.owned {
		return nil
	}
	return l.db.Close()
}

func insertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// driverValue converts values database/sql cannot store into JSON text
func driverValue(v interface{}) (interface{}, error) {
	switch v.(type) {
	case nil, bool, string, []byte, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	default:
		return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(v)
	}
}
