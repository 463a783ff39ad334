package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"github.com/stretchr/testify/require"
)

func openTestLoader(t *testing.T, cfg Config) *Loader {
	t.Helper()
	cfg.DSN = filepath.Join(t.TempDir(), "etl.db")
	l, err := Open(context.Background(), cfg)
	require.Nil(t, err)
	t.Cleanup(func() { l.Close() })
	require.Nil(t, l.Exec(context.Background(), `CREATE TABLE events (id INTEGER, name TEXT, attrs TEXT)`))
	return l
}

func TestLoadInsertsRows(t *testing.T) {
	ctx := context.Background()
	l := openTestLoader(t, Config{Table: "events", Columns: []string{"id", "name", "attrs"}})
	rows := etl.NewRows(
		etl.R("id", 1, "name", "a", "attrs", map[string]interface{}{"k": "v"}),
		etl.R("id", 2, "name", "b"),
	)
	require.Nil(t, l.Load(ctx, rows))

	result, err := l.DB().QueryContext(ctx, `SELECT id, name, attrs FROM events ORDER BY id`)
	require.Nil(t, err)
	defer result.Close()
	type record struct {
		id    int64
		name  string
		attrs *string
	}
	var got []record
	for result.Next() {
		var r record
		require.Nil(t, result.Scan(&r.id, &r.name, &r.attrs))
		got = append(got, r)
	}
	require.Nil(t, result.Err())
	require.Len(t, got, 2)
	require.Equal(t, int64(1), got[0].id)
	require.NotNil(t, got[0].attrs)
	require.Equal(t, `{"k":"v"}`, *got[0].attrs)
	require.Equal(t, "b", got[1].name)
	require.Nil(t, got[1].attrs)
}

func TestLoadDefaultsColumnsToFirstRow(t *testing.T) {
	ctx := context.Background()
	l := openTestLoader(t, Config{Table: "events"})
	require.Nil(t, l.Load(ctx, etl.NewRows(etl.R("id", 7, "name", "x"))))

	var name string
	require.Nil(t, l.DB().QueryRowContext(ctx, `SELECT name FROM events WHERE id = 7`).Scan(&name))
	require.Equal(t, "x", name)
}

func TestLoadRollsBackFailedBatch(t *testing.T) {
	ctx := context.Background()
	l := openTestLoader(t, Config{Table: "events", Columns: []string{"id", "nope"}})
	require.NotNil(t, l.Load(ctx, etl.NewRows(etl.R("id", 1))))

	var n int
	require.Nil(t, l.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n))
	require.Equal(t, 0, n)
}

func TestPreferredBatchSize(t *testing.T) {
	l := openTestLoader(t, Config{Table: "events"})
	require.Equal(t, DefaultBatchSize, l.PreferredBatchSize())
}

func TestConfigValidation(t *testing.T) {
	_, err := Open(context.Background(), Config{Table: "events"})
	require.IsType(t, errors.InvalidConfigError{}, err)
	_, err = New(nil, Config{})
	require.IsType(t, errors.InvalidConfigError{}, err)
}

func TestInsertStatementQuotesIdentifiers(t *testing.T) {
	require.Equal(t, `INSERT INTO "my""table" ("a", "b c") VALUES (?, ?)`, insertStatement(`my"table`, []string{"a", "b c"}))
}
