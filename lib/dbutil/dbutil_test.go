package dbutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	sqlite := DB{Dialect: DialectSqlite}
	postgres := DB{Dialect: DialectPostgres}

	query := "insert into t (a, b) values (?, ?)"
	require.Equal(t, query, sqlite.Rebind(query))
	require.Equal(t, "insert into t (a, b) values ($1, $2)", postgres.Rebind(query))
}

func TestOpenSqlite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "samples.db")

	schema := func(d Dialect) string {
		require.Equal(t, DialectSqlite, d)
		return "CREATE TABLE IF NOT EXISTS t (v INTEGER)"
	}

	db, err := Open(ctx, path, schema)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, db.Rebind("insert into t (v) values (?)"), 7)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// reopening applies the schema again without losing anything
	db, err = Open(ctx, path, schema)
	require.NoError(t, err)
	defer db.Close()

	var v int
	err = db.QueryRowContext(ctx, "select v from t").Scan(&v)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestOpenMemory(t *testing.T) {
	db, err := Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	defer db.Close()
	require.Equal(t, DialectSqlite, db.Dialect)
}

func TestOpenEmpty(t *testing.T) {
	_, err := Open(context.Background(), "  ", nil)
	require.Error(t, err)
}
