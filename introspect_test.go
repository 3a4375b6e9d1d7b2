package dualdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteColumns(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	_, err := conn.Exec(ctx, `CREATE TABLE items (
		id INTEGER PRIMARY KEY,
		label TEXT,
		price REAL,
		active BOOLEAN)`)
	require.NoError(t, err)

	columns, err := conn.Columns(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "id", Type: "integer"},
		{Name: "label", Type: "text"},
		{Name: "price", Type: "real"},
		{Name: "active", Type: "boolean"},
	}, columns, "declared order, lowercased declared types")
}

func TestSQLiteColumnsUnknownTable(t *testing.T) {
	conn := openTestDB(t)
	_, err := conn.Columns(context.Background(), "nope")
	assert.Equal(t, ErrShape, KindOf(err))
}

func TestSQLitePrimaryKeys(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	require.NoError(t, conn.ExecBatch(ctx, `
		CREATE TABLE single (id INTEGER PRIMARY KEY, v TEXT);
		CREATE TABLE composite (a INTEGER, b TEXT, c REAL, PRIMARY KEY (b, a));
		CREATE TABLE keyless (v TEXT);
	`))

	keys, err := conn.PrimaryKeys(ctx, "single")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, keys)

	keys, err = conn.PrimaryKeys(ctx, "composite")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, keys, "key order, not declaration order")

	keys, err = conn.PrimaryKeys(ctx, "keyless")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLiteTableExists(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	require.NoError(t, conn.ExecBatch(ctx, "CREATE TABLE present (v TEXT);"))

	ok, err := conn.TableExists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = conn.TableExists(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresIntrospection(t *testing.T) {
	ctx := context.Background()
	conn, err := Connect(ctx, postgresTarget(t))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(ctx, "DROP TABLE IF EXISTS dualdb_meta")
	require.NoError(t, err)
	_, err = conn.Exec(ctx,
		"CREATE TABLE dualdb_meta (id BIGINT, label TEXT, PRIMARY KEY (id))")
	require.NoError(t, err)
	defer conn.Exec(ctx, "DROP TABLE dualdb_meta")

	columns, err := conn.Columns(ctx, "dualdb_meta")
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "id", Type: "bigint"},
		{Name: "label", Type: "text"},
	}, columns)

	keys, err := conn.PrimaryKeys(ctx, "dualdb_meta")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, keys)

	ok, err := conn.TableExists(ctx, "dualdb_meta")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = conn.TableExists(ctx, "dualdb_absent")
	require.NoError(t, err)
	assert.False(t, ok)
}
