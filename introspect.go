package dualdb

import (
	"context"
	"strings"
)

// Column describes one table column as declared in the schema. Type is the
// declared SQL type, lowercased, as the engine's catalog reports it.
type Column struct {
	Name string
	Type string
}

const (
	sqliteColumnsSQL = `SELECT "name", "type" FROM pragma_table_info(?) ORDER BY "cid"`

	sqlitePrimaryKeysSQL = `SELECT "name" FROM pragma_table_info(?) WHERE "pk" > 0 ORDER BY "pk"`

	sqliteTableExistsSQL = `SELECT 1 FROM "sqlite_master" WHERE "type" = 'table' AND "name" = ?`

	postgresColumnsSQL = `SELECT
	  "columns"."column_name"::TEXT,
	  "columns"."data_type"::TEXT
	FROM "information_schema"."columns" "columns"
	WHERE "columns"."table_schema" IN (
	    SELECT REGEXP_SPLIT_TO_TABLE("setting", ', ')
	    FROM "pg_settings"
	    WHERE "name" = 'search_path'
	  )
	  AND "columns"."table_name" = ?
	ORDER BY "columns"."ordinal_position"`

	postgresPrimaryKeysSQL = `SELECT "kcu"."column_name"
	FROM "information_schema"."table_constraints" "tco"
	JOIN "information_schema"."key_column_usage" "kcu"
	  ON "kcu"."constraint_name" = "tco"."constraint_name"
	 AND "kcu"."constraint_schema" = "tco"."constraint_schema"
	 AND "kcu"."table_name" = ?
	 AND "tco"."constraint_type" ILIKE 'primary key'
	WHERE "kcu"."table_schema" IN (
	    SELECT REGEXP_SPLIT_TO_TABLE("setting", ', ')
	    FROM "pg_settings"
	    WHERE "name" = 'search_path'
	  )
	ORDER BY "kcu"."ordinal_position"`

	postgresTableExistsSQL = `SELECT 1
	FROM "information_schema"."tables"
	WHERE "table_type" LIKE '%TABLE'
	  AND "table_name" = ?
	  AND "table_schema" IN (
	    SELECT REGEXP_SPLIT_TO_TABLE("setting", ', ')
	    FROM "pg_settings"
	    WHERE "name" = 'search_path'
	  )`
)

// Columns returns the table's columns with their declared SQL types, in
// schema order. Postgres resolves the table against the session search path;
// SQLite reads pragma_table_info. A table the catalog knows nothing about is
// a shape error.
func (c *Conn) Columns(ctx context.Context, table string) ([]Column, error) {
	sql := sqliteColumnsSQL
	if c.Kind() == KindPostgres {
		sql = postgresColumnsSQL
	}
	rows, err := c.QueryRows(ctx, sql, table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, newError(ErrShape, "no columns found for table %q", table)
	}
	columns := make([]Column, 0, len(rows))
	for _, row := range rows {
		name, ok := row.Value(0).Text()
		if !ok {
			return nil, newError(ErrType, "column name for table %q is not text", table)
		}
		typ, _ := row.Value(1).Text()
		columns = append(columns, Column{Name: name, Type: strings.ToLower(typ)})
	}
	return columns, nil
}

// PrimaryKeys returns the table's primary key columns in key order. A table
// without a primary key yields an empty slice.
func (c *Conn) PrimaryKeys(ctx context.Context, table string) ([]string, error) {
	sql := sqlitePrimaryKeysSQL
	if c.Kind() == KindPostgres {
		sql = postgresPrimaryKeysSQL
	}
	rows, err := c.QueryRows(ctx, sql, table)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		name, ok := row.Value(0).Text()
		if !ok {
			return nil, newError(ErrType, "primary key column for table %q is not text", table)
		}
		keys = append(keys, name)
	}
	return keys, nil
}

// TableExists reports whether the named table exists in the connected
// database. For Postgres the table must be visible on the search path.
func (c *Conn) TableExists(ctx context.Context, table string) (bool, error) {
	sql := sqliteTableExistsSQL
	if c.Kind() == KindPostgres {
		sql = postgresTableExistsSQL
	}
	rows, err := c.QueryRows(ctx, sql, table)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
