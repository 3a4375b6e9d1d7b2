/*
Package dualdb is a runtime-switchable database access layer. A caller
connects to either a PostgreSQL server or an embedded SQLite file with the
same API, chosen by the connect target rather than at compile time, and
issues text SQL against tables whose schema is unknown until runtime.

# Dispatch

Connect probes the target: a postgres:// or postgresql:// URI selects the
server backend (jackc/pgx), while a filesystem path, ":memory:", or a file:
URI selects the embedded backend (modernc.org/sqlite). The chosen backend is
fixed for the connection's lifetime. Statements always use '?' placeholders;
dualdb rewrites them to the engine's native syntax and verifies the
parameter count before anything reaches a native driver.

	conn, err := dualdb.Connect(ctx, "app.db")
	if err != nil {
		return err
	}
	defer conn.Close()

	err = conn.ExecBatch(ctx, `CREATE TABLE t (v TEXT); INSERT INTO t VALUES ('foo');`)
	v, err := conn.QueryString(ctx, "SELECT v FROM t")

# Values and errors

Results and parameters use the backend-neutral Value type, a closed variant
over null, integer, real, text, blob, and boolean. Column types either
backend cannot represent in that set come back as canonical text. Failures
carry an ErrorKind (connection, syntax, constraint, param, type, shape,
closed, internal) assigned where the native error is translated; the native
diagnostic stays attached for logging via errors.Unwrap.

# Batches and transactions

ExecBatch runs a semicolon-delimited script with no parameter binding.
Atomicity is whatever the engine gives: Postgres runs the script in one
implicit transaction, SQLite commits statement by statement. Begin exposes
the engine's native transaction as a plain pass-through.
*/
package dualdb
