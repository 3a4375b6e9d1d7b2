package dualdb

import (
	"context"
	"strings"
)

// Kind identifies the backend engine behind a connection.
type Kind int

const (
	// KindPostgres is the server backend, driven by pgx.
	KindPostgres Kind = iota + 1
	// KindSQLite is the embedded file-backed backend.
	KindSQLite
)

// String returns the engine name.
func (k Kind) String() string {
	switch k {
	case KindPostgres:
		return "postgres"
	case KindSQLite:
		return "sqlite"
	}
	return "unknown"
}

// backend is the capability contract every concrete engine satisfies.
// Implementations translate native errors into *Error at this boundary;
// nothing above it ever sees a driver error type.
//
// execBatch runs a semicolon-delimited script without parameter binding.
// Whether the script is atomic depends entirely on the engine: the Postgres
// backend sends it as one simple-protocol request, which runs in a single
// implicit transaction unless the script opens its own; the SQLite backend
// executes statement by statement with no wrapping transaction. This layer
// documents the asymmetry rather than hiding it.
type backend interface {
	kind() Kind
	exec(ctx context.Context, sql string, params []Value) (int64, error)
	execBatch(ctx context.Context, script string) error
	query(ctx context.Context, sql string, params []Value) (*Rows, error)
	begin(ctx context.Context) (backendTx, error)
	close() error
}

// backendTx is a native transaction checked out from a backend. The session
// it holds is released on Commit or Rollback, on every path.
type backendTx interface {
	exec(ctx context.Context, sql string, params []Value) (int64, error)
	query(ctx context.Context, sql string, params []Value) (*Rows, error)
	commit(ctx context.Context) error
	rollback(ctx context.Context) error
}

// probeTarget decides which backend a connect target selects. Targets with
// a postgres scheme select the server backend; filesystem paths, ":memory:",
// and "file:" URIs select the embedded backend; any other URI scheme is
// unrecognized. The decision is deterministic: the same target always
// selects the same backend.
func probeTarget(target string) (Kind, error) {
	if target == "" {
		return 0, newError(ErrConnection, "empty connect target")
	}
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		return KindPostgres, nil
	}
	if strings.HasPrefix(target, "file:") || target == ":memory:" {
		return KindSQLite, nil
	}
	if i := strings.Index(target, "://"); i >= 0 {
		return 0, newError(ErrConnection, "unrecognized connect target scheme %q", target[:i])
	}
	return KindSQLite, nil
}
