package dualdb

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dualdb/dualdb/internal/sqltext"
)

// Config holds connection options recognized by Connect.
type Config struct {
	// MaxPoolSize bounds concurrent native sessions. Zero selects the
	// backend default: pgx's pool default for Postgres, a single session
	// for SQLite.
	MaxPoolSize int

	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Option adjusts the configuration used by Connect.
type Option func(*Config)

// WithMaxPoolSize bounds the number of concurrent native sessions.
func WithMaxPoolSize(n int) Option {
	return func(c *Config) { c.MaxPoolSize = n }
}

// WithLogger sets the structured logger used for connection diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// Conn is the public entry point: one live backend chosen at connect time
// and an operation set that behaves identically over both engines. Callers
// write '?' placeholders regardless of backend; the dispatch layer rewrites
// them to the active engine's native syntax.
//
// Operations issued sequentially on the same Conn observe program order.
// Across different Conns to the same store, ordering is whatever the native
// engine provides. A Conn is safe for concurrent use; the backend pool
// mediates session exclusivity.
type Conn struct {
	backend backend
	id      string
	log     *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Connect inspects the target, selects a backend, and establishes a live
// session. Targets with a postgres:// or postgresql:// scheme select the
// server backend; filesystem paths, ":memory:", and file: URIs select the
// embedded backend. Any other form fails with a connection error. The
// target is consumed here and not retained.
func Connect(ctx context.Context, target string, opts ...Option) (*Conn, error) {
	cfg := &Config{Logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	kind, err := probeTarget(target)
	if err != nil {
		return nil, err
	}

	var b backend
	switch kind {
	case KindPostgres:
		b, err = connectPostgres(ctx, target, cfg)
	case KindSQLite:
		b, err = connectSQLite(ctx, target, cfg)
	}
	if err != nil {
		return nil, err
	}

	conn := &Conn{backend: b, id: uuid.NewString(), log: cfg.Logger}
	conn.log.Debug("connected", "backend", kind.String(), "conn_id", conn.id)
	return conn, nil
}

// Kind reports which backend this connection uses.
func (c *Conn) Kind() Kind { return c.backend.kind() }

// Close releases the backend's pool and session resources. It is safe to
// call multiple times; operations after Close fail with a closed error.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.backend.close()
		c.log.Debug("closed", "conn_id", c.id)
	})
	return c.closeErr
}

// checkOpen fails fast, before the native driver is touched, once the
// connection has been closed.
func (c *Conn) checkOpen() error {
	if c.closed.Load() {
		return newError(ErrClosed, "connection is closed")
	}
	return nil
}

// prepare binds caller arguments, verifies their count against the
// statement's placeholders, and rewrites placeholders to the active
// backend's syntax. A count mismatch fails here, without contacting the
// native driver.
func (c *Conn) prepare(query string, args []any) (string, []Value, error) {
	params, err := bindArgs(args)
	if err != nil {
		return "", nil, err
	}
	want := sqltext.CountPlaceholders(query)
	if want != len(params) {
		return "", nil, newError(ErrParam,
			"statement has %d placeholders but %d parameters were given", want, len(params))
	}
	if c.backend.kind() == KindPostgres {
		query = sqltext.RewriteDollar(query)
	}
	return query, params, nil
}

// Exec runs one statement that does not return rows and reports the number
// of rows affected.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	query, params, err := c.prepare(query, args)
	if err != nil {
		return 0, err
	}
	return c.backend.exec(ctx, query, params)
}

// ExecBatch runs a semicolon-delimited script without parameter binding.
//
// Atomicity is whatever the active engine provides, nothing more: Postgres
// runs the script in one implicit transaction (unless the script manages
// its own), while SQLite commits each statement separately. There is no
// cross-backend transaction guarantee.
func (c *Conn) ExecBatch(ctx context.Context, script string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.backend.execBatch(ctx, script)
}

// Query runs a statement expected to return rows and streams them lazily.
// The caller must Close the returned Rows; use QueryRows when random access
// to a materialized result is wanted instead.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	query, params, err := c.prepare(query, args)
	if err != nil {
		return nil, err
	}
	return c.backend.query(ctx, query, params)
}

// Begin starts a native transaction. Statements issued through the returned
// Tx run on one session until Commit or Rollback.
func (c *Conn) Begin(ctx context.Context) (*Tx, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	bt, err := c.backend.begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{conn: c, tx: bt}, nil
}
