package dualdb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dualdb/dualdb/internal/sqltext"
)

// sqliteBackend implements the backend contract for the embedded engine.
// Sessions are bounded by a weighted semaphore: a caller borrowing a session
// when all are checked out suspends until one is returned or its context is
// cancelled, and a cancelled borrow never leaks a session. The default is a
// single session, which also gives program order across sequential calls.
type sqliteBackend struct {
	db       *sql.DB
	sessions *semaphore.Weighted
	log      *slog.Logger
}

func connectSQLite(ctx context.Context, target string, cfg *Config) (backend, error) {
	sessions := int64(cfg.MaxPoolSize)
	if sessions <= 0 || target == ":memory:" {
		// Every new native connection to ":memory:" would open a distinct
		// empty database, so the in-memory form is pinned to one session.
		sessions = 1
	}

	db, err := sql.Open("sqlite", sqliteDSN(target))
	if err != nil {
		return nil, wrapError(ErrConnection, err, "open %s", target)
	}
	db.SetMaxOpenConns(int(sessions))
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wrapError(ErrConnection, err, "open %s", target)
	}

	return &sqliteBackend{
		db:       db,
		sessions: semaphore.NewWeighted(sessions),
		log:      cfg.Logger,
	}, nil
}

// sqliteDSN turns a plain filesystem path into a file: URI carrying a busy
// timeout, so concurrent connections to the same database file wait on each
// other's write locks instead of failing immediately.
func sqliteDSN(target string) string {
	if target == ":memory:" || strings.HasPrefix(target, "file:") {
		return target
	}
	return "file:" + target + "?_pragma=busy_timeout(5000)"
}

func (b *sqliteBackend) kind() Kind { return KindSQLite }

// borrow checks out a session, suspending while the pool is exhausted. The
// wait is bounded by ctx; cancellation surfaces without consuming a session.
func (b *sqliteBackend) borrow(ctx context.Context) (release func(), err error) {
	start := time.Now()
	if err := b.sessions.Acquire(ctx, 1); err != nil {
		return nil, wrapError(ErrInternal, err, "borrow session")
	}
	if wait := time.Since(start); wait > 100*time.Millisecond {
		b.log.Debug("slow session borrow", "backend", "sqlite", "wait", wait)
	}
	var once sync.Once
	return func() { once.Do(func() { b.sessions.Release(1) }) }, nil
}

func (b *sqliteBackend) exec(ctx context.Context, query string, params []Value) (int64, error) {
	release, err := b.borrow(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	res, err := b.db.ExecContext(ctx, query, sqliteArgs(params)...)
	if err != nil {
		return 0, classifySQLite(err, "exec")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, classifySQLite(err, "exec")
	}
	return affected, nil
}

// execBatch runs the script statement by statement on one native session.
// SQLite wraps each statement in its own implicit transaction; the script as
// a whole is not atomic unless it contains BEGIN/COMMIT itself.
func (b *sqliteBackend) execBatch(ctx context.Context, script string) error {
	release, err := b.borrow(ctx)
	if err != nil {
		return err
	}
	defer release()

	conn, err := b.db.Conn(ctx)
	if err != nil {
		return classifySQLite(err, "batch")
	}
	defer conn.Close()

	for _, stmt := range sqltext.Split(script) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return classifySQLite(err, "batch")
		}
	}
	return nil
}

func (b *sqliteBackend) query(ctx context.Context, query string, params []Value) (*Rows, error) {
	release, err := b.borrow(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx, query, sqliteArgs(params)...)
	if err != nil {
		release()
		return nil, classifySQLite(err, "query")
	}
	src, err := newSQLiteRowSource(rows)
	if err != nil {
		_ = rows.Close()
		release()
		return nil, err
	}
	return &Rows{src: src, release: release}, nil
}

func (b *sqliteBackend) begin(ctx context.Context) (backendTx, error) {
	release, err := b.borrow(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		release()
		return nil, classifySQLite(err, "begin")
	}
	return &sqliteTx{tx: tx, release: release}, nil
}

func (b *sqliteBackend) close() error {
	// database/sql close is idempotent.
	return b.db.Close()
}

type sqliteTx struct {
	tx      *sql.Tx
	release func()
}

func (t *sqliteTx) exec(ctx context.Context, query string, params []Value) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, sqliteArgs(params)...)
	if err != nil {
		return 0, classifySQLite(err, "exec")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, classifySQLite(err, "exec")
	}
	return affected, nil
}

func (t *sqliteTx) query(ctx context.Context, query string, params []Value) (*Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, sqliteArgs(params)...)
	if err != nil {
		return nil, classifySQLite(err, "query")
	}
	src, err := newSQLiteRowSource(rows)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &Rows{src: src}, nil
}

func (t *sqliteTx) commit(ctx context.Context) error {
	defer t.release()
	if err := t.tx.Commit(); err != nil {
		return classifySQLite(err, "commit")
	}
	return nil
}

func (t *sqliteTx) rollback(ctx context.Context) error {
	defer t.release()
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return classifySQLite(err, "rollback")
	}
	return nil
}

// sqliteRowSource adapts *sql.Rows. Column declared types are captured up
// front so integer columns declared BOOL or BOOLEAN decode back to Boolean;
// SQLite stores booleans as 0/1 integers.
type sqliteRowSource struct {
	rows     *sql.Rows
	cols     []string
	boolCols []bool
}

func newSQLiteRowSource(rows *sql.Rows) (*sqliteRowSource, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, classifySQLite(err, "query")
	}
	boolCols := make([]bool, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			decl := strings.ToUpper(ct.DatabaseTypeName())
			boolCols[i] = decl == "BOOL" || decl == "BOOLEAN"
		}
	}
	return &sqliteRowSource{rows: rows, cols: cols, boolCols: boolCols}, nil
}

func (s *sqliteRowSource) columns() []string { return s.cols }

func (s *sqliteRowSource) next() ([]Value, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, classifySQLite(err, "query")
		}
		return nil, nil
	}
	natives := make([]any, len(s.cols))
	dest := make([]any, len(s.cols))
	for i := range natives {
		dest[i] = &natives[i]
	}
	if err := s.rows.Scan(dest...); err != nil {
		return nil, classifySQLite(err, "read row")
	}
	values := make([]Value, len(natives))
	for i, n := range natives {
		if iv, ok := n.(int64); ok && s.boolCols[i] {
			values[i] = Bool(iv != 0)
			continue
		}
		values[i] = valueFromNative(n)
	}
	return values, nil
}

func (s *sqliteRowSource) close() error {
	return s.rows.Close()
}

// sqliteArgs converts a parameter list to database/sql arguments. SQLite has
// no native boolean, so Boolean degrades to a 0/1 integer; declared column
// types restore it on the way back.
func sqliteArgs(params []Value) []any {
	if len(params) == 0 {
		return nil
	}
	args := make([]any, len(params))
	for i, p := range params {
		switch p.Type() {
		case TypeNull:
			args[i] = nil
		case TypeInteger:
			args[i], _ = p.Int()
		case TypeReal:
			args[i], _ = p.Float()
		case TypeText:
			args[i], _ = p.Text()
		case TypeBlob:
			args[i], _ = p.Blob()
		case TypeBoolean:
			if v, _ := p.Bool(); v {
				args[i] = int64(1)
			} else {
				args[i] = int64(0)
			}
		}
	}
	return args
}

// classifySQLite translates a native sqlite error into the unified taxonomy
// by primary result code. Extended codes share the low byte with their
// primary code.
func classifySQLite(err error, op string) *Error {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_ERROR:
			return wrapError(ErrSyntax, err, "%s", op)
		case sqlite3.SQLITE_CANTOPEN:
			return wrapError(ErrConnection, err, "%s", op)
		case sqlite3.SQLITE_CONSTRAINT:
			return wrapError(ErrConstraint, err, "%s", op)
		case sqlite3.SQLITE_MISMATCH:
			return wrapError(ErrType, err, "%s", op)
		}
		return wrapError(ErrInternal, err, "%s (code %d)", op, serr.Code())
	}
	return wrapError(ErrInternal, err, "%s", op)
}
