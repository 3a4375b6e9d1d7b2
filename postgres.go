package dualdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresBackend implements the backend contract for the server engine on
// top of a pgx connection pool. The pool hands out one native session per
// in-flight call and takes it back when the call (or its row stream) ends.
type postgresBackend struct {
	pool *pgxpool.Pool
}

func connectPostgres(ctx context.Context, target string, cfg *Config) (backend, error) {
	pc, err := pgxpool.ParseConfig(target)
	if err != nil {
		return nil, wrapError(ErrConnection, err, "parse target")
	}
	if cfg.MaxPoolSize > 0 {
		pc.MaxConns = int32(cfg.MaxPoolSize)
	}
	pc.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, wrapError(ErrConnection, err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapError(ErrConnection, err, "ping %s", pc.ConnConfig.Host)
	}
	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) kind() Kind { return KindPostgres }

func (b *postgresBackend) exec(ctx context.Context, sql string, params []Value) (int64, error) {
	tag, err := b.pool.Exec(ctx, sql, pgArgs(params)...)
	if err != nil {
		return 0, classifyPostgres(err, "exec")
	}
	return tag.RowsAffected(), nil
}

// execBatch sends the script in one simple-protocol request. Postgres runs
// such a request in a single implicit transaction unless the script manages
// its own transactions.
func (b *postgresBackend) execBatch(ctx context.Context, script string) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return classifyPostgres(err, "acquire")
	}
	defer conn.Release()
	if _, err := conn.Conn().Exec(ctx, script); err != nil {
		return classifyPostgres(err, "batch")
	}
	return nil
}

func (b *postgresBackend) query(ctx context.Context, sql string, params []Value) (*Rows, error) {
	rows, err := b.pool.Query(ctx, sql, pgArgs(params)...)
	if err != nil {
		return nil, classifyPostgres(err, "query")
	}
	return &Rows{src: newPGRowSource(rows)}, nil
}

func (b *postgresBackend) begin(ctx context.Context) (backendTx, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, classifyPostgres(err, "begin")
	}
	return &postgresTx{tx: tx}, nil
}

func (b *postgresBackend) close() error {
	// pgxpool.Close is idempotent.
	b.pool.Close()
	return nil
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) exec(ctx context.Context, sql string, params []Value) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, pgArgs(params)...)
	if err != nil {
		return 0, classifyPostgres(err, "exec")
	}
	return tag.RowsAffected(), nil
}

func (t *postgresTx) query(ctx context.Context, sql string, params []Value) (*Rows, error) {
	rows, err := t.tx.Query(ctx, sql, pgArgs(params)...)
	if err != nil {
		return nil, classifyPostgres(err, "query")
	}
	return &Rows{src: newPGRowSource(rows)}, nil
}

func (t *postgresTx) commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return classifyPostgres(err, "commit")
	}
	return nil
}

func (t *postgresTx) rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return classifyPostgres(err, "rollback")
	}
	return nil
}

// pgRowSource adapts pgx.Rows to the lazy row stream. The pgx rows object
// holds its pooled session until close.
type pgRowSource struct {
	rows pgx.Rows
	cols []string
}

func newPGRowSource(rows pgx.Rows) *pgRowSource {
	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return &pgRowSource{rows: rows, cols: cols}
}

func (s *pgRowSource) columns() []string { return s.cols }

func (s *pgRowSource) next() ([]Value, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, classifyPostgres(err, "query")
		}
		return nil, nil
	}
	natives, err := s.rows.Values()
	if err != nil {
		return nil, classifyPostgres(err, "read row")
	}
	values := make([]Value, len(natives))
	for i, n := range natives {
		values[i] = pgValue(n)
	}
	return values, nil
}

func (s *pgRowSource) close() error {
	s.rows.Close()
	return nil
}

// pgArgs converts a parameter list to pgx arguments. Postgres has a native
// boolean, so Boolean maps directly.
func pgArgs(params []Value) []any {
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
			args[i], _ = p.Bool()
		}
	}
	return args
}

// pgValue normalizes a column value from pgx. Server-specific types that
// have no place in the closed variant set come back as their canonical text.
func pgValue(native any) Value {
	switch x := native.(type) {
	case time.Time:
		return Text(x.Format(time.RFC3339Nano))
	case [16]byte:
		return Text(uuid.UUID(x).String())
	case driver.Valuer:
		if v, err := x.Value(); err == nil {
			return valueFromNative(v)
		}
	}
	return valueFromNative(native)
}

// classifyPostgres translates a native pgx error into the unified taxonomy.
// SQLSTATE classes: 08 connection, 28 authorization, 22 data, 23 constraint,
// 42 syntax or access rule. Everything else is backend-internal, with the
// native diagnostic preserved on the wrapped cause.
func classifyPostgres(err error, op string) *Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "08", "28":
			return wrapError(ErrConnection, err, "%s", op)
		case "22":
			return wrapError(ErrType, err, "%s", op)
		case "23":
			return wrapError(ErrConstraint, err, "%s", op)
		case "42":
			return wrapError(ErrSyntax, err, "%s", op)
		}
		return wrapError(ErrInternal, err, "%s (sqlstate %s)", op, pgErr.Code)
	}
	return wrapError(ErrInternal, err, "%s", op)
}
