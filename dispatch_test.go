package dualdb

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceRowSource feeds canned rows to the dispatch layer in tests.
type sliceRowSource struct {
	cols   []string
	rows   [][]Value
	pos    int
	closed bool
}

func (s *sliceRowSource) columns() []string { return s.cols }

func (s *sliceRowSource) next() ([]Value, error) {
	if s.pos >= len(s.rows) {
		return nil, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sliceRowSource) close() error {
	s.closed = true
	return nil
}

// stubBackend records the statements and parameters the dispatch layer hands
// down and replays canned results.
type stubBackend struct {
	engine   Kind
	gotSQL   []string
	gotArgs  [][]Value
	result   *sliceRowSource
	affected int64
	closed   bool
}

func (s *stubBackend) kind() Kind { return s.engine }

func (s *stubBackend) exec(_ context.Context, sql string, params []Value) (int64, error) {
	s.gotSQL = append(s.gotSQL, sql)
	s.gotArgs = append(s.gotArgs, params)
	return s.affected, nil
}

func (s *stubBackend) execBatch(_ context.Context, script string) error {
	s.gotSQL = append(s.gotSQL, script)
	return nil
}

func (s *stubBackend) query(_ context.Context, sql string, params []Value) (*Rows, error) {
	s.gotSQL = append(s.gotSQL, sql)
	s.gotArgs = append(s.gotArgs, params)
	src := s.result
	if src == nil {
		src = &sliceRowSource{}
	}
	return &Rows{src: src}, nil
}

func (s *stubBackend) begin(context.Context) (backendTx, error) {
	return &stubTx{backend: s}, nil
}

func (s *stubBackend) close() error {
	s.closed = true
	return nil
}

type stubTx struct {
	backend    *stubBackend
	committed  bool
	rolledBack bool
}

func (t *stubTx) exec(ctx context.Context, sql string, params []Value) (int64, error) {
	return t.backend.exec(ctx, sql, params)
}

func (t *stubTx) query(ctx context.Context, sql string, params []Value) (*Rows, error) {
	return t.backend.query(ctx, sql, params)
}

func (t *stubTx) commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

func stubConn(b *stubBackend) *Conn {
	return &Conn{backend: b, id: "test", log: slog.Default()}
}

func TestExecParamCountMismatch(t *testing.T) {
	b := &stubBackend{engine: KindSQLite}
	conn := stubConn(b)

	_, err := conn.Exec(context.Background(), "INSERT INTO t VALUES (?, ?)", 1)
	require.Error(t, err)
	assert.Equal(t, ErrParam, KindOf(err))
	assert.Empty(t, b.gotSQL, "mismatch rejected before the backend is touched")

	_, err = conn.Exec(context.Background(), "INSERT INTO t VALUES (?)", 1, 2)
	require.Error(t, err)
	assert.Equal(t, ErrParam, KindOf(err))
	assert.Empty(t, b.gotSQL)
}

func TestExecRewritesPlaceholdersForPostgres(t *testing.T) {
	b := &stubBackend{engine: KindPostgres}
	conn := stubConn(b)

	_, err := conn.Exec(context.Background(),
		"INSERT INTO t (a, b) VALUES (?, ?)", 1, "two")
	require.NoError(t, err)
	require.Len(t, b.gotSQL, 1)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", b.gotSQL[0])
	assert.Equal(t, []Value{Int(1), Text("two")}, b.gotArgs[0])
}

func TestExecKeepsPlaceholdersForSQLite(t *testing.T) {
	b := &stubBackend{engine: KindSQLite}
	conn := stubConn(b)

	_, err := conn.Exec(context.Background(), "DELETE FROM t WHERE id = ?", 7)
	require.NoError(t, err)
	require.Len(t, b.gotSQL, 1)
	assert.Equal(t, "DELETE FROM t WHERE id = ?", b.gotSQL[0])
}

func TestExecRejectsUnbindableArg(t *testing.T) {
	b := &stubBackend{engine: KindSQLite}
	conn := stubConn(b)

	_, err := conn.Exec(context.Background(),
		"INSERT INTO t VALUES (?)", struct{ X int }{1})
	require.Error(t, err)
	assert.Equal(t, ErrType, KindOf(err))
	assert.Empty(t, b.gotSQL)
}

func TestClosedConnFailsFast(t *testing.T) {
	b := &stubBackend{engine: KindSQLite}
	conn := stubConn(b)

	require.NoError(t, conn.Close())
	assert.True(t, b.closed)

	_, err := conn.Exec(context.Background(), "SELECT 1")
	assert.Equal(t, ErrClosed, KindOf(err))
	_, err = conn.Query(context.Background(), "SELECT 1")
	assert.Equal(t, ErrClosed, KindOf(err))
	err = conn.ExecBatch(context.Background(), "SELECT 1;")
	assert.Equal(t, ErrClosed, KindOf(err))
	_, err = conn.Begin(context.Background())
	assert.Equal(t, ErrClosed, KindOf(err))

	// Double close is a no-op.
	require.NoError(t, conn.Close())
}

func TestQueryStreamsLazily(t *testing.T) {
	src := &sliceRowSource{
		cols: []string{"id", "name"},
		rows: [][]Value{
			{Int(1), Text("alpha")},
			{Int(2), Text("beta")},
		},
	}
	conn := stubConn(&stubBackend{engine: KindSQLite, result: src})

	rows, err := conn.Query(context.Background(), "SELECT id, name FROM t")
	require.NoError(t, err)

	var names []string
	for rows.Next() {
		row := rows.Row()
		v, ok := row.Get("name")
		require.True(t, ok)
		s, ok := v.Text()
		require.True(t, ok)
		names = append(names, s)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"alpha", "beta"}, names)
	assert.True(t, src.closed, "exhaustion closes the native cursor")
}

func TestQueryRowsPreservesOrder(t *testing.T) {
	src := &sliceRowSource{
		cols: []string{"v"},
		rows: [][]Value{{Int(3)}, {Int(1)}, {Int(2)}},
	}
	conn := stubConn(&stubBackend{engine: KindSQLite, result: src})

	rows, err := conn.QueryRows(context.Background(), "SELECT v FROM t")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, want := range []int64{3, 1, 2} {
		got, ok := rows[i].Value(0).Int()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestQueryRowShape(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		conn := stubConn(&stubBackend{engine: KindSQLite,
			result: &sliceRowSource{cols: []string{"v"}}})
		_, err := conn.QueryRow(context.Background(), "SELECT v FROM t")
		assert.Equal(t, ErrShape, KindOf(err))
	})
	t.Run("two rows", func(t *testing.T) {
		conn := stubConn(&stubBackend{engine: KindSQLite,
			result: &sliceRowSource{cols: []string{"v"}, rows: [][]Value{{Int(1)}, {Int(2)}}}})
		_, err := conn.QueryRow(context.Background(), "SELECT v FROM t")
		assert.Equal(t, ErrShape, KindOf(err))
	})
	t.Run("one row", func(t *testing.T) {
		conn := stubConn(&stubBackend{engine: KindSQLite,
			result: &sliceRowSource{cols: []string{"v"}, rows: [][]Value{{Int(42)}}}})
		row, err := conn.QueryRow(context.Background(), "SELECT v FROM t")
		require.NoError(t, err)
		got, ok := row.Value(0).Int()
		require.True(t, ok)
		assert.Equal(t, int64(42), got)
	})
}

func TestQueryValueShape(t *testing.T) {
	conn := stubConn(&stubBackend{engine: KindSQLite,
		result: &sliceRowSource{cols: []string{"a", "b"}, rows: [][]Value{{Int(1), Int(2)}}}})
	_, err := conn.QueryValue(context.Background(), "SELECT a, b FROM t")
	assert.Equal(t, ErrShape, KindOf(err))
}

func TestQueryStringConversions(t *testing.T) {
	query := func(v Value) (string, error) {
		conn := stubConn(&stubBackend{engine: KindSQLite,
			result: &sliceRowSource{cols: []string{"v"}, rows: [][]Value{{v}}}})
		return conn.QueryString(context.Background(), "SELECT v FROM t")
	}

	s, err := query(Text("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = query(Int(-7))
	require.NoError(t, err)
	assert.Equal(t, "-7", s)

	s, err = query(Bool(true))
	require.NoError(t, err)
	assert.Equal(t, "true", s)

	_, err = query(Null())
	assert.Equal(t, ErrType, KindOf(err))

	_, err = query(Blob([]byte{0xff, 0xfe}))
	assert.Equal(t, ErrType, KindOf(err))
}

func TestQueryIntStrict(t *testing.T) {
	query := func(v Value) (int64, error) {
		conn := stubConn(&stubBackend{engine: KindSQLite,
			result: &sliceRowSource{cols: []string{"v"}, rows: [][]Value{{v}}}})
		return conn.QueryInt(context.Background(), "SELECT v FROM t")
	}

	n, err := query(Int(9))
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	_, err = query(Float(9.0))
	assert.Equal(t, ErrType, KindOf(err), "reals do not narrow to integers")
	_, err = query(Text("9"))
	assert.Equal(t, ErrType, KindOf(err))
}

func TestQueryFloatWidensIntegers(t *testing.T) {
	query := func(v Value) (float64, error) {
		conn := stubConn(&stubBackend{engine: KindSQLite,
			result: &sliceRowSource{cols: []string{"v"}, rows: [][]Value{{v}}}})
		return conn.QueryFloat(context.Background(), "SELECT v FROM t")
	}

	f, err := query(Float(2.5))
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	f, err = query(Int(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	_, err = query(Text("2.5"))
	assert.Equal(t, ErrType, KindOf(err))
}

func TestTxDispatch(t *testing.T) {
	b := &stubBackend{engine: KindPostgres,
		result: &sliceRowSource{cols: []string{"v"}, rows: [][]Value{{Int(1)}}}}
	conn := stubConn(b)

	tx, err := conn.Begin(context.Background())
	require.NoError(t, err)

	_, err = tx.Exec(context.Background(), "UPDATE t SET v = ? WHERE id = ?", 5, 1)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE t SET v = $1 WHERE id = $2", b.gotSQL[0],
		"transaction statements go through the same rewrite")

	require.NoError(t, tx.Commit(context.Background()))

	_, err = tx.Exec(context.Background(), "SELECT 1")
	assert.Equal(t, ErrClosed, KindOf(err))
	err = tx.Rollback(context.Background())
	require.NoError(t, err, "rollback after commit is a no-op")
}

func TestTxRollback(t *testing.T) {
	conn := stubConn(&stubBackend{engine: KindSQLite})

	tx, err := conn.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(context.Background()))

	err = tx.Commit(context.Background())
	assert.Equal(t, ErrClosed, KindOf(err))
}
