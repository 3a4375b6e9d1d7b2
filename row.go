package dualdb

import "sync"

// Row is one result row: an ordered sequence of column name and Value pairs.
// Column order is preserved from the backend's result metadata, and every
// row in one result set shares the same names and order.
type Row struct {
	columns []string
	values  []Value
}

// Columns returns the column names in result order. The slice is shared
// across rows of one result set and must not be mutated.
func (r Row) Columns() []string { return r.columns }

// Values returns the row's values in column order.
func (r Row) Values() []Value { return r.values }

// Len returns the number of columns.
func (r Row) Len() int { return len(r.values) }

// Value returns the value at column index i.
func (r Row) Value(i int) Value { return r.values[i] }

// Get returns the value for the named column. The bool is false when the
// result set has no such column.
func (r Row) Get(name string) (Value, bool) {
	for i, col := range r.columns {
		if col == name {
			return r.values[i], true
		}
	}
	return Value{}, false
}

// rowSource is the backend-side row stream. next returns nil values once
// the stream is exhausted; close releases the native cursor and is
// idempotent.
type rowSource interface {
	columns() []string
	next() ([]Value, error)
	close() error
}

// Rows is a lazy, finite stream of result rows. It is produced incrementally
// from the backend's cursor where the backend supports streaming. A stream
// is not restartable; issue the query again for a second pass.
//
// Iterate with Next, read the current row with Row, and always Close. Check
// Err after iteration ends.
type Rows struct {
	src     rowSource
	cur     Row
	err     error
	done    bool
	release func()
	once    sync.Once
}

// Next advances to the next row. It returns false when the stream is
// exhausted or a deferred error occurred; distinguish the two with Err.
func (r *Rows) Next() bool {
	if r.done || r.err != nil {
		return false
	}
	values, err := r.src.next()
	if err != nil {
		r.err = err
		r.finish()
		return false
	}
	if values == nil {
		r.finish()
		return false
	}
	r.cur = Row{columns: r.src.columns(), values: values}
	return true
}

// Row returns the current row. Valid only after a true Next.
func (r *Rows) Row() Row { return r.cur }

// Err returns the first error encountered during iteration, if any.
func (r *Rows) Err() error { return r.err }

// Close releases the underlying cursor and returns the borrowed session.
// It is safe to call multiple times and after exhaustion.
func (r *Rows) Close() error {
	var err error
	r.once.Do(func() {
		r.done = true
		err = r.src.close()
		if r.release != nil {
			r.release()
		}
	})
	return err
}

func (r *Rows) finish() {
	_ = r.Close()
}

// drain materializes the remaining rows and closes the stream.
func (r *Rows) drain() ([]Row, error) {
	defer r.Close()
	var rows []Row
	for r.Next() {
		rows = append(rows, r.Row())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
