package dualdb

import "context"

// QueryRows runs a statement and fully materializes the result for callers
// that need random access. Rows come back in the order the backend produced
// them.
func (c *Conn) QueryRows(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows.drain()
}

// QueryRow runs a statement that must return exactly one row. Zero rows or
// more than one row is a shape error.
func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := c.QueryRows(ctx, query, args...)
	if err != nil {
		return Row{}, err
	}
	return exactlyOneRow(rows)
}

// QueryValue runs a scalar query: exactly one row with exactly one column.
func (c *Conn) QueryValue(ctx context.Context, query string, args ...any) (Value, error) {
	rows, err := c.QueryRows(ctx, query, args...)
	if err != nil {
		return Value{}, err
	}
	return exactlyOneValue(rows)
}

// QueryString runs a scalar query and converts the value to text. Integers,
// reals, and booleans format to their canonical text; a null or a non-UTF-8
// blob is a type error.
func (c *Conn) QueryString(ctx context.Context, query string, args ...any) (string, error) {
	v, err := c.QueryValue(ctx, query, args...)
	if err != nil {
		return "", err
	}
	return v.asText()
}

// QueryInt runs a scalar query that must yield an integer.
func (c *Conn) QueryInt(ctx context.Context, query string, args ...any) (int64, error) {
	v, err := c.QueryValue(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	i, ok := v.Int()
	if !ok {
		return 0, newError(ErrType, "not an integer: %s", v)
	}
	return i, nil
}

// QueryFloat runs a scalar query that must yield a number. Integer results
// widen to float64.
func (c *Conn) QueryFloat(ctx context.Context, query string, args ...any) (float64, error) {
	v, err := c.QueryValue(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if f, ok := v.Float(); ok {
		return f, nil
	}
	if i, ok := v.Int(); ok {
		return float64(i), nil
	}
	return 0, newError(ErrType, "not a number: %s", v)
}

func exactlyOneRow(rows []Row) (Row, error) {
	switch len(rows) {
	case 0:
		return Row{}, newError(ErrShape, "query returned no rows")
	case 1:
		return rows[0], nil
	}
	return Row{}, newError(ErrShape, "query returned %d rows, expected one", len(rows))
}

func exactlyOneValue(rows []Row) (Value, error) {
	row, err := exactlyOneRow(rows)
	if err != nil {
		return Value{}, err
	}
	if row.Len() != 1 {
		return Value{}, newError(ErrShape, "query returned %d columns, expected one", row.Len())
	}
	return row.Value(0), nil
}
