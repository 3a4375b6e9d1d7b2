package dualdb

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// Type identifies the variant held by a Value.
type Type int

const (
	TypeNull Type = iota
	TypeInteger
	TypeReal
	TypeText
	TypeBlob
	TypeBoolean
)

// String returns the variant name for display and diagnostics.
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeText:
		return "text"
	case TypeBlob:
		return "blob"
	case TypeBoolean:
		return "boolean"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Value is a backend-neutral dynamic value. It represents any parameter sent
// to or column read from either backend. A Value never carries a
// backend-specific representation; conversion happens at the backend boundary.
//
// The zero Value is Null.
type Value struct {
	typ Type
	i   int64
	f   float64
	s   string
	b   []byte
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Int returns an integer Value.
func Int(v int64) Value { return Value{typ: TypeInteger, i: v} }

// Float returns a real Value.
func Float(v float64) Value { return Value{typ: TypeReal, f: v} }

// Text returns a text Value.
func Text(v string) Value { return Value{typ: TypeText, s: v} }

// Blob returns a blob Value. The byte slice is not copied.
func Blob(v []byte) Value { return Value{typ: TypeBlob, b: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value {
	val := Value{typ: TypeBoolean}
	if v {
		val.i = 1
	}
	return val
}

// Type reports which variant the Value holds.
func (v Value) Type() Type { return v.typ }

// IsNull reports whether the Value is null.
func (v Value) IsNull() bool { return v.typ == TypeNull }

// Int returns the integer payload. The bool is false when the Value is not
// an integer.
func (v Value) Int() (int64, bool) {
	if v.typ != TypeInteger {
		return 0, false
	}
	return v.i, true
}

// Float returns the real payload. The bool is false when the Value is not
// a real.
func (v Value) Float() (float64, bool) {
	if v.typ != TypeReal {
		return 0, false
	}
	return v.f, true
}

// Text returns the text payload. The bool is false when the Value is not text.
func (v Value) Text() (string, bool) {
	if v.typ != TypeText {
		return "", false
	}
	return v.s, true
}

// Blob returns the blob payload. The bool is false when the Value is not
// a blob.
func (v Value) Blob() ([]byte, bool) {
	if v.typ != TypeBlob {
		return nil, false
	}
	return v.b, true
}

// Bool returns the boolean payload. The bool is false when the Value is not
// a boolean.
func (v Value) Bool() (bool, bool) {
	if v.typ != TypeBoolean {
		return false, false
	}
	return v.i != 0, true
}

// Equal reports whether two Values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeInteger, TypeBoolean:
		return v.i == o.i
	case TypeReal:
		return v.f == o.f
	case TypeText:
		return v.s == o.s
	case TypeBlob:
		return string(v.b) == string(o.b)
	}
	return false
}

// String renders the Value for logs and diagnostics. It is not the text
// conversion used by QueryString; see asText.
func (v Value) String() string {
	switch v.typ {
	case TypeNull:
		return "NULL"
	case TypeInteger:
		return strconv.FormatInt(v.i, 10)
	case TypeReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeText:
		return v.s
	case TypeBlob:
		return fmt.Sprintf("blob(%d bytes)", len(v.b))
	case TypeBoolean:
		return strconv.FormatBool(v.i != 0)
	}
	return "invalid"
}

// asText converts the scalar to its textual form for QueryString. Integers,
// reals, and booleans format to their canonical text; blobs must be valid
// UTF-8; null does not convert.
func (v Value) asText() (string, error) {
	switch v.typ {
	case TypeText:
		return v.s, nil
	case TypeInteger:
		return strconv.FormatInt(v.i, 10), nil
	case TypeReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64), nil
	case TypeBoolean:
		return strconv.FormatBool(v.i != 0), nil
	case TypeBlob:
		if !utf8.Valid(v.b) {
			return "", newError(ErrType, "blob value is not valid UTF-8 text")
		}
		return string(v.b), nil
	case TypeNull:
		return "", newError(ErrType, "cannot convert NULL to string")
	}
	return "", newError(ErrType, "cannot convert %s value to string", v.typ)
}

// BindValue converts a Go value into a backend-neutral Value. Supported
// inputs are nil, bool, all signed and unsigned integer widths, float32,
// float64, string, []byte, and Value itself. Unsigned values wider than 63
// bits are rejected rather than truncated.
func BindValue(arg any) (Value, error) {
	switch x := arg.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return Value{}, newError(ErrType, "unsigned value %d overflows 64-bit integer", x)
		}
		return Int(int64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, newError(ErrType, "unsigned value %d overflows 64-bit integer", x)
		}
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Blob(x), nil
	}
	return Value{}, newError(ErrType, "cannot bind value of type %T", arg)
}

// bindArgs converts caller arguments into a Parameter list.
func bindArgs(args []any) ([]Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	params := make([]Value, len(args))
	for i, arg := range args {
		v, err := BindValue(arg)
		if err != nil {
			return nil, err
		}
		params[i] = v
	}
	return params, nil
}

// valueFromNative normalizes a Go value handed back by a native driver into
// a Value. Types neither backend maps onto the closed variant set (time,
// uuid, numeric, json, arrays) are rendered through their canonical textual
// representation rather than dropped.
func valueFromNative(native any) Value {
	switch x := native.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return Text(x)
	case []byte:
		return Blob(x)
	case fmt.Stringer:
		return Text(x.String())
	}
	return Text(fmt.Sprintf("%v", native))
}
