package record

import (
	"database/sql"
	"fmt"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/wire"
)

// Value is a typed property value. It is the operand of filter leaves, the
// payload of search results, and the argument of Get/Set.
type Value struct {
	Type   DataType
	Str    sql.NullString
	Int    int32
	Double float64
	Int64  int64
	Time   CalTime
}

// StringValue returns a present string value.
func StringValue(s string) Value {
	return Value{Type: DataString, Str: sql.NullString{String: s, Valid: true}}
}

// NullStringValue returns an absent string value.
func NullStringValue() Value { return Value{Type: DataString} }

func IntValue(v int32) Value { return Value{Type: DataInt, Int: v} }

func DoubleValue(v float64) Value { return Value{Type: DataDouble, Double: v} }

func Int64Value(v int64) Value { return Value{Type: DataInt64, Int64: v} }

func TimeValue(v CalTime) Value { return Value{Type: DataTime, Time: v} }

// Str returns a present nullable string, for filling record fields.
func Str(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

// Native returns the value as a plain Go value: string or nil, int32,
// float64, int64 or CalTime.
func (v Value) Native() any {
	switch v.Type {
	case DataString:
		if !v.Str.Valid {
			return nil
		}
		return v.Str.String
	case DataInt:
		return v.Int
	case DataDouble:
		return v.Double
	case DataInt64:
		return v.Int64
	case DataTime:
		return v.Time
	}
	return nil
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.Type, v.Native())
}

// Fields walks the value payload for data type t. The type itself is not on
// the wire: both sides derive it from the property id.
func (v *Value) Fields(s wire.Stream, t DataType) {
	if s.Decoding() {
		*v = Value{Type: t}
	} else if v.Type != t {
		s.Fail(calerr.New(calerr.InvalidParameter, "value", "%s value for %s property", v.Type, t))
		return
	}
	switch t {
	case DataString:
		s.String(&v.Str)
	case DataInt:
		s.Int32(&v.Int)
	case DataDouble:
		s.Float64(&v.Double)
	case DataInt64:
		s.Int64(&v.Int64)
	case DataTime:
		v.Time.Fields(s)
	default:
		s.Fail(calerr.New(calerr.InvalidParameter, "value", "no wire form for %s", t))
	}
}
