package record

import (
	"database/sql"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/wire"
)

// property binds a property id and storage name to a field of a concrete
// record type. A view's property table is its single field-order
// declaration: the wire layout, the storage document and the filterable
// column names are all derived from it.
type property struct {
	ID   PropertyID
	Name string
	ptr  func(Record) any
}

// prop declares a property whose field is reached through ptr. The pointer's
// type must agree with the data type encoded in id; TestPropertyTables
// enforces this for every table.
func prop[R Record](id PropertyID, name string, ptr func(R) any) property {
	return property{
		ID:   id,
		Name: name,
		ptr:  func(r Record) any { return ptr(r.(R)) },
	}
}

// PropertyInfo describes one property of a view.
type PropertyInfo struct {
	ID   PropertyID
	Name string
}

func walkProperties(s wire.Stream, r Record, props []property) {
	for _, p := range props {
		if s.Err() != nil {
			return
		}
		switch v := p.ptr(r).(type) {
		case *int32:
			s.Int32(v)
		case *float64:
			s.Float64(v)
		case *int64:
			s.Int64(v)
		case *sql.NullString:
			s.String(v)
		case *CalTime:
			v.Fields(s)
		default:
			s.Fail(calerr.New(calerr.InvalidParameter, "walk properties", "property %s has unsupported field %T", p.Name, v))
		}
	}
}

func (p property) get(r Record) Value {
	switch v := p.ptr(r).(type) {
	case *int32:
		return IntValue(*v)
	case *float64:
		return DoubleValue(*v)
	case *int64:
		return Int64Value(*v)
	case *sql.NullString:
		return Value{Type: DataString, Str: *v}
	case *CalTime:
		return TimeValue(*v)
	}
	return Value{}
}

func (p property) set(r Record, val Value) error {
	if val.Type != p.ID.DataType() {
		return calerr.New(calerr.InvalidParameter, "set property",
			"%s is a %s property, got %s", p.Name, p.ID.DataType(), val.Type)
	}
	switch v := p.ptr(r).(type) {
	case *int32:
		*v = val.Int
	case *float64:
		*v = val.Double
	case *int64:
		*v = val.Int64
	case *sql.NullString:
		*v = val.Str
	case *CalTime:
		*v = val.Time
	}
	return nil
}

func (p property) clear(r Record) {
	_ = p.set(r, Value{Type: p.ID.DataType()})
}

// document returns the property as a plain value for the storage document.
// Times collapse to their sort key so range filters compare numerically.
func (p property) document(r Record) any {
	switch v := p.ptr(r).(type) {
	case *int32:
		return *v
	case *float64:
		return *v
	case *int64:
		return *v
	case *sql.NullString:
		if !v.Valid {
			return nil
		}
		return v.String
	case *CalTime:
		if v.IsZero() {
			return nil
		}
		return v.SortKey()
	}
	return nil
}
