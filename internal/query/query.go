package query

import (
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/wire"
)

// Query selects records of one view.
//
// An empty Projection means every property. SortProperty 0 leaves the order
// to the store, which sorts by primary key. With Distinct and a projection
// the store returns Search records holding only the projected values,
// deduplicated.
type Query struct {
	View         string
	Filter       *Composite
	Projection   []record.PropertyID
	SortProperty record.PropertyID
	Ascending    bool
	Distinct     bool
}

// New returns a query over view with ascending key order.
func New(view string) *Query {
	return &Query{View: view, Ascending: true}
}

// SetFilter attaches f. The filter's view must match the query's.
func (q *Query) SetFilter(f *Composite) *Query {
	q.Filter = f
	return q
}

// Project selects the properties to return.
func (q *Query) Project(ids ...record.PropertyID) *Query {
	q.Projection = append(q.Projection, ids...)
	return q
}

// SortBy orders results by id.
func (q *Query) SortBy(id record.PropertyID, ascending bool) *Query {
	q.SortProperty = id
	q.Ascending = ascending
	return q
}

// Fields walks the query layout: view, filter-present flag, filter,
// projection, sort property, sort direction, distinct flag.
func (q *Query) Fields(s wire.Stream) {
	s.Text(&q.View)

	hasFilter := q.Filter != nil
	s.Bool(&hasFilter)
	if s.Err() != nil {
		return
	}
	if hasFilter {
		var f Filter = q.Filter
		if s.Decoding() {
			f = nil
		}
		filterFields(s, &f, 0)
		if s.Err() != nil {
			if s.Decoding() {
				q.Filter = nil
			}
			return
		}
		if s.Decoding() {
			c, ok := f.(*Composite)
			if !ok {
				s.Fail(calerr.New(calerr.InvalidParameter, "query", "top-level filter must be a composite"))
				return
			}
			q.Filter = c
		}
	} else if s.Decoding() {
		q.Filter = nil
	}

	n := len(q.Projection)
	s.Count(&n, 4)
	if s.Err() != nil {
		return
	}
	if s.Decoding() {
		q.Projection = nil
		if n > 0 {
			q.Projection = make([]record.PropertyID, n)
		}
	}
	for i := range q.Projection {
		id := uint32(q.Projection[i])
		s.Uint32(&id)
		q.Projection[i] = record.PropertyID(id)
	}

	sort := uint32(q.SortProperty)
	s.Uint32(&sort)
	q.SortProperty = record.PropertyID(sort)
	s.Bool(&q.Ascending)
	s.Bool(&q.Distinct)
}

// Marshal encodes q.
func Marshal(q *Query) ([]byte, error) {
	if q == nil {
		return nil, calerr.New(calerr.InvalidParameter, "marshal query", "nil query")
	}
	b, err := wire.Encode(q.Fields)
	if err != nil {
		return nil, calerr.Wrap(calerr.InvalidParameter, "marshal query", err)
	}
	return b, nil
}

// Unmarshal decodes exactly one query from b. On failure no query is
// returned.
func Unmarshal(b []byte) (*Query, error) {
	rd := wire.NewReader(b)
	dec := wire.NewDecoder(rd)
	q := &Query{}
	q.Fields(dec)
	if err := dec.Err(); err != nil {
		return nil, calerr.Wrap(calerr.InvalidParameter, "unmarshal query", err)
	}
	if rd.Remaining() != 0 {
		return nil, calerr.New(calerr.InvalidParameter, "unmarshal query", "%d trailing bytes", rd.Remaining())
	}
	return q, nil
}

// MarshalFilter encodes a standalone filter tree.
func MarshalFilter(f Filter) ([]byte, error) {
	b, err := wire.Encode(func(s wire.Stream) { filterFields(s, &f, 0) })
	if err != nil {
		return nil, calerr.Wrap(calerr.InvalidParameter, "marshal filter", err)
	}
	return b, nil
}

// UnmarshalFilter decodes exactly one filter tree from b.
func UnmarshalFilter(b []byte) (Filter, error) {
	rd := wire.NewReader(b)
	dec := wire.NewDecoder(rd)
	var f Filter
	filterFields(dec, &f, 0)
	if err := dec.Err(); err != nil {
		return nil, calerr.Wrap(calerr.InvalidParameter, "unmarshal filter", err)
	}
	if rd.Remaining() != 0 {
		return nil, calerr.New(calerr.InvalidParameter, "unmarshal filter", "%d trailing bytes", rd.Remaining())
	}
	return f, nil
}
