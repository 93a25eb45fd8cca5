package record

import (
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/wire"
)

// SearchValue is one projected column of a search result.
type SearchValue struct {
	Property PropertyID
	Value    Value
}

// Search is a result row of a distinct or projected query. Its shape is not
// fixed: it carries whichever properties the query selected, in projection
// order, and its ViewURI names the view that was searched.
type Search struct {
	Envelope
	Values []SearchValue
}

// NewSearch returns an empty search result for view.
func NewSearch(view string) *Search {
	return &Search{Envelope: Envelope{Type: TypeSearch, ViewURI: view}}
}

func (*Search) defaultType() Type { return TypeSearch }

// Add appends a property value.
func (s *Search) Add(id PropertyID, v Value) error {
	if v.Type != id.DataType() {
		return calerr.New(calerr.InvalidParameter, "search add", "%s value for %s property", v.Type, id)
	}
	s.Values = append(s.Values, SearchValue{Property: id, Value: v})
	return nil
}

// Lookup returns the value of property id, if the result carries it.
func (s *Search) Lookup(id PropertyID) (Value, bool) {
	for _, sv := range s.Values {
		if sv.Property == id {
			return sv.Value, true
		}
	}
	return Value{}, false
}

// searchValueSize is the smallest encoded search value: the property id and
// a four-byte scalar.
const searchValueSize = 8

func searchFields(s wire.Stream, r Record) {
	sr := r.(*Search)
	n := len(sr.Values)
	s.Count(&n, searchValueSize)
	if s.Err() != nil {
		return
	}
	if s.Decoding() {
		sr.Values = make([]SearchValue, n)
	}
	for i := range sr.Values {
		sv := &sr.Values[i]
		id := uint32(sv.Property)
		s.Uint32(&id)
		sv.Property = PropertyID(id)
		if s.Err() != nil {
			return
		}
		sv.Value.Fields(s, sv.Property.DataType())
	}
}
