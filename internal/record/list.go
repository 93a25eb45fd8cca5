package record

import (
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/wire"
)

// List is an ordered sequence of records with a cursor. Insertion order is
// significant and preserved by the codec.
type List struct {
	items  []Record
	cursor int
}

// NewList returns a list holding records, cursor at the first element.
func NewList(records ...Record) *List {
	return &List{items: records}
}

// Len returns the number of records.
func (l *List) Len() int { return len(l.items) }

// Add appends r. The cursor is not moved.
func (l *List) Add(r Record) error {
	if isNil(r) {
		return calerr.New(calerr.InvalidParameter, "list add", "nil record")
	}
	l.items = append(l.items, r)
	return nil
}

// Remove deletes r from the list, comparing by identity. The cursor stays on
// the element that followed r.
func (l *List) Remove(r Record) error {
	for i, it := range l.items {
		if it == r {
			l.items = append(l.items[:i], l.items[i+1:]...)
			if l.cursor > i {
				l.cursor--
			}
			return nil
		}
	}
	return calerr.New(calerr.NoData, "list remove", "record not in list")
}

// First moves the cursor to the first element.
func (l *List) First() { l.cursor = 0 }

// Last moves the cursor to the last element.
func (l *List) Last() {
	if len(l.items) > 0 {
		l.cursor = len(l.items) - 1
	}
}

// Next advances the cursor. It fails with NoData past the end.
func (l *List) Next() error {
	if l.cursor+1 >= len(l.items) {
		return calerr.New(calerr.NoData, "list next", "at end of list")
	}
	l.cursor++
	return nil
}

// Prev moves the cursor back. It fails with NoData before the start.
func (l *List) Prev() error {
	if l.cursor == 0 {
		return calerr.New(calerr.NoData, "list prev", "at start of list")
	}
	l.cursor--
	return nil
}

// Current returns the record under the cursor.
func (l *List) Current() (Record, error) {
	if l.cursor >= len(l.items) {
		return nil, calerr.New(calerr.NoData, "list current", "empty list")
	}
	return l.items[l.cursor], nil
}

// Records returns the records in order. The list still owns them.
func (l *List) Records() []Record { return l.items }

// Take transfers the records to the caller and empties the list.
func (l *List) Take() []Record {
	out := l.items
	l.items = nil
	l.cursor = 0
	return out
}

// Fields walks the list codec: a count, then each record through the record
// codec. On decode failure the list is left empty.
func (l *List) Fields(s wire.Stream) {
	n := len(l.items)
	s.Count(&n, minEnvelopeSize)
	if s.Err() != nil {
		return
	}
	if !s.Decoding() {
		for _, r := range l.items {
			encodeRecord(s, r)
		}
		return
	}
	items := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		r := decodeRecord(s)
		if s.Err() != nil {
			l.items, l.cursor = nil, 0
			return
		}
		items = append(items, r)
	}
	l.items, l.cursor = items, 0
}

// MarshalList encodes l.
func MarshalList(l *List) ([]byte, error) {
	enc := wire.NewEncoder(wire.NewBuffer(256))
	l.Fields(enc)
	if err := enc.Err(); err != nil {
		return nil, calerr.Wrap(calerr.InvalidParameter, "marshal list", err)
	}
	return enc.W.Bytes(), nil
}

// UnmarshalList decodes exactly one list from b.
func UnmarshalList(b []byte) (*List, error) {
	rd := wire.NewReader(b)
	dec := wire.NewDecoder(rd)
	l := &List{}
	l.Fields(dec)
	if err := dec.Err(); err != nil {
		return nil, calerr.Wrap(calerr.InvalidParameter, "unmarshal list", err)
	}
	if rd.Remaining() != 0 {
		return nil, calerr.New(calerr.InvalidParameter, "unmarshal list", "%d trailing bytes", rd.Remaining())
	}
	return l, nil
}
