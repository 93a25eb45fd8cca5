package record

import (
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/wire"
)

// Envelope is the generic header embedded by value at the head of every
// record.
//
// PropertiesFlags holds one flag byte per property of the record's view and
// is nil (with PropertiesMaxCount 0) until a projection or dirty mark is
// first set. PropertyFlag is the record-level dirty marker.
type Envelope struct {
	Type               Type
	ViewURI            string
	PropertiesMaxCount uint32
	PropertiesFlags    []byte
	PropertyFlag       byte
}

// Header returns the envelope itself. Embedding Envelope gives every record
// type this method.
func (e *Envelope) Header() *Envelope { return e }

// minEnvelopeSize is the smallest possible encoded envelope: type tag, empty
// view string, zero flag count and the record-level flag byte.
const minEnvelopeSize = 4 + 4 + 4 + 1

func (e *Envelope) fields(s wire.Stream) {
	t := int32(e.Type)
	s.Int32(&t)
	e.Type = Type(t)
	s.Text(&e.ViewURI)

	if !s.Decoding() && int(e.PropertiesMaxCount) != len(e.PropertiesFlags) {
		s.Fail(calerr.New(calerr.InvalidParameter, "marshal envelope",
			"flag count %d does not match %d flags", e.PropertiesMaxCount, len(e.PropertiesFlags)))
		return
	}
	n := int(e.PropertiesMaxCount)
	s.Count(&n, 1)
	if s.Err() != nil {
		return
	}
	if s.Decoding() {
		e.PropertiesMaxCount = uint32(n)
		e.PropertiesFlags = nil
		if n > 0 {
			e.PropertiesFlags = make([]byte, n)
		}
	}
	for i := 0; i < n; i++ {
		s.Byte(&e.PropertiesFlags[i])
	}
	s.Byte(&e.PropertyFlag)
}

// ensureFlags allocates the flag array for a view with n properties.
func (e *Envelope) ensureFlags(n int) {
	if len(e.PropertiesFlags) == n {
		return
	}
	e.PropertiesFlags = make([]byte, n)
	e.PropertiesMaxCount = uint32(n)
}

// setFlag ORs flag into the property at index i.
func (e *Envelope) setFlag(n, i int, flag byte) {
	e.ensureFlags(n)
	e.PropertiesFlags[i] |= flag
}

func (e *Envelope) hasFlag(i int, flag byte) bool {
	return i < len(e.PropertiesFlags) && e.PropertiesFlags[i]&flag != 0
}

// ClearDirty drops all dirty marks, keeping projection marks.
func (e *Envelope) ClearDirty() {
	for i := range e.PropertiesFlags {
		e.PropertiesFlags[i] &^= FlagDirty
	}
	e.PropertyFlag &^= FlagDirty
}
