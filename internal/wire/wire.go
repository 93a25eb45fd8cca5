// Package wire implements the positional binary encoding used on the
// calendar store's IPC channel.
//
// A message is an untyped, ordered concatenation of fields. Nothing on the
// wire names a field, so the reader must request exactly the sequence the
// writer produced. To keep both sides in lockstep, higher layers describe
// their layout once as a walk over a Stream; the Encoder and Decoder
// implementations of Stream then produce mirror-image traffic.
//
// Scalars are fixed width and little-endian. Strings and byte slices carry
// an int32 length prefix; a length of -1 marks an absent string, which is
// distinct from the empty string.
package wire

import (
	"database/sql"
	"encoding/binary"
	"math"

	"github.com/roach88/calstore/internal/calerr"
)

// AbsentLength is the length prefix written for an absent string.
const AbsentLength = -1

// Buffer is an append-only encoding buffer.
type Buffer struct {
	b []byte
}

// NewBuffer returns a buffer with room for sizeHint bytes.
func NewBuffer(sizeHint int) *Buffer {
	return &Buffer{b: make([]byte, 0, sizeHint)}
}

// Bytes returns the encoded content. The slice aliases the buffer.
func (w *Buffer) Bytes() []byte { return w.b }

// Len returns the number of encoded bytes.
func (w *Buffer) Len() int { return len(w.b) }

// PutInt32 appends a little-endian int32.
func (w *Buffer) PutInt32(v int32) {
	w.b = binary.LittleEndian.AppendUint32(w.b, uint32(v))
}

// PutUint32 appends a little-endian uint32.
func (w *Buffer) PutUint32(v uint32) {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
}

// PutInt64 appends a little-endian int64.
func (w *Buffer) PutInt64(v int64) {
	w.b = binary.LittleEndian.AppendUint64(w.b, uint64(v))
}

// PutFloat64 appends the IEEE 754 bits of v.
func (w *Buffer) PutFloat64(v float64) {
	w.b = binary.LittleEndian.AppendUint64(w.b, math.Float64bits(v))
}

// PutByte appends a single byte.
func (w *Buffer) PutByte(v byte) {
	w.b = append(w.b, v)
}

// PutBool appends v as one byte, 1 or 0.
func (w *Buffer) PutBool(v bool) {
	if v {
		w.b = append(w.b, 1)
		return
	}
	w.b = append(w.b, 0)
}

// PutString appends a nullable string. Invalid strings are written with the
// absent sentinel.
func (w *Buffer) PutString(s sql.NullString) {
	if !s.Valid {
		w.PutInt32(AbsentLength)
		return
	}
	w.PutText(s.String)
}

// PutText appends a string that is always present.
func (w *Buffer) PutText(s string) {
	w.PutInt32(int32(len(s)))
	w.b = append(w.b, s...)
}

// PutBytes appends a length-prefixed byte slice. A nil slice is written as
// absent.
func (w *Buffer) PutBytes(p []byte) {
	if p == nil {
		w.PutInt32(AbsentLength)
		return
	}
	w.PutInt32(int32(len(p)))
	w.b = append(w.b, p...)
}

// PutRaw appends bytes without a length prefix.
func (w *Buffer) PutRaw(p []byte) {
	w.b = append(w.b, p...)
}

// Reader decodes fields from a byte slice, advancing an implicit cursor.
type Reader struct {
	b   []byte
	off int
}

// NewReader returns a Reader over b. The Reader does not copy b.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.b) - r.off }

// Rest returns the unread bytes without consuming them.
func (r *Reader) Rest() []byte { return r.b[r.off:] }

func (r *Reader) take(n int, op string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, calerr.New(calerr.NoData, op, "need %d bytes, have %d", n, r.Remaining())
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p, nil
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() (int32, error) {
	p, err := r.take(4, "read int32")
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(p)), nil
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	p, err := r.take(4, "read uint32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// Int64 reads a little-endian int64.
func (r *Reader) Int64() (int64, error) {
	p, err := r.take(8, "read int64")
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(p)), nil
}

// Float64 reads an IEEE 754 double.
func (r *Reader) Float64() (float64, error) {
	p, err := r.take(8, "read double")
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	p, err := r.take(1, "read byte")
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// Bool reads one byte; any non-zero value is true.
func (r *Reader) Bool() (bool, error) {
	v, err := r.Byte()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// String reads a nullable string. The absent sentinel yields Valid=false.
func (r *Reader) String() (sql.NullString, error) {
	n, err := r.Int32()
	if err != nil {
		return sql.NullString{}, err
	}
	if n == AbsentLength {
		return sql.NullString{}, nil
	}
	if n < 0 {
		return sql.NullString{}, calerr.New(calerr.InvalidParameter, "read string", "bad length %d", n)
	}
	p, err := r.take(int(n), "read string")
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(p), Valid: true}, nil
}

// Bytes reads a length-prefixed byte slice. The result is a copy.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Int32()
	if err != nil {
		return nil, err
	}
	if n == AbsentLength {
		return nil, nil
	}
	if n < 0 {
		return nil, calerr.New(calerr.InvalidParameter, "read bytes", "bad length %d", n)
	}
	p, err := r.take(int(n), "read bytes")
	if err != nil {
		return nil, err
	}
	return append([]byte{}, p...), nil
}
