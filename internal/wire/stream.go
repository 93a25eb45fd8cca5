package wire

import (
	"database/sql"

	"github.com/roach88/calstore/internal/calerr"
)

// Stream walks a message layout in either direction.
//
// A layout is written once as a sequence of Stream calls taking pointers to
// the fields. An Encoder reads through the pointers and appends; a Decoder
// fills them from the input. After the first decode failure every later call
// is a no-op and Err reports that failure.
type Stream interface {
	Int32(v *int32)
	Uint32(v *uint32)
	Int64(v *int64)
	Float64(v *float64)
	Byte(v *byte)
	Bool(v *bool)
	String(v *sql.NullString)
	Text(v *string)
	Bytes(v *[]byte)

	// Count encodes or decodes a repetition count. Decoding rejects negative
	// counts and counts that could not possibly fit in the remaining input,
	// given that each element occupies at least minElemSize bytes.
	Count(n *int, minElemSize int)

	// Decoding reports whether the stream fills fields from input.
	Decoding() bool

	// Fail records err as the stream's error if none is set yet.
	Fail(err error)

	// Err returns the first failure, if any.
	Err() error
}

// Encoder implements Stream over a Buffer. Encoding never fails on its own;
// Fail lets a layout reject an unencodable value.
type Encoder struct {
	W   *Buffer
	err error
}

// NewEncoder returns an Encoder appending to w.
func NewEncoder(w *Buffer) *Encoder { return &Encoder{W: w} }

func (e *Encoder) Int32(v *int32)           { e.W.PutInt32(*v) }
func (e *Encoder) Uint32(v *uint32)         { e.W.PutUint32(*v) }
func (e *Encoder) Int64(v *int64)           { e.W.PutInt64(*v) }
func (e *Encoder) Float64(v *float64)       { e.W.PutFloat64(*v) }
func (e *Encoder) Byte(v *byte)             { e.W.PutByte(*v) }
func (e *Encoder) Bool(v *bool)             { e.W.PutBool(*v) }
func (e *Encoder) String(v *sql.NullString) { e.W.PutString(*v) }
func (e *Encoder) Text(v *string)           { e.W.PutText(*v) }
func (e *Encoder) Bytes(v *[]byte)          { e.W.PutBytes(*v) }
func (e *Encoder) Count(n *int, _ int)      { e.W.PutInt32(int32(*n)) }
func (e *Encoder) Decoding() bool           { return false }
func (e *Encoder) Err() error               { return e.err }

func (e *Encoder) Fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// Decoder implements Stream over a Reader.
type Decoder struct {
	R   *Reader
	err error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r *Reader) *Decoder { return &Decoder{R: r} }

func (d *Decoder) Decoding() bool { return true }
func (d *Decoder) Err() error     { return d.err }

func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) Int32(v *int32) {
	if d.err != nil {
		return
	}
	*v, d.err = d.R.Int32()
}

func (d *Decoder) Uint32(v *uint32) {
	if d.err != nil {
		return
	}
	*v, d.err = d.R.Uint32()
}

func (d *Decoder) Int64(v *int64) {
	if d.err != nil {
		return
	}
	*v, d.err = d.R.Int64()
}

func (d *Decoder) Float64(v *float64) {
	if d.err != nil {
		return
	}
	*v, d.err = d.R.Float64()
}

func (d *Decoder) Byte(v *byte) {
	if d.err != nil {
		return
	}
	*v, d.err = d.R.Byte()
}

func (d *Decoder) Bool(v *bool) {
	if d.err != nil {
		return
	}
	*v, d.err = d.R.Bool()
}

func (d *Decoder) String(v *sql.NullString) {
	if d.err != nil {
		return
	}
	*v, d.err = d.R.String()
}

// Text decodes a string that must be present.
func (d *Decoder) Text(v *string) {
	if d.err != nil {
		return
	}
	s, err := d.R.String()
	if err != nil {
		d.err = err
		return
	}
	if !s.Valid {
		d.err = calerr.New(calerr.InvalidParameter, "read text", "required string is absent")
		return
	}
	*v = s.String
}

func (d *Decoder) Bytes(v *[]byte) {
	if d.err != nil {
		return
	}
	*v, d.err = d.R.Bytes()
}

func (d *Decoder) Count(n *int, minElemSize int) {
	if d.err != nil {
		return
	}
	c, err := d.R.Int32()
	if err != nil {
		d.err = err
		return
	}
	if c < 0 {
		d.err = calerr.New(calerr.InvalidParameter, "read count", "negative count %d", c)
		return
	}
	if minElemSize > 0 && int(c) > d.R.Remaining()/minElemSize {
		d.err = calerr.New(calerr.OutOfMemory, "read count",
			"count %d exceeds remaining input of %d bytes", c, d.R.Remaining())
		return
	}
	*n = int(c)
}

// Encode runs a layout through a fresh Encoder and returns the bytes.
func Encode(layout func(Stream)) ([]byte, error) {
	enc := NewEncoder(NewBuffer(64))
	layout(enc)
	if err := enc.Err(); err != nil {
		return nil, err
	}
	return enc.W.Bytes(), nil
}

// Decode runs a layout through a Decoder over b. Trailing bytes are allowed;
// callers that need an exact fit check the Reader themselves.
func Decode(b []byte, layout func(Stream)) error {
	dec := NewDecoder(NewReader(b))
	layout(dec)
	return dec.Err()
}
