package wire

import (
	"database/sql"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/calerr"
)

func TestBuffer_ScalarsRoundTrip(t *testing.T) {
	w := NewBuffer(0)
	w.PutInt32(-7)
	w.PutUint32(math.MaxUint32)
	w.PutInt64(math.MinInt64)
	w.PutFloat64(37.5665)
	w.PutByte(0xAB)
	w.PutBool(true)

	r := NewReader(w.Bytes())
	i32, err := r.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i32)

	u32, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), u32)

	i64, err := r.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), i64)

	f, err := r.Float64()
	require.NoError(t, err)
	assert.Equal(t, 37.5665, f)

	b, err := r.Byte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), b)

	ok, err := r.Bool()
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 0, r.Remaining())
}

func TestBuffer_LittleEndianLayout(t *testing.T) {
	w := NewBuffer(0)
	w.PutInt32(1)
	assert.Equal(t, []byte{1, 0, 0, 0}, w.Bytes())
}

func TestString_AbsentVersusEmpty(t *testing.T) {
	w := NewBuffer(0)
	w.PutString(sql.NullString{})
	w.PutString(sql.NullString{Valid: true})
	w.PutString(sql.NullString{String: "meeting", Valid: true})

	// Absent is a bare -1 length; empty is a zero length.
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, w.Bytes()[:4])
	assert.Equal(t, []byte{0, 0, 0, 0}, w.Bytes()[4:8])

	r := NewReader(w.Bytes())
	s, err := r.String()
	require.NoError(t, err)
	assert.False(t, s.Valid)

	s, err = r.String()
	require.NoError(t, err)
	assert.True(t, s.Valid)
	assert.Equal(t, "", s.String)

	s, err = r.String()
	require.NoError(t, err)
	assert.Equal(t, sql.NullString{String: "meeting", Valid: true}, s)
}

func TestReader_PastEndIsNoData(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.Int32()
	require.Error(t, err)
	assert.True(t, calerr.IsNoData(err))

	// The cursor does not move on failure.
	assert.Equal(t, 2, r.Remaining())
}

func TestReader_StringLengthBeyondInput(t *testing.T) {
	w := NewBuffer(0)
	w.PutInt32(100)
	w.PutRaw([]byte("short"))

	_, err := NewReader(w.Bytes()).String()
	assert.True(t, calerr.IsNoData(err))
}

func TestReader_NegativeStringLength(t *testing.T) {
	w := NewBuffer(0)
	w.PutInt32(-5)

	_, err := NewReader(w.Bytes()).String()
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestBytes_CopyAndNil(t *testing.T) {
	w := NewBuffer(0)
	w.PutBytes(nil)
	w.PutBytes([]byte{9, 8})

	src := w.Bytes()
	r := NewReader(src)
	p, err := r.Bytes()
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = r.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8}, p)

	src[len(src)-1] = 0
	assert.Equal(t, []byte{9, 8}, p, "decoded bytes must not alias the input")
}

type sample struct {
	id    int32
	name  sql.NullString
	tags  []string
	ratio float64
}

func (s *sample) fields(st Stream) {
	st.Int32(&s.id)
	st.String(&s.name)
	n := len(s.tags)
	st.Count(&n, 4)
	if st.Decoding() && st.Err() == nil {
		s.tags = make([]string, n)
	}
	for i := 0; i < n && st.Err() == nil; i++ {
		st.Text(&s.tags[i])
	}
	st.Float64(&s.ratio)
}

func TestStream_Symmetry(t *testing.T) {
	in := &sample{
		id:    42,
		name:  sql.NullString{String: "team sync", Valid: true},
		tags:  []string{"work", ""},
		ratio: 0.25,
	}
	b, err := Encode(in.fields)
	require.NoError(t, err)

	out := &sample{}
	require.NoError(t, Decode(b, out.fields))
	assert.Equal(t, in, out)
}

func TestStream_TruncationAlwaysFails(t *testing.T) {
	in := &sample{id: 1, tags: []string{"a", "bc"}, ratio: 1}
	b, err := Encode(in.fields)
	require.NoError(t, err)

	for cut := 0; cut < len(b); cut++ {
		out := &sample{}
		err := Decode(b[:cut], out.fields)
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestStream_CountGuardsAllocation(t *testing.T) {
	w := NewBuffer(0)
	w.PutInt32(1 << 30)

	var n int
	dec := NewDecoder(NewReader(w.Bytes()))
	dec.Count(&n, 4)
	assert.Equal(t, calerr.OutOfMemory, calerr.CodeOf(dec.Err()))
	assert.Zero(t, n)
}

func TestDecoder_TextRejectsAbsent(t *testing.T) {
	w := NewBuffer(0)
	w.PutString(sql.NullString{})

	var s string
	err := Decode(w.Bytes(), func(st Stream) { st.Text(&s) })
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestDecoder_StickyError(t *testing.T) {
	var a, b int32
	dec := NewDecoder(NewReader([]byte{1, 0, 0}))
	dec.Int32(&a)
	require.Error(t, dec.Err())
	first := dec.Err()

	dec.Int32(&b)
	assert.Same(t, first, dec.Err())
}

func TestBufferAndReader_Documented(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "wire.go", nil, parser.ParseComments)
	require.NoError(t, err)
	for _, d := range f.Decls {
		fn, ok := d.(*ast.FuncDecl)
		if !ok || !fn.Name.IsExported() {
			continue
		}
		assert.NotNil(t, fn.Doc, "%s has no doc comment", fn.Name.Name)
	}
}
