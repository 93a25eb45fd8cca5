package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/calerr"
)

func TestList_Cursor(t *testing.T) {
	a, b, c := NewAlarm(), NewAlarm(), NewAlarm()
	a.ID, b.ID, c.ID = 1, 2, 3
	l := NewList(a, b)
	require.NoError(t, l.Add(c))

	cur, err := l.Current()
	require.NoError(t, err)
	assert.Same(t, a, cur)

	require.NoError(t, l.Next())
	require.NoError(t, l.Next())
	assert.True(t, calerr.IsNoData(l.Next()))

	require.NoError(t, l.Prev())
	cur, _ = l.Current()
	assert.Same(t, b, cur)

	require.NoError(t, l.Remove(b))
	cur, _ = l.Current()
	assert.Same(t, c, cur)
	assert.Equal(t, 2, l.Len())

	l.First()
	assert.True(t, calerr.IsNoData(l.Prev()))
	assert.True(t, calerr.IsNoData(l.Remove(b)))
}

func TestList_AddNil(t *testing.T) {
	var e *Event
	assert.Error(t, NewList().Add(e))
}

func TestList_EmptyCurrent(t *testing.T) {
	_, err := NewList().Current()
	assert.True(t, calerr.IsNoData(err))
}

func TestList_Take(t *testing.T) {
	l := NewList(NewEvent(), NewTodo())
	got := l.Take()
	assert.Len(t, got, 2)
	assert.Equal(t, 0, l.Len())
}

func TestList_RoundTripPreservesOrderAndTypes(t *testing.T) {
	l := NewList()
	for _, r := range sampleRecords(t) {
		require.NoError(t, l.Add(r))
	}

	b, err := MarshalList(l)
	require.NoError(t, err)

	got, err := UnmarshalList(b)
	require.NoError(t, err)
	require.Equal(t, l.Len(), got.Len())
	for i, r := range l.Records() {
		assert.Equal(t, r, got.Records()[i])
	}
}

func TestList_EmptyRoundTrip(t *testing.T) {
	b, err := MarshalList(NewList())
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)

	got, err := UnmarshalList(b)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestList_TruncationAndHugeCount(t *testing.T) {
	b, err := MarshalList(NewList(sampleEvent(), NewTodo()))
	require.NoError(t, err)
	for n := 0; n < len(b); n++ {
		got, err := UnmarshalList(b[:n])
		assert.Error(t, err)
		assert.Nil(t, got)
	}

	_, err = UnmarshalList([]byte{0xff, 0xff, 0xff, 0x7f})
	assert.Equal(t, calerr.OutOfMemory, calerr.CodeOf(err))

	_, err = UnmarshalList([]byte{0xff, 0xff, 0xff, 0xff})
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}
