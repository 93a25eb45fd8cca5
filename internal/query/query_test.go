package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
)

func nestedQuery() *Query {
	inner := Where(record.ViewEvent, MatchInt(record.EventPriority, MatchGreaterOrEqual, 2)).
		Or(MatchInt(record.EventBusyStatus, MatchEqual, 1))

	f := Where(record.ViewEvent, MatchString(record.EventSummary, MatchContains, "standup")).
		And(inner).
		And(MatchTime(record.EventStart, MatchLessThan, record.UTime(time.Unix(1709283600, 0)))).
		And(MatchDouble(record.EventLatitude, MatchGreaterThan, 48.5)).
		Or(MatchInt64(record.EventLastModified, MatchNotEqual, 0))

	return New(record.ViewEvent).
		SetFilter(f).
		Project(record.EventSummary, record.EventStart).
		SortBy(record.EventStart, false)
}

func TestComposite_OperatorInvariantByConstruction(t *testing.T) {
	c := NewComposite(record.ViewEvent)
	assert.Empty(t, c.Ops)

	c.And(MatchString(record.EventSummary, MatchExists, ""))
	assert.Len(t, c.Children, 1)
	assert.Empty(t, c.Ops)

	c.Or(MatchInt(record.EventStatus, MatchEqual, 1)).And(MatchInt(record.EventPriority, MatchEqual, 1))
	assert.Len(t, c.Children, 3)
	assert.Equal(t, []Op{OpOr, OpAnd}, c.Ops)
}

func TestQuery_RoundTrip(t *testing.T) {
	q := nestedQuery()
	b, err := Marshal(q)
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, q, got)
}

func TestQuery_RoundTripWithoutFilter(t *testing.T) {
	q := New(record.ViewTodo)
	q.Distinct = true

	b, err := Marshal(q)
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, q, got)
	assert.Nil(t, got.Filter)
}

func TestQuery_RoundTripEmptyComposite(t *testing.T) {
	q := New(record.ViewEvent).SetFilter(NewComposite(record.ViewEvent))
	b, err := Marshal(q)
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, q, got)
}

func TestUnmarshal_TruncationNeverReturnsAQuery(t *testing.T) {
	b, err := Marshal(nestedQuery())
	require.NoError(t, err)
	for n := 0; n < len(b); n++ {
		got, err := Unmarshal(b[:n])
		require.Error(t, err, "truncated at %d", n)
		assert.Nil(t, got)
	}
}

func TestUnmarshal_RejectsUnbalancedOperators(t *testing.T) {
	f := Where(record.ViewEvent, MatchInt(record.EventStatus, MatchEqual, 1))
	f.Children = append(f.Children, MatchInt(record.EventStatus, MatchEqual, 2))

	_, err := MarshalFilter(f)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))

	// Forge the same tree on the wire by encoding a balanced one and
	// dropping its operator.
	f.Ops = []Op{OpAnd}
	b, err := MarshalFilter(f)
	require.NoError(t, err)
	b = b[:len(b)-8]
	b = append(b, 0, 0, 0, 0)

	got, err := UnmarshalFilter(b)
	assert.Nil(t, got)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestUnmarshal_UnknownTag(t *testing.T) {
	got, err := UnmarshalFilter([]byte{9, 0, 0, 0})
	assert.Nil(t, got)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestMarshal_DepthLimit(t *testing.T) {
	var f Filter = MatchInt(record.EventStatus, MatchEqual, 1)
	for i := 0; i <= maxDepth; i++ {
		f = Where(record.ViewEvent, f)
	}
	b, err := MarshalFilter(f)
	require.Error(t, err)
	assert.Nil(t, b)
}

func TestFilter_RoundTripIsomorphic(t *testing.T) {
	f := nestedQuery().Filter
	b, err := MarshalFilter(f)
	require.NoError(t, err)

	got, err := UnmarshalFilter(b)
	require.NoError(t, err)
	c := got.(*Composite)
	assert.Equal(t, []Op{OpAnd, OpAnd, OpAnd, OpOr}, c.Ops)
	require.Len(t, c.Children, 5)
	assert.IsType(t, &Composite{}, c.Children[1])
	assert.Equal(t, f, got)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(nestedQuery()))

	tests := []struct {
		name string
		q    *Query
	}{
		{"unknown view", New("calstore.view.nope")},
		{"foreign property", New(record.ViewEvent).SetFilter(
			Where(record.ViewEvent, MatchTime(record.TodoDue, MatchLessThan, record.CalTime{})))},
		{"operand type", New(record.ViewEvent).SetFilter(
			Where(record.ViewEvent, &Leaf{Property: record.EventSummary, Match: MatchExactly, Value: record.IntValue(1)}))},
		{"string match on int", New(record.ViewEvent).SetFilter(
			Where(record.ViewEvent, MatchInt(record.EventStatus, MatchContains, 1)))},
		{"numeric match on string", New(record.ViewEvent).SetFilter(
			Where(record.ViewEvent, MatchString(record.EventSummary, MatchGreaterThan, "a")))},
		{"composite view", New(record.ViewEvent).SetFilter(
			Where(record.ViewTodo, MatchString(record.TodoSummary, MatchExactly, "a")))},
		{"projection", New(record.ViewEvent).Project(record.TodoDue)},
		{"sort", New(record.ViewEvent).SortBy(record.AlarmTick, true)},
		{"unbalanced", New(record.ViewEvent).SetFilter(&Composite{View: record.ViewEvent, Ops: []Op{OpAnd}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.q)
			assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
		})
	}
}

func TestMatch_Kinds(t *testing.T) {
	assert.True(t, MatchEndsWith.IsStringMatch())
	assert.False(t, MatchEndsWith.IsNumericMatch())
	assert.True(t, MatchIsNull.IsNumericMatch())
	assert.Equal(t, ">=", MatchGreaterOrEqual.String())
}
