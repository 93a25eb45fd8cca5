package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/testutil"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Call: "insert_record", UID: 1000, Status: "NONE"},
		{Seq: 2, Call: "insert_record", UID: 2000, Status: "PERMISSION_DENIED"},
		{Seq: 3, Call: "update_record", UID: 1000, Status: "NONE"},
		{Seq: 4, Call: "get_changes_by_version", UID: 1000, Status: "NONE"},
		{Seq: 5, Call: "delete_record", UID: 1000, Status: "NONE"},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Call: "update_record"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Call: "insert_record", Status: "PERMISSION_DENIED"}))

	err := assertTraceContains(trace, Assertion{Call: "update_record", Status: "DB_FAILED"})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "update_record with status DB_FAILED", aerr.Expected)
	assert.Contains(t, err.Error(), "Full trace:")
	assert.Contains(t, err.Error(), "[2] uid=2000 insert_record")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Calls: []string{"insert_record", "update_record", "delete_record"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Calls: []string{"insert_record", "insert_record"}}))

	err := assertTraceOrder(trace, Assertion{Calls: []string{"delete_record", "update_record"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update_record missing or out of order")

	err = assertTraceOrder(trace, Assertion{Calls: []string{"insert_record", "insert_record", "insert_record"}})
	assert.Error(t, err)
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Call: "insert_record", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Call: "clean_after_sync", Count: 0}))

	err := assertTraceCount(trace, Assertion{Call: "delete_record", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestAssertFinalStateAndCount(t *testing.T) {
	ctx := context.Background()
	st := testutil.OpenStore(t, nil)

	for _, name := range []string{"Home", "Work"} {
		b := record.NewBook()
		b.Name = record.Str(name)
		_, _, err := st.Insert(ctx, b)
		require.NoError(t, err)
	}

	assert.NoError(t, assertFinalCount(ctx, st, Assertion{View: "book", Count: 2}))
	assert.Error(t, assertFinalCount(ctx, st, Assertion{View: "book", Count: 1}))
	assert.Error(t, assertFinalCount(ctx, st, Assertion{View: "widget", Count: 0}))

	assert.NoError(t, assertFinalState(ctx, st, Assertion{
		View:   "book",
		Where:  map[string]any{"name": "Work"},
		Expect: map[string]any{"id": 2, "uid": "uid-2"},
	}))

	err := assertFinalState(ctx, st, Assertion{
		View:   "book",
		Where:  map[string]any{"name": "Work"},
		Expect: map[string]any{"id": 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "final_state")

	err = assertFinalState(ctx, st, Assertion{
		View:   "book",
		Where:  map[string]any{"name": "Play"},
		Expect: map[string]any{"id": 3},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record not found")
}

func TestEvaluateAssertions_CollectsFailures(t *testing.T) {
	ctx := context.Background()
	st := testutil.OpenStore(t, nil)

	failures := evaluateAssertions(ctx, st, sampleTrace(), []Assertion{
		{Type: AssertTraceCount, Call: "insert_record", Count: 2},
		{Type: AssertTraceContains, Call: "replace_record"},
		{Type: AssertFinalCount, View: "event", Count: 1},
	})
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "assertions[1]")
	assert.Contains(t, failures[1], "assertions[2]")
}
