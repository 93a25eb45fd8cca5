package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/query"
	"github.com/roach88/calstore/internal/record"
)

func seedEvents(t *testing.T, s *Store) int32 {
	t.Helper()
	book := createTestBook(t, s, "b")
	for i, summary := range []string{"standup", "lunch", "standup review", "Retro"} {
		e := createTestEvent(book, summary, int64(1000*(i+1)))
		e.Priority = int32(i)
		e.Location = record.Str("room")
		_, _, err := s.Insert(context.Background(), e)
		require.NoError(t, err)
	}
	return book
}

func summaries(rs []record.Record) []string {
	out := []string{}
	for _, r := range rs {
		out = append(out, r.(*record.Event).Summary.String)
	}
	return out
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Get(context.Background(), record.ViewEvent, 1)
	assert.Equal(t, calerr.RecordNotFound, calerr.CodeOf(err))

	_, err = s.Get(context.Background(), record.ViewUpdatedInfo, 1)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestGetAll_OffsetAndLimit(t *testing.T) {
	s := createTestStore(t)
	seedEvents(t, s)
	ctx := context.Background()

	all, err := s.GetAll(ctx, record.ViewEvent, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"standup", "lunch", "standup review", "Retro"}, summaries(all))

	page, err := s.GetAll(ctx, record.ViewEvent, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"lunch", "standup review"}, summaries(page))

	_, err = s.GetAll(ctx, record.ViewEvent, -1, 0)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestQuery_FilterAndSort(t *testing.T) {
	s := createTestStore(t)
	seedEvents(t, s)
	ctx := context.Background()

	q := query.New(record.ViewEvent).
		SetFilter(query.Where(record.ViewEvent,
			query.MatchString(record.EventSummary, query.MatchStartsWith, "standup")).
			Or(query.MatchString(record.EventSummary, query.MatchFullString, "retro"))).
		SortBy(record.EventPriority, false)

	got, err := s.Query(ctx, q, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Retro", "standup review", "standup"}, summaries(got))

	n, err := s.CountQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestQuery_TimeRange(t *testing.T) {
	s := createTestStore(t)
	seedEvents(t, s)

	start, err := s.GetAll(context.Background(), record.ViewEvent, 1, 1)
	require.NoError(t, err)
	cut := start[0].(*record.Event).Start

	q := query.New(record.ViewEvent).SetFilter(
		query.Where(record.ViewEvent, query.MatchTime(record.EventStart, query.MatchLessOrEqual, cut)))
	got, err := s.Query(context.Background(), q, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"standup", "lunch"}, summaries(got))
}

func TestQuery_Projection(t *testing.T) {
	s := createTestStore(t)
	seedEvents(t, s)

	q := query.New(record.ViewEvent).Project(record.EventSummary)
	got, err := s.Query(context.Background(), q, 0, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	ev := got[0].(*record.Event)
	assert.Equal(t, "standup", ev.Summary.String)
	assert.False(t, ev.Location.Valid)
	assert.NotZero(t, ev.ID)
	assert.True(t, record.IsProjected(ev, record.EventSummary))
	assert.False(t, record.IsProjected(ev, record.EventLocation))
}

func TestQuery_DistinctProjection(t *testing.T) {
	s := createTestStore(t)
	seedEvents(t, s)

	q := query.New(record.ViewEvent).Project(record.EventLocation)
	q.Distinct = true
	got, err := s.Query(context.Background(), q, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	srch, ok := got[0].(*record.Search)
	require.True(t, ok)
	v, ok := srch.Lookup(record.EventLocation)
	require.True(t, ok)
	assert.Equal(t, "room", v.Str.String)

	got, err = s.Query(context.Background(), q, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuery_InvalidFilter(t *testing.T) {
	s := createTestStore(t)
	q := query.New(record.ViewEvent).SetFilter(
		query.Where(record.ViewEvent, query.MatchInt(record.TodoProgress, query.MatchEqual, 1)))
	_, err := s.Query(context.Background(), q, 0, 0)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))

	_, err = s.Query(context.Background(), nil, 0, 0)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestQuery_NormalizedStrings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	book := createTestBook(t, s, "b")
	_, _, err := s.Insert(ctx, createTestEvent(book, "Cafe\u0301", 0))
	require.NoError(t, err)

	q := query.New(record.ViewEvent).SetFilter(
		query.Where(record.ViewEvent, query.MatchString(record.EventSummary, query.MatchExactly, "Caf\u00e9")))
	n, err := s.CountQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
