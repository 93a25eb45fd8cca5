package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/record"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temporary directory, with a fixed
// clock and sequential UIDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	n := 0
	s, err := Open(path,
		WithClock(func() time.Time { return testNow }),
		WithUIDFunc(func() string { n++; return fmt.Sprintf("uid-%d", n) }),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBook inserts a book and returns its id.
func createTestBook(t *testing.T, s *Store, name string) int32 {
	t.Helper()
	b := record.NewBook()
	b.Name = record.Str(name)
	id, _, err := s.Insert(context.Background(), b)
	require.NoError(t, err)
	return id
}

// createTestEvent builds an event in book starting at unix second start.
func createTestEvent(book int32, summary string, start int64) *record.Event {
	e := record.NewEvent()
	e.BookID = book
	e.Summary = record.Str(summary)
	e.Start = record.UTime(time.Unix(start, 0))
	e.End = record.UTime(time.Unix(start+3600, 0))
	return e
}
