package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/store"
)

// Epoch is the instant every test store starts at.
var Epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// OpenStore opens a store in a temporary directory, stamped by clock and
// assigning sequential UIDs. It is closed when the test ends.
func OpenStore(t testing.TB, clock *ManualClock) *store.Store {
	t.Helper()
	if clock == nil {
		clock = NewManualClock(Epoch)
	}
	s, err := store.Open(filepath.Join(t.TempDir(), "calstore.db"),
		store.WithClock(clock.Now),
		store.WithUIDFunc(UIDs("uid")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
