package notify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
}

func newRecorder() *recorder { return &recorder{ch: make(chan string, 16)} }

func (r *recorder) callback(view string, userData any) {
	r.mu.Lock()
	r.calls = append(r.calls, view+"/"+userData.(string))
	r.mu.Unlock()
	r.ch <- view
}

func (r *recorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case v := <-r.ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
		return ""
	}
}

func (r *recorder) quiet(t *testing.T) {
	t.Helper()
	select {
	case v := <-r.ch:
		t.Fatalf("unexpected notification for %s", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func setup(t *testing.T) (*Notifier, *Watcher) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "notify")
	n, err := NewNotifier(dir)
	require.NoError(t, err)
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return n, w
}

func TestGroup(t *testing.T) {
	assert.Equal(t, MarkerEvent, Group(record.ViewInstanceUTime))
	assert.Equal(t, MarkerTodo, Group(record.ViewTodo))
	assert.Equal(t, "", Group(record.ViewAlarm))
}

func TestNotifier_WritesVersion(t *testing.T) {
	dir := t.TempDir()
	n, err := NewNotifier(dir)
	require.NoError(t, err)
	require.NoError(t, n.Touch(7, []string{record.ViewEvent, record.ViewInstanceUTime, record.ViewAlarm}))

	b, err := os.ReadFile(filepath.Join(dir, MarkerEvent))
	require.NoError(t, err)
	assert.Equal(t, "7", string(b))
	_, err = os.Stat(filepath.Join(dir, MarkerBook))
	assert.True(t, os.IsNotExist(err))
}

func TestWatcher_DispatchesByGroup(t *testing.T) {
	n, w := setup(t)
	rec := newRecorder()
	require.NoError(t, w.Add(record.ViewEvent, rec.callback, "a"))

	require.NoError(t, n.Touch(1, []string{record.ViewTodo}))
	rec.quiet(t)

	require.NoError(t, n.Touch(2, []string{record.ViewEvent}))
	assert.Equal(t, record.ViewEvent, rec.wait(t))
}

func TestWatcher_DuplicateRejected(t *testing.T) {
	_, w := setup(t)
	rec := newRecorder()
	require.NoError(t, w.Add(record.ViewEvent, rec.callback, "a"))
	err := w.Add(record.ViewEvent, rec.callback, "a")
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
	require.NoError(t, w.Add(record.ViewEvent, rec.callback, "b"))
	require.NoError(t, w.Add(record.ViewTodo, rec.callback, "a"))

	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(w.Add(record.ViewAlarm, rec.callback, "a")))
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(w.Remove(record.ViewBook, rec.callback, "a")))
}

func TestWatcher_RejectsIncomparableUserData(t *testing.T) {
	_, w := setup(t)
	rec := newRecorder()
	require.NoError(t, w.Add(record.ViewEvent, rec.callback, "a"))

	var err error
	assert.NotPanics(t, func() { err = w.Add(record.ViewEvent, rec.callback, []int{1}) })
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
	assert.NotPanics(t, func() { err = w.Remove(record.ViewEvent, rec.callback, []int{1}) })
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))

	require.NoError(t, w.Remove(record.ViewEvent, rec.callback, "a"))
}

func TestWatcher_Remove(t *testing.T) {
	n, w := setup(t)
	rec := newRecorder()
	require.NoError(t, w.Add(record.ViewBook, rec.callback, "a"))
	require.NoError(t, w.Remove(record.ViewBook, rec.callback, "a"))

	require.NoError(t, n.Touch(1, []string{record.ViewBook}))
	rec.quiet(t)
}

func TestWatcher_HoldDefersUntilRelease(t *testing.T) {
	n, w := setup(t)
	rec := newRecorder()
	require.NoError(t, w.Add(record.ViewTodo, rec.callback, "a"))

	w.Hold()
	w.Hold()
	require.NoError(t, n.Touch(1, []string{record.ViewTodo}))
	require.NoError(t, n.Touch(2, []string{record.ViewTodo}))
	rec.quiet(t)

	w.Release()
	rec.quiet(t)
	w.Release()
	assert.Equal(t, record.ViewTodo, rec.wait(t))

	// Held changes coalesce into one dispatch; later writes may still be
	// in flight from the kernel, so only the first is asserted.
	rec.mu.Lock()
	assert.NotEmpty(t, rec.calls)
	rec.mu.Unlock()
}

func TestWatcher_CloseTwice(t *testing.T) {
	_, w := setup(t)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
