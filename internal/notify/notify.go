// Package notify tells local clients that a group of views changed.
//
// The server keeps one marker file per view group (books, events, todos)
// in a shared directory and rewrites it after every commit that touched the
// group. Clients watch the directory and run the callbacks registered for
// the group's views.
package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/roach88/calstore/internal/record"
)

// Marker file names, one per view group.
const (
	MarkerBook  = "book"
	MarkerEvent = "event"
	MarkerTodo  = "todo"
)

var groups = map[string]string{
	record.ViewBook:                      MarkerBook,
	record.ViewEvent:                     MarkerEvent,
	record.ViewInstanceUTime:             MarkerEvent,
	record.ViewInstanceLocalTime:         MarkerEvent,
	record.ViewInstanceUTimeExtended:     MarkerEvent,
	record.ViewInstanceLocalTimeExtended: MarkerEvent,
	record.ViewTodo:                      MarkerTodo,
}

// Group returns the marker that announces changes of view, or "" when
// changes of view are not announced.
func Group(view string) string { return groups[view] }

// Notifier rewrites marker files after commits.
type Notifier struct {
	dir string
}

// NewNotifier creates dir if needed and returns a Notifier writing there.
func NewNotifier(dir string) (*Notifier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("notify dir: %w", err)
	}
	return &Notifier{dir: dir}, nil
}

// Touch announces that views changed at version. Each marker is written at
// most once per call.
func (n *Notifier) Touch(version int64, views []string) error {
	seen := make(map[string]bool, 3)
	for _, v := range views {
		g := Group(v)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		path := filepath.Join(n.dir, g)
		if err := os.WriteFile(path, []byte(strconv.FormatInt(version, 10)), 0o644); err != nil {
			return fmt.Errorf("touch %s: %w", g, err)
		}
	}
	return nil
}
