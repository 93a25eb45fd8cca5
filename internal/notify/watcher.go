package notify

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/calstore/internal/calerr"
)

// Callback receives the view a registration was made for. userData is the
// value given at registration.
type Callback func(view string, userData any)

type registration struct {
	view     string
	fn       uintptr
	cb       Callback
	userData any
}

// Watcher dispatches marker changes to registered callbacks. A
// {callback, userData} pair is registered at most once per view; userData
// must be comparable.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu      sync.Mutex
	regs    []registration
	holds   int
	pending map[string]bool

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// NewWatcher starts watching the marker directory dir, creating it if
// needed.
func NewWatcher(dir string) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("notify dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{fsw: fsw, pending: make(map[string]bool), done: make(chan struct{})}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Add registers cb for changes of view.
func (w *Watcher) Add(view string, cb Callback, userData any) error {
	if cb == nil || Group(view) == "" {
		return calerr.New(calerr.InvalidParameter, "add watch", "cannot watch %q", view)
	}
	if !validUserData(userData) {
		return calerr.New(calerr.InvalidParameter, "add watch", "user data of type %T is not comparable", userData)
	}
	r := registration{view: view, fn: reflect.ValueOf(cb).Pointer(), cb: cb, userData: userData}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.find(r) >= 0 {
		return calerr.New(calerr.InvalidParameter, "add watch", "callback already registered for %s", view)
	}
	w.regs = append(w.regs, r)
	return nil
}

// Remove drops the registration made with the same arguments.
func (w *Watcher) Remove(view string, cb Callback, userData any) error {
	if cb == nil {
		return calerr.New(calerr.InvalidParameter, "remove watch", "nil callback")
	}
	if !validUserData(userData) {
		return calerr.New(calerr.InvalidParameter, "remove watch", "user data of type %T is not comparable", userData)
	}
	r := registration{view: view, fn: reflect.ValueOf(cb).Pointer(), userData: userData}

	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.find(r)
	if i < 0 {
		return calerr.New(calerr.InvalidParameter, "remove watch", "callback not registered for %s", view)
	}
	w.regs = append(w.regs[:i], w.regs[i+1:]...)
	return nil
}

func validUserData(v any) bool {
	return v == nil || reflect.ValueOf(v).Comparable()
}

func (w *Watcher) find(r registration) int {
	for i, have := range w.regs {
		if have.view == r.view && have.fn == r.fn && have.userData == r.userData {
			return i
		}
	}
	return -1
}

// Hold defers dispatch until the matching Release. Holds nest; changes seen
// while held are coalesced per group.
func (w *Watcher) Hold() {
	w.mu.Lock()
	w.holds++
	w.mu.Unlock()
}

// Release ends a Hold and, when no holds remain, dispatches what arrived
// meanwhile.
func (w *Watcher) Release() {
	w.mu.Lock()
	if w.holds > 0 {
		w.holds--
	}
	var flush []string
	if w.holds == 0 {
		for _, g := range []string{MarkerBook, MarkerEvent, MarkerTodo} {
			if w.pending[g] {
				flush = append(flush, g)
			}
		}
		clear(w.pending)
	}
	w.mu.Unlock()

	for _, g := range flush {
		w.dispatch(g)
	}
}

// Close stops the watcher. Callbacks are not run after Close returns.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fsw.Close()
		w.wg.Wait()
	})
	return w.closeErr
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			g := filepath.Base(ev.Name)
			if g != MarkerBook && g != MarkerEvent && g != MarkerTodo {
				continue
			}
			w.mu.Lock()
			if w.holds > 0 {
				w.pending[g] = true
				w.mu.Unlock()
				continue
			}
			w.mu.Unlock()
			w.dispatch(g)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("notify watcher error", "error", err)
		}
	}
}

func (w *Watcher) dispatch(group string) {
	w.mu.Lock()
	var due []registration
	for _, r := range w.regs {
		if Group(r.view) == group {
			due = append(due, r)
		}
	}
	w.mu.Unlock()

	for _, r := range due {
		select {
		case <-w.done:
			return
		default:
		}
		r.cb(r.view, r.userData)
	}
}
