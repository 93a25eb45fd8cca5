// Package client is the calstore client library.
//
// A Dialer owns the process-wide shared channel to the daemon. Handles from
// Connect share it by reference count; its round trips are serialized by a
// call mutex held only around the transport exchange. ConnectExclusive
// returns a Handle with a channel of its own for use by a single goroutine,
// taking no lock.
//
// Each channel caches the change version the server echoed for its latest
// mutation (LastChangeVersion). A transport failure marks the channel
// disconnected and fires the disconnect hook; the next call redials.
package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/notify"
)

// DefaultTimeout bounds a round trip whose context carries no deadline.
const DefaultTimeout = 30 * time.Second

type options struct {
	path         string
	timeout      time.Duration
	onDisconnect func(error)
	watcher      *notify.Watcher
}

// Option configures a Dialer.
type Option func(*options)

// WithTimeout sets the round-trip bound used when a context has no
// deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithDisconnectHook sets a function called with the transport error each
// time a channel loses its connection.
func WithDisconnectHook(fn func(error)) Option {
	return func(o *options) { o.onDisconnect = fn }
}

// WithWatcher makes async calls hold w's notifications while they are in
// flight and deliver them after their callback.
func WithWatcher(w *notify.Watcher) Option {
	return func(o *options) { o.watcher = w }
}

// Dialer creates Handles to the daemon listening at one socket path.
type Dialer struct {
	opts options

	mu     sync.Mutex
	shared *channel
	refs   int
}

// NewDialer returns a Dialer for the daemon socket at path. Nothing is
// dialed until the first Connect.
func NewDialer(path string, opts ...Option) *Dialer {
	d := &Dialer{opts: options{path: path, timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(&d.opts)
	}
	return d
}

// Connect returns a Handle on the shared channel, opening it if this is the
// first live Handle. The channel is torn down when the last Handle closes.
func (d *Dialer) Connect(ctx context.Context) (*Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shared == nil {
		ch := newChannel(Shared, &d.opts)
		if err := ch.open(ctx); err != nil {
			ch.close()
			return nil, err
		}
		d.shared = ch
	}
	d.refs++
	ch := d.shared
	return &Handle{ch: ch, release: func() { d.release(ch) }}, nil
}

// ConnectExclusive returns a Handle with a channel of its own. The Handle
// must not be used from more than one goroutine at a time; its async
// callbacks run on a separate worker.
func (d *Dialer) ConnectExclusive(ctx context.Context) (*Handle, error) {
	ch := newChannel(Exclusive, &d.opts)
	if err := ch.open(ctx); err != nil {
		ch.close()
		return nil, err
	}
	return &Handle{ch: ch, release: ch.close}, nil
}

// Refs returns the number of live Handles on the shared channel.
func (d *Dialer) Refs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refs
}

func (d *Dialer) release(ch *channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shared != ch {
		return
	}
	d.refs--
	if d.refs == 0 {
		d.shared = nil
		ch.close()
	}
}

// Handle is one logical connection. Its lifetime is fixed at creation.
type Handle struct {
	ch      *channel
	release func()
	closed  atomic.Bool
}

// Lifetime reports whether h uses the shared channel or its own.
func (h *Handle) Lifetime() Lifetime { return h.ch.lifetime }

// LastChangeVersion returns the version of the latest mutation made on h's
// channel, without a round trip. It is 0 before the first mutation.
func (h *Handle) LastChangeVersion() int64 { return h.ch.version.Current() }

// Disconnected reports whether h's channel lost its connection. The next
// call redials.
func (h *Handle) Disconnected() bool { return h.ch.disconnected() }

// Close releases h. Queued async calls finish first when this is the last
// Handle on the channel. Close must not be called from an async callback.
func (h *Handle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.release()
	return nil
}

func (h *Handle) check(op string) error {
	if h.closed.Load() {
		return calerr.New(calerr.InvalidParameter, op, "handle closed")
	}
	return nil
}
