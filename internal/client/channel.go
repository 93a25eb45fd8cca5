package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/ipc"
	"github.com/roach88/calstore/internal/notify"
	"github.com/roach88/calstore/internal/rpc"
)

// Lifetime is how a channel is shared. It is fixed when the channel is
// created.
type Lifetime int

const (
	// Shared channels are reference counted and used by every Handle from
	// Dialer.Connect. Round trips are serialized by a call mutex.
	Shared Lifetime = iota
	// Exclusive channels belong to one Handle used by one goroutine and take
	// no lock.
	Exclusive
)

func (l Lifetime) String() string {
	if l == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// transport is one server connection. A nil conn means disconnected; the
// next call redials.
type transport struct {
	path    string
	timeout time.Duration
	onLost  func(error)

	conn *ipc.Conn
}

// call runs one round trip, dialing first if needed. Any transport failure
// drops the connection, since a half-read frame leaves it unusable; lost
// reports that a live connection was dropped.
func (t *transport) call(ctx context.Context, payload []byte) (out []byte, lost bool, err error) {
	if t.conn == nil {
		if err := t.dial(ctx); err != nil {
			return nil, false, err
		}
	}
	ctx, cancel := t.bound(ctx)
	defer cancel()

	out, err = t.conn.Call(ctx, payload)
	if err != nil {
		t.drop()
		return nil, true, err
	}
	return out, false, nil
}

func (t *transport) dial(ctx context.Context) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	conn, err := ipc.Dial(ctx, t.path)
	if err != nil {
		return err
	}
	req, err := rpc.EncodeRequest(rpc.Connect, &rpc.Empty{})
	if err != nil {
		conn.Close()
		return err
	}
	out, err := conn.Call(ctx, req)
	if err == nil {
		err = rpc.DecodeResponse(out, rpc.Connect, &rpc.Empty{})
	}
	if err != nil {
		conn.Close()
		return err
	}
	t.conn = conn
	return nil
}

// hangup says goodbye and closes the connection, if any.
func (t *transport) hangup() {
	if t.conn == nil {
		return
	}
	ctx, cancel := t.bound(context.Background())
	defer cancel()
	if req, err := rpc.EncodeRequest(rpc.Disconnect, &rpc.Empty{}); err == nil {
		if _, err := t.conn.Call(ctx, req); err != nil {
			slog.Debug("disconnect", "error", err)
		}
	}
	t.drop()
}

func (t *transport) drop() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

func (t *transport) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

// channel is one connection lifetime: its transport, its change-version
// cache and its async completion queue.
//
// A shared channel has one transport guarded by callMu, used by every
// handle and by the async worker. An exclusive channel's transport is used
// only by its owner, lock-free; its async worker gets a second transport of
// its own.
type channel struct {
	lifetime Lifetime
	watcher  *notify.Watcher

	callMu sync.Mutex
	main   *transport
	async  *transport

	version versionCache

	queue      *jobQueue
	workerDone chan struct{}
}

func newChannel(lifetime Lifetime, o *options) *channel {
	lost := func(err error) {
		slog.Debug("calstore connection lost", "lifetime", lifetime.String(), "error", err)
		if o.onDisconnect != nil {
			o.onDisconnect(err)
		}
	}
	c := &channel{
		lifetime:   lifetime,
		watcher:    o.watcher,
		main:       &transport{path: o.path, timeout: o.timeout, onLost: lost},
		queue:      newJobQueue(),
		workerDone: make(chan struct{}),
	}
	if lifetime == Exclusive {
		c.async = &transport{path: o.path, timeout: o.timeout, onLost: lost}
	} else {
		c.async = c.main
	}
	go c.work()
	return c
}

// open dials the main transport eagerly so a bad socket path fails at
// connect time.
func (c *channel) open(ctx context.Context) error {
	c.lock()
	defer c.unlock()
	return c.main.dial(ctx)
}

func (c *channel) lock() {
	if c.lifetime == Shared {
		c.callMu.Lock()
	}
}

func (c *channel) unlock() {
	if c.lifetime == Shared {
		c.callMu.Unlock()
	}
}

// roundTrip sends payload over t. The call mutex is held for the transport
// call only, never across marshal or unmarshal. The disconnect hook runs
// after the mutex is released so it may call back into the handle.
func (c *channel) roundTrip(ctx context.Context, t *transport, payload []byte) ([]byte, error) {
	c.lock()
	out, lost, err := t.call(ctx, payload)
	c.unlock()
	if lost && t.onLost != nil {
		t.onLost(err)
	}
	return out, err
}

// invoke runs method synchronously on the main transport.
func (c *channel) invoke(ctx context.Context, method string, req, resp rpc.Message) error {
	payload, err := rpc.EncodeRequest(method, req)
	if err != nil {
		return err
	}
	out, err := c.roundTrip(ctx, c.main, payload)
	if err != nil {
		return err
	}
	return rpc.DecodeResponse(out, method, resp)
}

// submit queues method for the async worker. done runs on the worker with
// the call's outcome; local notifications that arrive while the call is in
// flight are delivered after done returns.
func (c *channel) submit(method string, req, resp rpc.Message, done func(error)) error {
	payload, err := rpc.EncodeRequest(method, req)
	if err != nil {
		return err
	}
	ok := c.queue.Enqueue(func() {
		if c.watcher != nil {
			c.watcher.Hold()
			defer c.watcher.Release()
		}
		out, err := c.roundTrip(context.Background(), c.async, payload)
		if err == nil {
			err = rpc.DecodeResponse(out, method, resp)
		}
		done(err)
	})
	if !ok {
		return calerr.New(calerr.Ipc, method, "connection closed")
	}
	return nil
}

func (c *channel) work() {
	defer close(c.workerDone)
	for {
		j, ok := c.queue.Dequeue()
		if !ok {
			return
		}
		j()
	}
}

// disconnected reports whether the main transport has no live connection.
func (c *channel) disconnected() bool {
	c.lock()
	defer c.unlock()
	return c.main.conn == nil
}

// close drains queued async calls, then hangs up every transport. It must
// not be called from an async callback.
func (c *channel) close() {
	c.queue.Close()
	<-c.workerDone

	c.lock()
	defer c.unlock()
	c.main.hangup()
	if c.async != c.main {
		c.async.hangup()
	}
}
