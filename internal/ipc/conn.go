package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/roach88/calstore/internal/calerr"
)

// Conn is one end of a framed socket connection. Call is for clients;
// Recv and Send are for servers. A Conn is not safe for concurrent calls.
type Conn struct {
	nc net.Conn
	br *bufio.Reader

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an established connection.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc, br: bufio.NewReaderSize(nc, 32*1024)}
}

// Dial connects to the server socket at path.
func Dial(ctx context.Context, path string) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, calerr.Wrap(calerr.Ipc, "dial", err)
	}
	return NewConn(nc), nil
}

// Call sends one request payload and waits for the response payload. The
// context deadline, if any, bounds the whole round trip.
func (c *Conn) Call(ctx context.Context, req []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, calerr.Wrap(calerr.Ipc, "call", err)
	}
	deadline, _ := ctx.Deadline()
	if err := c.nc.SetDeadline(deadline); err != nil {
		return nil, calerr.Wrap(calerr.Ipc, "call", err)
	}

	// Unblock the round trip if ctx is cancelled without a deadline.
	stop := context.AfterFunc(ctx, func() { _ = c.nc.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := c.Send(req); err != nil {
		return nil, err
	}
	resp, err := c.Recv()
	if errors.Is(err, io.EOF) {
		return nil, calerr.New(calerr.Ipc, "call", "connection closed by server")
	}
	return resp, err
}

// Recv reads the next frame's payload.
func (c *Conn) Recv() ([]byte, error) {
	return ReadFrame(c.br)
}

// Send writes payload as one frame.
func (c *Conn) Send(payload []byte) error {
	return WriteFrame(c.nc, payload)
}

// NetConn returns the underlying connection.
func (c *Conn) NetConn() net.Conn { return c.nc }

// Close closes the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.nc.Close() })
	return c.closeErr
}

// Listen binds the server socket at path, replacing a stale socket file
// left by a previous run. The socket is made connectable by every local
// user; the access gate decides what each peer may do.
func Listen(path string) (*net.UnixListener, error) {
	if fi, err := os.Lstat(path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("listen %s: exists and is not a socket", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("listen %s: remove stale socket: %w", path, err)
		}
	}
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o666); err != nil {
		ln.Close()
		return nil, fmt.Errorf("listen %s: chmod: %w", path, err)
	}
	return ln, nil
}
