// Package server runs the calendar store daemon's RPC endpoint.
//
// Every connection is served by its own goroutine. A request passes
// decode, the access gate, its handler and encode, in that order; a request
// the gate refuses never reaches storage. After a committed mutation the
// server touches the change markers of the views it changed.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/calstore/internal/access"
	"github.com/roach88/calstore/internal/ipc"
	"github.com/roach88/calstore/internal/metrics"
	"github.com/roach88/calstore/internal/notify"
)

// DefaultBook receives imported vCalendar components.
const DefaultBook int32 = 1

// Server serves RPCs against a Backend.
type Server struct {
	backend     Backend
	gate        *access.Gate
	notifier    *notify.Notifier
	defaultBook int32
	peerOf      func(*net.UnixConn) (access.Peer, error)
	logger      *slog.Logger

	mu    sync.Mutex
	conns map[*ipc.Conn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithNotifier makes the server touch change markers after commits.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

// WithDefaultBook sets the book vCalendar imports go to.
func WithDefaultBook(id int32) Option {
	return func(s *Server) { s.defaultBook = id }
}

// WithPeerFunc replaces how peer credentials are read from a connection.
func WithPeerFunc(fn func(*net.UnixConn) (access.Peer, error)) Option {
	return func(s *Server) { s.peerOf = fn }
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New returns a server over backend guarded by gate.
func New(backend Backend, gate *access.Gate, opts ...Option) *Server {
	s := &Server{
		backend:     backend,
		gate:        gate,
		defaultBook: DefaultBook,
		peerOf:      ipc.PeerOf,
		logger:      slog.Default(),
		conns:       make(map[*ipc.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve accepts connections on ln until ctx is done, then closes every
// open connection and waits for their goroutines.
func (s *Server) Serve(ctx context.Context, ln *net.UnixListener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
		return nil
	})

	g.Go(func() error {
		for {
			uc, err := ln.AcceptUnix()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			g.Go(func() error {
				s.serveConn(ctx, uc)
				return nil
			})
		}
	})

	return g.Wait()
}

func (s *Server) serveConn(ctx context.Context, uc *net.UnixConn) {
	c := ipc.NewConn(uc)
	defer c.Close()

	peer, err := s.peerOf(uc)
	if err != nil {
		s.logger.Warn("rejecting connection", "error", err)
		return
	}
	ctx = access.WithPeer(ctx, peer)

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	metrics.ConnectionOpened()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		metrics.ConnectionClosed()
	}()
	s.logger.Debug("client connected", "peer", peer.String())

	for {
		req, err := c.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Debug("connection read failed", "peer", peer.String(), "error", err)
			}
			return
		}
		resp := s.Dispatch(ctx, peer, req)
		if err := c.Send(resp); err != nil {
			s.logger.Debug("connection write failed", "peer", peer.String(), "error", err)
			return
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}
