package server

import (
	"context"
	"time"

	"github.com/roach88/calstore/internal/access"
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/metrics"
	"github.com/roach88/calstore/internal/rpc"
	"github.com/roach88/calstore/internal/store"
)

// handler runs one decoded request. A non-zero Mutation version means the
// call committed.
type handler func(s *Server, ctx context.Context, peer access.Peer, req rpc.Message) (rpc.Message, store.Mutation, error)

// Dispatch answers one request envelope with a response envelope. It never
// fails: every error travels back as a status.
func (s *Server) Dispatch(ctx context.Context, peer access.Peer, payload []byte) []byte {
	start := time.Now()

	name := "unknown"
	resp, err := func() (rpc.Message, error) {
		m, req, err := rpc.DecodeRequest(payload)
		if m != nil {
			name = m.Name
		}
		if err != nil {
			return nil, err
		}
		if m.Permission != access.KindNone {
			if err := s.gate.Require(ctx, peer, m.Permission); err != nil {
				return nil, err
			}
		}
		h, ok := handlers[m.Name]
		if !ok {
			return nil, calerr.New(calerr.InvalidParameter, m.Name, "not implemented")
		}
		resp, mut, err := h(s, ctx, peer, req)
		if err != nil {
			return nil, err
		}
		if mut.Version > 0 {
			s.committed(mut)
		}
		return resp, nil
	}()

	code := calerr.CodeOf(err)
	if err != nil {
		level := s.logger.Debug
		if code == calerr.DbFailed {
			level = s.logger.Warn
		}
		level("rpc failed", "method", name, "peer", peer.String(), "status", code.String(), "error", err)
	}
	metrics.ObserveRPC(name, code.String(), start)

	out, encErr := rpc.EncodeResponse(err, resp)
	if encErr != nil {
		s.logger.Warn("encode response", "method", name, "error", encErr)
		out, _ = rpc.EncodeResponse(calerr.Wrap(calerr.InvalidParameter, name, encErr), nil)
	}
	return out
}

func (s *Server) committed(m store.Mutation) {
	metrics.SetChangeVersion(m.Version)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Touch(m.Version, m.Views); err != nil {
		s.logger.Warn("touch change markers", "version", m.Version, "error", err)
	}
}
