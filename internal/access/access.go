// Package access implements the permission gate every data-touching RPC
// passes before it reaches storage.
//
// A Peer is identified by the kernel credentials of its socket. The Policy
// grants read and/or write per peer; writes into a book additionally require
// the book not to be read-only.
package access

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
)

// Kind is the permission an RPC needs. The values are part of the wire
// format of check_permission.
type Kind int32

const (
	KindNone  Kind = 0
	KindRead  Kind = 1
	KindWrite Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	}
	return fmt.Sprintf("kind(%d)", int32(k))
}

// Grant is a set of permission kinds.
type Grant uint8

const (
	GrantRead Grant = 1 << iota
	GrantWrite

	GrantNone      Grant = 0
	GrantReadWrite       = GrantRead | GrantWrite
)

// Has reports whether g includes kind. Every grant includes KindNone.
func (g Grant) Has(kind Kind) bool {
	switch kind {
	case KindNone:
		return true
	case KindRead:
		return g&GrantRead != 0
	case KindWrite:
		return g&GrantWrite != 0
	}
	return false
}

func (g Grant) String() string {
	var parts []string
	if g&GrantRead != 0 {
		parts = append(parts, "read")
	}
	if g&GrantWrite != 0 {
		parts = append(parts, "write")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParseGrant parses "none", "read", "write" or "read,write".
func ParseGrant(s string) (Grant, error) {
	var g Grant
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "none", "":
		case "read":
			g |= GrantRead
		case "write":
			g |= GrantWrite
		default:
			return 0, fmt.Errorf("unknown grant %q", part)
		}
	}
	return g, nil
}

// Peer is the process on the other end of a connection.
type Peer struct {
	UID uint32
	GID uint32
	PID int32
}

func (p Peer) String() string {
	return fmt.Sprintf("uid=%d gid=%d pid=%d", p.UID, p.GID, p.PID)
}

type peerKey struct{}

// WithPeer returns a context carrying peer.
func WithPeer(ctx context.Context, peer Peer) context.Context {
	return context.WithValue(ctx, peerKey{}, peer)
}

// PeerFrom returns the peer carried by ctx.
func PeerFrom(ctx context.Context) (Peer, bool) {
	p, ok := ctx.Value(peerKey{}).(Peer)
	return p, ok
}

// Policy maps peers to grants. A user override wins over a group override,
// which wins over Default.
type Policy struct {
	Default Grant
	Users   map[uint32]Grant
	Groups  map[uint32]Grant
}

// GrantFor returns the grant of peer.
func (p Policy) GrantFor(peer Peer) Grant {
	if g, ok := p.Users[peer.UID]; ok {
		return g
	}
	if g, ok := p.Groups[peer.GID]; ok {
		return g
	}
	return p.Default
}

// BookModes reads the mode of a book from storage.
type BookModes interface {
	BookMode(ctx context.Context, id int32) (int32, error)
}

// ParsePolicy builds a Policy from grant strings keyed by decimal uid and
// gid.
func ParsePolicy(def string, users, groups map[string]string) (Policy, error) {
	d, err := ParseGrant(def)
	if err != nil {
		return Policy{}, fmt.Errorf("default: %w", err)
	}
	u, err := parseGrants(users, "users")
	if err != nil {
		return Policy{}, err
	}
	g, err := parseGrants(groups, "groups")
	if err != nil {
		return Policy{}, err
	}
	return Policy{Default: d, Users: u, Groups: g}, nil
}

func parseGrants(m map[string]string, field string) (map[uint32]Grant, error) {
	out := make(map[uint32]Grant, len(m))
	for k, v := range m {
		id, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid id %q", field, k)
		}
		g, err := ParseGrant(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", field, k, err)
		}
		out[uint32(id)] = g
	}
	return out, nil
}

// Gate checks peers against a policy and book modes.
type Gate struct {
	policy Policy
	books  BookModes
}

// NewGate returns a gate. books may be nil, in which case no book is
// read-only.
func NewGate(policy Policy, books BookModes) *Gate {
	return &Gate{policy: policy, books: books}
}

// Check reports whether peer holds kind.
func (g *Gate) Check(ctx context.Context, peer Peer, kind Kind) bool {
	return g.policy.GrantFor(peer).Has(kind)
}

// Require fails with PermissionDenied unless peer holds kind.
func (g *Gate) Require(ctx context.Context, peer Peer, kind Kind) error {
	if !g.Check(ctx, peer, kind) {
		return calerr.New(calerr.PermissionDenied, "access", "%s lacks %s permission", peer, kind)
	}
	return nil
}

// RequireBookWrite fails with PermissionDenied unless peer may write and
// book is not read-only. A book that does not exist is left for storage to
// report.
func (g *Gate) RequireBookWrite(ctx context.Context, peer Peer, book int32) error {
	if err := g.Require(ctx, peer, KindWrite); err != nil {
		return err
	}
	if g.books == nil || book <= 0 {
		return nil
	}
	mode, err := g.books.BookMode(ctx, book)
	if calerr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("access: book %d mode: %w", book, err)
	}
	if mode == record.BookModeReadOnly {
		return calerr.New(calerr.PermissionDenied, "access", "book %d is read-only", book)
	}
	return nil
}
