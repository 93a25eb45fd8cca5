package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
)

type fakeBooks map[int32]int32

func (f fakeBooks) BookMode(_ context.Context, id int32) (int32, error) {
	mode, ok := f[id]
	if !ok {
		return 0, calerr.New(calerr.RecordNotFound, "book mode", "book %d not found", id)
	}
	return mode, nil
}

func TestParseGrant(t *testing.T) {
	tests := []struct {
		in   string
		want Grant
	}{
		{"none", GrantNone},
		{"", GrantNone},
		{"read", GrantRead},
		{"write", GrantWrite},
		{"read, write", GrantReadWrite},
	}
	for _, tt := range tests {
		got, err := ParseGrant(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseGrant("admin")
	assert.Error(t, err)
	assert.Equal(t, "read,write", GrantReadWrite.String())
}

func TestPolicy_OverridePrecedence(t *testing.T) {
	p := Policy{
		Default: GrantRead,
		Users:   map[uint32]Grant{1000: GrantReadWrite},
		Groups:  map[uint32]Grant{50: GrantNone, 1000: GrantNone},
	}
	assert.Equal(t, GrantReadWrite, p.GrantFor(Peer{UID: 1000, GID: 1000}))
	assert.Equal(t, GrantNone, p.GrantFor(Peer{UID: 2000, GID: 50}))
	assert.Equal(t, GrantRead, p.GrantFor(Peer{UID: 2000, GID: 60}))
}

func TestGate_Require(t *testing.T) {
	g := NewGate(Policy{Default: GrantRead}, nil)
	ctx := context.Background()
	peer := Peer{UID: 7}

	assert.True(t, g.Check(ctx, peer, KindRead))
	assert.False(t, g.Check(ctx, peer, KindWrite))
	assert.True(t, g.Check(ctx, peer, KindNone))
	assert.NoError(t, g.Require(ctx, peer, KindRead))
	assert.True(t, calerr.IsPermissionDenied(g.Require(ctx, peer, KindWrite)))
}

func TestGate_RequireBookWrite(t *testing.T) {
	books := fakeBooks{1: record.BookModeDefault, 2: record.BookModeReadOnly}
	g := NewGate(Policy{Default: GrantReadWrite}, books)
	ctx := context.Background()
	peer := Peer{UID: 7}

	assert.NoError(t, g.RequireBookWrite(ctx, peer, 1))
	assert.True(t, calerr.IsPermissionDenied(g.RequireBookWrite(ctx, peer, 2)))
	assert.NoError(t, g.RequireBookWrite(ctx, peer, 99), "missing books are storage's to report")

	ro := NewGate(Policy{Default: GrantRead}, books)
	assert.True(t, calerr.IsPermissionDenied(ro.RequireBookWrite(ctx, peer, 1)))
}

func TestPeerContext(t *testing.T) {
	_, ok := PeerFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPeer(context.Background(), Peer{UID: 1, GID: 2, PID: 3})
	p, ok := PeerFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "uid=1 gid=2 pid=3", p.String())
}
