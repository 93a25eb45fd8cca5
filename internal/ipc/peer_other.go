//go:build !linux

package ipc

import (
	"net"
	"os"

	"github.com/roach88/calstore/internal/access"
)

// PeerOf reports the server's own credentials where the platform has no
// SO_PEERCRED. Only same-user deployments are supported there.
func PeerOf(*net.UnixConn) (access.Peer, error) {
	return access.Peer{UID: uint32(os.Getuid()), GID: uint32(os.Getgid())}, nil
}
