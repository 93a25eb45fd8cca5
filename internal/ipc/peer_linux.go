//go:build linux

package ipc

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/roach88/calstore/internal/access"
)

// PeerOf returns the credentials of the process on the other end of c, as
// recorded by the kernel when it connected.
func PeerOf(c *net.UnixConn) (access.Peer, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return access.Peer{}, fmt.Errorf("peer credentials: %w", err)
	}
	var (
		cred    *unix.Ucred
		credErr error
	)
	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return access.Peer{}, fmt.Errorf("peer credentials: %w", err)
	}
	if credErr != nil {
		return access.Peer{}, fmt.Errorf("peer credentials: %w", credErr)
	}
	return access.Peer{UID: cred.Uid, GID: cred.Gid, PID: cred.Pid}, nil
}
