package client

import "sync/atomic"

// versionCache is a channel's last change version: the version the server
// echoed back for the latest mutation made on that channel.
//
// It never regresses. Async completions may deliver an older version after
// a newer synchronous one, and the older one is ignored.
//
// Thread-safety: versionCache is safe for concurrent use (atomic operations).
type versionCache struct {
	v atomic.Int64
}

// Observe records v if it is newer than the cached version and returns the
// cached version after the call.
func (c *versionCache) Observe(v int64) int64 {
	for {
		cur := c.v.Load()
		if v <= cur {
			return cur
		}
		if c.v.CompareAndSwap(cur, v) {
			return v
		}
	}
}

// Current returns the cached version without a round trip.
func (c *versionCache) Current() int64 {
	return c.v.Load()
}
