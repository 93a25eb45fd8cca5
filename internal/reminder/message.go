// Package reminder broadcasts "reminder changed" events to every subscribed
// process.
//
// The broadcast runs over its own websocket endpoint, separate from the RPC
// socket. Each message is a key=value payload
// (id=…&time=…&tick=…&unit=…&type=…) wire-encoded as a length-prefixed
// string. Delivery is best-effort: nothing is persisted for subscribers that
// are not connected.
package reminder

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/wire"
)

// Reminder is one alarm that became due.
type Reminder struct {
	// ID is the alarm's id.
	ID int32
	// Time is the fire time, in Unix seconds.
	Time int64
	// Tick and Unit give the lead time before the parent's start; Unit is
	// record.TickUnitSpecific for absolute alarms.
	Tick int32
	Unit int32
	// Type is the record.Type of the alarm's parent.
	Type int32
}

// Payload renders r as its key=value string.
func (r Reminder) Payload() string {
	return fmt.Sprintf("id=%d&time=%d&tick=%d&unit=%d&type=%d", r.ID, r.Time, r.Tick, r.Unit, r.Type)
}

// ParsePayload reads a key=value string. Every key must be present.
func ParsePayload(s string) (Reminder, error) {
	vals, err := url.ParseQuery(s)
	if err != nil {
		return Reminder{}, calerr.Wrap(calerr.InvalidParameter, "parse reminder", err)
	}
	var r Reminder
	ints := []struct {
		key string
		dst *int32
	}{{"id", &r.ID}, {"tick", &r.Tick}, {"unit", &r.Unit}, {"type", &r.Type}}
	for _, f := range ints {
		n, err := strconv.ParseInt(vals.Get(f.key), 10, 32)
		if err != nil {
			return Reminder{}, calerr.New(calerr.InvalidParameter, "parse reminder", "bad %s: %v", f.key, err)
		}
		*f.dst = int32(n)
	}
	if r.Time, err = strconv.ParseInt(vals.Get("time"), 10, 64); err != nil {
		return Reminder{}, calerr.New(calerr.InvalidParameter, "parse reminder", "bad time: %v", err)
	}
	return r, nil
}

// Encode produces the broadcast message for r.
func Encode(r Reminder) ([]byte, error) {
	p := r.Payload()
	return wire.Encode(func(s wire.Stream) { s.Text(&p) })
}

// Decode parses a broadcast message.
func Decode(b []byte) (Reminder, error) {
	var p string
	if err := wire.Decode(b, func(s wire.Stream) { s.Text(&p) }); err != nil {
		return Reminder{}, err
	}
	return ParsePayload(p)
}
