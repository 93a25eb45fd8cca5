package rpc

import (
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/wire"
)

// EncodeRequest builds the request envelope of method carrying req.
func EncodeRequest(method string, req Message) ([]byte, error) {
	if _, ok := Lookup(method); !ok {
		return nil, calerr.New(calerr.InvalidParameter, "encode request", "unknown method %q", method)
	}
	return wire.Encode(func(s wire.Stream) {
		s.Text(&method)
		req.Fields(s)
	})
}

// DecodeRequest parses a request envelope. The payload must fill b exactly.
func DecodeRequest(b []byte) (*Method, Message, error) {
	dec := wire.NewDecoder(wire.NewReader(b))
	var name string
	dec.Text(&name)
	if err := dec.Err(); err != nil {
		return nil, nil, calerr.Wrap(calerr.InvalidParameter, "decode request", err)
	}
	m, ok := Lookup(name)
	if !ok {
		return nil, nil, calerr.New(calerr.InvalidParameter, "decode request", "unknown method %q", name)
	}
	req := m.NewRequest()
	req.Fields(dec)
	if err := dec.Err(); err != nil {
		return m, nil, calerr.Wrap(calerr.InvalidParameter, "decode "+name, err)
	}
	if n := dec.R.Remaining(); n != 0 {
		return m, nil, calerr.New(calerr.InvalidParameter, "decode "+name, "%d trailing bytes", n)
	}
	return m, req, nil
}

// EncodeResponse builds a response envelope. A non-nil err is sent as its
// status alone; resp is only encoded on success.
func EncodeResponse(err error, resp Message) ([]byte, error) {
	status := int32(calerr.CodeOf(err))
	return wire.Encode(func(s wire.Stream) {
		s.Int32(&status)
		if status == int32(calerr.None) && resp != nil {
			resp.Fields(s)
		}
	})
}

// DecodeResponse parses a response envelope of op into resp. An empty or
// malformed envelope is an Ipc failure; a failing status is returned as its
// error and leaves resp untouched.
func DecodeResponse(b []byte, op string, resp Message) error {
	if len(b) == 0 {
		return calerr.New(calerr.Ipc, op, "empty reply")
	}
	dec := wire.NewDecoder(wire.NewReader(b))
	var status int32
	dec.Int32(&status)
	if err := dec.Err(); err != nil {
		return calerr.New(calerr.Ipc, op, "malformed reply: %v", err)
	}
	if err := calerr.FromStatus(status, op); err != nil {
		return err
	}
	if resp != nil {
		resp.Fields(dec)
	}
	if err := dec.Err(); err != nil {
		return calerr.New(calerr.Ipc, op, "malformed reply: %v", err)
	}
	if n := dec.R.Remaining(); n != 0 {
		return calerr.New(calerr.Ipc, op, "malformed reply: %d trailing bytes", n)
	}
	return nil
}
