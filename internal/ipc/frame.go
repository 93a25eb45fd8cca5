// Package ipc carries calendar store RPCs over a local stream socket.
//
// Each message travels as one frame: a 4-byte magic word for
// de-synchronization detection, a little-endian uint32 payload length, then
// the payload. A request payload is an rpc request envelope; a response
// payload is an rpc response envelope.
package ipc

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/calstore/internal/calerr"
)

// HeaderLength is the number of leading header bytes of each frame.
const HeaderLength = 8

// MaxPayload bounds a single frame. Larger lengths are treated as a desync.
const MaxPayload = 64 << 20

var magicWord = [4]byte{0x63, 0x61, 0x6c, 0xd7}

// ErrDesync is returned when a frame does not start with the magic word or
// declares an impossible length.
var ErrDesync = calerr.New(calerr.Ipc, "read frame", "frame desync detected")

// AppendFrame appends payload, framed, to b.
func AppendFrame(b, payload []byte) []byte {
	var hdr [HeaderLength]byte
	copy(hdr[:4], magicWord[:])
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(payload)))
	b = append(b, hdr[:]...)
	return append(b, payload...)
}

// WriteFrame writes payload as one frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return calerr.New(calerr.InvalidParameter, "write frame", "payload of %d bytes exceeds %d", len(payload), MaxPayload)
	}
	if _, err := w.Write(AppendFrame(make([]byte, 0, HeaderLength+len(payload)), payload)); err != nil {
		return calerr.Wrap(calerr.Ipc, "write frame", err)
	}
	return nil
}

// ReadFrame reads the next frame and returns its payload. A clean end of
// stream between frames is io.EOF; anything else is an Ipc error.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	hdr, err := r.Peek(HeaderLength)
	if err != nil {
		if errors.Is(err, io.EOF) && len(hdr) == 0 {
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, calerr.Wrap(calerr.Ipc, "read frame", fmt.Errorf("peek header: %w", err))
	}
	if [4]byte(hdr[:4]) != magicWord {
		return nil, ErrDesync
	}
	size := binary.LittleEndian.Uint32(hdr[4:])
	if size > MaxPayload {
		return nil, ErrDesync
	}
	if _, err := r.Discard(HeaderLength); err != nil {
		return nil, calerr.Wrap(calerr.Ipc, "read frame", err)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, calerr.Wrap(calerr.Ipc, "read frame", fmt.Errorf("read payload: %w", err))
	}
	return payload, nil
}
