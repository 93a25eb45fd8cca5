// Package calerr defines the status codes shared by the calendar store's
// client, server and storage layers.
//
// Every RPC response starts with one of these codes encoded as an int32, so
// the numeric values are part of the wire format and must never be reordered.
package calerr

import (
	"errors"
	"fmt"
)

// Code categorizes a failure. The zero value means success.
type Code int32

const (
	// None is the success status.
	None Code = iota

	// InvalidParameter reports a malformed or missing field, a nil handle,
	// or an unknown record/filter type tag.
	InvalidParameter

	// OutOfMemory reports an allocation that could not be satisfied, such as
	// a count prefix larger than the remaining input.
	OutOfMemory

	// NoData reports a read past the end of a wire buffer, or an empty result.
	NoData

	// Ipc reports a transport failure: no reply, malformed reply, peer gone.
	Ipc

	// PermissionDenied reports a rejection by the access-control gate.
	PermissionDenied

	// DbFailed reports a storage engine error.
	DbFailed

	// RecordNotFound reports a lookup of an id that does not exist.
	RecordNotFound
)

var codeNames = map[Code]string{
	None:             "NONE",
	InvalidParameter: "INVALID_PARAMETER",
	OutOfMemory:      "OUT_OF_MEMORY",
	NoData:           "NO_DATA",
	Ipc:              "IPC",
	PermissionDenied: "PERMISSION_DENIED",
	DbFailed:         "DB_FAILED",
	RecordNotFound:   "RECORD_NOT_FOUND",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE(%d)", int32(c))
}

// Error is a failure carrying a status code.
//
// Op names the operation that failed ("unmarshal record", "insert_records").
// Err is the underlying cause and may be nil.
type Error struct {
	Code Code
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, calerr.ErrNoData)
// works for any wrapped NoData failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidParameter = &Error{Code: InvalidParameter}
	ErrOutOfMemory      = &Error{Code: OutOfMemory}
	ErrNoData           = &Error{Code: NoData}
	ErrIpc              = &Error{Code: Ipc}
	ErrPermissionDenied = &Error{Code: PermissionDenied}
	ErrDbFailed         = &Error{Code: DbFailed}
	ErrRecordNotFound   = &Error{Code: RecordNotFound}
)

// New creates an Error with a formatted cause.
func New(code Code, op string, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a code and operation to err. A nil err yields nil.
// If err already carries a code, that code is kept.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		code = ce.Code
	}
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the status code from err. nil maps to None and errors
// without a code map to DbFailed, the catch-all server-side status.
func CodeOf(err error) Code {
	if err == nil {
		return None
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return DbFailed
}

// ParseCode returns the code named name, e.g. "RECORD_NOT_FOUND".
func ParseCode(name string) (Code, bool) {
	for c, n := range codeNames {
		if n == name {
			return c, true
		}
	}
	return None, false
}

// FromStatus converts a wire status into an error. None yields nil.
func FromStatus(status int32, op string) error {
	if Code(status) == None {
		return nil
	}
	return &Error{Code: Code(status), Op: op}
}

// IsNoData reports whether err carries the NoData code.
func IsNoData(err error) bool { return CodeOf(err) == NoData }

// IsPermissionDenied reports whether err carries the PermissionDenied code.
func IsPermissionDenied(err error) bool { return err != nil && CodeOf(err) == PermissionDenied }

// IsIpc reports whether err carries the Ipc code.
func IsIpc(err error) bool { return err != nil && CodeOf(err) == Ipc }

// IsNotFound reports whether err carries the RecordNotFound code.
func IsNotFound(err error) bool { return err != nil && CodeOf(err) == RecordNotFound }
