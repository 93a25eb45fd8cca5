package client

import (
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/rpc"
)

// Result is the outcome of an async batch call. IDs is set only for
// inserts.
type Result struct {
	Err     error
	Version int64
	IDs     []int32
}

// Callback receives the Result of an async call with the userData given
// when it was queued. It runs on the channel's worker goroutine, in
// submission order.
type Callback func(res Result, userData any)

// InsertRecordsAsync queues an InsertRecords call and returns at once.
func (h *Handle) InsertRecordsAsync(l *record.List, cb Callback, userData any) error {
	resp := &rpc.IDsResponse{}
	return h.async(rpc.InsertRecords, &rpc.ListRequest{List: l}, resp, func() (int64, []int32) {
		return resp.Version, resp.IDs
	}, cb, userData)
}

// UpdateRecordsAsync queues an UpdateRecords call and returns at once.
func (h *Handle) UpdateRecordsAsync(l *record.List, cb Callback, userData any) error {
	return h.asyncVersion(rpc.UpdateRecords, &rpc.ListRequest{List: l}, cb, userData)
}

// DeleteRecordsAsync queues a DeleteRecords call and returns at once.
func (h *Handle) DeleteRecordsAsync(view string, ids []int32, cb Callback, userData any) error {
	return h.asyncVersion(rpc.DeleteRecords, &rpc.DeleteRecordsRequest{View: view, IDs: ids}, cb, userData)
}

// ReplaceRecordsAsync queues a ReplaceRecords call and returns at once.
func (h *Handle) ReplaceRecordsAsync(l *record.List, ids []int32, cb Callback, userData any) error {
	return h.asyncVersion(rpc.ReplaceRecords, &rpc.ReplaceRecordsRequest{List: l, IDs: ids}, cb, userData)
}

// InsertVCalendarsAsync queues an InsertVCalendars call and returns at once.
func (h *Handle) InsertVCalendarsAsync(text string, cb Callback, userData any) error {
	resp := &rpc.IDsResponse{}
	return h.async(rpc.InsertVCalendars, &rpc.VCalendarRequest{Text: text}, resp, func() (int64, []int32) {
		return resp.Version, resp.IDs
	}, cb, userData)
}

// ReplaceVCalendarsAsync queues a ReplaceVCalendars call and returns at
// once.
func (h *Handle) ReplaceVCalendarsAsync(text string, ids []int32, cb Callback, userData any) error {
	return h.asyncVersion(rpc.ReplaceVCalendars, &rpc.ReplaceVCalendarsRequest{Text: text, IDs: ids}, cb, userData)
}

func (h *Handle) asyncVersion(method string, req rpc.Message, cb Callback, userData any) error {
	resp := &rpc.VersionResponse{}
	return h.async(method, req, resp, func() (int64, []int32) {
		return resp.Version, nil
	}, cb, userData)
}

// async marshals req on the caller's goroutine and queues the round trip.
// Encoding errors are returned directly; everything after that reaches cb.
func (h *Handle) async(method string, req, resp rpc.Message, result func() (int64, []int32), cb Callback, userData any) error {
	if cb == nil {
		return calerr.New(calerr.InvalidParameter, method, "nil callback")
	}
	if err := h.check(method); err != nil {
		return err
	}
	return h.ch.submit(method, req, resp, func(err error) {
		if err != nil {
			cb(Result{Err: err}, userData)
			return
		}
		version, ids := result()
		h.ch.version.Observe(version)
		cb(Result{Version: version, IDs: ids}, userData)
	})
}
