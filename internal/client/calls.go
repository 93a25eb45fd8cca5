package client

import (
	"context"

	"github.com/roach88/calstore/internal/access"
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/query"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/rpc"
)

func (h *Handle) call(ctx context.Context, method string, req, resp rpc.Message) error {
	if err := h.check(method); err != nil {
		return err
	}
	return h.ch.invoke(ctx, method, req, resp)
}

// CheckPermission asks whether the calling process holds kind.
func (h *Handle) CheckPermission(ctx context.Context, kind access.Kind) (bool, error) {
	var resp rpc.BoolResponse
	if err := h.call(ctx, rpc.CheckPermission, &rpc.CheckPermissionRequest{Kind: int32(kind)}, &resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

// InsertRecord stores r and returns its new id. r's key is set too.
func (h *Handle) InsertRecord(ctx context.Context, r record.Record) (int32, error) {
	if r == nil {
		return 0, calerr.New(calerr.InvalidParameter, rpc.InsertRecord, "nil record")
	}
	var resp rpc.InsertRecordResponse
	if err := h.call(ctx, rpc.InsertRecord, &rpc.RecordRequest{Record: r}, &resp); err != nil {
		return 0, err
	}
	h.ch.version.Observe(resp.Version)
	if err := record.SetKey(r, resp.ID); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// GetRecord fetches the record of view with id.
func (h *Handle) GetRecord(ctx context.Context, view string, id int32) (record.Record, error) {
	var resp rpc.RecordResponse
	if err := h.call(ctx, rpc.GetRecord, &rpc.KeyRequest{View: view, ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.Record, nil
}

// UpdateRecord writes the dirty properties of r, or all of them when none
// is dirty.
func (h *Handle) UpdateRecord(ctx context.Context, r record.Record) error {
	if r == nil {
		return calerr.New(calerr.InvalidParameter, rpc.UpdateRecord, "nil record")
	}
	return h.mutate(ctx, rpc.UpdateRecord, &rpc.RecordRequest{Record: r})
}

// DeleteRecord removes the record of view with id.
func (h *Handle) DeleteRecord(ctx context.Context, view string, id int32) error {
	return h.mutate(ctx, rpc.DeleteRecord, &rpc.KeyRequest{View: view, ID: id})
}

// GetAllRecords pages through view. limit 0 means no limit.
func (h *Handle) GetAllRecords(ctx context.Context, view string, offset, limit int) (*record.List, error) {
	req := &rpc.GetAllRecordsRequest{View: view, Offset: int32(offset), Limit: int32(limit)}
	var resp rpc.ListResponse
	if err := h.call(ctx, rpc.GetAllRecords, req, &resp); err != nil {
		return nil, err
	}
	return resp.List, nil
}

// GetRecordsWithQuery pages through the records matching q. limit 0 means
// no limit.
func (h *Handle) GetRecordsWithQuery(ctx context.Context, q *query.Query, offset, limit int) (*record.List, error) {
	if q == nil {
		return nil, calerr.New(calerr.InvalidParameter, rpc.GetRecordsWithQuery, "nil query")
	}
	req := &rpc.QueryRequest{Query: q, Offset: int32(offset), Limit: int32(limit)}
	var resp rpc.ListResponse
	if err := h.call(ctx, rpc.GetRecordsWithQuery, req, &resp); err != nil {
		return nil, err
	}
	return resp.List, nil
}

// GetCount counts the records of view.
func (h *Handle) GetCount(ctx context.Context, view string) (int, error) {
	var resp rpc.CountResponse
	if err := h.call(ctx, rpc.GetCount, &rpc.ViewRequest{View: view}, &resp); err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

// GetCountWithQuery counts the records matching q.
func (h *Handle) GetCountWithQuery(ctx context.Context, q *query.Query) (int, error) {
	if q == nil {
		return 0, calerr.New(calerr.InvalidParameter, rpc.GetCountWithQuery, "nil query")
	}
	var resp rpc.CountResponse
	if err := h.call(ctx, rpc.GetCountWithQuery, &rpc.CountQueryRequest{Query: q}, &resp); err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

// InsertRecords stores every record of l in one call and returns the new
// ids in list order.
func (h *Handle) InsertRecords(ctx context.Context, l *record.List) ([]int32, error) {
	var resp rpc.IDsResponse
	if err := h.call(ctx, rpc.InsertRecords, &rpc.ListRequest{List: l}, &resp); err != nil {
		return nil, err
	}
	h.ch.version.Observe(resp.Version)
	return resp.IDs, nil
}

// UpdateRecords updates every record of l in one call.
func (h *Handle) UpdateRecords(ctx context.Context, l *record.List) error {
	return h.mutate(ctx, rpc.UpdateRecords, &rpc.ListRequest{List: l})
}

// DeleteRecords removes the records of view with ids in one call.
func (h *Handle) DeleteRecords(ctx context.Context, view string, ids []int32) error {
	return h.mutate(ctx, rpc.DeleteRecords, &rpc.DeleteRecordsRequest{View: view, IDs: ids})
}

// ReplaceRecord overwrites the record at id with r.
func (h *Handle) ReplaceRecord(ctx context.Context, r record.Record, id int32) error {
	if r == nil {
		return calerr.New(calerr.InvalidParameter, rpc.ReplaceRecord, "nil record")
	}
	return h.mutate(ctx, rpc.ReplaceRecord, &rpc.ReplaceRecordRequest{Record: r, ID: id})
}

// ReplaceRecords overwrites the record at ids[i] with the i-th record of l.
func (h *Handle) ReplaceRecords(ctx context.Context, l *record.List, ids []int32) error {
	return h.mutate(ctx, rpc.ReplaceRecords, &rpc.ReplaceRecordsRequest{List: l, IDs: ids})
}

// InsertVCalendars imports the components of a vCalendar stream and returns
// their new ids.
func (h *Handle) InsertVCalendars(ctx context.Context, text string) ([]int32, error) {
	var resp rpc.IDsResponse
	if err := h.call(ctx, rpc.InsertVCalendars, &rpc.VCalendarRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	h.ch.version.Observe(resp.Version)
	return resp.IDs, nil
}

// ReplaceVCalendars overwrites the records at ids with the components of
// text, in order.
func (h *Handle) ReplaceVCalendars(ctx context.Context, text string, ids []int32) error {
	return h.mutate(ctx, rpc.ReplaceVCalendars, &rpc.ReplaceVCalendarsRequest{Text: text, IDs: ids})
}

// GetChangesByVersion lists the changes of view in book (0 for every book)
// after version since, together with the server's current version.
func (h *Handle) GetChangesByVersion(ctx context.Context, view string, book int32, since int64) ([]*record.UpdatedInfo, int64, error) {
	var resp rpc.ChangesResponse
	req := &rpc.ChangesRequest{View: view, Scope: book, Since: since}
	if err := h.call(ctx, rpc.GetChangesByVersion, req, &resp); err != nil {
		return nil, 0, err
	}
	infos, err := updatedInfos(resp.List)
	if err != nil {
		return nil, 0, err
	}
	return infos, resp.Current, nil
}

// ChangesExceptionByVersion lists the changes of the exceptions of the
// event originalID after version since.
func (h *Handle) ChangesExceptionByVersion(ctx context.Context, view string, originalID int32, since int64) ([]*record.UpdatedInfo, error) {
	var resp rpc.ListResponse
	req := &rpc.ChangesRequest{View: view, Scope: originalID, Since: since}
	if err := h.call(ctx, rpc.ChangesExceptionByVersion, req, &resp); err != nil {
		return nil, err
	}
	return updatedInfos(resp.List)
}

// GetCurrentVersion reads the server's durable change version.
func (h *Handle) GetCurrentVersion(ctx context.Context) (int64, error) {
	var resp rpc.VersionResponse
	if err := h.call(ctx, rpc.GetCurrentVersion, &rpc.Empty{}, &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// CleanAfterSync drops the deletion records of book (0 for every book) at
// or before version since. Call it only once every peer that syncs from
// this store has seen those deletions.
func (h *Handle) CleanAfterSync(ctx context.Context, book int32, since int64) error {
	return h.call(ctx, rpc.CleanAfterSync, &rpc.CleanAfterSyncRequest{Book: book, Since: since}, &rpc.Empty{})
}

func (h *Handle) mutate(ctx context.Context, method string, req rpc.Message) error {
	var resp rpc.VersionResponse
	if err := h.call(ctx, method, req, &resp); err != nil {
		return err
	}
	h.ch.version.Observe(resp.Version)
	return nil
}

func updatedInfos(l *record.List) ([]*record.UpdatedInfo, error) {
	out := make([]*record.UpdatedInfo, 0, l.Len())
	for _, r := range l.Records() {
		u, ok := r.(*record.UpdatedInfo)
		if !ok {
			return nil, calerr.New(calerr.Ipc, "changes", "unexpected %s record in reply", record.ViewOf(r))
		}
		out = append(out, u)
	}
	return out, nil
}
