package server

import (
	"context"

	"github.com/roach88/calstore/internal/access"
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/rpc"
	"github.com/roach88/calstore/internal/store"
	"github.com/roach88/calstore/internal/vcal"
)

var handlers = map[string]handler{
	rpc.Connect:                   connect,
	rpc.Disconnect:                connect,
	rpc.CheckPermission:           checkPermission,
	rpc.InsertRecord:              insertRecord,
	rpc.GetRecord:                 getRecord,
	rpc.UpdateRecord:              updateRecord,
	rpc.DeleteRecord:              deleteRecord,
	rpc.GetAllRecords:             getAllRecords,
	rpc.GetRecordsWithQuery:       getRecordsWithQuery,
	rpc.GetCount:                  getCount,
	rpc.GetCountWithQuery:         getCountWithQuery,
	rpc.InsertRecords:             insertRecords,
	rpc.UpdateRecords:             updateRecords,
	rpc.DeleteRecords:             deleteRecords,
	rpc.ReplaceRecord:             replaceRecord,
	rpc.ReplaceRecords:            replaceRecords,
	rpc.InsertVCalendars:          insertVCalendars,
	rpc.ReplaceVCalendars:         replaceVCalendars,
	rpc.GetChangesByVersion:       getChangesByVersion,
	rpc.GetCurrentVersion:         getCurrentVersion,
	rpc.CleanAfterSync:            cleanAfterSync,
	rpc.ChangesExceptionByVersion: changesExceptionByVersion,
}

var none store.Mutation

func connect(*Server, context.Context, access.Peer, rpc.Message) (rpc.Message, store.Mutation, error) {
	return &rpc.Empty{}, none, nil
}

func checkPermission(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.CheckPermissionRequest)
	kind := access.Kind(req.Kind)
	if kind != access.KindRead && kind != access.KindWrite {
		return nil, none, calerr.New(calerr.InvalidParameter, rpc.CheckPermission, "unknown permission %d", req.Kind)
	}
	return &rpc.BoolResponse{Value: s.gate.Check(ctx, peer, kind)}, none, nil
}

func insertRecord(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.RecordRequest)
	if err := s.requireWrite(ctx, peer, req.Record); err != nil {
		return nil, none, err
	}
	id, mut, err := s.backend.Insert(ctx, req.Record)
	if err != nil {
		return nil, none, err
	}
	return &rpc.InsertRecordResponse{Version: mut.Version, ID: id}, mut, nil
}

func getRecord(s *Server, ctx context.Context, _ access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.KeyRequest)
	r, err := s.backend.Get(ctx, req.View, req.ID)
	if err != nil {
		return nil, none, err
	}
	return &rpc.RecordResponse{Record: r}, none, nil
}

func updateRecord(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.RecordRequest)
	if err := s.requireRewrite(ctx, peer, req.Record, record.Key(req.Record)); err != nil {
		return nil, none, err
	}
	mut, err := s.backend.Update(ctx, req.Record)
	if err != nil {
		return nil, none, err
	}
	return &rpc.VersionResponse{Version: mut.Version}, mut, nil
}

func deleteRecord(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.KeyRequest)
	if err := s.requireStored(ctx, peer, req.View, req.ID); err != nil {
		return nil, none, err
	}
	mut, err := s.backend.Delete(ctx, req.View, req.ID)
	if err != nil {
		return nil, none, err
	}
	return &rpc.VersionResponse{Version: mut.Version}, mut, nil
}

func getAllRecords(s *Server, ctx context.Context, _ access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.GetAllRecordsRequest)
	if req.Offset < 0 || req.Limit < 0 {
		return nil, none, calerr.New(calerr.InvalidParameter, rpc.GetAllRecords, "negative offset or limit")
	}
	rs, err := s.backend.GetAll(ctx, req.View, int(req.Offset), int(req.Limit))
	if err != nil {
		return nil, none, err
	}
	return &rpc.ListResponse{List: record.NewList(rs...)}, none, nil
}

func getRecordsWithQuery(s *Server, ctx context.Context, _ access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.QueryRequest)
	if req.Offset < 0 || req.Limit < 0 {
		return nil, none, calerr.New(calerr.InvalidParameter, rpc.GetRecordsWithQuery, "negative offset or limit")
	}
	rs, err := s.backend.Query(ctx, req.Query, int(req.Offset), int(req.Limit))
	if err != nil {
		return nil, none, err
	}
	return &rpc.ListResponse{List: record.NewList(rs...)}, none, nil
}

func getCount(s *Server, ctx context.Context, _ access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.ViewRequest)
	n, err := s.backend.Count(ctx, req.View)
	if err != nil {
		return nil, none, err
	}
	return &rpc.CountResponse{Count: int32(n)}, none, nil
}

func getCountWithQuery(s *Server, ctx context.Context, _ access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.CountQueryRequest)
	n, err := s.backend.CountQuery(ctx, req.Query)
	if err != nil {
		return nil, none, err
	}
	return &rpc.CountResponse{Count: int32(n)}, none, nil
}

func insertRecords(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.ListRequest)
	rs, err := nonEmpty(rpc.InsertRecords, req.List)
	if err != nil {
		return nil, none, err
	}
	if err := s.requireWrite(ctx, peer, rs...); err != nil {
		return nil, none, err
	}
	ids, mut, err := s.backend.InsertBatch(ctx, rs)
	if err != nil {
		return nil, none, err
	}
	return &rpc.IDsResponse{Version: mut.Version, IDs: ids}, mut, nil
}

func updateRecords(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.ListRequest)
	rs, err := nonEmpty(rpc.UpdateRecords, req.List)
	if err != nil {
		return nil, none, err
	}
	for _, r := range rs {
		if err := s.requireRewrite(ctx, peer, r, record.Key(r)); err != nil {
			return nil, none, err
		}
	}
	mut, err := s.backend.UpdateBatch(ctx, rs)
	if err != nil {
		return nil, none, err
	}
	return &rpc.VersionResponse{Version: mut.Version}, mut, nil
}

func deleteRecords(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.DeleteRecordsRequest)
	if len(req.IDs) == 0 {
		return nil, none, calerr.New(calerr.InvalidParameter, rpc.DeleteRecords, "no ids")
	}
	for _, id := range req.IDs {
		if err := s.requireStored(ctx, peer, req.View, id); err != nil {
			return nil, none, err
		}
	}
	mut, err := s.backend.DeleteBatch(ctx, req.View, req.IDs)
	if err != nil {
		return nil, none, err
	}
	return &rpc.VersionResponse{Version: mut.Version}, mut, nil
}

func replaceRecord(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.ReplaceRecordRequest)
	if err := s.requireRewrite(ctx, peer, req.Record, req.ID); err != nil {
		return nil, none, err
	}
	mut, err := s.backend.Replace(ctx, req.Record, req.ID)
	if err != nil {
		return nil, none, err
	}
	return &rpc.VersionResponse{Version: mut.Version}, mut, nil
}

func replaceRecords(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.ReplaceRecordsRequest)
	rs, err := nonEmpty(rpc.ReplaceRecords, req.List)
	if err != nil {
		return nil, none, err
	}
	if len(rs) != len(req.IDs) {
		return nil, none, calerr.New(calerr.InvalidParameter, rpc.ReplaceRecords, "%d records for %d ids", len(rs), len(req.IDs))
	}
	for i, r := range rs {
		if err := s.requireRewrite(ctx, peer, r, req.IDs[i]); err != nil {
			return nil, none, err
		}
	}
	mut, err := s.backend.ReplaceBatch(ctx, rs, req.IDs)
	if err != nil {
		return nil, none, err
	}
	return &rpc.VersionResponse{Version: mut.Version}, mut, nil
}

func insertVCalendars(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.VCalendarRequest)
	rs, err := vcal.Decode(req.Text, s.defaultBook)
	if err != nil {
		return nil, none, err
	}
	if err := s.requireWrite(ctx, peer, rs...); err != nil {
		return nil, none, err
	}
	ids, mut, err := s.backend.InsertBatch(ctx, rs)
	if err != nil {
		return nil, none, err
	}
	return &rpc.IDsResponse{Version: mut.Version, IDs: ids}, mut, nil
}

func replaceVCalendars(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.ReplaceVCalendarsRequest)
	rs, err := vcal.Decode(req.Text, 0)
	if err != nil {
		return nil, none, err
	}
	if len(rs) != len(req.IDs) {
		return nil, none, calerr.New(calerr.InvalidParameter, rpc.ReplaceVCalendars, "%d components for %d ids", len(rs), len(req.IDs))
	}
	for i, r := range rs {
		book, err := s.backend.BookOf(ctx, record.ViewOf(r), req.IDs[i])
		if err != nil {
			return nil, none, err
		}
		setBook(r, book)
		if err := s.requireWrite(ctx, peer, r); err != nil {
			return nil, none, err
		}
	}
	mut, err := s.backend.ReplaceBatch(ctx, rs, req.IDs)
	if err != nil {
		return nil, none, err
	}
	return &rpc.VersionResponse{Version: mut.Version}, mut, nil
}

func getChangesByVersion(s *Server, ctx context.Context, _ access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.ChangesRequest)
	infos, current, err := s.backend.ChangesByVersion(ctx, req.View, req.Scope, req.Since)
	if err != nil {
		return nil, none, err
	}
	return &rpc.ChangesResponse{List: infoList(infos), Current: current}, none, nil
}

func changesExceptionByVersion(s *Server, ctx context.Context, _ access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.ChangesRequest)
	infos, _, err := s.backend.ChangesExceptionByVersion(ctx, req.View, req.Scope, req.Since)
	if err != nil {
		return nil, none, err
	}
	return &rpc.ListResponse{List: infoList(infos)}, none, nil
}

func getCurrentVersion(s *Server, ctx context.Context, _ access.Peer, _ rpc.Message) (rpc.Message, store.Mutation, error) {
	v, err := s.backend.CurrentVersion(ctx)
	if err != nil {
		return nil, none, err
	}
	return &rpc.VersionResponse{Version: v}, none, nil
}

func cleanAfterSync(s *Server, ctx context.Context, peer access.Peer, m rpc.Message) (rpc.Message, store.Mutation, error) {
	req := m.(*rpc.CleanAfterSyncRequest)
	if err := s.gate.RequireBookWrite(ctx, peer, req.Book); err != nil {
		return nil, none, err
	}
	if err := s.backend.CleanAfterSync(ctx, req.Book, req.Since); err != nil {
		return nil, none, err
	}
	return &rpc.Empty{}, none, nil
}

// requireWrite checks that every record lands in a book peer may write.
func (s *Server) requireWrite(ctx context.Context, peer access.Peer, rs ...record.Record) error {
	for _, r := range rs {
		book, err := s.bookOf(ctx, r)
		if err != nil {
			return err
		}
		if err := s.gate.RequireBookWrite(ctx, peer, book); err != nil {
			return err
		}
	}
	return nil
}

// requireRewrite checks both the book r names and the book the stored
// record at id lives in, so a record can neither move into nor out of a
// read-only book.
func (s *Server) requireRewrite(ctx context.Context, peer access.Peer, r record.Record, id int32) error {
	if r == nil {
		return calerr.New(calerr.InvalidParameter, "write", "nil record")
	}
	if err := s.requireWrite(ctx, peer, r); err != nil {
		return err
	}
	return s.requireStored(ctx, peer, record.ViewOf(r), id)
}

func (s *Server) requireStored(ctx context.Context, peer access.Peer, view string, id int32) error {
	book, err := s.backend.BookOf(ctx, view, id)
	if calerr.IsNotFound(err) {
		return s.gate.Require(ctx, peer, access.KindWrite)
	}
	if err != nil {
		return err
	}
	return s.gate.RequireBookWrite(ctx, peer, book)
}

// bookOf names the book r writes into. Children inherit the book of their
// parent; a missing parent is left for storage to report.
func (s *Server) bookOf(ctx context.Context, r record.Record) (int32, error) {
	var parent int32
	switch v := r.(type) {
	case nil:
		return 0, calerr.New(calerr.InvalidParameter, "write", "nil record")
	case *record.Event:
		if v.BookID != 0 || v.OriginalEventID <= 0 {
			return v.BookID, nil
		}
		parent = v.OriginalEventID
	case *record.Todo:
		return v.BookID, nil
	case *record.Timezone:
		return v.BookID, nil
	case *record.Alarm:
		parent = v.ParentID
	case *record.Attendee:
		parent = v.ParentID
	case *record.Extended:
		parent = v.RecordID
	default:
		return 0, nil
	}
	if parent <= 0 {
		return 0, nil
	}
	book, err := s.backend.BookOfKey(ctx, parent)
	if calerr.IsNotFound(err) {
		return 0, nil
	}
	return book, err
}

func setBook(r record.Record, book int32) {
	switch v := r.(type) {
	case *record.Event:
		v.BookID = book
	case *record.Todo:
		v.BookID = book
	case *record.Timezone:
		v.BookID = book
	}
}

func nonEmpty(op string, l *record.List) ([]record.Record, error) {
	if l == nil || l.Len() == 0 {
		return nil, calerr.New(calerr.InvalidParameter, op, "empty list")
	}
	return l.Records(), nil
}

func infoList(infos []*record.UpdatedInfo) *record.List {
	rs := make([]record.Record, len(infos))
	for i, u := range infos {
		rs[i] = u
	}
	return record.NewList(rs...)
}
