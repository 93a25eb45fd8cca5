// Package rpc defines the calendar store's request/response surface: the
// method table, the payload of every method and the envelopes they travel
// in.
//
// A request envelope is the method name followed by the request payload. A
// response envelope is an int32 status followed, on success only, by the
// response payload. A zero-length response is a transport failure, distinct
// from any status.
package rpc

import (
	"sort"

	"github.com/roach88/calstore/internal/access"
)

// Method names.
const (
	Connect                   = "connect"
	Disconnect                = "disconnect"
	CheckPermission           = "check_permission"
	InsertRecord              = "insert_record"
	GetRecord                 = "get_record"
	UpdateRecord              = "update_record"
	DeleteRecord              = "delete_record"
	GetAllRecords             = "get_all_records"
	GetRecordsWithQuery       = "get_records_with_query"
	GetCount                  = "get_count"
	GetCountWithQuery         = "get_count_with_query"
	InsertRecords             = "insert_records"
	UpdateRecords             = "update_records"
	DeleteRecords             = "delete_records"
	ReplaceRecord             = "replace_record"
	ReplaceRecords            = "replace_records"
	InsertVCalendars          = "insert_vcalendars"
	ReplaceVCalendars         = "replace_vcalendars"
	GetChangesByVersion       = "get_changes_by_version"
	GetCurrentVersion         = "get_current_version"
	CleanAfterSync            = "clean_after_sync"
	ChangesExceptionByVersion = "changes_exception_by_version"
)

// Method describes one RPC.
type Method struct {
	Name string
	// Permission is checked by the server before the handler runs.
	Permission access.Kind
	// Mutates marks calls that commit a new change version.
	Mutates bool

	NewRequest  func() Message
	NewResponse func() Message
}

func method[Req, Resp any, PReq interface {
	*Req
	Message
}, PResp interface {
	*Resp
	Message
}](name string, perm access.Kind, mutates bool) *Method {
	return &Method{
		Name:        name,
		Permission:  perm,
		Mutates:     mutates,
		NewRequest:  func() Message { return PReq(new(Req)) },
		NewResponse: func() Message { return PResp(new(Resp)) },
	}
}

var methods = map[string]*Method{}

func register(m *Method) { methods[m.Name] = m }

func init() {
	register(method[Empty, Empty](Connect, access.KindNone, false))
	register(method[Empty, Empty](Disconnect, access.KindNone, false))
	register(method[CheckPermissionRequest, BoolResponse](CheckPermission, access.KindNone, false))
	register(method[RecordRequest, InsertRecordResponse](InsertRecord, access.KindWrite, true))
	register(method[KeyRequest, RecordResponse](GetRecord, access.KindRead, false))
	register(method[RecordRequest, VersionResponse](UpdateRecord, access.KindWrite, true))
	register(method[KeyRequest, VersionResponse](DeleteRecord, access.KindWrite, true))
	register(method[GetAllRecordsRequest, ListResponse](GetAllRecords, access.KindRead, false))
	register(method[QueryRequest, ListResponse](GetRecordsWithQuery, access.KindRead, false))
	register(method[ViewRequest, CountResponse](GetCount, access.KindRead, false))
	register(method[CountQueryRequest, CountResponse](GetCountWithQuery, access.KindRead, false))
	register(method[ListRequest, IDsResponse](InsertRecords, access.KindWrite, true))
	register(method[ListRequest, VersionResponse](UpdateRecords, access.KindWrite, true))
	register(method[DeleteRecordsRequest, VersionResponse](DeleteRecords, access.KindWrite, true))
	register(method[ReplaceRecordRequest, VersionResponse](ReplaceRecord, access.KindWrite, true))
	register(method[ReplaceRecordsRequest, VersionResponse](ReplaceRecords, access.KindWrite, true))
	register(method[VCalendarRequest, IDsResponse](InsertVCalendars, access.KindWrite, true))
	register(method[ReplaceVCalendarsRequest, VersionResponse](ReplaceVCalendars, access.KindWrite, true))
	register(method[ChangesRequest, ChangesResponse](GetChangesByVersion, access.KindRead, false))
	register(method[Empty, VersionResponse](GetCurrentVersion, access.KindRead, false))
	register(method[CleanAfterSyncRequest, Empty](CleanAfterSync, access.KindWrite, false))
	register(method[ChangesRequest, ListResponse](ChangesExceptionByVersion, access.KindRead, false))
}

// Lookup returns the method named name.
func Lookup(name string) (*Method, bool) {
	m, ok := methods[name]
	return m, ok
}

// Methods lists every method, sorted by name.
func Methods() []*Method {
	out := make([]*Method, 0, len(methods))
	for _, m := range methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
