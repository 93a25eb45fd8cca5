package rpc

import (
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/query"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/wire"
)

// Message is a request or response payload. Fields walks its positional
// layout in either direction.
type Message interface {
	Fields(s wire.Stream)
}

// Empty is the payload of calls that carry nothing.
type Empty struct{}

func (*Empty) Fields(wire.Stream) {}

// CheckPermissionRequest asks whether the caller holds Kind
// (access.KindRead or access.KindWrite).
type CheckPermissionRequest struct {
	Kind int32
}

func (m *CheckPermissionRequest) Fields(s wire.Stream) { s.Int32(&m.Kind) }

// BoolResponse carries a yes/no answer.
type BoolResponse struct {
	Value bool
}

func (m *BoolResponse) Fields(s wire.Stream) { s.Bool(&m.Value) }

// RecordRequest carries one record.
type RecordRequest struct {
	Record record.Record
}

func (m *RecordRequest) Fields(s wire.Stream) { record.Field(s, &m.Record) }

// RecordResponse carries one record.
type RecordResponse struct {
	Record record.Record
}

func (m *RecordResponse) Fields(s wire.Stream) { record.Field(s, &m.Record) }

// InsertRecordResponse carries the version of the insert and the new id.
type InsertRecordResponse struct {
	Version int64
	ID      int32
}

func (m *InsertRecordResponse) Fields(s wire.Stream) {
	s.Int64(&m.Version)
	s.Int32(&m.ID)
}

// VersionResponse carries a change version.
type VersionResponse struct {
	Version int64
}

func (m *VersionResponse) Fields(s wire.Stream) { s.Int64(&m.Version) }

// KeyRequest names one record by view and id.
type KeyRequest struct {
	View string
	ID   int32
}

func (m *KeyRequest) Fields(s wire.Stream) {
	s.Text(&m.View)
	s.Int32(&m.ID)
}

// GetAllRecordsRequest pages through a view. Limit 0 means no limit.
type GetAllRecordsRequest struct {
	View   string
	Offset int32
	Limit  int32
}

func (m *GetAllRecordsRequest) Fields(s wire.Stream) {
	s.Text(&m.View)
	s.Int32(&m.Offset)
	s.Int32(&m.Limit)
}

// QueryRequest pages through the results of a query. Limit 0 means no
// limit.
type QueryRequest struct {
	Query  *query.Query
	Offset int32
	Limit  int32
}

func (m *QueryRequest) Fields(s wire.Stream) {
	queryField(s, &m.Query)
	s.Int32(&m.Offset)
	s.Int32(&m.Limit)
}

// ListResponse carries a record list.
type ListResponse struct {
	List *record.List
}

func (m *ListResponse) Fields(s wire.Stream) { listField(s, &m.List) }

// ViewRequest names a view.
type ViewRequest struct {
	View string
}

func (m *ViewRequest) Fields(s wire.Stream) { s.Text(&m.View) }

// CountQueryRequest carries a query to count.
type CountQueryRequest struct {
	Query *query.Query
}

func (m *CountQueryRequest) Fields(s wire.Stream) { queryField(s, &m.Query) }

// CountResponse carries a record count.
type CountResponse struct {
	Count int32
}

func (m *CountResponse) Fields(s wire.Stream) { s.Int32(&m.Count) }

// ListRequest carries a record list.
type ListRequest struct {
	List *record.List
}

func (m *ListRequest) Fields(s wire.Stream) { listField(s, &m.List) }

// IDsResponse carries the version of a batch insert and the new ids, in
// input order.
type IDsResponse struct {
	Version int64
	IDs     []int32
}

func (m *IDsResponse) Fields(s wire.Stream) {
	s.Int64(&m.Version)
	int32s(s, &m.IDs)
}

// DeleteRecordsRequest names records of one view.
type DeleteRecordsRequest struct {
	View string
	IDs  []int32
}

func (m *DeleteRecordsRequest) Fields(s wire.Stream) {
	s.Text(&m.View)
	int32s(s, &m.IDs)
}

// ReplaceRecordRequest replaces the record at ID.
type ReplaceRecordRequest struct {
	Record record.Record
	ID     int32
}

func (m *ReplaceRecordRequest) Fields(s wire.Stream) {
	record.Field(s, &m.Record)
	s.Int32(&m.ID)
}

// ReplaceRecordsRequest replaces List[i] at IDs[i].
type ReplaceRecordsRequest struct {
	List *record.List
	IDs  []int32
}

func (m *ReplaceRecordsRequest) Fields(s wire.Stream) {
	listField(s, &m.List)
	int32s(s, &m.IDs)
}

// VCalendarRequest carries vCalendar text to import.
type VCalendarRequest struct {
	Text string
}

func (m *VCalendarRequest) Fields(s wire.Stream) { s.Text(&m.Text) }

// ReplaceVCalendarsRequest replaces the records at IDs with the components
// of Text, in order.
type ReplaceVCalendarsRequest struct {
	Text string
	IDs  []int32
}

func (m *ReplaceVCalendarsRequest) Fields(s wire.Stream) {
	s.Text(&m.Text)
	int32s(s, &m.IDs)
}

// ChangesRequest asks for changes of View after Since. Scope is a book id
// for get_changes_by_version (0 for all books) and an original event id for
// changes_exception_by_version.
type ChangesRequest struct {
	View  string
	Scope int32
	Since int64
}

func (m *ChangesRequest) Fields(s wire.Stream) {
	s.Text(&m.View)
	s.Int32(&m.Scope)
	s.Int64(&m.Since)
}

// ChangesResponse carries UpdatedInfo records and the current version.
type ChangesResponse struct {
	List    *record.List
	Current int64
}

func (m *ChangesResponse) Fields(s wire.Stream) {
	listField(s, &m.List)
	s.Int64(&m.Current)
}

// CleanAfterSyncRequest drops tombstones of Book up to Since.
type CleanAfterSyncRequest struct {
	Book  int32
	Since int64
}

func (m *CleanAfterSyncRequest) Fields(s wire.Stream) {
	s.Int32(&m.Book)
	s.Int64(&m.Since)
}

func queryField(s wire.Stream, q **query.Query) {
	if s.Decoding() {
		*q = &query.Query{}
	} else if *q == nil {
		s.Fail(calerr.New(calerr.InvalidParameter, "marshal query", "nil query"))
		return
	}
	(*q).Fields(s)
	if s.Decoding() && s.Err() != nil {
		*q = nil
	}
}

func listField(s wire.Stream, l **record.List) {
	if s.Decoding() || *l == nil {
		*l = record.NewList()
	}
	(*l).Fields(s)
}

func int32s(s wire.Stream, v *[]int32) {
	n := len(*v)
	s.Count(&n, 4)
	if s.Err() != nil {
		return
	}
	if s.Decoding() {
		if n == 0 {
			*v = nil
			return
		}
		*v = make([]int32, n)
	}
	for i := range *v {
		s.Int32(&(*v)[i])
	}
	if s.Decoding() && s.Err() != nil {
		*v = nil
	}
}
