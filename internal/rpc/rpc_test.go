package rpc

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/access"
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/query"
	"github.com/roach88/calstore/internal/record"
)

func TestMethods_Permissions(t *testing.T) {
	for _, m := range Methods() {
		switch {
		case m.Name == Connect || m.Name == Disconnect || m.Name == CheckPermission:
			assert.Equal(t, access.KindNone, m.Permission, m.Name)
		case m.Mutates || m.Name == CleanAfterSync:
			assert.Equal(t, access.KindWrite, m.Permission, m.Name)
		default:
			assert.Equal(t, access.KindRead, m.Permission, m.Name)
		}
		assert.NotNil(t, m.NewRequest(), m.Name)
		assert.NotNil(t, m.NewResponse(), m.Name)
	}
	assert.Len(t, Methods(), 22)

	_, ok := Lookup("drop_everything")
	assert.False(t, ok)
}

func TestRequest_GetRecordGolden(t *testing.T) {
	b, err := EncodeRequest(GetRecord, &KeyRequest{View: record.ViewEvent, ID: 7})
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "get_record_request", []byte(fmt.Sprintf("% x", b)))
}

func TestRequest_RoundTrip(t *testing.T) {
	e := record.NewEvent()
	e.BookID = 1
	e.Summary = record.Str("standup")
	q := query.New(record.ViewEvent).
		SetFilter(query.Where(record.ViewEvent, query.MatchString(record.EventSummary, query.MatchContains, "stand"))).
		SortBy(record.EventStart, true)

	tests := []struct {
		method string
		req    Message
	}{
		{Connect, &Empty{}},
		{CheckPermission, &CheckPermissionRequest{Kind: int32(access.KindWrite)}},
		{InsertRecord, &RecordRequest{Record: e}},
		{GetRecord, &KeyRequest{View: record.ViewTodo, ID: 3}},
		{GetAllRecords, &GetAllRecordsRequest{View: record.ViewBook, Offset: 2, Limit: 10}},
		{GetRecordsWithQuery, &QueryRequest{Query: q, Limit: 5}},
		{DeleteRecords, &DeleteRecordsRequest{View: record.ViewEvent, IDs: []int32{4, 5, 6}}},
		{ReplaceVCalendars, &ReplaceVCalendarsRequest{Text: "BEGIN:VCALENDAR", IDs: []int32{9}}},
		{GetChangesByVersion, &ChangesRequest{View: record.ViewEvent, Scope: 1, Since: 42}},
		{CleanAfterSync, &CleanAfterSyncRequest{Book: 2, Since: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			b, err := EncodeRequest(tt.method, tt.req)
			require.NoError(t, err)

			m, got, err := DecodeRequest(b)
			require.NoError(t, err)
			assert.Equal(t, tt.method, m.Name)

			again, err := EncodeRequest(tt.method, got)
			require.NoError(t, err)
			assert.Equal(t, b, again)
		})
	}
}

func TestRequest_Rejections(t *testing.T) {
	_, err := EncodeRequest("nope", &Empty{})
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))

	_, err = EncodeRequest(GetRecordsWithQuery, &QueryRequest{})
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err), "nil query")

	b, err := EncodeRequest(GetRecord, &KeyRequest{View: record.ViewEvent, ID: 1})
	require.NoError(t, err)

	_, _, err = DecodeRequest(append(b, 0))
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err), "trailing byte")

	for n := 0; n < len(b); n++ {
		_, _, err := DecodeRequest(b[:n])
		assert.Error(t, err, "truncated at %d", n)
	}
}

func TestResponse_Success(t *testing.T) {
	b, err := EncodeResponse(nil, &InsertRecordResponse{Version: 3, ID: 12})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, b[:4])

	var resp InsertRecordResponse
	require.NoError(t, DecodeResponse(b, InsertRecord, &resp))
	assert.Equal(t, InsertRecordResponse{Version: 3, ID: 12}, resp)
}

func TestResponse_FailureCarriesStatusOnly(t *testing.T) {
	b, err := EncodeResponse(calerr.New(calerr.PermissionDenied, "insert", "no"), &InsertRecordResponse{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 0, 0, 0}, b)

	resp := InsertRecordResponse{ID: 99}
	err = DecodeResponse(b, InsertRecord, &resp)
	assert.True(t, calerr.IsPermissionDenied(err))
	assert.Equal(t, int32(99), resp.ID, "untouched on failure")

	b, err = EncodeResponse(fmt.Errorf("disk on fire"), nil)
	require.NoError(t, err)
	assert.Equal(t, calerr.DbFailed, calerr.CodeOf(DecodeResponse(b, UpdateRecord, &VersionResponse{})))
}

func TestResponse_TransportFailures(t *testing.T) {
	assert.True(t, calerr.IsIpc(DecodeResponse(nil, GetCount, &CountResponse{})))
	assert.True(t, calerr.IsIpc(DecodeResponse([]byte{0, 0}, GetCount, &CountResponse{})))
	assert.True(t, calerr.IsIpc(DecodeResponse([]byte{0, 0, 0, 0, 1}, GetCount, &CountResponse{})), "short payload")
	assert.True(t, calerr.IsIpc(DecodeResponse([]byte{0, 0, 0, 0, 1, 0, 0, 0, 9}, GetCount, &CountResponse{})), "trailing byte")
}

func TestResponse_Changes(t *testing.T) {
	info := record.NewUpdatedInfo()
	info.ID, info.BookID, info.Type, info.Version = 4, 1, record.ChangeDeleted, 3

	b, err := EncodeResponse(nil, &ChangesResponse{List: record.NewList(info), Current: 3})
	require.NoError(t, err)

	var resp ChangesResponse
	require.NoError(t, DecodeResponse(b, GetChangesByVersion, &resp))
	assert.Equal(t, int64(3), resp.Current)
	require.Equal(t, 1, resp.List.Len())
	got := resp.List.Records()[0].(*record.UpdatedInfo)
	assert.Equal(t, int32(4), got.ID)
	assert.Equal(t, record.ChangeDeleted, got.Type)
}

func TestIDs_EmptyDecodesNil(t *testing.T) {
	b, err := EncodeResponse(nil, &IDsResponse{Version: 1})
	require.NoError(t, err)
	var resp IDsResponse
	require.NoError(t, DecodeResponse(b, InsertRecords, &resp))
	assert.Nil(t, resp.IDs)
}
