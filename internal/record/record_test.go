package record

import (
	"bytes"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/calerr"
)

func TestPropertyTables(t *testing.T) {
	for typ, k := range kinds {
		r := k.new()
		assert.Equal(t, typ, r.Header().Type, "%s: constructor type", typ)
		assert.Equal(t, k.view, r.Header().ViewURI, "%s: constructor view", typ)

		seenID := make(map[PropertyID]bool)
		seenName := make(map[string]bool)
		for i, p := range k.props {
			assert.False(t, seenID[p.ID], "%s: duplicate id %s", typ, p.ID)
			assert.False(t, seenName[p.Name], "%s: duplicate name %s", typ, p.Name)
			seenID[p.ID], seenName[p.Name] = true, true

			if i == 0 {
				assert.Equal(t, DataInt, p.ID.DataType(), "%s: key must be an int", typ)
			}

			var want DataType
			switch p.ptr(r).(type) {
			case *int32:
				want = DataInt
			case *float64:
				want = DataDouble
			case *int64:
				want = DataInt64
			case *sql.NullString:
				want = DataString
			case *CalTime:
				want = DataTime
			}
			assert.Equal(t, want, p.ID.DataType(), "%s.%s: field type disagrees with id", typ, p.Name)
		}
	}
}

func TestPropertyTables_GroupsMatchView(t *testing.T) {
	for _, view := range []string{ViewBook, ViewEvent, ViewTodo, ViewAlarm, ViewInstanceLocalTimeExtended} {
		props, err := Properties(view)
		require.NoError(t, err)
		group := props[0].ID.Group()
		for _, p := range props {
			assert.Equal(t, group, p.ID.Group(), "%s %s", view, p.Name)
		}
	}
}

func sampleEvent() *Event {
	e := NewEvent()
	e.ID = 12
	e.BookID = 1
	e.UID = Str("0190d3c4-7d7e-7000-8000-000000000001")
	e.Summary = Str("Standup")
	e.Description = Str("")
	e.Location = sql.NullString{}
	e.Status = 2
	e.BusyStatus = 1
	e.Start = UTime(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	e.StartTZID = Str("Europe/Paris")
	e.End = UTime(time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC))
	e.RRule = Str("FREQ=DAILY;COUNT=5")
	e.Latitude = 48.8566
	e.Longitude = 2.3522
	e.HasAlarm = 1
	e.CreatedTime = 1709283600
	e.LastModified = 1709283601

	a := NewAlarm()
	a.ID = 3
	a.ParentID = 12
	a.Tick = 10
	a.TickUnit = TickUnitMinute
	a.Summary = Str("Standup soon")
	e.Alarms = []*Alarm{a}

	at := NewAttendee()
	at.Name = Str("Ada")
	at.Email = Str("ada@example.com")
	at.RSVP = 1
	e.Attendees = []*Attendee{at}

	x := NewEvent()
	x.ID = 13
	x.OriginalEventID = 12
	x.RecurrenceID = Str("20240302T090000Z")
	x.Start = UTime(time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC))
	e.Exceptions = []*Event{x}

	ext := NewExtended()
	ext.Key = Str("X-COLOR")
	ext.Value = Str("teal")
	e.Extended = []*Extended{ext}
	return e
}

func sampleRecords(t *testing.T) []Record {
	book := NewBook()
	book.ID = 1
	book.Name = Str("Work")
	book.Color = Str("#336699")
	book.StoreType = StoreTypeEvent | StoreTypeTodo
	book.Extended = []*Extended{{Envelope: Envelope{Type: TypeExtended, ViewURI: ViewExtended}, Key: Str("k")}}

	todo := NewTodo()
	todo.ID = 5
	todo.BookID = 1
	todo.Summary = Str("File taxes")
	todo.Due = LocalTime(2024, 4, 15, 0, 0, 0)
	todo.Progress = 40
	todo.CompletedTime = 0

	tz := NewTimezone()
	tz.ID = 2
	tz.TZID = Str("Europe/Paris")
	tz.OffsetFromGMT = 60
	tz.DaylightBias = -60

	inst := newInstance(TypeInstanceLocalTimeExtended, ViewInstanceLocalTimeExtended)
	inst.EventID = 12
	inst.Start = LocalTime(2024, 3, 1, 0, 0, 0)
	inst.End = LocalTime(2024, 3, 2, 0, 0, 0)
	inst.Categories = Str("WORK")

	ui := NewUpdatedInfo()
	ui.ID = 12
	ui.BookID = 1
	ui.Type = ChangeDeleted
	ui.Version = 3

	search := NewSearch(ViewEvent)
	require.NoError(t, search.Add(EventSummary, StringValue("Standup")))
	require.NoError(t, search.Add(EventStart, TimeValue(UTime(time.Unix(1709283600, 0)))))
	require.NoError(t, search.Add(EventLatitude, DoubleValue(1.5)))

	empty := NewEvent()

	return []Record{book, sampleEvent(), todo, tz, NewAttendee(), NewAlarm(), inst, NewExtended(), ui, search, empty}
}

func TestRoundTrip_AllTypes(t *testing.T) {
	for _, r := range sampleRecords(t) {
		t.Run(TypeOf(r).String(), func(t *testing.T) {
			b, err := Marshal(r)
			require.NoError(t, err)

			got, err := Unmarshal(b)
			require.NoError(t, err)
			assert.Equal(t, r, got)
		})
	}
}

func TestRoundTrip_NullAndEmptyStringsStayDistinct(t *testing.T) {
	e := NewEvent()
	e.Summary = Str("")
	e.Description = sql.NullString{}

	got, err := Clone(e)
	require.NoError(t, err)
	ev := got.(*Event)
	assert.True(t, ev.Summary.Valid)
	assert.Equal(t, "", ev.Summary.String)
	assert.False(t, ev.Description.Valid)
}

func TestRoundTrip_ZeroValueRecordResolvesEnvelope(t *testing.T) {
	var a Alarm
	b, err := Marshal(&a)
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, TypeAlarm, got.Header().Type)
	assert.Equal(t, ViewAlarm, got.Header().ViewURI)
}

func TestUnmarshal_TruncationNeverReturnsARecord(t *testing.T) {
	for _, r := range sampleRecords(t) {
		b, err := Marshal(r)
		require.NoError(t, err)
		for n := 0; n < len(b); n++ {
			got, err := Unmarshal(b[:n])
			if !assert.Error(t, err, "%s truncated at %d", TypeOf(r), n) {
				return
			}
			assert.Nil(t, got)
		}
	}
}

func TestUnmarshal_TrailingBytes(t *testing.T) {
	b, err := Marshal(NewAlarm())
	require.NoError(t, err)
	_, err = Unmarshal(append(b, 0))
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestUnmarshal_UnknownTypeTag(t *testing.T) {
	b, err := Marshal(NewAlarm())
	require.NoError(t, err)
	b[0] = 0x7f

	got, err := Unmarshal(b)
	assert.Nil(t, got)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestUnmarshal_ChildOfWrongType(t *testing.T) {
	// A book's extended list carrying an alarm must be rejected.
	book := NewBook()
	b, err := Marshal(book)
	require.NoError(t, err)

	alarm, err := Marshal(NewAlarm())
	require.NoError(t, err)

	// The child count is the last four bytes of an empty book.
	b = b[:len(b)-4]
	b = append(b, 1, 0, 0, 0)
	b = append(b, alarm...)

	got, err := Unmarshal(b)
	assert.Nil(t, got)
	assert.Error(t, err)
}

func TestMarshal_RejectsMismatchedType(t *testing.T) {
	a := NewAlarm()
	a.Type = TypeEvent
	_, err := Marshal(a)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestUnmarshal_ViewMismatch(t *testing.T) {
	b, err := Marshal(NewBook())
	require.NoError(t, err)
	require.Len(t, ViewTodo, len(ViewBook))
	forged := bytes.Replace(b, []byte(ViewBook), []byte(ViewTodo), 1)
	require.NotEqual(t, b, forged)

	got, err := Unmarshal(forged)
	assert.Nil(t, got)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))

	book := NewBook()
	book.ViewURI = ViewTodo
	_, err = Marshal(book)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestMarshal_NilRecord(t *testing.T) {
	var e *Event
	_, err := Marshal(e)
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestSet_MarksDirty(t *testing.T) {
	e := NewEvent()
	require.NoError(t, Set(e, EventSummary, StringValue("Lunch")))
	require.NoError(t, Set(e, EventPriority, IntValue(3)))

	assert.Equal(t, "Lunch", e.Summary.String)
	assert.True(t, IsDirty(e, EventSummary))
	assert.False(t, IsDirty(e, EventLocation))
	assert.Equal(t, []PropertyID{EventSummary, EventPriority}, DirtyProperties(e))
	assert.Equal(t, uint32(len(eventProperties)), e.PropertiesMaxCount)

	got, err := Clone(e)
	require.NoError(t, err)
	assert.True(t, IsDirty(got, EventSummary))

	e.ClearDirty()
	assert.Empty(t, DirtyProperties(e))
}

func TestSet_WrongValueType(t *testing.T) {
	err := Set(NewEvent(), EventSummary, IntValue(3))
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))

	err = Set(NewEvent(), TodoDue, TimeValue(CalTime{}))
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestGet(t *testing.T) {
	e := sampleEvent()
	v, err := Get(e, EventLatitude)
	require.NoError(t, err)
	assert.Equal(t, 48.8566, v.Double)

	v, err = Get(e, EventLocation)
	require.NoError(t, err)
	assert.Nil(t, v.Native())
}

func TestProject_KeepsKeyAndSelected(t *testing.T) {
	e := sampleEvent()
	require.NoError(t, Project(e, []PropertyID{EventSummary}))

	assert.Equal(t, int32(12), e.ID)
	assert.Equal(t, "Standup", e.Summary.String)
	assert.False(t, e.UID.Valid)
	assert.True(t, e.Start.IsZero())
	assert.True(t, IsProjected(e, EventSummary))
	assert.False(t, IsProjected(e, EventUID))
}

func TestProject_UnknownProperty(t *testing.T) {
	err := Project(NewEvent(), []PropertyID{TodoDue})
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestKey(t *testing.T) {
	e := NewEvent()
	require.NoError(t, SetKey(e, 44))
	assert.Equal(t, int32(44), Key(e))

	inst := newInstance(TypeInstanceUTime, ViewInstanceUTime)
	inst.EventID = 9
	assert.Equal(t, int32(9), Key(inst))

	assert.Equal(t, int32(0), Key(NewSearch(ViewEvent)))
	assert.Error(t, SetKey(NewSearch(ViewEvent), 1))
}

func TestDocument(t *testing.T) {
	doc, err := Document(sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "Standup", doc["summary"])
	assert.Nil(t, doc["location"])
	assert.Equal(t, int64(1709283600), doc["start"])
	assert.Equal(t, int32(12), doc["id"])
}

func TestCaltime_SortKey(t *testing.T) {
	assert.Equal(t, int64(20240415093000), LocalTime(2024, 4, 15, 9, 30, 0).SortKey())
	assert.Less(t, LocalTime(2024, 4, 15, 9, 30, 0).SortKey(), LocalTime(2024, 4, 16, 0, 0, 0).SortKey())
}

func TestViewLookups(t *testing.T) {
	typ, err := TypeForView(ViewInstanceUTimeExtended)
	require.NoError(t, err)
	assert.Equal(t, TypeInstanceUTimeExtended, typ)

	_, err = TypeForView("calstore.view.nope")
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))

	_, ok := ViewForType(TypeSearch)
	assert.False(t, ok)

	r, err := NewForView(ViewTodo)
	require.NoError(t, err)
	assert.IsType(t, &Todo{}, r)

	name, err := PropertyName(ViewTodo, TodoDue)
	require.NoError(t, err)
	assert.Equal(t, "due", name)
}

func TestCopyProperties(t *testing.T) {
	src := sampleEvent()
	dst := NewEvent()
	require.NoError(t, CopyProperties(dst, src, []PropertyID{EventSummary, EventStart}))
	assert.Equal(t, src.Summary, dst.Summary)
	assert.Equal(t, src.Start, dst.Start)
	assert.False(t, dst.UID.Valid)

	assert.Error(t, CopyProperties(NewTodo(), src, nil))
}

func TestSearch_Lookup(t *testing.T) {
	s := NewSearch(ViewEvent)
	require.NoError(t, s.Add(EventPriority, IntValue(2)))
	assert.Error(t, s.Add(EventSummary, IntValue(2)))

	v, ok := s.Lookup(EventPriority)
	assert.True(t, ok)
	assert.Equal(t, int32(2), v.Int)

	_, ok = s.Lookup(EventSummary)
	assert.False(t, ok)
}
