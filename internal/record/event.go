package record

import (
	"database/sql"

	"github.com/roach88/calstore/internal/wire"
)

// Event properties.
const (
	EventID              = groupEvent<<24 | dInt | 0
	EventBookID          = groupEvent<<24 | dInt | 1
	EventUID             = groupEvent<<24 | dStr | 2
	EventSummary         = groupEvent<<24 | dStr | 3
	EventDescription     = groupEvent<<24 | dStr | 4
	EventLocation        = groupEvent<<24 | dStr | 5
	EventCategories      = groupEvent<<24 | dStr | 6
	EventStatus          = groupEvent<<24 | dInt | 7
	EventPriority        = groupEvent<<24 | dInt | 8
	EventSensitivity     = groupEvent<<24 | dInt | 9
	EventBusyStatus      = groupEvent<<24 | dInt | 10
	EventOrganizerName   = groupEvent<<24 | dStr | 11
	EventOrganizerEmail  = groupEvent<<24 | dStr | 12
	EventStart           = groupEvent<<24 | dTime | 13
	EventStartTZID       = groupEvent<<24 | dStr | 14
	EventEnd             = groupEvent<<24 | dTime | 15
	EventEndTZID         = groupEvent<<24 | dStr | 16
	EventRRule           = groupEvent<<24 | dStr | 17
	EventLatitude        = groupEvent<<24 | dDouble | 18
	EventLongitude       = groupEvent<<24 | dDouble | 19
	EventOriginalEventID = groupEvent<<24 | dInt | 20
	EventRecurrenceID    = groupEvent<<24 | dStr | 21
	EventHasAlarm        = groupEvent<<24 | dInt | 22
	EventHasAttendee     = groupEvent<<24 | dInt | 23
	EventCreatedTime     = groupEvent<<24 | dInt64 | 24
	EventLastModified    = groupEvent<<24 | dInt64 | 25
	EventSyncData1       = groupEvent<<24 | dStr | 26
	EventAlarms          = groupEvent<<24 | dRecord | 27
	EventAttendees       = groupEvent<<24 | dRecord | 28
	EventExceptions      = groupEvent<<24 | dRecord | 29
	EventExtended        = groupEvent<<24 | dRecord | 30
)

// Event is a calendar event. Its alarms, attendees, exceptions and extended
// properties travel embedded after the property fields.
//
// RRule is stored and returned verbatim; expanding it is not this layer's
// concern.
type Event struct {
	Envelope
	ID              int32
	BookID          int32
	UID             sql.NullString
	Summary         sql.NullString
	Description     sql.NullString
	Location        sql.NullString
	Categories      sql.NullString
	Status          int32
	Priority        int32
	Sensitivity     int32
	BusyStatus      int32
	OrganizerName   sql.NullString
	OrganizerEmail  sql.NullString
	Start           CalTime
	StartTZID       sql.NullString
	End             CalTime
	EndTZID         sql.NullString
	RRule           sql.NullString
	Latitude        float64
	Longitude       float64
	OriginalEventID int32
	RecurrenceID    sql.NullString
	HasAlarm        int32
	HasAttendee     int32
	CreatedTime     int64
	LastModified    int64
	SyncData1       sql.NullString

	Alarms     []*Alarm
	Attendees  []*Attendee
	Exceptions []*Event
	Extended   []*Extended
}

// NewEvent returns an empty event record.
func NewEvent() *Event {
	return &Event{Envelope: Envelope{Type: TypeEvent, ViewURI: ViewEvent}}
}

func (*Event) defaultType() Type { return TypeEvent }

var eventProperties = []property{
	prop(EventID, "id", func(e *Event) any { return &e.ID }),
	prop(EventBookID, "book_id", func(e *Event) any { return &e.BookID }),
	prop(EventUID, "uid", func(e *Event) any { return &e.UID }),
	prop(EventSummary, "summary", func(e *Event) any { return &e.Summary }),
	prop(EventDescription, "description", func(e *Event) any { return &e.Description }),
	prop(EventLocation, "location", func(e *Event) any { return &e.Location }),
	prop(EventCategories, "categories", func(e *Event) any { return &e.Categories }),
	prop(EventStatus, "status", func(e *Event) any { return &e.Status }),
	prop(EventPriority, "priority", func(e *Event) any { return &e.Priority }),
	prop(EventSensitivity, "sensitivity", func(e *Event) any { return &e.Sensitivity }),
	prop(EventBusyStatus, "busy_status", func(e *Event) any { return &e.BusyStatus }),
	prop(EventOrganizerName, "organizer_name", func(e *Event) any { return &e.OrganizerName }),
	prop(EventOrganizerEmail, "organizer_email", func(e *Event) any { return &e.OrganizerEmail }),
	prop(EventStart, "start", func(e *Event) any { return &e.Start }),
	prop(EventStartTZID, "start_tzid", func(e *Event) any { return &e.StartTZID }),
	prop(EventEnd, "end", func(e *Event) any { return &e.End }),
	prop(EventEndTZID, "end_tzid", func(e *Event) any { return &e.EndTZID }),
	prop(EventRRule, "rrule", func(e *Event) any { return &e.RRule }),
	prop(EventLatitude, "latitude", func(e *Event) any { return &e.Latitude }),
	prop(EventLongitude, "longitude", func(e *Event) any { return &e.Longitude }),
	prop(EventOriginalEventID, "original_event_id", func(e *Event) any { return &e.OriginalEventID }),
	prop(EventRecurrenceID, "recurrence_id", func(e *Event) any { return &e.RecurrenceID }),
	prop(EventHasAlarm, "has_alarm", func(e *Event) any { return &e.HasAlarm }),
	prop(EventHasAttendee, "has_attendee", func(e *Event) any { return &e.HasAttendee }),
	prop(EventCreatedTime, "created_time", func(e *Event) any { return &e.CreatedTime }),
	prop(EventLastModified, "last_modified", func(e *Event) any { return &e.LastModified }),
	prop(EventSyncData1, "sync_data1", func(e *Event) any { return &e.SyncData1 }),
}

func eventChildren(s wire.Stream, r Record) {
	e := r.(*Event)
	childList(s, &e.Alarms)
	childList(s, &e.Attendees)
	childList(s, &e.Exceptions)
	childList(s, &e.Extended)
}

// Todo properties.
const (
	TodoID             = groupTodo<<24 | dInt | 0
	TodoBookID         = groupTodo<<24 | dInt | 1
	TodoUID            = groupTodo<<24 | dStr | 2
	TodoSummary        = groupTodo<<24 | dStr | 3
	TodoDescription    = groupTodo<<24 | dStr | 4
	TodoLocation       = groupTodo<<24 | dStr | 5
	TodoCategories     = groupTodo<<24 | dStr | 6
	TodoStatus         = groupTodo<<24 | dInt | 7
	TodoPriority       = groupTodo<<24 | dInt | 8
	TodoSensitivity    = groupTodo<<24 | dInt | 9
	TodoOrganizerName  = groupTodo<<24 | dStr | 10
	TodoOrganizerEmail = groupTodo<<24 | dStr | 11
	TodoStart          = groupTodo<<24 | dTime | 12
	TodoStartTZID      = groupTodo<<24 | dStr | 13
	TodoDue            = groupTodo<<24 | dTime | 14
	TodoDueTZID        = groupTodo<<24 | dStr | 15
	TodoCompletedTime  = groupTodo<<24 | dInt64 | 16
	TodoProgress       = groupTodo<<24 | dInt | 17
	TodoRRule          = groupTodo<<24 | dStr | 18
	TodoLatitude       = groupTodo<<24 | dDouble | 19
	TodoLongitude      = groupTodo<<24 | dDouble | 20
	TodoHasAlarm       = groupTodo<<24 | dInt | 21
	TodoHasAttendee    = groupTodo<<24 | dInt | 22
	TodoCreatedTime    = groupTodo<<24 | dInt64 | 23
	TodoLastModified   = groupTodo<<24 | dInt64 | 24
	TodoSyncData1      = groupTodo<<24 | dStr | 25
	TodoAlarms         = groupTodo<<24 | dRecord | 26
	TodoAttendees      = groupTodo<<24 | dRecord | 27
	TodoExtended       = groupTodo<<24 | dRecord | 28
)

// Todo is a task with an optional due time.
type Todo struct {
	Envelope
	ID             int32
	BookID         int32
	UID            sql.NullString
	Summary        sql.NullString
	Description    sql.NullString
	Location       sql.NullString
	Categories     sql.NullString
	Status         int32
	Priority       int32
	Sensitivity    int32
	OrganizerName  sql.NullString
	OrganizerEmail sql.NullString
	Start          CalTime
	StartTZID      sql.NullString
	Due            CalTime
	DueTZID        sql.NullString
	CompletedTime  int64
	Progress       int32
	RRule          sql.NullString
	Latitude       float64
	Longitude      float64
	HasAlarm       int32
	HasAttendee    int32
	CreatedTime    int64
	LastModified   int64
	SyncData1      sql.NullString

	Alarms    []*Alarm
	Attendees []*Attendee
	Extended  []*Extended
}

// NewTodo returns an empty todo record.
func NewTodo() *Todo {
	return &Todo{Envelope: Envelope{Type: TypeTodo, ViewURI: ViewTodo}}
}

func (*Todo) defaultType() Type { return TypeTodo }

var todoProperties = []property{
	prop(TodoID, "id", func(t *Todo) any { return &t.ID }),
	prop(TodoBookID, "book_id", func(t *Todo) any { return &t.BookID }),
	prop(TodoUID, "uid", func(t *Todo) any { return &t.UID }),
	prop(TodoSummary, "summary", func(t *Todo) any { return &t.Summary }),
	prop(TodoDescription, "description", func(t *Todo) any { return &t.Description }),
	prop(TodoLocation, "location", func(t *Todo) any { return &t.Location }),
	prop(TodoCategories, "categories", func(t *Todo) any { return &t.Categories }),
	prop(TodoStatus, "status", func(t *Todo) any { return &t.Status }),
	prop(TodoPriority, "priority", func(t *Todo) any { return &t.Priority }),
	prop(TodoSensitivity, "sensitivity", func(t *Todo) any { return &t.Sensitivity }),
	prop(TodoOrganizerName, "organizer_name", func(t *Todo) any { return &t.OrganizerName }),
	prop(TodoOrganizerEmail, "organizer_email", func(t *Todo) any { return &t.OrganizerEmail }),
	prop(TodoStart, "start", func(t *Todo) any { return &t.Start }),
	prop(TodoStartTZID, "start_tzid", func(t *Todo) any { return &t.StartTZID }),
	prop(TodoDue, "due", func(t *Todo) any { return &t.Due }),
	prop(TodoDueTZID, "due_tzid", func(t *Todo) any { return &t.DueTZID }),
	prop(TodoCompletedTime, "completed_time", func(t *Todo) any { return &t.CompletedTime }),
	prop(TodoProgress, "progress", func(t *Todo) any { return &t.Progress }),
	prop(TodoRRule, "rrule", func(t *Todo) any { return &t.RRule }),
	prop(TodoLatitude, "latitude", func(t *Todo) any { return &t.Latitude }),
	prop(TodoLongitude, "longitude", func(t *Todo) any { return &t.Longitude }),
	prop(TodoHasAlarm, "has_alarm", func(t *Todo) any { return &t.HasAlarm }),
	prop(TodoHasAttendee, "has_attendee", func(t *Todo) any { return &t.HasAttendee }),
	prop(TodoCreatedTime, "created_time", func(t *Todo) any { return &t.CreatedTime }),
	prop(TodoLastModified, "last_modified", func(t *Todo) any { return &t.LastModified }),
	prop(TodoSyncData1, "sync_data1", func(t *Todo) any { return &t.SyncData1 }),
}

func todoChildren(s wire.Stream, r Record) {
	t := r.(*Todo)
	childList(s, &t.Alarms)
	childList(s, &t.Attendees)
	childList(s, &t.Extended)
}
