package record

import "database/sql"

// Timezone properties.
const (
	TimezoneID            = groupTimezone<<24 | dInt | 0
	TimezoneBookID        = groupTimezone<<24 | dInt | 1
	TimezoneOffsetFromGMT = groupTimezone<<24 | dInt | 2
	TimezoneStandardName  = groupTimezone<<24 | dStr | 3
	TimezoneStdStartMonth = groupTimezone<<24 | dInt | 4
	TimezoneStdStartWeek  = groupTimezone<<24 | dInt | 5
	TimezoneStdStartDay   = groupTimezone<<24 | dInt | 6
	TimezoneStdStartHour  = groupTimezone<<24 | dInt | 7
	TimezoneStandardBias  = groupTimezone<<24 | dInt | 8
	TimezoneDaylightName  = groupTimezone<<24 | dStr | 9
	TimezoneDayStartMonth = groupTimezone<<24 | dInt | 10
	TimezoneDayStartWeek  = groupTimezone<<24 | dInt | 11
	TimezoneDayStartDay   = groupTimezone<<24 | dInt | 12
	TimezoneDayStartHour  = groupTimezone<<24 | dInt | 13
	TimezoneDaylightBias  = groupTimezone<<24 | dInt | 14
	TimezoneTZID          = groupTimezone<<24 | dStr | 15
)

// Timezone describes a VTIMEZONE rule set referenced by TZID from events
// and todos of the same book.
type Timezone struct {
	Envelope
	ID            int32
	BookID        int32
	OffsetFromGMT int32
	StandardName  sql.NullString
	StdStartMonth int32
	StdStartWeek  int32
	StdStartDay   int32
	StdStartHour  int32
	StandardBias  int32
	DaylightName  sql.NullString
	DayStartMonth int32
	DayStartWeek  int32
	DayStartDay   int32
	DayStartHour  int32
	DaylightBias  int32
	TZID          sql.NullString
}

func NewTimezone() *Timezone {
	return &Timezone{Envelope: Envelope{Type: TypeTimezone, ViewURI: ViewTimezone}}
}

func (*Timezone) defaultType() Type { return TypeTimezone }

var timezoneProperties = []property{
	prop(TimezoneID, "id", func(t *Timezone) any { return &t.ID }),
	prop(TimezoneBookID, "book_id", func(t *Timezone) any { return &t.BookID }),
	prop(TimezoneOffsetFromGMT, "offset_from_gmt", func(t *Timezone) any { return &t.OffsetFromGMT }),
	prop(TimezoneStandardName, "standard_name", func(t *Timezone) any { return &t.StandardName }),
	prop(TimezoneStdStartMonth, "std_start_month", func(t *Timezone) any { return &t.StdStartMonth }),
	prop(TimezoneStdStartWeek, "std_start_week", func(t *Timezone) any { return &t.StdStartWeek }),
	prop(TimezoneStdStartDay, "std_start_day", func(t *Timezone) any { return &t.StdStartDay }),
	prop(TimezoneStdStartHour, "std_start_hour", func(t *Timezone) any { return &t.StdStartHour }),
	prop(TimezoneStandardBias, "standard_bias", func(t *Timezone) any { return &t.StandardBias }),
	prop(TimezoneDaylightName, "daylight_name", func(t *Timezone) any { return &t.DaylightName }),
	prop(TimezoneDayStartMonth, "day_start_month", func(t *Timezone) any { return &t.DayStartMonth }),
	prop(TimezoneDayStartWeek, "day_start_week", func(t *Timezone) any { return &t.DayStartWeek }),
	prop(TimezoneDayStartDay, "day_start_day", func(t *Timezone) any { return &t.DayStartDay }),
	prop(TimezoneDayStartHour, "day_start_hour", func(t *Timezone) any { return &t.DayStartHour }),
	prop(TimezoneDaylightBias, "daylight_bias", func(t *Timezone) any { return &t.DaylightBias }),
	prop(TimezoneTZID, "tzid", func(t *Timezone) any { return &t.TZID }),
}

// Attendee properties.
const (
	AttendeeID           = groupAttendee<<24 | dInt | 0
	AttendeeParentID     = groupAttendee<<24 | dInt | 1
	AttendeeNumber       = groupAttendee<<24 | dStr | 2
	AttendeeCUType       = groupAttendee<<24 | dInt | 3
	AttendeeUID          = groupAttendee<<24 | dStr | 4
	AttendeeGroup        = groupAttendee<<24 | dStr | 5
	AttendeeEmail        = groupAttendee<<24 | dStr | 6
	AttendeeRole         = groupAttendee<<24 | dInt | 7
	AttendeeStatus       = groupAttendee<<24 | dInt | 8
	AttendeeRSVP         = groupAttendee<<24 | dInt | 9
	AttendeeDelegateeURI = groupAttendee<<24 | dStr | 10
	AttendeeDelegatorURI = groupAttendee<<24 | dStr | 11
	AttendeeName         = groupAttendee<<24 | dStr | 12
	AttendeeMember       = groupAttendee<<24 | dStr | 13
)

// Attendee is a participant of an event or todo.
type Attendee struct {
	Envelope
	ID           int32
	ParentID     int32
	Number       sql.NullString
	CUType       int32
	UID          sql.NullString
	Group        sql.NullString
	Email        sql.NullString
	Role         int32
	Status       int32
	RSVP         int32
	DelegateeURI sql.NullString
	DelegatorURI sql.NullString
	Name         sql.NullString
	Member       sql.NullString
}

func NewAttendee() *Attendee {
	return &Attendee{Envelope: Envelope{Type: TypeAttendee, ViewURI: ViewAttendee}}
}

func (*Attendee) defaultType() Type { return TypeAttendee }

var attendeeProperties = []property{
	prop(AttendeeID, "id", func(a *Attendee) any { return &a.ID }),
	prop(AttendeeParentID, "parent_id", func(a *Attendee) any { return &a.ParentID }),
	prop(AttendeeNumber, "number", func(a *Attendee) any { return &a.Number }),
	prop(AttendeeCUType, "cutype", func(a *Attendee) any { return &a.CUType }),
	prop(AttendeeUID, "uid", func(a *Attendee) any { return &a.UID }),
	prop(AttendeeGroup, "group", func(a *Attendee) any { return &a.Group }),
	prop(AttendeeEmail, "email", func(a *Attendee) any { return &a.Email }),
	prop(AttendeeRole, "role", func(a *Attendee) any { return &a.Role }),
	prop(AttendeeStatus, "status", func(a *Attendee) any { return &a.Status }),
	prop(AttendeeRSVP, "rsvp", func(a *Attendee) any { return &a.RSVP }),
	prop(AttendeeDelegateeURI, "delegatee_uri", func(a *Attendee) any { return &a.DelegateeURI }),
	prop(AttendeeDelegatorURI, "delegator_uri", func(a *Attendee) any { return &a.DelegatorURI }),
	prop(AttendeeName, "name", func(a *Attendee) any { return &a.Name }),
	prop(AttendeeMember, "member", func(a *Attendee) any { return &a.Member }),
}

// Alarm properties.
const (
	AlarmID          = groupAlarm<<24 | dInt | 0
	AlarmParentID    = groupAlarm<<24 | dInt | 1
	AlarmTick        = groupAlarm<<24 | dInt | 2
	AlarmTickUnit    = groupAlarm<<24 | dInt | 3
	AlarmDescription = groupAlarm<<24 | dStr | 4
	AlarmSummary     = groupAlarm<<24 | dStr | 5
	AlarmAction      = groupAlarm<<24 | dInt | 6
	AlarmAttach      = groupAlarm<<24 | dStr | 7
	AlarmTime        = groupAlarm<<24 | dTime | 8
)

// Alarm is a reminder attached to an event or todo. With TickUnitSpecific it
// fires at AlarmTime, otherwise Tick*TickUnit seconds before the parent's
// start.
type Alarm struct {
	Envelope
	ID          int32
	ParentID    int32
	Tick        int32
	TickUnit    int32
	Description sql.NullString
	Summary     sql.NullString
	Action      int32
	Attach      sql.NullString
	AlarmTime   CalTime
}

func NewAlarm() *Alarm {
	return &Alarm{Envelope: Envelope{Type: TypeAlarm, ViewURI: ViewAlarm}}
}

func (*Alarm) defaultType() Type { return TypeAlarm }

var alarmProperties = []property{
	prop(AlarmID, "id", func(a *Alarm) any { return &a.ID }),
	prop(AlarmParentID, "parent_id", func(a *Alarm) any { return &a.ParentID }),
	prop(AlarmTick, "tick", func(a *Alarm) any { return &a.Tick }),
	prop(AlarmTickUnit, "tick_unit", func(a *Alarm) any { return &a.TickUnit }),
	prop(AlarmDescription, "description", func(a *Alarm) any { return &a.Description }),
	prop(AlarmSummary, "summary", func(a *Alarm) any { return &a.Summary }),
	prop(AlarmAction, "action", func(a *Alarm) any { return &a.Action }),
	prop(AlarmAttach, "attach", func(a *Alarm) any { return &a.Attach }),
	prop(AlarmTime, "alarm_time", func(a *Alarm) any { return &a.AlarmTime }),
}

// Extended properties.
const (
	ExtendedID         = groupExtended<<24 | dInt | 0
	ExtendedRecordID   = groupExtended<<24 | dInt | 1
	ExtendedRecordType = groupExtended<<24 | dInt | 2
	ExtendedKey        = groupExtended<<24 | dStr | 3
	ExtendedValue      = groupExtended<<24 | dStr | 4
)

// Extended is a free-form key/value attached to a book, event or todo. It
// carries the X- properties a vCalendar import could not map.
type Extended struct {
	Envelope
	ID         int32
	RecordID   int32
	RecordType int32
	Key        sql.NullString
	Value      sql.NullString
}

func NewExtended() *Extended {
	return &Extended{Envelope: Envelope{Type: TypeExtended, ViewURI: ViewExtended}}
}

func (*Extended) defaultType() Type { return TypeExtended }

var extendedProperties = []property{
	prop(ExtendedID, "id", func(x *Extended) any { return &x.ID }),
	prop(ExtendedRecordID, "record_id", func(x *Extended) any { return &x.RecordID }),
	prop(ExtendedRecordType, "record_type", func(x *Extended) any { return &x.RecordType }),
	prop(ExtendedKey, "key", func(x *Extended) any { return &x.Key }),
	prop(ExtendedValue, "value", func(x *Extended) any { return &x.Value }),
}

// UpdatedInfo properties.
const (
	UpdatedInfoID      = groupUpdatedInfo<<24 | dInt | 0
	UpdatedInfoBookID  = groupUpdatedInfo<<24 | dInt | 1
	UpdatedInfoType    = groupUpdatedInfo<<24 | dInt | 2
	UpdatedInfoVersion = groupUpdatedInfo<<24 | dInt64 | 3
)

// UpdatedInfo reports one change returned by a changes-since-version query:
// the record id, its book, the change kind (ChangeInserted, ChangeUpdated,
// ChangeDeleted) and the version that last touched it.
type UpdatedInfo struct {
	Envelope
	ID      int32
	BookID  int32
	Type    int32
	Version int64
}

func NewUpdatedInfo() *UpdatedInfo {
	return &UpdatedInfo{Envelope: Envelope{Type: TypeUpdatedInfo, ViewURI: ViewUpdatedInfo}}
}

func (*UpdatedInfo) defaultType() Type { return TypeUpdatedInfo }

var updatedInfoProperties = []property{
	prop(UpdatedInfoID, "id", func(u *UpdatedInfo) any { return &u.ID }),
	prop(UpdatedInfoBookID, "book_id", func(u *UpdatedInfo) any { return &u.BookID }),
	prop(UpdatedInfoType, "type", func(u *UpdatedInfo) any { return &u.Type }),
	prop(UpdatedInfoVersion, "version", func(u *UpdatedInfo) any { return &u.Version }),
}
