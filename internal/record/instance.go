package record

import "database/sql"

// Instance is one occurrence of an event, materialized by the store.
// The four instance views share this shape; the utime views carry UTime
// start/end values, the localtime views carry all-day local values, and the
// extended views add organizer, categories and attendee fields.
type Instance struct {
	Envelope
	EventID         int32
	BookID          int32
	Start           CalTime
	End             CalTime
	Summary         sql.NullString
	Location        sql.NullString
	Description     sql.NullString
	BusyStatus      int32
	EventStatus     int32
	Priority        int32
	Sensitivity     int32
	HasRRule        int32
	Latitude        float64
	Longitude       float64
	HasAlarm        int32
	OriginalEventID int32
	LastModified    int64

	OrganizerName sql.NullString
	Categories    sql.NullString
	HasAttendee   int32
	SyncData1     sql.NullString
}

func (*Instance) defaultType() Type { return TypeInstanceUTime }

// NewInstance returns an empty instance for one of the instance types.
func NewInstance(t Type) (*Instance, bool) {
	for _, v := range instanceVariants {
		if v.typ == t {
			return newInstance(v.typ, v.view), true
		}
	}
	return nil, false
}

func newInstance(t Type, view string) *Instance {
	return &Instance{Envelope: Envelope{Type: t, ViewURI: view}}
}

// IsInstance reports whether t is one of the instance types.
func IsInstance(t Type) bool {
	switch t {
	case TypeInstanceUTime, TypeInstanceLocalTime, TypeInstanceUTimeExtended, TypeInstanceLocalTimeExtended:
		return true
	}
	return false
}

// Instance properties, per view.
const (
	InstanceUTimeEventID         = groupInstanceUTime<<24 | dInt | 0
	InstanceUTimeBookID          = groupInstanceUTime<<24 | dInt | 1
	InstanceUTimeStart           = groupInstanceUTime<<24 | dTime | 2
	InstanceUTimeEnd             = groupInstanceUTime<<24 | dTime | 3
	InstanceUTimeSummary         = groupInstanceUTime<<24 | dStr | 4
	InstanceUTimeLocation        = groupInstanceUTime<<24 | dStr | 5
	InstanceUTimeDescription     = groupInstanceUTime<<24 | dStr | 6
	InstanceUTimeBusyStatus      = groupInstanceUTime<<24 | dInt | 7
	InstanceUTimeEventStatus     = groupInstanceUTime<<24 | dInt | 8
	InstanceUTimePriority        = groupInstanceUTime<<24 | dInt | 9
	InstanceUTimeSensitivity     = groupInstanceUTime<<24 | dInt | 10
	InstanceUTimeHasRRule        = groupInstanceUTime<<24 | dInt | 11
	InstanceUTimeLatitude        = groupInstanceUTime<<24 | dDouble | 12
	InstanceUTimeLongitude       = groupInstanceUTime<<24 | dDouble | 13
	InstanceUTimeHasAlarm        = groupInstanceUTime<<24 | dInt | 14
	InstanceUTimeOriginalEventID = groupInstanceUTime<<24 | dInt | 15
	InstanceUTimeLastModified    = groupInstanceUTime<<24 | dInt64 | 16

	InstanceLocalTimeEventID         = groupInstanceLocalTime<<24 | dInt | 0
	InstanceLocalTimeBookID          = groupInstanceLocalTime<<24 | dInt | 1
	InstanceLocalTimeStart           = groupInstanceLocalTime<<24 | dTime | 2
	InstanceLocalTimeEnd             = groupInstanceLocalTime<<24 | dTime | 3
	InstanceLocalTimeSummary         = groupInstanceLocalTime<<24 | dStr | 4
	InstanceLocalTimeLocation        = groupInstanceLocalTime<<24 | dStr | 5
	InstanceLocalTimeDescription     = groupInstanceLocalTime<<24 | dStr | 6
	InstanceLocalTimeBusyStatus      = groupInstanceLocalTime<<24 | dInt | 7
	InstanceLocalTimeEventStatus     = groupInstanceLocalTime<<24 | dInt | 8
	InstanceLocalTimePriority        = groupInstanceLocalTime<<24 | dInt | 9
	InstanceLocalTimeSensitivity     = groupInstanceLocalTime<<24 | dInt | 10
	InstanceLocalTimeHasRRule        = groupInstanceLocalTime<<24 | dInt | 11
	InstanceLocalTimeLatitude        = groupInstanceLocalTime<<24 | dDouble | 12
	InstanceLocalTimeLongitude       = groupInstanceLocalTime<<24 | dDouble | 13
	InstanceLocalTimeHasAlarm        = groupInstanceLocalTime<<24 | dInt | 14
	InstanceLocalTimeOriginalEventID = groupInstanceLocalTime<<24 | dInt | 15
	InstanceLocalTimeLastModified    = groupInstanceLocalTime<<24 | dInt64 | 16

	InstanceUTimeExtEventID         = groupInstanceUTimeExtended<<24 | dInt | 0
	InstanceUTimeExtBookID          = groupInstanceUTimeExtended<<24 | dInt | 1
	InstanceUTimeExtStart           = groupInstanceUTimeExtended<<24 | dTime | 2
	InstanceUTimeExtEnd             = groupInstanceUTimeExtended<<24 | dTime | 3
	InstanceUTimeExtSummary         = groupInstanceUTimeExtended<<24 | dStr | 4
	InstanceUTimeExtLocation        = groupInstanceUTimeExtended<<24 | dStr | 5
	InstanceUTimeExtDescription     = groupInstanceUTimeExtended<<24 | dStr | 6
	InstanceUTimeExtBusyStatus      = groupInstanceUTimeExtended<<24 | dInt | 7
	InstanceUTimeExtEventStatus     = groupInstanceUTimeExtended<<24 | dInt | 8
	InstanceUTimeExtPriority        = groupInstanceUTimeExtended<<24 | dInt | 9
	InstanceUTimeExtSensitivity     = groupInstanceUTimeExtended<<24 | dInt | 10
	InstanceUTimeExtHasRRule        = groupInstanceUTimeExtended<<24 | dInt | 11
	InstanceUTimeExtLatitude        = groupInstanceUTimeExtended<<24 | dDouble | 12
	InstanceUTimeExtLongitude       = groupInstanceUTimeExtended<<24 | dDouble | 13
	InstanceUTimeExtHasAlarm        = groupInstanceUTimeExtended<<24 | dInt | 14
	InstanceUTimeExtOriginalEventID = groupInstanceUTimeExtended<<24 | dInt | 15
	InstanceUTimeExtLastModified    = groupInstanceUTimeExtended<<24 | dInt64 | 16
	InstanceUTimeExtOrganizerName   = groupInstanceUTimeExtended<<24 | dStr | 17
	InstanceUTimeExtCategories      = groupInstanceUTimeExtended<<24 | dStr | 18
	InstanceUTimeExtHasAttendee     = groupInstanceUTimeExtended<<24 | dInt | 19
	InstanceUTimeExtSyncData1       = groupInstanceUTimeExtended<<24 | dStr | 20

	InstanceLocalTimeExtEventID         = groupInstanceLocalTimeExtended<<24 | dInt | 0
	InstanceLocalTimeExtBookID          = groupInstanceLocalTimeExtended<<24 | dInt | 1
	InstanceLocalTimeExtStart           = groupInstanceLocalTimeExtended<<24 | dTime | 2
	InstanceLocalTimeExtEnd             = groupInstanceLocalTimeExtended<<24 | dTime | 3
	InstanceLocalTimeExtSummary         = groupInstanceLocalTimeExtended<<24 | dStr | 4
	InstanceLocalTimeExtLocation        = groupInstanceLocalTimeExtended<<24 | dStr | 5
	InstanceLocalTimeExtDescription     = groupInstanceLocalTimeExtended<<24 | dStr | 6
	InstanceLocalTimeExtBusyStatus      = groupInstanceLocalTimeExtended<<24 | dInt | 7
	InstanceLocalTimeExtEventStatus     = groupInstanceLocalTimeExtended<<24 | dInt | 8
	InstanceLocalTimeExtPriority        = groupInstanceLocalTimeExtended<<24 | dInt | 9
	InstanceLocalTimeExtSensitivity     = groupInstanceLocalTimeExtended<<24 | dInt | 10
	InstanceLocalTimeExtHasRRule        = groupInstanceLocalTimeExtended<<24 | dInt | 11
	InstanceLocalTimeExtLatitude        = groupInstanceLocalTimeExtended<<24 | dDouble | 12
	InstanceLocalTimeExtLongitude       = groupInstanceLocalTimeExtended<<24 | dDouble | 13
	InstanceLocalTimeExtHasAlarm        = groupInstanceLocalTimeExtended<<24 | dInt | 14
	InstanceLocalTimeExtOriginalEventID = groupInstanceLocalTimeExtended<<24 | dInt | 15
	InstanceLocalTimeExtLastModified    = groupInstanceLocalTimeExtended<<24 | dInt64 | 16
	InstanceLocalTimeExtOrganizerName   = groupInstanceLocalTimeExtended<<24 | dStr | 17
	InstanceLocalTimeExtCategories      = groupInstanceLocalTimeExtended<<24 | dStr | 18
	InstanceLocalTimeExtHasAttendee     = groupInstanceLocalTimeExtended<<24 | dInt | 19
	InstanceLocalTimeExtSyncData1       = groupInstanceLocalTimeExtended<<24 | dStr | 20
)

// instanceTable builds the property table of one instance view from its
// group. Every view shares index and name; only the group differs.
func instanceTable(group PropertyID, extended bool) []property {
	id := func(dt, idx PropertyID) PropertyID { return group<<24 | dt | idx }
	props := []property{
		prop(id(dInt, 0), "event_id", func(i *Instance) any { return &i.EventID }),
		prop(id(dInt, 1), "book_id", func(i *Instance) any { return &i.BookID }),
		prop(id(dTime, 2), "start", func(i *Instance) any { return &i.Start }),
		prop(id(dTime, 3), "end", func(i *Instance) any { return &i.End }),
		prop(id(dStr, 4), "summary", func(i *Instance) any { return &i.Summary }),
		prop(id(dStr, 5), "location", func(i *Instance) any { return &i.Location }),
		prop(id(dStr, 6), "description", func(i *Instance) any { return &i.Description }),
		prop(id(dInt, 7), "busy_status", func(i *Instance) any { return &i.BusyStatus }),
		prop(id(dInt, 8), "event_status", func(i *Instance) any { return &i.EventStatus }),
		prop(id(dInt, 9), "priority", func(i *Instance) any { return &i.Priority }),
		prop(id(dInt, 10), "sensitivity", func(i *Instance) any { return &i.Sensitivity }),
		prop(id(dInt, 11), "has_rrule", func(i *Instance) any { return &i.HasRRule }),
		prop(id(dDouble, 12), "latitude", func(i *Instance) any { return &i.Latitude }),
		prop(id(dDouble, 13), "longitude", func(i *Instance) any { return &i.Longitude }),
		prop(id(dInt, 14), "has_alarm", func(i *Instance) any { return &i.HasAlarm }),
		prop(id(dInt, 15), "original_event_id", func(i *Instance) any { return &i.OriginalEventID }),
		prop(id(dInt64, 16), "last_modified", func(i *Instance) any { return &i.LastModified }),
	}
	if extended {
		props = append(props,
			prop(id(dStr, 17), "organizer_name", func(i *Instance) any { return &i.OrganizerName }),
			prop(id(dStr, 18), "categories", func(i *Instance) any { return &i.Categories }),
			prop(id(dInt, 19), "has_attendee", func(i *Instance) any { return &i.HasAttendee }),
			prop(id(dStr, 20), "sync_data1", func(i *Instance) any { return &i.SyncData1 }),
		)
	}
	return props
}

var instanceVariants = []struct {
	typ   Type
	view  string
	props []property
}{
	{TypeInstanceUTime, ViewInstanceUTime, instanceTable(groupInstanceUTime, false)},
	{TypeInstanceLocalTime, ViewInstanceLocalTime, instanceTable(groupInstanceLocalTime, false)},
	{TypeInstanceUTimeExtended, ViewInstanceUTimeExtended, instanceTable(groupInstanceUTimeExtended, true)},
	{TypeInstanceLocalTimeExtended, ViewInstanceLocalTimeExtended, instanceTable(groupInstanceLocalTimeExtended, true)},
}
