package record

import "fmt"

// Type is the record type tag written at the head of every marshaled record.
// The numeric values are part of the wire format.
type Type int32

const (
	TypeInvalid Type = iota
	TypeBook
	TypeEvent
	TypeTodo
	TypeTimezone
	TypeAttendee
	TypeAlarm
	TypeInstanceUTime
	TypeInstanceLocalTime
	TypeInstanceUTimeExtended
	TypeInstanceLocalTimeExtended
	TypeExtended
	TypeSearch
	TypeUpdatedInfo
)

var typeNames = map[Type]string{
	TypeBook:                      "book",
	TypeEvent:                     "event",
	TypeTodo:                      "todo",
	TypeTimezone:                  "timezone",
	TypeAttendee:                  "attendee",
	TypeAlarm:                     "alarm",
	TypeInstanceUTime:             "instance_utime",
	TypeInstanceLocalTime:         "instance_localtime",
	TypeInstanceUTimeExtended:     "instance_utime_extended",
	TypeInstanceLocalTimeExtended: "instance_localtime_extended",
	TypeExtended:                  "extended",
	TypeSearch:                    "search",
	TypeUpdatedInfo:               "updated_info",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int32(t))
}

// View URIs name the logical tables. They double as dispatch keys and as the
// table names the storage layer maps records to.
const (
	ViewBook                      = "calstore.view.book"
	ViewEvent                     = "calstore.view.event"
	ViewTodo                      = "calstore.view.todo"
	ViewTimezone                  = "calstore.view.timezone"
	ViewAttendee                  = "calstore.view.attendee"
	ViewAlarm                     = "calstore.view.alarm"
	ViewInstanceUTime             = "calstore.view.instance_utime"
	ViewInstanceLocalTime         = "calstore.view.instance_localtime"
	ViewInstanceUTimeExtended     = "calstore.view.instance_utime_extended"
	ViewInstanceLocalTimeExtended = "calstore.view.instance_localtime_extended"
	ViewExtended                  = "calstore.view.extended"
	ViewUpdatedInfo               = "calstore.view.updated_info"
)

// DataType is the value type of a property. It is encoded in the property id
// and selects how a filter operand or search value travels on the wire.
type DataType int32

const (
	DataInvalid DataType = iota
	DataString
	DataInt
	DataDouble
	DataInt64
	DataTime
	DataRecord
)

func (d DataType) String() string {
	switch d {
	case DataString:
		return "string"
	case DataInt:
		return "int"
	case DataDouble:
		return "double"
	case DataInt64:
		return "int64"
	case DataTime:
		return "caltime"
	case DataRecord:
		return "record"
	}
	return fmt.Sprintf("datatype(%d)", int32(d))
}

// PropertyID identifies a property of a view.
//
// Layout: bits 24-31 view group, bits 16-23 data type, bits 0-15 index.
type PropertyID uint32

// DataType returns the value type encoded in the id.
func (p PropertyID) DataType() DataType { return DataType((p >> 16) & 0xff) }

// Group returns the view group encoded in the id.
func (p PropertyID) Group() uint8 { return uint8(p >> 24) }

func (p PropertyID) String() string { return fmt.Sprintf("0x%08x", uint32(p)) }

// View groups.
const (
	groupBook PropertyID = iota + 1
	groupEvent
	groupTodo
	groupTimezone
	groupAttendee
	groupAlarm
	groupInstanceUTime
	groupInstanceLocalTime
	groupInstanceUTimeExtended
	groupInstanceLocalTimeExtended
	groupExtended
	groupUpdatedInfo
)

const (
	dStr    = PropertyID(DataString) << 16
	dInt    = PropertyID(DataInt) << 16
	dDouble = PropertyID(DataDouble) << 16
	dInt64  = PropertyID(DataInt64) << 16
	dTime   = PropertyID(DataTime) << 16
	dRecord = PropertyID(DataRecord) << 16
)

// Envelope flag bits, one byte per property.
const (
	FlagProjection byte = 0x01
	FlagDirty      byte = 0x02
)

// Book modes.
const (
	BookModeDefault  int32 = 0
	BookModeReadOnly int32 = 1
)

// Book store types.
const (
	StoreTypeNone  int32 = 0
	StoreTypeEvent int32 = 1 << 0
	StoreTypeTodo  int32 = 1 << 1
)

// Alarm tick units, in seconds. TickUnitSpecific means the alarm fires at
// its absolute AlarmTime.
const (
	TickUnitSpecific int32 = 1
	TickUnitMinute   int32 = 60
	TickUnitHour     int32 = 3600
	TickUnitDay      int32 = 86400
	TickUnitWeek     int32 = 604800
)

// Change kinds reported in UpdatedInfo records.
const (
	ChangeInserted int32 = 0
	ChangeUpdated  int32 = 1
	ChangeDeleted  int32 = 2
)
