package vcal

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/emersion/go-ical"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
)

// ProductID identifies exported calendars.
const ProductID = "-//calstore//calstore//EN"

const (
	dateTimeUTC   = "20060102T150405Z"
	dateTimeLocal = "20060102T150405"
)

// Encode writes events, todos and timezones as one VCALENDAR. Other record
// types are skipped. now stamps DTSTAMP on every component.
func Encode(w io.Writer, rs []record.Record, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, r := range rs {
		switch v := r.(type) {
		case *record.Event:
			cal.Children = append(cal.Children, encodeEvent(v, now)...)
		case *record.Todo:
			cal.Children = append(cal.Children, encodeTodo(v, now))
		case *record.Timezone:
			if v.TZID.Valid {
				cal.Children = append(cal.Children, encodeTimezone(v))
			}
		}
	}
	if len(cal.Children) == 0 {
		return calerr.New(calerr.NoData, "encode vcalendar", "nothing to export")
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode vcalendar: %w", err)
	}
	return nil
}

// encodeEvent returns the event followed by its exceptions.
func encodeEvent(e *record.Event, now time.Time) []*ical.Component {
	c := ical.NewComponent(ical.CompEvent)
	common(c, e.UID, e.ID, e.LastModified, now)
	setText(c, ical.PropSummary, e.Summary)
	setText(c, ical.PropDescription, e.Description)
	setText(c, ical.PropLocation, e.Location)
	setText(c, ical.PropCategories, e.Categories)
	setRaw(c, ical.PropRecurrenceRule, e.RRule)
	setRaw(c, ical.PropRecurrenceID, e.RecurrenceID)
	setEnum(c, ical.PropStatus, eventStatuses, e.Status)
	setInt(c, ical.PropPriority, e.Priority)
	setPerson(c, ical.PropOrganizer, e.OrganizerName, e.OrganizerEmail)
	setTime(c, ical.PropDateTimeStart, e.Start, e.StartTZID)
	setTime(c, ical.PropDateTimeEnd, e.End, e.EndTZID)
	children(c, e.Alarms, e.Attendees, e.Extended)

	out := []*ical.Component{c}
	for _, x := range e.Exceptions {
		xc := *x
		if !xc.UID.Valid {
			xc.UID = e.UID
		}
		out = append(out, encodeEvent(&xc, now)...)
	}
	return out
}

func encodeTodo(t *record.Todo, now time.Time) *ical.Component {
	c := ical.NewComponent(ical.CompToDo)
	common(c, t.UID, t.ID, t.LastModified, now)
	setText(c, ical.PropSummary, t.Summary)
	setText(c, ical.PropDescription, t.Description)
	setText(c, ical.PropLocation, t.Location)
	setText(c, ical.PropCategories, t.Categories)
	setRaw(c, ical.PropRecurrenceRule, t.RRule)
	setEnum(c, ical.PropStatus, todoStatuses, t.Status)
	setInt(c, ical.PropPriority, t.Priority)
	setInt(c, ical.PropPercentComplete, t.Progress)
	setPerson(c, ical.PropOrganizer, t.OrganizerName, t.OrganizerEmail)
	setTime(c, ical.PropDateTimeStart, t.Start, t.StartTZID)
	setTime(c, ical.PropDue, t.Due, t.DueTZID)
	if t.CompletedTime != 0 {
		setRaw(c, ical.PropCompleted, record.Str(time.Unix(t.CompletedTime, 0).UTC().Format(dateTimeUTC)))
	}
	children(c, t.Alarms, t.Attendees, t.Extended)
	return c
}

func encodeTimezone(tz *record.Timezone) *ical.Component {
	c := ical.NewComponent(ical.CompTimezone)
	setRaw(c, ical.PropTimezoneID, tz.TZID)

	std := ical.NewComponent("STANDARD")
	setRaw(std, ical.PropDateTimeStart, record.Str("19700101T000000"))
	setRaw(std, "TZOFFSETFROM", record.Str(formatOffset(tz.OffsetFromGMT)))
	setRaw(std, "TZOFFSETTO", record.Str(formatOffset(tz.OffsetFromGMT)))
	setText(std, "TZNAME", tz.StandardName)
	c.Children = append(c.Children, std)

	if tz.DaylightName.Valid {
		day := ical.NewComponent("DAYLIGHT")
		setRaw(day, ical.PropDateTimeStart, record.Str("19700101T000000"))
		setRaw(day, "TZOFFSETFROM", record.Str(formatOffset(tz.OffsetFromGMT)))
		setRaw(day, "TZOFFSETTO", record.Str(formatOffset(tz.OffsetFromGMT+tz.DaylightBias)))
		setText(day, "TZNAME", tz.DaylightName)
		c.Children = append(c.Children, day)
	}
	return c
}

// common sets the properties every component must carry. Records without a
// UID get one derived from their id.
func common(c *ical.Component, uid sql.NullString, id int32, modified int64, now time.Time) {
	if !uid.Valid {
		uid = record.Str(fmt.Sprintf("calstore-%d", id))
	}
	setText(c, ical.PropUID, uid)
	stamp := now
	if modified != 0 {
		stamp = time.Unix(modified, 0)
	}
	setRaw(c, ical.PropDateTimeStamp, record.Str(stamp.UTC().Format(dateTimeUTC)))
}

func children(c *ical.Component, alarms []*record.Alarm, attendees []*record.Attendee, ext []*record.Extended) {
	for _, a := range alarms {
		sub := ical.NewComponent(ical.CompAlarm)
		setEnum(sub, ical.PropAction, actions, a.Action)
		if sub.Props.Get(ical.PropAction) == nil {
			setRaw(sub, ical.PropAction, record.Str("AUDIO"))
		}
		desc := a.Description
		if a.Action == actions["DISPLAY"] && !desc.Valid {
			desc = record.Str("Reminder")
		}
		setText(sub, ical.PropDescription, desc)
		setText(sub, ical.PropSummary, a.Summary)

		trig := newProp(ical.PropTrigger)
		if a.TickUnit == record.TickUnitSpecific {
			trig.Params.Set("VALUE", "DATE-TIME")
			trig.Value = formatTime(a.AlarmTime)
		} else {
			trig.Value = formatDuration(a.Tick, a.TickUnit)
		}
		setProp(sub, trig)
		c.Children = append(c.Children, sub)
	}

	for _, a := range attendees {
		p := newProp(ical.PropAttendee)
		p.Value = "mailto:" + a.Email.String
		if a.Name.Valid {
			p.Params.Set("CN", a.Name.String)
		}
		if role := keyOf(roles, a.Role); role != "" {
			p.Params.Set("ROLE", role)
		}
		if stat := keyOf(partStats, a.Status); stat != "" {
			p.Params.Set("PARTSTAT", stat)
		}
		if a.RSVP != 0 {
			p.Params.Set("RSVP", "TRUE")
		}
		addProp(c, p)
	}

	for _, x := range ext {
		if !x.Key.Valid {
			continue
		}
		p := newProp(x.Key.String)
		p.Value = x.Value.String
		addProp(c, p)
	}
}

func setText(c *ical.Component, name string, v sql.NullString) {
	if v.Valid {
		c.Props.SetText(name, v.String)
	}
}

func setRaw(c *ical.Component, name string, v sql.NullString) {
	if !v.Valid {
		return
	}
	p := newProp(name)
	p.Value = v.String
	setProp(c, p)
}

func setInt(c *ical.Component, name string, v int32) {
	if v != 0 {
		setRaw(c, name, record.Str(strconv.Itoa(int(v))))
	}
}

func setEnum(c *ical.Component, name string, values map[string]int32, v int32) {
	if k := keyOf(values, v); k != "" {
		setRaw(c, name, record.Str(k))
	}
}

func setPerson(c *ical.Component, name string, cn, email sql.NullString) {
	if !email.Valid {
		return
	}
	p := newProp(name)
	p.Value = "mailto:" + email.String
	if cn.Valid {
		p.Params.Set("CN", cn.String)
	}
	setProp(c, p)
}

func setTime(c *ical.Component, name string, t record.CalTime, tzid sql.NullString) {
	if t.IsZero() {
		return
	}
	p := newProp(name)
	p.Value = formatTime(t)
	if t.Kind == record.TimeUTime && tzid.Valid {
		if loc, err := time.LoadLocation(tzid.String); err == nil {
			p.Params.Set("TZID", tzid.String)
			p.Value = t.Time(nil).In(loc).Format(dateTimeLocal)
		}
	}
	setProp(c, p)
}

func formatTime(t record.CalTime) string {
	if t.Kind == record.TimeLocal {
		return t.Time(time.UTC).Format(dateTimeLocal)
	}
	return t.Time(nil).Format(dateTimeUTC)
}

func formatOffset(sec int32) string {
	sign := '+'
	if sec < 0 {
		sign, sec = '-', -sec
	}
	return fmt.Sprintf("%c%02d%02d", sign, sec/3600, sec%3600/60)
}

// keyOf finds the name of a non-zero enum value.
func keyOf(values map[string]int32, v int32) string {
	for k, n := range values {
		if n == v && n != 0 {
			return k
		}
	}
	return ""
}

func newProp(name string) *ical.Prop {
	p := ical.NewProp(name)
	if p.Params == nil {
		p.Params = make(ical.Params)
	}
	return p
}

func setProp(c *ical.Component, p *ical.Prop) {
	c.Props[p.Name] = []ical.Prop{*p}
}

func addProp(c *ical.Component, p *ical.Prop) {
	c.Props[p.Name] = append(c.Props[p.Name], *p)
}
