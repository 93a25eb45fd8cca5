// Package vcal converts between vCalendar text and calendar records.
//
// Decoding maps VEVENT, VTODO and VTIMEZONE components to events, todos and
// timezones; nested VALARMs and ATTENDEE properties become child records,
// X- properties become extended properties, and events carrying a
// RECURRENCE-ID whose UID matches another event of the same text become that
// event's exceptions. Recurrence rules are carried verbatim.
package vcal

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
)

// Event status values.
const (
	EventStatusNone      int32 = 0
	EventStatusTentative int32 = 1
	EventStatusConfirmed int32 = 2
	EventStatusCancelled int32 = 3
)

// Todo status values.
const (
	TodoStatusNone        int32 = 0
	TodoStatusNeedsAction int32 = 1
	TodoStatusCompleted   int32 = 2
	TodoStatusInProcess   int32 = 3
	TodoStatusCancelled   int32 = 4
)

var (
	eventStatuses = map[string]int32{"TENTATIVE": EventStatusTentative, "CONFIRMED": EventStatusConfirmed, "CANCELLED": EventStatusCancelled}
	todoStatuses  = map[string]int32{"NEEDS-ACTION": TodoStatusNeedsAction, "COMPLETED": TodoStatusCompleted, "IN-PROCESS": TodoStatusInProcess, "CANCELLED": TodoStatusCancelled}
	roles         = map[string]int32{"REQ-PARTICIPANT": 0, "OPT-PARTICIPANT": 1, "NON-PARTICIPANT": 2, "CHAIR": 3}
	partStats     = map[string]int32{"NEEDS-ACTION": 0, "ACCEPTED": 1, "DECLINED": 2, "TENTATIVE": 3, "DELEGATED": 4}
	actions       = map[string]int32{"AUDIO": 0, "DISPLAY": 1, "EMAIL": 2}
)

// Decode parses every VCALENDAR in text into records of book, in document
// order. Exceptions are attached to their master event instead of being
// returned on their own.
func Decode(text string, book int32) ([]record.Record, error) {
	dec := ical.NewDecoder(strings.NewReader(text))
	var out []record.Record
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, calerr.Wrap(calerr.InvalidParameter, "decode vcalendar", err)
		}
		rs, err := decodeCalendar(cal, book)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	if len(out) == 0 {
		return nil, calerr.New(calerr.InvalidParameter, "decode vcalendar", "no components")
	}
	return out, nil
}

func decodeCalendar(cal *ical.Calendar, book int32) ([]record.Record, error) {
	var (
		out        []record.Record
		masters    = make(map[string]*record.Event)
		exceptions []*record.Event
	)
	for _, c := range cal.Children {
		switch c.Name {
		case ical.CompEvent:
			e, err := decodeEvent(c, book)
			if err != nil {
				return nil, err
			}
			if e.RecurrenceID.Valid {
				exceptions = append(exceptions, e)
				continue
			}
			if e.UID.Valid {
				masters[e.UID.String] = e
			}
			out = append(out, e)
		case ical.CompToDo:
			t, err := decodeTodo(c, book)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		case ical.CompTimezone:
			out = append(out, decodeTimezone(c, book))
		}
	}
	for _, x := range exceptions {
		m, ok := masters[x.UID.String]
		if !ok {
			// An exception without its master stands alone.
			out = append(out, x)
			continue
		}
		x.BookID = 0
		m.Exceptions = append(m.Exceptions, x)
	}
	return out, nil
}

func decodeEvent(c *ical.Component, book int32) (*record.Event, error) {
	e := record.NewEvent()
	e.BookID = book
	e.UID = text(c, ical.PropUID)
	e.Summary = text(c, ical.PropSummary)
	e.Description = text(c, ical.PropDescription)
	e.Location = text(c, ical.PropLocation)
	e.Categories = text(c, ical.PropCategories)
	e.RRule = raw(c, ical.PropRecurrenceRule)
	e.RecurrenceID = raw(c, ical.PropRecurrenceID)
	e.Status = eventStatuses[strings.ToUpper(raw(c, ical.PropStatus).String)]
	e.Priority = integer(c, ical.PropPriority)
	e.OrganizerName, e.OrganizerEmail = person(c.Props.Get(ical.PropOrganizer))

	var err error
	if e.Start, e.StartTZID, err = calTime(c.Props.Get(ical.PropDateTimeStart)); err != nil {
		return nil, err
	}
	if e.End, e.EndTZID, err = calTime(c.Props.Get(ical.PropDateTimeEnd)); err != nil {
		return nil, err
	}
	if e.Alarms, err = decodeAlarms(c); err != nil {
		return nil, err
	}
	e.Attendees = decodeAttendees(c)
	e.Extended = decodeExtended(c)
	return e, nil
}

func decodeTodo(c *ical.Component, book int32) (*record.Todo, error) {
	t := record.NewTodo()
	t.BookID = book
	t.UID = text(c, ical.PropUID)
	t.Summary = text(c, ical.PropSummary)
	t.Description = text(c, ical.PropDescription)
	t.Location = text(c, ical.PropLocation)
	t.Categories = text(c, ical.PropCategories)
	t.RRule = raw(c, ical.PropRecurrenceRule)
	t.Status = todoStatuses[strings.ToUpper(raw(c, ical.PropStatus).String)]
	t.Priority = integer(c, ical.PropPriority)
	t.Progress = integer(c, ical.PropPercentComplete)
	t.OrganizerName, t.OrganizerEmail = person(c.Props.Get(ical.PropOrganizer))

	var err error
	if t.Start, t.StartTZID, err = calTime(c.Props.Get(ical.PropDateTimeStart)); err != nil {
		return nil, err
	}
	if t.Due, t.DueTZID, err = calTime(c.Props.Get(ical.PropDue)); err != nil {
		return nil, err
	}
	if p := c.Props.Get(ical.PropCompleted); p != nil {
		done, err := p.DateTime(time.UTC)
		if err != nil {
			return nil, calerr.Wrap(calerr.InvalidParameter, "decode COMPLETED", err)
		}
		t.CompletedTime = done.Unix()
	}
	if t.Alarms, err = decodeAlarms(c); err != nil {
		return nil, err
	}
	t.Attendees = decodeAttendees(c)
	t.Extended = decodeExtended(c)
	return t, nil
}

func decodeTimezone(c *ical.Component, book int32) *record.Timezone {
	tz := record.NewTimezone()
	tz.BookID = book
	tz.TZID = raw(c, ical.PropTimezoneID)
	for _, sub := range c.Children {
		offset := utcOffset(raw(sub, "TZOFFSETTO").String)
		name := raw(sub, "TZNAME")
		switch sub.Name {
		case "STANDARD":
			tz.OffsetFromGMT = offset
			tz.StandardName = name
		case "DAYLIGHT":
			tz.DaylightName = name
			tz.DaylightBias = offset - tz.OffsetFromGMT
		}
	}
	return tz
}

func decodeAlarms(c *ical.Component) ([]*record.Alarm, error) {
	var out []*record.Alarm
	for _, sub := range c.Children {
		if sub.Name != ical.CompAlarm {
			continue
		}
		a := record.NewAlarm()
		a.Action = actions[strings.ToUpper(raw(sub, ical.PropAction).String)]
		a.Description = text(sub, ical.PropDescription)
		a.Summary = text(sub, ical.PropSummary)

		trig := sub.Props.Get(ical.PropTrigger)
		switch {
		case trig == nil:
			a.TickUnit = record.TickUnitMinute
		case strings.EqualFold(trig.Params.Get("VALUE"), "DATE-TIME"):
			at, _, err := calTime(trig)
			if err != nil {
				return nil, err
			}
			a.TickUnit = record.TickUnitSpecific
			a.AlarmTime = at
		default:
			d, err := parseDuration(trig.Value)
			if err != nil {
				return nil, err
			}
			a.Tick, a.TickUnit = ticks(-d)
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeAttendees(c *ical.Component) []*record.Attendee {
	var out []*record.Attendee
	for i := range c.Props[ical.PropAttendee] {
		p := &c.Props[ical.PropAttendee][i]
		a := record.NewAttendee()
		a.Name, a.Email = person(p)
		a.Role = roles[strings.ToUpper(p.Params.Get("ROLE"))]
		a.Status = partStats[strings.ToUpper(p.Params.Get("PARTSTAT"))]
		if strings.EqualFold(p.Params.Get("RSVP"), "TRUE") {
			a.RSVP = 1
		}
		if m := p.Params.Get("MEMBER"); m != "" {
			a.Member = record.Str(m)
		}
		out = append(out, a)
	}
	return out
}

func decodeExtended(c *ical.Component) []*record.Extended {
	var out []*record.Extended
	for name, props := range c.Props {
		if !strings.HasPrefix(name, "X-") {
			continue
		}
		for _, p := range props {
			x := record.NewExtended()
			x.Key = record.Str(name)
			x.Value = record.Str(p.Value)
			out = append(out, x)
		}
	}
	slices.SortFunc(out, func(a, b *record.Extended) int {
		if c := cmp.Compare(a.Key.String, b.Key.String); c != 0 {
			return c
		}
		return cmp.Compare(a.Value.String, b.Value.String)
	})
	return out
}

func text(c *ical.Component, name string) sql.NullString {
	p := c.Props.Get(name)
	if p == nil {
		return sql.NullString{}
	}
	s, err := p.Text()
	if err != nil {
		return record.Str(p.Value)
	}
	return record.Str(s)
}

func raw(c *ical.Component, name string) sql.NullString {
	p := c.Props.Get(name)
	if p == nil {
		return sql.NullString{}
	}
	return record.Str(p.Value)
}

func integer(c *ical.Component, name string) int32 {
	p := c.Props.Get(name)
	if p == nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(p.Value), 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

// person splits an ORGANIZER or ATTENDEE into its common name and address.
func person(p *ical.Prop) (name, email sql.NullString) {
	if p == nil {
		return
	}
	if cn := p.Params.Get("CN"); cn != "" {
		name = record.Str(cn)
	}
	v := p.Value
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		v = v[7:]
	}
	if v != "" {
		email = record.Str(v)
	}
	return
}

// calTime maps a DATE or DATE-TIME property. UTC and TZID-qualified values
// become UTimes, the TZID kept alongside; floating values and dates become
// local times.
func calTime(p *ical.Prop) (record.CalTime, sql.NullString, error) {
	if p == nil {
		return record.CalTime{}, sql.NullString{}, nil
	}
	t, err := p.DateTime(time.UTC)
	if err != nil {
		return record.CalTime{}, sql.NullString{}, calerr.Wrap(calerr.InvalidParameter, "decode "+p.Name, err)
	}
	tzid := p.Params.Get("TZID")
	switch {
	case tzid != "":
		return record.UTime(t), record.Str(tzid), nil
	case strings.HasSuffix(p.Value, "Z"):
		return record.UTime(t), sql.NullString{}, nil
	}
	return record.LocalTime(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()), sql.NullString{}, nil
}

// utcOffset parses a UTC offset such as -0500 or +013000 into seconds.
func utcOffset(s string) int32 {
	if len(s) < 5 {
		return 0
	}
	sign := int32(1)
	if s[0] == '-' {
		sign = -1
	}
	h, err1 := strconv.Atoi(s[1:3])
	m, err2 := strconv.Atoi(s[3:5])
	if err1 != nil || err2 != nil {
		return 0
	}
	sec := 0
	if len(s) >= 7 {
		sec, _ = strconv.Atoi(s[5:7])
	}
	return sign * int32(h*3600+m*60+sec)
}

// parseDuration reads an RFC 5545 duration such as -PT15M or P1W.
func parseDuration(s string) (time.Duration, error) {
	orig := s
	bad := func() (time.Duration, error) {
		return 0, calerr.New(calerr.InvalidParameter, "decode duration", "invalid duration %q", orig)
	}
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return bad()
	}
	s = s[1:]

	var d time.Duration
	inTime := false
	for len(s) > 0 {
		if s[0] == 'T' {
			inTime, s = true, s[1:]
			continue
		}
		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 0 || i == len(s) {
			return bad()
		}
		n, err := strconv.Atoi(s[:i])
		if err != nil {
			return bad()
		}
		unit := time.Duration(0)
		switch {
		case s[i] == 'W' && !inTime:
			unit = 7 * 24 * time.Hour
		case s[i] == 'D' && !inTime:
			unit = 24 * time.Hour
		case s[i] == 'H' && inTime:
			unit = time.Hour
		case s[i] == 'M' && inTime:
			unit = time.Minute
		case s[i] == 'S' && inTime:
			unit = time.Second
		default:
			return bad()
		}
		d += time.Duration(n) * unit
		s = s[i+1:]
	}
	if neg {
		d = -d
	}
	return d, nil
}

// ticks expresses a lead time in the largest unit that divides it.
func ticks(lead time.Duration) (int32, int32) {
	sec := int64(lead / time.Second)
	for _, unit := range []int32{record.TickUnitWeek, record.TickUnitDay, record.TickUnitHour, record.TickUnitMinute} {
		if sec%int64(unit) == 0 {
			return int32(sec / int64(unit)), unit
		}
	}
	// Sub-minute leads round up to whole minutes.
	return int32((sec + 59) / 60), record.TickUnitMinute
}

func formatDuration(tick, unit int32) string {
	sec := int64(tick) * int64(unit)
	sign := "-"
	if sec < 0 {
		sign, sec = "", -sec
	}
	switch {
	case sec == 0:
		return "PT0S"
	case sec%int64(record.TickUnitWeek) == 0:
		return fmt.Sprintf("%sP%dW", sign, sec/int64(record.TickUnitWeek))
	case sec%int64(record.TickUnitDay) == 0:
		return fmt.Sprintf("%sP%dD", sign, sec/int64(record.TickUnitDay))
	case sec%int64(record.TickUnitHour) == 0:
		return fmt.Sprintf("%sPT%dH", sign, sec/int64(record.TickUnitHour))
	case sec%int64(record.TickUnitMinute) == 0:
		return fmt.Sprintf("%sPT%dM", sign, sec/int64(record.TickUnitMinute))
	}
	return fmt.Sprintf("%sPT%dS", sign, sec)
}
