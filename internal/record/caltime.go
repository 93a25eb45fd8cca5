package record

import (
	"fmt"
	"time"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/wire"
)

// TimeKind tags a CalTime.
type TimeKind int32

const (
	TimeNone TimeKind = iota
	// TimeUTime is an absolute instant in seconds since the Unix epoch.
	TimeUTime
	// TimeLocal is a floating wall-clock date-time with no zone, used for
	// all-day items.
	TimeLocal
)

// CalTime is a tagged timestamp: either an absolute UTime or a local
// date-time. The zero value is "no time".
type CalTime struct {
	Kind   TimeKind
	UTime  int64
	Year   int32
	Month  int32
	Day    int32
	Hour   int32
	Minute int32
	Second int32
}

// UTime returns the absolute CalTime for t.
func UTime(t time.Time) CalTime {
	return CalTime{Kind: TimeUTime, UTime: t.Unix()}
}

// LocalTime returns a floating CalTime.
func LocalTime(year, month, day, hour, minute, second int) CalTime {
	return CalTime{
		Kind:   TimeLocal,
		Year:   int32(year),
		Month:  int32(month),
		Day:    int32(day),
		Hour:   int32(hour),
		Minute: int32(minute),
		Second: int32(second),
	}
}

// IsZero reports whether c carries no time.
func (c CalTime) IsZero() bool { return c.Kind == TimeNone }

// Time converts c to a time.Time. Local times are interpreted in loc.
func (c CalTime) Time(loc *time.Location) time.Time {
	switch c.Kind {
	case TimeUTime:
		return time.Unix(c.UTime, 0).UTC()
	case TimeLocal:
		if loc == nil {
			loc = time.Local
		}
		return time.Date(int(c.Year), time.Month(c.Month), int(c.Day),
			int(c.Hour), int(c.Minute), int(c.Second), 0, loc)
	}
	return time.Time{}
}

// SortKey maps c to an integer that orders like the time itself within one
// kind. Local times pack as YYYYMMDDhhmmss. The storage layer indexes and
// filters on this value.
func (c CalTime) SortKey() int64 {
	switch c.Kind {
	case TimeUTime:
		return c.UTime
	case TimeLocal:
		k := int64(c.Year)
		for _, part := range []int32{c.Month, c.Day, c.Hour, c.Minute, c.Second} {
			k = k*100 + int64(part)
		}
		return k
	}
	return 0
}

func (c CalTime) String() string {
	switch c.Kind {
	case TimeUTime:
		return fmt.Sprintf("utime(%d)", c.UTime)
	case TimeLocal:
		return fmt.Sprintf("local(%04d-%02d-%02dT%02d:%02d:%02d)",
			c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second)
	}
	return "none"
}

// Fields walks the tagged timestamp: the kind, then either the 64-bit UTime
// or the six local fields.
func (c *CalTime) Fields(s wire.Stream) {
	k := int32(c.Kind)
	s.Int32(&k)
	if s.Err() != nil {
		return
	}
	c.Kind = TimeKind(k)
	switch c.Kind {
	case TimeNone:
	case TimeUTime:
		s.Int64(&c.UTime)
	case TimeLocal:
		s.Int32(&c.Year)
		s.Int32(&c.Month)
		s.Int32(&c.Day)
		s.Int32(&c.Hour)
		s.Int32(&c.Minute)
		s.Int32(&c.Second)
	default:
		s.Fail(calerr.New(calerr.InvalidParameter, "caltime", "unknown time kind %d", k))
	}
}
