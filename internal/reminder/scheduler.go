package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/store"
)

// AlarmSource lists stored alarms with their owners.
type AlarmSource interface {
	Alarms(ctx context.Context) ([]store.AlarmTarget, error)
}

// Publisher delivers due reminders.
type Publisher interface {
	Publish(r Reminder) error
}

// Scheduler polls stored alarms and publishes those whose fire time fell
// between two polls.
type Scheduler struct {
	alarms   AlarmSource
	pub      Publisher
	now      func() time.Time
	interval time.Duration
	loc      *time.Location

	last time.Time
}

// NewScheduler returns a scheduler polling every interval. Local alarm and
// start times are interpreted in loc (time.Local when nil).
func NewScheduler(alarms AlarmSource, pub Publisher, now func() time.Time, interval time.Duration, loc *time.Location) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{alarms: alarms, pub: pub, now: now, interval: interval, loc: loc}
}

// FireTime returns when alarm a owned by parent fires. ok is false when the
// time cannot be determined: an absolute alarm without a time, or a
// relative one whose parent has no start.
func FireTime(a *record.Alarm, parent record.Record, loc *time.Location) (t time.Time, ok bool) {
	if a.TickUnit == record.TickUnitSpecific {
		if a.AlarmTime.IsZero() {
			return time.Time{}, false
		}
		return a.AlarmTime.Time(loc), true
	}

	var start record.CalTime
	switch p := parent.(type) {
	case *record.Event:
		start = p.Start
	case *record.Todo:
		start = p.Start
		if start.IsZero() {
			start = p.Due
		}
	}
	if start.IsZero() {
		return time.Time{}, false
	}
	lead := time.Duration(a.Tick) * time.Duration(a.TickUnit) * time.Second
	return start.Time(loc).Add(-lead), true
}

// Poll publishes every reminder due after the previous poll and up to now.
// The first poll only records the starting point.
func (s *Scheduler) Poll(ctx context.Context) (int, error) {
	now := s.now()
	if s.last.IsZero() {
		s.last = now
		return 0, nil
	}
	targets, err := s.alarms.Alarms(ctx)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, tgt := range targets {
		at, ok := FireTime(tgt.Alarm, tgt.Parent, s.loc)
		if !ok || !at.After(s.last) || at.After(now) {
			continue
		}
		r := Reminder{
			ID:   tgt.Alarm.ID,
			Time: at.Unix(),
			Tick: tgt.Alarm.Tick,
			Unit: tgt.Alarm.TickUnit,
			Type: int32(tgt.Parent.Header().Type),
		}
		if err := s.pub.Publish(r); err != nil {
			slog.Warn("publish reminder", "alarm", r.ID, "error", err)
			continue
		}
		published++
	}
	s.last = now
	return published, nil
}

// Run polls until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	if _, err := s.Poll(ctx); err != nil {
		slog.Warn("reminder poll", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Poll(ctx)
			if err != nil {
				slog.Warn("reminder poll", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("reminders published", "count", n)
			}
		}
	}
}
