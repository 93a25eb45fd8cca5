package reminder

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/store"
	"github.com/roach88/calstore/internal/testutil"
)

func TestPayload_RoundTrip(t *testing.T) {
	r := Reminder{ID: 7, Time: 1709283600, Tick: 15, Unit: record.TickUnitMinute, Type: 2}
	assert.Equal(t, "id=7&time=1709283600&tick=15&unit=60&type=2", r.Payload())

	got, err := ParsePayload(r.Payload())
	require.NoError(t, err)
	assert.Equal(t, r, got)

	b, err := Encode(r)
	require.NoError(t, err)
	got, err = Decode(b)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestParsePayload_Rejects(t *testing.T) {
	for _, p := range []string{
		"",
		"id=1&time=2&tick=3&unit=4",
		"id=x&time=2&tick=3&unit=4&type=5",
		"id=1&time=99999999999999999999&tick=3&unit=4&type=5",
	} {
		_, err := ParsePayload(p)
		assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err), "payload %q", p)
	}
}

func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "rem")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "r.sock")
}

func TestHub_DeliversToSubscribers(t *testing.T) {
	path := socketPath(t)
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Serve(ctx, ln)

	got := make(chan Reminder, 4)
	cb := func(r Reminder, userData any) {
		assert.Equal(t, "tag", userData)
		got <- r
	}

	sub := NewSubscriber(path)
	require.NoError(t, sub.Add(ctx, cb, "tag"))
	assert.True(t, sub.Connected())

	err = sub.Add(ctx, cb, "tag")
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	want := Reminder{ID: 3, Time: 1709283600, Tick: 10, Unit: record.TickUnitMinute, Type: int32(record.TypeEvent)}
	require.NoError(t, hub.Publish(want))

	select {
	case r := <-got:
		assert.Equal(t, want, r)
	case <-time.After(5 * time.Second):
		t.Fatal("reminder not delivered")
	}

	require.NoError(t, sub.Remove(cb, "tag"))
	assert.False(t, sub.Connected())
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)

	err = sub.Remove(cb, "tag")
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
}

func TestSubscriber_RedialsAfterHubRestart(t *testing.T) {
	path := socketPath(t)
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)

	first, stopFirst := context.WithCancel(context.Background())
	defer stopFirst()
	go NewHub().Serve(first, ln)

	got := make(chan Reminder, 4)
	cb := func(r Reminder, _ any) { got <- r }

	sub := NewSubscriber(path)
	require.NoError(t, sub.Add(context.Background(), cb, nil))
	defer sub.Remove(cb, nil)

	stopFirst()
	require.Eventually(t, func() bool { return !sub.Connected() }, 5*time.Second, 10*time.Millisecond)

	os.Remove(path)
	ln, err = net.Listen("unix", path)
	require.NoError(t, err)
	second, stopSecond := context.WithCancel(context.Background())
	defer stopSecond()
	hub := NewHub()
	go hub.Serve(second, ln)

	require.Eventually(t, func() bool { return sub.Connected() && hub.Subscribers() == 1 }, 10*time.Second, 20*time.Millisecond)

	want := Reminder{ID: 9, Time: 1709283600, Tick: 5, Unit: record.TickUnitMinute, Type: int32(record.TypeTodo)}
	require.NoError(t, hub.Publish(want))
	select {
	case r := <-got:
		assert.Equal(t, want, r)
	case <-time.After(5 * time.Second):
		t.Fatal("reminder not delivered after hub restart")
	}
}

func TestSubscriber_RejectsIncomparableUserData(t *testing.T) {
	path := socketPath(t)
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewHub().Serve(ctx, ln)

	cb := func(Reminder, any) {}
	sub := NewSubscriber(path)

	assert.NotPanics(t, func() {
		err = sub.Add(ctx, cb, []int{1})
	})
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
	assert.False(t, sub.Connected())

	require.NoError(t, sub.Add(ctx, cb, "tag"))
	assert.NotPanics(t, func() {
		err = sub.Remove(cb, []int{1})
	})
	assert.Equal(t, calerr.InvalidParameter, calerr.CodeOf(err))
	require.NoError(t, sub.Remove(cb, "tag"))
}

func TestSubscriber_NoHub(t *testing.T) {
	sub := NewSubscriber(socketPath(t))
	err := sub.Add(context.Background(), func(Reminder, any) {}, nil)
	assert.True(t, calerr.IsIpc(err))
	assert.False(t, sub.Connected())
}

type fakeAlarms struct {
	targets []store.AlarmTarget
	err     error
}

func (f *fakeAlarms) Alarms(context.Context) ([]store.AlarmTarget, error) {
	return f.targets, f.err
}

type fakePublisher struct {
	got []Reminder
}

func (p *fakePublisher) Publish(r Reminder) error {
	p.got = append(p.got, r)
	return nil
}

func relative(id int32, tick int32, parent record.Record) store.AlarmTarget {
	a := record.NewAlarm()
	a.ID = id
	a.Tick = tick
	a.TickUnit = record.TickUnitMinute
	return store.AlarmTarget{Alarm: a, Parent: parent}
}

func TestScheduler_PublishesDueReminders(t *testing.T) {
	clock := testutil.NewManualClock(testutil.Epoch)

	ev := record.NewEvent()
	ev.Start = record.UTime(testutil.Epoch.Add(30 * time.Minute))

	todo := record.NewTodo()
	todo.Due = record.UTime(testutil.Epoch.Add(2 * time.Hour))

	absolute := record.NewAlarm()
	absolute.ID = 3
	absolute.TickUnit = record.TickUnitSpecific
	absolute.AlarmTime = record.UTime(testutil.Epoch.Add(5 * time.Minute))

	src := &fakeAlarms{targets: []store.AlarmTarget{
		relative(1, 20, ev),   // fires at +10m
		relative(2, 15, todo), // fires at +1h45m
		{Alarm: absolute, Parent: ev},
	}}
	pub := &fakePublisher{}
	s := NewScheduler(src, pub, clock.Now, time.Minute, time.UTC)

	n, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "first poll only records the start")

	clock.Advance(10 * time.Minute)
	n, err = s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.got, 2)
	assert.Equal(t, int32(1), pub.got[0].ID)
	assert.Equal(t, testutil.Epoch.Add(10*time.Minute).Unix(), pub.got[0].Time)
	assert.Equal(t, int32(record.TypeEvent), pub.got[0].Type)
	assert.Equal(t, int32(3), pub.got[1].ID)

	// Nothing fires twice.
	clock.Advance(time.Minute)
	n, err = s.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(2 * time.Hour)
	_, err = s.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.got, 3)
	assert.Equal(t, int32(2), pub.got[2].ID)
	assert.Equal(t, int32(record.TypeTodo), pub.got[2].Type)
}

func TestScheduler_SourceError(t *testing.T) {
	clock := testutil.NewManualClock(testutil.Epoch)
	src := &fakeAlarms{}
	s := NewScheduler(src, &fakePublisher{}, clock.Now, time.Minute, time.UTC)
	_, err := s.Poll(context.Background())
	require.NoError(t, err)

	src.err = errors.New("disk gone")
	clock.Advance(time.Minute)
	_, err = s.Poll(context.Background())
	assert.Error(t, err)
}

func TestFireTime(t *testing.T) {
	loc := time.UTC
	a := record.NewAlarm()
	a.TickUnit = record.TickUnitSpecific
	_, ok := FireTime(a, record.NewEvent(), loc)
	assert.False(t, ok, "absolute alarm without time")

	a = record.NewAlarm()
	a.Tick = 1
	a.TickUnit = record.TickUnitHour
	_, ok = FireTime(a, record.NewEvent(), loc)
	assert.False(t, ok, "parent without start")

	ev := record.NewEvent()
	ev.Start = record.LocalTime(2024, 3, 1, 12, 0, 0)
	at, ok := FireTime(a, ev, loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, loc), at)
}
