package trigger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/midimapper-go/internal/midi"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return t0.Add(d) }

// fakeScheduler collects callbacks and runs them on demand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	ran     bool
}

func (t *fakeTimer) Stop() bool {
	wasPending := !t.stopped && !t.ran
	t.stopped = true
	return wasPending
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, ft)
	return ft
}

// elapse runs every timer that has not been stopped.
func (s *fakeScheduler) elapse() {
	s.mu.Lock()
	timers := append([]*fakeTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, ft := range timers {
		if !ft.stopped && !ft.ran {
			ft.ran = true
			ft.f()
		}
	}
}

// --- Tap / LongPress ---

func TestTapLongPress_MutuallyExclusive(t *testing.T) {
	cases := []struct {
		held      time.Duration
		tap, long Result
	}{
		{100 * time.Millisecond, Matched, NotMatched},
		{800 * time.Millisecond, NotMatched, Matched},
		{500 * time.Millisecond, Matched, NotMatched},
	}
	for _, tc := range cases {
		tap := NewTap(500 * time.Millisecond)
		long := NewLongPress(500 * time.Millisecond)

		on := NewEvent(midi.NoteOn(0, 1, 100), at(0))
		assert.Equal(t, NotMatched, tap.Evaluate(on, nil))
		assert.Equal(t, NotMatched, long.Evaluate(on, nil))

		off := NewEvent(midi.NoteOff(0, 1, 0), at(tc.held))
		assert.Equal(t, tc.tap, tap.Evaluate(off, nil), "tap after %s", tc.held)
		assert.Equal(t, tc.long, long.Evaluate(off, nil), "long press after %s", tc.held)
	}
}

func TestTap_NoteOnVelocityZeroCountsAsRelease(t *testing.T) {
	tap := NewTap(0)
	tap.Evaluate(NewEvent(midi.NoteOn(0, 4, 90), at(0)), nil)
	assert.Equal(t, Matched, tap.Evaluate(NewEvent(midi.NoteOn(0, 4, 0), at(50*time.Millisecond)), nil))
}

func TestTap_ClassificationCachedPerEvent(t *testing.T) {
	tap := NewTap(500 * time.Millisecond)
	long := NewLongPress(500 * time.Millisecond)
	tap.Evaluate(NewEvent(midi.NoteOn(0, 2, 100), at(0)), nil)
	long.Evaluate(NewEvent(midi.NoteOn(0, 2, 100), at(0)), nil)

	off := NewEvent(midi.NoteOff(0, 2, 0), at(900*time.Millisecond))
	for i := 0; i < 3; i++ {
		assert.Equal(t, NotMatched, tap.Evaluate(off, nil))
		assert.Equal(t, Matched, long.Evaluate(off, nil))
	}
	assert.Equal(t, 0, tap.Held())
	assert.Equal(t, 0, long.Held())
}

func TestTap_ReleaseWithoutPressMatchesNothing(t *testing.T) {
	tap := NewTap(0)
	long := NewLongPress(0)
	off := NewEvent(midi.NoteOff(0, 9, 0), at(time.Second))
	assert.Equal(t, NotMatched, tap.Evaluate(off, nil))
	assert.Equal(t, NotMatched, long.Evaluate(off, nil))
}

func TestTap_RepressKeepsFirstStart(t *testing.T) {
	long := NewLongPress(500 * time.Millisecond)
	long.Evaluate(NewEvent(midi.NoteOn(0, 3, 100), at(0)), nil)
	long.Evaluate(NewEvent(midi.NoteOn(0, 3, 100), at(400*time.Millisecond)), nil)
	off := NewEvent(midi.NoteOff(0, 3, 0), at(600*time.Millisecond))
	assert.Equal(t, Matched, long.Evaluate(off, nil))
}

func TestTap_InstancesDoNotShareState(t *testing.T) {
	a := NewTap(0)
	b := NewTap(0)
	a.Evaluate(NewEvent(midi.NoteOn(0, 1, 100), at(0)), nil)

	assert.Equal(t, 1, a.Held())
	assert.Equal(t, 0, b.Held())
	assert.Equal(t, NotMatched, b.Evaluate(NewEvent(midi.NoteOff(0, 1, 0), at(10*time.Millisecond)), nil))
	assert.Equal(t, Matched, a.Evaluate(NewEvent(midi.NoteOff(0, 1, 0), at(10*time.Millisecond)), nil))
}

func TestTap_IDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewTap(0).ID(), NewTap(0).ID())
}

// --- Change ---

func TestChange_FirstObservationMatches(t *testing.T) {
	c := NewChange("value")
	ev := func(v int) *Event { return NewEvent(midi.ControlChange(0, 7, v), t0) }

	assert.Equal(t, Matched, c.Evaluate(ev(5), nil))
	assert.Equal(t, NotMatched, c.Evaluate(ev(5), nil))
	assert.Equal(t, Matched, c.Evaluate(ev(7), nil))
}

func TestChange_TrackedPerController(t *testing.T) {
	c := NewChange("")
	assert.Equal(t, Matched, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 10), t0), nil))
	assert.Equal(t, Matched, c.Evaluate(NewEvent(midi.ControlChange(0, 2, 10), t0), nil))
	assert.Equal(t, NotMatched, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 10), t0), nil))
}

func TestChange_ReleaseFormsShareState(t *testing.T) {
	c := NewChange("velocity")
	assert.Equal(t, Matched, c.Evaluate(NewEvent(midi.NoteOff(0, 5, 0), t0), nil))
	assert.Equal(t, NotMatched, c.Evaluate(NewEvent(midi.NoteOn(0, 5, 0), t0), nil))
	assert.Equal(t, Matched, c.Evaluate(NewEvent(midi.NoteOn(0, 5, 90), t0), nil))
}

func TestChange_FieldNotPresent(t *testing.T) {
	c := NewChange("velocity")
	assert.Equal(t, NotMatched, c.Evaluate(NewEvent(midi.ProgramChange(0, 1), t0), nil))
}

// --- Compare ---

func valueAbove(n int) Predicate {
	p, _ := FieldPredicate("value", ">", n)
	return p
}

func TestCompare_ZeroDelay(t *testing.T) {
	c := NewCompare("value>10", valueAbove(10), 0)
	assert.Equal(t, Matched, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 15), t0), nil))
	assert.Equal(t, NotMatched, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 5), t0), nil))
}

func TestCompare_DelayFiresOnce(t *testing.T) {
	sched := &fakeScheduler{}
	c := NewCompare("value>10", valueAbove(10), 300*time.Millisecond).WithScheduler(sched)

	var fired []midi.Message
	fire := func(id string, m midi.Message) {
		assert.Equal(t, c.ID(), id)
		fired = append(fired, m)
	}

	first := midi.ControlChange(0, 1, 20)
	assert.Equal(t, Undecided, c.Evaluate(NewEvent(first, t0), fire))
	assert.Equal(t, Undecided, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 30), t0), fire))
	require.Len(t, sched.timers, 1, "a running timer is not re-armed")
	assert.True(t, c.Armed())

	sched.elapse()
	require.Len(t, fired, 1)
	assert.Equal(t, first, fired[0])
	assert.False(t, c.Armed())

	// still true: no second fire until the predicate has gone false
	assert.Equal(t, NotMatched, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 40), t0), fire))
	sched.elapse()
	assert.Len(t, fired, 1)

	c.Evaluate(NewEvent(midi.ControlChange(0, 1, 0), t0), fire)
	assert.Equal(t, Undecided, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 50), t0), fire))
}

func TestCompare_FalseBeforeDelayCancels(t *testing.T) {
	sched := &fakeScheduler{}
	c := NewCompare("value>10", valueAbove(10), time.Second).WithScheduler(sched)

	fired := 0
	fire := func(string, midi.Message) { fired++ }

	assert.Equal(t, Undecided, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 20), t0), fire))
	assert.Equal(t, NotMatched, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 3), t0), fire))
	require.Len(t, sched.timers, 1)
	assert.True(t, sched.timers[0].stopped)

	sched.elapse()
	assert.Equal(t, 0, fired)
}

func TestCompare_WithdrawnOnlyWhenArmed(t *testing.T) {
	sched := &fakeScheduler{}
	c := NewCompare("value>10", valueAbove(10), time.Second).WithScheduler(sched)
	fire := func(string, midi.Message) {}

	c.Evaluate(NewEvent(midi.ControlChange(0, 1, 20), t0), fire)
	ev := NewEvent(midi.ControlChange(0, 1, 3), t0)
	assert.Equal(t, NotMatched, c.Evaluate(ev, fire))
	assert.True(t, ev.Withdrawn(c.ID()))

	// once the timer has elapsed its fire is already on its way
	c.Evaluate(NewEvent(midi.ControlChange(0, 1, 20), t0), fire)
	sched.elapse()
	ev = NewEvent(midi.ControlChange(0, 1, 3), t0)
	assert.Equal(t, NotMatched, c.Evaluate(ev, fire))
	assert.False(t, ev.Withdrawn(c.ID()))
}

func TestCompare_StaleCallbackIgnored(t *testing.T) {
	sched := &fakeScheduler{}
	c := NewCompare("value>10", valueAbove(10), time.Second).WithScheduler(sched)

	fired := 0
	c.Evaluate(NewEvent(midi.ControlChange(0, 1, 20), t0), func(string, midi.Message) { fired++ })
	stale := sched.timers[0]
	c.Cancel()
	c.Cancel()

	// the runtime may already be running the callback when Stop is called
	stale.f()
	assert.Equal(t, 0, fired)
}

func TestCompare_RealTimer(t *testing.T) {
	c := NewCompare("value>10", valueAbove(10), 20*time.Millisecond)
	done := make(chan midi.Message, 1)
	assert.Equal(t, Undecided, c.Evaluate(NewEvent(midi.ControlChange(0, 1, 99), time.Now()), func(_ string, m midi.Message) {
		done <- m
	}))

	select {
	case m := <-done:
		assert.Equal(t, 99, m.Value)
	case <-time.After(time.Second):
		t.Fatal("deferred compare never fired")
	}
}

func TestFieldPredicate(t *testing.T) {
	p, err := FieldPredicate("velocity", ">=", 64)
	require.NoError(t, err)
	assert.True(t, p(midi.NoteOn(0, 1, 64)))
	assert.False(t, p(midi.NoteOn(0, 1, 63)))
	assert.False(t, p(midi.ControlChange(0, 1, 127)), "field missing never matches")

	_, err = FieldPredicate("value", "~", 1)
	assert.Error(t, err)
}
