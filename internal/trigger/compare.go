package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/dayuer/midimapper-go/internal/midi"
)

// Predicate is the condition tested by a Compare trigger.
type Predicate func(midi.Message) bool

// Timer is a pending deferred callback.
type Timer interface {
	Stop() bool
}

// Scheduler arms deferred callbacks.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealScheduler runs callbacks on runtime timers.
var RealScheduler Scheduler = realScheduler{}

// Compare matches when its predicate holds. With a positive delay the
// predicate must keep holding for the whole delay: the first true message
// arms a timer and reports Undecided, a false message cancels it, and when
// it elapses the FireFunc is called with the arming message. One continuous
// true stretch fires at most once: true messages after the timer elapsed do
// not re-arm it until a false message ends the stretch. This differs from a
// timer that restarts whenever none is running.
type Compare struct {
	id    string
	label string
	pred  Predicate
	delay time.Duration
	sched Scheduler

	mu    sync.Mutex
	timer Timer
	gen   uint64
	fired bool
}

// NewCompare returns a Compare trigger; label only appears in logs.
func NewCompare(label string, pred Predicate, delay time.Duration) *Compare {
	return &Compare{id: newID(), label: label, pred: pred, delay: delay, sched: RealScheduler}
}

// WithScheduler replaces the timer source.
func (c *Compare) WithScheduler(s Scheduler) *Compare {
	c.sched = s
	return c
}

func (c *Compare) ID() string { return c.id }

func (c *Compare) Evaluate(ev *Event, fire FireFunc) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pred(ev.Msg) {
		if c.cancelLocked() {
			ev.withdraw(c.id)
		}
		c.fired = false
		return NotMatched
	}
	if c.delay <= 0 {
		c.cancelLocked()
		return Matched
	}
	if c.timer != nil {
		return Undecided
	}
	if c.fired {
		return NotMatched
	}

	c.gen++
	gen := c.gen
	msg := ev.Msg
	c.timer = c.sched.AfterFunc(c.delay, func() { c.elapsed(gen, msg, fire) })
	return Undecided
}

func (c *Compare) elapsed(gen uint64, msg midi.Message, fire FireFunc) {
	c.mu.Lock()
	if gen != c.gen || c.timer == nil {
		// canceled after the runtime timer already started this callback
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.fired = true
	c.mu.Unlock()

	if fire != nil {
		fire(c.id, msg)
	}
}

// Cancel stops an armed timer. Canceling when nothing is armed, or after the
// timer fired, does nothing.
func (c *Compare) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// cancelLocked stops an armed timer and reports whether one was armed.
func (c *Compare) cancelLocked() bool {
	if c.timer == nil {
		return false
	}
	c.timer.Stop()
	c.timer = nil
	c.gen++
	return true
}

// Armed reports whether a deferred decision is pending.
func (c *Compare) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Compare) String() string {
	if c.delay > 0 {
		return fmt.Sprintf("compare(%s for %s)", c.label, c.delay)
	}
	return fmt.Sprintf("compare(%s)", c.label)
}

// FieldPredicate builds a predicate comparing a message field to a constant.
// op is one of > >= < <= == !=.
func FieldPredicate(field, op string, value int) (Predicate, error) {
	var cmp func(a, b int) bool
	switch op {
	case ">":
		cmp = func(a, b int) bool { return a > b }
	case ">=":
		cmp = func(a, b int) bool { return a >= b }
	case "<":
		cmp = func(a, b int) bool { return a < b }
	case "<=":
		cmp = func(a, b int) bool { return a <= b }
	case "==", "=":
		cmp = func(a, b int) bool { return a == b }
	case "!=":
		cmp = func(a, b int) bool { return a != b }
	default:
		return nil, fmt.Errorf("unknown comparison %q", op)
	}
	return func(m midi.Message) bool {
		v, ok := m.Field(field)
		return ok && cmp(v, value)
	}, nil
}
