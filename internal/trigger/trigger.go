// Package trigger evaluates the conditions bound to action-table entries.
//
// Every trigger instance owns its own memory (held notes, last values, a
// deferred timer). Two triggers of the same type bound to different keys
// never share state.
package trigger

import (
	"time"

	"github.com/google/uuid"

	"github.com/dayuer/midimapper-go/internal/midi"
)

// Result is the outcome of evaluating a trigger against one message.
type Result int

const (
	NotMatched Result = iota
	Matched
	// Undecided means a timer was armed; the match is decided later and
	// reported through the FireFunc passed to Evaluate.
	Undecided
)

func (r Result) String() string {
	switch r {
	case Matched:
		return "matched"
	case Undecided:
		return "undecided"
	default:
		return "not_matched"
	}
}

// FireFunc is called when a deferred trigger decides it matched.
// It may run on a timer goroutine.
type FireFunc func(triggerID string, msg midi.Message)

// Trigger is a stateful predicate over incoming messages.
type Trigger interface {
	ID() string
	Evaluate(ev *Event, fire FireFunc) Result
	String() string
}

// Event is a received message plus its arrival time. Classifications made
// while evaluating triggers are cached on it, so evaluating the same trigger
// against the same event twice gives the same answer.
type Event struct {
	Msg midi.Message
	At  time.Time

	press     map[string]Press
	withdrawn map[string]bool
}

// NewEvent wraps msg received at t.
func NewEvent(msg midi.Message, at time.Time) *Event {
	return &Event{Msg: msg, At: at}
}

func (e *Event) cachedPress(id string) (Press, bool) {
	p, ok := e.press[id]
	return p, ok
}

func (e *Event) cachePress(id string, p Press) {
	if e.press == nil {
		e.press = make(map[string]Press, 2)
	}
	e.press[id] = p
}

// Withdrawn reports whether evaluating this event made trigger id cancel an
// armed deferred decision. A NotMatched result without a withdrawal leaves
// any decision already reported through the FireFunc standing.
func (e *Event) Withdrawn(id string) bool { return e.withdrawn[id] }

func (e *Event) withdraw(id string) {
	if e.withdrawn == nil {
		e.withdrawn = make(map[string]bool, 1)
	}
	e.withdrawn[id] = true
}

func newID() string { return uuid.NewString() }
