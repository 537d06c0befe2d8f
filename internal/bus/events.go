// Package bus carries router observation events to monitors.
package bus

import (
	"time"

	"github.com/dayuer/midimapper-go/internal/midi"
)

// EventType classifies what the router did.
type EventType string

const (
	EventIn      EventType = "in"      // message received
	EventOut     EventType = "out"     // message sent
	EventPass    EventType = "pass"    // no table entry, relayed unchanged
	EventFire    EventType = "fire"    // action executed
	EventPending EventType = "pending" // action parked until a deferred trigger decides
	EventMiss    EventType = "miss"    // deferred fire found nothing pending
	EventDrop    EventType = "drop"    // input discarded (decode failure)
	EventError   EventType = "error"   // action or port failure
)

// Event is one observation. Fields not relevant to Type are empty.
type Event struct {
	Type    EventType `json:"type"`
	Time    time.Time `json:"time"`
	Message string    `json:"message,omitempty"`
	Raw     []byte    `json:"raw,omitempty"`
	Key     string    `json:"key,omitempty"`
	Trigger string    `json:"trigger,omitempty"`
	Action  string    `json:"action,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// NewEvent stamps an event for msg with the current time.
func NewEvent(typ EventType, msg midi.Message) Event {
	ev := Event{Type: typ, Time: time.Now(), Message: msg.String()}
	if k, ok := msg.Key(); ok {
		ev.Key = k.String()
	}
	return ev
}
