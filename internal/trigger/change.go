package trigger

import (
	"fmt"
	"sync"

	"github.com/dayuer/midimapper-go/internal/midi"
)

// Change matches whenever the watched field differs from the value last seen
// on an equivalent message. The first observation always matches.
type Change struct {
	id    string
	field string

	mu   sync.Mutex
	last map[changeKey]int
}

// changeKey is a message with the watched field masked out, so a controller
// change is tracked per (channel, controller) and a note change per note.
type changeKey struct {
	kind    midi.Kind
	channel int
	number  int
	value   int
}

// NewChange watches field (see midi.Message.Field); empty means "value".
func NewChange(field string) *Change {
	if field == "" {
		field = "value"
	}
	return &Change{id: newID(), field: field, last: make(map[changeKey]int)}
}

func (c *Change) ID() string { return c.id }

func (c *Change) Evaluate(ev *Event, _ FireFunc) Result {
	v, ok := ev.Msg.Field(c.field)
	if !ok {
		return NotMatched
	}
	masked, err := ev.Msg.With(c.field, midi.Unset)
	if err != nil {
		return NotMatched
	}
	kind := masked.Kind
	if ev.Msg.IsNoteOff() {
		// note-on with velocity 0 is the same release as a note-off
		kind = midi.KindNoteOff
	}
	key := changeKey{kind: kind, channel: masked.Channel, number: masked.Number, value: masked.Value}

	c.mu.Lock()
	defer c.mu.Unlock()
	prev, seen := c.last[key]
	c.last[key] = v
	if seen && prev == v {
		return NotMatched
	}
	return Matched
}

func (c *Change) String() string { return fmt.Sprintf("change(%s)", c.field) }
