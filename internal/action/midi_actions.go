package action

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dayuer/midimapper-go/internal/midi"
)

// Note plays a note. A tap note sends note-on, waits Duration, then sends
// the release as a note-on with velocity 0; it only plays for note-off
// messages, so a press/release pair plays once and other input is ignored. A toggle note alternates
// between on and off on every firing.
type Note struct {
	Number   int
	Velocity int
	Toggle   bool
	Duration time.Duration
	Channel  int

	mu sync.Mutex
	on bool
}

// NewNote returns a note action on the default channel.
func NewNote(number int, toggle bool) *Note {
	return &Note{
		Number:   number,
		Velocity: DefaultVelocity,
		Toggle:   toggle,
		Duration: DefaultDuration,
		Channel:  midi.Unset,
	}
}

func (n *Note) Execute(ctx context.Context, env Env) error {
	ch := channelOr(n.Channel, env)
	if n.Toggle {
		return n.toggle(env, ch)
	}
	if !env.Msg.IsNoteOff() {
		return nil
	}
	if err := env.Out.Send(midi.NoteOn(ch, n.Number, n.Velocity)); err != nil {
		return err
	}
	sleep(ctx, n.Duration)
	// the release is sent even when ctx was canceled so no note hangs
	return env.Out.Send(midi.NoteOff(ch, n.Number, 0).AsNoteOn())
}

func (n *Note) toggle(env Env, ch int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var m midi.Message
	if n.on {
		m = midi.NoteOff(ch, n.Number, 0).AsNoteOn()
	} else {
		m = midi.NoteOn(ch, n.Number, n.Velocity)
	}
	if err := env.Out.Send(m); err != nil {
		return err
	}
	n.on = !n.on
	return nil
}

// On reports the toggle state.
func (n *Note) On() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.on
}

func (n *Note) String() string {
	if n.Toggle {
		return fmt.Sprintf("note(%d toggle)", n.Number)
	}
	return fmt.Sprintf("note(%d for %s)", n.Number, n.Duration)
}

// Program sends a program change.
type Program struct {
	Number  int
	Channel int
}

// NewProgram returns a program change action on the default channel.
func NewProgram(number int) *Program {
	return &Program{Number: number, Channel: midi.Unset}
}

func (p *Program) Execute(_ context.Context, env Env) error {
	return env.Out.Send(midi.ProgramChange(channelOr(p.Channel, env), p.Number))
}

func (p *Program) String() string { return fmt.Sprintf("program(%d)", p.Number) }

// Controller sends a control change with a fixed value.
type Controller struct {
	Number  int
	Value   int
	Channel int
}

// NewController returns a control change action on the default channel.
func NewController(number, value int) *Controller {
	return &Controller{Number: number, Value: value, Channel: midi.Unset}
}

func (c *Controller) Execute(_ context.Context, env Env) error {
	return env.Out.Send(midi.ControlChange(channelOr(c.Channel, env), c.Number, c.Value))
}

func (c *Controller) String() string { return fmt.Sprintf("controller(%d=%d)", c.Number, c.Value) }

// Send relays the originating message with some fields overwritten.
type Send struct {
	Set map[string]int
}

// NewSend returns a transform-and-relay action.
func NewSend(set map[string]int) *Send {
	return &Send{Set: set}
}

func (s *Send) Execute(_ context.Context, env Env) error {
	out := env.Msg
	for _, name := range s.fields() {
		var err error
		if out, err = out.With(name, s.Set[name]); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	return env.Out.Send(out)
}

func (s *Send) fields() []string {
	names := make([]string, 0, len(s.Set))
	for name := range s.Set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Send) String() string {
	parts := make([]string, 0, len(s.Set))
	for _, name := range s.fields() {
		parts = append(parts, fmt.Sprintf("%s=%d", name, s.Set[name]))
	}
	return fmt.Sprintf("send(%v)", parts)
}

// Through relays the originating message unchanged.
type Through struct{}

func (Through) Execute(_ context.Context, env Env) error {
	return env.Out.Send(env.Msg)
}

func (Through) String() string { return "through" }
