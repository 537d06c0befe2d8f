// Package midi defines the channel-voice message model routed by midimapper
// and the codec that turns raw MIDI bytes into messages and back.
package midi

import (
	"fmt"
	"strings"
)

// Kind is the status nibble of a channel message.
type Kind byte

const (
	KindUnknown       Kind = 0x00
	KindNoteOff       Kind = 0x80
	KindNoteOn        Kind = 0x90
	KindControlChange Kind = 0xB0
	KindProgramChange Kind = 0xC0
)

func (k Kind) String() string {
	switch k {
	case KindNoteOff:
		return "note_off"
	case KindNoteOn:
		return "note_on"
	case KindControlChange:
		return "control_change"
	case KindProgramChange:
		return "program_change"
	default:
		return "unknown"
	}
}

// Unset marks a field that has not been initialized. Encoding a message with
// an unset required field fails with ErrUninitialized.
const Unset = -1

// Message is a single MIDI message. Number holds the note, controller or
// program number; Value holds the velocity or controller value and is unused
// for program changes. Status and Data are only meaningful for KindUnknown.
type Message struct {
	Kind    Kind
	Channel int
	Number  int
	Value   int

	Status byte
	Data   []byte
}

// NoteOn builds a note-on message.
func NoteOn(channel, note, velocity int) Message {
	return Message{Kind: KindNoteOn, Channel: channel, Number: note, Value: velocity}
}

// NoteOff builds a note-off message.
func NoteOff(channel, note, velocity int) Message {
	return Message{Kind: KindNoteOff, Channel: channel, Number: note, Value: velocity}
}

// ControlChange builds a control change message.
func ControlChange(channel, controller, value int) Message {
	return Message{Kind: KindControlChange, Channel: channel, Number: controller, Value: value}
}

// ProgramChange builds a program change message.
func ProgramChange(channel, program int) Message {
	return Message{Kind: KindProgramChange, Channel: channel, Number: program, Value: Unset}
}

// Blank returns a message of the given kind with every field unset.
func Blank(kind Kind) Message {
	return Message{Kind: kind, Channel: Unset, Number: Unset, Value: Unset}
}

// IsNote reports whether m is a note-on or note-off.
func (m Message) IsNote() bool {
	return m.Kind == KindNoteOn || m.Kind == KindNoteOff
}

// IsNoteOn reports whether m starts a note. A note-on with velocity 0 does not.
func (m Message) IsNoteOn() bool {
	return m.Kind == KindNoteOn && m.Value > 0
}

// IsNoteOff reports whether m ends a note, including note-on with velocity 0.
func (m Message) IsNoteOff() bool {
	return m.Kind == KindNoteOff || (m.Kind == KindNoteOn && m.Value == 0)
}

// AsNoteOn rewrites a note-off as the equivalent note-on with velocity 0.
// Any other message is returned unchanged.
func (m Message) AsNoteOn() Message {
	if m.Kind != KindNoteOff {
		return m
	}
	return NoteOn(m.Channel, m.Number, 0)
}

// Key returns the action-table key of m. Unknown messages have no key.
func (m Message) Key() (Key, bool) {
	switch m.Kind {
	case KindNoteOn, KindNoteOff:
		return Key{Class: ClassNote, Number: m.Number}, true
	case KindProgramChange:
		return Key{Class: ClassProgram, Number: m.Number}, true
	case KindControlChange:
		return Key{Class: ClassController, Number: m.Number}, true
	}
	return Key{}, false
}

// Field returns the named attribute of m. Accepted names are channel,
// number, note, velocity, controller, program and value.
func (m Message) Field(name string) (int, bool) {
	switch strings.ToLower(name) {
	case "channel":
		return m.Channel, true
	case "number":
		return m.Number, m.Kind != KindUnknown
	case "note":
		return m.Number, m.IsNote()
	case "controller":
		return m.Number, m.Kind == KindControlChange
	case "program":
		return m.Number, m.Kind == KindProgramChange
	case "velocity":
		return m.Value, m.IsNote()
	case "value":
		if m.Kind == KindProgramChange {
			return m.Number, true
		}
		return m.Value, m.IsNote() || m.Kind == KindControlChange
	}
	return 0, false
}

// With returns a copy of m with the named attribute replaced.
func (m Message) With(name string, v int) (Message, error) {
	out := m
	if m.Data != nil {
		out.Data = append([]byte(nil), m.Data...)
	}
	switch strings.ToLower(name) {
	case "channel":
		out.Channel = v
		return out, nil
	case "number", "note", "controller", "program":
		if _, ok := m.Field(name); !ok {
			break
		}
		out.Number = v
		return out, nil
	case "velocity":
		if !m.IsNote() {
			break
		}
		out.Value = v
		return out, nil
	case "value":
		if m.Kind == KindProgramChange {
			out.Number = v
			return out, nil
		}
		if _, ok := m.Field(name); !ok {
			break
		}
		out.Value = v
		return out, nil
	default:
		return m, fmt.Errorf("unknown field %q", name)
	}
	return m, fmt.Errorf("field %q does not apply to %s", name, m.Kind)
}

// Equal reports whether two messages carry the same content.
func (m Message) Equal(o Message) bool {
	if m.Kind != o.Kind || m.Channel != o.Channel || m.Number != o.Number || m.Value != o.Value {
		return false
	}
	if m.Kind != KindUnknown {
		return true
	}
	if m.Status != o.Status || len(m.Data) != len(o.Data) {
		return false
	}
	for i := range m.Data {
		if m.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

func (m Message) String() string {
	switch m.Kind {
	case KindNoteOn, KindNoteOff:
		return fmt.Sprintf("%s ch=%d note=%d vel=%d", m.Kind, m.Channel, m.Number, m.Value)
	case KindControlChange:
		return fmt.Sprintf("%s ch=%d cc=%d value=%d", m.Kind, m.Channel, m.Number, m.Value)
	case KindProgramChange:
		return fmt.Sprintf("%s ch=%d program=%d", m.Kind, m.Channel, m.Number)
	}
	return fmt.Sprintf("unknown status=0x%02X ch=%d data=% X", m.Status, m.Channel, m.Data)
}
