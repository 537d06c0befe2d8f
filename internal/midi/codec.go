package midi

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty         = errors.New("empty message")
	ErrNoStatus      = errors.New("missing status byte")
	ErrIncomplete    = errors.New("incomplete message")
	ErrUninitialized = errors.New("uninitialized message")
	ErrRange         = errors.New("field out of range")
)

// CodecError reports a malformed byte sequence or a message that cannot be
// encoded. Reason is one of the Err* sentinels above.
type CodecError struct {
	Op     string
	Reason error
	Detail string
}

func (e *CodecError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("midi %s: %v", e.Op, e.Reason)
	}
	return fmt.Sprintf("midi %s: %v: %s", e.Op, e.Reason, e.Detail)
}

func (e *CodecError) Unwrap() error { return e.Reason }

func decodeErr(reason error, format string, args ...any) error {
	return &CodecError{Op: "decode", Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func encodeErr(reason error, format string, args ...any) error {
	return &CodecError{Op: "encode", Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Decode parses the message at the start of raw. Trailing bytes beyond the
// message are ignored, except for unknown kinds which keep the remainder.
func Decode(raw []byte) (Message, error) {
	m, _, err := decode(raw)
	return m, err
}

func decode(raw []byte) (Message, int, error) {
	if len(raw) == 0 {
		return Message{}, 0, decodeErr(ErrEmpty, "")
	}
	status := raw[0]
	if status < 0x80 {
		return Message{}, 0, decodeErr(ErrNoStatus, "first byte 0x%02X", status)
	}
	kind := Kind(status & 0xF0)
	channel := int(status & 0x0F)

	need := dataLen(kind)
	if need < 0 {
		m := Message{
			Kind:    KindUnknown,
			Channel: channel,
			Number:  Unset,
			Value:   Unset,
			Status:  byte(kind),
			Data:    append([]byte{}, raw[1:]...),
		}
		return m, len(raw), nil
	}
	if len(raw) < need+1 {
		return Message{}, 0, decodeErr(ErrIncomplete, "%s needs %d data bytes, got %d", kind, need, len(raw)-1)
	}
	for i := 1; i <= need; i++ {
		if raw[i] > 0x7F {
			return Message{}, 0, decodeErr(ErrRange, "%s data byte %d is 0x%02X", kind, i, raw[i])
		}
	}

	switch kind {
	case KindProgramChange:
		return ProgramChange(channel, int(raw[1])), 2, nil
	case KindNoteOn:
		return NoteOn(channel, int(raw[1]), int(raw[2])), 3, nil
	case KindNoteOff:
		return NoteOff(channel, int(raw[1]), int(raw[2])), 3, nil
	default:
		return ControlChange(channel, int(raw[1]), int(raw[2])), 3, nil
	}
}

// dataLen returns the number of data bytes for a known kind, or -1.
func dataLen(k Kind) int {
	switch k {
	case KindNoteOn, KindNoteOff, KindControlChange:
		return 2
	case KindProgramChange:
		return 1
	}
	return -1
}

// Encode serializes m as its status byte followed by its data bytes.
func Encode(m Message) ([]byte, error) {
	if m.Channel == Unset {
		return nil, encodeErr(ErrUninitialized, "%s channel unset", m.Kind)
	}
	if m.Channel < 0 || m.Channel > 15 {
		return nil, encodeErr(ErrRange, "channel %d", m.Channel)
	}

	switch m.Kind {
	case KindUnknown:
		if m.Status < 0x80 {
			return nil, encodeErr(ErrUninitialized, "unknown message without status")
		}
		out := make([]byte, 0, 1+len(m.Data))
		out = append(out, (m.Status&0xF0)|byte(m.Channel))
		return append(out, m.Data...), nil

	case KindProgramChange:
		if err := checkData(m.Kind, "program", m.Number); err != nil {
			return nil, err
		}
		return []byte{byte(m.Kind) | byte(m.Channel), byte(m.Number)}, nil

	case KindNoteOn, KindNoteOff, KindControlChange:
		if err := checkData(m.Kind, "number", m.Number); err != nil {
			return nil, err
		}
		if err := checkData(m.Kind, "value", m.Value); err != nil {
			return nil, err
		}
		return []byte{byte(m.Kind) | byte(m.Channel), byte(m.Number), byte(m.Value)}, nil
	}
	return nil, encodeErr(ErrRange, "kind 0x%02X", byte(m.Kind))
}

func checkData(k Kind, field string, v int) error {
	if v == Unset {
		return encodeErr(ErrUninitialized, "%s %s unset", k, field)
	}
	if v < 0 || v > 127 {
		return encodeErr(ErrRange, "%s %s %d", k, field, v)
	}
	return nil
}
