package midi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Decode ---

func TestDecode_NoteOn(t *testing.T) {
	m, err := Decode([]byte{0x93, 60, 100})
	require.NoError(t, err)
	assert.Equal(t, KindNoteOn, m.Kind)
	assert.Equal(t, 3, m.Channel)
	assert.Equal(t, 60, m.Number)
	assert.Equal(t, 100, m.Value)
	assert.True(t, m.IsNoteOn())
	assert.False(t, m.IsNoteOff())
}

func TestDecode_NoteOnZeroVelocityIsNoteOff(t *testing.T) {
	m, err := Decode([]byte{0x90, 60, 0})
	require.NoError(t, err)
	assert.Equal(t, KindNoteOn, m.Kind)
	assert.True(t, m.IsNoteOff())
	assert.False(t, m.IsNoteOn())
}

func TestDecode_ProgramChangeConsumesOneDataByte(t *testing.T) {
	m, err := Decode([]byte{0xC1, 7, 0xB1, 10, 64})
	require.NoError(t, err)
	assert.Equal(t, ProgramChange(1, 7), m)
}

func TestDecode_UnknownKeepsRemainder(t *testing.T) {
	m, err := Decode([]byte{0xE2, 0x00, 0x40, 0x11})
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, m.Kind)
	assert.Equal(t, byte(0xE0), m.Status)
	assert.Equal(t, 2, m.Channel)
	assert.Equal(t, []byte{0x00, 0x40, 0x11}, m.Data)
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, ErrEmpty},
		{"no status", []byte{0x40, 0x10}, ErrNoStatus},
		{"short note", []byte{0x90, 60}, ErrIncomplete},
		{"short program", []byte{0xC0}, ErrIncomplete},
		{"data byte high bit", []byte{0xB0, 0x81, 0x00}, ErrRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			var ce *CodecError
			assert.True(t, errors.As(err, &ce))
			assert.Equal(t, "decode", ce.Op)
		})
	}
}

// --- Encode ---

func TestEncode_StatusByteCombinesKindAndChannel(t *testing.T) {
	raw, err := Encode(ControlChange(15, 7, 127))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBF, 7, 127}, raw)

	raw, err = Encode(ProgramChange(0, 9))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC0, 9}, raw)
}

func TestEncode_Uninitialized(t *testing.T) {
	_, err := Encode(Blank(KindNoteOn))
	assert.ErrorIs(t, err, ErrUninitialized)

	m := Blank(KindControlChange)
	m.Channel = 0
	m.Number = 1
	_, err = Encode(m)
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestEncode_OutOfRange(t *testing.T) {
	_, err := Encode(NoteOn(16, 60, 100))
	assert.ErrorIs(t, err, ErrRange)
	_, err = Encode(NoteOn(0, 128, 100))
	assert.ErrorIs(t, err, ErrRange)
}

func TestEncode_Unknown(t *testing.T) {
	raw, err := Encode(Message{Kind: KindUnknown, Channel: 4, Number: Unset, Value: Unset, Status: 0xA0, Data: []byte{60, 20}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA4, 60, 20}, raw)
}

func TestCodec_RoundTrip(t *testing.T) {
	for ch := 0; ch < 16; ch++ {
		for _, n := range []int{0, 1, 63, 64, 127} {
			for _, v := range []int{0, 1, 100, 127} {
				for _, m := range []Message{
					NoteOn(ch, n, v),
					NoteOff(ch, n, v),
					ControlChange(ch, n, v),
					ProgramChange(ch, n),
				} {
					raw, err := Encode(m)
					require.NoError(t, err)
					got, err := Decode(raw)
					require.NoError(t, err)
					assert.True(t, m.Equal(got), "round trip %v -> %v", m, got)
				}
			}
		}
	}
}

// --- Message helpers ---

func TestMessage_AsNoteOn(t *testing.T) {
	m := NoteOff(15, 3, 64).AsNoteOn()
	assert.Equal(t, NoteOn(15, 3, 0), m)
	assert.True(t, m.IsNoteOff())
}

func TestMessage_Key(t *testing.T) {
	k, ok := NoteOff(0, 5, 0).Key()
	require.True(t, ok)
	assert.Equal(t, NoteKey(5), k)

	k, ok = ControlChange(0, 7, 0).Key()
	require.True(t, ok)
	assert.Equal(t, ControllerKey(7), k)

	_, ok = Message{Kind: KindUnknown, Status: 0xE0}.Key()
	assert.False(t, ok)
}

func TestMessage_FieldAndWith(t *testing.T) {
	m := ControlChange(2, 10, 40)

	v, ok := m.Field("value")
	require.True(t, ok)
	assert.Equal(t, 40, v)

	_, ok = m.Field("velocity")
	assert.False(t, ok)

	out, err := m.With("channel", 5)
	require.NoError(t, err)
	assert.Equal(t, ControlChange(5, 10, 40), out)
	assert.Equal(t, 2, m.Channel, "original must not change")

	_, err = m.With("program", 1)
	assert.Error(t, err)
	_, err = m.With("bogus", 1)
	assert.Error(t, err)

	p, err := ProgramChange(0, 3).With("program", 9)
	require.NoError(t, err)
	assert.Equal(t, ProgramChange(0, 9), p)
}
