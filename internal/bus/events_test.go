package bus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/midimapper-go/internal/midi"
)

func TestNewEvent_KeyFromMessage(t *testing.T) {
	ev := NewEvent(EventIn, midi.NoteOn(0, 5, 100))
	assert.Equal(t, EventIn, ev.Type)
	assert.Equal(t, "note:5", ev.Key)
	assert.NotEmpty(t, ev.Message)
	assert.False(t, ev.Time.IsZero())
}

func TestNewEvent_UnknownHasNoKey(t *testing.T) {
	m, err := midi.Decode([]byte{0xE0, 0x00, 0x40})
	require.NoError(t, err)
	assert.Empty(t, NewEvent(EventPass, m).Key)
}

func TestEvent_JSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(Event{Type: EventMiss, Trigger: "abc"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trigger":"abc"`)
	assert.NotContains(t, string(data), `"action"`)
}
