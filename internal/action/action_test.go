package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/midimapper-go/internal/midi"
)

type recorder struct {
	mu   sync.Mutex
	sent []midi.Message
	err  error
}

func (r *recorder) Send(m midi.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

type fakeKeys struct {
	key  string
	mods []string
	hold time.Duration
}

func (f *fakeKeys) PressAndRelease(_ context.Context, key string, mods []string, hold time.Duration) error {
	f.key, f.mods, f.hold = key, mods, hold
	return nil
}

func env(out Output, msg midi.Message) Env {
	return Env{Out: out, Channel: 15, Msg: msg}
}

// --- Note ---

func TestNote_TapSendsOnThenOff(t *testing.T) {
	out := &recorder{}
	n := NewNote(12, false)
	n.Duration = time.Millisecond

	require.NoError(t, n.Execute(context.Background(), env(out, midi.NoteOff(0, 2, 0))))
	assert.Equal(t, []midi.Message{
		midi.NoteOn(15, 12, DefaultVelocity),
		midi.NoteOn(15, 12, 0),
	}, out.sent)
}

func TestNote_TapIgnoresNoteOn(t *testing.T) {
	out := &recorder{}
	n := NewNote(12, false)
	require.NoError(t, n.Execute(context.Background(), env(out, midi.NoteOn(0, 2, 90))))
	assert.Empty(t, out.sent)
}

func TestNote_TapIgnoresNonOffInput(t *testing.T) {
	for _, msg := range []midi.Message{
		midi.ControlChange(0, 7, 64),
		midi.ProgramChange(0, 3),
	} {
		out := &recorder{}
		n := NewNote(60, false)
		n.Duration = time.Millisecond
		require.NoError(t, n.Execute(context.Background(), env(out, msg)), msg.String())
		assert.Empty(t, out.sent, msg.String())
	}
}

func TestNote_TapOnVelocityZeroNoteOn(t *testing.T) {
	out := &recorder{}
	n := NewNote(60, false)
	n.Duration = time.Millisecond
	require.NoError(t, n.Execute(context.Background(), env(out, midi.NoteOn(0, 2, 0))))
	assert.Len(t, out.sent, 2)
}

func TestNote_TapReleasesOnCancel(t *testing.T) {
	out := &recorder{}
	n := NewNote(1, false)
	n.Duration = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, n.Execute(ctx, env(out, midi.NoteOff(0, 2, 0))))
	assert.Len(t, out.sent, 2)
}

func TestNote_ToggleAlternates(t *testing.T) {
	out := &recorder{}
	n := NewNote(3, true)
	n.Channel = 4

	for i := 0; i < 3; i++ {
		require.NoError(t, n.Execute(context.Background(), env(out, midi.NoteOff(0, 3, 0))))
	}
	assert.Equal(t, []midi.Message{
		midi.NoteOn(4, 3, DefaultVelocity),
		midi.NoteOn(4, 3, 0),
		midi.NoteOn(4, 3, DefaultVelocity),
	}, out.sent)
	assert.True(t, n.On())
}

func TestNote_ToggleKeepsStateOnSendError(t *testing.T) {
	out := &recorder{err: errors.New("port gone")}
	n := NewNote(3, true)
	assert.Error(t, n.Execute(context.Background(), env(out, midi.NoteOff(0, 3, 0))))
	assert.False(t, n.On())
}

// --- Program / Controller ---

func TestProgram(t *testing.T) {
	out := &recorder{}
	require.NoError(t, NewProgram(18).Execute(context.Background(), env(out, midi.NoteOff(0, 8, 0))))
	assert.Equal(t, []midi.Message{midi.ProgramChange(15, 18)}, out.sent)
}

func TestController(t *testing.T) {
	out := &recorder{}
	c := NewController(64, 127)
	c.Channel = 0
	require.NoError(t, c.Execute(context.Background(), env(out, midi.NoteOff(0, 8, 0))))
	assert.Equal(t, []midi.Message{midi.ControlChange(0, 64, 127)}, out.sent)
}

// --- Send / Through ---

func TestSend_OverridesFields(t *testing.T) {
	out := &recorder{}
	s := NewSend(map[string]int{"channel": 2, "controller": 11})
	in := midi.ControlChange(0, 7, 99)

	require.NoError(t, s.Execute(context.Background(), env(out, in)))
	assert.Equal(t, []midi.Message{midi.ControlChange(2, 11, 99)}, out.sent)
}

func TestSend_InapplicableField(t *testing.T) {
	out := &recorder{}
	s := NewSend(map[string]int{"velocity": 1})
	assert.Error(t, s.Execute(context.Background(), env(out, midi.ProgramChange(0, 1))))
	assert.Empty(t, out.sent)
}

func TestThrough(t *testing.T) {
	out := &recorder{}
	in := midi.NoteOn(3, 60, 70)
	require.NoError(t, Through{}.Execute(context.Background(), env(out, in)))
	assert.Equal(t, []midi.Message{in}, out.sent)
}

// --- Keystroke ---

func TestKeystroke_UsesInjector(t *testing.T) {
	keys := &fakeKeys{}
	k := NewKeystroke("F16", "ctrl")
	e := env(&recorder{}, midi.NoteOff(0, 1, 0))
	e.Keys = keys

	require.NoError(t, k.Execute(context.Background(), e))
	assert.Equal(t, "F16", keys.key)
	assert.Equal(t, []string{"ctrl"}, keys.mods)
	assert.Equal(t, DefaultDuration, keys.hold)
}

func TestKeystroke_NoInjectorIsNoop(t *testing.T) {
	k := NewKeystroke("F17")
	assert.NoError(t, k.Execute(context.Background(), env(&recorder{}, midi.NoteOff(0, 1, 0))))
	assert.Equal(t, "keystroke(F17)", k.String())
}
