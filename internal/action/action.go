// Package action implements the commands run when a trigger fires: emitting
// MIDI messages or injecting keystrokes.
package action

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dayuer/midimapper-go/internal/midi"
)

// DefaultDuration is how long tap-style notes and keystrokes are held.
const DefaultDuration = time.Second

// DefaultVelocity is used by Note actions that do not set one.
const DefaultVelocity = 100

var log = logrus.WithField("component", "action")

// Output receives the messages produced by actions.
type Output interface {
	Send(m midi.Message) error
}

// Injector presses and releases key combinations on the host.
type Injector interface {
	PressAndRelease(ctx context.Context, key string, modifiers []string, hold time.Duration) error
}

// Env is what an action gets when it fires: where to send, the default
// output channel, the message that caused the firing, and the keystroke
// injector if one is available.
type Env struct {
	Out     Output
	Channel int
	Msg     midi.Message
	Keys    Injector
}

// Action is a command bound to an action-table entry.
type Action interface {
	Execute(ctx context.Context, env Env) error
	String() string
}

// channelOr returns ch unless it is unset, in which case the env default.
func channelOr(ch int, env Env) int {
	if ch == midi.Unset {
		return env.Channel
	}
	return ch
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
