package action

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Keystroke presses a key combination, holds it for Duration and releases it.
// Without an injector it only logs.
type Keystroke struct {
	Key       string
	Modifiers []string
	Duration  time.Duration
}

// NewKeystroke returns a keystroke action with the default hold time.
func NewKeystroke(key string, modifiers ...string) *Keystroke {
	return &Keystroke{Key: key, Modifiers: modifiers, Duration: DefaultDuration}
}

func (k *Keystroke) Execute(ctx context.Context, env Env) error {
	if env.Keys == nil {
		log.WithField("key", k.combo()).Warn("keystroke injection unavailable, skipping")
		return nil
	}
	return env.Keys.PressAndRelease(ctx, k.Key, k.Modifiers, k.Duration)
}

func (k *Keystroke) combo() string {
	return strings.Join(append(append([]string(nil), k.Modifiers...), k.Key), "+")
}

func (k *Keystroke) String() string { return fmt.Sprintf("keystroke(%s)", k.combo()) }
