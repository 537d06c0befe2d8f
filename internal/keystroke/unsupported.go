//go:build !linux

package keystroke

import (
	"context"
	"time"
)

// DefaultDeviceName is unused off Linux.
const DefaultDeviceName = ""

// Uinput is not available on this platform.
type Uinput struct{}

// New always fails off Linux.
func New(string) (*Uinput, error) {
	return nil, ErrUnavailable
}

func (*Uinput) PressAndRelease(context.Context, string, []string, time.Duration) error {
	return ErrUnavailable
}

func (*Uinput) Close() error { return nil }
