//go:build linux

package keystroke

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/holoplot/go-evdev"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "keystroke")

// DefaultDeviceName is the name the virtual keyboard registers with.
const DefaultDeviceName = "midimapper virtual keyboard"

var codes = map[string]evdev.EvCode{
	"ESC": evdev.KEY_ESC, "TAB": evdev.KEY_TAB, "SPACE": evdev.KEY_SPACE,
	"ENTER": evdev.KEY_ENTER, "BACKSPACE": evdev.KEY_BACKSPACE,
	"DELETE": evdev.KEY_DELETE, "INSERT": evdev.KEY_INSERT,
	"HOME": evdev.KEY_HOME, "END": evdev.KEY_END,
	"PAGEUP": evdev.KEY_PAGEUP, "PAGEDOWN": evdev.KEY_PAGEDOWN,
	"UP": evdev.KEY_UP, "DOWN": evdev.KEY_DOWN, "LEFT": evdev.KEY_LEFT, "RIGHT": evdev.KEY_RIGHT,
	"MINUS": evdev.KEY_MINUS, "EQUAL": evdev.KEY_EQUAL, "COMMA": evdev.KEY_COMMA,
	"DOT": evdev.KEY_DOT, "SLASH": evdev.KEY_SLASH, "SEMICOLON": evdev.KEY_SEMICOLON,

	"PLAYPAUSE": evdev.KEY_PLAYPAUSE, "NEXTSONG": evdev.KEY_NEXTSONG,
	"PREVIOUSSONG": evdev.KEY_PREVIOUSSONG, "STOPCD": evdev.KEY_STOPCD,
	"MUTE": evdev.KEY_MUTE, "VOLUMEUP": evdev.KEY_VOLUMEUP, "VOLUMEDOWN": evdev.KEY_VOLUMEDOWN,

	"A": evdev.KEY_A, "B": evdev.KEY_B, "C": evdev.KEY_C, "D": evdev.KEY_D,
	"E": evdev.KEY_E, "F": evdev.KEY_F, "G": evdev.KEY_G, "H": evdev.KEY_H,
	"I": evdev.KEY_I, "J": evdev.KEY_J, "K": evdev.KEY_K, "L": evdev.KEY_L,
	"M": evdev.KEY_M, "N": evdev.KEY_N, "O": evdev.KEY_O, "P": evdev.KEY_P,
	"Q": evdev.KEY_Q, "R": evdev.KEY_R, "S": evdev.KEY_S, "T": evdev.KEY_T,
	"U": evdev.KEY_U, "V": evdev.KEY_V, "W": evdev.KEY_W, "X": evdev.KEY_X,
	"Y": evdev.KEY_Y, "Z": evdev.KEY_Z,

	"0": evdev.KEY_0, "1": evdev.KEY_1, "2": evdev.KEY_2, "3": evdev.KEY_3, "4": evdev.KEY_4,
	"5": evdev.KEY_5, "6": evdev.KEY_6, "7": evdev.KEY_7, "8": evdev.KEY_8, "9": evdev.KEY_9,

	"F1": evdev.KEY_F1, "F2": evdev.KEY_F2, "F3": evdev.KEY_F3, "F4": evdev.KEY_F4,
	"F5": evdev.KEY_F5, "F6": evdev.KEY_F6, "F7": evdev.KEY_F7, "F8": evdev.KEY_F8,
	"F9": evdev.KEY_F9, "F10": evdev.KEY_F10, "F11": evdev.KEY_F11, "F12": evdev.KEY_F12,
	"F13": evdev.KEY_F13, "F14": evdev.KEY_F14, "F15": evdev.KEY_F15, "F16": evdev.KEY_F16,
	"F17": evdev.KEY_F17, "F18": evdev.KEY_F18, "F19": evdev.KEY_F19, "F20": evdev.KEY_F20,
	"F21": evdev.KEY_F21, "F22": evdev.KEY_F22, "F23": evdev.KEY_F23, "F24": evdev.KEY_F24,
}

var modifierCodes = map[string]evdev.EvCode{
	"ctrl":  evdev.KEY_LEFTCTRL,
	"shift": evdev.KEY_LEFTSHIFT,
	"alt":   evdev.KEY_LEFTALT,
	"meta":  evdev.KEY_LEFTMETA,
}

// writer is the part of *evdev.InputDevice the injector uses.
type writer interface {
	WriteOne(event *evdev.InputEvent) error
	Close() error
}

// Uinput presses keys on a virtual keyboard.
type Uinput struct {
	mu  sync.Mutex
	dev writer
}

// New registers a virtual keyboard with uinput. Creating it needs write
// access to /dev/uinput; without it New returns an error wrapping
// ErrUnavailable.
func New(name string) (*Uinput, error) {
	if name == "" {
		name = DefaultDeviceName
	}
	keys := make([]evdev.EvCode, 0, len(codes)+len(modifierCodes))
	for _, c := range codes {
		keys = append(keys, c)
	}
	for _, c := range modifierCodes {
		keys = append(keys, c)
	}
	dev, err := evdev.CreateDevice(name, evdev.InputID{
		BusType: 0x06, // BUS_VIRTUAL
		Vendor:  0x1209,
		Product: 0x4d4d,
		Version: 1,
	}, map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: keys,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	log.WithField("device", name).Info("virtual keyboard created")
	return &Uinput{dev: dev}, nil
}

// PressAndRelease holds modifiers and key for hold, then releases them in
// reverse order. The release happens even when ctx is cancelled.
func (u *Uinput) PressAndRelease(ctx context.Context, key string, modifiers []string, hold time.Duration) error {
	seq, err := resolve(key, modifiers)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	for _, c := range seq {
		if err := u.emit(c, 1); err != nil {
			return err
		}
	}
	if hold > 0 {
		t := time.NewTimer(hold)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	var firstErr error
	for i := len(seq) - 1; i >= 0; i-- {
		if err := u.emit(seq[i], 0); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// emit writes one key event followed by a sync report.
func (u *Uinput) emit(code evdev.EvCode, value int32) error {
	if err := u.dev.WriteOne(&evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value}); err != nil {
		return fmt.Errorf("write key event: %w", err)
	}
	if err := u.dev.WriteOne(&evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT}); err != nil {
		return fmt.Errorf("write sync event: %w", err)
	}
	return nil
}

// Close removes the virtual keyboard.
func (u *Uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.dev.Close()
}

// resolve returns the codes to press, modifiers first.
func resolve(key string, modifiers []string) ([]evdev.EvCode, error) {
	seq := make([]evdev.EvCode, 0, len(modifiers)+1)
	for _, m := range modifiers {
		name, ok := Modifier(m)
		if !ok {
			return nil, fmt.Errorf("unknown modifier %q", m)
		}
		seq = append(seq, modifierCodes[name])
	}
	code, ok := codes[Normalize(key)]
	if !ok {
		return nil, fmt.Errorf("unknown key %q", key)
	}
	return append(seq, code), nil
}
