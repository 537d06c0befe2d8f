// Package keystroke injects key presses on the host for Keystroke actions.
//
// On Linux it creates a virtual keyboard through uinput. Elsewhere New
// returns ErrUnavailable and Keystroke actions only log.
package keystroke

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrUnavailable is returned when keystroke injection cannot be set up on
// this host.
var ErrUnavailable = errors.New("keystroke injection unavailable")

// modifierAliases maps accepted modifier spellings to canonical names.
var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"meta":    "meta",
	"cmd":     "meta",
	"command": "meta",
	"super":   "meta",
}

// keyNames lists every key the injector understands.
var keyNames = func() []string {
	names := []string{
		"ESC", "TAB", "SPACE", "ENTER", "BACKSPACE", "DELETE", "INSERT",
		"HOME", "END", "PAGEUP", "PAGEDOWN", "UP", "DOWN", "LEFT", "RIGHT",
		"MINUS", "EQUAL", "COMMA", "DOT", "SLASH", "SEMICOLON",
		"PLAYPAUSE", "NEXTSONG", "PREVIOUSSONG", "STOPCD", "MUTE", "VOLUMEUP", "VOLUMEDOWN",
	}
	for c := 'A'; c <= 'Z'; c++ {
		names = append(names, string(c))
	}
	for c := '0'; c <= '9'; c++ {
		names = append(names, string(c))
	}
	for i := 1; i <= 24; i++ {
		names = append(names, "F"+strconv.Itoa(i))
	}
	return names
}()

// Normalize returns the canonical spelling of a key name.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Known reports whether name is a key the injector can press.
func Known(name string) bool {
	n := Normalize(name)
	for _, k := range keyNames {
		if k == n {
			return true
		}
	}
	return false
}

// Modifier returns the canonical modifier name for an accepted spelling.
func Modifier(name string) (string, bool) {
	m, ok := modifierAliases[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// KeyNames returns the supported key names, sorted.
func KeyNames() []string {
	out := append([]string(nil), keyNames...)
	sort.Strings(out)
	return out
}

// ModifierNames returns the accepted modifier spellings, sorted.
func ModifierNames() []string {
	out := make([]string, 0, len(modifierAliases))
	for k := range modifierAliases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
