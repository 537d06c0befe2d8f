package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dayuer/midimapper-go/internal/action"
	"github.com/dayuer/midimapper-go/internal/midi"
	"github.com/dayuer/midimapper-go/internal/trigger"
)

// Binding pairs a trigger with the action it releases.
type Binding struct {
	Trigger trigger.Trigger
	Action  action.Action
}

// Entry is what a table key maps to: unconditional actions, conditional
// bindings, or both.
type Entry struct {
	Actions  []action.Action
	Bindings []Binding
}

// Table maps note, program and controller numbers to entries. It is built
// once and only read while routing; mutable state lives inside the trigger
// and action values.
type Table map[midi.Key]Entry

// Keys returns the table keys ordered by class then number.
func (t Table) Keys() []midi.Key {
	keys := make([]midi.Key, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Class != keys[j].Class {
			return keys[i].Class < keys[j].Class
		}
		return keys[i].Number < keys[j].Number
	})
	return keys
}

// Describe renders one line per key, for the check command and debug logs.
func (t Table) Describe() string {
	var b strings.Builder
	for _, k := range t.Keys() {
		e := t[k]
		parts := make([]string, 0, len(e.Actions)+len(e.Bindings))
		for _, a := range e.Actions {
			parts = append(parts, a.String())
		}
		for _, bd := range e.Bindings {
			parts = append(parts, fmt.Sprintf("%s -> %s", bd.Trigger, bd.Action))
		}
		fmt.Fprintf(&b, "%-15s %s\n", k, strings.Join(parts, ", "))
	}
	return b.String()
}

// cancelTimers stops any deferred trigger still armed.
func (t Table) cancelTimers() {
	for _, e := range t {
		for _, bd := range e.Bindings {
			if c, ok := bd.Trigger.(interface{ Cancel() }); ok {
				c.Cancel()
			}
		}
	}
}
