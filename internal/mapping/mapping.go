// Package mapping builds action tables from YAML files.
//
// A file holds a list of mappings. Each mapping names exactly one table key
// (note, program or controller) and either a list of unconditional actions
// or a list of trigger/action bindings:
//
//	mappings:
//	  - note: 1
//	    triggers:
//	      - trigger: {type: long_press}
//	        action: {type: keystroke, key: F16}
//	  - controller: 7
//	    actions:
//	      - {type: send, set: {channel: 2}}
package mapping

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dayuer/midimapper-go/internal/action"
	"github.com/dayuer/midimapper-go/internal/keystroke"
	"github.com/dayuer/midimapper-go/internal/midi"
	"github.com/dayuer/midimapper-go/internal/router"
	"github.com/dayuer/midimapper-go/internal/trigger"
)

//go:embed default.yaml
var defaultTable []byte

// File is the top-level structure of a mapping file.
type File struct {
	Mappings []Mapping `yaml:"mappings"`
}

// Mapping is one table entry.
type Mapping struct {
	Note       *int          `yaml:"note,omitempty"`
	Program    *int          `yaml:"program,omitempty"`
	Controller *int          `yaml:"controller,omitempty"`
	Actions    []ActionSpec  `yaml:"actions,omitempty"`
	Triggers   []BindingSpec `yaml:"triggers,omitempty"`
}

// BindingSpec pairs a trigger with an action.
type BindingSpec struct {
	Trigger TriggerSpec `yaml:"trigger"`
	Action  ActionSpec  `yaml:"action"`
}

// TriggerSpec describes a trigger. Type is tap, long_press, change or compare.
type TriggerSpec struct {
	Type      string        `yaml:"type"`
	Threshold time.Duration `yaml:"threshold,omitempty"` // tap, long_press
	Field     string        `yaml:"field,omitempty"`     // change, compare
	Op        string        `yaml:"op,omitempty"`        // compare
	Value     int           `yaml:"value,omitempty"`     // compare
	For       time.Duration `yaml:"for,omitempty"`       // compare
}

// ActionSpec describes an action. Type is keystroke, note, program,
// controller, send or through.
type ActionSpec struct {
	Type      string         `yaml:"type"`
	Key       string         `yaml:"key,omitempty"`
	Modifiers []string       `yaml:"modifiers,omitempty"`
	Duration  time.Duration  `yaml:"duration,omitempty"`
	Number    *int           `yaml:"number,omitempty"`
	Velocity  *int           `yaml:"velocity,omitempty"`
	Toggle    bool           `yaml:"toggle,omitempty"`
	Value     *int           `yaml:"value,omitempty"`
	Channel   *int           `yaml:"channel,omitempty"`
	Set       map[string]int `yaml:"set,omitempty"`
}

// Options holds defaults applied while building.
type Options struct {
	LongPress time.Duration // threshold for tap/long_press without one
}

// Load reads and builds the table in path.
func Load(path string, opts Options) (router.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	t, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Default returns the built-in table.
func Default(opts Options) (router.Table, error) {
	return Parse(defaultTable, opts)
}

// Parse builds a table from YAML.
func Parse(data []byte, opts Options) (router.Table, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	return Build(f, opts)
}

// Build validates f and constructs fresh trigger and action instances.
// Every call returns independent state.
func Build(f File, opts Options) (router.Table, error) {
	if opts.LongPress <= 0 {
		opts.LongPress = trigger.DefaultLongPress
	}
	table := make(router.Table, len(f.Mappings))
	for i, m := range f.Mappings {
		key, err := m.key()
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
		if _, dup := table[key]; dup {
			return nil, fmt.Errorf("mapping %d: duplicate key %s", i, key)
		}
		entry, err := m.entry(opts)
		if err != nil {
			return nil, fmt.Errorf("mapping %d (%s): %w", i, key, err)
		}
		table[key] = entry
	}
	return table, nil
}

func (m Mapping) key() (midi.Key, error) {
	var keys []midi.Key
	if m.Note != nil {
		keys = append(keys, midi.NoteKey(*m.Note))
	}
	if m.Program != nil {
		keys = append(keys, midi.ProgramKey(*m.Program))
	}
	if m.Controller != nil {
		keys = append(keys, midi.ControllerKey(*m.Controller))
	}
	if len(keys) != 1 {
		return midi.Key{}, fmt.Errorf("need exactly one of note, program, controller")
	}
	if err := dataByte("number", keys[0].Number); err != nil {
		return midi.Key{}, err
	}
	return keys[0], nil
}

func (m Mapping) entry(opts Options) (router.Entry, error) {
	switch {
	case len(m.Actions) > 0 && len(m.Triggers) > 0:
		return router.Entry{}, fmt.Errorf("actions and triggers are mutually exclusive")
	case len(m.Actions) == 0 && len(m.Triggers) == 0:
		return router.Entry{}, fmt.Errorf("no actions or triggers")
	}

	var e router.Entry
	for i, spec := range m.Actions {
		a, err := spec.build()
		if err != nil {
			return router.Entry{}, fmt.Errorf("action %d: %w", i, err)
		}
		e.Actions = append(e.Actions, a)
	}
	for i, b := range m.Triggers {
		t, err := b.Trigger.build(opts)
		if err != nil {
			return router.Entry{}, fmt.Errorf("trigger %d: %w", i, err)
		}
		a, err := b.Action.build()
		if err != nil {
			return router.Entry{}, fmt.Errorf("trigger %d action: %w", i, err)
		}
		e.Bindings = append(e.Bindings, router.Binding{Trigger: t, Action: a})
	}
	return e, nil
}

func (s TriggerSpec) build(opts Options) (trigger.Trigger, error) {
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = opts.LongPress
	}
	switch normalize(s.Type) {
	case "tap":
		return trigger.NewTap(threshold), nil
	case "long_press", "longpress":
		return trigger.NewLongPress(threshold), nil
	case "change":
		if err := fieldName(s.Field, true); err != nil {
			return nil, err
		}
		return trigger.NewChange(s.Field), nil
	case "compare":
		field := s.Field
		if field == "" {
			field = "value"
		}
		if err := fieldName(field, false); err != nil {
			return nil, err
		}
		if s.For < 0 {
			return nil, fmt.Errorf("negative compare duration %s", s.For)
		}
		pred, err := trigger.FieldPredicate(field, s.Op, s.Value)
		if err != nil {
			return nil, err
		}
		return trigger.NewCompare(fmt.Sprintf("%s%s%d", field, s.Op, s.Value), pred, s.For), nil
	case "":
		return nil, fmt.Errorf("missing trigger type")
	}
	return nil, fmt.Errorf("unknown trigger type %q", s.Type)
}

func (s ActionSpec) build() (action.Action, error) {
	if s.Channel != nil {
		if *s.Channel < 0 || *s.Channel > 15 {
			return nil, fmt.Errorf("channel %d out of range 0-15", *s.Channel)
		}
	}
	if s.Duration < 0 {
		return nil, fmt.Errorf("negative duration %s", s.Duration)
	}

	switch normalize(s.Type) {
	case "keystroke", "key":
		if !keystroke.Known(s.Key) {
			return nil, fmt.Errorf("unknown key %q", s.Key)
		}
		mods := make([]string, 0, len(s.Modifiers))
		for _, m := range s.Modifiers {
			name, ok := keystroke.Modifier(m)
			if !ok {
				return nil, fmt.Errorf("unknown modifier %q", m)
			}
			mods = append(mods, name)
		}
		k := action.NewKeystroke(keystroke.Normalize(s.Key), mods...)
		if s.Duration > 0 {
			k.Duration = s.Duration
		}
		return k, nil

	case "note":
		num, err := required("number", s.Number)
		if err != nil {
			return nil, err
		}
		n := action.NewNote(num, s.Toggle)
		if s.Velocity != nil {
			if err := dataByte("velocity", *s.Velocity); err != nil {
				return nil, err
			}
			n.Velocity = *s.Velocity
		}
		if s.Duration > 0 {
			n.Duration = s.Duration
		}
		n.Channel = channel(s.Channel)
		return n, nil

	case "program":
		num, err := required("number", s.Number)
		if err != nil {
			return nil, err
		}
		p := action.NewProgram(num)
		p.Channel = channel(s.Channel)
		return p, nil

	case "controller", "cc":
		num, err := required("number", s.Number)
		if err != nil {
			return nil, err
		}
		val, err := required("value", s.Value)
		if err != nil {
			return nil, err
		}
		c := action.NewController(num, val)
		c.Channel = channel(s.Channel)
		return c, nil

	case "send":
		if len(s.Set) == 0 {
			return nil, fmt.Errorf("send needs at least one field in set")
		}
		for name, v := range s.Set {
			if err := fieldName(name, false); err != nil {
				return nil, err
			}
			limit := 127
			if strings.EqualFold(name, "channel") {
				limit = 15
			}
			if v < 0 || v > limit {
				return nil, fmt.Errorf("set %s=%d out of range 0-%d", name, v, limit)
			}
		}
		return action.NewSend(s.Set), nil

	case "through":
		return action.Through{}, nil

	case "":
		return nil, fmt.Errorf("missing action type")
	}
	return nil, fmt.Errorf("unknown action type %q", s.Type)
}

var fields = map[string]bool{
	"channel": true, "number": true, "note": true, "velocity": true,
	"controller": true, "program": true, "value": true,
}

func fieldName(name string, allowEmpty bool) error {
	if name == "" && allowEmpty {
		return nil
	}
	if !fields[strings.ToLower(name)] {
		return fmt.Errorf("unknown message field %q", name)
	}
	return nil
}

func required(name string, v *int) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("missing %s", name)
	}
	return *v, dataByte(name, *v)
}

func dataByte(name string, v int) error {
	if v < 0 || v > 127 {
		return fmt.Errorf("%s %d out of range 0-127", name, v)
	}
	return nil
}

func channel(ch *int) int {
	if ch == nil {
		return midi.Unset
	}
	return *ch
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
