package trigger

import (
	"fmt"
	"sync"
	"time"
)

// DefaultLongPress separates a tap from a long press.
const DefaultLongPress = 500 * time.Millisecond

// Press is the classification of a released note.
type Press int

const (
	PressNone Press = iota
	PressTap
	PressLong
)

func (p Press) String() string {
	switch p {
	case PressTap:
		return "tap"
	case PressLong:
		return "long_press"
	default:
		return "none"
	}
}

// pressTracker records when each note went down and classifies the release.
type pressTracker struct {
	threshold time.Duration

	mu   sync.Mutex
	down map[int]time.Time
}

func (p *pressTracker) init(threshold time.Duration) {
	if threshold <= 0 {
		threshold = DefaultLongPress
	}
	p.threshold = threshold
	p.down = make(map[int]time.Time)
}

func (p *pressTracker) classify(id string, ev *Event) Press {
	if cached, ok := ev.cachedPress(id); ok {
		return cached
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result := PressNone
	m := ev.Msg
	switch {
	case m.IsNoteOn():
		// A re-press before release keeps the first start time.
		if _, held := p.down[m.Number]; !held {
			p.down[m.Number] = ev.At
		}
	case m.IsNoteOff():
		start, ok := p.down[m.Number]
		if !ok {
			break
		}
		delete(p.down, m.Number)
		if ev.At.Sub(start) > p.threshold {
			result = PressLong
		} else {
			result = PressTap
		}
	}
	ev.cachePress(id, result)
	return result
}

// Held reports how many notes this trigger currently sees held down.
func (p *pressTracker) Held() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.down)
}

// Tap matches the release of a note held no longer than the threshold.
type Tap struct {
	id string
	pressTracker
}

// NewTap returns a tap trigger; threshold <= 0 uses DefaultLongPress.
func NewTap(threshold time.Duration) *Tap {
	t := &Tap{id: newID()}
	t.init(threshold)
	return t
}

func (t *Tap) ID() string { return t.id }

func (t *Tap) Evaluate(ev *Event, _ FireFunc) Result {
	if t.classify(t.id, ev) == PressTap {
		return Matched
	}
	return NotMatched
}

func (t *Tap) String() string { return fmt.Sprintf("tap(<=%s)", t.threshold) }

// LongPress matches the release of a note held longer than the threshold.
type LongPress struct {
	id string
	pressTracker
}

// NewLongPress returns a long-press trigger; threshold <= 0 uses DefaultLongPress.
func NewLongPress(threshold time.Duration) *LongPress {
	l := &LongPress{id: newID()}
	l.init(threshold)
	return l
}

func (l *LongPress) ID() string { return l.id }

func (l *LongPress) Evaluate(ev *Event, _ FireFunc) Result {
	if l.classify(l.id, ev) == PressLong {
		return Matched
	}
	return NotMatched
}

func (l *LongPress) String() string { return fmt.Sprintf("long_press(>%s)", l.threshold) }
