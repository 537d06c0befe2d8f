// Package tui is the interactive terminal view: a scrolling feed of router
// events above a line of counters.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dayuer/midimapper-go/internal/bus"
)

// DefaultHistory is how many events the feed keeps.
const DefaultHistory = 200

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	typeStyles  = map[bus.EventType]lipgloss.Style{
		bus.EventIn:      lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		bus.EventOut:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		bus.EventPass:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		bus.EventFire:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		bus.EventPending: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		bus.EventMiss:    lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		bus.EventDrop:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		bus.EventError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

// EventMsg carries one bus event into the program.
type EventMsg bus.Event

// Feed connects the bus to the model. Subscribe Feed.Push on the bus and
// hand the Feed to NewModel.
type Feed struct {
	ch chan bus.Event
}

// NewFeed returns a feed buffering up to size events.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultHistory
	}
	return &Feed{ch: make(chan bus.Event, size)}
}

// Push queues ev for the view. It never blocks; a full feed drops ev.
func (f *Feed) Push(ev bus.Event) {
	select {
	case f.ch <- ev:
	default:
	}
}

// Listen waits for the next event.
func (f *Feed) Listen() tea.Cmd {
	return func() tea.Msg {
		return EventMsg(<-f.ch)
	}
}

// Model is the bubbletea model.
type Model struct {
	Title   string
	feed    *Feed
	stats   func() string
	history int

	lines    []string
	counts   map[bus.EventType]int
	paused   bool
	height   int
	quitting bool
}

// NewModel returns a model reading from feed. stats, if set, renders the
// footer counters.
func NewModel(title string, feed *Feed, stats func() string) Model {
	return Model{
		Title:   title,
		feed:    feed,
		stats:   stats,
		history: DefaultHistory,
		counts:  make(map[bus.EventType]int),
	}
}

func (m Model) Init() tea.Cmd {
	return m.feed.Listen()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
		case "c":
			m.lines = nil
		}

	case tea.WindowSizeMsg:
		m.height = msg.Height

	case EventMsg:
		ev := bus.Event(msg)
		m.counts[ev.Type]++
		if !m.paused {
			m.lines = append(m.lines, formatEvent(ev))
			if len(m.lines) > m.history {
				m.lines = m.lines[len(m.lines)-m.history:]
			}
		}
		return m, m.feed.Listen()
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	state := "LIVE"
	if m.paused {
		state = "PAUSED"
	}
	header := headerStyle.Render(fmt.Sprintf("%s  %s", m.Title, state))

	lines := m.lines
	if room := m.height - 4; room > 0 && len(lines) > room {
		lines = lines[len(lines)-room:]
	}

	footer := fmt.Sprintf("in:%d out:%d pass:%d fire:%d miss:%d drop:%d err:%d",
		m.counts[bus.EventIn], m.counts[bus.EventOut], m.counts[bus.EventPass],
		m.counts[bus.EventFire], m.counts[bus.EventMiss], m.counts[bus.EventDrop],
		m.counts[bus.EventError])
	if m.stats != nil {
		footer = m.stats()
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(footer + "   p:pause  c:clear  q:quit"))
	return b.String()
}

func formatEvent(ev bus.Event) string {
	style, ok := typeStyles[ev.Type]
	if !ok {
		style = dimStyle
	}
	parts := []string{
		dimStyle.Render(ev.Time.Format("15:04:05.000")),
		style.Render(fmt.Sprintf("%-7s", ev.Type)),
	}
	if ev.Message != "" {
		parts = append(parts, ev.Message)
	}
	if ev.Trigger != "" {
		parts = append(parts, "trigger="+ev.Trigger)
	}
	if ev.Action != "" {
		parts = append(parts, "action="+ev.Action)
	}
	if ev.Error != "" {
		parts = append(parts, style.Render(ev.Error))
	}
	return strings.Join(parts, " ")
}
