package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dayuer/midimapper-go/internal/ports"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	driverStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderPorts formats a port listing for the terminal.
func RenderPorts(l ports.Listing) string {
	var b strings.Builder
	section := func(title string, eps []ports.Endpoint) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
		if len(eps) == 0 {
			b.WriteString(dimStyle.Render("  (none)"))
			b.WriteString("\n")
		}
		for _, ep := range eps {
			b.WriteString("  ")
			b.WriteString(ep.Name)
			b.WriteString(" ")
			b.WriteString(driverStyle.Render("[" + ep.Driver + "]"))
			b.WriteString("\n")
		}
	}
	section("Sources", l.Sources)
	b.WriteString("\n")
	section("Destinations", l.Destinations)
	return b.String()
}
