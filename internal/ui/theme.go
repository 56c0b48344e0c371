package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ember's color palette — warm flame tones over cool ash.
var (
	// Primary colors
	Flame  = lipgloss.Color("#FF6B35")
	Amber  = lipgloss.Color("#FFBF00")
	Coal   = lipgloss.Color("#2D2D2D")
	Ash    = lipgloss.Color("#8B8680")
	Frost  = lipgloss.Color("#7FDBFF")
	Moss   = lipgloss.Color("#50C878")
	Cinder = lipgloss.Color("#E0115F")
	Dim    = lipgloss.Color("#666666")
	Bright = lipgloss.Color("#FFFFFF")

	// Semantic styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Flame)

	Subtitle = lipgloss.NewStyle().
			Foreground(Amber)

	Success = lipgloss.NewStyle().
		Foreground(Moss)

	Error = lipgloss.NewStyle().
		Foreground(Cinder)

	Warning = lipgloss.NewStyle().
		Foreground(Amber)

	Info = lipgloss.NewStyle().
		Foreground(Frost)

	Muted = lipgloss.NewStyle().
		Foreground(Dim)

	Accent = lipgloss.NewStyle().
		Foreground(Flame).
		Bold(true)

	// Component styles
	Banner = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Flame).
		Padding(0, 1)

	KeyStyle = lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Bright)
)

// Icon constants — consistent emoji language.
const (
	IconEmber  = "🔥 "
	IconFreeze = "🧊"
	IconStreak = "⚡"
	IconDay    = "📅"
	IconStar   = "⭐"
	IconWarn   = "⚠ "
	IconError  = "✗ "
	IconOk     = "✓ "
	IconArrow  = "→"
	IconDot    = "·"
	IconLit    = "●"
	IconUnlit  = "○"
)

// ColorEnabled reports whether the terminal supports color at all.
// lipgloss degrades automatically; this is for callers that want to skip
// decorative output entirely on dumb terminals.
func ColorEnabled() bool {
	return termenv.ColorProfile() != termenv.Ascii
}
