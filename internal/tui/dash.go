// Package tui holds the Bubbletea dashboard.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emberhq/ember/internal/engine"
	"github.com/emberhq/ember/internal/streak"
	"github.com/emberhq/ember/internal/ui"
)

// DashAction indicates what action triggered the dashboard exit.
type DashAction int

const (
	// DashActionQuit means the user pressed q or ctrl+c.
	DashActionQuit DashAction = iota
	// DashActionLog means the user pressed l to log today's activity.
	DashActionLog
)

// activityStripDays is how many trailing days the activity strip shows.
const activityStripDays = 14

// DashData holds all loaded panel data for the dashboard.
type DashData struct {
	Snapshot engine.Snapshot
	Status   engine.Status
	Freezes  []engine.Freeze
	// Strip holds per-day qualification for the trailing days, oldest first.
	Strip []StripDay
}

// StripDay is one cell of the activity strip.
type StripDay struct {
	Day       engine.Day
	Count     int
	Qualified bool
	Frozen    bool
}

type dashDataMsg DashData
type dashErrMsg struct{ err error }

// DashModel is the Bubbletea model for the ember dashboard.
type DashModel struct {
	mgr     *streak.Manager
	store   *streak.Store
	loc     *time.Location
	data    DashData
	width   int
	height  int
	loading bool
	err     error
	action  DashAction
	now     func() time.Time
}

// NewDashModel creates a DashModel over the given manager and store.
func NewDashModel(mgr *streak.Manager, st *streak.Store, loc *time.Location) *DashModel {
	return &DashModel{
		mgr:     mgr,
		store:   st,
		loc:     loc,
		width:   80,
		height:  24,
		loading: true,
		now:     time.Now,
	}
}

// RunDash runs the dashboard TUI once and returns the exit action.
// The caller owns the outer loop (re-launching after a log action).
func RunDash(mgr *streak.Manager, st *streak.Store, loc *time.Location) (DashAction, error) {
	m := NewDashModel(mgr, st, loc)
	prog := tea.NewProgram(m, tea.WithAltScreen())
	result, err := prog.Run()
	if err != nil {
		return DashActionQuit, fmt.Errorf("dashboard: %w", err)
	}
	final := result.(*DashModel)
	return final.action, nil
}

// --- Bubbletea model interface ---

func (m *DashModel) Init() tea.Cmd {
	return m.loadData()
}

func (m *DashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dashDataMsg:
		m.data = DashData(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case dashErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *DashModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.action = DashActionQuit
		return m, tea.Quit
	case "l":
		if !m.loading {
			m.action = DashActionLog
			return m, tea.Quit
		}
	case "r":
		m.loading = true
		return m, m.loadData()
	}
	return m, nil
}

func (m *DashModel) View() string {
	if m.loading {
		return "\n  " + ui.Muted.Render("Loading…") + "\n"
	}
	if m.err != nil {
		return "\n  " + ui.Error.Render("Error: "+m.err.Error()) + "\n"
	}
	if m.width < 60 {
		return m.renderMinimal()
	}
	return m.renderStacked()
}

// --- Layout builders ---

func (m *DashModel) renderStacked() string {
	w := m.width - 4
	parts := []string{
		renderStreakPanel(m.data, w),
		"",
		renderActivityStrip(m.data.Strip),
		"",
		renderFreezePanel(m.data.Freezes, m.now()),
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n\n" + renderHelpBar() + "\n"
}

func (m *DashModel) renderMinimal() string {
	var b strings.Builder
	snap := m.data.Snapshot
	b.WriteString("\n")
	b.WriteString("  " + ui.Title.Render(ui.IconEmber+"ember") + "\n\n")
	b.WriteString(fmt.Sprintf("  %s %d-day streak\n", ui.IconStreak, snap.CurrentStreak))
	if snap.LongestStreak > snap.CurrentStreak {
		b.WriteString(fmt.Sprintf("  %s best: %d\n", ui.IconStar, snap.LongestStreak))
	}
	if snap.EventsPerDay > 1 {
		b.WriteString(fmt.Sprintf("  %s today: %d/%d\n", ui.IconDay, snap.TodayEventCount, snap.EventsPerDay))
	}
	b.WriteString(fmt.Sprintf("  %s %d left\n", ui.IconFreeze, snap.FreezesRemaining))
	b.WriteString("\n  " + ui.Muted.Render("l log · r refresh · q quit") + "\n")
	return b.String()
}

// --- Panel renderers (pure functions, no model state) ---

// renderStreakPanel renders the headline streak numbers and status.
func renderStreakPanel(data DashData, width int) string {
	var b strings.Builder
	snap := data.Snapshot

	b.WriteString("  " + ui.Title.Render(ui.IconEmber+"Streak") + "\n\n")

	meterW := snap.CurrentStreak
	if meterW > width-20 {
		meterW = width - 20
	}
	if meterW < 7 {
		meterW = 7
	}

	b.WriteString(fmt.Sprintf("  %s %s\n",
		ui.Accent.Render(fmt.Sprintf("%d days", snap.CurrentStreak)),
		ui.FlameMeter(snap.CurrentStreak, meterW)))

	if snap.LongestStreak > 0 {
		b.WriteString(fmt.Sprintf("  %s best: %d days\n", ui.IconStar, snap.LongestStreak))
	}
	if snap.StreakStartDate != nil {
		b.WriteString("  " + ui.Muted.Render("since "+snap.StreakStartDate.String()) + "\n")
	}

	b.WriteString("\n  " + renderStatusLine(data.Status) + "\n")

	if snap.EventsPerDay > 1 {
		b.WriteString(fmt.Sprintf("  %s today's goal: %d/%d\n",
			ui.IconDay, snap.TodayEventCount, snap.EventsPerDay))
	}

	return b.String()
}

// renderStatusLine maps a classifier state to a colored one-liner.
func renderStatusLine(st engine.Status) string {
	switch st.State {
	case engine.StateActive:
		return ui.Success.Render("burning bright — logged recently")
	case engine.StateAtRisk:
		return ui.Warning.Render("at risk — log today to keep it alive")
	case engine.StateBroken:
		return ui.Error.Render(fmt.Sprintf("gone cold — %d days since last activity", st.DaysSince))
	default:
		return ui.Muted.Render("no activity yet — press l to light it up")
	}
}

// renderActivityStrip renders one cell per trailing day, oldest first.
func renderActivityStrip(strip []StripDay) string {
	var b strings.Builder
	b.WriteString("  " + ui.Title.Render(ui.IconDay+" Last "+fmt.Sprint(len(strip))+" days") + "\n\n  ")
	for _, d := range strip {
		switch {
		case d.Frozen:
			b.WriteString(ui.Info.Render(ui.IconFreeze))
		case d.Qualified:
			b.WriteString(ui.Accent.Render(ui.IconLit))
		default:
			b.WriteString(ui.Muted.Render(ui.IconUnlit))
		}
		b.WriteString(" ")
	}
	b.WriteString("\n")
	return b.String()
}

// renderFreezePanel lists the freeze inventory.
func renderFreezePanel(freezes []engine.Freeze, now time.Time) string {
	var b strings.Builder

	available := 0
	for _, fz := range freezes {
		if fz.Available(now) {
			available++
		}
	}

	b.WriteString("  " + ui.Title.Render(ui.IconFreeze+" Freezes") +
		ui.Muted.Render(fmt.Sprintf(" %d available", available)) + "\n\n")

	if available == 0 {
		b.WriteString("  " + ui.Muted.Render("None left — gaps will break the streak.") + "\n")
		return b.String()
	}

	shown := 0
	for _, fz := range freezes {
		if !fz.Available(now) {
			continue
		}
		line := "  " + ui.IconDot + " " + fz.ID
		if fz.ExpiresAt != nil {
			line += ui.Muted.Render(" expires " + fz.ExpiresAt.Format("Jan 2"))
		}
		b.WriteString(line + "\n")
		shown++
		if shown == 5 {
			if available > 5 {
				b.WriteString("  " + ui.Muted.Render(fmt.Sprintf("…and %d more", available-5)) + "\n")
			}
			break
		}
	}
	return b.String()
}

// renderHelpBar renders the keyboard shortcuts hint.
func renderHelpBar() string {
	return ui.Muted.Render("  l log · r refresh · q quit")
}

// --- Data loading ---

func (m *DashModel) loadData() tea.Cmd {
	return func() tea.Msg {
		now := m.now()

		snap, err := m.mgr.Refresh(now)
		if err != nil {
			return dashErrMsg{err}
		}
		status, err := m.mgr.Status(now)
		if err != nil {
			return dashErrMsg{err}
		}
		cfg := m.mgr.Config()
		events, err := m.store.AllEvents(cfg.StreakID)
		if err != nil {
			return dashErrMsg{err}
		}
		freezes, err := m.store.AllFreezes(cfg.StreakID)
		if err != nil {
			return dashErrMsg{err}
		}

		return dashDataMsg(DashData{
			Snapshot: snap,
			Status:   status,
			Freezes:  freezes,
			Strip:    BuildStrip(events, cfg, now, m.loc, activityStripDays),
		})
	}
}

// BuildStrip computes the trailing-days activity strip, oldest first. A day
// is frozen when any of its events carries freeze metadata; it qualifies
// when its event count meets the daily goal.
func BuildStrip(events []engine.Event, cfg engine.Config, now time.Time, loc *time.Location, days int) []StripDay {
	buckets := engine.GroupByDay(events, now, loc)
	today := engine.DayOf(now, loc)

	strip := make([]StripDay, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDays(-i)
		evs := buckets[d]
		cell := StripDay{
			Day:       d,
			Count:     len(evs),
			Qualified: len(evs) >= cfg.EventsPerDay,
		}
		for _, ev := range evs {
			if v, ok := ev.Metadata["freeze"]; ok && v == engine.MetaB(true) {
				cell.Frozen = true
				break
			}
		}
		strip = append(strip, cell)
	}
	return strip
}
