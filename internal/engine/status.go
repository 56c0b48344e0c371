package engine

import "time"

// StreakState is the coarse badge state derived from the last event day
// alone. It deliberately knows nothing about goals, leeway, or freezes —
// it is the O(1) answer for UI chrome, and near day boundaries it may
// disagree with a full Compute (a gap that leeway or a freeze would rescue
// still classifies as Broken here). Both signals are valid; callers pick.
type StreakState int

const (
	// StateNoEvents means nothing has ever been logged.
	StateNoEvents StreakState = iota
	// StateActive means the last event was today.
	StateActive
	// StateAtRisk means the last event was yesterday and nothing has been
	// logged today yet.
	StateAtRisk
	// StateBroken means the last event is two or more days old.
	StateBroken
)

// String returns a short lowercase label for display.
func (s StreakState) String() string {
	switch s {
	case StateNoEvents:
		return "no events"
	case StateActive:
		return "active"
	case StateAtRisk:
		return "at risk"
	case StateBroken:
		return "broken"
	}
	return "unknown"
}

// Status pairs a state with the day distance that produced it.
type Status struct {
	State     StreakState
	DaysSince int // calendar days from last event to now; 0 when no events
}

// Alive reports whether the streak still counts for badge purposes
// (active today, or yesterday with today still open).
func (s Status) Alive() bool {
	return s.State == StateActive || s.State == StateAtRisk
}

// Classify maps the last event instant to a coarse state without running
// the full engine. A nil lastEventAt yields StateNoEvents. Day distance is
// measured on calendar days in loc, so 23:59 yesterday to 00:01 today is
// one day apart.
func Classify(lastEventAt *time.Time, now time.Time, loc *time.Location) Status {
	if lastEventAt == nil {
		return Status{State: StateNoEvents}
	}
	days := DayOf(*lastEventAt, loc).DaysUntil(DayOf(now, loc))
	if days < 0 {
		// Future-dated last event; treat as logged today.
		days = 0
	}
	switch days {
	case 0:
		return Status{State: StateActive}
	case 1:
		return Status{State: StateAtRisk, DaysSince: 1}
	default:
		return Status{State: StateBroken, DaysSince: days}
	}
}

// GapDays returns how many whole days sit unfilled between the last event
// day and the walk's reference day. 0 means the streak is current.
func GapDays(lastEventDay, referenceDay Day) int {
	gap := lastEventDay.DaysUntil(referenceDay) - 1
	if gap < 0 {
		return 0
	}
	return gap
}

// CanBeSaved reports whether the available freeze inventory covers the gap.
func CanBeSaved(freezesRemaining, gapDays int) bool {
	return freezesRemaining >= gapDays
}
