package engine

import "time"

// Snapshot is the complete result of one engine run. It is rebuilt from
// scratch on every invocation, never incrementally patched.
//
// Invariants: LongestStreak >= CurrentStreak, all counts >= 0, and
// StreakStartDate is non-nil whenever CurrentStreak > 0 — including runs
// that only exist because freezes filled the gaps.
type Snapshot struct {
	CurrentStreak     int
	LongestStreak     int
	LastEventAt       *time.Time // most recent event by timestamp, qualified or not
	LastEventTimezone string
	StreakStartDate   *Day // oldest day of the counted run
	TotalEvents       int  // every event ever logged, future-dated included
	TodayEventCount   int  // raw count for plain today, never leeway-shifted
	EventsPerDay      int  // echoed from Config
	FreezesRemaining  int  // available freezes left after consumption
}

// MergeLongest folds a previously persisted longest streak into s.
// The record never regresses: history the caller already witnessed stays
// witnessed even when the events behind it have been pruned.
func (s Snapshot) MergeLongest(prevLongest int) Snapshot {
	if prevLongest > s.LongestStreak {
		s.LongestStreak = prevLongest
	}
	return s
}

// LastEventDay returns the calendar day of the last event in loc, or nil
// when no event has ever been logged.
func (s Snapshot) LastEventDay(loc *time.Location) *Day {
	if s.LastEventAt == nil {
		return nil
	}
	d := DayOf(*s.LastEventAt, loc)
	return &d
}
