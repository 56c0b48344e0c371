package engine

import (
	"sort"
	"time"
)

// Compute derives the full streak state for one streak.
//
// Events may arrive in any order. now is the evaluation instant and the
// only clock the engine sees; loc is the calculation timezone that decides
// where calendar days begin. Identical inputs always produce identical
// output.
//
// The returned consumptions are ordered oldest-freeze-first; the caller is
// responsible for persisting them (marking UsedAt on the freezes, and
// optionally appending synthetic events so future recomputations see a
// continuous history).
func Compute(events []Event, freezes []Freeze, cfg Config, now time.Time, loc *time.Location) (Snapshot, []FreezeConsumption) {
	buckets := GroupByDay(events, now, loc)
	qualifying := qualifyingDays(buckets, cfg.EventsPerDay)

	today := DayOf(now, loc)
	reference := ReferenceDay(now, loc, cfg.LeewayHours)

	avail := availableFIFO(freezes, now)
	current, startDay, consumed := walkBack(qualifying, reference, cfg.FreezePolicy == FreezeAuto, avail)

	longest := longestRun(qualifying)
	if current > longest {
		// The active run can set the record even though historical runs
		// are scanned without freeze assistance.
		longest = current
	}

	snap := Snapshot{
		CurrentStreak:    current,
		LongestStreak:    longest,
		StreakStartDate:  startDay,
		TotalEvents:      len(events),
		TodayEventCount:  len(buckets[today]),
		EventsPerDay:     cfg.EventsPerDay,
		FreezesRemaining: len(avail) - len(consumed),
	}
	if last := latestEvent(events); last != nil {
		ts := last.Timestamp
		snap.LastEventAt = &ts
		snap.LastEventTimezone = last.Timezone
	}
	return snap, consumed
}

// qualifyingDays returns, in ascending order, every day whose bucket meets
// the daily goal. With a goal of 1, any day with at least one event
// qualifies; with a goal of N, the bucket needs N events — a day of N-1
// contributes nothing, however close it came.
func qualifyingDays(buckets map[Day][]Event, eventsPerDay int) []Day {
	days := make([]Day, 0, len(buckets))
	for d, evs := range buckets {
		if len(evs) >= eventsPerDay {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// walkBack counts the current streak: starting at reference and moving
// backward, each expected day must either qualify or be patched with the
// oldest available freeze. The first day that can do neither ends the walk
// — qualifying days further back belong to history, not to this run.
//
// Returns the run length, its oldest counted day (nil when the run is
// empty), and the freezes spent, in spend order.
func walkBack(qualifying []Day, reference Day, fillEnabled bool, avail []Freeze) (int, *Day, []FreezeConsumption) {
	current := 0
	var start *Day
	var consumed []FreezeConsumption

	count := func(d Day) {
		current++
		dd := d
		start = &dd
	}

	expected := reference
	nextFreeze := 0

	for i := len(qualifying) - 1; i >= 0; i-- {
		day := qualifying[i]
		if day.After(expected) {
			// Only possible when leeway points the walk at yesterday but
			// today already qualifies: count today, then keep matching
			// backward from yesterday as planned.
			count(day)
			continue
		}

		// Patch missing days between expected and this qualifying day.
		for day.Before(expected) {
			if !fillEnabled || nextFreeze >= len(avail) {
				return current, start, consumed
			}
			consumed = append(consumed, FreezeConsumption{
				FreezeID: avail[nextFreeze].ID,
				Day:      expected,
			})
			nextFreeze++
			count(expected)
			expected = expected.Prev()
		}

		count(day)
		expected = expected.Prev()
	}
	return current, start, consumed
}

// longestRun scans qualifying days ascending and returns the longest chain
// of strictly consecutive days. Freezes are not considered here; a patched
// gap only helps the record via the current run.
func longestRun(qualifying []Day) int {
	longest := 0
	run := 0
	for i, d := range qualifying {
		if i > 0 && qualifying[i-1].AddDays(1) == d {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// latestEvent returns the event with the greatest timestamp, independent of
// qualification or the evaluation instant. Nil for empty input.
func latestEvent(events []Event) *Event {
	var last *Event
	for i := range events {
		if last == nil || events[i].Timestamp.After(last.Timestamp) {
			last = &events[i]
		}
	}
	return last
}
