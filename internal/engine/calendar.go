package engine

import (
	"fmt"
	"time"
)

// Day is a civil calendar date with no clock time or zone attached.
// Two events belong to the same Day when they fall between the same pair of
// local midnights in the calculation timezone, which makes Day arithmetic
// immune to DST transitions: a 23- or 25-hour day is still one Day.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day containing t in the given timezone.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// Time returns local midnight at the start of d in loc.
// In zones where midnight does not exist (spring-forward at 00:00),
// time.Date normalizes forward, which is the boundary we want.
func (d Day) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// utc returns the day anchored at UTC midnight, used for arithmetic only.
func (d Day) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n calendar days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	y, m, dd := d.utc().AddDate(0, 0, n).Date()
	return Day{Year: y, Month: m, Day: dd}
}

// Prev returns the previous calendar day.
func (d Day) Prev() Day { return d.AddDays(-1) }

// DaysUntil returns the number of calendar days from d to other.
// Positive when other is later than d.
func (d Day) DaysUntil(other Day) int {
	return int(other.utc().Sub(d.utc()) / (24 * time.Hour))
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool {
	return d.utc().Before(other.utc())
}

// After reports whether d is strictly later than other.
func (d Day) After(other Day) bool {
	return d.utc().After(other.utc())
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("parsing day %q: %w", s, err)
	}
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}, nil
}

// GroupByDay buckets events by the calendar day of their timestamp in loc.
// Events with a timestamp strictly after now are left out — they exist (and
// count toward lifetime totals) but cannot contribute to a streak yet.
// Empty input yields an empty map.
func GroupByDay(events []Event, now time.Time, loc *time.Location) map[Day][]Event {
	buckets := make(map[Day][]Event)
	for _, ev := range events {
		if ev.Timestamp.After(now) {
			continue
		}
		d := DayOf(ev.Timestamp, loc)
		buckets[d] = append(buckets[d], ev)
	}
	return buckets
}

// ReferenceDay returns the day the backward walk starts from: plain today,
// or yesterday while the post-midnight leeway window is still open. With
// leewayHours of 3, an event logged at 02:30 still satisfies yesterday's
// deadline; at 03:01 it no longer does.
func ReferenceDay(now time.Time, loc *time.Location, leewayHours int) Day {
	today := DayOf(now, loc)
	if leewayHours > 0 {
		sinceMidnight := now.Sub(today.Time(loc))
		if sinceMidnight <= time.Duration(leewayHours)*time.Hour {
			return today.Prev()
		}
	}
	return today
}
