package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Freeze is a consumable token that can retroactively patch one missed day.
// A nil UsedAt means unused; a nil ExpiresAt means it never expires.
type Freeze struct {
	ID        string
	StreakID  string
	EarnedAt  *time.Time
	UsedAt    *time.Time
	ExpiresAt *time.Time
}

// NewFreeze creates an unused freeze earned at earnedAt.
func NewFreeze(streakID string, earnedAt time.Time, expiresAt *time.Time) Freeze {
	e := earnedAt.UTC()
	return Freeze{
		ID:        uuid.New().String(),
		StreakID:  streakID,
		EarnedAt:  &e,
		ExpiresAt: expiresAt,
	}
}

// Used reports whether the freeze has been consumed.
func (f Freeze) Used() bool { return f.UsedAt != nil }

// Expired reports whether the freeze lapsed before now.
func (f Freeze) Expired(now time.Time) bool {
	return f.ExpiresAt != nil && f.ExpiresAt.Before(now)
}

// Available reports whether the freeze can still be consumed at now.
func (f Freeze) Available(now time.Time) bool {
	return !f.Used() && !f.Expired(now)
}

// availableFIFO returns the freezes consumable at now, oldest earned first.
// Freezes with no EarnedAt sort before everything else; ties break on ID so
// consumption order is deterministic for identical inputs.
func availableFIFO(freezes []Freeze, now time.Time) []Freeze {
	var avail []Freeze
	for _, f := range freezes {
		if f.Available(now) {
			avail = append(avail, f)
		}
	}
	sort.SliceStable(avail, func(i, j int) bool {
		a, b := avail[i], avail[j]
		switch {
		case a.EarnedAt == nil && b.EarnedAt == nil:
			return a.ID < b.ID
		case a.EarnedAt == nil:
			return true
		case b.EarnedAt == nil:
			return false
		case a.EarnedAt.Equal(*b.EarnedAt):
			return a.ID < b.ID
		default:
			return a.EarnedAt.Before(*b.EarnedAt)
		}
	})
	return avail
}

// FreezeConsumption records one freeze applied to one gap day during a
// walk. The slice returned by Compute is ordered oldest-freeze-first and
// its length equals the number of gap days successfully patched.
type FreezeConsumption struct {
	FreezeID string
	Day      Day
}
