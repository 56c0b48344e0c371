// Package streak wires the pure engine to persistence and delivery: fetch
// history, compute, persist, publish. All ordering and mutation concerns
// live here so the engine can stay a function.
package streak

import (
	"fmt"
	"sync"
	"time"

	"github.com/emberhq/ember/internal/engine"
)

// Manager owns the snapshot lifecycle for one streak. Exactly one code
// path (Refresh / ApplyRemote, serialized by the mutex) mutates the cached
// snapshot; everyone else reads value copies. Subscribers get each new
// snapshot on their own channel.
type Manager struct {
	mu    sync.Mutex
	store *Store
	cfg   engine.Config
	loc   *time.Location

	recordFills bool

	subs   map[int]chan engine.Snapshot
	nextID int
}

// Option configures a Manager.
type Option func(*Manager)

// WithoutFillEvents disables the synthetic events normally appended for
// each consumed freeze. Without them, a recomputation after the freeze
// inventory changes can see the patched gap reopen.
func WithoutFillEvents() Option {
	return func(m *Manager) { m.recordFills = false }
}

// NewManager creates a Manager for the streak named by cfg, computing day
// boundaries in loc.
func NewManager(store *Store, cfg engine.Config, loc *time.Location, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		cfg:         cfg,
		loc:         loc,
		recordFills: true,
		subs:        make(map[int]chan engine.Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the manager's streak configuration.
func (m *Manager) Config() engine.Config { return m.cfg }

// Refresh recomputes the streak as of now and persists the result.
//
// When the config says an external authority owns this streak's
// computation, Refresh is a read: it returns the last snapshot delivered
// via ApplyRemote without running the local engine.
func (m *Manager) Refresh(now time.Time) (engine.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.Authority == engine.AuthorityRemote {
		cached, err := m.store.Snapshot(m.cfg.StreakID)
		if err != nil {
			return engine.Snapshot{}, err
		}
		if cached == nil {
			return engine.Snapshot{}, nil
		}
		return *cached, nil
	}

	events, err := m.store.AllEvents(m.cfg.StreakID)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("loading events: %w", err)
	}
	freezes, err := m.store.AllFreezes(m.cfg.StreakID)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("loading freezes: %w", err)
	}

	snap, consumed := engine.Compute(events, freezes, m.cfg, now, m.loc)

	// The record survives even when the events behind it are gone.
	if cached, err := m.store.Snapshot(m.cfg.StreakID); err == nil && cached != nil {
		snap = snap.MergeLongest(cached.LongestStreak)
	}

	for _, c := range consumed {
		if err := m.store.MarkFreezeUsed(c.FreezeID, now, c.Day); err != nil {
			return engine.Snapshot{}, err
		}
		if m.recordFills {
			if err := m.appendFillEvents(c, now); err != nil {
				return engine.Snapshot{}, err
			}
		}
	}

	if err := m.store.PutSnapshot(m.cfg.StreakID, snap); err != nil {
		return engine.Snapshot{}, err
	}

	m.publishLocked(snap)
	return snap, nil
}

// appendFillEvents writes synthetic events for a patched day so that later
// recomputations see continuous history. One event per required daily
// count: a frozen day must qualify outright, goal mode included.
func (m *Manager) appendFillEvents(c engine.FreezeConsumption, now time.Time) error {
	// Noon local keeps the synthetic instant inside the day in every zone.
	at := c.Day.Time(m.loc).Add(12 * time.Hour)
	for i := 0; i < m.cfg.EventsPerDay; i++ {
		ev := engine.NewEvent(m.cfg.StreakID, at, m.loc.String(), map[string]engine.MetaValue{
			"freeze":    engine.MetaB(true),
			"freeze_id": engine.MetaStr(c.FreezeID),
		})
		if err := m.store.AppendEvent(ev); err != nil {
			return fmt.Errorf("recording freeze fill: %w", err)
		}
	}
	return nil
}

// ApplyRemote accepts an externally computed snapshot, merges it with the
// local record, persists, and republishes. Used when the calculation
// authority is remote, or to fold in a server recomputation.
func (m *Manager) ApplyRemote(snap engine.Snapshot) (engine.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cached, err := m.store.Snapshot(m.cfg.StreakID); err == nil && cached != nil {
		snap = snap.MergeLongest(cached.LongestStreak)
	}
	if err := m.store.PutSnapshot(m.cfg.StreakID, snap); err != nil {
		return engine.Snapshot{}, err
	}
	m.publishLocked(snap)
	return snap, nil
}

// Cached returns the last persisted snapshot without recomputing, or nil
// when nothing has been computed yet. This is the cold-start read.
func (m *Manager) Cached() (*engine.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Snapshot(m.cfg.StreakID)
}

// Status classifies the cached snapshot without running the engine. Cheap
// enough for any badge or prompt; can disagree with Refresh near day
// boundaries, see engine.Classify.
func (m *Manager) Status(now time.Time) (engine.Status, error) {
	cached, err := m.Cached()
	if err != nil {
		return engine.Status{}, err
	}
	if cached == nil {
		return engine.Status{State: engine.StateNoEvents}, nil
	}
	return engine.Classify(cached.LastEventAt, now, m.loc), nil
}

// Log appends a new activity event and recomputes.
func (m *Manager) Log(at time.Time, tz string, metadata map[string]engine.MetaValue) (engine.Snapshot, error) {
	ev := engine.NewEvent(m.cfg.StreakID, at, tz, metadata)
	if err := m.store.AppendEvent(ev); err != nil {
		return engine.Snapshot{}, err
	}
	return m.Refresh(at)
}

// UseFreeze manually spends the oldest available freeze on the earliest
// unfilled gap day. This is the user-driven path for FreezeManual setups;
// it writes the same fill events the automatic path would.
func (m *Manager) UseFreeze(now time.Time) (engine.FreezeConsumption, error) {
	m.mu.Lock()
	freezes, err := m.store.AllFreezes(m.cfg.StreakID)
	if err != nil {
		m.mu.Unlock()
		return engine.FreezeConsumption{}, err
	}
	events, err := m.store.AllEvents(m.cfg.StreakID)
	if err != nil {
		m.mu.Unlock()
		return engine.FreezeConsumption{}, err
	}

	var oldest *engine.Freeze
	for i := range freezes {
		if freezes[i].Available(now) {
			f := freezes[i]
			if oldest == nil || earnedBefore(f, *oldest) {
				oldest = &f
			}
		}
	}
	if oldest == nil {
		m.mu.Unlock()
		return engine.FreezeConsumption{}, fmt.Errorf("no freeze available")
	}

	day, ok := earliestGapDay(events, m.cfg, now, m.loc)
	if !ok {
		m.mu.Unlock()
		return engine.FreezeConsumption{}, fmt.Errorf("no gap to fill")
	}

	c := engine.FreezeConsumption{FreezeID: oldest.ID, Day: day}
	if err := m.store.MarkFreezeUsed(c.FreezeID, now, c.Day); err != nil {
		m.mu.Unlock()
		return engine.FreezeConsumption{}, err
	}
	if err := m.appendFillEvents(c, now); err != nil {
		m.mu.Unlock()
		return engine.FreezeConsumption{}, err
	}
	m.mu.Unlock()

	if _, err := m.Refresh(now); err != nil {
		return engine.FreezeConsumption{}, err
	}
	return c, nil
}

// earliestGapDay picks the day a manual freeze should patch. Two cases:
// the run is broken at the top (nothing qualifying at the reference day),
// where we fill the earliest missing day after the last qualifying one so
// repeated uses close the gap upward; or the run is intact, where we fill
// the day just behind it to reconnect older history. Returns false when
// there is nothing worth patching.
func earliestGapDay(events []engine.Event, cfg engine.Config, now time.Time, loc *time.Location) (engine.Day, bool) {
	buckets := engine.GroupByDay(events, now, loc)
	reference := engine.ReferenceDay(now, loc, cfg.LeewayHours)

	qualifies := func(d engine.Day) bool {
		return len(buckets[d]) >= cfg.EventsPerDay
	}

	var lastQ *engine.Day
	for d := range buckets {
		if !qualifies(d) || d.After(reference) {
			continue
		}
		if lastQ == nil || d.After(*lastQ) {
			dd := d
			lastQ = &dd
		}
	}
	if lastQ == nil {
		return engine.Day{}, false
	}

	if lastQ.Before(reference) {
		// Broken at the top: fill the gap from its oldest day upward.
		return lastQ.AddDays(1), true
	}

	// Intact through the reference day: find the run's start, then check
	// whether older qualifying history sits beyond the hole behind it.
	runStart := reference
	for qualifies(runStart.Prev()) {
		runStart = runStart.Prev()
	}
	for d := range buckets {
		if qualifies(d) && d.Before(runStart) {
			return runStart.Prev(), true
		}
	}
	return engine.Day{}, false
}

// earnedBefore orders freezes by earned date, unearned first, ID as
// tiebreak — the same FIFO the engine uses.
func earnedBefore(a, b engine.Freeze) bool {
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
}

// Subscribe registers a snapshot listener. The returned cancel func must
// be called to release the channel. Slow consumers never block a publish:
// the channel holds one pending snapshot and older ones are dropped —
// subscribers always converge on the latest state.
func (m *Manager) Subscribe() (<-chan engine.Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan engine.Snapshot, 1)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// publishLocked fans a snapshot out to all subscribers. Callers hold m.mu.
func (m *Manager) publishLocked(snap engine.Snapshot) {
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale pending snapshot, keep the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
