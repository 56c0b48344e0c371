package streak

import (
	"testing"
	"time"

	"github.com/emberhq/ember/internal/engine"
)

func testManager(t *testing.T, policy engine.FreezePolicy, opts ...Option) (*Manager, *Store) {
	t.Helper()
	s := setupTestStore(t)
	cfg, err := engine.NewConfig("default", 1, 0, policy, engine.AuthorityLocal)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return NewManager(s, cfg, time.UTC, opts...), s
}

func TestManager_LogAndRefresh(t *testing.T) {
	m, _ := testManager(t, engine.FreezeAuto)
	now := mustTime(t, "2026-03-10T09:00:00Z")

	snap, err := m.Log(now, "UTC", nil)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if snap.CurrentStreak != 1 || snap.TodayEventCount != 1 {
		t.Errorf("snapshot = %+v, want streak 1 today 1", snap)
	}

	// The snapshot is persisted for cold-start reads.
	cached, err := m.Cached()
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	if cached == nil || cached.CurrentStreak != 1 {
		t.Errorf("cached = %+v, want current 1", cached)
	}
}

func TestManager_RefreshConsumesFreezeAndRecords(t *testing.T) {
	m, s := testManager(t, engine.FreezeAuto)

	if err := s.AppendEvent(engine.NewEvent("default", mustTime(t, "2026-03-08T09:00:00Z"), "UTC", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.AppendEvent(engine.NewEvent("default", mustTime(t, "2026-03-10T09:00:00Z"), "UTC", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.GrantFreeze(engine.NewFreeze("default", mustTime(t, "2026-03-01T00:00:00Z"), nil)); err != nil {
		t.Fatalf("GrantFreeze: %v", err)
	}

	now := mustTime(t, "2026-03-10T12:00:00Z")
	snap, err := m.Refresh(now)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.CurrentStreak != 3 {
		t.Errorf("current = %d, want 3 (freeze patched the gap)", snap.CurrentStreak)
	}

	// The freeze is now used, and a synthetic event documents the fill.
	freezes, _ := s.AllFreezes("default")
	if len(freezes) != 1 || !freezes[0].Used() {
		t.Errorf("freeze not marked used: %+v", freezes)
	}
	events, _ := s.AllEvents("default")
	var fills int
	for _, ev := range events {
		if ev.Metadata["freeze"].Bool {
			fills++
			if got := engine.DayOf(ev.Timestamp, time.UTC).String(); got != "2026-03-09" {
				t.Errorf("fill event on %s, want 2026-03-09", got)
			}
		}
	}
	if fills != 1 {
		t.Errorf("found %d fill events, want 1", fills)
	}

	// A later refresh sees continuous history and no freezes left.
	snap, err = m.Refresh(now)
	if err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if snap.CurrentStreak != 3 || snap.FreezesRemaining != 0 {
		t.Errorf("second refresh = %+v, want current 3, no freezes", snap)
	}
}

func TestManager_WithoutFillEvents(t *testing.T) {
	m, s := testManager(t, engine.FreezeAuto, WithoutFillEvents())

	if err := s.AppendEvent(engine.NewEvent("default", mustTime(t, "2026-03-08T09:00:00Z"), "UTC", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.AppendEvent(engine.NewEvent("default", mustTime(t, "2026-03-10T09:00:00Z"), "UTC", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.GrantFreeze(engine.NewFreeze("default", mustTime(t, "2026-03-01T00:00:00Z"), nil)); err != nil {
		t.Fatalf("GrantFreeze: %v", err)
	}

	if _, err := m.Refresh(mustTime(t, "2026-03-10T12:00:00Z")); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	events, _ := s.AllEvents("default")
	if len(events) != 2 {
		t.Errorf("got %d events, want 2 (no synthetic fills)", len(events))
	}
}

func TestManager_LongestNeverRegresses(t *testing.T) {
	m, s := testManager(t, engine.FreezeAuto)

	// A cached record from history that current events can't reproduce.
	if err := s.PutSnapshot("default", engine.Snapshot{LongestStreak: 50}); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}
	if err := s.AppendEvent(engine.NewEvent("default", mustTime(t, "2026-03-10T09:00:00Z"), "UTC", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	snap, err := m.Refresh(mustTime(t, "2026-03-10T12:00:00Z"))
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.CurrentStreak != 1 {
		t.Errorf("current = %d, want 1", snap.CurrentStreak)
	}
	if snap.LongestStreak != 50 {
		t.Errorf("longest = %d, want 50 preserved from history", snap.LongestStreak)
	}
}

func TestManager_Subscribe(t *testing.T) {
	m, _ := testManager(t, engine.FreezeAuto)

	ch, cancel := m.Subscribe()
	defer cancel()

	if _, err := m.Log(mustTime(t, "2026-03-10T09:00:00Z"), "UTC", nil); err != nil {
		t.Fatalf("Log: %v", err)
	}

	select {
	case snap := <-ch:
		if snap.CurrentStreak != 1 {
			t.Errorf("published current = %d, want 1", snap.CurrentStreak)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestManager_SlowSubscriberSeesLatest(t *testing.T) {
	m, _ := testManager(t, engine.FreezeAuto)

	ch, cancel := m.Subscribe()
	defer cancel()

	// Two publishes with nobody reading: the pending one is replaced.
	if _, err := m.Log(mustTime(t, "2026-03-09T09:00:00Z"), "UTC", nil); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if _, err := m.Log(mustTime(t, "2026-03-10T09:00:00Z"), "UTC", nil); err != nil {
		t.Fatalf("Log: %v", err)
	}

	snap := <-ch
	if snap.CurrentStreak != 2 {
		t.Errorf("slow subscriber got current %d, want the latest (2)", snap.CurrentStreak)
	}
}

func TestManager_RemoteAuthorityBypassesEngine(t *testing.T) {
	s := setupTestStore(t)
	cfg, err := engine.NewConfig("default", 1, 0, engine.FreezeAuto, engine.AuthorityRemote)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	m := NewManager(s, cfg, time.UTC)

	// Local events exist, but a remote-authority refresh must not compute
	// from them.
	if err := s.AppendEvent(engine.NewEvent("default", mustTime(t, "2026-03-10T09:00:00Z"), "UTC", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	snap, err := m.Refresh(mustTime(t, "2026-03-10T12:00:00Z"))
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.CurrentStreak != 0 {
		t.Errorf("remote-authority refresh computed locally: %+v", snap)
	}

	// The server's snapshot lands via ApplyRemote and becomes the cache.
	applied, err := m.ApplyRemote(engine.Snapshot{CurrentStreak: 9, LongestStreak: 12})
	if err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if applied.CurrentStreak != 9 || applied.LongestStreak != 12 {
		t.Errorf("applied = %+v", applied)
	}
	snap, err = m.Refresh(mustTime(t, "2026-03-10T13:00:00Z"))
	if err != nil {
		t.Fatalf("Refresh after ApplyRemote: %v", err)
	}
	if snap.CurrentStreak != 9 {
		t.Errorf("refresh after remote apply = %+v, want server values", snap)
	}
}

func TestManager_Status(t *testing.T) {
	m, _ := testManager(t, engine.FreezeAuto)

	st, err := m.Status(mustTime(t, "2026-03-10T12:00:00Z"))
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != engine.StateNoEvents {
		t.Errorf("state = %v, want no events", st.State)
	}

	if _, err := m.Log(mustTime(t, "2026-03-10T09:00:00Z"), "UTC", nil); err != nil {
		t.Fatalf("Log: %v", err)
	}
	st, err = m.Status(mustTime(t, "2026-03-10T12:00:00Z"))
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != engine.StateActive {
		t.Errorf("state = %v, want active", st.State)
	}

	// Next day with nothing logged: at risk per the classifier, even
	// though a leeway-configured engine might still count the streak.
	st, err = m.Status(mustTime(t, "2026-03-11T08:00:00Z"))
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != engine.StateAtRisk || !st.Alive() {
		t.Errorf("state = %v, want at risk (alive)", st.State)
	}
}

func TestManager_ManualFreezeUse(t *testing.T) {
	m, s := testManager(t, engine.FreezeManual)

	if err := s.AppendEvent(engine.NewEvent("default", mustTime(t, "2026-03-08T09:00:00Z"), "UTC", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.AppendEvent(engine.NewEvent("default", mustTime(t, "2026-03-10T09:00:00Z"), "UTC", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.GrantFreeze(engine.NewFreeze("default", mustTime(t, "2026-03-01T00:00:00Z"), nil)); err != nil {
		t.Fatalf("GrantFreeze: %v", err)
	}

	now := mustTime(t, "2026-03-10T12:00:00Z")

	// Manual policy: refresh alone leaves the gap open.
	snap, err := m.Refresh(now)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.CurrentStreak != 1 {
		t.Errorf("current before manual use = %d, want 1", snap.CurrentStreak)
	}

	c, err := m.UseFreeze(now)
	if err != nil {
		t.Fatalf("UseFreeze: %v", err)
	}
	if c.Day.String() != "2026-03-09" {
		t.Errorf("freeze applied to %v, want 2026-03-09", c.Day)
	}

	snap, err = m.Refresh(now)
	if err != nil {
		t.Fatalf("Refresh after use: %v", err)
	}
	if snap.CurrentStreak != 3 {
		t.Errorf("current after manual use = %d, want 3", snap.CurrentStreak)
	}

	// Inventory exhausted.
	if _, err := m.UseFreeze(now); err == nil {
		t.Error("expected error using a freeze with none available")
	}
}
