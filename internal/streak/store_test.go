package streak

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/emberhq/ember/internal/engine"
	"github.com/emberhq/ember/internal/store"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmpDir, "cache"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmpDir, "state"))

	db, err := store.Open()
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.Conn())
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing time %q: %v", s, err)
	}
	return ts
}

func TestAppendAndListEvents(t *testing.T) {
	s := setupTestStore(t)

	ev := engine.NewEvent("default", mustTime(t, "2026-03-10T09:00:00Z"), "Europe/Amsterdam",
		map[string]engine.MetaValue{
			"note": engine.MetaStr("morning pages"),
			"reps": engine.MetaI(20),
		})
	if err := s.AppendEvent(ev); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	events, err := s.AllEvents("default")
	if err != nil {
		t.Fatalf("AllEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	got := events[0]
	if got.ID != ev.ID || !got.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("round-trip mismatch: %+v vs %+v", got, ev)
	}
	if got.Timezone != "Europe/Amsterdam" {
		t.Errorf("timezone = %q, want Europe/Amsterdam", got.Timezone)
	}
	if got.Metadata["note"].Str != "morning pages" || got.Metadata["reps"].Int != 20 {
		t.Errorf("metadata round-trip mismatch: %+v", got.Metadata)
	}
}

func TestEventsScopedByStreak(t *testing.T) {
	s := setupTestStore(t)

	if err := s.AppendEvent(engine.NewEvent("a", mustTime(t, "2026-03-10T09:00:00Z"), "", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.AppendEvent(engine.NewEvent("b", mustTime(t, "2026-03-10T10:00:00Z"), "", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	events, err := s.AllEvents("a")
	if err != nil {
		t.Fatalf("AllEvents: %v", err)
	}
	if len(events) != 1 || events[0].StreakID != "a" {
		t.Errorf("streak a has %d events, want exactly its own 1", len(events))
	}
}

func TestFreezeLifecycle(t *testing.T) {
	s := setupTestStore(t)
	now := mustTime(t, "2026-03-10T12:00:00Z")

	fz := engine.NewFreeze("default", mustTime(t, "2026-03-01T00:00:00Z"), nil)
	if err := s.GrantFreeze(fz); err != nil {
		t.Fatalf("GrantFreeze: %v", err)
	}

	freezes, err := s.AllFreezes("default")
	if err != nil {
		t.Fatalf("AllFreezes: %v", err)
	}
	if len(freezes) != 1 || !freezes[0].Available(now) {
		t.Fatalf("expected one available freeze, got %+v", freezes)
	}

	day, _ := engine.ParseDay("2026-03-09")
	if err := s.MarkFreezeUsed(fz.ID, now, day); err != nil {
		t.Fatalf("MarkFreezeUsed: %v", err)
	}

	freezes, err = s.AllFreezes("default")
	if err != nil {
		t.Fatalf("AllFreezes: %v", err)
	}
	if !freezes[0].Used() {
		t.Error("freeze should be marked used")
	}

	// Double-consumption must fail.
	if err := s.MarkFreezeUsed(fz.ID, now, day); err == nil {
		t.Error("expected error marking an already-used freeze")
	}
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	got, err := s.Snapshot("default")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil snapshot before first compute, got %+v", got)
	}

	lastAt := mustTime(t, "2026-03-10T09:00:00Z")
	start, _ := engine.ParseDay("2026-03-08")
	snap := engine.Snapshot{
		CurrentStreak:     3,
		LongestStreak:     7,
		LastEventAt:       &lastAt,
		LastEventTimezone: "UTC",
		StreakStartDate:   &start,
		TotalEvents:       25,
		TodayEventCount:   1,
		EventsPerDay:      1,
		FreezesRemaining:  2,
	}
	if err := s.PutSnapshot("default", snap); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}

	got, err = s.Snapshot("default")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached snapshot")
	}
	if got.CurrentStreak != 3 || got.LongestStreak != 7 || got.FreezesRemaining != 2 {
		t.Errorf("snapshot round-trip mismatch: %+v", got)
	}
	if got.StreakStartDate == nil || *got.StreakStartDate != start {
		t.Errorf("streak start = %v, want %v", got.StreakStartDate, start)
	}
	if got.LastEventAt == nil || !got.LastEventAt.Equal(lastAt) {
		t.Errorf("last event = %v, want %v", got.LastEventAt, lastAt)
	}

	// Upsert replaces.
	snap.CurrentStreak = 4
	if err := s.PutSnapshot("default", snap); err != nil {
		t.Fatalf("PutSnapshot upsert: %v", err)
	}
	got, _ = s.Snapshot("default")
	if got.CurrentStreak != 4 {
		t.Errorf("upserted current = %d, want 4", got.CurrentStreak)
	}
}

func TestReset(t *testing.T) {
	s := setupTestStore(t)

	if err := s.AppendEvent(engine.NewEvent("default", mustTime(t, "2026-03-10T09:00:00Z"), "", nil)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := s.GrantFreeze(engine.NewFreeze("default", mustTime(t, "2026-03-01T00:00:00Z"), nil)); err != nil {
		t.Fatalf("GrantFreeze: %v", err)
	}
	if err := s.PutSnapshot("default", engine.Snapshot{CurrentStreak: 1}); err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}

	if err := s.Reset("default"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	events, _ := s.AllEvents("default")
	freezes, _ := s.AllFreezes("default")
	snap, _ := s.Snapshot("default")
	if len(events) != 0 || len(freezes) != 0 || snap != nil {
		t.Errorf("reset left data behind: %d events, %d freezes, snap %+v", len(events), len(freezes), snap)
	}
}
