package streak

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emberhq/ember/internal/engine"
)

// Store handles event, freeze, and snapshot persistence. The engine never
// touches it — callers fetch, run the engine, then write results back.
type Store struct {
	db *sql.DB
}

// NewStore creates a new streak store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// AppendEvent records one immutable event.
func (s *Store) AppendEvent(ev engine.Event) error {
	md := ev.Metadata
	if md == nil {
		md = map[string]engine.MetaValue{}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encoding event metadata: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO events (id, streak_id, timestamp, timezone, metadata) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.StreakID, ev.Timestamp.UTC().Format(time.RFC3339Nano), ev.Timezone, string(raw),
	)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// AllEvents returns every event for a streak, oldest first.
func (s *Store) AllEvents(streakID string) ([]engine.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, streak_id, timestamp, timezone, metadata
		 FROM events WHERE streak_id = ? ORDER BY timestamp ASC`,
		streakID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// GrantFreeze stores a new freeze token.
func (s *Store) GrantFreeze(fz engine.Freeze) error {
	_, err := s.db.Exec(
		`INSERT INTO freezes (id, streak_id, earned_at, used_at, used_day, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		fz.ID, fz.StreakID,
		nullTime(fz.EarnedAt), nullTime(fz.UsedAt), nil, nullTime(fz.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("granting freeze: %w", err)
	}
	return nil
}

// AllFreezes returns every freeze for a streak, used and expired included.
func (s *Store) AllFreezes(streakID string) ([]engine.Freeze, error) {
	rows, err := s.db.Query(
		`SELECT id, streak_id, earned_at, used_at, expires_at
		 FROM freezes WHERE streak_id = ? ORDER BY earned_at ASC`,
		streakID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var freezes []engine.Freeze
	for rows.Next() {
		var fz engine.Freeze
		var earned, used, expires sql.NullString
		if err := rows.Scan(&fz.ID, &fz.StreakID, &earned, &used, &expires); err != nil {
			return nil, err
		}
		fz.EarnedAt = parseNullTime(earned)
		fz.UsedAt = parseNullTime(used)
		fz.ExpiresAt = parseNullTime(expires)
		freezes = append(freezes, fz)
	}
	return freezes, rows.Err()
}

// MarkFreezeUsed stamps a freeze as consumed against a calendar day.
func (s *Store) MarkFreezeUsed(id string, usedAt time.Time, day engine.Day) error {
	res, err := s.db.Exec(
		`UPDATE freezes SET used_at = ?, used_day = ? WHERE id = ? AND used_at IS NULL`,
		usedAt.UTC().Format(time.RFC3339Nano), day.String(), id,
	)
	if err != nil {
		return fmt.Errorf("marking freeze used: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("freeze %s not found or already used", id)
	}
	return nil
}

// Snapshot returns the cached snapshot for a streak, or nil when none has
// been computed yet.
func (s *Store) Snapshot(streakID string) (*engine.Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT current, longest, last_event_at, last_event_tz, streak_start,
		        total_events, today_count, events_per_day, freezes_remaining
		 FROM snapshots WHERE streak_id = ?`,
		streakID,
	)

	var snap engine.Snapshot
	var lastAt, start sql.NullString
	err := row.Scan(
		&snap.CurrentStreak, &snap.LongestStreak, &lastAt, &snap.LastEventTimezone,
		&start, &snap.TotalEvents, &snap.TodayEventCount, &snap.EventsPerDay,
		&snap.FreezesRemaining,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	snap.LastEventAt = parseNullTime(lastAt)
	if start.Valid && start.String != "" {
		d, err := engine.ParseDay(start.String)
		if err != nil {
			return nil, fmt.Errorf("reading snapshot: %w", err)
		}
		snap.StreakStartDate = &d
	}
	return &snap, nil
}

// PutSnapshot upserts the cached snapshot for a streak.
func (s *Store) PutSnapshot(streakID string, snap engine.Snapshot) error {
	var lastAt, start any
	if snap.LastEventAt != nil {
		lastAt = snap.LastEventAt.UTC().Format(time.RFC3339Nano)
	}
	if snap.StreakStartDate != nil {
		start = snap.StreakStartDate.String()
	}
	_, err := s.db.Exec(
		`INSERT INTO snapshots (streak_id, current, longest, last_event_at, last_event_tz,
		                        streak_start, total_events, today_count, events_per_day,
		                        freezes_remaining, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(streak_id) DO UPDATE SET
		   current = excluded.current,
		   longest = excluded.longest,
		   last_event_at = excluded.last_event_at,
		   last_event_tz = excluded.last_event_tz,
		   streak_start = excluded.streak_start,
		   total_events = excluded.total_events,
		   today_count = excluded.today_count,
		   events_per_day = excluded.events_per_day,
		   freezes_remaining = excluded.freezes_remaining,
		   updated_at = CURRENT_TIMESTAMP`,
		streakID, snap.CurrentStreak, snap.LongestStreak, lastAt, snap.LastEventTimezone,
		start, snap.TotalEvents, snap.TodayEventCount, snap.EventsPerDay,
		snap.FreezesRemaining,
	)
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Reset deletes all events, freezes, and the cached snapshot for a streak.
// This is the only way events are ever removed.
func (s *Store) Reset(streakID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting reset: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM events WHERE streak_id = ?`,
		`DELETE FROM freezes WHERE streak_id = ?`,
		`DELETE FROM snapshots WHERE streak_id = ?`,
	} {
		if _, err := tx.Exec(stmt, streakID); err != nil {
			return fmt.Errorf("resetting streak: %w", err)
		}
	}
	return tx.Commit()
}

// scanEventRows scans sql.Rows into a slice of engine.Event.
func scanEventRows(rows *sql.Rows) ([]engine.Event, error) {
	var events []engine.Event
	for rows.Next() {
		var ev engine.Event
		var tsStr, mdStr string
		if err := rows.Scan(&ev.ID, &ev.StreakID, &tsStr, &ev.Timezone, &mdStr); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing event timestamp %q: %w", tsStr, err)
		}
		ev.Timestamp = ts.UTC()
		if mdStr != "" && mdStr != "{}" {
			if err := json.Unmarshal([]byte(mdStr), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("decoding event metadata: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// nullTime formats an optional instant for storage.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseNullTime parses an optional stored instant. Unparseable values are
// treated as absent, matching how the rest of the schema degrades.
func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}
