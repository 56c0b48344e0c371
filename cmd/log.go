package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/emberhq/ember/internal/engine"
	"github.com/emberhq/ember/internal/ui"
)

var (
	logAt   string
	logNote string
	logMeta []string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Record today's activity",
	Long: `Records one activity event and recomputes the streak.

Events are append-only: there is no edit or delete, only reset. Backdating
with --at is allowed; future-dated events are stored but don't count toward
the streak until their day arrives.`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logAt, "at", "", "Event time (RFC3339, e.g. 2026-03-09T22:30:00+01:00); default now")
	logCmd.Flags().StringVar(&logNote, "note", "", "Free-form note attached to the event")
	logCmd.Flags().StringArrayVar(&logMeta, "meta", nil, "Extra metadata as key=value (repeatable)")
	rootCmd.AddCommand(logCmd)
}

func runLog(_ *cobra.Command, _ []string) error {
	mgr, _, loc, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	at := time.Now()
	if logAt != "" {
		at, err = time.Parse(time.RFC3339, logAt)
		if err != nil {
			return fmt.Errorf("parsing --at: %w", err)
		}
	}

	metadata := map[string]engine.MetaValue{}
	if logNote != "" {
		metadata["note"] = engine.MetaStr(logNote)
	}
	for _, kv := range logMeta {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --meta %q (want key=value)", kv)
		}
		metadata[key] = engine.MetaStr(value)
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	snap, err := mgr.Log(at, loc.String(), metadata)
	if err != nil {
		return fmt.Errorf("logging event: %w", err)
	}

	if snap.EventsPerDay > 1 && snap.TodayEventCount < snap.EventsPerDay {
		ui.Ok(fmt.Sprintf("Logged. Today: %d/%d — %d more to lock in the day.",
			snap.TodayEventCount, snap.EventsPerDay, snap.EventsPerDay-snap.TodayEventCount))
	} else {
		ui.Ok(fmt.Sprintf("Logged. %s %d-day streak %s",
			ui.IconStreak, snap.CurrentStreak, ui.FlameMeter(snap.CurrentStreak, 7)))
	}
	if snap.CurrentStreak > 0 && snap.CurrentStreak == snap.LongestStreak && snap.CurrentStreak > 1 {
		ui.Inf(ui.IconStar + " Personal best!")
	}
	return nil
}
