package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emberhq/ember/internal/ui"
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Recompute and show the full streak picture",
	RunE:  runStreak,
}

func init() {
	rootCmd.AddCommand(streakCmd)
}

func runStreak(_ *cobra.Command, _ []string) error {
	mgr, _, loc, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	now := time.Now()
	snap, err := mgr.Refresh(now)
	if err != nil {
		return fmt.Errorf("computing streak: %w", err)
	}

	ui.Header(ui.IconEmber + "Streak")
	fmt.Println()
	ui.Kv("Current", fmt.Sprintf("%d days  %s", snap.CurrentStreak, ui.FlameMeter(snap.CurrentStreak, 14)))
	ui.Kv("Longest", fmt.Sprintf("%d days", snap.LongestStreak))
	if snap.StreakStartDate != nil {
		ui.Kv("Since", snap.StreakStartDate.String())
	}
	if snap.LastEventAt != nil {
		ui.Kv("Last activity", snap.LastEventAt.In(loc).Format("Mon Jan 2 15:04"))
	}
	if snap.EventsPerDay > 1 {
		ui.Kv("Today's goal", fmt.Sprintf("%d/%d", snap.TodayEventCount, snap.EventsPerDay))
	} else {
		ui.Kv("Today", fmt.Sprintf("%d logged", snap.TodayEventCount))
	}
	ui.Kv("Freezes", fmt.Sprintf("%d available", snap.FreezesRemaining))
	ui.Kv("Lifetime", fmt.Sprintf("%d events", snap.TotalEvents))
	fmt.Println()
	return nil
}
