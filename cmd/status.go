package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emberhq/ember/internal/engine"
	"github.com/emberhq/ember/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Quick streak health check (no recompute)",
	Long: `Classifies the cached snapshot without running the engine — instant, even
with years of history. Near a day boundary this badge can be more
pessimistic than a full recompute: a gap that leeway or a freeze would
rescue still shows as broken here. Run 'ember streak' for the full picture.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	mgr, _, loc, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	now := time.Now()
	status, err := mgr.Status(now)
	if err != nil {
		return err
	}

	switch status.State {
	case engine.StateNoEvents:
		ui.Inf("No activity yet. `ember log` to get started.")
		return nil
	case engine.StateActive:
		ui.Ok("Active — you've logged today.")
	case engine.StateAtRisk:
		ui.Warn("At risk — nothing logged today yet.")
	case engine.StateBroken:
		ui.Err(fmt.Sprintf("Broken — %d days since your last activity.", status.DaysSince))
	}

	// When broken, say whether the freeze inventory could still save it.
	if status.State == engine.StateBroken {
		cached, err := mgr.Cached()
		if err != nil || cached == nil {
			return err
		}
		lastDay := cached.LastEventDay(loc)
		if lastDay == nil {
			return nil
		}
		cfg := mgr.Config()
		gap := engine.GapDays(*lastDay, engine.ReferenceDay(now, loc, cfg.LeewayHours))
		if engine.CanBeSaved(cached.FreezesRemaining, gap) && gap > 0 {
			ui.Tip(fmt.Sprintf("%d freeze(s) cover the %d-day gap — `ember log` and the streak survives.",
				cached.FreezesRemaining, gap))
		}
	}
	return nil
}
