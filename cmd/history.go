package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emberhq/ember/internal/engine"
	"github.com/emberhq/ember/internal/ui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent activity events",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum events to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	mgr, st, loc, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	events, err := st.AllEvents(mgr.Config().StreakID)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}

	ui.Header(ui.IconDay + " History")
	fmt.Println()
	if len(events) == 0 {
		ui.Inf("Nothing logged yet.")
		fmt.Println()
		return nil
	}

	// Newest first, capped at the limit.
	start := len(events) - historyLimit
	if start < 0 {
		start = 0
	}
	var lastDay engine.Day
	for i := len(events) - 1; i >= start; i-- {
		ev := events[i]
		day := engine.DayOf(ev.Timestamp, loc)
		if day != lastDay {
			fmt.Println("  " + ui.Subtitle.Render(day.String()))
			lastDay = day
		}
		line := "    " + ui.Muted.Render(ev.Timestamp.In(loc).Format("15:04"))
		if v, ok := ev.Metadata["freeze"]; ok && v == engine.MetaB(true) {
			line += " " + ui.Info.Render(ui.IconFreeze+" freeze fill")
		}
		if v, ok := ev.Metadata["note"]; ok {
			line += "  " + v.Str
		}
		fmt.Println(line)
	}

	if start > 0 {
		fmt.Println()
		ui.Inf(fmt.Sprintf("…and %d older events (raise --limit to see more)", start))
	}
	fmt.Println()
	return nil
}
