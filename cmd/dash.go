package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/emberhq/ember/internal/tui"
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Open the interactive dashboard",
	Long: `Opens the full TUI dashboard: streak, activity strip, and freeze inventory.

Keyboard shortcuts:
  l          Log today's activity
  r          Refresh all panel data
  q / Ctrl+C Quit`,
	RunE: runDash,
}

func init() {
	rootCmd.AddCommand(dashCmd)
}

// runDash runs the dashboard loop, re-launching after a log action.
func runDash(_ *cobra.Command, _ []string) error {
	mgr, st, loc, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	for {
		action, err := tui.RunDash(mgr, st, loc)
		if err != nil {
			return err
		}
		switch action {
		case tui.DashActionLog:
			if _, err := mgr.Log(time.Now(), loc.String(), nil); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
