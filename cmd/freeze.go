package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/emberhq/ember/internal/engine"
	"github.com/emberhq/ember/internal/ui"
)

var freezeCmd = &cobra.Command{
	Use:   "freeze",
	Short: "Manage streak freezes",
	Long: `Freezes patch missed days so a gap doesn't break the streak.

With freeze_policy=auto (the default) they are spent automatically, oldest
first, whenever a recompute finds a coverable gap. With freeze_policy=manual
you spend them yourself with 'ember freeze use'.`,
	RunE: runFreezeList,
}

var freezeGrantExpires string

var freezeListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the freeze inventory",
	RunE:  runFreezeList,
}

var freezeGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Add a freeze to the inventory",
	RunE:  runFreezeGrant,
}

var freezeUseCmd = &cobra.Command{
	Use:   "use",
	Short: "Manually spend the oldest freeze on the earliest gap",
	RunE:  runFreezeUse,
}

func init() {
	freezeGrantCmd.Flags().StringVar(&freezeGrantExpires, "expires", "",
		"Expiry as a duration from now (e.g. 720h) or a date (2026-04-01); default never")
	freezeCmd.AddCommand(freezeListCmd)
	freezeCmd.AddCommand(freezeGrantCmd)
	freezeCmd.AddCommand(freezeUseCmd)
	rootCmd.AddCommand(freezeCmd)
}

func runFreezeList(_ *cobra.Command, _ []string) error {
	mgr, st, loc, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	freezes, err := st.AllFreezes(mgr.Config().StreakID)
	if err != nil {
		return fmt.Errorf("loading freezes: %w", err)
	}

	now := time.Now()
	available := 0
	for _, fz := range freezes {
		if fz.Available(now) {
			available++
		}
	}

	ui.Header(ui.IconFreeze + " Freezes")
	fmt.Println()
	if len(freezes) == 0 {
		ui.Inf("No freezes. `ember freeze grant` to add one.")
		fmt.Println()
		return nil
	}

	for _, fz := range freezes {
		var state string
		switch {
		case fz.Used():
			state = ui.Muted.Render("used " + fz.UsedAt.In(loc).Format("Jan 2"))
		case fz.Expired(now):
			state = ui.Muted.Render("expired")
		case fz.ExpiresAt != nil:
			state = ui.Warning.Render("expires " + fz.ExpiresAt.In(loc).Format("Jan 2"))
		default:
			state = ui.Success.Render("available")
		}
		fmt.Printf("  %s %s  %s\n", ui.IconDot, fz.ID, state)
	}
	fmt.Println()
	ui.Kv("Available", fmt.Sprintf("%d of %d", available, len(freezes)))
	fmt.Println()
	return nil
}

func runFreezeGrant(_ *cobra.Command, _ []string) error {
	mgr, st, _, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	now := time.Now().UTC()
	fz := engine.Freeze{
		ID:       uuid.New().String(),
		StreakID: mgr.Config().StreakID,
		EarnedAt: &now,
	}
	if freezeGrantExpires != "" {
		exp, err := parseExpiry(freezeGrantExpires, now)
		if err != nil {
			return err
		}
		fz.ExpiresAt = &exp
	}

	if err := st.GrantFreeze(fz); err != nil {
		return err
	}
	ui.Ok("Freeze granted: " + fz.ID)
	return nil
}

func runFreezeUse(_ *cobra.Command, _ []string) error {
	mgr, _, _, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := mgr.UseFreeze(time.Now())
	if err != nil {
		return err
	}
	ui.Ok(fmt.Sprintf("Freeze %s applied to %s — the chain holds.", c.FreezeID, c.Day))
	return nil
}

// parseExpiry accepts either a Go duration from now or a YYYY-MM-DD date.
func parseExpiry(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	day, err := engine.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --expires %q (want a duration like 720h or a date like 2026-04-01)", s)
	}
	return day.Time(time.UTC), nil
}
