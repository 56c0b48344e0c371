// Package cmd wires the ember CLI together.
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/emberhq/ember/internal/analytics"
	"github.com/emberhq/ember/internal/config"
	"github.com/emberhq/ember/internal/store"
	"github.com/emberhq/ember/internal/streak"
	"github.com/emberhq/ember/internal/ui"
	"github.com/emberhq/ember/internal/version"
)

// defaultStreakID names the single streak a local install tracks.
const defaultStreakID = "default"

var rootCmd = &cobra.Command{
	Use:   "ember",
	Short: "Keep your daily streak burning",
	Long:  `ember — a local-first streak tracker. Log once a day, never break the chain.`,
	RunE:  runSummary,
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		fireAnalytics(topLevelCommand(cmd))
	},
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Err(err.Error())
		os.Exit(1)
	}
}

func init() {
	// Flag names are case-insensitive everywhere.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ToLower(name))
	})
}

// openManager loads config and opens the store and manager most commands
// need. The returned cleanup closes the database.
func openManager() (*streak.Manager, *streak.Store, *time.Location, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	engCfg, err := cfg.EngineConfig(defaultStreakID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid streak config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	db, err := store.Open()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}
	st := streak.NewStore(db.Conn())
	mgr := streak.NewManager(st, engCfg, loc)
	return mgr, st, loc, func() { db.Close() }, nil
}

// fireAnalytics sends an anonymous analytics ping in the background.
// It's a no-op if config is not initialized, analytics are disabled,
// or the store can't be opened.
func fireAnalytics(command string) {
	if !config.Initialized() {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		return
	}
	if !cfg.Analytics.IsEnabled() {
		return
	}

	db, err := store.Open()
	if err != nil {
		return
	}

	endpoint := os.Getenv("EMBER_ANALYTICS_ENDPOINT")
	if endpoint == "" {
		endpoint = analytics.DefaultEndpoint
	}

	// One-time privacy notice on stderr so stdout stays clean.
	if analytics.ShouldShowNotice(db.Conn()) {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, ui.Muted.Render("  ember sends anonymous usage stats (command names, version, OS) to help"))
		fmt.Fprintln(os.Stderr, ui.Muted.Render("  improve the tool. No personal data is ever collected."))
		fmt.Fprintf(os.Stderr, "  Opt out anytime: %s\n", ui.Accent.Render("ember config set analytics false"))
		fmt.Fprintln(os.Stderr)
		analytics.MarkNoticeShown(db.Conn())
	}

	// Fire-and-forget: the goroutine outlives this function but is bounded
	// by the HTTP client timeout. The main process exits normally.
	go func() {
		defer db.Close()
		analytics.Ping(db.Conn(), command, cfg.Analytics.IsEnabled(), endpoint)
	}()
}

// topLevelCommand extracts the top-level command name from a Cobra command.
// For example, "ember freeze use" returns "freeze", and "ember" returns "ember".
func topLevelCommand(cmd *cobra.Command) string {
	parts := strings.Fields(cmd.CommandPath())
	if len(parts) >= 2 {
		return parts[1]
	}
	return parts[0]
}

// runSummary shows the at-a-glance status when you just type `ember`.
func runSummary(_ *cobra.Command, _ []string) error {
	if !config.Initialized() {
		fmt.Println()
		fmt.Println("  " + ui.Title.Render(ui.IconEmber+"ember"))
		fmt.Println()
		fmt.Println("  Looks like this is your first time. Light the fire!")
		fmt.Println()
		fmt.Printf("  Run %s to record your first activity.\n", ui.Accent.Render("ember log"))
		fmt.Println()
		return nil
	}

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
	status, err := mgr.Status(now)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("  " + ui.Title.Render(ui.IconEmber+"ember") + "  " + ui.FlameMeter(snap.CurrentStreak, 7))
	fmt.Println()
	ui.Kv(ui.IconStreak+" Streak", fmt.Sprintf("%d days", snap.CurrentStreak))
	if snap.LongestStreak > snap.CurrentStreak {
		ui.Kv(ui.IconStar+" Best", fmt.Sprintf("%d days", snap.LongestStreak))
	}
	if snap.EventsPerDay > 1 {
		ui.Kv(ui.IconDay+" Today", fmt.Sprintf("%d/%d", snap.TodayEventCount, snap.EventsPerDay))
	}
	ui.Kv(ui.IconFreeze+" Freezes", fmt.Sprintf("%d", snap.FreezesRemaining))
	ui.Kv("  📅 Date", now.In(loc).Format("Monday, January 2"))
	ui.Kv("  ⚙️  Ember", version.Short())

	switch {
	case snap.TotalEvents == 0:
		ui.Tip("`ember log` to start your first streak.")
	case !status.Alive():
		ui.Tip("`ember log` to start a fresh streak.")
	case snap.TodayEventCount < snap.EventsPerDay:
		ui.Tip("`ember log` to lock in today.")
	}

	fmt.Println()
	return nil
}
