package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emberhq/ember/internal/ui"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all events, freezes, and the cached snapshot",
	Long: `Wipes the streak's entire history. Events are append-only, so this is the
only way anything is ever removed. The longest-streak record goes with it —
export first if you want a way back.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(_ *cobra.Command, _ []string) error {
	mgr, st, _, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	if !resetForce {
		if !ui.IsStdoutTTY() {
			return fmt.Errorf("refusing to reset without --force in a non-interactive session")
		}
		fmt.Printf("Delete ALL streak history? This cannot be undone. Type %s to confirm: ",
			ui.Accent.Render("reset"))
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(line) != "reset" {
			ui.Inf("Aborted.")
			return nil
		}
	}

	if err := st.Reset(mgr.Config().StreakID); err != nil {
		return fmt.Errorf("resetting streak: %w", err)
	}
	ui.Ok("History wiped. A clean slate.")
	return nil
}
