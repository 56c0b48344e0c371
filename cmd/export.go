package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/emberhq/ember/internal/backup"
	"github.com/emberhq/ember/internal/ui"
)

var (
	exportOutput string
	importInput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export encrypted streak history to a file",
	Long: `Writes the full event and freeze history as an age-encrypted, armored
archive. The passphrase is prompted for and never stored.`,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore streak history from an encrypted export",
	Long: `Decrypts an archive written by 'ember export' and replaces the current
history with it. No merge: existing events, freezes, and the cached
snapshot are dropped first.`,
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "ember-backup.age", "Destination file")
	importCmd.Flags().StringVarP(&importInput, "input", "i", "ember-backup.age", "Archive file to restore")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	mgr, st, _, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	passphrase, err := promptPassphrase(true)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(exportOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := backup.Export(st, mgr.Config().StreakID, passphrase, time.Now(), f); err != nil {
		return err
	}
	ui.Ok("History exported to " + exportOutput)
	return nil
}

func runImport(_ *cobra.Command, _ []string) error {
	_, st, _, cleanup, err := openManager()
	if err != nil {
		return err
	}
	defer cleanup()

	passphrase, err := promptPassphrase(false)
	if err != nil {
		return err
	}

	f, err := os.Open(importInput)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	arch, err := backup.Import(st, passphrase, f)
	if err != nil {
		return err
	}
	ui.Ok(fmt.Sprintf("Restored %d events and %d freezes from %s.",
		len(arch.Events), len(arch.Freezes), importInput))
	ui.Tip("`ember streak` to recompute from the restored history.")
	return nil
}

// promptPassphrase reads a passphrase without echo; confirm asks twice.
func promptPassphrase(confirm bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("passphrase prompt needs an interactive terminal")
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if len(first) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}

	if confirm {
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		second, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		if string(first) != string(second) {
			return "", fmt.Errorf("passphrases do not match")
		}
	}
	return string(first), nil
}
