package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errInitAborted = errors.New("aborted")

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialise the " + appName + " config directory with an example document",
	Long: "Create the " + appName + " config directory and populate docs/ with the\n" +
		"reference document and its data file.\n\n" +
		"The default config directory follows the same priority as the other commands:\n" +
		"  $DIAGEN_CONFIG_DIR > $XDG_CONFIG_HOME/diagen > ~/.config/diagen\n\n" +
		"Existing files are only replaced with --force or after confirmation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		dir, _ := cmd.Flags().GetString("dir")

		if dir == "" {
			var err error
			dir, err = resolveConfigDir()
			if err != nil {
				return err
			}
		}

		docsDir := filepath.Join(dir, "docs")
		if err := os.MkdirAll(docsDir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", docsDir, err)
		}

		docFile := filepath.Join(docsDir, exampleDocName)
		dataFile := filepath.Join(docsDir, exampleDataName)

		if !force {
			ok, err := confirmOverwrite(docFile, dataFile)
			if err != nil {
				return err
			}
			if !ok {
				return errInitAborted
			}
		}
		if err := os.WriteFile(docFile, append([]byte(exampleHeader), exampleDocYAML...), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", docFile, err)
		}
		if err := os.WriteFile(dataFile, exampleDataJSON, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dataFile, err)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "initialised %s\n", dir)
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", docFile)
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", dataFile)
		fmt.Fprintf(cmd.ErrOrStderr(), "\nRun `%s list` to see what was loaded.\n", appName)
		return nil
	},
}

// confirmOverwrite returns true when none of files exist or the user agrees
// to replace them. Without a terminal, existing files are an error.
func confirmOverwrite(files ...string) (bool, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return true, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("%s already exists (use --force to overwrite)", existing[0])
	}

	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Overwrite %d existing file(s)?", len(existing))).
			Description(existing[0]).
			Affirmative("Overwrite").
			Negative("Keep").
			Value(&ok),
	)).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite existing files")
	initCmd.Flags().String("dir", "", "target config directory (default: auto-resolved)")
}
