package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sadopc/apomodoro/internal/notify"
)

var soundsCmd = &cobra.Command{
	Use:   "sounds",
	Short: "List the selectable notification sounds",
	Args:  cobra.NoArgs,
	RunE:  runSounds,
}

func runSounds(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := cliLogger(cmd, cfg)
	if err != nil {
		return err
	}
	printSounds(cmd.OutOrStdout(), notify.LoadSounds(cfg.Sounds.Dir, logger))
	return nil
}

func printSounds(w io.Writer, catalog *notify.SoundCatalog) {
	for _, id := range catalog.IDs() {
		line := fmt.Sprintf("  %-14s %s", id, notify.DisplayName(id))
		if file, ok := catalog.File(id); ok {
			line += "  (" + file + ")"
		}
		fmt.Fprintln(w, line)
	}
}
