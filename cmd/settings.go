package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/apomodoro/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the timer settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set key=value...",
	Short: "Change timer settings",
	Long: `set applies one or more key=value edits and saves them.
Durations take whole seconds (1500) or Go durations (25m).

Keys: ` + strings.Join(settings.Keys(), ", "),
	Args: cobra.MinimumNArgs(1),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := cliLogger(cmd, cfg)
	if err != nil {
		return err
	}
	return printSettings(cmd.OutOrStdout(), settingsStore(cfg, logger).Load())
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	changes, err := parseAssignments(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := cliLogger(cmd, cfg)
	if err != nil {
		return err
	}

	store := settingsStore(cfg, logger)
	next, err := settings.Edit(store.Load(), changes)
	if err != nil {
		return err
	}
	if err := store.Save(next); err != nil {
		return err
	}
	return printSettings(cmd.OutOrStdout(), next)
}

// parseAssignments turns key=value arguments into an edit. Later
// assignments to the same key win.
func parseAssignments(args []string) (map[string]string, error) {
	changes := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q (want key=value)", arg)
		}
		changes[k] = v
	}
	return changes, nil
}

func printSettings(w io.Writer, s settings.TimerSettings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
