package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/apomodoro/internal/logging"
	"github.com/sadopc/apomodoro/internal/notify"
	"github.com/sadopc/apomodoro/internal/tui"
)

var (
	configFile string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "apomodoro",
	Short: "A Pomodoro timer for the terminal",
	Long: `apomodoro runs Pomodoro work sessions with short and long breaks.
Settings and statistics are kept in the data directory
(default: the apomodoro directory under the user config dir).`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: config.yaml in the data directory)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for settings, statistics and logs")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(soundsCmd)
}

// runTUI starts the terminal UI. The terminal belongs to the UI, so logs go
// to the configured log file.
func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := logging.OpenFile(cfg.Log.File, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := openStats(cfg, logger)
	if err != nil {
		return err
	}

	queue := &notify.Queue{}
	sinks := append([]notify.Sink{queue, notify.Bell{W: os.Stderr}}, remoteSinks(cfg, logger)...)
	e := newEngine(cfg, logger, store, sinks)

	app := tui.NewApp(e, tui.Options{
		Queue:  queue,
		Sounds: notify.LoadSounds(cfg.Sounds.Dir, logger),
	})
	logger.Info("starting terminal UI", "data_dir", cfg.DataDir, "config", cfg.ConfigFile)

	_, runErr := tea.NewProgram(app, tea.WithAltScreen()).Run()
	if err := e.Shutdown(); err != nil {
		logger.Error("shutdown", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
