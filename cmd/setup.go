package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sadopc/apomodoro/internal/config"
	"github.com/sadopc/apomodoro/internal/engine"
	"github.com/sadopc/apomodoro/internal/logging"
	"github.com/sadopc/apomodoro/internal/notify"
	"github.com/sadopc/apomodoro/internal/settings"
	"github.com/sadopc/apomodoro/internal/stats"
)

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{ConfigFile: configFile, DataDir: dataDir})
}

// cliLogger logs to the command's stderr.
func cliLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
}

func openStats(cfg *config.Config, logger *slog.Logger) (stats.Store, error) {
	return stats.Open(cfg.Stats.Backend, cfg.StatsPath(), stats.WithLogger(logger))
}

func settingsStore(cfg *config.Config, logger *slog.Logger) *settings.FileStore {
	return settings.NewFileStore(cfg.SettingsFile, logger)
}

// remoteSinks returns the configured push sinks, wrapped so delivery never
// blocks the timer.
func remoteSinks(cfg *config.Config, logger *slog.Logger) []notify.Sink {
	p := notify.NewPushover(cfg.Pushover.Token, cfg.Pushover.User)
	if p == nil {
		return nil
	}
	return []notify.Sink{&notify.Async{Sink: p, Logger: logger}}
}

func newEngine(cfg *config.Config, logger *slog.Logger, store stats.Store, sinks []notify.Sink) *engine.Engine {
	return engine.New(engine.Config{
		Settings:       settingsStore(cfg, logger),
		Stats:          store,
		Sinks:          sinks,
		Logger:         logger,
		TickInterval:   cfg.Timer.TickInterval,
		AutostartDelay: cfg.Timer.AutostartDelay,
	})
}
