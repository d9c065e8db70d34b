package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sadopc/apomodoro/internal/engine"
	"github.com/sadopc/apomodoro/internal/notify"
	"github.com/sadopc/apomodoro/internal/period"
)

var runCycles int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the timer without a UI",
	Long: `run starts a Pomodoro and keeps cycling through breaks and pomodoros,
honouring the autostart settings. Phase changes are logged to stderr.
Stops on SIGINT or SIGTERM, or after --cycles completed pomodoros.`,
	Args: cobra.NoArgs,
	RunE: runHeadless,
}

func init() {
	runCmd.Flags().IntVar(&runCycles, "cycles", 0, "stop after N completed pomodoros (0 runs until interrupted)")
}

func runHeadless(cmd *cobra.Command, args []string) error {
	if runCycles < 0 {
		return errors.New("--cycles must not be negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := cliLogger(cmd, cfg)
	if err != nil {
		return err
	}
	store, err := openStats(cfg, logger)
	if err != nil {
		return err
	}

	sinks := append([]notify.Sink{notify.LogSink{Logger: logger}, notify.Bell{W: cmd.OutOrStdout()}}, remoteSinks(cfg, logger)...)
	e := newEngine(cfg, logger, store, sinks)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.Subscribe(untilCycles(runCycles, cancel))

	runner := engine.NewRunner(e, engine.DefaultPollInterval)
	errc := make(chan error, 1)
	go func() { errc <- runner.Run(ctx) }()

	start := func(e *engine.Engine) {
		e.Start()
		logger.Info("timer started", "phase", string(e.Snapshot().Phase), "cycles", runCycles)
	}
	if err := runner.Do(ctx, start); err != nil && !errors.Is(err, context.Canceled) {
		cancel()
		<-errc
		return errors.Join(err, e.Shutdown())
	}

	<-errc
	logger.Info("stopping", "completed_pomodoros", e.Snapshot().CompletedPomodoros)
	return e.Shutdown()
}

// untilCycles cancels once n pomodoros have completed. n == 0 never cancels.
func untilCycles(n int, cancel context.CancelFunc) period.Subscriber {
	return period.SubscriberFunc(func(ev period.Event) {
		if n > 0 && ev.Completed == period.PhasePomodoro && ev.CompletedPomodoros >= n {
			cancel()
		}
	})
}
