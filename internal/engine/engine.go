// Package engine wires the period machine to its countdown, notifications
// and persistence. An Engine is single-threaded; Runner serialises access
// from multiple goroutines.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sadopc/apomodoro/internal/countdown"
	"github.com/sadopc/apomodoro/internal/notify"
	"github.com/sadopc/apomodoro/internal/period"
	"github.com/sadopc/apomodoro/internal/settings"
	"github.com/sadopc/apomodoro/internal/stats"
)

// DefaultAutostartDelay is the pause between a phase change and its autostart.
const DefaultAutostartDelay = time.Second

// DefaultDrainTimeout bounds how long Shutdown waits for background
// notification delivery.
const DefaultDrainTimeout = 3 * time.Second

// SettingsStore loads and persists timer settings.
type SettingsStore interface {
	Load() settings.TimerSettings
	Save(settings.TimerSettings) error
}

// Config holds the collaborators of an Engine. Settings and Stats are
// required; everything else has a default.
type Config struct {
	Settings SettingsStore
	Stats    stats.Store
	Sinks    []notify.Sink
	Logger   *slog.Logger
	Clock    func() time.Time

	TickInterval   time.Duration
	AutostartDelay time.Duration
	DrainTimeout   time.Duration
}

// Engine drives one Pomodoro timer.
type Engine struct {
	machine    *period.Machine
	scheduler  *countdown.Scheduler
	dispatcher *notify.Dispatcher
	sink       notify.Fanout
	settings   SettingsStore
	stats      stats.Store
	logger     *slog.Logger
	now        func() time.Time

	autostartDelay time.Duration
	drainTimeout   time.Duration
	autostartArmed bool
	autostartAt    time.Time
	autostartGen   uint64

	lastErr error
}

// New loads the persisted settings and returns a stopped engine.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.AutostartDelay <= 0 {
		cfg.AutostartDelay = DefaultAutostartDelay
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}

	sinks := make(notify.Fanout, 0, len(cfg.Sinks))
	for _, sink := range cfg.Sinks {
		if sink != nil {
			sinks = append(sinks, sink)
		}
	}

	e := &Engine{
		scheduler: countdown.New(
			countdown.WithClock(cfg.Clock),
			countdown.WithInterval(cfg.TickInterval),
		),
		dispatcher:     notify.NewDispatcher(),
		sink:           sinks,
		settings:       cfg.Settings,
		stats:          cfg.Stats,
		logger:         cfg.Logger,
		now:            cfg.Clock,
		autostartDelay: cfg.AutostartDelay,
		drainTimeout:   cfg.DrainTimeout,
	}
	e.machine = period.New(cfg.Settings.Load())
	e.machine.Subscribe(period.SubscriberFunc(e.handleEvent))
	return e
}

// Subscribe registers an additional observer of machine events.
func (e *Engine) Subscribe(subscriber period.Subscriber) {
	e.machine.Subscribe(subscriber)
}

// Events returns a non-blocking channel of machine events.
func (e *Engine) Events(buffer int) <-chan period.Event {
	return e.machine.Events(buffer)
}

// Snapshot returns the current timer state.
func (e *Engine) Snapshot() period.Snapshot { return e.machine.Snapshot() }

// Progress returns the remaining fraction of the current phase.
func (e *Engine) Progress() float64 { return e.machine.Progress() }

// PhaseName returns the label of the current phase.
func (e *Engine) PhaseName() string { return e.machine.PhaseName() }

// Settings returns the settings in effect.
func (e *Engine) Settings() settings.TimerSettings { return e.machine.Settings() }

// Stats returns the statistics store.
func (e *Engine) Stats() stats.Store { return e.stats }

// LastError returns the most recent persistence or notification failure and
// clears it.
func (e *Engine) LastError() error {
	err := e.lastErr
	e.lastErr = nil
	return err
}

// Start resumes the countdown.
func (e *Engine) Start() bool {
	e.cancelAutostart()
	if !e.machine.Start() {
		return false
	}
	e.scheduler.Start()
	return true
}

// Pause stops the countdown. No tick scheduled before the pause will fire.
func (e *Engine) Pause() bool {
	e.cancelAutostart()
	if !e.machine.Pause() {
		return false
	}
	e.scheduler.Stop()
	return true
}

// Toggle pauses a running timer and starts a stopped one.
func (e *Engine) Toggle() bool {
	if e.machine.Running() {
		return e.Pause()
	}
	return e.Start()
}

// Reset restores the full duration of the current phase.
func (e *Engine) Reset() {
	e.cancelAutostart()
	e.scheduler.Reset()
	e.machine.Reset()
}

// SkipBreak ends the current break. It returns false during a Pomodoro.
func (e *Engine) SkipBreak() bool {
	if !e.machine.Phase().IsBreak() {
		return false
	}
	e.cancelAutostart()
	e.scheduler.Reset()
	return e.machine.SkipBreak()
}

// UpdateSettings validates and applies s, then persists it. An invalid s is
// rejected and leaves the current settings in place. A save failure is
// returned but the new settings stay applied.
func (e *Engine) UpdateSettings(s settings.TimerSettings) error {
	if err := settings.Validate(s); err != nil {
		return err
	}
	e.machine.ApplySettings(s)
	if err := e.settings.Save(s); err != nil {
		e.logger.Error("save settings", "error", err)
		return fmt.Errorf("save settings: %w", err)
	}
	e.logger.Debug("settings updated")
	return nil
}

// Edit applies field-named string changes to the current settings.
func (e *Engine) Edit(changes map[string]string) error {
	next, err := settings.Edit(e.machine.Settings(), changes)
	if err != nil {
		return err
	}
	return e.UpdateSettings(next)
}

// Generation identifies the current countdown run.
func (e *Engine) Generation() uint64 { return e.scheduler.Generation() }

// Advance applies the ticks owed at now to a countdown scheduled under gen
// and returns how many were applied.
func (e *Engine) Advance(gen uint64, now time.Time) int {
	owed := e.scheduler.Due(gen, now)
	applied := 0
	for i := 0; i < owed; i++ {
		if !e.machine.Tick() {
			break
		}
		applied++
	}
	return applied
}

// NextTick reports when the next countdown tick is due. ok is false when the
// timer is stopped.
func (e *Engine) NextTick(now time.Time) (gen uint64, delay time.Duration, ok bool) {
	if !e.scheduler.Running() {
		return 0, 0, false
	}
	return e.scheduler.Generation(), e.scheduler.NextDelay(now), true
}

// NextAutostart reports when a pending autostart is due. ok is false when
// none is armed.
func (e *Engine) NextAutostart(now time.Time) (gen uint64, delay time.Duration, ok bool) {
	if !e.autostartArmed {
		return 0, 0, false
	}
	delay = e.autostartAt.Sub(now)
	if delay < 0 {
		delay = 0
	}
	return e.autostartGen, delay, true
}

// AutostartDue starts the timer if the autostart armed under gen is due.
func (e *Engine) AutostartDue(gen uint64, now time.Time) bool {
	if !e.autostartArmed || gen != e.autostartGen || now.Before(e.autostartAt) {
		return false
	}
	e.autostartArmed = false
	return e.Start()
}

// Poll advances the countdown and fires a due autostart. It returns the
// number of ticks applied.
func (e *Engine) Poll(now time.Time) int {
	ticks := e.Advance(e.scheduler.Generation(), now)
	if e.autostartArmed {
		e.AutostartDue(e.autostartGen, now)
	}
	return ticks
}

// Shutdown pauses the timer, waits for background notifications, persists
// the settings and closes the statistics store.
func (e *Engine) Shutdown() error {
	e.Pause()
	if !e.sink.Wait(e.drainTimeout) {
		e.logger.Warn("notifications still pending at shutdown", "timeout", e.drainTimeout)
	}
	var errs []error
	if err := e.settings.Save(e.machine.Settings()); err != nil {
		errs = append(errs, fmt.Errorf("save settings: %w", err))
	}
	if err := e.stats.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close statistics: %w", err))
	}
	e.machine.Close()
	return errors.Join(errs...)
}

func (e *Engine) cancelAutostart() {
	if e.autostartArmed {
		e.autostartArmed = false
		e.autostartGen++
	}
}

func (e *Engine) armAutostart() {
	e.autostartGen++
	e.autostartArmed = true
	e.autostartAt = e.now().Add(e.autostartDelay)
}

func (e *Engine) handleEvent(event period.Event) {
	if !event.Type.PhaseChange() {
		return
	}
	e.scheduler.Reset()

	e.logger.Info("phase changed",
		"event", string(event.Type),
		"completed", string(event.Completed),
		"completed_pomodoros", event.CompletedPomodoros,
		"cycle", event.Cycle,
	)

	if event.Completed == period.PhasePomodoro {
		if err := e.stats.RecordCompletedPomodoro(event.CompletedDuration); err != nil {
			e.logger.Error("record completed pomodoro", "error", err)
			e.lastErr = fmt.Errorf("record statistics: %w", err)
		}
	}

	s := e.machine.Settings()
	if n, ok := e.dispatcher.Decide(event, s); ok {
		if err := e.sink.Notify(n); err != nil {
			e.logger.Warn("deliver notification", "error", err)
			e.lastErr = fmt.Errorf("notify: %w", err)
		}
	}

	autostart := s.AutoStartPomodoros
	if event.Phase.IsBreak() {
		autostart = s.AutoStartBreaks
	}
	if autostart {
		e.armAutostart()
	} else {
		e.cancelAutostart()
	}
}
