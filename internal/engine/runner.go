package engine

import (
	"context"
	"errors"
	"time"
)

// ErrRunnerStopped is returned by Do once the runner has exited.
var ErrRunnerStopped = errors.New("runner stopped")

// DefaultPollInterval is how often the runner polls the engine.
const DefaultPollInterval = 100 * time.Millisecond

// Runner owns an Engine on a single goroutine. Commands from other
// goroutines and the poll ticker are handled one at a time.
type Runner struct {
	engine       *Engine
	pollInterval time.Duration
	commands     chan command
	done         chan struct{}
}

type command struct {
	fn    func(*Engine)
	reply chan struct{}
}

// NewRunner wraps e. A non-positive pollInterval uses DefaultPollInterval.
func NewRunner(e *Engine, pollInterval time.Duration) *Runner {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Runner{
		engine:       e,
		pollInterval: pollInterval,
		commands:     make(chan command),
		done:         make(chan struct{}),
	}
}

// Run polls the engine until ctx is cancelled, then returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-r.commands:
			cmd.fn(r.engine)
			close(cmd.reply)
		case <-ticker.C:
			r.engine.Poll(r.engine.now())
		}
	}
}

// Do runs fn on the runner goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(*Engine)) error {
	cmd := command{fn: fn, reply: make(chan struct{})}
	select {
	case r.commands <- cmd:
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cmd.reply
	return nil
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.done }
