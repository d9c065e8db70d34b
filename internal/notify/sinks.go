package notify

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Sink renders a notification.
type Sink interface {
	Notify(Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notification) error

func (f SinkFunc) Notify(n Notification) error { return f(n) }

// Drainer is a sink that delivers in the background. Wait blocks until
// pending deliveries finish or timeout elapses and reports whether they all
// finished.
type Drainer interface {
	Wait(timeout time.Duration) bool
}

// Fanout delivers to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Notify(n Notification) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Notify(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait drains every member that is a Drainer within a shared timeout.
func (f Fanout) Wait(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	drained := true
	for _, sink := range f {
		if d, ok := sink.(Drainer); ok && !d.Wait(max(time.Until(deadline), 0)) {
			drained = false
		}
	}
	return drained
}

// Queue buffers notifications until the UI drains them.
type Queue struct {
	mu      sync.Mutex
	pending []Notification
}

func (q *Queue) Notify(n Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, n)
	return nil
}

// Drain returns and clears the queued notifications.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of queued notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Notify(n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"event", string(n.Event),
		"title", n.Title,
		"message", n.Message,
		"sound", n.Sound,
		"play_sound", n.PlaySound,
		"popup", n.ShowPopup,
	)
	return nil
}

// Bell rings the terminal bell for notifications that request a sound.
type Bell struct {
	W io.Writer
}

func (b Bell) Notify(n Notification) error {
	if !n.PlaySound || b.W == nil {
		return nil
	}
	_, err := b.W.Write([]byte{'\a'})
	return err
}

// Async delivers to Sink on its own goroutine and logs failures, so a slow
// remote sink never blocks the timer.
// Use it by pointer; Wait covers every delivery started by Notify.
type Async struct {
	Sink   Sink
	Logger *slog.Logger

	wg sync.WaitGroup
}

func (a *Async) Notify(n Notification) error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.Sink.Notify(n); err != nil {
			logger.Warn("deliver notification", "event", string(n.Event), "error", err)
		}
	}()
	return nil
}

func (a *Async) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
