// Package stats records completed pomodoros per calendar day and
// aggregates them into summaries.
package stats

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

const (
	// DayLayout is the format of day keys.
	DayLayout = "2006-01-02"
	// TimestampLayout is the format of session timestamps.
	TimestampLayout = "15:04:05"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown statistics backend")

// Session is one completed pomodoro.
type Session struct {
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	Duration  int    `json:"duration"`
}

// DayStats is the persisted record of one calendar day.
type DayStats struct {
	CompletedPomodoros int       `json:"completed_pomodoros"`
	TotalWorkTime      int       `json:"total_work_time"`
	Sessions           []Session `json:"sessions"`
}

// Totals is a pomodoro count and the work seconds it represents.
type Totals struct {
	CompletedPomodoros int `json:"completed_pomodoros"`
	TotalWorkTime      int `json:"total_work_time"`
}

func (t Totals) add(o Totals) Totals {
	return Totals{
		CompletedPomodoros: t.CompletedPomodoros + o.CompletedPomodoros,
		TotalWorkTime:      t.TotalWorkTime + o.TotalWorkTime,
	}
}

// Summary aggregates today, the last seven days (today included) and the
// current calendar month.
type Summary struct {
	Today     Totals `json:"today"`
	Last7Days Totals `json:"last_7_days"`
	ThisMonth Totals `json:"this_month"`
}

// DayTotal is one day of a Days listing.
type DayTotal struct {
	Date    time.Time
	Totals  Totals
	IsToday bool
}

// WeekTotal aggregates one ISO week, labelled YYYY-Www.
type WeekTotal struct {
	Week       string
	Totals     Totals
	ActiveDays int
}

// General is the all-time overview.
type General struct {
	TotalPomodoros int
	TotalTime      int
	ActiveDays     int
	AvgPerDay      float64
}

// Store is a statistics backend.
type Store interface {
	// RecordCompletedPomodoro appends a session of duration seconds to today.
	RecordCompletedPomodoro(duration int) error
	Summary() (Summary, error)
	// Days returns the last n days ending today, oldest first.
	Days(n int) ([]DayTotal, error)
	// Weeks returns up to n most recent ISO weeks that have data, oldest first.
	Weeks(n int) ([]WeekTotal, error)
	General() (General, error)
	All() (map[string]DayStats, error)
	ResetAll() error
	// Repair drops malformed records from persistent storage.
	Repair() error
	Close() error
}

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used to report skipped records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Open returns the backend named by backend, stored at path.
func Open(backend, path string, opts ...Option) (Store, error) {
	switch backend {
	case BackendJSON, "":
		return NewJSONStore(path, opts...), nil
	case BackendSQLite:
		return NewSQLiteStore(path, opts...)
	}
	return nil, errors.Wrapf(ErrUnknownBackend, "%q", backend)
}

func validDuration(duration int) error {
	if duration <= 0 {
		return errors.Errorf("session duration must be positive, got %d", duration)
	}
	return nil
}
