package stats

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// JSONStore keeps statistics in a single JSON object keyed by day.
type JSONStore struct {
	mu     sync.Mutex
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// NewJSONStore returns a store backed by the file at path. The file is
// created on the first recorded session.
func NewJSONStore(path string, opts ...Option) *JSONStore {
	o := buildOptions(opts)
	return &JSONStore{path: path, now: o.now, logger: o.logger}
}

// Path returns the backing file path.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) RecordCompletedPomodoro(duration int) error {
	if err := validDuration(duration); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	days, skipped, _ := s.load()
	now := s.now()
	key := now.Format(DayLayout)

	day := days[key]
	day.Sessions = append(day.Sessions, Session{
		ID:        uuid.NewString(),
		Timestamp: now.Format(TimestampLayout),
		Duration:  duration,
	})
	day.CompletedPomodoros++
	day.TotalWorkTime += duration
	days[key] = day
	delete(skipped, key)

	return s.save(days, skipped)
}

func (s *JSONStore) Summary() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, _, _ := s.load()
	return totalsOf(days).summary(s.now()), nil
}

func (s *JSONStore) Days(n int) ([]DayTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, _, _ := s.load()
	return totalsOf(days).days(s.now(), n), nil
}

func (s *JSONStore) Weeks(n int) ([]WeekTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, _, _ := s.load()
	return totalsOf(days).weeks(n), nil
}

func (s *JSONStore) General() (General, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, _, _ := s.load()
	return totalsOf(days).general(), nil
}

func (s *JSONStore) All() (map[string]DayStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, _, _ := s.load()
	return days, nil
}

// ResetAll deletes the statistics file. Deleting a missing file succeeds.
func (s *JSONStore) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "failed to remove statistics file")
	}
	return nil
}

// Repair rewrites the file without the records the lenient reader skipped.
// Recording keeps those records untouched; only Repair drops them.
func (s *JSONStore) Repair() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, skipped, dirty := s.load()
	if !dirty {
		return nil
	}
	s.logger.Info("repairing statistics file", "path", s.path, "days", len(days), "dropped", len(skipped))
	return s.save(days, nil)
}

func (s *JSONStore) Close() error { return nil }

// load reads the file leniently. Entries with an invalid day key or an
// undecodable value are returned raw in skipped; malformed sessions are
// dropped. dirty reports whether anything was skipped, dropped or recounted.
// A missing or unparseable file reads as empty.
func (s *JSONStore) load() (days map[string]DayStats, skipped map[string]json.RawMessage, dirty bool) {
	days = make(map[string]DayStats)
	skipped = make(map[string]json.RawMessage)

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("read statistics file", "path", s.path, "error", err)
		}
		return days, skipped, false
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("statistics file is not a JSON object, treating as empty", "path", s.path, "error", err)
		return days, skipped, true
	}

	for key, value := range entries {
		if _, err := time.Parse(DayLayout, key); err != nil {
			s.logger.Warn("skipping statistics entry with invalid day", "day", key)
			skipped[key] = value
			dirty = true
			continue
		}
		day, ok, cleaned := decodeDay(value)
		if !ok {
			s.logger.Warn("skipping malformed statistics entry", "day", key)
			skipped[key] = value
			dirty = true
			continue
		}
		if cleaned {
			dirty = true
		}
		days[key] = day
	}
	return days, skipped, dirty
}

// decodeDay decodes one day record. Totals are recounted from the sessions when
// any decode; a day without sessions keeps its stored totals if both are
// non-negative integers. ok is false when neither applies; cleaned is true when
// sessions were dropped or totals recounted.
func decodeDay(value json.RawMessage) (day DayStats, ok bool, cleaned bool) {
	var record struct {
		CompletedPomodoros json.RawMessage   `json:"completed_pomodoros"`
		TotalWorkTime      json.RawMessage   `json:"total_work_time"`
		Sessions           []json.RawMessage `json:"sessions"`
	}
	if err := json.Unmarshal(value, &record); err != nil {
		return DayStats{}, false, false
	}

	var storedCount, storedTime int
	countErr := json.Unmarshal(record.CompletedPomodoros, &storedCount)
	timeErr := json.Unmarshal(record.TotalWorkTime, &storedTime)

	for _, rawSession := range record.Sessions {
		var session Session
		if err := json.Unmarshal(rawSession, &session); err != nil || session.Duration <= 0 {
			cleaned = true
			continue
		}
		day.Sessions = append(day.Sessions, session)
	}

	if len(day.Sessions) == 0 {
		if countErr != nil || timeErr != nil || storedCount < 0 || storedTime < 0 {
			return DayStats{}, false, false
		}
		day.Sessions = []Session{}
		day.CompletedPomodoros = storedCount
		day.TotalWorkTime = storedTime
		return day, true, cleaned
	}

	day = recount(day)
	if countErr != nil || timeErr != nil ||
		storedCount != day.CompletedPomodoros || storedTime != day.TotalWorkTime {
		cleaned = true
	}
	return day, true, cleaned
}

// recount derives the day totals from its sessions.
func recount(day DayStats) DayStats {
	day.CompletedPomodoros = len(day.Sessions)
	day.TotalWorkTime = 0
	for _, session := range day.Sessions {
		day.TotalWorkTime += session.Duration
	}
	return day
}

func totalsOf(days map[string]DayStats) dayTotals {
	dt := make(dayTotals, len(days))
	for key, day := range days {
		dt[key] = Totals{CompletedPomodoros: day.CompletedPomodoros, TotalWorkTime: day.TotalWorkTime}
	}
	return dt
}

// save writes days together with the raw entries in keep.
func (s *JSONStore) save(days map[string]DayStats, keep map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create statistics directory")
	}
	doc := make(map[string]any, len(days)+len(keep))
	for key, value := range keep {
		doc[key] = value
	}
	for key, day := range days {
		doc[key] = day
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode statistics")
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write statistics file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "failed to replace statistics file")
	}
	return nil
}
