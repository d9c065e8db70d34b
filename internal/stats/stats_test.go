package stats

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newClock() *fakeClock {
	// A Wednesday.
	return &fakeClock{t: time.Date(2026, 3, 18, 10, 30, 0, 0, time.UTC)}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestJSONStore(t *testing.T, clock *fakeClock) *JSONStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statistics.json")
	return NewJSONStore(path, WithClock(clock.Now), WithLogger(quietLogger()))
}

func newTestSQLiteStore(t *testing.T, clock *fakeClock) *SQLiteStore {
	t.Helper()
	s, err := NewMemorySQLiteStore(WithClock(clock.Now), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store, clock *fakeClock)) {
	t.Run("json", func(t *testing.T) {
		clock := newClock()
		fn(t, newTestJSONStore(t, clock), clock)
	})
	t.Run("sqlite", func(t *testing.T) {
		clock := newClock()
		fn(t, newTestSQLiteStore(t, clock), clock)
	})
}

func record(t *testing.T, s Store, duration int) {
	t.Helper()
	if err := s.RecordCompletedPomodoro(duration); err != nil {
		t.Fatalf("record: %v", err)
	}
}

// ============================================================
// Shared contract
// ============================================================

func TestThreePomodorosToday(t *testing.T) {
	backends(t, func(t *testing.T, s Store, clock *fakeClock) {
		for i := 0; i < 3; i++ {
			record(t, s, 1500)
		}
		sum, err := s.Summary()
		if err != nil {
			t.Fatal(err)
		}
		if sum.Today.CompletedPomodoros != 3 || sum.Today.TotalWorkTime != 4500 {
			t.Fatalf("today = %+v, want 3/4500", sum.Today)
		}
		if sum.Last7Days != sum.Today || sum.ThisMonth != sum.Today {
			t.Fatalf("windows should include today: %+v", sum)
		}
	})
}

func TestSummaryWindows(t *testing.T) {
	backends(t, func(t *testing.T, s Store, clock *fakeClock) {
		base := clock.t
		at := func(days int) { clock.t = base.AddDate(0, 0, days) }

		at(-20) // previous month (Feb 26)
		record(t, s, 100)
		at(-17) // Mar 1
		record(t, s, 200)
		at(-6) // oldest day of the 7-day window
		record(t, s, 300)
		at(-7) // just outside the window
		record(t, s, 400)
		at(0)
		record(t, s, 500)

		sum, err := s.Summary()
		if err != nil {
			t.Fatal(err)
		}
		if sum.Today != (Totals{1, 500}) {
			t.Errorf("today = %+v", sum.Today)
		}
		if sum.Last7Days != (Totals{2, 800}) {
			t.Errorf("last 7 days = %+v", sum.Last7Days)
		}
		if sum.ThisMonth != (Totals{4, 1400}) {
			t.Errorf("this month = %+v", sum.ThisMonth)
		}
	})
}

func TestEmptyStore(t *testing.T) {
	backends(t, func(t *testing.T, s Store, clock *fakeClock) {
		sum, err := s.Summary()
		if err != nil {
			t.Fatal(err)
		}
		if sum != (Summary{}) {
			t.Fatalf("expected zero summary, got %+v", sum)
		}
		g, err := s.General()
		if err != nil {
			t.Fatal(err)
		}
		if g != (General{}) {
			t.Fatalf("expected zero general stats, got %+v", g)
		}
	})
}

func TestRecordRejectsNonPositive(t *testing.T) {
	backends(t, func(t *testing.T, s Store, clock *fakeClock) {
		if err := s.RecordCompletedPomodoro(0); err == nil {
			t.Fatal("expected error for zero duration")
		}
	})
}

func TestResetAllIsIdempotent(t *testing.T) {
	backends(t, func(t *testing.T, s Store, clock *fakeClock) {
		record(t, s, 1500)
		if err := s.ResetAll(); err != nil {
			t.Fatal(err)
		}
		if err := s.ResetAll(); err != nil {
			t.Fatalf("second reset: %v", err)
		}
		all, err := s.All()
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 0 {
			t.Fatalf("expected no days after reset, got %d", len(all))
		}
	})
}

func TestAllSessions(t *testing.T) {
	backends(t, func(t *testing.T, s Store, clock *fakeClock) {
		record(t, s, 1500)
		clock.t = clock.t.Add(30 * time.Minute)
		record(t, s, 1200)

		all, err := s.All()
		if err != nil {
			t.Fatal(err)
		}
		day, ok := all["2026-03-18"]
		if !ok {
			t.Fatalf("missing day: %v", all)
		}
		if day.CompletedPomodoros != len(day.Sessions) || day.CompletedPomodoros != 2 {
			t.Fatalf("count mismatch: %+v", day)
		}
		if day.TotalWorkTime != 2700 {
			t.Fatalf("total = %d", day.TotalWorkTime)
		}
		if day.Sessions[0].Timestamp != "10:30:00" || day.Sessions[1].Timestamp != "11:00:00" {
			t.Fatalf("timestamps = %q %q", day.Sessions[0].Timestamp, day.Sessions[1].Timestamp)
		}
		if day.Sessions[0].ID == "" || day.Sessions[0].ID == day.Sessions[1].ID {
			t.Fatal("sessions need unique ids")
		}
	})
}

func TestDaysAndGeneral(t *testing.T) {
	backends(t, func(t *testing.T, s Store, clock *fakeClock) {
		base := clock.t
		clock.t = base.AddDate(0, 0, -2)
		record(t, s, 1500)
		record(t, s, 1500)
		clock.t = base
		record(t, s, 600)

		days, err := s.Days(3)
		if err != nil {
			t.Fatal(err)
		}
		if len(days) != 3 {
			t.Fatalf("len = %d", len(days))
		}
		if days[0].Totals.CompletedPomodoros != 2 || days[1].Totals.CompletedPomodoros != 0 {
			t.Fatalf("unexpected days: %+v", days)
		}
		if !days[2].IsToday || days[0].IsToday {
			t.Fatal("only the last day is today")
		}
		if days[2].Date.Format(DayLayout) != "2026-03-18" {
			t.Fatalf("last day = %s", days[2].Date)
		}

		g, err := s.General()
		if err != nil {
			t.Fatal(err)
		}
		if g.TotalPomodoros != 3 || g.TotalTime != 3600 || g.ActiveDays != 2 || g.AvgPerDay != 1.5 {
			t.Fatalf("general = %+v", g)
		}
	})
}

func TestWeeks(t *testing.T) {
	backends(t, func(t *testing.T, s Store, clock *fakeClock) {
		base := clock.t
		for _, offset := range []int{-21, -14, -8, -7, 0} {
			clock.t = base.AddDate(0, 0, offset)
			record(t, s, 1000)
		}
		clock.t = base

		weeks, err := s.Weeks(3)
		if err != nil {
			t.Fatal(err)
		}
		if len(weeks) != 3 {
			t.Fatalf("weeks = %+v", weeks)
		}
		// Mar 10 and Mar 11 share ISO week 11.
		want := []struct {
			label string
			count int
		}{{"2026-W10", 1}, {"2026-W11", 2}, {"2026-W12", 1}}
		for i, w := range want {
			if weeks[i].Week != w.label || weeks[i].Totals.CompletedPomodoros != w.count {
				t.Fatalf("week %d = %+v, want %s/%d", i, weeks[i], w.label, w.count)
			}
		}
		if weeks[1].ActiveDays != 2 {
			t.Fatalf("active days = %d", weeks[1].ActiveDays)
		}
	})
}

// ============================================================
// JSON file format & lenient parsing
// ============================================================

func TestJSONFileFormat(t *testing.T) {
	clock := newClock()
	s := newTestJSONStore(t, clock)
	record(t, s, 1500)

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]struct {
		CompletedPomodoros int `json:"completed_pomodoros"`
		TotalWorkTime      int `json:"total_work_time"`
		Sessions           []struct {
			Timestamp string `json:"timestamp"`
			Duration  int    `json:"duration"`
		} `json:"sessions"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("file is not the documented format: %v", err)
	}
	day := decoded["2026-03-18"]
	if day.CompletedPomodoros != 1 || day.TotalWorkTime != 1500 || len(day.Sessions) != 1 {
		t.Fatalf("unexpected record: %+v", day)
	}
	if day.Sessions[0].Timestamp != "10:30:00" || day.Sessions[0].Duration != 1500 {
		t.Fatalf("unexpected session: %+v", day.Sessions[0])
	}
}

const corruptStats = `{
  "2026-03-18": {"completed_pomodoros": 1, "total_work_time": 1500,
                 "sessions": [{"timestamp": "09:00:00", "duration": 1500}]},
  "2026-03-17": "garbage",
  "not-a-day": {"completed_pomodoros": 9, "total_work_time": 9, "sessions": []},
  "2026-03-16": {"completed_pomodoros": 5, "total_work_time": 99,
                 "sessions": [{"timestamp": "08:00:00", "duration": 600}, {"timestamp": 7}]}
}`

func writeStats(t *testing.T, s *JSONStore, data string) {
	t.Helper()
	if err := os.WriteFile(s.Path(), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestJSONSkipsMalformedEntries(t *testing.T) {
	s := newTestJSONStore(t, newClock())
	writeStats(t, s, corruptStats)

	sum, err := s.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if sum.Today != (Totals{1, 1500}) {
		t.Fatalf("today = %+v", sum.Today)
	}
	// Mar 16 is recounted from its one valid session.
	if sum.Last7Days != (Totals{2, 2100}) {
		t.Fatalf("last 7 days = %+v", sum.Last7Days)
	}

	all, _ := s.All()
	if _, ok := all["2026-03-17"]; ok {
		t.Fatal("undecodable day should be skipped")
	}
	if _, ok := all["not-a-day"]; ok {
		t.Fatal("invalid key should be skipped")
	}
}

func TestJSONRepairRewritesFile(t *testing.T) {
	s := newTestJSONStore(t, newClock())
	writeStats(t, s, corruptStats)

	if err := s.Repair(); err != nil {
		t.Fatalf("repair: %v", err)
	}
	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	var repaired map[string]DayStats
	if err := json.Unmarshal(raw, &repaired); err != nil {
		t.Fatalf("repaired file should be valid: %v", err)
	}
	if len(repaired) != 2 {
		t.Fatalf("expected 2 days after repair, got %v", repaired)
	}
	if d := repaired["2026-03-16"]; d.CompletedPomodoros != 1 || d.TotalWorkTime != 600 {
		t.Fatalf("repaired day = %+v", d)
	}
}

func TestJSONKeepsDaysWithoutSessions(t *testing.T) {
	s := newTestJSONStore(t, newClock())
	writeStats(t, s, `{
  "2026-03-17": {"completed_pomodoros": 3, "total_work_time": 4500},
  "2026-03-18": {"completed_pomodoros": 2, "total_work_time": 3000, "sessions": []}
}`)

	sum, err := s.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if sum.Today != (Totals{2, 3000}) || sum.Last7Days != (Totals{5, 7500}) {
		t.Fatalf("stored totals should count, got %+v", sum)
	}

	record(t, s, 1500)

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	var saved map[string]DayStats
	if err := json.Unmarshal(raw, &saved); err != nil {
		t.Fatal(err)
	}
	if d, ok := saved["2026-03-17"]; !ok || d.CompletedPomodoros != 3 || d.TotalWorkTime != 4500 {
		t.Fatalf("earlier day lost on record: %+v", saved)
	}
	if d := saved["2026-03-18"]; d.CompletedPomodoros != 3 || d.TotalWorkTime != 4500 || len(d.Sessions) != 1 {
		t.Fatalf("today = %+v", d)
	}
}

func TestJSONRecordKeepsSkippedEntries(t *testing.T) {
	s := newTestJSONStore(t, newClock())
	writeStats(t, s, corruptStats)
	record(t, s, 1500)

	readKeys := func() map[string]json.RawMessage {
		t.Helper()
		raw, err := os.ReadFile(s.Path())
		if err != nil {
			t.Fatal(err)
		}
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			t.Fatal(err)
		}
		return entries
	}

	entries := readKeys()
	for _, key := range []string{"2026-03-17", "not-a-day"} {
		if _, ok := entries[key]; !ok {
			t.Fatalf("record dropped %q: %v", key, entries)
		}
	}

	if err := s.Repair(); err != nil {
		t.Fatal(err)
	}
	entries = readKeys()
	if _, ok := entries["not-a-day"]; ok {
		t.Fatal("repair should drop unreadable entries")
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 days after repair, got %v", entries)
	}
}

func TestJSONGarbageFileReadsEmpty(t *testing.T) {
	s := newTestJSONStore(t, newClock())
	writeStats(t, s, "\x00\x01 not json")
	sum, err := s.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if sum != (Summary{}) {
		t.Fatalf("expected empty summary, got %+v", sum)
	}
	record(t, s, 1500)
	sum, _ = s.Summary()
	if sum.Today.CompletedPomodoros != 1 {
		t.Fatal("recording after a corrupt file should start fresh")
	}
}

func TestJSONRecordFailsOnUnwritablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewJSONStore(filepath.Join(blocker, "statistics.json"), WithLogger(quietLogger()))
	if err := s.RecordCompletedPomodoro(1500); err == nil {
		t.Fatal("expected write error")
	}
}

// ============================================================
// SQLite
// ============================================================

func TestSQLiteMigration(t *testing.T) {
	s := newTestSQLiteStore(t, newClock())
	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "stats.db")
	clock := newClock()
	s, err := NewSQLiteStore(path, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	record(t, s, 1500)
	s.Close()

	s, err = NewSQLiteStore(path, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	sum, _ := s.Summary()
	if sum.Today.CompletedPomodoros != 1 {
		t.Fatal("sessions should survive reopening")
	}
}

func TestSQLiteRepair(t *testing.T) {
	s := newTestSQLiteStore(t, newClock())
	record(t, s, 1500)
	s.db.Exec(`INSERT INTO sessions (id, day, timestamp, duration) VALUES ('a', 'yesterday', '10:00:00', 100)`)
	s.db.Exec(`INSERT INTO sessions (id, day, timestamp, duration) VALUES ('b', '2026-03-18', '10:00:00', -4)`)

	sum, _ := s.Summary()
	if sum.Today != (Totals{1, 1500}) {
		t.Fatalf("malformed rows should be ignored on read, got %+v", sum.Today)
	}
	if err := s.Repair(); err != nil {
		t.Fatal(err)
	}
	var n int
	s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	if n != 1 {
		t.Fatalf("expected 1 row after repair, got %d", n)
	}
}

// ============================================================
// Open
// ============================================================

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(BackendJSON, filepath.Join(dir, "s.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*JSONStore); !ok {
		t.Fatalf("json backend returned %T", s)
	}

	s, err = Open(BackendSQLite, filepath.Join(dir, "s.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("sqlite backend returned %T", s)
	}

	if _, err := Open("csv", "x"); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}
