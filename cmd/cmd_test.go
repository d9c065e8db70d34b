package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/apomodoro/internal/notify"
	"github.com/sadopc/apomodoro/internal/period"
	"github.com/sadopc/apomodoro/internal/settings"
	"github.com/sadopc/apomodoro/internal/stats"
)

// executeCommand runs the root command with args against a private config
// directory and returns what it wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configFile, dataDir = "", ""
	statsDays, resetYes = 7, false
	exportFormat, exportOut = "csv", "-"
	runCycles = 0

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"pomodoro_time=25m", "auto_start_breaks=false", "pomodoro_sound="})
	if err != nil {
		t.Fatal(err)
	}
	if got["pomodoro_time"] != "25m" || got["auto_start_breaks"] != "false" {
		t.Fatalf("changes = %v", got)
	}
	if v, ok := got["pomodoro_sound"]; !ok || v != "" {
		t.Fatalf("empty value should be kept, got %q %v", v, ok)
	}

	for _, bad := range []string{"pomodoro_time", "=1500", " =x"} {
		if _, err := parseAssignments([]string{bad}); err == nil {
			t.Errorf("parseAssignments(%q) should fail", bad)
		}
	}
}

func TestPrintSettings(t *testing.T) {
	var buf bytes.Buffer
	if err := printSettings(&buf, settings.Defaults()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"pomodoro_time: 1500", "notification_type: both", "auto_start_breaks: true"} {
		if !strings.Contains(out, want) {
			t.Fatalf("settings output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStats(t *testing.T) {
	now := time.Date(2026, 3, 18, 10, 30, 0, 0, time.UTC)
	store, err := stats.NewMemorySQLiteStore(stats.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	for i := 0; i < 2; i++ {
		if err := store.RecordCompletedPomodoro(1500); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := printStats(&buf, store, 3); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Today          2 pomodoros",
		"Last 3 days:",
		"2026-03-16 Mon",
		"(today)",
		"2026-W12",
		"Total pomodoros:  2",
		"Average per day:  2.0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSounds(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gong.wav"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	printSounds(&buf, notify.LoadSounds(dir, nil))
	out := buf.String()
	for _, want := range []string{"No sound", "Soft bell", "gong", filepath.Join(dir, "gong.wav")} {
		if !strings.Contains(out, want) {
			t.Fatalf("sounds output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatWorkTime(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "0m"},
		{1500, "25m"},
		{3900, "1h 05m"},
	}
	for _, tt := range tests {
		if got := formatWorkTime(tt.secs); got != tt.want {
			t.Errorf("formatWorkTime(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestUntilCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := untilCycles(2, cancel)

	sub.HandleEvent(period.Event{Type: period.EventShortBreakStarted, Completed: period.PhasePomodoro, CompletedPomodoros: 1})
	sub.HandleEvent(period.Event{Type: period.EventPomodoroStarted, Completed: period.PhaseShortBreak, CompletedPomodoros: 1})
	if ctx.Err() != nil {
		t.Fatal("cancelled too early")
	}
	sub.HandleEvent(period.Event{Type: period.EventShortBreakStarted, Completed: period.PhasePomodoro, CompletedPomodoros: 2})
	if ctx.Err() == nil {
		t.Fatal("should cancel after the second pomodoro")
	}
}

func TestUntilCyclesZeroRunsForever(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := untilCycles(0, cancel)
	sub.HandleEvent(period.Event{Type: period.EventLongBreakStarted, Completed: period.PhasePomodoro, CompletedPomodoros: 100})
	if ctx.Err() != nil {
		t.Fatal("0 cycles must never cancel")
	}
}

// ============================================================
// Commands
// ============================================================

func TestSettingsSetCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := executeCommand(t, "settings", "set", "pomodoro_time=25m", "short_break_time=120", "--data-dir", dir)
	if err != nil {
		t.Fatalf("settings set: %v", err)
	}
	if !strings.Contains(out, "pomodoro_time: 1500") || !strings.Contains(out, "short_break_time: 120") {
		t.Fatalf("output = %q", out)
	}

	saved := settings.NewFileStore(filepath.Join(dir, "settings.json"), nil).Load()
	if saved.PomodoroTime != 1500 || saved.ShortBreakTime != 120 {
		t.Fatalf("saved = %+v", saved)
	}

	if _, err := executeCommand(t, "settings", "set", "pomodoro_time=-5", "--data-dir", dir); err == nil {
		t.Fatal("negative duration should be rejected")
	}
	if _, err := executeCommand(t, "settings", "set", "volume=11", "--data-dir", dir); err == nil {
		t.Fatal("unknown key should be rejected")
	}
	saved = settings.NewFileStore(filepath.Join(dir, "settings.json"), nil).Load()
	if saved.PomodoroTime != 1500 {
		t.Fatalf("rejected edit changed the file: %+v", saved)
	}

	out, err = executeCommand(t, "settings", "--data-dir", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "short_break_time: 120") {
		t.Fatalf("settings output = %q", out)
	}
}

func TestStatsExportCommand(t *testing.T) {
	dir := t.TempDir()
	store, err := stats.Open(stats.BackendJSON, filepath.Join(dir, "statistics.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordCompletedPomodoro(1500); err != nil {
		t.Fatal(err)
	}
	store.Close()

	out, err := executeCommand(t, "stats", "export", "--format", "json", "--data-dir", dir)
	if err != nil {
		t.Fatalf("stats export: %v", err)
	}
	var doc struct {
		Count        int `json:"count"`
		TotalSeconds int `json:"total_seconds"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("export is not JSON: %v\n%s", err, out)
	}
	if doc.Count != 1 || doc.TotalSeconds != 1500 {
		t.Fatalf("export = %+v", doc)
	}

	path := filepath.Join(dir, "out.csv")
	if _, err := executeCommand(t, "stats", "export", "--out", path, "--data-dir", dir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Date,Time,Duration (s)") {
		t.Fatalf("csv = %q", data)
	}
}

func TestStatsResetCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statistics.json")
	store, err := stats.Open(stats.BackendJSON, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordCompletedPomodoro(1500); err != nil {
		t.Fatal(err)
	}

	if _, err := executeCommand(t, "stats", "reset", "--yes", "--data-dir", dir); err != nil {
		t.Fatalf("stats reset: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("statistics file should be removed, stat err = %v", err)
	}

	out, err := executeCommand(t, "stats", "--days", "1", "--data-dir", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Today          0 pomodoros") {
		t.Fatalf("stats output = %q", out)
	}
}

func TestStatsDaysMustBePositive(t *testing.T) {
	if _, err := executeCommand(t, "stats", "--days", "0", "--data-dir", t.TempDir()); err == nil {
		t.Fatal("--days 0 should fail")
	}
}
