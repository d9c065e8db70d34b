// Package export writes recorded pomodoro sessions as CSV or JSON.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sadopc/apomodoro/internal/stats"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Session is one exported row.
type Session struct {
	Date     string
	Time     string
	Duration int
	ID       string
}

// Sessions flattens the per-day statistics into rows ordered by date and time.
func Sessions(days map[string]stats.DayStats) []Session {
	var out []Session
	for date, day := range days {
		for _, s := range day.Sessions {
			out = append(out, Session{Date: date, Time: s.Timestamp, Duration: s.Duration, ID: s.ID})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// Write encodes sessions to w in the named format.
func Write(w io.Writer, format string, sessions []Session) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, sessions)
	case FormatJSON:
		return WriteJSON(w, sessions, time.Now())
	}
	return fmt.Errorf("unknown export format %q", format)
}

// ToFile writes sessions to path in the named format.
func ToFile(path, format string, sessions []Session) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ToCSV(sessions, path)
	case FormatJSON:
		return ToJSON(sessions, path)
	}
	return fmt.Errorf("unknown export format %q", format)
}
