package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Count      int           `json:"count"`
	TotalSecs  int           `json:"total_seconds"`
	Sessions   []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID          string `json:"id,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	DurationSec int    `json:"duration_seconds"`
	Duration    string `json:"duration"`
}

// ToJSON writes the sessions as a single JSON document to path.
func ToJSON(sessions []Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, sessions, time.Now()); err != nil {
		return err
	}
	return f.Close()
}

// WriteJSON encodes the sessions to w, stamped with exportedAt.
func WriteJSON(w io.Writer, sessions []Session, exportedAt time.Time) error {
	export := jsonExport{
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		Count:      len(sessions),
		Sessions:   []jsonSession{},
	}

	for _, s := range sessions {
		export.TotalSecs += s.Duration
		export.Sessions = append(export.Sessions, jsonSession{
			ID:          s.ID,
			Date:        s.Date,
			Time:        s.Time,
			DurationSec: s.Duration,
			Duration:    formatDuration(s.Duration),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
