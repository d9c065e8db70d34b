package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

var csvHeader = []string{"Date", "Time", "Duration (s)", "Duration", "ID"}

// ToCSV writes one row per session to path.
func ToCSV(sessions []Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, sessions); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes the header and one row per session to w.
func WriteCSV(out io.Writer, sessions []Session) error {
	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range sessions {
		row := []string{
			s.Date,
			s.Time,
			strconv.Itoa(s.Duration),
			formatDuration(s.Duration),
			s.ID,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDuration(secs int) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
