package tui

import "fmt"

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewStats
	viewSettings
)

var viewNames = []string{"Timer", "Statistics", "Settings"}

// --- Messages ---

// countdownMsg fires when a tick scheduled under gen is due.
type countdownMsg struct {
	gen uint64
}

// autostartMsg fires when an autostart armed under gen is due.
type autostartMsg struct {
	gen uint64
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatHours(secs int) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

// formatClock renders seconds as MM:SS. Minutes are not wrapped into hours.
func formatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// formatWorkTime renders seconds as "1h 05m" or "25m".
func formatWorkTime(secs int) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
