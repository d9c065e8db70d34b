package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/apomodoro/internal/period"
)

type timerModel struct {
	width  int
	height int

	progress progress.Model
}

func newTimerModel() timerModel {
	return timerModel{
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
	t.progress.Width = max(w-16, 10)
}

// view renders the countdown. fraction is the remaining share of the phase.
func (t timerModel) view(snap period.Snapshot, fraction float64, banner string) string {
	w := t.width - 4
	style := phaseStyle(snap.Phase)

	title := titleStyle.Render("Pomodoro Timer")
	timeDisplay := style.Bold(true).Width(w - 6).Align(lipgloss.Center).Render(formatClock(snap.Remaining))
	phaseLabel := style.Bold(true).Render(strings.ToUpper(snap.Phase.Name()))

	state := timerPausedStyle.Render("PAUSED")
	if snap.Running {
		state = timerRunningStyle.Render("RUNNING")
	} else if snap.Remaining == snap.Total {
		state = mutedStyle.Render("Ready")
	}

	rows := []string{
		title,
		"",
		timeDisplay,
		phaseLabel,
		state,
		"",
		t.progress.ViewAs(fraction),
		"",
		renderCycle(snap),
	}
	if banner != "" {
		rows = append(rows, "", bannerStyle.Render(banner))
	}

	var controls string
	switch {
	case snap.Phase.IsBreak():
		controls = mutedStyle.Render("s: start  space: pause/resume  r: reset  n: skip break")
	default:
		controls = mutedStyle.Render("s: start  space: pause/resume  r: reset")
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, rows...), "", controls),
	)
}

// renderCycle draws one dot per pomodoro of the current cycle. A long break
// shows the whole cycle as done.
func renderCycle(snap period.Snapshot) string {
	done := snap.Cycle
	if snap.Phase == period.PhaseLongBreak {
		done = period.CycleLength
	}

	var parts []string
	for i := 0; i < period.CycleLength; i++ {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && snap.Phase == period.PhasePomodoro:
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d completed", snap.CompletedPomodoros))
	return strings.Join(parts, " ") + counter
}
