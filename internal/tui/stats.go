package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/apomodoro/internal/stats"
)

const (
	chartDays = 7
	listWeeks = 4
)

type statsModel struct {
	store  stats.Store
	width  int
	height int

	summary stats.Summary
	days    []stats.DayTotal
	weeks   []stats.WeekTotal
	general stats.General
	err     error

	chart barchart.Model

	formActive bool
	form       *huh.Form
	confirmed  *bool
}

func newStatsModel(s stats.Store) statsModel {
	confirmed := false
	return statsModel{
		store:     s,
		chart:     barchart.New(60, 12),
		confirmed: &confirmed,
	}
}

func (m *statsModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.buildChart()
}

type statsDataMsg struct {
	summary stats.Summary
	days    []stats.DayTotal
	weeks   []stats.WeekTotal
	general stats.General
	err     error
}

// statsResetMsg reports a completed ResetAll.
type statsResetMsg struct {
	err error
}

func (m statsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		var msg statsDataMsg
		if msg.summary, msg.err = m.store.Summary(); msg.err != nil {
			return msg
		}
		if msg.days, msg.err = m.store.Days(chartDays); msg.err != nil {
			return msg
		}
		if msg.weeks, msg.err = m.store.Weeks(listWeeks); msg.err != nil {
			return msg
		}
		msg.general, msg.err = m.store.General()
		return msg
	}
}

func (m statsModel) resetAll() tea.Cmd {
	return func() tea.Msg {
		return statsResetMsg{err: m.store.ResetAll()}
	}
}

func (m statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.ResetStats) {
		return m.showConfirm()
	}
	return m, nil
}

func (m *statsModel) apply(msg statsDataMsg) {
	m.err = msg.err
	if msg.err == nil {
		m.summary = msg.summary
		m.days = msg.days
		m.weeks = msg.weeks
		m.general = msg.general
	}
	m.buildChart()
}

func (m statsModel) showConfirm() (statsModel, tea.Cmd) {
	*m.confirmed = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reset all statistics?").
				Description("Every recorded pomodoro will be deleted.").
				Affirmative("Reset").
				Negative("Cancel").
				Value(m.confirmed),
		),
	).WithShowHelp(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m statsModel) updateForm(msg tea.Msg) (statsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, keys.Back) {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.formActive = false
		m.form = nil
		if *m.confirmed {
			return m, m.resetAll()
		}
		return m, nil
	case huh.StateAborted:
		m.formActive = false
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m *statsModel) buildChart() {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if m.height > 36 {
		chartHeight = 14
	}

	m.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, d := range m.days {
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if d.IsToday {
			style = lipgloss.NewStyle().Foreground(colorAccent)
		}
		label := d.Date.Format("Mon 02")
		bars = append(bars, barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{{
				Name:  label,
				Value: float64(d.Totals.CompletedPomodoros),
				Style: style,
			}},
		})
	}

	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m statsModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Statistics"), "", m.form.View()),
		)
	}

	title := titleStyle.Render("Statistics")
	if m.err != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", errorStyle.Render("  "+m.err.Error())),
		)
	}

	chartTitle := subtitleStyle.Render(fmt.Sprintf("Pomodoros, last %d days", chartDays))
	hint := mutedStyle.Render("  x: reset statistics  e: export")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title, "",
			m.renderSummary(w), "",
			chartTitle, m.chart.View(), "",
			m.renderWeeks(w), "",
			m.renderGeneral(), "",
			hint,
		),
	)
}

func (m statsModel) renderSummary(w int) string {
	rows := []string{
		mutedStyle.Render(fmt.Sprintf("  %-14s %10s %12s", "", "Pomodoros", "Work time")),
		mutedStyle.Render("  " + strings.Repeat("─", max(min(w-6, 38), 0))),
	}
	lines := []struct {
		label  string
		totals stats.Totals
	}{
		{"Today", m.summary.Today},
		{"Last 7 days", m.summary.Last7Days},
		{"This month", m.summary.ThisMonth},
	}
	for _, l := range lines {
		rows = append(rows, fmt.Sprintf("  %-14s %10d %12s",
			l.label, l.totals.CompletedPomodoros, formatWorkTime(l.totals.TotalWorkTime)))
	}
	return strings.Join(rows, "\n")
}

func (m statsModel) renderWeeks(w int) string {
	if len(m.weeks) == 0 {
		return mutedStyle.Render("  No weekly data yet")
	}
	rows := []string{
		mutedStyle.Render(fmt.Sprintf("  %-10s %10s %12s %8s", "Week", "Pomodoros", "Work time", "Days")),
		mutedStyle.Render("  " + strings.Repeat("─", max(min(w-6, 44), 0))),
	}
	for _, wk := range m.weeks {
		rows = append(rows, fmt.Sprintf("  %-10s %10d %12s %8d",
			wk.Week, wk.Totals.CompletedPomodoros, formatWorkTime(wk.Totals.TotalWorkTime), wk.ActiveDays))
	}
	return strings.Join(rows, "\n")
}

func (m statsModel) renderGeneral() string {
	g := m.general
	return fmt.Sprintf("  %s %s  %s %s  %s %s  %s %s",
		mutedStyle.Render("Total:"), highlightStyle.Render(fmt.Sprintf("%d", g.TotalPomodoros)),
		mutedStyle.Render("Time:"), highlightStyle.Render(formatHours(g.TotalTime)),
		mutedStyle.Render("Active days:"), highlightStyle.Render(fmt.Sprintf("%d", g.ActiveDays)),
		mutedStyle.Render("Avg/day:"), highlightStyle.Render(fmt.Sprintf("%.1f", g.AvgPerDay)),
	)
}
