// Package tui is the terminal front end. The App owns the engine for the
// lifetime of the program; countdown ticks and autostarts are scheduled
// with tea.Tick and tagged with the generation they were scheduled under.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/apomodoro/internal/engine"
	"github.com/sadopc/apomodoro/internal/export"
	"github.com/sadopc/apomodoro/internal/notify"
)

var exportFormats = []string{export.FormatCSV, export.FormatJSON}

// Options configures an App.
type Options struct {
	// Queue receives the engine's notifications; popups are shown as a banner.
	Queue *notify.Queue
	// Sounds lists the selectable sounds. Defaults to the built-in set.
	Sounds *notify.SoundCatalog
	// ExportDir is where exports are written. Defaults to the home directory.
	ExportDir string
	// Clock must be the clock the engine was built with.
	Clock func() time.Time
}

// App is the root Bubble Tea model.
type App struct {
	engine *engine.Engine
	queue  *notify.Queue
	now    func() time.Time
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exportDir     string

	timer    timerModel
	stats    statsModel
	settings settingsModel

	help      help.Model
	status    string
	statusErr bool
	banner    string

	// Generations with a tea.Tick in flight; 0 means none.
	tickGen      uint64
	autostartGen uint64

	// completed is the pomodoro count the statistics view last saw.
	completed int
}

func NewApp(e *engine.Engine, opts Options) App {
	h := help.New()
	h.ShowAll = false

	if opts.Queue == nil {
		opts.Queue = &notify.Queue{}
	}
	if opts.Sounds == nil {
		opts.Sounds = notify.LoadSounds("", nil)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}

	return App{
		engine:     e,
		queue:      opts.Queue,
		now:        opts.Clock,
		activeView: viewTimer,
		exportDir:  opts.ExportDir,
		timer:      newTimerModel(),
		stats:      newStatsModel(e.Stats()),
		settings:   newSettingsModel(e.Settings, opts.Sounds),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return a.stats.refresh()
}

func countdownCmd(gen uint64, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return countdownMsg{gen: gen}
	})
}

func autostartCmd(gen uint64, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return autostartMsg{gen: gen}
	})
}

// sync schedules whatever the engine now expects and picks up the
// notifications and errors it produced.
func (a *App) sync() tea.Cmd {
	var cmds []tea.Cmd
	now := a.now()

	if gen, delay, ok := a.engine.NextTick(now); ok && gen != a.tickGen {
		a.tickGen = gen
		cmds = append(cmds, countdownCmd(gen, delay))
	}
	if gen, delay, ok := a.engine.NextAutostart(now); ok && gen != a.autostartGen {
		a.autostartGen = gen
		cmds = append(cmds, autostartCmd(gen, delay))
	}

	for _, n := range a.queue.Drain() {
		if n.ShowPopup {
			a.banner = n.Title + " " + n.Message
		}
	}
	if completed := a.engine.Snapshot().CompletedPomodoros; completed != a.completed {
		a.completed = completed
		cmds = append(cmds, a.stats.refresh())
	}

	if err := a.engine.LastError(); err != nil {
		a.status = err.Error()
		a.statusErr = true
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			a.engine.Pause()
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTimer
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewStats
			return a, a.stats.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewSettings
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()

		case key.Matches(msg, keys.Start):
			a.banner = ""
			if a.engine.Start() {
				a.setStatus(a.engine.PhaseName() + " started")
			}
			return a, a.sync()
		case key.Matches(msg, keys.Pause):
			a.banner = ""
			if a.engine.Toggle() {
				if a.engine.Snapshot().Running {
					a.setStatus("Resumed")
				} else {
					a.setStatus("Paused")
				}
			}
			return a, a.sync()
		case key.Matches(msg, keys.Reset):
			a.banner = ""
			a.engine.Reset()
			a.setStatus(a.engine.PhaseName() + " reset")
			return a, a.sync()
		case key.Matches(msg, keys.Skip):
			if !a.engine.SkipBreak() {
				a.setStatus("Not on a break")
				return a, nil
			}
			a.banner = ""
			a.setStatus("Break skipped")
			return a, a.sync()
		}

	case countdownMsg:
		if msg.gen == a.tickGen {
			a.tickGen = 0
		}
		a.engine.Advance(msg.gen, a.now())
		return a, a.sync()

	case autostartMsg:
		if msg.gen == a.autostartGen {
			a.autostartGen = 0
		}
		if a.engine.AutostartDue(msg.gen, a.now()) {
			a.setStatus(a.engine.PhaseName() + " started automatically")
		}
		return a, a.sync()

	case settingsSubmitMsg:
		if err := a.engine.Edit(msg.changes); err != nil {
			a.status = "Settings: " + err.Error()
			a.statusErr = true
		} else {
			a.setStatus("Settings saved")
		}
		return a, a.sync()

	case statsDataMsg:
		a.stats.apply(msg)
		return a, nil

	case statsResetMsg:
		if msg.err != nil {
			a.status = fmt.Sprintf("Reset error: %v", msg.err)
			a.statusErr = true
			return a, nil
		}
		a.setStatus("Statistics reset")
		return a, a.stats.refresh()

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to " + msg.path)
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string) {
	a.status = text
	a.statusErr = false
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewStats:
		return a.stats.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	if a.activeView == viewStats {
		return a.stats.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view(a.engine.Snapshot(), a.engine.Progress(), a.banner)
	case viewStats:
		content = a.stats.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("apomodoro")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusErr {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	// Countdown indicator, visible from every tab
	snap := a.engine.Snapshot()
	timerInfo := warningStyle.Render(" ⏸ " + formatClock(snap.Remaining))
	if snap.Running {
		timerInfo = phaseStyle(snap.Phase).Render(" ● " + formatClock(snap.Remaining))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.ToUpper(f)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(exportFormats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format string) tea.Cmd {
	store := a.engine.Stats()
	dir := a.exportDir
	date := a.now().Format("2006-01-02")
	return func() tea.Msg {
		days, err := store.All()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		path := filepath.Join(dir, fmt.Sprintf("apomodoro-export-%s.%s", date, format))
		if err := export.ToFile(path, format, export.Sessions(days)); err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}
