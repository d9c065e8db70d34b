package tui

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/apomodoro/internal/notify"
	"github.com/sadopc/apomodoro/internal/settings"
)

// settingsSubmitMsg carries field-named edits from the settings form.
type settingsSubmitMsg struct {
	changes map[string]string
}

type settingsModel struct {
	current func() settings.TimerSettings
	sounds  *notify.SoundCatalog
	width   int
	height  int

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	pomodoroMin        *string
	shortBreakMin      *string
	longBreakMin       *string
	notificationType   *string
	pomodoroSound      *string
	shortBreakSound    *string
	longBreakSound     *string
	autoStartBreaks    *bool
	autoStartPomodoros *bool
}

func newSettingsModel(current func() settings.TimerSettings, sounds *notify.SoundCatalog) settingsModel {
	pm, sm, lm, nt := "", "", "", ""
	ps, ss, ls := "", "", ""
	ab, ap := false, false
	return settingsModel{
		current:            current,
		sounds:             sounds,
		pomodoroMin:        &pm,
		shortBreakMin:      &sm,
		longBreakMin:       &lm,
		notificationType:   &nt,
		pomodoroSound:      &ps,
		shortBreakSound:    &ss,
		longBreakSound:     &ls,
		autoStartBreaks:    &ab,
		autoStartPomodoros: &ap,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Enter) {
		return s.showForm()
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	cur := s.current()
	*s.pomodoroMin = secsToMin(cur.PomodoroTime)
	*s.shortBreakMin = secsToMin(cur.ShortBreakTime)
	*s.longBreakMin = secsToMin(cur.LongBreakTime)
	*s.notificationType = string(cur.NotificationType)
	*s.pomodoroSound = cur.PomodoroSound
	*s.shortBreakSound = cur.ShortBreakSound
	*s.longBreakSound = cur.LongBreakSound
	*s.autoStartBreaks = cur.AutoStartBreaks
	*s.autoStartPomodoros = cur.AutoStartPomodoros

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Pomodoro (min)").Value(s.pomodoroMin).Validate(validateMinutes),
			huh.NewInput().Title("Short break (min)").Value(s.shortBreakMin).Validate(validateMinutes),
			huh.NewInput().Title("Long break (min)").Value(s.longBreakMin).Validate(validateMinutes),
		).Title("Durations"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Notification").
				Options(
					huh.NewOption("Sound and popup", string(settings.NotifyBoth)),
					huh.NewOption("Sound only", string(settings.NotifySound)),
					huh.NewOption("Popup only", string(settings.NotifyPopup)),
					huh.NewOption("None", string(settings.NotifyNone)),
				).Value(s.notificationType),
			huh.NewSelect[string]().Title("Pomodoro sound").
				Options(s.soundOptions(cur.PomodoroSound)...).Value(s.pomodoroSound),
			huh.NewSelect[string]().Title("Short break sound").
				Options(s.soundOptions(cur.ShortBreakSound)...).Value(s.shortBreakSound),
			huh.NewSelect[string]().Title("Long break sound").
				Options(s.soundOptions(cur.LongBreakSound)...).Value(s.longBreakSound),
		).Title("Notifications"),
		huh.NewGroup(
			huh.NewConfirm().Title("Start breaks automatically").Value(s.autoStartBreaks),
			huh.NewConfirm().Title("Start pomodoros automatically").Value(s.autoStartPomodoros),
		).Title("Autostart"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

// soundOptions lists the catalog, keeping an unknown current value selectable.
func (s settingsModel) soundOptions(current string) []huh.Option[string] {
	ids := s.sounds.IDs()
	if current != "" && !s.sounds.Has(current) {
		ids = append(ids, current)
	}
	opts := make([]huh.Option[string], 0, len(ids))
	for _, id := range ids {
		opts = append(opts, huh.NewOption(notify.DisplayName(id), id))
	}
	return opts
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		changes := s.changes()
		return s, func() tea.Msg { return settingsSubmitMsg{changes: changes} }
	}

	return s, cmd
}

// changes converts the form values to settings.Edit input.
func (s settingsModel) changes() map[string]string {
	return map[string]string{
		"pomodoro_time":        minToSecs(*s.pomodoroMin),
		"short_break_time":     minToSecs(*s.shortBreakMin),
		"long_break_time":      minToSecs(*s.longBreakMin),
		"notification_type":    *s.notificationType,
		"pomodoro_sound":       *s.pomodoroSound,
		"short_break_sound":    *s.shortBreakSound,
		"long_break_sound":     *s.longBreakSound,
		"auto_start_breaks":    strconv.FormatBool(*s.autoStartBreaks),
		"auto_start_pomodoros": strconv.FormatBool(*s.autoStartPomodoros),
	}
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	cur := s.current()
	entries := []struct{ label, value string }{
		{"Pomodoro", formatSettingMinutes(cur.PomodoroTime)},
		{"Short break", formatSettingMinutes(cur.ShortBreakTime)},
		{"Long break", formatSettingMinutes(cur.LongBreakTime)},
		{"Notification", string(cur.NotificationType)},
		{"Pomodoro sound", notify.DisplayName(cur.PomodoroSound)},
		{"Short break sound", notify.DisplayName(cur.ShortBreakSound)},
		{"Long break sound", notify.DisplayName(cur.LongBreakSound)},
		{"Autostart breaks", yesNo(cur.AutoStartBreaks)},
		{"Autostart pomodoros", yesNo(cur.AutoStartPomodoros)},
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for _, e := range entries {
		label := lipgloss.NewStyle().Width(24).Render(e.label)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(e.value)))
	}
	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingMinutes(secs int) string {
	if secs%60 == 0 {
		return fmt.Sprintf("%d min", secs/60)
	}
	return fmt.Sprintf("%d min %d s", secs/60, secs%60)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// secsToMin renders seconds as minutes, with decimals only when needed.
func secsToMin(secs int) string {
	if secs%60 == 0 {
		return strconv.Itoa(secs / 60)
	}
	return strconv.FormatFloat(float64(secs)/60, 'f', -1, 64)
}

// minToSecs converts a minutes value to whole seconds. Unparseable input is
// passed through so settings.Edit reports it.
func minToSecs(s string) string {
	secs, err := parseMinutes(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strconv.Itoa(secs)
}

func parseMinutes(s string) (int, error) {
	mins, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(mins) || math.IsInf(mins, 0) {
		return 0, errors.New("enter a number of minutes")
	}
	secs := int(math.Round(mins * 60))
	if secs <= 0 {
		return 0, errors.New("must be greater than 0")
	}
	return secs, nil
}

func validateMinutes(s string) error {
	_, err := parseMinutes(s)
	return err
}
