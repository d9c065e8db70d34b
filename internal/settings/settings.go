package settings

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NotificationType selects how a phase change is announced.
type NotificationType string

const (
	NotifyNone  NotificationType = "none"
	NotifySound NotificationType = "sound"
	NotifyPopup NotificationType = "popup"
	NotifyBoth  NotificationType = "both"
)

// Valid reports whether n is one of the known notification types.
func (n NotificationType) Valid() bool {
	switch n {
	case NotifyNone, NotifySound, NotifyPopup, NotifyBoth:
		return true
	}
	return false
}

// Sound reports whether a sound should be played.
func (n NotificationType) Sound() bool { return n == NotifySound || n == NotifyBoth }

// Popup reports whether a popup should be shown.
func (n NotificationType) Popup() bool { return n == NotifyPopup || n == NotifyBoth }

const (
	DefaultPomodoroTime   = 25 * 60
	DefaultShortBreakTime = 5 * 60
	DefaultLongBreakTime  = 15 * 60
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("invalid settings")

// ValidationError describes a rejected field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s=%q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// TimerSettings holds the user-editable timer configuration. Durations are seconds.
type TimerSettings struct {
	PomodoroTime       int              `json:"pomodoro_time" yaml:"pomodoro_time"`
	ShortBreakTime     int              `json:"short_break_time" yaml:"short_break_time"`
	LongBreakTime      int              `json:"long_break_time" yaml:"long_break_time"`
	NotificationType   NotificationType `json:"notification_type" yaml:"notification_type"`
	PomodoroSound      string           `json:"pomodoro_sound" yaml:"pomodoro_sound"`
	ShortBreakSound    string           `json:"short_break_sound" yaml:"short_break_sound"`
	LongBreakSound     string           `json:"long_break_sound" yaml:"long_break_sound"`
	AutoStartBreaks    bool             `json:"auto_start_breaks" yaml:"auto_start_breaks"`
	AutoStartPomodoros bool             `json:"auto_start_pomodoros" yaml:"auto_start_pomodoros"`
}

// Defaults returns the built-in settings.
func Defaults() TimerSettings {
	return TimerSettings{
		PomodoroTime:       DefaultPomodoroTime,
		ShortBreakTime:     DefaultShortBreakTime,
		LongBreakTime:      DefaultLongBreakTime,
		NotificationType:   NotifyBoth,
		PomodoroSound:      "bonus_1",
		ShortBreakSound:    "soft_bell",
		LongBreakSound:     "bell",
		AutoStartBreaks:    true,
		AutoStartPomodoros: false,
	}
}

// Validate returns the first invalid field, or nil.
func Validate(s TimerSettings) error {
	durations := []struct {
		field string
		value int
	}{
		{"pomodoro_time", s.PomodoroTime},
		{"short_break_time", s.ShortBreakTime},
		{"long_break_time", s.LongBreakTime},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return &ValidationError{Field: d.field, Value: strconv.Itoa(d.value), Reason: "must be greater than 0"}
		}
	}
	if !s.NotificationType.Valid() {
		return &ValidationError{Field: "notification_type", Value: string(s.NotificationType), Reason: "must be one of none, sound, popup, both"}
	}
	return nil
}

// Keys lists the editable field names in a stable order.
func Keys() []string {
	keys := make([]string, 0, len(editors))
	for k := range editors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type editor func(s *TimerSettings, value string) error

var editors = map[string]editor{
	"pomodoro_time":        durationEditor("pomodoro_time", func(s *TimerSettings) *int { return &s.PomodoroTime }),
	"short_break_time":     durationEditor("short_break_time", func(s *TimerSettings) *int { return &s.ShortBreakTime }),
	"long_break_time":      durationEditor("long_break_time", func(s *TimerSettings) *int { return &s.LongBreakTime }),
	"notification_type":    notificationEditor,
	"pomodoro_sound":       soundEditor(func(s *TimerSettings) *string { return &s.PomodoroSound }),
	"short_break_sound":    soundEditor(func(s *TimerSettings) *string { return &s.ShortBreakSound }),
	"long_break_sound":     soundEditor(func(s *TimerSettings) *string { return &s.LongBreakSound }),
	"auto_start_breaks":    boolEditor("auto_start_breaks", func(s *TimerSettings) *bool { return &s.AutoStartBreaks }),
	"auto_start_pomodoros": boolEditor("auto_start_pomodoros", func(s *TimerSettings) *bool { return &s.AutoStartPomodoros }),
}

// Edit applies field-named string values to a copy of current. Durations accept
// whole seconds ("1500") or Go durations ("25m"). On any error current is
// returned unchanged alongside the error.
func Edit(current TimerSettings, changes map[string]string) (TimerSettings, error) {
	next := current
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		apply, ok := editors[k]
		if !ok {
			return current, &ValidationError{Field: k, Value: changes[k], Reason: "unknown setting"}
		}
		if err := apply(&next, strings.TrimSpace(changes[k])); err != nil {
			return current, err
		}
	}
	if err := Validate(next); err != nil {
		return current, err
	}
	return next, nil
}

// ParseSeconds parses whole seconds or a Go duration string into positive seconds.
func ParseSeconds(field, value string) (int, error) {
	if n, err := strconv.Atoi(value); err == nil {
		if n <= 0 {
			return 0, &ValidationError{Field: field, Value: value, Reason: "must be greater than 0"}
		}
		return n, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ValidationError{Field: field, Value: value, Reason: "not a number"}
	}
	if d < time.Second {
		return 0, &ValidationError{Field: field, Value: value, Reason: "must be at least one second"}
	}
	return int(d / time.Second), nil
}

func durationEditor(field string, target func(*TimerSettings) *int) editor {
	return func(s *TimerSettings, value string) error {
		n, err := ParseSeconds(field, value)
		if err != nil {
			return err
		}
		*target(s) = n
		return nil
	}
}

func boolEditor(field string, target func(*TimerSettings) *bool) editor {
	return func(s *TimerSettings, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &ValidationError{Field: field, Value: value, Reason: "not a boolean"}
		}
		*target(s) = b
		return nil
	}
}

func soundEditor(target func(*TimerSettings) *string) editor {
	return func(s *TimerSettings, value string) error {
		if value == "" {
			value = "none"
		}
		*target(s) = value
		return nil
	}
}

func notificationEditor(s *TimerSettings, value string) error {
	n := NotificationType(strings.ToLower(value))
	if !n.Valid() {
		return &ValidationError{Field: "notification_type", Value: value, Reason: "must be one of none, sound, popup, both"}
	}
	s.NotificationType = n
	return nil
}
