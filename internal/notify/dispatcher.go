// Package notify decides when a phase change is announced and fans the
// resulting notification out to sinks. Playing audio and drawing popups is
// left to the sinks.
package notify

import (
	"github.com/sadopc/apomodoro/internal/period"
	"github.com/sadopc/apomodoro/internal/settings"
)

// Notification is what a sink is asked to render.
type Notification struct {
	Event     period.EventType
	Sound     string
	PlaySound bool
	ShowPopup bool
	Title     string
	Message   string
}

type text struct {
	title   string
	message string
}

var texts = map[period.EventType]text{
	period.EventLongBreakStarted:  {"The cycle is completed!", "Time for a long break!"},
	period.EventShortBreakStarted: {"Pomodoro is completed!", "Time for a short break!"},
	period.EventPomodoroStarted:   {"The break is over!", "Time to work!"},
}

// Dispatcher turns phase-change events into notifications.
type Dispatcher struct{}

// NewDispatcher returns a Dispatcher.
func NewDispatcher() *Dispatcher { return &Dispatcher{} }

// Decide returns the notification for event, or false when the event is not a
// phase change or the settings silence it entirely.
func (d *Dispatcher) Decide(event period.Event, s settings.TimerSettings) (Notification, bool) {
	t, ok := texts[event.Type]
	if !ok {
		return Notification{}, false
	}

	sound := soundFor(event.Phase, s)
	n := Notification{
		Event:     event.Type,
		Sound:     sound,
		PlaySound: s.NotificationType.Sound() && sound != SoundNone,
		ShowPopup: s.NotificationType.Popup(),
		Title:     t.title,
		Message:   t.message,
	}
	if !n.PlaySound && !n.ShowPopup {
		return n, false
	}
	return n, true
}

// soundFor returns the sound of the phase just entered.
func soundFor(phase period.Phase, s settings.TimerSettings) string {
	var sound string
	switch phase {
	case period.PhaseLongBreak:
		sound = s.LongBreakSound
	case period.PhaseShortBreak:
		sound = s.ShortBreakSound
	default:
		sound = s.PomodoroSound
	}
	if sound == "" {
		return SoundNone
	}
	return sound
}
