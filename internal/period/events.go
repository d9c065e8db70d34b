package period

// Phase is the current period of the Pomodoro cycle.
type Phase string

const (
	PhasePomodoro   Phase = "pomodoro"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// IsBreak reports whether the phase is a short or long break.
func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

var phaseNames = map[Phase]string{
	PhasePomodoro:   "Pomodoro",
	PhaseShortBreak: "Short break",
	PhaseLongBreak:  "Long break",
}

// Name returns the human-readable label of the phase.
func (p Phase) Name() string {
	return phaseNames[p]
}

// EventType identifies a Machine event.
type EventType string

const (
	EventStarted           EventType = "started"
	EventPaused            EventType = "paused"
	EventReset             EventType = "reset"
	EventTick              EventType = "tick"
	EventPomodoroStarted   EventType = "pomodoro_started"
	EventShortBreakStarted EventType = "short_break_started"
	EventLongBreakStarted  EventType = "long_break_started"
)

// PhaseChange reports whether the event announces entry into a new phase.
func (t EventType) PhaseChange() bool {
	switch t {
	case EventPomodoroStarted, EventShortBreakStarted, EventLongBreakStarted:
		return true
	}
	return false
}

// Event is delivered to subscribers after every state transition.
type Event struct {
	Type      EventType
	Phase     Phase
	Remaining int

	// Set on phase-change events: the phase that just ended and the full
	// duration (seconds) it ran with.
	Completed         Phase
	CompletedDuration int

	CompletedPomodoros int
	Cycle              int
}

// Subscriber receives Machine events.
type Subscriber interface {
	HandleEvent(Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Event)

// HandleEvent calls f(event).
func (f SubscriberFunc) HandleEvent(event Event) { f(event) }
