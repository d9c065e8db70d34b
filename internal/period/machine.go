package period

import (
	"github.com/sadopc/apomodoro/internal/settings"
)

// CycleLength is the number of pomodoros between long breaks.
const CycleLength = 4

// Snapshot is a read-only copy of the machine state.
type Snapshot struct {
	Phase              Phase
	Remaining          int
	Total              int
	Running            bool
	CompletedPomodoros int
	Cycle              int
}

// Machine is the Pomodoro period state machine. It is not safe for concurrent
// use; callers serialise access (see engine.Runner).
type Machine struct {
	settings settings.TimerSettings

	phase     Phase
	remaining int
	// total is the full duration the current phase was entered with.
	total     int
	running   bool
	completed int
	cycle     int

	subscribers []Subscriber
	channels    []chan Event
}

// New returns a stopped machine at the start of a Pomodoro.
func New(s settings.TimerSettings) *Machine {
	m := &Machine{
		settings: s,
		phase:    PhasePomodoro,
	}
	m.enter(PhasePomodoro)
	return m
}

// Subscribe registers an observer. Subscribers run synchronously in
// registration order.
func (m *Machine) Subscribe(subscriber Subscriber) {
	m.subscribers = append(m.subscribers, subscriber)
}

// Events registers a channel observer. Delivery never blocks: events are
// dropped when the buffer is full.
func (m *Machine) Events(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	m.channels = append(m.channels, ch)
	return ch
}

// Close closes every channel returned by Events.
func (m *Machine) Close() {
	for _, ch := range m.channels {
		close(ch)
	}
	m.channels = nil
}

// Start resumes counting. It returns false if the machine was already running.
func (m *Machine) Start() bool {
	if m.running {
		return false
	}
	m.running = true
	m.emit(EventStarted)
	return true
}

// Pause stops counting. It returns false if the machine was not running.
func (m *Machine) Pause() bool {
	if !m.running {
		return false
	}
	m.running = false
	m.emit(EventPaused)
	return true
}

// Reset stops the machine and restores the full duration of the current phase.
func (m *Machine) Reset() {
	m.running = false
	m.remaining = m.durationFor(m.phase)
	m.total = m.remaining
	m.emit(EventReset)
}

// Tick advances the countdown by one second. It returns false when the
// machine is not running or has nothing left to count. Reaching zero stops
// the machine and enters the next phase before Tick returns.
func (m *Machine) Tick() bool {
	if !m.running || m.remaining <= 0 {
		return false
	}
	m.remaining--
	m.emit(EventTick)

	if m.remaining == 0 {
		m.complete()
	}
	return true
}

// SkipBreak ends the current break as if it had run out. It returns false
// during a Pomodoro.
func (m *Machine) SkipBreak() bool {
	if !m.phase.IsBreak() {
		return false
	}
	m.remaining = 0
	m.complete()
	return true
}

// ApplySettings replaces the settings. While stopped, a changed duration for
// the active phase resyncs the remaining time; while running the new values
// only apply from the next phase entry.
func (m *Machine) ApplySettings(s settings.TimerSettings) {
	before := m.durationFor(m.phase)
	m.settings = s
	if m.running {
		return
	}
	if after := m.durationFor(m.phase); after != before {
		m.remaining = after
		m.total = after
	}
}

// Settings returns the settings currently in effect.
func (m *Machine) Settings() settings.TimerSettings { return m.settings }

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		Phase:              m.phase,
		Remaining:          m.remaining,
		Total:              m.total,
		Running:            m.running,
		CompletedPomodoros: m.completed,
		Cycle:              m.cycle,
	}
}

// Phase returns the active phase.
func (m *Machine) Phase() Phase { return m.phase }

// Remaining returns the seconds left in the active phase.
func (m *Machine) Remaining() int { return m.remaining }

// Running reports whether the countdown is active.
func (m *Machine) Running() bool { return m.running }

// CompletedPomodoros returns the lifetime count of finished pomodoros.
func (m *Machine) CompletedPomodoros() int { return m.completed }

// Cycle returns the position within the four-pomodoro cycle, 0 through 3.
func (m *Machine) Cycle() int { return m.cycle }

// Progress returns remaining / full duration, or 0 for a zero-length phase.
func (m *Machine) Progress() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.remaining) / float64(m.total)
}

// PhaseName returns the label of the current phase.
func (m *Machine) PhaseName() string { return m.phase.Name() }

// CurrentSound returns the sound identifier configured for the current phase.
func (m *Machine) CurrentSound() string {
	switch m.phase {
	case PhaseLongBreak:
		return m.settings.LongBreakSound
	case PhaseShortBreak:
		return m.settings.ShortBreakSound
	default:
		return m.settings.PomodoroSound
	}
}

func (m *Machine) complete() {
	m.running = false
	ended := m.phase
	endedDuration := m.total

	var eventType EventType
	if ended == PhasePomodoro {
		m.completed++
		m.cycle = (m.cycle + 1) % CycleLength
		if m.cycle == 0 {
			m.enter(PhaseLongBreak)
			eventType = EventLongBreakStarted
		} else {
			m.enter(PhaseShortBreak)
			eventType = EventShortBreakStarted
		}
	} else {
		m.enter(PhasePomodoro)
		eventType = EventPomodoroStarted
	}

	event := m.event(eventType)
	event.Completed = ended
	event.CompletedDuration = endedDuration
	m.deliver(event)
}

func (m *Machine) enter(phase Phase) {
	m.phase = phase
	m.remaining = m.durationFor(phase)
	m.total = m.remaining
}

func (m *Machine) durationFor(phase Phase) int {
	var seconds int
	switch phase {
	case PhaseLongBreak:
		seconds = m.settings.LongBreakTime
	case PhaseShortBreak:
		seconds = m.settings.ShortBreakTime
	default:
		seconds = m.settings.PomodoroTime
	}
	if seconds < 0 {
		return 0
	}
	return seconds
}

func (m *Machine) event(eventType EventType) Event {
	return Event{
		Type:               eventType,
		Phase:              m.phase,
		Remaining:          m.remaining,
		CompletedPomodoros: m.completed,
		Cycle:              m.cycle,
	}
}

func (m *Machine) emit(eventType EventType) {
	m.deliver(m.event(eventType))
}

func (m *Machine) deliver(event Event) {
	for _, subscriber := range m.subscribers {
		subscriber.HandleEvent(event)
	}
	for _, ch := range m.channels {
		select {
		case ch <- event:
		default:
		}
	}
}
