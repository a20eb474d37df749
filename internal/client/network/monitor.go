// Package network tracks connectivity of the client. Monitor holds the
// online flag and the short "just reconnected" window that follows a
// restored connection, Prober feeds it from periodic server pings.
package network

import (
	"sync"
	"time"
)

// DefaultReconnectWindow is how long JustReconnected lasts.
const DefaultReconnectWindow = 5 * time.Second

type State int

const (
	Offline State = iota
	Online
	JustReconnected
)

func (s State) String() string {
	switch s {
	case Offline:
		return "offline"
	case Online:
		return "online"
	case JustReconnected:
		return "just-reconnected"
	}
	return "unknown"
}

type listener struct {
	id int
	fn func(State)
}

// Monitor is safe for concurrent use. Listeners run synchronously on the
// goroutine that caused the transition, never under the monitor lock.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	just      bool
	gen       uint64
	stopTimer func() bool
	window    time.Duration

	listeners []listener
	nextID    int

	afterFunc func(d time.Duration, f func()) (stop func() bool)
}

func NewMonitor(initialOnline bool, window time.Duration) *Monitor {
	if window <= 0 {
		window = DefaultReconnectWindow
	}
	return &Monitor{
		online: initialOnline,
		window: window,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
	}
}

func (m *Monitor) state() State {
	switch {
	case !m.online:
		return Offline
	case m.just:
		return JustReconnected
	default:
		return Online
	}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state()
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) JustReconnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online && m.just
}

// SetOnline is the only input of the monitor. Repeating the current value
// changes nothing.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if online == m.online {
		m.mu.Unlock()
		return
	}

	m.gen++
	if m.stopTimer != nil {
		m.stopTimer()
		m.stopTimer = nil
	}

	m.online = online
	m.just = online
	if online {
		gen := m.gen
		m.stopTimer = m.afterFunc(m.window, func() { m.expire(gen) })
	}

	st := m.state()
	ls := m.snapshot()
	m.mu.Unlock()

	notify(ls, st)
}

func (m *Monitor) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.just {
		m.mu.Unlock()
		return
	}
	m.just = false
	m.stopTimer = nil
	st := m.state()
	ls := m.snapshot()
	m.mu.Unlock()

	notify(ls, st)
}

// OnChange registers fn for every state transition and returns a function
// that removes it.
func (m *Monitor) OnChange(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, l := range m.listeners {
				if l.id == id {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *Monitor) snapshot() []func(State) {
	out := make([]func(State), len(m.listeners))
	for i, l := range m.listeners {
		out[i] = l.fn
	}
	return out
}

func notify(ls []func(State), st State) {
	for _, fn := range ls {
		fn(st)
	}
}
