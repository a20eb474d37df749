package network

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimers replaces time.AfterFunc so tests decide when windows elapse.
type fakeTimers struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	f       func()
	stopped bool
}

func (ft *fakeTimers) install(m *Monitor) {
	m.afterFunc = func(_ time.Duration, f func()) func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		t := &fakeTimer{f: f}
		ft.pending = append(ft.pending, t)
		return func() bool {
			ft.mu.Lock()
			defer ft.mu.Unlock()
			was := !t.stopped
			t.stopped = true
			return was
		}
	}
}

// fireAll runs every scheduled callback, stopped or not, the way a timer
// that already fired before Stop would.
func (ft *fakeTimers) fireAll() {
	ft.mu.Lock()
	ts := ft.pending
	ft.pending = nil
	ft.mu.Unlock()
	for _, t := range ts {
		t.f()
	}
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) add(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) get() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestMonitor_InitialState(t *testing.T) {
	assert.Equal(t, Online, NewMonitor(true, 0).State())
	assert.Equal(t, Offline, NewMonitor(false, 0).State())
	assert.False(t, NewMonitor(true, 0).JustReconnected())
}

func TestMonitor_ReconnectWindowExpires(t *testing.T) {
	m := NewMonitor(false, time.Second)
	var ft fakeTimers
	ft.install(m)
	var rec recorder
	m.OnChange(rec.add)

	m.SetOnline(true)
	assert.Equal(t, JustReconnected, m.State())
	assert.True(t, m.JustReconnected())
	assert.True(t, m.IsOnline())

	ft.fireAll()
	assert.Equal(t, Online, m.State())
	assert.Equal(t, []State{JustReconnected, Online}, rec.get())
}

func TestMonitor_OfflineCancelsWindow(t *testing.T) {
	m := NewMonitor(false, time.Second)
	var ft fakeTimers
	ft.install(m)
	var rec recorder
	m.OnChange(rec.add)

	m.SetOnline(true)
	m.SetOnline(false)
	// the stale timer fires anyway
	ft.fireAll()

	assert.Equal(t, Offline, m.State())
	assert.Equal(t, []State{JustReconnected, Offline}, rec.get())
}

func TestMonitor_StaleTimerDoesNotEndNewWindow(t *testing.T) {
	m := NewMonitor(false, time.Second)
	var ft fakeTimers
	ft.install(m)

	m.SetOnline(true)
	m.SetOnline(false)

	ft.mu.Lock()
	stale := ft.pending[0]
	ft.pending = nil
	ft.mu.Unlock()

	m.SetOnline(true)
	stale.f()

	assert.Equal(t, JustReconnected, m.State(), "old timer must not clear the new window")

	ft.fireAll()
	assert.Equal(t, Online, m.State())
}

func TestMonitor_RepeatedOnlineDoesNotReenterWindow(t *testing.T) {
	m := NewMonitor(true, time.Second)
	var ft fakeTimers
	ft.install(m)
	var rec recorder
	m.OnChange(rec.add)

	m.SetOnline(true)
	m.SetOnline(true)

	assert.Equal(t, Online, m.State())
	assert.Empty(t, rec.get())
}

func TestMonitor_Unsubscribe(t *testing.T) {
	m := NewMonitor(true, time.Second)
	var ft fakeTimers
	ft.install(m)
	var a, b recorder
	unsubA := m.OnChange(a.add)
	m.OnChange(b.add)

	m.SetOnline(false)
	unsubA()
	unsubA()
	m.SetOnline(true)

	assert.Equal(t, []State{Offline}, a.get())
	assert.Equal(t, []State{Offline, JustReconnected}, b.get())
}

func TestMonitor_ListenerMayCallBack(t *testing.T) {
	m := NewMonitor(true, time.Second)
	var ft fakeTimers
	ft.install(m)

	seen := make(chan bool, 1)
	m.OnChange(func(s State) {
		// would deadlock if listeners ran under the lock
		seen <- m.IsOnline()
	})

	m.SetOnline(false)
	require.False(t, <-seen)
}

func TestMonitor_RealTimerClearsWindow(t *testing.T) {
	m := NewMonitor(false, 20*time.Millisecond)
	m.SetOnline(true)
	require.True(t, m.JustReconnected())

	require.Eventually(t, func() bool { return m.State() == Online }, time.Second, 5*time.Millisecond)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "offline", Offline.String())
	assert.Equal(t, "online", Online.String())
	assert.Equal(t, "just-reconnected", JustReconnected.String())
	assert.Equal(t, "unknown", State(42).String())
}
