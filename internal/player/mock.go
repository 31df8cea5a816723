package player

import (
	"sync"
	"time"

	"github.com/llehouerou/wavefeed/internal/frame"
	"github.com/llehouerou/wavefeed/internal/marker"
	"github.com/llehouerou/wavefeed/internal/track"
)

// Mock is a test double for Player. It serves queued frames and records
// calls; events are only emitted through Emit.
type Mock struct {
	mu           sync.Mutex
	state        State
	paused       bool
	position     int64
	frames       []frame.Frame
	playErr      error
	seekErr      error
	playCalls    []track.Request
	seekCalls    []int64
	provideCalls int
	cleanupCalls int
	stopCalls    int
	listeners    []listenerEntry
	nextListener ListenerID
	subs         []*Subscription
	destroyed    bool
}

// NewMock creates a new mock player for testing.
func NewMock() *Mock {
	return &Mock{state: Stopped}
}

func (m *Mock) PlayTrack(req track.Request) (*track.Executor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls = append(m.playCalls, req)
	if m.playErr != nil {
		return nil, m.playErr
	}
	if !req.ReplaceExisting && m.state.IsActive() {
		return nil, ErrTrackActive
	}
	m.state = Playing
	return nil, nil
}

func (m *Mock) StopTrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	m.state = Stopped
}

func (m *Mock) PlayingTrack() *track.Executor { return nil }

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.IsActive() && m.paused {
		return Paused
	}
	return m.state
}

func (m *Mock) Provide() (frame.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provideCalls++
	if m.paused || len(m.frames) == 0 {
		return frame.Frame{}, false
	}
	f := m.frames[0]
	m.frames = m.frames[1:]
	return f, true
}

func (m *Mock) ProvideTimeout(timeout time.Duration) (frame.Frame, bool, error) {
	if timeout < 0 {
		return frame.Frame{}, false, frame.ErrInvalidTimeout
	}
	f, ok := m.Provide()
	return f, ok, nil
}

func (m *Mock) ProvideInto(mf *frame.Mutable) bool {
	f, ok := m.Provide()
	if ok {
		mf.Store(f)
	}
	return ok
}

func (m *Mock) ProvideIntoTimeout(mf *frame.Mutable, timeout time.Duration) (bool, error) {
	f, ok, err := m.ProvideTimeout(timeout)
	if ok {
		mf.Store(f)
	}
	return ok, err
}

func (m *Mock) Pause() { m.SetPaused(true) }

func (m *Mock) Resume() { m.SetPaused(false) }

func (m *Mock) Toggle() { m.SetPaused(!m.IsPaused()) }

func (m *Mock) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
}

func (m *Mock) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *Mock) Position() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) SetPosition(position int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, position)
	if m.seekErr != nil {
		return m.seekErr
	}
	m.position = position
	return nil
}

func (m *Mock) SetMarker(_ *marker.Marker) {}

func (m *Mock) CheckCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupCalls++
}

func (m *Mock) AddListener(fn Listener) ListenerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextListener++
	m.listeners = append(m.listeners, listenerEntry{id: m.nextListener, fn: fn})
	return m.nextListener
}

func (m *Mock) RemoveListener(id ListenerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.listeners {
		if l.id == id {
			m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *Mock) Subscribe() *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := newSubscription()
	m.subs = append(m.subs, sub)
	return sub
}

func (m *Mock) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.state = Stopped
	for _, sub := range m.subs {
		sub.close()
	}
	m.subs = nil
}

// Test helpers

// QueueFrames appends frames served by the Provide methods.
func (m *Mock) QueueFrames(frames ...frame.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
}

// Emit delivers ev to listeners and subscriptions synchronously. A
// TrackEnd also moves the mock to Stopped.
func (m *Mock) Emit(ev Event) {
	m.mu.Lock()
	if _, ok := ev.(TrackEnd); ok {
		m.state = Stopped
	}
	listeners := append([]listenerEntry(nil), m.listeners...)
	for _, sub := range m.subs {
		sub.send(ev)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l.fn(ev)
	}
}

func (m *Mock) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

func (m *Mock) SetSeekError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekErr = err
}

func (m *Mock) PlayCalls() []track.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]track.Request(nil), m.playCalls...)
}

func (m *Mock) SeekCalls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.seekCalls...)
}

func (m *Mock) ProvideCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provideCalls
}

func (m *Mock) CleanupCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanupCalls
}

func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
