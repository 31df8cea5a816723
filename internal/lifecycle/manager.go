// Package lifecycle runs periodic idle cleanup over a set of players.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 10 * time.Second

// ErrAlreadyStarted is returned by Start on a running or stopped manager.
var ErrAlreadyStarted = errors.New("lifecycle: manager already started")

// Cleaner is implemented by players. CheckCleanup stops the active track
// of an idle player.
type Cleaner interface {
	CheckCleanup()
}

// Manager calls CheckCleanup on every registered player at a fixed
// interval. It never touches frame buffers.
//
// Goroutine topology:
//   - 1 fixed: loop (spawned by Start, stopped by Stop or ctx)
type Manager struct {
	interval time.Duration

	mu      sync.Mutex
	players []Cleaner

	startedMu sync.Mutex
	started   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a manager polling at interval.
func New(interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manager{interval: interval}
}

// Register adds a player. Registering the same player twice is a no-op.
func (m *Manager) Register(p Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.players {
		if existing == p {
			return
		}
	}
	m.players = append(m.players, p)
}

// Unregister removes a player.
func (m *Manager) Unregister(p Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.players {
		if existing == p {
			m.players = append(m.players[:i:i], m.players[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered players.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// Start spawns the polling loop. It runs until ctx is cancelled or Stop
// is called. A manager starts once.
func (m *Manager) Start(ctx context.Context) error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Go(func() { m.loop(ctx) })

	slog.Debug("lifecycle: started", "interval", m.interval)
	return nil
}

// Stop cancels the loop and waits for it to exit. Idempotent.
func (m *Manager) Stop() {
	m.startedMu.Lock()
	cancel := m.cancel
	m.startedMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

func (m *Manager) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick()
		case <-ctx.Done():
			slog.Debug("lifecycle: stopped")
			return
		}
	}
}

func (m *Manager) tick() {
	m.mu.Lock()
	players := make([]Cleaner, len(m.players))
	copy(players, m.players)
	m.mu.Unlock()

	for _, p := range players {
		p.CheckCleanup()
	}
}
