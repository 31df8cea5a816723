// Package player multiplexes the tracks of one playback session into a
// single frame feed.
package player

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/wavefeed/internal/marker"
	"github.com/llehouerou/wavefeed/internal/track"
)

var (
	// ErrTrackActive is returned by PlayTrack when a track is playing and
	// the request does not allow replacing it.
	ErrTrackActive = errors.New("player: a track is already active")
	// ErrNoTrack is returned by operations that need an active track.
	ErrNoTrack = errors.New("player: no active track")
	// ErrDestroyed is returned by PlayTrack after Destroy.
	ErrDestroyed = errors.New("player: destroyed")
)

// Options configures a Player.
type Options struct {
	Track track.Options

	// StuckThreshold is how long the consumer may ask for audio without
	// getting any before TrackStuck fires. Zero disables detection.
	StuckThreshold time.Duration
	// CleanupThreshold is how long a track may stay active without being
	// pulled before CheckCleanup stops it. Zero disables cleanup.
	CleanupThreshold time.Duration
	// PauseBlocksTimedProvide makes timed provide calls wait for resume
	// (up to their timeout) instead of ignoring the pause.
	PauseBlocksTimedProvide bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Track:            track.DefaultOptions(),
		StuckThreshold:   10 * time.Second,
		CleanupThreshold: time.Minute,
	}
}

// Player plays one track at a time and serves its frames to a consumer.
//
// Goroutine topology:
//   - 1 decode goroutine per started executor (owned by track.Executor)
//   - 1 consumer calling Provide* (typically a real-time output callback)
//   - any goroutine calling PlayTrack, StopTrack, Pause, CheckCleanup
//
// The active and shadow slots, pause flag and timestamps live behind mu.
// Events are queued under mu and delivered after it is released.
type Player struct {
	id      string
	factory track.Factory
	opts    Options

	mu          sync.Mutex
	active      *track.Executor
	shadow      *track.Executor // replaced track still draining its buffer
	paused      bool
	resumed     chan struct{} // closed on resume, nil when not paused
	lastRequest time.Time
	lastFrame   time.Time
	stuckFired  bool
	destroyed   bool

	eventsMu    sync.Mutex
	events      []Event
	dispatching bool

	listenersMu  sync.Mutex
	listeners    []listenerEntry
	nextListener ListenerID
	subs         []*Subscription
	closed       bool
}

// New creates a player building its executors with factory.
func New(factory track.Factory, opts Options) *Player {
	now := time.Now()
	return &Player{
		id:          uuid.NewString(),
		factory:     factory,
		opts:        opts,
		lastRequest: now,
		lastFrame:   now,
	}
}

// ID returns a unique identifier for logs.
func (p *Player) ID() string { return p.id }

// PlayTrack builds an executor for req and makes it the active track.
//
// Returns ErrTrackActive when a track is active and req.ReplaceExisting
// is false. Factory errors are returned as is and leave the current
// playback untouched. A replaced track ends with EndReplaced; with seek
// ghosting its buffered audio keeps being served before the new track's.
func (p *Player) PlayTrack(req track.Request) (*track.Executor, error) {
	p.mu.Lock()
	if err := p.canPlayLocked(req); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()

	// The factory may do I/O; it runs outside mu so provide is never held up.
	exec, err := p.factory(req, p.opts.Track)
	if err != nil {
		slog.Warn("player: could not create track",
			"player", p.id,
			"identifier", req.Identifier,
			"error", err,
		)
		return nil, err
	}

	p.mu.Lock()
	if err := p.canPlayLocked(req); err != nil {
		p.mu.Unlock()
		discard(exec)
		return nil, err
	}

	if prev := p.active; prev != nil {
		prev.Stop()
		p.enqueueLocked(TrackEnd{Track: prev, Reason: EndReplaced})
		if p.shadow != nil {
			p.shadow.Stop()
		}
		p.shadow = nil
		if p.opts.Track.SeekGhosting {
			p.shadow = prev
		}
	}

	now := time.Now()
	p.active = exec
	p.lastRequest = now
	p.lastFrame = now
	p.stuckFired = false
	p.enqueueLocked(TrackStart{Track: exec})
	p.mu.Unlock()

	// Outside mu: a late initial marker resolves inside Execute and its
	// handler may call back into the player.
	if err := exec.Execute(trackListener{p}); err != nil {
		// Executors from the factory are fresh; this is a factory bug.
		slog.Error("player: executor rejected start", "player", p.id, "track", exec.ID(), "error", err)
	}
	p.flush()

	slog.Debug("player: track started",
		"player", p.id,
		"track", exec.ID(),
		"identifier", exec.Info().Identifier,
	)
	return exec, nil
}

func (p *Player) canPlayLocked(req track.Request) error {
	if p.destroyed {
		return ErrDestroyed
	}
	if !req.ReplaceExisting && p.active != nil {
		return ErrTrackActive
	}
	return nil
}

// discard releases an executor that never became active.
func discard(e *track.Executor) {
	e.Stop()
	_ = e.Execute(nil)
}

// StopTrack stops the active track, if any, and drops the shadow track.
func (p *Player) StopTrack() {
	p.mu.Lock()
	p.stopLocked(EndStopped)
	p.mu.Unlock()
	p.flush()
}

func (p *Player) stopLocked(reason EndReason) {
	if p.shadow != nil {
		p.shadow.Stop()
		p.shadow = nil
	}
	exec := p.active
	if exec == nil {
		return
	}
	p.active = nil
	exec.Stop()
	p.enqueueLocked(TrackEnd{Track: exec, Reason: reason})

	slog.Debug("player: track stopped",
		"player", p.id,
		"track", exec.ID(),
		"reason", reason.String(),
	)
}

// PlayingTrack returns the active track, or nil.
func (p *Player) PlayingTrack() *track.Executor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Position returns the position of the active track in ms, 0 without one.
func (p *Player) Position() int64 {
	if e := p.PlayingTrack(); e != nil {
		return e.Position()
	}
	return 0
}

// SetPosition seeks the active track.
func (p *Player) SetPosition(position int64) error {
	e := p.PlayingTrack()
	if e == nil {
		return ErrNoTrack
	}
	return e.SetPosition(position)
}

// SetMarker installs a marker on the active track. Without an active
// track the marker resolves Removed right away.
func (p *Player) SetMarker(m *marker.Marker) {
	if e := p.PlayingTrack(); e != nil {
		e.SetMarker(m)
		return
	}
	if m != nil && m.Handler != nil {
		m.Handler(marker.Removed)
	}
}

// Destroy stops playback and closes all subscriptions. The player cannot
// be used to play afterwards.
func (p *Player) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.stopLocked(EndStopped)
	if p.resumed != nil {
		close(p.resumed)
		p.resumed = nil
	}
	p.mu.Unlock()
	p.flush()

	p.listenersMu.Lock()
	for _, sub := range p.subs {
		sub.close()
	}
	p.subs = nil
	p.closed = true
	p.listenersMu.Unlock()

	slog.Debug("player: destroyed", "player", p.id)
}

// CheckCleanup stops the active track with EndCleanup when the consumer
// did not ask for audio for longer than the cleanup threshold.
func (p *Player) CheckCleanup() {
	threshold := p.opts.CleanupThreshold
	if threshold <= 0 {
		return
	}

	p.mu.Lock()
	if p.active != nil {
		if idle := time.Since(p.lastRequest); idle > threshold {
			slog.Info("player: stopping idle track",
				"player", p.id,
				"track", p.active.ID(),
				"idle", idle,
			)
			p.stopLocked(EndCleanup)
		}
	}
	p.mu.Unlock()
	p.flush()
}

// CheckStuck fires TrackStuck when the active track has produced no
// audio for the stuck threshold. It fires once per episode; the episode
// ends when a frame is produced or the track changes.
func (p *Player) CheckStuck() {
	threshold := p.opts.StuckThreshold
	if threshold <= 0 {
		return
	}

	p.mu.Lock()
	exec := p.active
	if exec == nil || p.paused || p.stuckFired || time.Since(p.lastFrame) < threshold {
		p.mu.Unlock()
		return
	}
	p.stuckFired = true
	p.enqueueLocked(TrackStuck{Track: exec, Threshold: threshold})
	p.mu.Unlock()
	p.flush()

	slog.Warn("player: track stuck",
		"player", p.id,
		"track", exec.ID(),
		"threshold", threshold,
	)
}

// trackListener receives executor failures on behalf of a player.
type trackListener struct{ p *Player }

func (l trackListener) OnTrackException(e *track.Executor, exc *track.Exception) {
	p := l.p
	p.mu.Lock()
	p.enqueueLocked(TrackException{Track: e, Err: exc})
	p.mu.Unlock()
	p.flush()
}
