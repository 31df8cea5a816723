package player

import (
	"log/slog"
	"time"
)

// Pause pauses playback.
func (p *Player) Pause() { p.SetPaused(true) }

// Resume resumes paused playback.
func (p *Player) Resume() { p.SetPaused(false) }

// Toggle toggles between paused and unpaused.
func (p *Player) Toggle() {
	p.mu.Lock()
	paused := p.paused
	p.mu.Unlock()
	p.SetPaused(!paused)
}

// IsPaused reports whether the player is paused.
func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// SetPaused sets the pause flag, firing PlayerPause or PlayerResume when
// it changes.
func (p *Player) SetPaused(paused bool) {
	p.mu.Lock()
	if p.paused == paused || p.destroyed {
		p.mu.Unlock()
		return
	}
	p.paused = paused
	if paused {
		p.resumed = make(chan struct{})
		p.enqueueLocked(PlayerPause{})
	} else {
		close(p.resumed)
		p.resumed = nil
		// Time spent paused is not a stuck episode.
		p.lastFrame = time.Now()
		p.stuckFired = false
		p.enqueueLocked(PlayerResume{})
	}
	p.mu.Unlock()
	p.flush()

	slog.Debug("player: pause changed", "player", p.id, "paused", paused)
}

// State returns the session state derived from the active track and the
// pause flag.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.active == nil:
		return Stopped
	case p.paused:
		return Paused
	default:
		return Playing
	}
}
