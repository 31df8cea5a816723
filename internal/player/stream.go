package player

import (
	"time"

	"github.com/llehouerou/wavefeed/internal/frame"
	"github.com/llehouerou/wavefeed/internal/track"
)

// Provide returns the next frame without blocking. It returns false when
// no frame is ready, the player is paused or no track is active.
func (p *Player) Provide() (frame.Frame, bool) {
	shadow, active, paused := p.request()
	if paused {
		return frame.Frame{}, false
	}
	f, ok, _ := p.pull(shadow, active, 0)
	return f, ok
}

// ProvideTimeout returns the next frame, waiting up to timeout for the
// active track to produce one. An expired timeout never ends the track.
func (p *Player) ProvideTimeout(timeout time.Duration) (frame.Frame, bool, error) {
	if timeout < 0 {
		return frame.Frame{}, false, frame.ErrInvalidTimeout
	}
	shadow, active, paused := p.request()
	if paused && timeout == 0 {
		return frame.Frame{}, false, nil
	}
	timeout, ok := p.waitResume(timeout)
	if !ok {
		return frame.Frame{}, false, nil
	}
	return p.pull(shadow, active, timeout)
}

// ProvideInto stores the next frame into m without blocking.
func (p *Player) ProvideInto(m *frame.Mutable) bool {
	f, ok := p.Provide()
	if ok {
		m.Store(f)
	}
	return ok
}

// ProvideIntoTimeout stores the next frame into m, waiting up to timeout.
func (p *Player) ProvideIntoTimeout(m *frame.Mutable, timeout time.Duration) (bool, error) {
	f, ok, err := p.ProvideTimeout(timeout)
	if err != nil || !ok {
		return false, err
	}
	m.Store(f)
	return true, nil
}

// request records the provide call and snapshots the slots.
func (p *Player) request() (shadow, active *track.Executor, paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRequest = time.Now()
	return p.shadow, p.active, p.paused
}

// waitResume blocks a timed provide while paused when configured to. It
// returns the time left and false if the timeout expired first.
func (p *Player) waitResume(timeout time.Duration) (time.Duration, bool) {
	if !p.opts.PauseBlocksTimedProvide {
		return timeout, true
	}
	p.mu.Lock()
	resumed := p.resumed
	p.mu.Unlock()
	if resumed == nil {
		return timeout, true
	}
	if timeout == 0 {
		return 0, false
	}

	start := time.Now()
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-resumed:
		return max(timeout-time.Since(start), 0), true
	case <-t.C:
		return 0, false
	}
}

// pull serves the shadow track until it runs out, then the active track.
func (p *Player) pull(shadow, active *track.Executor, timeout time.Duration) (frame.Frame, bool, error) {
	if shadow != nil {
		if f, ok := shadow.Provide(); ok && !f.IsTerminator() {
			p.frameProduced(nil)
			return f, true, nil
		}
		p.dropShadow(shadow)
	}

	if active == nil {
		return frame.Frame{}, false, nil
	}

	var (
		f   frame.Frame
		ok  bool
		err error
	)
	if timeout > 0 {
		f, ok, err = active.ProvideTimeout(timeout)
		if err != nil {
			return frame.Frame{}, false, err
		}
	} else {
		f, ok = active.Provide()
	}

	switch {
	case !ok:
		p.CheckStuck()
		return frame.Frame{}, false, nil
	case f.IsTerminator():
		p.trackEnded(active)
		return frame.Frame{}, false, nil
	default:
		p.frameProduced(active)
		return f, true, nil
	}
}

// frameProduced ends a stuck episode. Shadow frames (active == nil) count
// as audio for the session.
func (p *Player) frameProduced(active *track.Executor) {
	p.mu.Lock()
	if active == nil || p.active == active {
		p.lastFrame = time.Now()
		p.stuckFired = false
	}
	p.mu.Unlock()
}

func (p *Player) dropShadow(shadow *track.Executor) {
	p.mu.Lock()
	if p.shadow == shadow {
		p.shadow = nil
	}
	p.mu.Unlock()
}

// trackEnded clears the active slot after its terminator. A track that was
// replaced or stopped meanwhile already had its TrackEnd.
func (p *Player) trackEnded(e *track.Executor) {
	p.mu.Lock()
	if p.active != e {
		p.mu.Unlock()
		return
	}
	p.active = nil
	reason := EndFinished
	if e.FailedBeforeLoad() {
		reason = EndLoadFailed
	}
	p.enqueueLocked(TrackEnd{Track: e, Reason: reason})
	p.mu.Unlock()
	p.flush()
}
