// Package marker tracks a single position callback armed on a playing track.
package marker

import "sync/atomic"

// State is the terminal state a marker resolves to.
type State int

const (
	// Reached: playback reached the marker position.
	Reached State = iota
	// Removed: the marker was removed without a replacement.
	Removed
	// Overwritten: another marker replaced it.
	Overwritten
	// Bypassed: a seek jumped over the marker position.
	Bypassed
	// Stopped: the track was stopped.
	Stopped
	// Late: the marker position was already behind the playback position
	// when it was set.
	Late
	// Ended: the track ended before reaching the marker.
	Ended
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Reached:
		return "Reached"
	case Removed:
		return "Removed"
	case Overwritten:
		return "Overwritten"
	case Bypassed:
		return "Bypassed"
	case Stopped:
		return "Stopped"
	case Late:
		return "Late"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Marker is a one-shot callback for a track position.
// Markers are compared by identity; always pass them by pointer.
type Marker struct {
	Timecode int64 // ms
	Handler  func(State)
}

// New creates a marker firing fn at timecode.
func New(timecode int64, fn func(State)) *Marker {
	return &Marker{Timecode: timecode, Handler: fn}
}

func (m *Marker) handle(s State) {
	if m.Handler != nil {
		m.Handler(s)
	}
}

// Tracker holds at most one pending marker.
//
// Install and resolution both go through atomic swaps on the single slot,
// so a marker fires exactly once even when an overwrite races a timecode
// check. Handlers run synchronously on the calling goroutine.
type Tracker struct {
	current atomic.Pointer[Marker]
}

// Set installs m, resolving the previous marker as Overwritten (or Removed
// when m is nil). If currentPosition is already at or past m's timecode, m
// resolves Late immediately instead of staying installed.
func (t *Tracker) Set(m *Marker, currentPosition int64) {
	previous := t.current.Swap(m)
	if previous != nil {
		if m != nil {
			previous.handle(Overwritten)
		} else {
			previous.handle(Removed)
		}
	}

	if m != nil && currentPosition >= m.Timecode {
		t.resolve(m, Late)
	}
}

// Get returns the installed marker, or nil.
func (t *Tracker) Get() *Marker {
	return t.current.Load()
}

// Remove uninstalls the current marker and resolves it as Removed.
// It returns the removed marker, or nil if none was installed.
func (t *Tracker) Remove() *Marker {
	m := t.current.Swap(nil)
	if m != nil {
		m.handle(Removed)
	}
	return m
}

// Trigger resolves the installed marker with s, if any.
func (t *Tracker) Trigger(s State) {
	if m := t.current.Load(); m != nil {
		t.resolve(m, s)
	}
}

// CheckPlaybackTimecode resolves the marker as Reached when tc reached it.
// Called after every frame handed to the consumer.
func (t *Tracker) CheckPlaybackTimecode(tc int64) {
	if m := t.current.Load(); m != nil && tc >= m.Timecode {
		t.resolve(m, Reached)
	}
}

// CheckSeekTimecode resolves the marker as Bypassed when a seek landed at
// or past it.
func (t *Tracker) CheckSeekTimecode(tc int64) {
	if m := t.current.Load(); m != nil && tc >= m.Timecode {
		t.resolve(m, Bypassed)
	}
}

func (t *Tracker) resolve(m *Marker, s State) {
	if t.current.CompareAndSwap(m, nil) {
		m.handle(s)
	}
}
