package playback

import "time"

// StateChange is emitted when playback state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when the service starts a different queue entry,
// either through Play/Next/JumpTo or by advancing after a finished track.
type TrackChange struct {
	Current *Track
	Index   int
}

// QueueChange is emitted when the queue contents change.
type QueueChange struct {
	Tracks []Track
	Index  int
}

// ModeChange is emitted when the repeat mode changes.
type ModeChange struct {
	RepeatMode RepeatMode
}

// PositionChange is emitted when a seek occurs.
type PositionChange struct {
	Position time.Duration
}

// ErrorEvent is emitted when a track cannot be played.
type ErrorEvent struct {
	Operation  string // e.g., "play", "seek"
	Identifier string
	Err        error
}
