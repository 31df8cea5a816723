package player

import (
	"time"

	"github.com/llehouerou/wavefeed/internal/track"
)

// Event is emitted by a Player to its listeners and subscriptions.
//
// Events are queued while the player state is locked and delivered in
// order once it is released, so a listener may call back into the player.
type Event interface {
	playerEvent()
}

// EndReason tells why a track stopped being the active track.
type EndReason int

const (
	// EndFinished: the track played to its end, or failed after producing
	// audio.
	EndFinished EndReason = iota
	// EndLoadFailed: the track failed before producing any audio.
	EndLoadFailed
	// EndStopped: StopTrack or Destroy was called.
	EndStopped
	// EndReplaced: another track was started in its place.
	EndReplaced
	// EndCleanup: the player was idle for too long.
	EndCleanup
)

// String returns the reason name.
func (r EndReason) String() string {
	switch r {
	case EndFinished:
		return "FINISHED"
	case EndLoadFailed:
		return "LOAD_FAILED"
	case EndStopped:
		return "STOPPED"
	case EndReplaced:
		return "REPLACED"
	case EndCleanup:
		return "CLEANUP"
	default:
		return "UNKNOWN"
	}
}

// MayStartNext reports whether an application queue should advance to
// the next track. Replaced, stopped and cleaned up tracks were ended on
// purpose.
func (r EndReason) MayStartNext() bool {
	return r == EndFinished || r == EndLoadFailed
}

// TrackStart is emitted when a track becomes the active track.
type TrackStart struct {
	Track *track.Executor
}

// TrackEnd is emitted exactly once for every track that was made active.
type TrackEnd struct {
	Track  *track.Executor
	Reason EndReason
}

// TrackException is emitted when the decode loop of a track failed.
type TrackException struct {
	Track *track.Executor
	Err   *track.Exception
}

// TrackStuck is emitted once per episode when no audio was produced for
// Threshold while the consumer kept asking for it.
type TrackStuck struct {
	Track     *track.Executor
	Threshold time.Duration
}

// PlayerPause is emitted when the player gets paused.
type PlayerPause struct{}

// PlayerResume is emitted when the player gets resumed.
type PlayerResume struct{}

func (TrackStart) playerEvent()     {}
func (TrackEnd) playerEvent()       {}
func (TrackException) playerEvent() {}
func (TrackStuck) playerEvent()     {}
func (PlayerPause) playerEvent()    {}
func (PlayerResume) playerEvent()   {}
