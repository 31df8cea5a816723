// Package playback plays a queue of identifiers through a player, moving
// to the next entry when a track finishes.
package playback

import (
	"errors"
	"time"

	"github.com/llehouerou/wavefeed/internal/player"
)

var (
	// ErrClosed is returned by controls after Close.
	ErrClosed = errors.New("playback: service closed")
	// ErrEmptyQueue is returned by Play when there is nothing to play.
	ErrEmptyQueue = errors.New("playback: queue is empty")
	// ErrInvalidIndex is returned by JumpTo for an index outside the queue.
	ErrInvalidIndex = errors.New("playback: invalid queue index")
)

// Service defines the playback service contract.
type Service interface {
	// Playback control
	Play() error
	Pause() error
	Stop() error
	Toggle() error
	Next() error
	Previous() error
	SeekTo(position time.Duration) error

	// Queue navigation (starts playback)
	JumpTo(index int) error

	// Queue manipulation
	AddTracks(tracks ...Track)
	ReplaceTracks(tracks ...Track) *Track // Returns track at index 0 or nil
	ClearQueue()

	// State queries
	State() State
	IsPlaying() bool
	IsStopped() bool
	IsPaused() bool
	Position() time.Duration
	CurrentTrack() *Track
	Player() player.Interface

	// Queue queries
	QueueTracks() []Track
	QueueCurrentIndex() int
	QueueLen() int

	// Mode control
	RepeatMode() RepeatMode
	SetRepeatMode(mode RepeatMode)
	CycleRepeatMode() RepeatMode

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}
