package player

import (
	"time"

	"github.com/llehouerou/wavefeed/internal/frame"
	"github.com/llehouerou/wavefeed/internal/marker"
	"github.com/llehouerou/wavefeed/internal/track"
)

// Interface defines the player contract for dependency injection and testing.
type Interface interface {
	PlayTrack(req track.Request) (*track.Executor, error)
	StopTrack()
	PlayingTrack() *track.Executor
	State() State

	Provide() (frame.Frame, bool)
	ProvideTimeout(timeout time.Duration) (frame.Frame, bool, error)
	ProvideInto(m *frame.Mutable) bool
	ProvideIntoTimeout(m *frame.Mutable, timeout time.Duration) (bool, error)

	Pause()
	Resume()
	Toggle()
	SetPaused(paused bool)
	IsPaused() bool

	Position() int64
	SetPosition(position int64) error
	SetMarker(m *marker.Marker)

	CheckCleanup()

	AddListener(fn Listener) ListenerID
	RemoveListener(id ListenerID)
	Subscribe() *Subscription
	Destroy()
}

// Verify Player implements Interface at compile time.
var _ Interface = (*Player)(nil)
