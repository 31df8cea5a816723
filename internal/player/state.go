package player

// State is the session state of a player, derived from its active track
// and pause flag.
//
//	┌──────────┐    PlayTrack    ┌──────────┐
//	│  Stopped │ ───────────────▶│  Playing │
//	└──────────┘                 └──────────┘
//	     ▲                            │ │
//	     │ track end            pause │ │ StopTrack, track end,
//	     │ StopTrack, cleanup         ▼ │ cleanup
//	     │                       ┌──────────┐
//	     └───────────────────────│  Paused  │
//	                             └──────────┘
//
// The pause flag is independent of the active track: pausing a stopped
// player is remembered and applies to the next track, but State reports
// Stopped until a track is active.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a track is active (Playing or Paused).
func (s State) IsActive() bool {
	return s == Playing || s == Paused
}
