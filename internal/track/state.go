package track

// State is the execution state of a track.
//
// The state machine is one-way towards Finished:
//
//	┌──────────┐  Execute  ┌─────────┐ first frame ┌─────────┐
//	│ Inactive │──────────▶│ Loading │────────────▶│ Playing │◀─┐
//	└──────────┘           └─────────┘             └─────────┘  │
//	                            │                    │     │     │ seek done
//	                            │              stop  │     │ seek│
//	                            │                    ▼     ▼     │
//	                            │            ┌──────────┐ ┌─────────┐
//	                            │            │ Stopping │ │ Seeking │
//	                            │            └──────────┘ └─────────┘
//	                            │                    │
//	                            ▼                    ▼
//	                       ┌──────────────────────────────┐
//	                       │           Finished           │
//	                       └──────────────────────────────┘
//
// Every path out of the decode loop (end of stream, failure, stop) ends in
// Finished, which is reached exactly once.
type State int

const (
	Inactive State = iota
	Loading
	Playing
	Seeking
	Stopping
	Finished
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Loading:
		return "Loading"
	case Playing:
		return "Playing"
	case Seeking:
		return "Seeking"
	case Stopping:
		return "Stopping"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// IsActive returns true while the decode loop is running.
func (s State) IsActive() bool {
	return s != Inactive && s != Finished
}
