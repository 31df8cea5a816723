package playback

import "time"

// Track is one entry of the queue.
type Track struct {
	Identifier string
	Start      time.Duration // position to start playing from
}
