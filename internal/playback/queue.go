package playback

// Queue is an ordered list of tracks with a current position. It is not
// safe for concurrent use; the service guards it.
type Queue struct {
	tracks       []Track
	currentIndex int // -1 if nothing playing
}

// NewQueue creates a new empty queue.
func NewQueue() *Queue {
	return &Queue{currentIndex: -1}
}

// Current returns the current track, or nil if none.
func (q *Queue) Current() *Track {
	if q.currentIndex < 0 || q.currentIndex >= len(q.tracks) {
		return nil
	}
	t := q.tracks[q.currentIndex]
	return &t
}

// CurrentIndex returns the index of the current track (-1 if none).
func (q *Queue) CurrentIndex() int {
	return q.currentIndex
}

// HasNext returns true if there's a track after the current one.
func (q *Queue) HasNext() bool {
	return q.currentIndex < len(q.tracks)-1
}

// Next moves to the next track and returns it, or nil at the end.
func (q *Queue) Next() *Track {
	if !q.HasNext() {
		return nil
	}
	q.currentIndex++
	return q.Current()
}

// Advance moves to the track that follows a finished one under mode.
// RepeatOne stays put, RepeatAll wraps around. Returns nil when playback
// should stop; the position is then left after the last track.
func (q *Queue) Advance(mode RepeatMode) *Track {
	if len(q.tracks) == 0 {
		return nil
	}
	switch mode {
	case RepeatOne:
		if q.Current() != nil {
			return q.Current()
		}
	case RepeatAll:
		if !q.HasNext() {
			q.currentIndex = 0
			return q.Current()
		}
	case RepeatOff:
	}
	if !q.HasNext() {
		q.currentIndex = len(q.tracks)
		return nil
	}
	return q.Next()
}

// JumpTo sets the current index. Returns the track at that position, or
// nil if invalid.
func (q *Queue) JumpTo(index int) *Track {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	q.currentIndex = index
	return q.Current()
}

// Add appends tracks without changing the current position.
func (q *Queue) Add(tracks ...Track) {
	q.tracks = append(q.tracks, tracks...)
}

// Replace clears the queue, adds tracks and moves to the first one.
// Returns the first track to play.
func (q *Queue) Replace(tracks ...Track) *Track {
	q.tracks = append([]Track(nil), tracks...)
	q.currentIndex = -1
	if len(tracks) == 0 {
		return nil
	}
	q.currentIndex = 0
	return q.Current()
}

// Clear removes all tracks and resets the position.
func (q *Queue) Clear() {
	q.tracks = nil
	q.currentIndex = -1
}

// Tracks returns a copy of all tracks.
func (q *Queue) Tracks() []Track {
	return append([]Track(nil), q.tracks...)
}

// Len returns the number of tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}
