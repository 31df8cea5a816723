package player

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
//
// Sends never block the player: events are dropped when a channel buffer
// is full. Use AddListener for events that must not be lost.
type Subscription struct {
	TrackStarted <-chan TrackStart
	TrackEnded   <-chan TrackEnd
	Exceptions   <-chan TrackException
	Stuck        <-chan TrackStuck
	Paused       <-chan bool
	Done         <-chan struct{}

	// Internal write channels
	startCh chan TrackStart
	endCh   chan TrackEnd
	excCh   chan TrackException
	stuckCh chan TrackStuck
	pauseCh chan bool
	doneCh  chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		startCh: make(chan TrackStart, eventBufferSize),
		endCh:   make(chan TrackEnd, eventBufferSize),
		excCh:   make(chan TrackException, eventBufferSize),
		stuckCh: make(chan TrackStuck, eventBufferSize),
		pauseCh: make(chan bool, eventBufferSize),
		doneCh:  make(chan struct{}),
	}
	s.TrackStarted = s.startCh
	s.TrackEnded = s.endCh
	s.Exceptions = s.excCh
	s.Stuck = s.stuckCh
	s.Paused = s.pauseCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// send routes ev to its channel (non-blocking).
func (s *Subscription) send(ev Event) {
	switch e := ev.(type) {
	case TrackStart:
		trySend(s.startCh, e)
	case TrackEnd:
		trySend(s.endCh, e)
	case TrackException:
		trySend(s.excCh, e)
	case TrackStuck:
		trySend(s.stuckCh, e)
	case PlayerPause:
		trySend(s.pauseCh, true)
	case PlayerResume:
		trySend(s.pauseCh, false)
	}
}

func trySend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		// Drop if buffer full
	}
}
