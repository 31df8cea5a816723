package playback

import "time"

// eventBufferSize is how many events of one kind a slow subscriber may
// lag behind before newer ones are dropped.
const eventBufferSize = 16

// Subscription delivers the service's events to one consumer.
//
// Each event kind has its own buffered channel. Sends never block the
// service: when a channel is full the event is dropped, so a subscriber
// that falls behind sees gaps, not stale backlogs. QueueEnded holds at
// most one pending signal. Done is closed when the service closes; the
// event channels themselves are never closed.
type Subscription struct {
	StateChanged    <-chan StateChange    // player went playing, paused or stopped
	TrackChanged    <-chan TrackChange    // a queue entry started
	PositionChanged <-chan PositionChange // after SeekTo
	QueueChanged    <-chan QueueChange
	ModeChanged     <-chan ModeChange
	Error           <-chan ErrorEvent // start, seek and mid-track failures
	QueueEnded      <-chan struct{}   // nothing left to play
	Done            <-chan struct{}

	stateCh    chan StateChange
	trackCh    chan TrackChange
	positionCh chan PositionChange
	queueCh    chan QueueChange
	modeCh     chan ModeChange
	errorCh    chan ErrorEvent
	endCh      chan struct{}
	doneCh     chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:    make(chan StateChange, eventBufferSize),
		trackCh:    make(chan TrackChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		queueCh:    make(chan QueueChange, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		endCh:      make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.PositionChanged = s.positionCh
	s.QueueChanged = s.queueCh
	s.ModeChanged = s.modeCh
	s.Error = s.errorCh
	s.QueueEnded = s.endCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() {
	close(s.doneCh)
}

// offer sends v unless ch is full.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func (s *Subscription) sendState(e StateChange) { offer(s.stateCh, e) }
func (s *Subscription) sendTrack(e TrackChange) { offer(s.trackCh, e) }
func (s *Subscription) sendQueue(e QueueChange) { offer(s.queueCh, e) }
func (s *Subscription) sendMode(e ModeChange)   { offer(s.modeCh, e) }
func (s *Subscription) sendError(e ErrorEvent)  { offer(s.errorCh, e) }
func (s *Subscription) sendQueueEnded()         { offer(s.endCh, struct{}{}) }

func (s *Subscription) sendPosition(pos time.Duration) {
	offer(s.positionCh, PositionChange{Position: pos})
}
