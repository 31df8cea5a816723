package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/wavefeed/internal/errmsg"
	"github.com/llehouerou/wavefeed/internal/player"
	"github.com/llehouerou/wavefeed/internal/track"
)

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

// serviceImpl never calls the player while holding mu: player events are
// delivered synchronously to onPlayerEvent, which takes mu.
type serviceImpl struct {
	mu sync.Mutex

	player   player.Interface
	listener player.ListenerID
	queue    *Queue
	repeat   RepeatMode
	gen      uint64 // start counter, carried as request user data
	state    State  // last state reported to subscribers

	subs   []*Subscription
	subsMu sync.RWMutex

	done   chan struct{}
	closed bool
}

// New creates a playback service driving p. The service listens to p until
// Close.
func New(p player.Interface) Service {
	s := &serviceImpl{
		player: p,
		queue:  NewQueue(),
		done:   make(chan struct{}),
	}
	s.listener = p.AddListener(s.onPlayerEvent)
	return s
}

// Play starts the current queue entry, or resumes a paused track.
func (s *serviceImpl) Play() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.queue.IsEmpty() {
		s.mu.Unlock()
		return ErrEmptyQueue
	}
	s.mu.Unlock()

	if s.player.State() == player.Paused {
		s.player.Resume()
		return nil
	}

	s.mu.Lock()
	t := s.queue.Current()
	if t == nil {
		t = s.queue.JumpTo(0)
	}
	idx := s.queue.CurrentIndex()
	s.mu.Unlock()

	return s.playFrom(t, idx)
}

func (s *serviceImpl) Pause() error {
	if s.isClosed() {
		return ErrClosed
	}
	s.player.Pause()
	return nil
}

func (s *serviceImpl) Stop() error {
	if s.isClosed() {
		return ErrClosed
	}
	s.player.StopTrack()
	return nil
}

// Toggle starts playback when stopped, otherwise flips pause.
func (s *serviceImpl) Toggle() error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.player.State() == player.Stopped {
		return s.Play()
	}
	s.player.Toggle()
	return nil
}

// Next plays the following entry, wrapping around with RepeatAll. At the
// end of the queue it does nothing.
func (s *serviceImpl) Next() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	var t *Track
	if s.repeat == RepeatAll && !s.queue.HasNext() {
		t = s.queue.JumpTo(0)
	} else {
		t = s.queue.Next()
	}
	idx := s.queue.CurrentIndex()
	s.mu.Unlock()

	if t == nil {
		return nil
	}
	return s.playFrom(t, idx)
}

// Previous plays the preceding entry, or restarts the first one.
func (s *serviceImpl) Previous() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	t := s.queue.JumpTo(max(s.queue.CurrentIndex()-1, 0))
	idx := s.queue.CurrentIndex()
	s.mu.Unlock()

	if t == nil {
		return nil
	}
	return s.playFrom(t, idx)
}

func (s *serviceImpl) SeekTo(position time.Duration) error {
	if s.isClosed() {
		return ErrClosed
	}
	position = max(position, 0)
	if err := s.player.SetPosition(position.Milliseconds()); err != nil {
		s.emitError(string(errmsg.OpPlaybackSeek), "", err)
		return err
	}
	s.broadcast(func(sub *Subscription) { sub.sendPosition(position) })
	return nil
}

func (s *serviceImpl) JumpTo(index int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	t := s.queue.JumpTo(index)
	s.mu.Unlock()

	if t == nil {
		return ErrInvalidIndex
	}
	return s.playFrom(t, index)
}

func (s *serviceImpl) AddTracks(tracks ...Track) {
	s.mu.Lock()
	s.queue.Add(tracks...)
	change := QueueChange{Tracks: s.queue.Tracks(), Index: s.queue.CurrentIndex()}
	s.mu.Unlock()

	s.broadcast(func(sub *Subscription) { sub.sendQueue(change) })
}

// ReplaceTracks swaps the queue contents without touching playback.
func (s *serviceImpl) ReplaceTracks(tracks ...Track) *Track {
	s.mu.Lock()
	first := s.queue.Replace(tracks...)
	change := QueueChange{Tracks: s.queue.Tracks(), Index: s.queue.CurrentIndex()}
	s.mu.Unlock()

	s.broadcast(func(sub *Subscription) { sub.sendQueue(change) })
	return first
}

func (s *serviceImpl) ClearQueue() {
	s.mu.Lock()
	s.queue.Clear()
	s.mu.Unlock()

	s.broadcast(func(sub *Subscription) { sub.sendQueue(QueueChange{Index: -1}) })
}

// State returns the current playback state.
func (s *serviceImpl) State() State {
	return playerStateToState(s.player.State())
}

func playerStateToState(ps player.State) State {
	switch ps {
	case player.Playing:
		return StatePlaying
	case player.Paused:
		return StatePaused
	case player.Stopped:
		return StateStopped
	default:
		return StateStopped
	}
}

func (s *serviceImpl) IsPlaying() bool { return s.State() == StatePlaying }
func (s *serviceImpl) IsStopped() bool { return s.State() == StateStopped }
func (s *serviceImpl) IsPaused() bool  { return s.State() == StatePaused }

// Position returns the playback position of the current track.
func (s *serviceImpl) Position() time.Duration {
	return time.Duration(s.player.Position()) * time.Millisecond
}

// CurrentTrack returns the current track, or nil if none.
func (s *serviceImpl) CurrentTrack() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Current()
}

func (s *serviceImpl) Player() player.Interface { return s.player }

func (s *serviceImpl) QueueTracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Tracks()
}

func (s *serviceImpl) QueueCurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.CurrentIndex()
}

func (s *serviceImpl) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// RepeatMode returns the current repeat mode.
func (s *serviceImpl) RepeatMode() RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeat
}

func (s *serviceImpl) SetRepeatMode(mode RepeatMode) {
	s.mu.Lock()
	s.repeat = mode
	s.mu.Unlock()

	s.broadcast(func(sub *Subscription) { sub.sendMode(ModeChange{RepeatMode: mode}) })
}

func (s *serviceImpl) CycleRepeatMode() RepeatMode {
	mode := s.RepeatMode().Next()
	s.SetRepeatMode(mode)
	return mode
}

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	if s.isClosed() {
		sub.close()
		return sub
	}
	s.subs = append(s.subs, sub)
	return sub
}

// Close detaches the service from the player. The current track keeps
// playing but nothing follows it.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.player.RemoveListener(s.listener)

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return nil
}

func (s *serviceImpl) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// playFrom starts t, moving on through the queue while tracks fail to
// start. It returns the last start error when nothing could be started.
func (s *serviceImpl) playFrom(t *Track, idx int) error {
	var lastErr error
	for t != nil {
		err := s.start(t, idx)
		if err == nil {
			return nil
		}
		lastErr = err
		slog.Warn("playback: track failed to start",
			"identifier", t.Identifier,
			"error", err,
		)
		s.emitError(string(errmsg.OpPlaybackStart), t.Identifier, err)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		t = s.queue.Next()
		idx = s.queue.CurrentIndex()
		s.mu.Unlock()
	}
	s.broadcast(func(sub *Subscription) { sub.sendQueueEnded() })
	return lastErr
}

func (s *serviceImpl) start(t *Track, idx int) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	_, err := s.player.PlayTrack(track.Request{
		Identifier:      t.Identifier,
		Position:        t.Start.Milliseconds(),
		ReplaceExisting: true,
		UserData:        gen,
	})
	if err != nil {
		return err
	}
	s.broadcast(func(sub *Subscription) { sub.sendTrack(TrackChange{Current: t, Index: idx}) })
	return nil
}

func (s *serviceImpl) onPlayerEvent(ev player.Event) {
	switch e := ev.(type) {
	case player.TrackEnd:
		s.emitStateChange()
		if e.Reason.MayStartNext() && s.isCurrent(e.Track) {
			s.advance()
		}
	case player.TrackException:
		identifier := ""
		if e.Track != nil {
			identifier = e.Track.Info().Identifier
		}
		s.emitError(string(errmsg.OpTrackRead), identifier, e.Err)
	case player.TrackStart, player.PlayerPause, player.PlayerResume:
		s.emitStateChange()
	}
}

// isCurrent reports whether exec was started by the latest start call.
// Executors not started by the service (or absent) count as current.
func (s *serviceImpl) isCurrent(exec *track.Executor) bool {
	if exec == nil {
		return true
	}
	gen, ok := exec.Descriptor().UserData.(uint64)
	if !ok {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *serviceImpl) advance() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	t := s.queue.Advance(s.repeat)
	idx := s.queue.CurrentIndex()
	s.mu.Unlock()

	if t == nil {
		slog.Debug("playback: queue ended")
		s.broadcast(func(sub *Subscription) { sub.sendQueueEnded() })
		return
	}
	_ = s.playFrom(t, idx)
}

func (s *serviceImpl) emitStateChange() {
	current := s.State()

	s.mu.Lock()
	previous := s.state
	s.state = current
	s.mu.Unlock()

	if previous != current {
		s.broadcast(func(sub *Subscription) {
			sub.sendState(StateChange{Previous: previous, Current: current})
		})
	}
}

func (s *serviceImpl) emitError(op, identifier string, err error) {
	s.broadcast(func(sub *Subscription) {
		sub.sendError(ErrorEvent{Operation: op, Identifier: identifier, Err: err})
	})
}

func (s *serviceImpl) broadcast(send func(*Subscription)) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		send(sub)
	}
}
