package track

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/wavefeed/internal/errmsg"
	"github.com/llehouerou/wavefeed/internal/frame"
	"github.com/llehouerou/wavefeed/internal/marker"
)

const noSeek int64 = -1

// Executor runs the decode loop of one track on its own goroutine and
// serves the decoded frames to a consumer.
//
// Goroutine topology:
//   - 1 decode goroutine (spawned by Execute, exits at Finished)
//   - 1 consumer calling Provide* (not managed by the executor)
//   - any goroutine calling Stop, SetPosition, SetMarker
//
// Cancellation: every blocking section of the decode loop (decoder read,
// seek, drain wait) runs under its own context. Stop and SetPosition record
// their request under mu and cancel that context; a request arriving
// outside a section is picked up when the next section begins. At most one
// cancellation is in flight per section.
type Executor struct {
	id      string
	desc    Descriptor
	opts    Options
	buffer  *frame.Buffer
	markers marker.Tracker
	pc      *ProcessingContext

	mu            sync.Mutex
	state         State
	started       bool
	queuedSeek    int64
	queuedStop    bool
	interruptible bool
	cancel        context.CancelFunc
	cancelPending bool
	exc           *Exception
	listener      Listener

	position atomic.Int64
	ended    atomic.Bool
	done     chan struct{}
}

// NewExecutor creates an executor for desc. It does nothing until Execute.
func NewExecutor(desc Descriptor, opts Options) *Executor {
	if opts.Format.SampleRate == 0 {
		opts.Format = frame.DefaultFormat
	}
	e := &Executor{
		id:         uuid.NewString(),
		desc:       desc,
		opts:       opts,
		buffer:     frame.NewBuffer(opts.BufferDuration),
		state:      Inactive,
		queuedSeek: noSeek,
		done:       make(chan struct{}),
	}
	e.pc = &ProcessingContext{exec: e}
	if desc.InitialPosition > 0 {
		e.queuedSeek = desc.InitialPosition
	}
	return e
}

// ID returns a unique identifier for logs.
func (e *Executor) ID() string { return e.id }

// Descriptor returns the descriptor the executor was built from.
func (e *Executor) Descriptor() Descriptor { return e.desc }

// Info is a shortcut for Descriptor().Info.
func (e *Executor) Info() Info { return e.desc.Info }

// State returns the current execution state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Done is closed when the executor reaches Finished.
func (e *Executor) Done() <-chan struct{} { return e.done }

// Err returns the exception that ended the track, if any.
func (e *Executor) Err() *Exception {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exc
}

// FailedBeforeLoad reports whether the track failed before producing any
// frame.
func (e *Executor) FailedBeforeLoad() bool {
	e.mu.Lock()
	failed := e.exc != nil
	e.mu.Unlock()
	return failed && !e.buffer.HasReceivedFrames()
}

// Buffer exposes the frame buffer for inspection.
func (e *Executor) Buffer() *frame.Buffer { return e.buffer }

// Execute starts the decode loop. An executor runs once; a second call
// is rejected with ErrAlreadyStarted.
func (e *Executor) Execute(listener Listener) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		slog.Warn("track: executor already started, ignoring", "track", e.id)
		return ErrAlreadyStarted
	}
	e.started = true
	e.state = Loading
	e.listener = listener
	e.mu.Unlock()

	if m := e.desc.InitialMarker; m != nil {
		e.markers.Set(m, e.Position())
	}

	slog.Debug("track: executing",
		"track", e.id,
		"identifier", e.desc.Info.Identifier,
	)
	go e.run()
	return nil
}

// Stop requests the decode loop to stop. Safe to call at any time and
// more than once; calls after Finished are no-ops.
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Finished || e.queuedStop {
		return
	}
	e.queuedStop = true
	e.interruptLocked()
}

// SetPosition queues a seek to position (ms). With seek ghosting the
// already buffered audio keeps playing until the first frame after the
// seek arrives; without it the buffer is cleared right away.
func (e *Executor) SetPosition(position int64) error {
	if !e.desc.CanSeek() {
		return ErrNotSeekable
	}
	position = max(position, 0)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Finished {
		return nil
	}
	e.queuedSeek = position
	e.interruptLocked()

	e.buffer.DisarmTermination()
	if e.opts.SeekGhosting {
		e.buffer.SetClearOnInsert()
	} else {
		e.buffer.Clear()
	}
	return nil
}

// Position returns the playback position in ms: the pending seek target
// if any, otherwise the timecode of the last frame handed out.
func (e *Executor) Position() int64 {
	e.mu.Lock()
	seek := e.queuedSeek
	e.mu.Unlock()
	if seek != noSeek {
		return seek
	}
	return e.position.Load()
}

// SetMarker installs a marker; see marker.Tracker.Set.
func (e *Executor) SetMarker(m *marker.Marker) {
	e.markers.Set(m, e.Position())
}

// Marker returns the installed marker, or nil.
func (e *Executor) Marker() *marker.Marker {
	return e.markers.Get()
}

// Provide returns the next frame without blocking. After end of track it
// returns frame.Terminator on every call.
func (e *Executor) Provide() (frame.Frame, bool) {
	f, ok := e.buffer.Provide()
	return e.provided(f, ok)
}

// ProvideTimeout returns the next frame, waiting up to timeout.
func (e *Executor) ProvideTimeout(timeout time.Duration) (frame.Frame, bool, error) {
	f, ok, err := e.buffer.ProvideTimeout(timeout)
	if err != nil {
		return frame.Frame{}, false, err
	}
	f, ok = e.provided(f, ok)
	return f, ok, nil
}

// ProvideInto stores the next frame into m without blocking.
func (e *Executor) ProvideInto(m *frame.Mutable) bool {
	f, ok := e.Provide()
	if ok {
		m.Store(f)
	}
	return ok
}

// ProvideIntoTimeout stores the next frame into m, waiting up to timeout.
func (e *Executor) ProvideIntoTimeout(m *frame.Mutable, timeout time.Duration) (bool, error) {
	f, ok, err := e.ProvideTimeout(timeout)
	if err != nil || !ok {
		return false, err
	}
	m.Store(f)
	return true, nil
}

func (e *Executor) provided(f frame.Frame, ok bool) (frame.Frame, bool) {
	if !ok {
		return f, false
	}
	if f.IsTerminator() {
		if e.ended.CompareAndSwap(false, true) {
			e.markers.Trigger(marker.Ended)
		}
		return f, true
	}
	// Ghosted pre-seek audio belongs to the old timeline.
	if e.seekPending() {
		return f, true
	}
	e.position.Store(f.Timecode)
	e.markers.CheckPlaybackTimecode(f.Timecode)
	return f, true
}

// seekPending reports whether a seek was requested and its first frame has
// not reached the buffer yet.
func (e *Executor) seekPending() bool {
	e.mu.Lock()
	pending := e.queuedSeek != noSeek || e.state == Seeking
	e.mu.Unlock()
	return pending || e.buffer.HasClearOnInsert()
}

// interruptLocked cancels the running section, unless it is not
// interruptible right now or a cancellation is already pending.
func (e *Executor) interruptLocked() {
	if !e.interruptible || e.cancelPending || e.cancel == nil {
		return
	}
	e.cancelPending = true
	e.cancel()
}

// beginSection enters an interruptible section. A stop or seek recorded
// while no section was running cancels the new section immediately.
func (e *Executor) beginSection() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.cancel = cancel
	e.interruptible = true
	e.cancelPending = false
	if e.queuedStop || e.queuedSeek != noSeek {
		e.interruptLocked()
	}
	e.mu.Unlock()

	return ctx
}

func (e *Executor) endSection() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = nil
	e.interruptible = false
	e.cancelPending = false
	e.mu.Unlock()
}

func (e *Executor) markLoaded() {
	e.mu.Lock()
	if e.state == Loading {
		e.state = Playing
	}
	e.mu.Unlock()
}

func (e *Executor) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Executor) hasQueued() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queuedStop || e.queuedSeek != noSeek
}

// takeQueued consumes the pending request. Stop wins over seek.
func (e *Executor) takeQueued() (stop bool, seek int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queuedStop {
		e.state = Stopping
		return true, noSeek
	}
	if e.queuedSeek != noSeek {
		seek = e.queuedSeek
		e.queuedSeek = noSeek
		e.state = Seeking
		e.position.Store(seek)
		return false, seek
	}
	return false, noSeek
}

func (e *Executor) run() {
	defer e.finish()

	for {
		stop, seek := e.takeQueued()
		if stop {
			e.markers.Trigger(marker.Stopped)
			return
		}
		if seek != noSeek {
			if !e.seek(seek) {
				return
			}
			continue
		}

		err := e.read()
		switch {
		case err == nil:
			if !e.endOfStream() {
				return
			}
		case IsInterrupted(err):
			if !e.hasQueued() {
				slog.Debug("track: interrupted without request, stopping", "track", e.id)
				e.setState(Stopping)
				e.markers.Trigger(marker.Stopped)
				return
			}
		default:
			e.fail(errmsg.OpTrackRead, err)
			return
		}
	}
}

func (e *Executor) read() (err error) {
	ctx := e.beginSection()
	defer e.endSection()
	defer func() {
		if r := recover(); r != nil {
			err = NewException(fmt.Sprintf("decoder panic: %v", r), SeverityFault, nil)
		}
	}()
	return e.desc.Decoder.Read(ctx, e.pc)
}

// seek performs a queued seek. It returns false when the loop must exit.
func (e *Executor) seek(position int64) bool {
	seeker, ok := e.desc.Decoder.(Seeker)
	if !ok {
		e.fail(errmsg.OpTrackSeek, ErrExternalSeekRequired)
		return false
	}

	ctx := e.beginSection()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = NewException(fmt.Sprintf("seeker panic: %v", r), SeverityFault, nil)
			}
		}()
		return seeker.Seek(ctx, e.pc, position)
	}()
	e.endSection()

	switch {
	case err == nil:
		e.setState(Playing)
		return true
	case IsInterrupted(err):
		// A newer stop or seek is queued; the loop handles it.
		return true
	default:
		e.fail(errmsg.OpTrackSeek, err)
		return false
	}
}

// endOfStream handles decoder EOF. It returns true when the loop must go
// on because a seek or stop arrived.
func (e *Executor) endOfStream() bool {
	e.mu.Lock()
	if e.queuedStop || e.queuedSeek != noSeek {
		e.mu.Unlock()
		return true
	}
	// Armed under mu so a concurrent SetPosition either sees it and
	// disarms it, or is seen by the check above.
	e.buffer.SetTerminateOnEmpty()
	e.mu.Unlock()

	if !e.opts.WaitForDrain {
		return false
	}

	ctx := e.beginSection()
	err := e.buffer.WaitForTermination(ctx)
	e.endSection()
	if err != nil {
		return e.hasQueued()
	}
	return false
}

func (e *Executor) fail(op errmsg.Op, err error) {
	exc := toException(op, err)

	e.mu.Lock()
	e.exc = exc
	listener := e.listener
	e.mu.Unlock()

	slog.Error("track: playback failed",
		"track", e.id,
		"identifier", e.desc.Info.Identifier,
		"severity", exc.Severity.String(),
		"error", exc,
	)
	if listener != nil {
		listener.OnTrackException(e, exc)
	}
}

func (e *Executor) finish() {
	e.buffer.SetTerminateOnEmpty()

	e.mu.Lock()
	e.state = Finished
	e.mu.Unlock()

	if c, ok := e.desc.Decoder.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Debug("track: closing decoder", "track", e.id, "error", err)
		}
	}

	slog.Debug("track: finished", "track", e.id)
	close(e.done)
}
