package frame

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultBufferDuration is the default amount of audio a Buffer holds.
const DefaultBufferDuration = 5 * time.Second

// ErrInvalidTimeout is returned for negative provide timeouts.
var ErrInvalidTimeout = errors.New("frame: invalid timeout")

// Buffer is a bounded single-producer single-consumer frame queue.
//
// Capacity is measured in buffered audio duration rather than frame count,
// so the producer is backpressured after the same amount of audio whatever
// the chunk size. Once terminate-on-empty is armed, a consumer reading the
// empty buffer gets Terminator.
//
// Thread-safety:
//   - All fields protected by mu
//   - Put: called by the decode goroutine only
//   - Provide*: called by one consumer at a time
type Buffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	frames   []Frame
	buffered time.Duration
	capacity time.Duration

	// epoch changes on every clear so a producer blocked in Put can tell
	// that the frame it holds belongs to audio that was thrown away.
	epoch uint64

	clearOnInsert    bool
	terminateOnEmpty bool
	terminated       bool
	receivedFrames   bool
}

// NewBuffer creates a buffer holding up to d of audio.
func NewBuffer(d time.Duration) *Buffer {
	if d <= 0 {
		d = DefaultBufferDuration
	}
	b := &Buffer{capacity: d}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Put appends f, blocking while the buffer is full.
//
// Returns the context error if ctx is cancelled before the frame could be
// queued. A frame is dropped without error when the buffer was cleared while
// Put was waiting or the buffer already terminated; such a frame is stale.
func (b *Buffer) Put(ctx context.Context, f Frame) error {
	if f.IsTerminator() {
		b.SetTerminateOnEmpty()
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if b.clearOnInsert {
		b.clearLocked()
	}

	epoch := b.epoch
	if b.full() {
		stop := context.AfterFunc(ctx, b.wake)
		defer stop()

		for b.full() && b.epoch == epoch && !b.terminated && ctx.Err() == nil {
			b.cond.Wait()
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if b.epoch != epoch || b.terminated {
		return nil
	}

	b.frames = append(b.frames, f)
	b.buffered += f.Duration()
	b.receivedFrames = true
	b.cond.Broadcast()
	return nil
}

func (b *Buffer) full() bool {
	return len(b.frames) > 0 && b.buffered >= b.capacity
}

func (b *Buffer) wake() {
	b.mu.Lock()
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Provide pops the next frame without blocking.
func (b *Buffer) Provide() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.popLocked()
}

// ProvideTimeout pops the next frame, waiting up to timeout for one.
// An expired timeout returns ok=false; it never means end of track.
func (b *Buffer) ProvideTimeout(timeout time.Duration) (Frame, bool, error) {
	if timeout < 0 {
		return Frame{}, false, ErrInvalidTimeout
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if f, ok := b.popLocked(); ok || timeout == 0 {
		return f, ok, nil
	}

	expired := false
	t := time.AfterFunc(timeout, func() {
		b.mu.Lock()
		expired = true
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer t.Stop()

	for {
		if f, ok := b.popLocked(); ok {
			return f, true, nil
		}
		if expired {
			return Frame{}, false, nil
		}
		b.cond.Wait()
	}
}

func (b *Buffer) popLocked() (Frame, bool) {
	if len(b.frames) > 0 {
		f := b.frames[0]
		b.frames[0] = Frame{}
		b.frames = b.frames[1:]
		b.buffered -= f.Duration()
		if len(b.frames) == 0 {
			b.frames = nil
			b.buffered = 0
			if b.terminateOnEmpty {
				b.terminated = true
			}
		}
		b.cond.Broadcast()
		return f, true
	}

	if b.terminateOnEmpty && !b.terminated {
		b.terminated = true
		b.cond.Broadcast()
	}
	if b.terminated {
		return Terminator, true
	}
	return Frame{}, false
}

// SetClearOnInsert makes the next Put drop all queued frames before
// inserting. Until then the queued frames stay available to the consumer.
func (b *Buffer) SetClearOnInsert() {
	b.mu.Lock()
	b.clearOnInsert = true
	b.mu.Unlock()
}

// HasClearOnInsert reports whether a clear is pending for the next Put.
func (b *Buffer) HasClearOnInsert() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clearOnInsert
}

// Clear drops all queued frames.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.clearLocked()
	if b.terminateOnEmpty {
		b.terminated = true
	}
	b.cond.Broadcast()
	b.mu.Unlock()
}

func (b *Buffer) clearLocked() {
	for i := range b.frames {
		b.frames[i] = Frame{}
	}
	b.frames = nil
	b.buffered = 0
	b.clearOnInsert = false
	b.epoch++
}

// SetTerminateOnEmpty arms termination: as soon as the buffer is empty the
// consumer receives Terminator and WaitForTermination returns.
func (b *Buffer) SetTerminateOnEmpty() {
	b.mu.Lock()
	b.terminateOnEmpty = true
	if len(b.frames) == 0 {
		b.terminated = true
	}
	b.cond.Broadcast()
	b.mu.Unlock()
}

// DisarmTermination cancels a pending terminate-on-empty. It returns false
// when the buffer already terminated.
func (b *Buffer) DisarmTermination() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.terminated {
		return false
	}
	b.terminateOnEmpty = false
	return true
}

// WaitForTermination blocks until the buffer terminated or ctx is done.
func (b *Buffer) WaitForTermination(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.terminated {
		return nil
	}

	stop := context.AfterFunc(ctx, b.wake)
	defer stop()

	for !b.terminated {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.cond.Wait()
	}
	return nil
}

// IsTerminated reports whether the terminator has been released.
func (b *Buffer) IsTerminated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.terminated
}

// HasReceivedFrames reports whether any data frame was ever queued.
func (b *Buffer) HasReceivedFrames() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.receivedFrames
}

// Len returns the number of queued frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// BufferedDuration returns the amount of queued audio.
func (b *Buffer) BufferedDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffered
}

// Capacity returns the configured target duration.
func (b *Buffer) Capacity() time.Duration {
	return b.capacity
}
