package track

import (
	"context"
	"log/slog"

	"github.com/llehouerou/wavefeed/internal/frame"
)

// ProcessingContext is what a decoder sees of its executor.
type ProcessingContext struct {
	exec *Executor
}

// Format returns the frame format the decoder must produce.
func (pc *ProcessingContext) Format() frame.Format { return pc.exec.opts.Format }

// Volume returns the volume frames should be tagged with.
func (pc *ProcessingContext) Volume() int { return pc.exec.opts.Volume }

// Info returns the track info.
func (pc *ProcessingContext) Info() Info { return pc.exec.desc.Info }

// Push hands a frame to the consumer side, blocking while the buffer is
// full. The returned error is the cancellation of ctx; decoders must return
// it unchanged.
func (pc *ProcessingContext) Push(ctx context.Context, f frame.Frame) error {
	if !f.IsTerminator() && f.Format.ChunkDuration() == 0 {
		f.Format = pc.Format()
	}
	if err := pc.exec.buffer.Put(ctx, f); err != nil {
		return err
	}
	pc.exec.markLoaded()
	return nil
}

// SeekPerformed is called by seekers once the stream was repositioned.
// actual is where the decoder really landed, which may differ from
// requested when the format cannot seek exactly.
func (pc *ProcessingContext) SeekPerformed(requested, actual int64) {
	e := pc.exec
	e.position.Store(actual)
	e.markers.CheckSeekTimecode(actual)
	slog.Debug("track: seek performed",
		"track", e.id,
		"requested", requested,
		"actual", actual,
	)
}
