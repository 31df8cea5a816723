// Package track runs the decode loop of a single track and exposes its
// frames to a consumer.
package track

import (
	"context"
	"time"

	"github.com/llehouerou/wavefeed/internal/frame"
	"github.com/llehouerou/wavefeed/internal/marker"
)

// Info describes a resolved track.
type Info struct {
	Identifier string
	Title      string
	Author     string
	Length     time.Duration // 0 when unknown
	IsStream   bool
	URI        string
}

// Decoder produces the frames of a track.
//
// Read pushes zero or more frames through pc and returns nil at end of
// stream. When ctx is cancelled it must return an error satisfying
// IsInterrupted (returning the error from pc.Push as is does that).
type Decoder interface {
	Read(ctx context.Context, pc *ProcessingContext) error
}

// Seeker is implemented by decoders that can reposition their stream.
// Seek must report where it actually landed through pc.SeekPerformed.
type Seeker interface {
	Seek(ctx context.Context, pc *ProcessingContext, position int64) error
}

// Descriptor is the immutable description of one play request.
type Descriptor struct {
	Info            Info
	Seekable        bool
	InitialPosition int64 // ms
	InitialMarker   *marker.Marker
	UserData        any
	Decoder         Decoder
}

// CanSeek reports whether SetPosition is supported.
func (d Descriptor) CanSeek() bool {
	if !d.Seekable {
		return false
	}
	_, ok := d.Decoder.(Seeker)
	return ok
}

// Request asks a player to play an identifier.
type Request struct {
	Identifier      string
	Position        int64 // ms
	Marker          *marker.Marker
	ReplaceExisting bool
	UserData        any
}

// Options configures executors.
type Options struct {
	BufferDuration time.Duration
	SeekGhosting   bool
	WaitForDrain   bool
	Format         frame.Format
	Volume         int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		BufferDuration: frame.DefaultBufferDuration,
		SeekGhosting:   true,
		Format:         frame.DefaultFormat,
		Volume:         100,
	}
}

// Factory builds an executor for a request. It is supplied by the source
// resolution layer.
type Factory func(req Request, opts Options) (*Executor, error)

// Listener receives failures of the decode loop.
type Listener interface {
	OnTrackException(e *Executor, exc *Exception)
}
