// Package frame defines decoded audio frames and the bounded buffer that
// hands them from a decode goroutine to a consumer.
package frame

import (
	"fmt"
	"time"
)

// Codec identifies how the sample data of a frame is encoded.
type Codec string

// CodecPCMS16LE is signed 16-bit little endian interleaved PCM.
const CodecPCMS16LE Codec = "pcm_s16le"

// Format describes the audio carried by a frame.
type Format struct {
	Codec        Codec
	Channels     int
	SampleRate   int
	ChunkSamples int // samples per channel in one frame
}

// DefaultFormat is 20ms chunks of 48kHz stereo 16-bit PCM.
var DefaultFormat = Format{
	Codec:        CodecPCMS16LE,
	Channels:     2,
	SampleRate:   48000,
	ChunkSamples: 960,
}

// MinFrameDuration is what a data frame counts for when its format does
// not give it a length.
const MinFrameDuration = time.Millisecond

// ChunkDuration returns the exact duration of one frame, or 0 when the
// format has no sample rate or chunk size.
func (f Format) ChunkDuration() time.Duration {
	if f.SampleRate <= 0 || f.ChunkSamples <= 0 {
		return 0
	}
	return time.Duration(f.ChunkSamples) * time.Second / time.Duration(f.SampleRate)
}

// FrameDuration returns the duration of one frame in whole milliseconds.
func (f Format) FrameDuration() int64 {
	return f.ChunkDuration().Milliseconds()
}

// ChunkBytes returns the size of one full PCM frame in bytes.
func (f Format) ChunkBytes() int {
	return f.ChunkSamples * f.Channels * 2
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dch %dHz/%d", f.Codec, f.Channels, f.SampleRate, f.ChunkSamples)
}

// Kind tags a frame as carrying data or marking the end of the track.
type Kind int

const (
	KindData Kind = iota
	KindTerminator
)

// String returns the kind name for debugging.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "Data"
	case KindTerminator:
		return "Terminator"
	default:
		return "Unknown"
	}
}

// Frame is one immutable chunk of decoded audio.
type Frame struct {
	Kind     Kind
	Timecode int64 // ms
	Data     []byte
	Volume   int // 0-100
	Format   Format
}

// Terminator means no more frames will ever be produced.
var Terminator = Frame{Kind: KindTerminator}

// New creates a data frame.
func New(timecode int64, data []byte, volume int, format Format) Frame {
	return Frame{
		Kind:     KindData,
		Timecode: timecode,
		Data:     data,
		Volume:   volume,
		Format:   format,
	}
}

// IsTerminator reports whether f marks the end of the track.
func (f Frame) IsTerminator() bool { return f.Kind == KindTerminator }

// Duration returns how much audio the frame holds. Data frames count for
// at least MinFrameDuration.
func (f Frame) Duration() time.Duration {
	if f.IsTerminator() {
		return 0
	}
	return max(f.Format.ChunkDuration(), MinFrameDuration)
}

// Mutable is a caller-owned frame whose data slice is reused between calls.
type Mutable struct {
	Kind     Kind
	Timecode int64
	Data     []byte
	Volume   int
	Format   Format
}

// Store copies f into m, reusing m's data buffer when it is large enough.
func (m *Mutable) Store(f Frame) {
	m.Kind = f.Kind
	m.Timecode = f.Timecode
	m.Volume = f.Volume
	m.Format = f.Format
	m.Data = append(m.Data[:0], f.Data...)
}

// IsTerminator reports whether the last stored frame was a terminator.
func (m *Mutable) IsTerminator() bool { return m.Kind == KindTerminator }

// Frame returns an immutable copy of m.
func (m *Mutable) Frame() Frame {
	data := make([]byte, len(m.Data))
	copy(data, m.Data)
	return Frame{Kind: m.Kind, Timecode: m.Timecode, Data: data, Volume: m.Volume, Format: m.Format}
}
