// Package output feeds player frames to a real-time audio device.
package output

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/llehouerou/wavefeed/internal/frame"
)

// Source is the part of a player the output pulls from. It must never
// block: the audio callback cannot wait.
type Source interface {
	ProvideInto(m *frame.Mutable) bool
}

// Stats is a snapshot of the streamer counters.
type Stats struct {
	Frames    uint64 // frames pulled from the source
	Bytes     uint64 // PCM bytes pulled from the source
	Underruns uint64 // callbacks padded with silence
}

// Streamer implements beep.Streamer over a Source. It never ends: when no
// frame is ready it plays silence, so the device keeps running between
// tracks and while paused.
//
// Stream is called from the audio goroutine only; Stats may be called from
// anywhere.
type Streamer struct {
	src Source

	mf      frame.Mutable
	pending []byte // undelivered part of mf.Data

	frames    atomic.Uint64
	bytes     atomic.Uint64
	underruns atomic.Uint64
}

// NewStreamer creates a streamer pulling from src.
func NewStreamer(src Source) *Streamer {
	return &Streamer{src: src}
}

// Stream fills samples, padding with silence on underrun.
func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		if len(s.pending) == 0 && !s.next() {
			clear(samples[filled:])
			s.underruns.Add(1)
			break
		}
		filled += s.decode(samples[filled:])
	}
	return len(samples), true
}

// Err always returns nil.
func (s *Streamer) Err() error { return nil }

// Stats returns the counters.
func (s *Streamer) Stats() Stats {
	return Stats{
		Frames:    s.frames.Load(),
		Bytes:     s.bytes.Load(),
		Underruns: s.underruns.Load(),
	}
}

func (s *Streamer) next() bool {
	if !s.src.ProvideInto(&s.mf) || s.mf.IsTerminator() || len(s.mf.Data) == 0 {
		return false
	}
	s.frames.Add(1)
	s.bytes.Add(uint64(len(s.mf.Data)))
	s.pending = s.mf.Data
	return true
}

// decode converts pending S16LE data into samples and returns how many
// samples it wrote. Mono is copied to both channels.
func (s *Streamer) decode(samples [][2]float64) int {
	channels := s.mf.Format.Channels
	if channels != 1 {
		channels = 2
	}
	frameBytes := channels * 2

	n := min(len(s.pending)/frameBytes, len(samples))
	for i := range n {
		off := i * frameBytes
		l := float64(int16(binary.LittleEndian.Uint16(s.pending[off:]))) / 32768.0 //nolint:gosec // audio samples
		r := l
		if channels == 2 {
			r = float64(int16(binary.LittleEndian.Uint16(s.pending[off+2:]))) / 32768.0 //nolint:gosec // audio samples
		}
		samples[i] = [2]float64{l, r}
	}
	if n == 0 {
		// Trailing partial sample.
		s.pending = nil
		return 0
	}
	s.pending = s.pending[n*frameBytes:]
	return n
}
