package source

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavefeed/internal/frame"
	"github.com/llehouerou/wavefeed/internal/track"
)

const testRate = 8000

// fakeStreamer produces n samples of a constant value.
type fakeStreamer struct {
	n      int
	pos    int
	value  [2]float64
	err    error
	closed bool
}

func (s *fakeStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	k := min(len(samples), s.n-s.pos)
	for i := range k {
		samples[i] = s.value
	}
	s.pos += k
	return k, true
}

func (s *fakeStreamer) Err() error    { return s.err }
func (s *fakeStreamer) Len() int      { return s.n }
func (s *fakeStreamer) Position() int { return s.pos }

func (s *fakeStreamer) Seek(p int) error {
	s.pos = p
	return nil
}

func (s *fakeStreamer) Close() error {
	s.closed = true
	return nil
}

func testFormat(channels int) frame.Format {
	return frame.Format{
		Codec:        frame.CodecPCMS16LE,
		Channels:     channels,
		SampleRate:   testRate,
		ChunkSamples: testRate / 100, // 10ms
	}
}

func testTrackOptions() track.Options {
	return track.Options{
		BufferDuration: 200 * time.Millisecond,
		SeekGhosting:   true,
		Format:         testFormat(2),
		Volume:         100,
	}
}

func runDecoder(t *testing.T, dec *PCMDecoder, opts track.Options, position int64) (*track.Executor, []frame.Frame) {
	t.Helper()
	e := track.NewExecutor(track.Descriptor{
		Info:            track.Info{Identifier: "test"},
		Seekable:        dec.Seekable(),
		InitialPosition: position,
		Decoder:         dec,
	}, opts)
	require.NoError(t, e.Execute(nil))
	frames := collect(t, e)
	<-e.Done()
	return e, frames
}

// collect provides until the terminator.
func collect(t *testing.T, e *track.Executor) []frame.Frame {
	t.Helper()
	var frames []frame.Frame
	for range 10000 {
		f, ok, err := e.ProvideTimeout(time.Second)
		require.NoError(t, err)
		require.True(t, ok, "provide timed out before terminator")
		if f.IsTerminator() {
			return frames
		}
		frames = append(frames, f)
	}
	t.Fatal("no terminator")
	return nil
}

func frameTimecodes(frames []frame.Frame) []int64 {
	tcs := make([]int64, len(frames))
	for i, f := range frames {
		tcs[i] = f.Timecode
	}
	return tcs
}

func steps(from, step int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = from + int64(i)*step
	}
	return out
}

func firstSample(data []byte) int16 {
	return int16(binary.LittleEndian.Uint16(data)) //nolint:gosec // audio samples
}

func TestPCMDecoder_Frames(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeStreamer{n: 800, value: [2]float64{0.5, -0.5}}
		dec := NewPCMDecoder(src, beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}, src)

		_, frames := runDecoder(t, dec, testTrackOptions(), 0)

		require.Len(t, frames, 10)
		assert.Equal(t, steps(0, 10, 10), frameTimecodes(frames))
		for _, f := range frames {
			assert.Len(t, f.Data, 80*2*2)
			assert.Equal(t, 100, f.Volume)
		}
		assert.Equal(t, int16(16384), firstSample(frames[0].Data))
		assert.Equal(t, int16(-16384), firstSample(frames[0].Data[2:]))
		assert.True(t, src.closed)
	})
}

func TestPCMDecoder_PartialLastFrame(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeStreamer{n: 200}
		dec := NewPCMDecoder(src, beep.Format{SampleRate: testRate}, nil)

		_, frames := runDecoder(t, dec, testTrackOptions(), 0)

		require.Len(t, frames, 3)
		assert.Len(t, frames[2].Data, 40*4)
		assert.Equal(t, int64(20), frames[2].Timecode)
	})
}

func TestPCMDecoder_MonoWithVolume(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeStreamer{n: 80, value: [2]float64{0.4, 0.2}}
		dec := NewPCMDecoder(src, beep.Format{SampleRate: testRate}, nil)
		opts := testTrackOptions()
		opts.Format = testFormat(1)
		opts.Volume = 50

		_, frames := runDecoder(t, dec, opts, 0)

		require.Len(t, frames, 1)
		assert.Len(t, frames[0].Data, 80*2)
		assert.Equal(t, 50, frames[0].Volume)
		// (0.4+0.2)/2 at half volume
		assert.Equal(t, int16(4915), firstSample(frames[0].Data))
	})
}

func TestPCMDecoder_Resamples(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeStreamer{n: 3200, value: [2]float64{0.25, 0.25}}
		dec := NewPCMDecoder(src, beep.Format{SampleRate: 2 * testRate}, nil)

		_, frames := runDecoder(t, dec, testTrackOptions(), 0)

		total := 0
		for _, f := range frames {
			total += len(f.Data) / 4
		}
		assert.InDelta(t, 1600, total, 20)
		assert.Equal(t, int64(0), frames[0].Timecode)
		assert.Equal(t, int64(10), frames[1].Timecode)
	})
}

func TestPCMDecoder_InitialPosition(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeStreamer{n: 800}
		dec := NewPCMDecoder(src, beep.Format{SampleRate: testRate}, nil)

		e, frames := runDecoder(t, dec, testTrackOptions(), 50)

		assert.Equal(t, steps(50, 10, 5), frameTimecodes(frames))
		assert.Equal(t, track.Finished, e.State())
		assert.Nil(t, e.Err())
	})
}

func TestPCMDecoder_SeekClampsToLength(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeStreamer{n: 800}
		dec := NewPCMDecoder(src, beep.Format{SampleRate: testRate}, nil)

		e, frames := runDecoder(t, dec, testTrackOptions(), 5000)

		assert.Empty(t, frames)
		assert.Equal(t, int64(100), e.Position())
		assert.Equal(t, 800, src.pos)
	})
}

func TestPCMDecoder_StreamError(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeStreamer{n: 160, err: errors.New("bad block")}
		dec := NewPCMDecoder(src, beep.Format{SampleRate: testRate}, nil)

		e, frames := runDecoder(t, dec, testTrackOptions(), 0)

		assert.Len(t, frames, 2)
		require.NotNil(t, e.Err())
		assert.Contains(t, e.Err().Error(), "bad block")
		assert.False(t, e.FailedBeforeLoad())
	})
}

func TestPCMDecoder_NotSeekable(t *testing.T) {
	src := &fakeStreamer{n: 10}
	dec := NewPCMDecoder(streamOnly{src}, beep.Format{SampleRate: testRate}, nil)

	assert.False(t, dec.Seekable())
	assert.Zero(t, dec.Length())
	require.ErrorIs(t, dec.Seek(context.Background(), nil, 10), track.ErrNotSeekable)
	assert.NoError(t, dec.Close())
}

func TestPCMDecoder_Length(t *testing.T) {
	src := &fakeStreamer{n: 4000}
	dec := NewPCMDecoder(src, beep.Format{SampleRate: testRate}, nil)

	assert.True(t, dec.Seekable())
	assert.Equal(t, 500*time.Millisecond, dec.Length())
}

func TestEncodeS16LE(t *testing.T) {
	tests := []struct {
		name     string
		sample   [2]float64
		channels int
		volume   int
		want     []int16
	}{
		{"stereo full", [2]float64{1, -1}, 2, 100, []int16{32767, -32767}},
		{"clipped", [2]float64{1.5, -2}, 2, 100, []int16{32767, -32767}},
		{"silence", [2]float64{0, 0}, 2, 100, []int16{0, 0}},
		{"muted", [2]float64{0.7, 0.7}, 2, 0, []int16{0, 0}},
		{"mono mix", [2]float64{1, 0}, 1, 100, []int16{16384}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeS16LE([][2]float64{tt.sample}, tt.channels, tt.volume)
			require.Len(t, data, 2*len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want, firstSample(data[2*i:]))
			}
		})
	}
}
