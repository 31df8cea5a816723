package source

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/llehouerou/wavefeed/internal/frame"
	"github.com/llehouerou/wavefeed/internal/track"
)

const resampleQuality = 4

// PCMDecoder turns a beep.Streamer into 16-bit little endian PCM frames
// of the output format, resampling when the sample rates differ.
//
// It is seekable when the streamer is a beep.StreamSeeker. All methods are
// called from the decode goroutine of one executor.
type PCMDecoder struct {
	src    beep.Streamer
	seeker beep.StreamSeeker
	closer io.Closer
	rate   beep.SampleRate

	out     beep.Streamer // src, resampled to outRate when needed
	outRate beep.SampleRate
	samples int64 // output samples produced since position 0
	buf     [][2]float64
}

// NewPCMDecoder wraps s, whose samples are at format.SampleRate. closer,
// when not nil, is closed with the decoder.
func NewPCMDecoder(s beep.Streamer, format beep.Format, closer io.Closer) *PCMDecoder {
	d := &PCMDecoder{
		src:    s,
		closer: closer,
		rate:   format.SampleRate,
	}
	if seeker, ok := s.(beep.StreamSeeker); ok {
		d.seeker = seeker
	}
	return d
}

// Seekable reports whether Seek is supported.
func (d *PCMDecoder) Seekable() bool { return d.seeker != nil }

// Length returns the duration of the stream, 0 when unknown.
func (d *PCMDecoder) Length() time.Duration {
	if d.seeker == nil || d.seeker.Len() <= 0 {
		return 0
	}
	return d.rate.D(d.seeker.Len())
}

func (d *PCMDecoder) setup(f frame.Format) {
	rate := beep.SampleRate(f.SampleRate)
	if d.out != nil && d.outRate == rate && len(d.buf) == f.ChunkSamples {
		return
	}
	d.outRate = rate
	d.resetOutput()
	d.buf = make([][2]float64, f.ChunkSamples)
}

// resetOutput drops resampler state; needed after the source moved.
func (d *PCMDecoder) resetOutput() {
	d.out = d.src
	if d.rate != d.outRate {
		d.out = beep.Resample(resampleQuality, d.rate, d.outRate, d.src)
	}
}

// Read implements track.Decoder.
func (d *PCMDecoder) Read(ctx context.Context, pc *track.ProcessingContext) error {
	f := pc.Format()
	d.setup(f)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, ok := d.fill()
		if n > 0 {
			data := encodeS16LE(d.buf[:n], f.Channels, pc.Volume())
			tc := d.samples * 1000 / int64(d.outRate)
			if err := pc.Push(ctx, frame.New(tc, data, pc.Volume(), f)); err != nil {
				return err
			}
			d.samples += int64(n)
		}
		if !ok {
			return d.out.Err()
		}
	}
}

// fill streams until the chunk is full or the source ends.
func (d *PCMDecoder) fill() (int, bool) {
	total := 0
	for total < len(d.buf) {
		n, ok := d.out.Stream(d.buf[total:])
		total += n
		if !ok {
			return total, false
		}
		if n == 0 {
			// A streamer returning nothing without ending would spin.
			break
		}
	}
	return total, true
}

// Seek implements track.Seeker. It reports the position the source really
// landed on, which is sample accurate for beep seekers.
func (d *PCMDecoder) Seek(ctx context.Context, pc *track.ProcessingContext, position int64) error {
	if d.seeker == nil {
		return track.ErrNotSeekable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.setup(pc.Format())

	target := d.rate.N(time.Duration(position) * time.Millisecond)
	if n := d.seeker.Len(); n > 0 {
		target = min(target, n)
	}
	if err := d.seeker.Seek(target); err != nil {
		return err
	}

	landed := d.rate.D(d.seeker.Position())
	d.samples = int64(d.outRate.N(landed))
	d.resetOutput()

	pc.SeekPerformed(position, landed.Milliseconds())
	return nil
}

// Close closes the underlying source.
func (d *PCMDecoder) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// encodeS16LE converts samples to interleaved 16-bit PCM. Mono output
// averages both channels. volume is a 0-100 linear gain.
func encodeS16LE(samples [][2]float64, channels, volume int) []byte {
	gain := float64(volume) / 100
	data := make([]byte, 0, len(samples)*channels*2)
	for _, s := range samples {
		if channels == 1 {
			data = binary.LittleEndian.AppendUint16(data, uint16(toInt16((s[0]+s[1])/2*gain))) //nolint:gosec // audio samples
			continue
		}
		data = binary.LittleEndian.AppendUint16(data, uint16(toInt16(s[0]*gain))) //nolint:gosec // audio samples
		data = binary.LittleEndian.AppendUint16(data, uint16(toInt16(s[1]*gain))) //nolint:gosec // audio samples
	}
	return data
}

func toInt16(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(math.Round(v * math.MaxInt16))
}
