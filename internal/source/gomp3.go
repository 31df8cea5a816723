package source

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/go-mp3"
)

// goMP3Streamer exposes an llehouerou/go-mp3 decoder as a
// beep.StreamSeekCloser. Seeking is sample accurate on seekable files.
type goMP3Streamer struct {
	decoder *mp3.Decoder
	closer  io.Closer
	err     error
	readBuf []byte
}

// decodeGoMP3 takes ownership of rc.
func decodeGoMP3(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	decoder, err := mp3.NewDecoder(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}

	sampleRate := decoder.SampleRate()
	if sampleRate == 0 {
		return nil, beep.Format{}, errors.New("mp3: invalid sample rate")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2, // go-mp3 always outputs stereo
		Precision:   2,
	}
	return &goMP3Streamer{
		decoder: decoder,
		closer:  rc,
		readBuf: make([]byte, 8192),
	}, format, nil
}

func (s *goMP3Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.err != nil {
		return 0, false
	}

	// 4 bytes per stereo 16-bit sample
	need := len(samples) * 4
	if len(s.readBuf) < need {
		s.readBuf = make([]byte, need)
	}

	read, err := io.ReadFull(s.decoder, s.readBuf[:need])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.err = err
		return 0, false
	}

	n = read / 4
	if n == 0 {
		return 0, false
	}
	for i := range n {
		off := i * 4
		left := int16(binary.LittleEndian.Uint16(s.readBuf[off:]))    //nolint:gosec // audio samples
		right := int16(binary.LittleEndian.Uint16(s.readBuf[off+2:])) //nolint:gosec // audio samples
		samples[i] = [2]float64{float64(left) / 32768.0, float64(right) / 32768.0}
	}
	return n, true
}

func (s *goMP3Streamer) Err() error { return s.err }

func (s *goMP3Streamer) Len() int {
	return int(max(s.decoder.SampleCount(), 0))
}

func (s *goMP3Streamer) Position() int {
	return int(s.decoder.SamplePosition())
}

func (s *goMP3Streamer) Seek(p int) error {
	p = min(max(p, 0), s.Len())
	if err := s.decoder.SeekToSample(int64(p)); err != nil {
		return err
	}
	s.err = nil
	return nil
}

func (s *goMP3Streamer) Close() error {
	return s.closer.Close()
}
