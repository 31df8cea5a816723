package output

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/llehouerou/wavefeed/internal/errmsg"
)

// DefaultLatency is the device buffer used when none is configured.
const DefaultLatency = 100 * time.Millisecond

// Speaker plays a streamer on the default audio device.
type Speaker struct {
	volume *Volume
}

// speakerLock adapts the speaker lock to sync.Locker.
type speakerLock struct{}

func (speakerLock) Lock()   { speaker.Lock() }
func (speakerLock) Unlock() { speaker.Unlock() }

// OpenSpeaker initialises the device at sampleRate and starts playing s
// behind a volume control.
func OpenSpeaker(sampleRate int, latency time.Duration, s beep.Streamer) (*Speaker, error) {
	if latency <= 0 {
		latency = DefaultLatency
	}
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(latency)); err != nil {
		return nil, fmt.Errorf("%s: %w", errmsg.OpOutputInit, err)
	}

	v := NewVolume(s, speakerLock{})
	speaker.Play(v)
	return &Speaker{volume: v}, nil
}

// Volume returns the master volume control.
func (s *Speaker) Volume() *Volume { return s.volume }

// Close stops playback and releases the device.
func (s *Speaker) Close() {
	speaker.Clear()
	speaker.Close()
}
