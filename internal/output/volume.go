package output

import (
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// Volume is a master volume control in front of the device.
//
// Changes are applied under lock, which must be the lock the audio
// goroutine holds while streaming (speaker.Lock for the speaker).
type Volume struct {
	lock   sync.Locker
	effect *effects.Volume
	level  float64
	muted  bool
}

// NewVolume wraps s at full volume.
func NewVolume(s beep.Streamer, lock sync.Locker) *Volume {
	return &Volume{
		lock:   lock,
		effect: &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: false},
		level:  1,
	}
}

// Stream implements beep.Streamer.
func (v *Volume) Stream(samples [][2]float64) (int, bool) {
	return v.effect.Stream(samples)
}

// Err implements beep.Streamer.
func (v *Volume) Err() error { return v.effect.Err() }

// SetLevel sets the volume level (0.0 to 1.0).
func (v *Volume) SetLevel(level float64) {
	level = min(max(level, 0), 1)

	v.lock.Lock()
	defer v.lock.Unlock()
	v.level = level
	v.effect.Volume = levelToVolume(level)
}

// Level returns the current volume level (0.0 to 1.0).
func (v *Volume) Level() float64 {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.level
}

// SetMuted silences the output without forgetting the level.
func (v *Volume) SetMuted(muted bool) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.muted = muted
	v.effect.Silent = muted
}

// Muted returns true if audio is muted.
func (v *Volume) Muted() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.muted
}

// levelToVolume converts a 0.0-1.0 level to beep's base 2 exponent:
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent).
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
