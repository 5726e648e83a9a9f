package audio

import (
	"math"
	"time"
)

const (
	// maxBinValue is the top of the byte-scaled spectrum
	maxBinValue = 255.0

	// DefaultUIThrottle keeps UI refreshes around 6-7 per second
	DefaultUIThrottle = 150 * time.Millisecond
)

// Intensity reduces a byte spectrum to one value in [0, 100]: the mean bin
// magnitude as a percentage of full scale. An empty spectrum (muted or
// closed stream) is silence, not an error.
func Intensity(bins []uint8) float64 {
	if len(bins) == 0 {
		return 0
	}

	var sum float64
	for _, b := range bins {
		sum += float64(b)
	}
	average := sum / float64(len(bins))

	v := average / maxBinValue * 100
	return math.Max(0, math.Min(100, v))
}

// LevelThrottle limits how often UI-facing level updates go out.
// It only gates the emit; callers still process every tick.
type LevelThrottle struct {
	interval time.Duration
	lastEmit time.Time
}

func NewLevelThrottle(interval time.Duration) *LevelThrottle {
	if interval <= 0 {
		interval = DefaultUIThrottle
	}
	return &LevelThrottle{interval: interval}
}

// Allow reports whether an update may be emitted at now, and if so records it.
func (lt *LevelThrottle) Allow(now time.Time) bool {
	if !lt.lastEmit.IsZero() && now.Sub(lt.lastEmit) < lt.interval {
		return false
	}
	lt.lastEmit = now
	return true
}

// Reset makes the next Allow succeed
func (lt *LevelThrottle) Reset() {
	lt.lastEmit = time.Time{}
}
