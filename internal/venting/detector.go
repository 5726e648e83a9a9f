package venting

import "time"

const (
	DefaultThreshold  = 35.0
	DefaultDebounce   = 2000 * time.Millisecond
	DefaultInactivity = 300 * time.Millisecond
	DefaultHaptic     = 200 * time.Millisecond
)

// Clock supplies monotonic time to the detector and monitor
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock
var SystemClock Clock = systemClock{}

// Detector turns intensities into discrete scream events.
//
// Two independent deadlines drive it. The debounce deadline governs
// counting: once an event is counted no other event counts until it
// passes. The inactivity deadline governs the active flag: it is pushed
// back on every loud tick and the detector goes idle once it passes.
// Both are checked against the tick time, nothing is scheduled.
type Detector struct {
	threshold  float64
	debounce   time.Duration
	inactivity time.Duration

	active        bool
	count         int
	debounceUntil time.Time // zero when no window is open
	inactiveAt    time.Time
}

func NewDetector(threshold float64, debounce, inactivity time.Duration) *Detector {
	return &Detector{
		threshold:  threshold,
		debounce:   debounce,
		inactivity: inactivity,
	}
}

// Observe feeds one tick. It returns true only when this tick counted a
// new event, which is also the only moment haptic feedback fires. Going
// active again while the debounce window is still open sets Active but
// returns false: no count, no haptic.
func (d *Detector) Observe(now time.Time, intensity float64) bool {
	if d.active && !now.Before(d.inactiveAt) {
		d.active = false
	}
	if !d.debounceUntil.IsZero() && !now.Before(d.debounceUntil) {
		d.debounceUntil = time.Time{}
	}

	if intensity <= d.threshold {
		return false
	}

	d.inactiveAt = now.Add(d.inactivity)
	if d.active {
		return false
	}

	d.active = true
	if !d.debounceUntil.IsZero() {
		return false
	}
	d.count++
	d.debounceUntil = now.Add(d.debounce)
	return true
}

// Active reports whether loudness is currently sustained
func (d *Detector) Active() bool {
	return d.active
}

// Count returns the number of counted events
func (d *Detector) Count() int {
	return d.count
}

// Reset clears both deadlines and the count
func (d *Detector) Reset() {
	d.active = false
	d.count = 0
	d.debounceUntil = time.Time{}
	d.inactiveAt = time.Time{}
}
