package venting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const frame = time.Second / 60

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// run feeds intensity every frame for d and returns the time after the last tick
func run(d *Detector, start time.Time, dur time.Duration, intensity float64) (time.Time, int) {
	counted := 0
	now := start
	for end := start.Add(dur); now.Before(end); now = now.Add(frame) {
		if d.Observe(now, intensity) {
			counted++
		}
	}
	return now, counted
}

func newTestDetector() *Detector {
	return NewDetector(DefaultThreshold, DefaultDebounce, DefaultInactivity)
}

func TestDetectorSustainedLoudnessCountsOnce(t *testing.T) {
	d := newTestDetector()

	_, counted := run(d, epoch, 5*time.Second, 40)

	assert.Equal(t, 1, d.Count())
	assert.Equal(t, 1, counted)
	assert.True(t, d.Active())
}

func TestDetectorRetriggersAfterCooldown(t *testing.T) {
	d := newTestDetector()

	now, _ := run(d, epoch, 500*time.Millisecond, 40)
	now, _ = run(d, now, 2500*time.Millisecond, 10)
	assert.False(t, d.Active())
	run(d, now, 500*time.Millisecond, 40)

	assert.Equal(t, 2, d.Count())
}

func TestDetectorDebounceIsIndependentOfInactivity(t *testing.T) {
	d := newTestDetector()

	now, _ := run(d, epoch, 100*time.Millisecond, 40)
	now, _ = run(d, now, 500*time.Millisecond, 10)
	assert.False(t, d.Active(), "inactivity window elapsed")

	// loud again inside the 2s debounce window: visual flag flips, count does not
	_, counted := run(d, now, 100*time.Millisecond, 40)
	assert.True(t, d.Active())
	assert.Equal(t, 0, counted)
	assert.Equal(t, 1, d.Count())
}

func TestDetectorInactivityWindow(t *testing.T) {
	d := newTestDetector()

	d.Observe(epoch, 50)
	assert.True(t, d.Active())

	d.Observe(epoch.Add(299*time.Millisecond), 0)
	assert.True(t, d.Active(), "still within 300ms")

	d.Observe(epoch.Add(300*time.Millisecond), 0)
	assert.False(t, d.Active())
}

func TestDetectorThresholdIsExclusive(t *testing.T) {
	d := newTestDetector()

	assert.False(t, d.Observe(epoch, 35))
	assert.False(t, d.Active())
	assert.True(t, d.Observe(epoch.Add(frame), 35.01))
}

func TestDetectorReset(t *testing.T) {
	d := newTestDetector()
	d.Observe(epoch, 80)
	d.Reset()

	assert.Equal(t, 0, d.Count())
	assert.False(t, d.Active())
	// debounce window cleared too
	assert.True(t, d.Observe(epoch.Add(frame), 80))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		intensity float64
		want      Level
	}{
		{0, Whisper},
		{29.99, Whisper},
		{30, Normal},
		{49.9, Normal},
		{50, Loud},
		{69.9, Loud},
		{70, Shout},
		{89.9, Shout},
		{90, Scream},
		{100, Scream},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.intensity), "intensity %v", tc.intensity)
	}
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("shout")
	assert.True(t, ok)
	assert.Equal(t, Shout, l)

	_, ok = ParseLevel("yodel")
	assert.False(t, ok)
}

func TestEveryLevelHasMessages(t *testing.T) {
	for _, l := range Levels {
		assert.NotEmpty(t, DefaultMessages[l], "level %s", l)
		assert.Contains(t, DefaultMessages[l], RandomSelector(l, DefaultMessages[l]))
	}
	assert.Equal(t, "", RandomSelector(Whisper, nil))
}

func TestMergeMessages(t *testing.T) {
	pools := mergeMessages(map[Level][]string{
		Scream: {"custom"},
		Loud:   {},
	})

	assert.Equal(t, []string{"custom"}, pools[Scream])
	assert.Equal(t, DefaultMessages[Loud], pools[Loud], "empty override keeps default")
}
