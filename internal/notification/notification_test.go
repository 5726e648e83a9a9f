package notification

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dooshek/ventify/internal/venting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	sent   []string
	sounds []string
	err    error
}

func (f *fakePlatform) send(title, message string) error {
	f.sent = append(f.sent, title+": "+message)
	return f.err
}
func (f *fakePlatform) playStartBeep() error { f.sounds = append(f.sounds, "start"); return nil }
func (f *fakePlatform) playStopBeep() error  { f.sounds = append(f.sounds, "stop"); return nil }
func (f *fakePlatform) playPulse() error     { f.sounds = append(f.sounds, "pulse"); return errors.New("no paplay") }

func TestBaseNotifierSessionLifecycle(t *testing.T) {
	p := &fakePlatform{}
	n := &baseNotifier{platform: p}

	require.NoError(t, n.NotifySessionStarted("sound_venting"))
	n.Vibrate(200 * time.Millisecond)
	require.NoError(t, n.NotifySessionSummary(venting.Summary{DurationSeconds: 75, MaxIntensity: 86.6, EventCount: 2}))

	assert.Equal(t, []string{"start", "pulse", "stop"}, p.sounds)
	require.Len(t, p.sent, 2)
	assert.Equal(t, "Ventify: Listening (sound_venting)... let it out!", p.sent[0])
	assert.Equal(t, "Ventify: 01:15 vented, peak 87, 2 scream(s)", p.sent[1])
}

func TestNotifyPropagatesSendError(t *testing.T) {
	n := &baseNotifier{platform: &fakePlatform{err: errors.New("no notify-send")}}
	assert.Error(t, n.NotifyError("boom"))
}

func TestLinuxNotifierRunsInBackground(t *testing.T) {
	var mu sync.Mutex
	var calls [][]string
	done := make(chan struct{}, 4)
	n := &linuxNotifier{runner{run: func(name string, args ...string) error {
		mu.Lock()
		calls = append(calls, append([]string{name}, args...))
		mu.Unlock()
		done <- struct{}{}
		return nil
	}}}

	require.NoError(t, n.send("Ventify", "hello"))
	require.NoError(t, n.playPulse())
	<-done
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, [][]string{
		{"notify-send", "-a", "Ventify", "Ventify", "hello"},
		{"paplay", freedesktopSounds + "bell.oga"},
	}, calls)
}

func TestSilentNotifier(t *testing.T) {
	n := NewSilent()
	assert.NoError(t, n.NotifySessionStarted("x"))
	assert.NoError(t, n.NotifySessionSummary(venting.Summary{}))
	n.Vibrate(time.Second)
}

func TestDarwinSoundsAreReaped(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan string, 3)
	n := &darwinNotifier{runner{run: func(name string, args ...string) error {
		<-release
		finished <- args[0]
		return nil
	}}}

	// run blocks until release; playing must return right away
	require.NoError(t, n.playStartBeep())
	require.NoError(t, n.playPulse())
	require.NoError(t, n.playStopBeep())
	close(release)

	var got []string
	for i := 0; i < 3; i++ {
		select {
		case f := <-finished:
			got = append(got, f)
		case <-time.After(time.Second):
			t.Fatal("sound command never completed")
		}
	}
	assert.ElementsMatch(t, []string{macSounds + "Ping.aiff", macSounds + "Tink.aiff", macSounds + "Glass.aiff"}, got)
}
