package dbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dooshek/ventify/internal/audio"
	"github.com/dooshek/ventify/internal/venting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMonitor struct {
	mu        sync.Mutex
	recording bool
	beginErr  error
	begins    []string
	ends      int
	events    chan venting.Event
}

func (m *fakeMonitor) Begin(_ context.Context, sessionType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begins = append(m.begins, sessionType)
	if m.beginErr != nil {
		return m.beginErr
	}
	m.recording = true
	return nil
}

func (m *fakeMonitor) End() (venting.Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ends++
	was := m.recording
	m.recording = false
	return venting.Summary{}, was
}

func (m *fakeMonitor) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

func (m *fakeMonitor) Subscribe() (<-chan venting.Event, func()) {
	return m.events, func() {}
}

type signal struct {
	name string
	args []interface{}
}

type signalRecorder struct {
	mu      sync.Mutex
	signals []signal
}

func (r *signalRecorder) emit(name string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, signal{name, args})
}

func (r *signalRecorder) snapshot() []signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]signal(nil), r.signals...)
}

type fakeStats struct{ err error }

func (f fakeStats) GetStatsJSON() (string, error) { return `{"session_types":{}}`, f.err }

func newTestServer(m *fakeMonitor, stats StatsProvider) (*Server, *signalRecorder) {
	s := NewServer(m, stats, "sound_venting")
	rec := &signalRecorder{}
	s.emit = rec.emit
	return s, rec
}

func TestToggleSessionStartsAndStops(t *testing.T) {
	m := &fakeMonitor{}
	s, _ := newTestServer(m, nil)

	assert.Nil(t, s.ToggleSession())
	recording, _ := s.GetStatus()
	assert.True(t, recording)
	assert.Equal(t, []string{"sound_venting"}, m.begins)

	assert.Nil(t, s.ToggleSession())
	assert.Eventually(t, func() bool { return !m.IsRecording() }, time.Second, time.Millisecond)
}

func TestToggleSessionReportsMicrophoneError(t *testing.T) {
	m := &fakeMonitor{beginErr: &audio.AcquisitionError{Kind: audio.ErrPermissionDenied, Cause: errors.New("denied")}}
	s, rec := newTestServer(m, nil)

	assert.Nil(t, s.ToggleSession())

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "SessionError", got[0].name)
	assert.Equal(t, []interface{}{audio.MicrophoneErrorMessage}, got[0].args)
}

func TestEventsBecomeSignals(t *testing.T) {
	m := &fakeMonitor{events: make(chan venting.Event, 4)}
	s, rec := newTestServer(m, nil)
	s.forwardEvents()
	defer s.Stop()

	m.events <- venting.Event{Type: venting.EventStarted, SessionType: "sound_venting"}
	m.events <- venting.Event{Type: venting.EventUpdate, Update: &venting.Update{}}
	m.events <- venting.Event{Type: venting.EventMessage, Message: &venting.Message{Level: venting.Scream, Text: "Let it out!"}}
	m.events <- venting.Event{Type: venting.EventSummary, Summary: &venting.Summary{DurationSeconds: 5, EventCount: 1, SessionType: "sound_venting"}}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, time.Millisecond)

	got := rec.snapshot()
	assert.Equal(t, signal{"SessionStarted", []interface{}{"sound_venting"}}, got[0])
	assert.Equal(t, signal{"LevelChanged", []interface{}{"scream", "Let it out!"}}, got[1])
	assert.Equal(t, "SessionSummary", got[2].name)
	assert.JSONEq(t, `{"duration":5,"max_decibel":0,"avg_decibel":0,"scream_count":1,"session_type":"sound_venting"}`, got[2].args[0].(string))
}

func TestGetStats(t *testing.T) {
	s, _ := newTestServer(&fakeMonitor{}, nil)
	data, dErr := s.GetStats()
	assert.Nil(t, dErr)
	assert.Equal(t, "{}", data)

	s, _ = newTestServer(&fakeMonitor{}, fakeStats{})
	data, dErr = s.GetStats()
	assert.Nil(t, dErr)
	assert.Equal(t, `{"session_types":{}}`, data)

	s, _ = newTestServer(&fakeMonitor{}, fakeStats{err: errors.New("disk")})
	_, dErr = s.GetStats()
	assert.NotNil(t, dErr)
}
