package venting

import (
	"encoding/json"
	"math"
	"time"
)

// SessionState is the live state of one recording session
type SessionState struct {
	IsRecording    bool      `json:"is_recording"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	MaxIntensity   float64   `json:"max_intensity"`
	Readings       []float64 `json:"-"`
	EventCount     int       `json:"event_count"`
	CurrentLevel   Level     `json:"current_level"`
	IsEventActive  bool      `json:"is_event_active"`
}

// Summary is produced once when a session ends
type Summary struct {
	SessionID       string
	StartedAt       time.Time
	DurationSeconds int
	MaxIntensity    float64
	AvgIntensity    float64
	EventCount      int
	SessionType     string
}

// summaryPayload is the wire shape accepted by the platform API
type summaryPayload struct {
	Duration    int     `json:"duration"`
	MaxDecibel  int     `json:"max_decibel"`
	AvgDecibel  float64 `json:"avg_decibel"`
	ScreamCount int     `json:"scream_count"`
	SessionType string  `json:"session_type"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryPayload{
		Duration:    s.DurationSeconds,
		MaxDecibel:  int(math.Round(s.MaxIntensity)),
		AvgDecibel:  s.AvgIntensity,
		ScreamCount: s.EventCount,
		SessionType: s.SessionType,
	})
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var p summaryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.DurationSeconds = p.Duration
	s.MaxIntensity = float64(p.MaxDecibel)
	s.AvgIntensity = p.AvgDecibel
	s.EventCount = p.ScreamCount
	s.SessionType = p.SessionType
	return nil
}

// Aggregator owns SessionState between begin and end
type Aggregator struct {
	state SessionState
}

// Reset starts a fresh session
func (a *Aggregator) Reset() {
	a.state = SessionState{
		IsRecording:  true,
		CurrentLevel: Whisper,
		Readings:     make([]float64, 0, 1024),
	}
}

// Add records one intensity sample
func (a *Aggregator) Add(intensity float64) {
	a.state.Readings = append(a.state.Readings, intensity)
	a.state.MaxIntensity = math.Max(a.state.MaxIntensity, math.Round(intensity))
}

// TickSecond advances the elapsed counter
func (a *Aggregator) TickSecond() {
	a.state.ElapsedSeconds++
}

// Stop marks the session finished and returns the final state
func (a *Aggregator) Stop() SessionState {
	a.state.IsRecording = false
	a.state.IsEventActive = false
	return a.state
}

// State returns a copy of the current state; Readings is shared
func (a *Aggregator) State() SessionState {
	return a.state
}

// Summarize builds the session summary. The mean is computed here in one
// pass over every reading, never incrementally.
func Summarize(state SessionState, sessionType string) Summary {
	avg := 0.0
	if len(state.Readings) > 0 {
		var sum float64
		for _, r := range state.Readings {
			sum += r
		}
		avg = sum / float64(len(state.Readings))
	}

	return Summary{
		DurationSeconds: state.ElapsedSeconds,
		MaxIntensity:    state.MaxIntensity,
		AvgIntensity:    avg,
		EventCount:      state.EventCount,
		SessionType:     sessionType,
	}
}
