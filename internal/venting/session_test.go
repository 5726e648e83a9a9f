package venting

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorAverage(t *testing.T) {
	var a Aggregator
	a.Reset()
	for _, v := range []float64{10, 20, 30, 40} {
		a.Add(v)
	}

	s := Summarize(a.Stop(), "sound_venting")
	assert.Equal(t, 25.0, s.AvgIntensity)
	assert.Equal(t, 40.0, s.MaxIntensity)
	assert.Equal(t, "sound_venting", s.SessionType)
}

func TestAggregatorMaxIsRoundedRunningMax(t *testing.T) {
	var a Aggregator
	a.Reset()

	seen := []float64{12.4, 57.6, 33.3, 57.4, 9.9}
	for _, v := range seen {
		a.Add(v)
	}

	max := 0.0
	for _, v := range seen {
		max = math.Max(max, v)
	}
	assert.Equal(t, math.Round(max), a.State().MaxIntensity)
	assert.Equal(t, 58.0, a.State().MaxIntensity)
}

func TestAggregatorReset(t *testing.T) {
	var a Aggregator
	a.Reset()
	a.Add(70)
	a.TickSecond()
	a.TickSecond()
	a.Stop()

	a.Reset()
	st := a.State()
	assert.True(t, st.IsRecording)
	assert.Equal(t, 0, st.ElapsedSeconds)
	assert.Equal(t, 0.0, st.MaxIntensity)
	assert.Empty(t, st.Readings)
	assert.Equal(t, Whisper, st.CurrentLevel)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(SessionState{}, "sound_venting")
	assert.Equal(t, 0.0, s.AvgIntensity)
	assert.Equal(t, 0.0, s.MaxIntensity)
	assert.Equal(t, 0, s.EventCount)
	assert.Equal(t, 0, s.DurationSeconds)
}

func TestSummaryWireFormat(t *testing.T) {
	s := Summary{
		SessionID:       "ignored",
		DurationSeconds: 42,
		MaxIntensity:    87,
		AvgIntensity:    31.5,
		EventCount:      3,
		SessionType:     "sound_venting",
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"duration":42,"max_decibel":87,"avg_decibel":31.5,"scream_count":3,"session_type":"sound_venting"}`, string(data))

	var back Summary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 87.0, back.MaxIntensity)
	assert.Equal(t, 3, back.EventCount)
}
