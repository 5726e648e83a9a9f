package audio

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntensityRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bins := make([]uint8, 128)

	for i := 0; i < 1000; i++ {
		for j := range bins {
			bins[j] = uint8(rng.Intn(256))
		}
		v := Intensity(bins)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestIntensityExtremes(t *testing.T) {
	assert.Equal(t, 0.0, Intensity(nil))
	assert.Equal(t, 0.0, Intensity(make([]uint8, 128)))

	full := make([]uint8, 128)
	for i := range full {
		full[i] = 255
	}
	assert.Equal(t, 100.0, Intensity(full))

	assert.InDelta(t, 40.0, Intensity([]uint8{102, 102}), 1e-9)
}

func TestLevelThrottle(t *testing.T) {
	lt := NewLevelThrottle(150 * time.Millisecond)
	start := time.Unix(0, 0)

	assert.True(t, lt.Allow(start))
	assert.False(t, lt.Allow(start.Add(100*time.Millisecond)))
	assert.True(t, lt.Allow(start.Add(150*time.Millisecond)))
	assert.False(t, lt.Allow(start.Add(200*time.Millisecond)))

	lt.Reset()
	assert.True(t, lt.Allow(start.Add(201*time.Millisecond)))
}

func TestAnalyserSilence(t *testing.T) {
	a := NewAnalyser(256, 0.5, -100, -30)
	require.Equal(t, 128, a.BinCount())

	dst := make([]uint8, a.BinCount())
	n := a.ByteFrequencyData(make([]float64, 256), dst)
	assert.Equal(t, 128, n)
	assert.Equal(t, 0.0, Intensity(dst))
}

func sine(n int, bin int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*float64(bin)*float64(i)/float64(n))
	}
	return out
}

func TestAnalyserTonePeaksAtItsBin(t *testing.T) {
	// wide decibel range so the main lobe does not saturate
	a := NewAnalyser(256, 0, -100, 0)
	dst := make([]uint8, a.BinCount())

	a.ByteFrequencyData(sine(256, 16, 0.9), dst)

	peak := 0
	for k := range dst {
		if dst[k] > dst[peak] {
			peak = k
		}
	}
	assert.Equal(t, 16, peak)
	assert.Greater(t, dst[16], uint8(200))
	assert.Less(t, dst[60], dst[16])
}

func TestAnalyserSmoothing(t *testing.T) {
	loud := sine(256, 16, 0.9)
	silent := make([]float64, 256)

	raw := NewAnalyser(256, 0, -100, -30)
	smooth := NewAnalyser(256, 0.5, -100, -30)
	rawBins := make([]uint8, 128)
	smoothBins := make([]uint8, 128)

	raw.ByteFrequencyData(loud, rawBins)
	smooth.ByteFrequencyData(loud, smoothBins)
	raw.ByteFrequencyData(silent, rawBins)
	smooth.ByteFrequencyData(silent, smoothBins)

	// the unsmoothed analyser drops straight to silence, the smoothed one decays
	assert.Equal(t, uint8(0), rawBins[16])
	assert.Greater(t, smoothBins[16], uint8(200))

	smooth.Reset()
	smooth.ByteFrequencyData(silent, smoothBins)
	assert.Equal(t, uint8(0), smoothBins[16])
}

func TestAnalyserShortInputAndSmallDst(t *testing.T) {
	a := NewAnalyser(256, 0.5, -100, -30)
	dst := make([]uint8, 10)
	n := a.ByteFrequencyData(sine(64, 4, 0.5), dst)
	assert.Equal(t, 10, n)
}

func pcm16(samples []float64) []byte {
	out := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		v := int16(s * 32767)
		out = append(out, byte(v), byte(uint16(v)>>8))
	}
	return out
}

func TestPCMStream(t *testing.T) {
	closed := 0
	s := newPCMStream(AnalyserConfig{SampleRate: 48000, FFTSize: 256, Smoothing: 0, MinDecibels: -100, MaxDecibels: -30}, func() error {
		closed++
		return nil
	})
	dst := make([]uint8, s.BinCount())

	assert.Equal(t, 128, s.FrequencyData(dst))
	assert.Equal(t, 0.0, Intensity(dst), "nothing captured yet")

	// more than one window wraps the ring buffer
	s.writePCM(pcm16(sine(256, 16, 0.9)))
	s.writePCM(pcm16(sine(256, 16, 0.9)))
	s.FrequencyData(dst)
	assert.Greater(t, Intensity(dst), 0.0)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, closed, "close is idempotent")

	assert.Equal(t, 0, s.FrequencyData(dst), "closed stream reads as empty")
	s.writePCM(pcm16(sine(256, 16, 0.9)))
}

func TestAcquisitionError(t *testing.T) {
	cause := errors.New("backend said no")
	err := error(&AcquisitionError{Kind: ErrPermissionDenied, Cause: cause})

	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, MicrophoneErrorMessage, err.Error())

	var acq *AcquisitionError
	assert.True(t, errors.As(err, &acq))
}
