package audio

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Analyser turns the most recent block of time-domain samples into byte
// scaled frequency bins, the same shape a browser AnalyserNode produces:
// Blackman window, real FFT, magnitude/N, exponential smoothing between
// consecutive calls, then decibels mapped linearly onto 0..255.
//
// An Analyser is not safe for concurrent use.
type Analyser struct {
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	window   []float64
	block    []float64
	smoothed []float64
}

func NewAnalyser(fftSize int, smoothing, minDecibels, maxDecibels float64) *Analyser {
	if fftSize < 2 {
		fftSize = 2
	}
	if smoothing < 0 {
		smoothing = 0
	} else if smoothing >= 1 {
		smoothing = 0.99
	}
	if maxDecibels <= minDecibels {
		maxDecibels = minDecibels + 1
	}

	return &Analyser{
		fftSize:   fftSize,
		smoothing: smoothing,
		minDB:     minDecibels,
		maxDB:     maxDecibels,
		window:    window.Blackman(fftSize),
		block:     make([]float64, fftSize),
		smoothed:  make([]float64, fftSize/2),
	}
}

// FFTSize returns the analysis window length in samples
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// BinCount returns the number of usable frequency bins (FFTSize/2)
func (a *Analyser) BinCount() int {
	return a.fftSize / 2
}

// Reset clears the smoothing history
func (a *Analyser) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}

// ByteFrequencyData analyses the last FFTSize samples (range -1..1) and
// writes up to BinCount bins into dst, returning how many were written.
// Shorter input is treated as preceded by silence.
func (a *Analyser) ByteFrequencyData(samples []float64, dst []uint8) int {
	n := a.fftSize
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}

	pad := n - len(samples)
	for i := 0; i < pad; i++ {
		a.block[i] = 0
	}
	for i, s := range samples {
		a.block[pad+i] = s * a.window[pad+i]
	}

	spectrum := fft.FFTReal(a.block)

	bins := a.BinCount()
	if len(dst) < bins {
		bins = len(dst)
	}

	scale := 255 / (a.maxDB - a.minDB)
	for k := 0; k < a.BinCount(); k++ {
		mag := cmplx.Abs(spectrum[k]) / float64(n)
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if k >= bins {
			continue
		}

		v := a.smoothed[k]
		if v <= 0 {
			dst[k] = 0
			continue
		}
		scaled := math.Floor(scale * (20*math.Log10(v) - a.minDB))
		switch {
		case scaled < 0:
			dst[k] = 0
		case scaled > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(scaled)
		}
	}
	return bins
}
