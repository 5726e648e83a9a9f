package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dooshek/ventify/internal/logger"
	"github.com/gen2brain/malgo"
)

const (
	captureChannels = 1
	pcmFullScale    = 32768.0
)

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("no audio input device available")
)

// MicrophoneErrorMessage is what the user sees for any acquisition failure
const MicrophoneErrorMessage = "Could not access microphone. Please check your permissions and that an input device is connected."

// AcquisitionError reports a failed microphone open. Error() is the
// user-facing message; errors.Is matches the kind sentinel and the cause.
type AcquisitionError struct {
	Kind  error
	Cause error
}

func (e *AcquisitionError) Error() string {
	return MicrophoneErrorMessage
}

func (e *AcquisitionError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

// Stream is an open microphone handle feeding an analyser
type Stream interface {
	// FrequencyData writes the current byte spectrum into dst and returns
	// the number of bins written. A closed stream writes nothing.
	FrequencyData(dst []uint8) int
	BinCount() int
	// Close releases the device. Safe to call more than once.
	Close() error
}

// Source opens microphone streams
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// AnalyserConfig describes the analysis graph built on top of a stream
type AnalyserConfig struct {
	SampleRate  int
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

// pcmStream keeps the last FFTSize samples of incoming PCM16 audio and
// analyses them on demand.
type pcmStream struct {
	mu       sync.Mutex
	ring     []float64
	pos      int
	filled   bool
	ordered  []float64
	analyser *Analyser
	closed   bool

	closeOnce sync.Once
	closeFn   func() error
	closeErr  error
}

func newPCMStream(cfg AnalyserConfig, closeFn func() error) *pcmStream {
	analyser := NewAnalyser(cfg.FFTSize, cfg.Smoothing, cfg.MinDecibels, cfg.MaxDecibels)
	return &pcmStream{
		ring:     make([]float64, analyser.FFTSize()),
		ordered:  make([]float64, 0, analyser.FFTSize()),
		analyser: analyser,
		closeFn:  closeFn,
	}
}

// writePCM appends little-endian mono PCM16 samples
func (s *pcmStream) writePCM(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for i := 0; i+1 < len(pcm); i += 2 {
		v := int16(pcm[i]) | int16(pcm[i+1])<<8
		s.ring[s.pos] = float64(v) / pcmFullScale
		s.pos++
		if s.pos == len(s.ring) {
			s.pos = 0
			s.filled = true
		}
	}
}

func (s *pcmStream) FrequencyData(dst []uint8) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}

	s.ordered = s.ordered[:0]
	if s.filled {
		s.ordered = append(s.ordered, s.ring[s.pos:]...)
	}
	s.ordered = append(s.ordered, s.ring[:s.pos]...)

	return s.analyser.ByteFrequencyData(s.ordered, dst)
}

func (s *pcmStream) BinCount() int {
	return s.analyser.BinCount()
}

func (s *pcmStream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.closeFn != nil {
			s.closeErr = s.closeFn()
		}
	})
	return s.closeErr
}

// MicSource captures from a microphone through miniaudio
type MicSource struct {
	cfg        AnalyserConfig
	deviceName string
}

func NewMicSource(cfg AnalyserConfig, deviceName string) *MicSource {
	return &MicSource{cfg: cfg, deviceName: deviceName}
}

// Open starts a capture device. Failures come back as *AcquisitionError
// and leave nothing running. No retry is attempted.
func (m *MicSource) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		logger.Error("Error initializing audio context", err)
		return nil, &AcquisitionError{Kind: ErrDeviceUnavailable, Cause: err}
	}
	releaseContext := func() {
		_ = mctx.Uninit()
		mctx.Free()
	}

	devices, err := mctx.Devices(malgo.Capture)
	if err != nil || len(devices) == 0 {
		releaseContext()
		if err == nil {
			err = fmt.Errorf("capture device list is empty")
		}
		return nil, &AcquisitionError{Kind: ErrDeviceUnavailable, Cause: err}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = captureChannels
	deviceConfig.SampleRate = uint32(m.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if m.deviceName != "" {
		found := false
		for _, info := range devices {
			if info.Name() == m.deviceName {
				deviceConfig.Capture.DeviceID = info.ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			releaseContext()
			return nil, &AcquisitionError{Kind: ErrDeviceUnavailable, Cause: fmt.Errorf("input device %q not found", m.deviceName)}
		}
	}

	var device *malgo.Device
	stream := newPCMStream(m.cfg, func() error {
		if device != nil {
			_ = device.Stop()
			device.Uninit()
		}
		releaseContext()
		logger.Debug("Microphone released")
		return nil
	})

	device, err = malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, inputBuffer []byte, _ uint32) {
			stream.writePCM(inputBuffer)
		},
	})
	if err != nil {
		device = nil
		stream.Close()
		// Devices exist but the OS refused to hand one over
		return nil, &AcquisitionError{Kind: ErrPermissionDenied, Cause: err}
	}

	if err := device.Start(); err != nil {
		stream.Close()
		return nil, &AcquisitionError{Kind: ErrPermissionDenied, Cause: err}
	}

	logger.Debugf("Microphone open: %d Hz, fft %d", m.cfg.SampleRate, m.cfg.FFTSize)
	return stream, nil
}
