package types

import "time"

const DefaultSessionType = "sound_venting"

// APIConfig describes the platform REST endpoint receiving session summaries.
type APIConfig struct {
	BaseURL         string        `yaml:"base_url"`
	SessionsPath    string        `yaml:"sessions_path"`
	Timeout         time.Duration `yaml:"timeout"`
	RetryMaxElapsed time.Duration `yaml:"retry_max_elapsed"`
	Cookie          string        `yaml:"cookie"` // opaque session cookie supplied by the calling app
}

// AudioConfig holds capture and analysis parameters
type AudioConfig struct {
	DeviceName  string        `yaml:"device_name"` // empty = system default input
	SampleRate  int           `yaml:"sample_rate"`
	FFTSize     int           `yaml:"fft_size"`
	Smoothing   *float64      `yaml:"smoothing"` // nil = 0.5; an explicit 0 turns smoothing off
	MinDecibels float64       `yaml:"min_decibels"`
	MaxDecibels float64       `yaml:"max_decibels"`
	FrameRate   int           `yaml:"frame_rate"`  // analysis ticks per second
	UIThrottle  time.Duration `yaml:"ui_throttle"` // minimum gap between UI updates
}

// DetectorConfig holds scream event detection parameters
type DetectorConfig struct {
	Threshold  float64       `yaml:"threshold"`
	Debounce   time.Duration `yaml:"debounce"`
	Inactivity time.Duration `yaml:"inactivity"`
	Haptic     time.Duration `yaml:"haptic"`
}

// FeedConfig configures the live WebSocket feed for browser front-ends
type FeedConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	SessionType string              `yaml:"session_type"`
	API         APIConfig           `yaml:"api"`
	Audio       AudioConfig         `yaml:"audio"`
	Detector    DetectorConfig      `yaml:"detector"`
	Feed        FeedConfig          `yaml:"feed"`
	Messages    map[string][]string `yaml:"messages,omitempty"` // per-level overrides of encouragement pools
}

func (c *Config) GetSessionType() string {
	if c.SessionType == "" {
		return DefaultSessionType
	}
	return c.SessionType
}

// GetAPIConfig returns API configuration with defaults
func (c *Config) GetAPIConfig() APIConfig {
	config := c.API
	if config.SessionsPath == "" {
		config.SessionsPath = "/api/venting/sessions"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryMaxElapsed == 0 {
		config.RetryMaxElapsed = 30 * time.Second
	}
	return config
}

// GetAudioConfig returns audio configuration with defaults.
// FFT size 256 yields 128 usable bins.
func (c *Config) GetAudioConfig() AudioConfig {
	config := c.Audio
	if config.SampleRate == 0 {
		config.SampleRate = 48000
	}
	if config.FFTSize == 0 {
		config.FFTSize = 256
	}
	if config.Smoothing == nil {
		smoothing := 0.5
		config.Smoothing = &smoothing
	}
	if config.MinDecibels == 0 {
		config.MinDecibels = -100
	}
	if config.MaxDecibels == 0 {
		config.MaxDecibels = -30
	}
	if config.FrameRate == 0 {
		config.FrameRate = 60
	}
	if config.UIThrottle == 0 {
		config.UIThrottle = 150 * time.Millisecond
	}
	return config
}

// GetDetectorConfig returns detector configuration with defaults
func (c *Config) GetDetectorConfig() DetectorConfig {
	config := c.Detector
	if config.Threshold == 0 {
		config.Threshold = 35
	}
	if config.Debounce == 0 {
		config.Debounce = 2000 * time.Millisecond
	}
	if config.Inactivity == 0 {
		config.Inactivity = 300 * time.Millisecond
	}
	if config.Haptic == 0 {
		config.Haptic = 200 * time.Millisecond
	}
	return config
}

// GetFeedConfig returns feed configuration with defaults
func (c *Config) GetFeedConfig() FeedConfig {
	config := c.Feed
	if config.Addr == "" {
		config.Addr = "127.0.0.1:8765"
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:3000"}
	}
	return config
}
