package config

import (
	"errors"
	"fmt"

	"github.com/dooshek/ventify/internal/fileops"
	"github.com/dooshek/ventify/internal/logger"
	"github.com/dooshek/ventify/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	configFilename = "ventify.yaml"
)

// LoadConfig reads ventify.yaml from the default config directory.
// It returns (nil, nil) when no config file exists yet.
func LoadConfig() (*types.Config, error) {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file operations: %w", err)
	}
	return LoadConfigFrom(fileOps)
}

// LoadConfigFrom is LoadConfig against an explicit config directory
func LoadConfigFrom(fileOps fileops.FileOps) (*types.Config, error) {
	if err := fileOps.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	data, err := fileOps.LoadConfig(configFilename)
	if err != nil {
		if errors.Is(err, fileops.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config types.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Default returns a config with every default made explicit, suitable for
// writing out as a starting point.
func Default() *types.Config {
	var c types.Config
	return &types.Config{
		SessionType: c.GetSessionType(),
		API:         c.GetAPIConfig(),
		Audio:       c.GetAudioConfig(),
		Detector:    c.GetDetectorConfig(),
		Feed:        c.GetFeedConfig(),
	}
}

func SaveConfig(config *types.Config) error {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return fmt.Errorf("failed to initialize file operations: %w", err)
	}
	return SaveConfigTo(fileOps, config)
}

// SaveConfigTo merges config into any existing file and writes the result
func SaveConfigTo(fileOps fileops.FileOps, config *types.Config) error {
	if err := fileOps.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	existingConfig, err := LoadConfigFrom(fileOps)
	if err != nil {
		logger.Warnf("Failed to load existing config: %v", err)
	} else if existingConfig != nil {
		mergeConfigs(existingConfig, config)
		config = existingConfig
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileOps.SaveConfig(configFilename, data); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// mergeConfigs copies every explicitly set field of sourceConfig over targetConfig
func mergeConfigs(targetConfig, sourceConfig *types.Config) {
	if sourceConfig.SessionType != "" {
		targetConfig.SessionType = sourceConfig.SessionType
	}

	if sourceConfig.API.BaseURL != "" {
		targetConfig.API.BaseURL = sourceConfig.API.BaseURL
	}
	if sourceConfig.API.SessionsPath != "" {
		targetConfig.API.SessionsPath = sourceConfig.API.SessionsPath
	}
	if sourceConfig.API.Timeout != 0 {
		targetConfig.API.Timeout = sourceConfig.API.Timeout
	}
	if sourceConfig.API.RetryMaxElapsed != 0 {
		targetConfig.API.RetryMaxElapsed = sourceConfig.API.RetryMaxElapsed
	}
	if sourceConfig.API.Cookie != "" {
		targetConfig.API.Cookie = sourceConfig.API.Cookie
	}

	if sourceConfig.Audio.DeviceName != "" {
		targetConfig.Audio.DeviceName = sourceConfig.Audio.DeviceName
	}
	if sourceConfig.Audio.SampleRate != 0 {
		targetConfig.Audio.SampleRate = sourceConfig.Audio.SampleRate
	}
	if sourceConfig.Audio.FFTSize != 0 {
		targetConfig.Audio.FFTSize = sourceConfig.Audio.FFTSize
	}
	if sourceConfig.Audio.Smoothing != nil {
		targetConfig.Audio.Smoothing = sourceConfig.Audio.Smoothing
	}
	if sourceConfig.Audio.MinDecibels != 0 {
		targetConfig.Audio.MinDecibels = sourceConfig.Audio.MinDecibels
	}
	if sourceConfig.Audio.MaxDecibels != 0 {
		targetConfig.Audio.MaxDecibels = sourceConfig.Audio.MaxDecibels
	}
	if sourceConfig.Audio.FrameRate != 0 {
		targetConfig.Audio.FrameRate = sourceConfig.Audio.FrameRate
	}
	if sourceConfig.Audio.UIThrottle != 0 {
		targetConfig.Audio.UIThrottle = sourceConfig.Audio.UIThrottle
	}

	if sourceConfig.Detector.Threshold != 0 {
		targetConfig.Detector.Threshold = sourceConfig.Detector.Threshold
	}
	if sourceConfig.Detector.Debounce != 0 {
		targetConfig.Detector.Debounce = sourceConfig.Detector.Debounce
	}
	if sourceConfig.Detector.Inactivity != 0 {
		targetConfig.Detector.Inactivity = sourceConfig.Detector.Inactivity
	}
	if sourceConfig.Detector.Haptic != 0 {
		targetConfig.Detector.Haptic = sourceConfig.Detector.Haptic
	}

	// Enabled is a plain bool, so a source with an address is taken as authoritative
	if sourceConfig.Feed.Addr != "" {
		targetConfig.Feed.Addr = sourceConfig.Feed.Addr
		targetConfig.Feed.Enabled = sourceConfig.Feed.Enabled
	}
	if len(sourceConfig.Feed.AllowedOrigins) > 0 {
		targetConfig.Feed.AllowedOrigins = sourceConfig.Feed.AllowedOrigins
	}

	for level, pool := range sourceConfig.Messages {
		if len(pool) == 0 {
			continue
		}
		if targetConfig.Messages == nil {
			targetConfig.Messages = make(map[string][]string)
		}
		targetConfig.Messages[level] = pool
	}
}
