package notification

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dooshek/ventify/internal/logger"
	"github.com/dooshek/ventify/internal/venting"
)

const appTitle = "Ventify"

// Notifier defines the interface for system notifications. It doubles as
// the monitor's haptic: desktops have no vibration motor, so a short
// sound stands in for it.
type Notifier interface {
	NotifySessionStarted(sessionType string) error
	NotifySessionSummary(summary venting.Summary) error
	NotifyError(message string) error
	Notify(title, message string) error
	Vibrate(d time.Duration)
}

// SilentNotifier is a no-op implementation for daemon mode
type SilentNotifier struct{}

func NewSilent() Notifier {
	return &SilentNotifier{}
}

func (s *SilentNotifier) NotifySessionStarted(string) error           { return nil }
func (s *SilentNotifier) NotifySessionSummary(venting.Summary) error { return nil }
func (s *SilentNotifier) NotifyError(string) error                   { return nil }
func (s *SilentNotifier) Notify(title, message string) error         { return nil }
func (s *SilentNotifier) Vibrate(time.Duration)                      {}

type baseNotifier struct {
	platform platformNotifier
}

type platformNotifier interface {
	send(title, message string) error
	playStartBeep() error
	playStopBeep() error
	playPulse() error
}

// New creates a new platform-specific notification service
func New() Notifier {
	logger.Debug("Initializing notification system")
	var platform platformNotifier
	switch runtime.GOOS {
	case "darwin":
		logger.Debug("Using Darwin (macOS) notifier")
		platform = newDarwinNotifier()
	default:
		logger.Debug("Using Linux notifier")
		platform = newLinuxNotifier()
	}
	return &baseNotifier{platform: platform}
}

func (n *baseNotifier) NotifySessionStarted(sessionType string) error {
	logger.Debug("Sending session started notification")
	if err := n.platform.playStartBeep(); err != nil {
		logger.Error("Failed to play start beep", err)
	}
	return n.Notify(appTitle, fmt.Sprintf("Listening (%s)... let it out!", sessionType))
}

func (n *baseNotifier) NotifySessionSummary(summary venting.Summary) error {
	if err := n.platform.playStopBeep(); err != nil {
		logger.Error("Failed to play stop beep", err)
	}
	return n.Notify(appTitle, formatSummaryMessage(summary))
}

func (n *baseNotifier) NotifyError(message string) error {
	return n.Notify(appTitle, message)
}

func (n *baseNotifier) Notify(title, message string) error {
	return n.platform.send(title, message)
}

// Vibrate plays the pulse sound; the duration only shows up in logs
func (n *baseNotifier) Vibrate(d time.Duration) {
	logger.Debugf("Haptic pulse (%s)", d)
	if err := n.platform.playPulse(); err != nil {
		logger.Error("Failed to play haptic pulse", err)
	}
}

func formatSummaryMessage(s venting.Summary) string {
	return fmt.Sprintf("%02d:%02d vented, peak %d, %d scream(s)",
		s.DurationSeconds/60, s.DurationSeconds%60, int(s.MaxIntensity+0.5), s.EventCount)
}
