package notification

import (
	"fmt"

	"github.com/dooshek/ventify/internal/logger"
)

const macSounds = "/System/Library/Sounds/"

type darwinNotifier struct {
	runner
}

func newDarwinNotifier() platformNotifier {
	return &darwinNotifier{runner: execRunner()}
}

func (n *darwinNotifier) send(title, message string) error {
	logger.Debugf("Sending macOS notification: %s - %s", title, message)
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	if err := n.run("osascript", "-e", script); err != nil {
		logger.Error("Failed to send macOS notification", err)
		return err
	}
	return nil
}

func (n *darwinNotifier) playStartBeep() error {
	return n.background("play start beep", "afplay", macSounds+"Ping.aiff")
}

func (n *darwinNotifier) playStopBeep() error {
	return n.background("play stop beep", "afplay", macSounds+"Glass.aiff")
}

func (n *darwinNotifier) playPulse() error {
	return n.background("play pulse", "afplay", macSounds+"Tink.aiff")
}
