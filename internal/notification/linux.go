package notification

import (
	"os/exec"

	"github.com/dooshek/ventify/internal/logger"
)

// runner executes helper binaries; tests swap run out
type runner struct {
	run func(name string, args ...string) error
}

func execRunner() runner {
	return runner{run: func(name string, args ...string) error {
		return exec.Command(name, args...).Run()
	}}
}

// background runs the command and reaps it without blocking the caller
func (r runner) background(what, name string, args ...string) error {
	go func() {
		if err := r.run(name, args...); err != nil {
			logger.Errorf("Failed to %s", err, what)
		}
	}()
	return nil
}

const freedesktopSounds = "/usr/share/sounds/freedesktop/stereo/"

type linuxNotifier struct {
	runner
}

func newLinuxNotifier() platformNotifier {
	return &linuxNotifier{runner: execRunner()}
}

func (n *linuxNotifier) send(title, message string) error {
	logger.Debugf("Sending notification: %s - %s", title, message)
	return n.background("send notification", "notify-send", "-a", appTitle, title, message)
}

func (n *linuxNotifier) playStartBeep() error {
	return n.background("play start beep", "paplay", freedesktopSounds+"service-login.oga")
}

func (n *linuxNotifier) playStopBeep() error {
	return n.background("play stop beep", "paplay", freedesktopSounds+"complete.oga")
}

func (n *linuxNotifier) playPulse() error {
	return n.background("play pulse", "paplay", freedesktopSounds+"bell.oga")
}
