package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dooshek/ventify/internal/audio"
	"github.com/dooshek/ventify/internal/config"
	"github.com/dooshek/ventify/internal/dbus"
	"github.com/dooshek/ventify/internal/feed"
	"github.com/dooshek/ventify/internal/fileops"
	"github.com/dooshek/ventify/internal/logger"
	"github.com/dooshek/ventify/internal/notification"
	"github.com/dooshek/ventify/internal/sessionapi"
	"github.com/dooshek/ventify/internal/stats"
	"github.com/dooshek/ventify/internal/types"
	"github.com/dooshek/ventify/internal/venting"
	"github.com/fatih/color"
)

func init() {
	// Set custom usage message to show -- prefix
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(out, "  --%s", f.Name)
			name, usage := flag.UnquoteUsage(f)
			if len(name) > 0 {
				fmt.Fprintf(out, " %s", name)
			}
			fmt.Fprintf(out, "\n    \t%s", usage)
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0s" {
				fmt.Fprintf(out, " (default %q)", f.DefValue)
			}
			fmt.Fprintf(out, "\n")
		})
	}
}

var levelColors = map[venting.Level]*color.Color{
	venting.Whisper: color.New(color.FgHiBlack),
	venting.Normal:  color.New(color.FgGreen),
	venting.Loud:    color.New(color.FgYellow),
	venting.Shout:   color.New(color.FgHiRed),
	venting.Scream:  color.New(color.FgRed, color.Bold),
}

func main() {
	runWizard := flag.Bool("wizard", false, "Run the configuration wizard")
	logLevel := flag.String("log-level", "info", "Set log level (debug|info|warn|error)")
	logFilename := flag.String("log-filename", "", "Log to file instead of stdout")
	daemon := flag.Bool("daemon", false, "Run as D-Bus service controlled by the desktop extension")
	sessionType := flag.String("session-type", "", "Tag sessions with this type (default from config)")
	duration := flag.Duration("duration", 0, "Stop the session automatically after this long")
	showStats := flag.Bool("stats", false, "Print accumulated session statistics and exit")
	flag.Parse()

	logger.SetLevel(*logLevel)
	if *logFilename != "" {
		if err := logger.SetOutputFile(*logFilename); err != nil {
			fmt.Printf("Error setting log file: %v\n", err)
			os.Exit(1)
		}
	}

	code := run(options{
		wizard:      *runWizard,
		daemon:      *daemon,
		sessionType: *sessionType,
		duration:    *duration,
		stats:       *showStats,
	})
	logger.CloseLogFile()
	os.Exit(code)
}

type options struct {
	wizard      bool
	daemon      bool
	sessionType string
	duration    time.Duration
	stats       bool
}

func run(opts options) int {
	if opts.wizard {
		if err := config.RunWizard(); err != nil {
			logger.Error("Error running wizard", err)
			return 1
		}
		return 0
	}

	cfg, err := loadOrCreateConfig()
	if err != nil {
		logger.Error("Error loading config", err)
		return 1
	}
	if opts.sessionType != "" {
		cfg.SessionType = opts.sessionType
	}

	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		logger.Error("Failed to initialize file operations", err)
		return 1
	}
	if err := fileOps.EnsureDirectories(); err != nil {
		logger.Error("Failed to create necessary directories", err)
		return 1
	}

	statsManager := stats.NewStatsManager(fileOps.GetStatsPath())
	if opts.stats {
		printStats(statsManager.GetStats())
		return 0
	}

	if err := fileOps.CheckPID(); err != nil {
		if errors.Is(err, fileops.ErrProcessAlreadyRunning) {
			logger.Error("Another instance of Ventify is already running", err)
			return 1
		}
	}
	if err := fileOps.SavePID(); err != nil {
		logger.Error("Failed to save PID file", err)
		return 1
	}
	defer func() {
		if err := fileOps.CleanupPID(); err != nil {
			logger.Error("Failed to cleanup PID file", err)
		}
	}()

	var notifier notification.Notifier
	if opts.daemon {
		// the desktop extension renders all UI
		notifier = notification.NewSilent()
	} else {
		notifier = notification.New()
	}

	sinks := venting.MultiSink{statsManager}
	apiClient, err := sessionapi.NewClient(cfg.GetAPIConfig())
	if err != nil {
		logger.Warn("Sessions API not configured, summaries stay local")
	} else {
		sinks = append(sinks, apiClient)
		defer waitForUploads(apiClient)
	}

	aud := cfg.GetAudioConfig()
	source := audio.NewMicSource(audio.AnalyserConfig{
		SampleRate:  aud.SampleRate,
		FFTSize:     aud.FFTSize,
		Smoothing:   *aud.Smoothing,
		MinDecibels: aud.MinDecibels,
		MaxDecibels: aud.MaxDecibels,
	}, aud.DeviceName)

	monitor := venting.NewMonitor(source, sinks, notifier, venting.ConfigFrom(cfg))
	// any exit path releases the microphone and stores what was recorded
	defer monitor.End()

	if fc := cfg.GetFeedConfig(); fc.Enabled {
		feedServer := feed.NewServer(fc, monitor, statsManager)
		if err := feedServer.Start(); err != nil {
			logger.Error("Failed to start live feed", err)
			return 1
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := feedServer.Shutdown(ctx); err != nil {
				logger.Error("Failed to stop live feed", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if opts.daemon {
		return runDaemon(monitor, statsManager, cfg.GetSessionType(), sigChan)
	}
	return runInteractive(monitor, notifier, cfg.GetSessionType(), opts.duration, sigChan)
}

func loadOrCreateConfig() (*types.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	logger.Info("No configuration found. Running setup wizard...")
	if err := config.RunWizard(); err != nil {
		return nil, err
	}
	cfg, err = config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func runDaemon(monitor *venting.Monitor, statsManager *stats.StatsManager, sessionType string, sigChan <-chan os.Signal) int {
	server := dbus.NewServer(monitor, statsManager, sessionType)
	if err := server.Start(); err != nil {
		logger.Error("Failed to start D-Bus service", err)
		return 1
	}
	defer server.Stop()

	logger.Info("💡 Waiting for the desktop extension to start a session")
	sig := <-sigChan
	logger.Infof("Received signal %v, shutting down...", sig)
	return 0
}

func runInteractive(monitor *venting.Monitor, notifier notification.Notifier, sessionType string, limit time.Duration, sigChan <-chan os.Signal) int {
	events, unsubscribe := monitor.Subscribe()
	defer unsubscribe()

	if err := monitor.Begin(context.Background(), sessionType); err != nil {
		var acq *audio.AcquisitionError
		if errors.As(err, &acq) {
			color.New(color.FgRed).Println(acq.Error())
			notifier.NotifyError(acq.Error())
		} else {
			logger.Error("Failed to start session", err)
		}
		return 1
	}
	if err := notifier.NotifySessionStarted(sessionType); err != nil {
		logger.Warn("Could not send notification")
	}

	fmt.Println("🎙️ Let it out! Press Ctrl+C to finish.")

	var timeout <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case sig := <-sigChan:
			logger.Debugf("Received signal %v, ending session", sig)
			return finish(monitor, notifier)
		case <-timeout:
			logger.Infof("Session limit of %s reached", limit)
			return finish(monitor, notifier)
		case ev := <-events:
			printEvent(ev)
		}
	}
}

func finish(monitor *venting.Monitor, notifier notification.Notifier) int {
	summary, ok := monitor.End()
	if !ok {
		return 0
	}
	fmt.Println()
	color.New(color.Bold).Println("Session summary")
	fmt.Printf("  Duration:      %02d:%02d\n", summary.DurationSeconds/60, summary.DurationSeconds%60)
	fmt.Printf("  Peak:          %.0f\n", summary.MaxIntensity)
	fmt.Printf("  Average:       %.1f\n", summary.AvgIntensity)
	fmt.Printf("  Screams:       %d\n", summary.EventCount)

	if err := notifier.NotifySessionSummary(summary); err != nil {
		logger.Warn("Could not send notification")
	}
	return 0
}

func printEvent(ev venting.Event) {
	switch ev.Type {
	case venting.EventMessage:
		c, ok := levelColors[ev.Message.Level]
		if !ok {
			c = color.New(color.Reset)
		}
		c.Printf("[%s] %s\n", ev.Message.Level, ev.Message.Text)
	case venting.EventUpdate:
		u := ev.Update
		logger.Debugf("intensity=%.1f max=%.0f elapsed=%ds screams=%d active=%t",
			u.Intensity, u.MaxIntensity, u.ElapsedSeconds, u.EventCount, u.EventActive)
	}
}

// waitForUploads gives background saves a bounded chance to finish
func waitForUploads(client *sessionapi.Client) {
	done := make(chan struct{})
	go func() {
		client.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(35 * time.Second):
		logger.Warn("Gave up waiting for session upload")
	}
}

func printStats(s stats.Stats) {
	if len(s.SessionTypes) == 0 {
		fmt.Println("ℹ️ No sessions recorded yet.")
		return
	}

	names := make([]string, 0, len(s.SessionTypes))
	for name := range s.SessionTypes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := s.SessionTypes[name]
		color.New(color.Bold).Printf("%s\n", name)
		fmt.Printf("  Sessions:      %d\n", st.SessionCount)
		fmt.Printf("  Total time:    %s\n", time.Duration(st.TotalSeconds)*time.Second)
		fmt.Printf("  Screams:       %d\n", st.ScreamCount)
		fmt.Printf("  Peak:          %.0f\n", st.PeakDecibel)
	}
}
