package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dooshek/ventify/internal/audio"
	"github.com/dooshek/ventify/internal/logger"
	"github.com/dooshek/ventify/internal/venting"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	dbusServiceName = "com.dooshek.ventify"
	dbusObjectPath  = "/com/dooshek/ventify/Monitor"
	dbusInterface   = "com.dooshek.ventify.Monitor"
)

// Monitor is the part of venting.Monitor the service drives
type Monitor interface {
	Begin(ctx context.Context, sessionType string) error
	End() (venting.Summary, bool)
	IsRecording() bool
	Subscribe() (<-chan venting.Event, func())
}

// StatsProvider serves the GetStats method
type StatsProvider interface {
	GetStatsJSON() (string, error)
}

// Server implements D-Bus service for ventify sessions
type Server struct {
	conn        *dbus.Conn
	monitor     Monitor
	stats       StatsProvider
	sessionType string
	emit        func(name string, args ...interface{})

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	wg     sync.WaitGroup
}

// NewServer creates a D-Bus server around monitor. stats may be nil.
func NewServer(monitor Monitor, stats StatsProvider, sessionType string) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		monitor:     monitor,
		stats:       stats,
		sessionType: sessionType,
		ctx:         ctx,
		cancel:      cancel,
	}
	s.emit = s.emitSignal
	return s
}

// Start connects to the session bus, exports the object and starts
// forwarding monitor events as signals
func (s *Server) Start() error {
	var err error
	s.conn, err = dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	reply, err := s.conn.RequestName(dbusServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		s.conn.Close()
		return fmt.Errorf("name already taken")
	}

	if err := s.conn.Export(s, dbusObjectPath, dbusInterface); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to export object: %w", err)
	}

	err = s.conn.Export(introspect.NewIntrospectable(introspectNode()), dbusObjectPath, "org.freedesktop.DBus.Introspectable")
	if err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	s.forwardEvents()

	logger.Infof("🔌 D-Bus service started: %s", dbusServiceName)
	return nil
}

func introspectNode() *introspect.Node {
	return &introspect.Node{
		Name: dbusObjectPath,
		Interfaces: []introspect.Interface{{
			Name: dbusInterface,
			Methods: []introspect.Method{
				{Name: "ToggleSession"},
				{
					Name: "GetStatus",
					Args: []introspect.Arg{
						{Name: "is_recording", Type: "b", Direction: "out"},
					},
				},
				{
					Name: "GetStats",
					Args: []introspect.Arg{
						{Name: "stats_json", Type: "s", Direction: "out"},
					},
				},
			},
			Signals: []introspect.Signal{
				{
					Name: "SessionStarted",
					Args: []introspect.Arg{{Name: "session_type", Type: "s"}},
				},
				{
					Name: "LevelChanged",
					Args: []introspect.Arg{
						{Name: "level", Type: "s"},
						{Name: "message", Type: "s"},
					},
				},
				{
					Name: "SessionSummary",
					Args: []introspect.Arg{{Name: "summary_json", Type: "s"}},
				},
				{
					Name: "SessionError",
					Args: []introspect.Arg{{Name: "error", Type: "s"}},
				},
			},
		}},
	}
}

// forwardEvents turns monitor events into signals until Stop
func (s *Server) forwardEvents() {
	events, unsubscribe := s.monitor.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unsubscribe()
		for {
			select {
			case <-s.ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				s.signalEvent(ev)
			}
		}
	}()
}

func (s *Server) signalEvent(ev venting.Event) {
	switch ev.Type {
	case venting.EventStarted:
		s.emit("SessionStarted", ev.SessionType)
	case venting.EventMessage:
		s.emit("LevelChanged", string(ev.Message.Level), ev.Message.Text)
	case venting.EventSummary:
		data, err := json.Marshal(ev.Summary)
		if err != nil {
			logger.Error("D-Bus: Failed to encode summary", err)
			return
		}
		s.emit("SessionSummary", string(data))
	}
}

// Stop stops the D-Bus server
func (s *Server) Stop() {
	s.cancel()
	s.wg.Wait()
	if s.conn != nil {
		s.conn.Close()
	}
	logger.Infof("🔌 D-Bus service stopped")
}

// ToggleSession starts a session, or ends the running one (D-Bus method)
func (s *Server) ToggleSession() *dbus.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debugf("D-Bus: ToggleSession called")

	if s.monitor.IsRecording() {
		// End waits for the analysis loop; don't hold the bus call
		go s.monitor.End()
		return nil
	}

	if err := s.monitor.Begin(s.ctx, s.sessionType); err != nil {
		msg := err.Error()
		var acq *audio.AcquisitionError
		if errors.As(err, &acq) {
			msg = acq.Error()
		}
		s.emit("SessionError", msg)
	}
	return nil
}

// GetStatus returns current recording status (D-Bus method)
func (s *Server) GetStatus() (bool, *dbus.Error) {
	return s.monitor.IsRecording(), nil
}

// GetStats returns the accumulated statistics as JSON (D-Bus method)
func (s *Server) GetStats() (string, *dbus.Error) {
	if s.stats == nil {
		return "{}", nil
	}
	data, err := s.stats.GetStatsJSON()
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return data, nil
}

func (s *Server) emitSignal(name string, args ...interface{}) {
	if s.conn == nil {
		logger.Warnf("D-Bus: Cannot emit signal %s - no connection", name)
		return
	}

	err := s.conn.Emit(dbus.ObjectPath(dbusObjectPath), dbusInterface+"."+name, args...)
	if err != nil {
		logger.Errorf("D-Bus: Failed to emit signal %s", err, name)
	} else {
		logger.Debugf("D-Bus: Emitted signal: %s", name)
	}
}
