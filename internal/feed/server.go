package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dooshek/ventify/internal/logger"
	"github.com/dooshek/ventify/internal/types"
	"github.com/dooshek/ventify/internal/venting"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Monitor is what the feed reads from
type Monitor interface {
	State() venting.SessionState
	Subscribe() (<-chan venting.Event, func())
}

// StatsProvider backs GET /api/stats
type StatsProvider interface {
	GetStatsJSON() (string, error)
}

// Envelope is one WebSocket frame
type Envelope struct {
	Type venting.EventType `json:"type"`
	Data any               `json:"data"`
}

// Server streams live session data to browser front-ends
type Server struct {
	monitor  Monitor
	stats    StatsProvider
	router   *mux.Router
	handler  http.Handler
	upgrader websocket.Upgrader
	server   *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

// NewServer creates the feed. stats may be nil.
func NewServer(cfg types.FeedConfig, monitor Monitor, stats StatsProvider) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		monitor: monitor,
		stats:   stats,
		router:  mux.NewRouter(),
		ctx:     ctx,
		cancel:  cancel,
	}

	origins := cfg.AllowedOrigins
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
		},
	}

	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowCredentials: true,
	})
	s.handler = c.Handler(s.router)

	s.server = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.handler,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.wsHandler).Methods(http.MethodGet)
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	logger.Infof("📡 Live feed listening on %s", ln.Addr())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Live feed stopped", err)
		}
	}()
	return nil
}

// Shutdown closes WebSocket clients and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.server.Shutdown(ctx)
	s.conns.Wait()
	return err
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.State())
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "stats disabled"})
		return
	}
	data, err := s.stats.GetStatsJSON()
	if err != nil {
		logger.Error("Failed to read stats", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(data))
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debugf("WebSocket upgrade failed: %v", err)
		return
	}
	s.conns.Add(1)
	defer s.conns.Done()
	defer conn.Close()

	events, unsubscribe := s.monitor.Subscribe()
	defer unsubscribe()

	logger.Debugf("Feed client connected: %s", r.RemoteAddr)

	// clients only talk to us to close; reading surfaces that
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debugf("Feed client read error: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-s.ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(envelopeFor(ev)); err != nil {
				logger.Debugf("Feed client write failed: %v", err)
				return
			}
		}
	}
}

func envelopeFor(ev venting.Event) Envelope {
	switch ev.Type {
	case venting.EventUpdate:
		return Envelope{Type: ev.Type, Data: ev.Update}
	case venting.EventMessage:
		return Envelope{Type: ev.Type, Data: ev.Message}
	case venting.EventSummary:
		return Envelope{Type: ev.Type, Data: ev.Summary}
	default:
		return Envelope{Type: ev.Type, Data: map[string]string{"session_type": ev.SessionType}}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", err)
	}
}
