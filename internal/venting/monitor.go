package venting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dooshek/ventify/internal/audio"
	"github.com/dooshek/ventify/internal/logger"
	"github.com/dooshek/ventify/internal/types"
	"github.com/google/uuid"
)

const subscriberBuffer = 64

// Config tunes a Monitor. Zero values take the defaults.
type Config struct {
	Threshold     float64
	Debounce      time.Duration
	Inactivity    time.Duration
	Haptic        time.Duration
	FrameInterval time.Duration // analysis cadence, ~60 Hz by default
	UIThrottle    time.Duration
	Messages      map[Level][]string
	Clock         Clock
	Selector      Selector
}

// ConfigFrom derives monitor settings from the application config
func ConfigFrom(cfg *types.Config) Config {
	det := cfg.GetDetectorConfig()
	aud := cfg.GetAudioConfig()

	messages := make(map[Level][]string)
	for name, pool := range cfg.Messages {
		if l, ok := ParseLevel(name); ok {
			messages[l] = pool
		} else {
			logger.Warnf("Ignoring messages for unknown level %q", name)
		}
	}

	return Config{
		Threshold:     det.Threshold,
		Debounce:      det.Debounce,
		Inactivity:    det.Inactivity,
		Haptic:        det.Haptic,
		FrameInterval: time.Second / time.Duration(aud.FrameRate),
		UIThrottle:    aud.UIThrottle,
		Messages:      messages,
	}
}

func (c Config) withDefaults() Config {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Inactivity == 0 {
		c.Inactivity = DefaultInactivity
	}
	if c.Haptic == 0 {
		c.Haptic = DefaultHaptic
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = time.Second / 60
	}
	if c.UIThrottle <= 0 {
		c.UIThrottle = audio.DefaultUIThrottle
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.Selector == nil {
		c.Selector = RandomSelector
	}
	return c
}

// Update is the throttled UI snapshot
type Update struct {
	Intensity      float64 `json:"intensity"`
	MaxIntensity   float64 `json:"max_intensity"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	EventCount     int     `json:"event_count"`
	EventActive    bool    `json:"event_active"`
	Level          Level   `json:"level"`
}

// Message is an encouragement line shown on a level change
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

type EventType string

const (
	EventStarted EventType = "started"
	EventUpdate  EventType = "update"
	EventMessage EventType = "message"
	EventSummary EventType = "summary"
)

// Event is what subscribers receive. Exactly one payload field is set,
// except for EventStarted which only carries SessionType.
type Event struct {
	Type        EventType
	SessionType string
	Update      *Update
	Message     *Message
	Summary     *Summary
}

// handle is the explicit per-session audio graph. Only the session that
// owns the current handle may touch monitor state.
type handle struct {
	id          string
	sessionType string
	startedAt   time.Time
	stream      audio.Stream
	bins        []uint8
	cancel      context.CancelFunc
	done        chan struct{}
}

// Monitor is the audio intensity monitor: it owns one session at a time,
// runs the analysis loop, detects events and hands the summary on.
type Monitor struct {
	cfg    Config
	source audio.Source
	sink   SummarySink
	haptic Haptic
	pools  map[Level][]string

	// life serializes Begin and End. End holds it until the stream is
	// closed and the summary handed off, so a new session never opens a
	// device while the previous one is still being torn down.
	life sync.Mutex

	mu       sync.Mutex
	session  *handle
	agg      Aggregator
	detector *Detector
	throttle *audio.LevelThrottle

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSub     int
}

func NewMonitor(source audio.Source, sink SummarySink, haptic Haptic, cfg Config) *Monitor {
	cfg = cfg.withDefaults()
	if sink == nil {
		sink = MultiSink(nil)
	}
	if haptic == nil {
		haptic = noHaptic{}
	}

	return &Monitor{
		cfg:         cfg,
		source:      source,
		sink:        sink,
		haptic:      haptic,
		pools:       mergeMessages(cfg.Messages),
		detector:    NewDetector(cfg.Threshold, cfg.Debounce, cfg.Inactivity),
		throttle:    audio.NewLevelThrottle(cfg.UIThrottle),
		subscribers: make(map[int]chan Event),
	}
}

// IsRecording reports whether a session is active
func (m *Monitor) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// State returns a snapshot of the current (or last) session state
func (m *Monitor) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.agg.State()
	st.Readings = nil
	return st
}

// Subscribe returns a channel of monitor events and a function that
// unsubscribes. Slow subscribers lose events rather than stall analysis.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Event, subscriberBuffer)
	m.subscribers[id] = ch

	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if c, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(c)
		}
	}
}

func (m *Monitor) publish(ev Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
			// drop if subscriber is full
		}
	}
}

// Begin opens the microphone and starts a session tagged sessionType.
// Calling it while a session is active does nothing. Acquisition errors
// wrap *audio.AcquisitionError and leave nothing open.
func (m *Monitor) Begin(ctx context.Context, sessionType string) error {
	m.life.Lock()
	defer m.life.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		logger.Debug("Session already recording, ignoring begin")
		return nil
	}

	stream, err := m.source.Open(ctx)
	if err != nil {
		if stream != nil {
			stream.Close()
		}
		logger.Error("Could not open microphone", err)
		return fmt.Errorf("failed to start session: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	h := &handle{
		id:          uuid.NewString(),
		sessionType: sessionType,
		startedAt:   m.cfg.Clock.Now(),
		stream:      stream,
		bins:        make([]uint8, stream.BinCount()),
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	m.agg.Reset()
	m.detector.Reset()
	m.throttle.Reset()
	m.session = h

	go m.loop(loopCtx, h)

	log := logger.With("session_id", h.id, "session_type", sessionType)
	log.Info().Msg("🎙️ Venting session started")
	m.publish(Event{Type: EventStarted, SessionType: sessionType})
	return nil
}

// End stops the active session and returns its summary. When nothing is
// recording it returns false and has no side effects, so duplicate stops
// from UI and teardown are harmless. On return the analysis loop has
// exited and the microphone is released. A Begin racing with End waits
// until End returns.
func (m *Monitor) End() (Summary, bool) {
	m.life.Lock()
	defer m.life.Unlock()

	m.mu.Lock()
	h := m.session
	if h == nil {
		m.mu.Unlock()
		return Summary{}, false
	}
	m.session = nil
	m.detector.Reset()
	final := m.agg.Stop()
	m.mu.Unlock()

	h.cancel()
	<-h.done

	if err := h.stream.Close(); err != nil {
		logger.Error("Failed to release microphone", err)
	}

	summary := Summarize(final, h.sessionType)
	summary.SessionID = h.id
	summary.StartedAt = h.startedAt

	log := logger.With("session_id", h.id, "session_type", h.sessionType)
	log.Info().
		Int("duration", summary.DurationSeconds).
		Float64("max", summary.MaxIntensity).
		Float64("avg", summary.AvgIntensity).
		Int("screams", summary.EventCount).
		Msg("🎙️ Venting session finished")

	m.sink.Persist(summary)
	m.publish(Event{Type: EventSummary, SessionType: h.sessionType, Summary: &summary})
	return summary, true
}

func (m *Monitor) loop(ctx context.Context, h *handle) {
	defer close(h.done)

	frames := time.NewTicker(m.cfg.FrameInterval)
	defer frames.Stop()
	seconds := time.NewTicker(time.Second)
	defer seconds.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-frames.C:
			m.frame(h)
		case <-seconds.C:
			m.second(h)
		}
	}
}

// frame runs one analysis tick for h
func (m *Monitor) frame(h *handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != h {
		return
	}

	n := h.stream.FrequencyData(h.bins)
	m.observe(m.cfg.Clock.Now(), audio.Intensity(h.bins[:n]))
}

func (m *Monitor) second(h *handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != h {
		return
	}
	m.agg.TickSecond()
}

// observe processes one intensity sample. Caller holds m.mu.
// Order matters: record, then detect, then the throttled UI update.
func (m *Monitor) observe(now time.Time, intensity float64) {
	m.agg.Add(intensity)

	if level := Classify(intensity); level != m.agg.state.CurrentLevel {
		m.agg.state.CurrentLevel = level
		text := m.cfg.Selector(level, m.pools[level])
		m.publish(Event{Type: EventMessage, Message: &Message{Level: level, Text: text}})
	}

	if m.detector.Observe(now, intensity) {
		m.haptic.Vibrate(m.cfg.Haptic)
	}
	m.agg.state.EventCount = m.detector.Count()
	m.agg.state.IsEventActive = m.detector.Active()

	if m.throttle.Allow(now) {
		st := m.agg.state
		m.publish(Event{Type: EventUpdate, Update: &Update{
			Intensity:      intensity,
			MaxIntensity:   st.MaxIntensity,
			ElapsedSeconds: st.ElapsedSeconds,
			EventCount:     st.EventCount,
			EventActive:    st.IsEventActive,
			Level:          st.CurrentLevel,
		}})
	}
}
