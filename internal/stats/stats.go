package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/dooshek/ventify/internal/logger"
	"github.com/dooshek/ventify/internal/venting"
)

// SessionTypeStats holds totals for one session type
type SessionTypeStats struct {
	TotalSeconds int     `json:"total_seconds"`
	SessionCount int     `json:"session_count"`
	ScreamCount  int     `json:"scream_count"`
	PeakDecibel  float64 `json:"peak_decibel"`
}

// Stats holds all venting statistics
type Stats struct {
	SessionTypes map[string]*SessionTypeStats `json:"session_types"`
}

// StatsManager keeps statistics on disk. It is a venting.SummarySink.
type StatsManager struct {
	stats    Stats
	filePath string
	mu       sync.Mutex
}

// NewStatsManager creates a stats manager backed by filePath and loads existing data
func NewStatsManager(filePath string) *StatsManager {
	sm := &StatsManager{
		filePath: filePath,
		stats:    Stats{SessionTypes: make(map[string]*SessionTypeStats)},
	}

	if err := sm.load(); err != nil {
		logger.Debugf("Could not load stats (will start fresh): %v", err)
	}

	return sm
}

// Persist adds a finished session to the totals and saves immediately
func (sm *StatsManager) Persist(summary venting.Summary) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.stats.SessionTypes == nil {
		sm.stats.SessionTypes = make(map[string]*SessionTypeStats)
	}

	st, ok := sm.stats.SessionTypes[summary.SessionType]
	if !ok {
		st = &SessionTypeStats{}
		sm.stats.SessionTypes[summary.SessionType] = st
	}

	st.TotalSeconds += summary.DurationSeconds
	st.SessionCount++
	st.ScreamCount += summary.EventCount
	st.PeakDecibel = math.Max(st.PeakDecibel, summary.MaxIntensity)

	if err := sm.save(); err != nil {
		logger.Error("Failed to save stats after session", err)
	}
}

// GetStats returns a deep copy of current statistics
func (sm *StatsManager) GetStats() Stats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	statsCopy := Stats{SessionTypes: make(map[string]*SessionTypeStats)}
	for name, st := range sm.stats.SessionTypes {
		c := *st
		statsCopy.SessionTypes[name] = &c
	}
	return statsCopy
}

// GetStatsJSON returns statistics as a JSON string (for D-Bus)
func (sm *StatsManager) GetStatsJSON() (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, err := json.Marshal(sm.stats)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stats to JSON: %w", err)
	}

	return string(data), nil
}

// Reset clears all statistics and persists empty state
func (sm *StatsManager) Reset() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stats = Stats{SessionTypes: make(map[string]*SessionTypeStats)}

	if err := sm.save(); err != nil {
		return fmt.Errorf("failed to save reset stats: %w", err)
	}
	return nil
}

func (sm *StatsManager) load() error {
	data, err := os.ReadFile(sm.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("Stats file not found, starting fresh: %s", sm.filePath)
			return nil
		}
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	if err := json.Unmarshal(data, &sm.stats); err != nil {
		return fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	if sm.stats.SessionTypes == nil {
		sm.stats.SessionTypes = make(map[string]*SessionTypeStats)
	}

	logger.Debugf("Loaded stats from %s", sm.filePath)
	return nil
}

// save writes to a temp file and renames it over the old one
func (sm *StatsManager) save() error {
	dir := filepath.Dir(sm.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	data, err := json.MarshalIndent(sm.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tempFile := sm.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp stats file: %w", err)
	}

	if err := os.Rename(tempFile, sm.filePath); err != nil {
		return fmt.Errorf("failed to rename temp stats file: %w", err)
	}

	logger.Debugf("Saved stats to %s", sm.filePath)
	return nil
}
