package venting

import "time"

// SummarySink receives the summary of every finished session.
// Persist must not block; slow work belongs in a goroutine.
type SummarySink interface {
	Persist(summary Summary)
}

// SinkFunc adapts a function to SummarySink
type SinkFunc func(Summary)

func (f SinkFunc) Persist(s Summary) { f(s) }

// MultiSink hands each summary to every sink in order
type MultiSink []SummarySink

func (m MultiSink) Persist(s Summary) {
	for _, sink := range m {
		if sink != nil {
			sink.Persist(s)
		}
	}
}

// Haptic is fire-and-forget vibration. Platforms without it do nothing.
type Haptic interface {
	Vibrate(d time.Duration)
}

type noHaptic struct{}

func (noHaptic) Vibrate(time.Duration) {}
