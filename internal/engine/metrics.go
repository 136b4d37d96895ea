package engine

import (
	"time"

	"github.com/lexward/wordflow/internal/model"
)

// latencyWindowSize bounds the moving window of per-item latency samples.
const latencyWindowSize = 100

// metrics tracks per-run latency samples and derives ETA and throughput. One
// instance is owned exclusively by the active processing run for a session,
// so no locking is needed beyond the session-level mutual exclusion.
type metrics struct {
	samples []time.Duration
	next    int
}

func newMetrics() *metrics {
	return &metrics{samples: make([]time.Duration, 0, latencyWindowSize)}
}

// record adds one per-item latency sample, evicting the oldest once the
// window is full.
func (m *metrics) record(d time.Duration) {
	if len(m.samples) < latencyWindowSize {
		m.samples = append(m.samples, d)
		return
	}
	m.samples[m.next] = d
	m.next = (m.next + 1) % latencyWindowSize
}

// averageMS returns the mean per-item latency in milliseconds, 0 with no
// samples.
func (m *metrics) averageMS() float64 {
	if len(m.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range m.samples {
		total += s
	}
	return float64(total.Milliseconds()) / float64(len(m.samples))
}

// etaSeconds estimates remaining processing time. It is 0 whenever no samples
// exist yet and never negative.
func (m *metrics) etaSeconds(remaining int) float64 {
	if remaining <= 0 {
		return 0
	}
	avg := m.averageMS()
	if avg == 0 {
		return 0
	}
	return float64(remaining) * avg / 1000
}

// ratePerMinute returns processed words per elapsed minute since start, 0 if
// the run has not started.
func ratePerMinute(processed int, startedAt *time.Time, now time.Time) float64 {
	if startedAt == nil || processed <= 0 {
		return 0
	}
	elapsed := now.Sub(*startedAt).Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(processed) / elapsed
}

// snapshot derives the stats payload for progress events.
func (m *metrics) snapshot(session *model.ProcessingSession, now time.Time) model.ProcessingStats {
	remaining := session.TotalWords - session.ProcessedWords
	if remaining < 0 {
		remaining = 0
	}

	return model.ProcessingStats{
		TotalWords:             session.TotalWords,
		ProcessedWords:         session.ProcessedWords,
		SuccessfulWords:        session.SuccessfulWords,
		FailedWords:            session.FailedWords,
		CurrentChunk:           session.CurrentChunk,
		TotalChunks:            session.TotalChunks,
		TotalTokensUsed:        session.TotalTokensUsed,
		EstimatedCost:          session.EstimatedCost,
		AverageProcessingMS:    m.averageMS(),
		EstimatedTimeRemaining: m.etaSeconds(remaining),
		ProcessingRate:         ratePerMinute(session.ProcessedWords, session.StartedAt, now),
	}
}
