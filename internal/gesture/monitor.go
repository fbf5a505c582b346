// Package gesture implements the command pipeline: a bounded multi-producer
// queue drained by a single execution worker that smooths, predicts and
// dispatches gesture commands to the host input controller.
package gesture

import (
	"sync"
	"time"
)

// Stats is a point-in-time view of pipeline performance.
type Stats struct {
	CommandsPerSecond float64 `json:"commands_per_second"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	MaxLatencyMs      float64 `json:"max_latency_ms"`
	MinLatencyMs      float64 `json:"min_latency_ms"`
	Errors            int64   `json:"errors"`
	DroppedCommands   int64   `json:"dropped_commands"`
}

// Monitor accumulates processed-command counts and latency extrema. It is the
// one pipeline structure written from multiple goroutines (worker on success,
// listeners and queue on error paths), so everything is mutex-guarded.
// Counters only grow until process restart.
type Monitor struct {
	mu           sync.Mutex
	count        int64
	totalLatency time.Duration
	maxLatency   time.Duration
	minLatency   time.Duration
	errors       int64
	dropped      int64
	startTime    time.Time
}

// NewMonitor creates a monitor anchored at the current time.
func NewMonitor() *Monitor {
	return &Monitor{startTime: time.Now()}
}

// RecordCommand folds one processed command's latency into the counters.
func (m *Monitor) RecordCommand(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.count++
	m.totalLatency += latency
	if latency > m.maxLatency {
		m.maxLatency = latency
	}
	if m.count == 1 || latency < m.minLatency {
		m.minLatency = latency
	}
}

// RecordError counts a failed dispatch or transport decode error.
func (m *Monitor) RecordError() {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}

// RecordDrop counts a command shed by the full queue.
func (m *Monitor) RecordDrop() {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

// Snapshot derives the externally visible stats. Latency fields are zero
// until the first command has been processed.
func (m *Monitor) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		return Stats{Errors: m.errors, DroppedCommands: m.dropped}
	}

	elapsed := time.Since(m.startTime).Seconds()
	stats := Stats{
		AvgLatencyMs:    float64(m.totalLatency.Microseconds()) / float64(m.count) / 1000.0,
		MaxLatencyMs:    float64(m.maxLatency.Microseconds()) / 1000.0,
		MinLatencyMs:    float64(m.minLatency.Microseconds()) / 1000.0,
		Errors:          m.errors,
		DroppedCommands: m.dropped,
	}
	if elapsed > 0 {
		stats.CommandsPerSecond = float64(m.count) / elapsed
	}
	return stats
}
