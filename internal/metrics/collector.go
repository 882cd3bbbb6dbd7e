package metrics

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Pipeline stages instrumented by the predict path.
const (
	StageValidation  = "validation"
	StageFingerprint = "fingerprint"
	StageCache       = "cache"
	StageInference   = "inference"
)

// RequestMetrics holds per-stage latency measurements for one predict
// request. All methods tolerate a nil receiver, so the uninstrumented
// handler can run the same service path without allocating a collector.
type RequestMetrics struct {
	mu sync.RWMutex

	TotalStartTime time.Time `json:"-"`
	TotalLatencyMs float64   `json:"totalLatencyMs"`

	Filename  string `json:"filename"`
	FromCache bool   `json:"fromCache"`

	// Completed stage latencies by stage name.
	Timings map[string]float64 `json:"timings"`

	stageStart map[string]time.Time
}

// NewRequestMetrics creates a collector with the total clock already running.
func NewRequestMetrics(filename string) *RequestMetrics {
	return &RequestMetrics{
		TotalStartTime: time.Now(),
		Filename:       filename,
		Timings:        make(map[string]float64),
		stageStart:     make(map[string]time.Time),
	}
}

// StartStage marks the start of a pipeline stage.
func (m *RequestMetrics) StartStage(stage string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageStart[stage] = time.Now()
}

// EndStage records the elapsed time since StartStage for the same stage.
// Without a matching StartStage it is a no-op.
func (m *RequestMetrics) EndStage(stage string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if start, ok := m.stageStart[stage]; ok {
		m.Timings[stage] = float64(time.Since(start).Microseconds()) / 1000.0
		delete(m.stageStart, stage)
	}
}

// SetFromCache records whether the prediction was served from cache.
func (m *RequestMetrics) SetFromCache(fromCache bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FromCache = fromCache
}

// Finalize computes the total request latency.
func (m *RequestMetrics) Finalize() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.TotalStartTime.IsZero() {
		m.TotalLatencyMs = float64(time.Since(m.TotalStartTime).Microseconds()) / 1000.0
		m.Timings["total"] = m.TotalLatencyMs
	}
}

// Headers renders the measurements as X-Latency-* response headers.
func (m *RequestMetrics) Headers() map[string]string {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	headers := make(map[string]string)
	for stage, ms := range m.Timings {
		if stage == "total" {
			continue
		}
		headers["X-Latency-"+titleCase(stage)+"-Ms"] = formatFloat(ms)
	}
	headers["X-Latency-Total-Ms"] = formatFloat(m.TotalLatencyMs)
	headers["X-Cache-Hit"] = formatBool(m.FromCache)
	return headers
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
