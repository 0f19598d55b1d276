package telemetry

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Sample is one recorded tracker observation.
type Sample struct {
	Timestamp int64   `json:"timestamp"` // milliseconds
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Progress  float64 `json:"progress"`
	Speed     float64 `json:"speed"`
	Balanced  bool    `json:"balanced"`
	Event     string  `json:"event,omitempty"` // balance_lost, failure, milestone...
}

// Manager collects tracker samples into a bounded buffer and keeps
// per-event counters. It is constructor-injected wherever needed; there is
// no package-level instance.
type Manager struct {
	mu         sync.RWMutex
	enabled    bool
	data       []Sample
	maxEntries int
	counters   map[string]int

	logger        *log.Logger
	lastPrint     time.Time
	printInterval time.Duration
}

// NewManager creates an enabled manager keeping the last 200 samples.
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		enabled:       true,
		data:          make([]Sample, 0),
		maxEntries:    200,
		counters:      make(map[string]int),
		logger:        logger,
		lastPrint:     time.Now(),
		printInterval: 2 * time.Second,
	}
}

// RecordSample stores one tracker observation.
func (m *Manager) RecordSample(pos mgl64.Vec3, progress, speed float64, balanced bool) {
	m.record(Sample{
		Timestamp: time.Now().UnixMilli(),
		X:         pos.X(),
		Y:         pos.Y(),
		Z:         pos.Z(),
		Progress:  progress,
		Speed:     speed,
		Balanced:  balanced,
	})
}

// RecordEvent stores a named tracker event alongside the sample stream.
func (m *Manager) RecordEvent(event string) {
	m.record(Sample{
		Timestamp: time.Now().UnixMilli(),
		Event:     event,
	})
}

func (m *Manager) record(s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}

	m.data = append(m.data, s)
	if len(m.data) > m.maxEntries {
		m.data = m.data[1:]
	}

	key := "sample"
	if s.Event != "" {
		key = s.Event
	}
	m.counters[key]++
}

// PrintSummary logs counters at most once per print interval.
func (m *Manager) PrintSummary() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}
	now := time.Now()
	if now.Sub(m.lastPrint) < m.printInterval {
		return
	}

	m.logger.Printf("[Telemetry] %d samples buffered", len(m.data))
	for key, count := range m.counters {
		m.logger.Printf("[Telemetry] %s: %d", key, count)
	}

	m.counters = make(map[string]int)
	m.lastPrint = now
}

// JSON exports the buffered samples.
func (m *Manager) JSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(m.data)
}

// SetEnabled toggles collection.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// Clear drops all buffered data.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]Sample, 0)
	m.counters = make(map[string]int)
}
