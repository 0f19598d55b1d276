package sequence

import (
	"fmt"
	"log"
	"sync"

	"bridgewalk/internal/bridge"
	"bridgewalk/internal/tracking"
)

// BridgeLoader rebuilds the bridge for a config and hands back the tracker
// watching it. The loader owns tracker lifecycle; returning the same
// tracker across rebuilds is allowed and the manager will not
// double-subscribe.
type BridgeLoader interface {
	LoadBridge(cfg bridge.Config) (*tracking.Tracker, error)
}

// Events receives sequence-level notifications. Either callback may be nil
// via NopEvents; the manager degrades to silent operation.
type Events interface {
	OnBridgeLoaded(index int, cfg bridge.Config)
	OnSequenceCompleted()
}

// NopEvents is an Events implementation that does nothing.
type NopEvents struct{}

func (NopEvents) OnBridgeLoaded(index int, cfg bridge.Config) {}
func (NopEvents) OnSequenceCompleted()                        {}

// Manager orchestrates progression through an ordered config list. It
// subscribes itself to the tracker of every loaded bridge; when progress
// crosses the advance threshold it defers the advance by one tick so the
// surrounding UI can settle, then rebuilds with the next config.
type Manager struct {
	tracking.BaseListener

	mu        sync.Mutex
	configs   []bridge.Config
	index     int
	threshold float64
	loop      bool

	loader BridgeLoader
	events Events
	logger *log.Logger

	tracker        *tracking.Tracker
	advancing      bool // re-entrancy guard around advance
	pendingAdvance bool // consumed by the next Update tick
	completed      bool
}

// NewManager creates a manager over an ordered config list.
// threshold <= 0 selects the default of 0.95.
func NewManager(configs []bridge.Config, threshold float64, loop bool, loader BridgeLoader, events Events, logger *log.Logger) *Manager {
	if threshold <= 0 {
		threshold = 0.95
	}
	if events == nil {
		events = NopEvents{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		configs:   configs,
		threshold: threshold,
		loop:      loop,
		loader:    loader,
		events:    events,
		logger:    logger,
	}
}

// OnProgressChanged implements tracking.Listener: crossing the advance
// threshold schedules an advance for the next tick.
func (m *Manager) OnProgressChanged(progress, speed float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.completed || m.advancing || m.pendingAdvance {
		return
	}
	if progress >= m.threshold {
		m.pendingAdvance = true
		m.logger.Printf("[Sequence] advance threshold crossed at %.2f, deferring one tick", progress)
	}
}

// OnCrossingCompleted implements tracking.Listener.
func (m *Manager) OnCrossingCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.completed && !m.advancing {
		m.pendingAdvance = true
	}
}

// Update consumes a deferred advance. Call once per tick.
func (m *Manager) Update() {
	m.mu.Lock()
	if !m.pendingAdvance || m.advancing {
		m.mu.Unlock()
		return
	}
	m.pendingAdvance = false
	m.mu.Unlock()

	m.AdvanceToNextBridge()
}

// AdvanceToNextBridge advances to the next config, wrapping or completing
// per the loop flag. Safe to call multiple times; re-entrant calls and
// calls after completion are no-ops.
func (m *Manager) AdvanceToNextBridge() {
	m.mu.Lock()
	if m.advancing || m.completed {
		m.mu.Unlock()
		return
	}
	m.advancing = true
	next := m.index + 1
	wrap := next >= len(m.configs)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.advancing = false
		m.mu.Unlock()
	}()

	if wrap {
		if !m.loop {
			m.mu.Lock()
			m.completed = true
			m.mu.Unlock()
			m.logger.Printf("[Sequence] sequence completed after bridge %d", m.index)
			m.events.OnSequenceCompleted()
			return
		}
		next = 0
	}

	if err := m.loadIndex(next); err != nil {
		m.logger.Printf("[Sequence] advance to bridge %d failed: %v", next, err)
	}
}

// RestartSequence reloads the first bridge and clears completion. Safe to
// call multiple times.
func (m *Manager) RestartSequence() {
	m.mu.Lock()
	if m.advancing {
		m.mu.Unlock()
		return
	}
	m.advancing = true
	m.completed = false
	m.pendingAdvance = false
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.advancing = false
		m.mu.Unlock()
	}()

	if err := m.loadIndex(0); err != nil {
		m.logger.Printf("[Sequence] restart failed: %v", err)
	}
}

// LoadBridgeAtIndex validates bounds and rebuilds with configs[i].
func (m *Manager) LoadBridgeAtIndex(i int) error {
	m.mu.Lock()
	if m.advancing {
		m.mu.Unlock()
		return fmt.Errorf("load already in progress")
	}
	m.advancing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.advancing = false
		m.mu.Unlock()
	}()

	return m.loadIndex(i)
}

func (m *Manager) loadIndex(i int) error {
	if i < 0 || i >= len(m.configs) {
		return fmt.Errorf("bridge index %d out of range [0, %d)", i, len(m.configs))
	}
	cfg := m.configs[i]

	tracker, err := m.loader.LoadBridge(cfg)
	if err != nil {
		return fmt.Errorf("loading bridge %d: %w", i, err)
	}

	m.mu.Lock()
	m.index = i
	m.completed = false
	m.pendingAdvance = false
	// A rebuild may hand us a brand new tracker; subscribe exactly once.
	if tracker != nil && tracker != m.tracker {
		m.tracker = tracker
		tracker.AddListener(m)
	}
	m.mu.Unlock()

	if tracker != nil {
		tracker.ResetProgress()
	}

	m.logger.Printf("[Sequence] loaded bridge %d (%d planks, length %.1f)", i, cfg.PlankCount, cfg.BridgeLength)
	m.events.OnBridgeLoaded(i, cfg)
	return nil
}

// CurrentIndex returns the index of the loaded bridge.
func (m *Manager) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// IsCompleted reports whether the sequence ran past its last bridge with
// looping disabled.
func (m *Manager) IsCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}
