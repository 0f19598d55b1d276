package sequence

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"bridgewalk/internal/bridge"
	"bridgewalk/internal/tracking"
)

// mockLoader records load calls and hands back a shared tracker, the way a
// real session reuses one tracker across rebuilds.
type mockLoader struct {
	tracker *tracking.Tracker
	loaded  []bridge.Config
	failOn  int // 1-based call number to fail on, 0 for never
}

func newMockLoader() *mockLoader {
	return &mockLoader{
		tracker: tracking.NewTracker(tracking.DefaultConfig(),
			mgl64.Vec3{0, 0, -4}, mgl64.Vec3{0, 0, 4}, log.New(io.Discard, "", 0)),
	}
}

func (m *mockLoader) LoadBridge(cfg bridge.Config) (*tracking.Tracker, error) {
	m.loaded = append(m.loaded, cfg)
	if m.failOn == len(m.loaded) {
		return nil, errors.New("simulated build failure")
	}
	return m.tracker, nil
}

// eventLog records sequence notifications.
type eventLog struct {
	loaded    []int
	completed int
}

func (e *eventLog) OnBridgeLoaded(index int, cfg bridge.Config) { e.loaded = append(e.loaded, index) }
func (e *eventLog) OnSequenceCompleted()                        { e.completed++ }

func testConfigs(n int) []bridge.Config {
	configs := make([]bridge.Config, n)
	for i := range configs {
		configs[i] = bridge.DefaultConfig()
		configs[i].PlankCount = 6 + i
	}
	return configs
}

func newTestManager(n int, loop bool) (*Manager, *mockLoader, *eventLog) {
	loader := newMockLoader()
	events := &eventLog{}
	m := NewManager(testConfigs(n), 0.95, loop, loader, events, log.New(io.Discard, "", 0))
	return m, loader, events
}

func TestLoadBridgeAtIndex(t *testing.T) {
	m, loader, events := newTestManager(3, false)

	if err := m.LoadBridgeAtIndex(0); err != nil {
		t.Fatalf("LoadBridgeAtIndex(0) failed: %v", err)
	}
	if m.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d, want 0", m.CurrentIndex())
	}
	if len(loader.loaded) != 1 || loader.loaded[0].PlankCount != 6 {
		t.Errorf("loader saw %v, want one load of the first config", loader.loaded)
	}
	if len(events.loaded) != 1 || events.loaded[0] != 0 {
		t.Errorf("events.loaded = %v, want [0]", events.loaded)
	}

	if err := m.LoadBridgeAtIndex(3); err == nil {
		t.Error("out-of-range index accepted")
	}
	if err := m.LoadBridgeAtIndex(-1); err == nil {
		t.Error("negative index accepted")
	}
}

func TestAdvanceWalksTheSequence(t *testing.T) {
	m, _, events := newTestManager(3, false)

	if err := m.LoadBridgeAtIndex(0); err != nil {
		t.Fatalf("LoadBridgeAtIndex(0) failed: %v", err)
	}
	m.AdvanceToNextBridge()
	if m.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d after advance, want 1", m.CurrentIndex())
	}
	m.AdvanceToNextBridge()
	if m.CurrentIndex() != 2 {
		t.Errorf("CurrentIndex() = %d after advance, want 2", m.CurrentIndex())
	}
	if events.completed != 0 {
		t.Errorf("sequence completed early, %d events", events.completed)
	}

	// Past the last bridge without looping: completed, nothing loads.
	m.AdvanceToNextBridge()
	if !m.IsCompleted() {
		t.Error("IsCompleted() = false past the last bridge")
	}
	if events.completed != 1 {
		t.Errorf("completed fired %d times, want 1", events.completed)
	}
	if m.CurrentIndex() != 2 {
		t.Errorf("CurrentIndex() = %d after completion, want 2", m.CurrentIndex())
	}

	// Further advances after completion are no-ops.
	m.AdvanceToNextBridge()
	if events.completed != 1 {
		t.Errorf("completed refired, %d events", events.completed)
	}
}

func TestAdvanceWrapsWhenLooping(t *testing.T) {
	m, _, events := newTestManager(2, true)

	if err := m.LoadBridgeAtIndex(0); err != nil {
		t.Fatalf("LoadBridgeAtIndex(0) failed: %v", err)
	}
	m.AdvanceToNextBridge()
	m.AdvanceToNextBridge()

	if m.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d after wrap, want 0", m.CurrentIndex())
	}
	if m.IsCompleted() {
		t.Error("looping sequence reported completed")
	}
	if events.completed != 0 {
		t.Errorf("completed fired %d times while looping, want 0", events.completed)
	}
}

func TestProgressEventDefersAdvanceByOneTick(t *testing.T) {
	m, loader, _ := newTestManager(2, false)

	if err := m.LoadBridgeAtIndex(0); err != nil {
		t.Fatalf("LoadBridgeAtIndex(0) failed: %v", err)
	}
	callsAfterLoad := len(loader.loaded)

	// Crossing the threshold only schedules the advance.
	m.OnProgressChanged(0.97, 1.0)
	if len(loader.loaded) != callsAfterLoad {
		t.Fatal("advance happened inside the progress callback")
	}
	if m.CurrentIndex() != 0 {
		t.Fatalf("CurrentIndex() = %d before Update, want 0", m.CurrentIndex())
	}

	// The next tick consumes it.
	m.Update()
	if m.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d after Update, want 1", m.CurrentIndex())
	}

	// No pending advance, Update is a no-op.
	m.Update()
	if m.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d after idle Update, want 1", m.CurrentIndex())
	}
}

func TestProgressBelowThresholdDoesNothing(t *testing.T) {
	m, _, _ := newTestManager(2, false)

	if err := m.LoadBridgeAtIndex(0); err != nil {
		t.Fatalf("LoadBridgeAtIndex(0) failed: %v", err)
	}
	m.OnProgressChanged(0.5, 1.0)
	m.Update()
	if m.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d, want 0", m.CurrentIndex())
	}
}

func TestCrossingCompletedSchedulesAdvance(t *testing.T) {
	m, _, _ := newTestManager(2, false)

	if err := m.LoadBridgeAtIndex(0); err != nil {
		t.Fatalf("LoadBridgeAtIndex(0) failed: %v", err)
	}
	m.OnCrossingCompleted()
	m.Update()
	if m.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d, want 1", m.CurrentIndex())
	}
}

func TestRestartSequence(t *testing.T) {
	m, _, events := newTestManager(2, false)

	if err := m.LoadBridgeAtIndex(0); err != nil {
		t.Fatalf("LoadBridgeAtIndex(0) failed: %v", err)
	}
	m.AdvanceToNextBridge()
	m.AdvanceToNextBridge() // completes

	m.RestartSequence()
	if m.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d after restart, want 0", m.CurrentIndex())
	}
	if m.IsCompleted() {
		t.Error("IsCompleted() = true after restart")
	}
	if got := events.loaded[len(events.loaded)-1]; got != 0 {
		t.Errorf("last loaded index = %d after restart, want 0", got)
	}
}

func TestManagerSubscribesToTrackerOnce(t *testing.T) {
	loader := newMockLoader()
	m := NewManager(testConfigs(3), 0.95, false, loader, nil, log.New(io.Discard, "", 0))

	if err := m.LoadBridgeAtIndex(0); err != nil {
		t.Fatalf("LoadBridgeAtIndex(0) failed: %v", err)
	}
	m.AdvanceToNextBridge()

	// The shared tracker was handed back twice; the manager must hold it
	// as one subscription, or every event would double up.
	if m.tracker != loader.tracker {
		t.Fatal("manager does not hold the loader's tracker")
	}

	// Drive a real tracker event: threshold crossing schedules exactly one
	// advance even after two loads.
	m.OnProgressChanged(0.99, 0)
	m.Update()
	if m.CurrentIndex() != 2 {
		t.Errorf("CurrentIndex() = %d, want 2", m.CurrentIndex())
	}
}

func TestLoadFailureKeepsIndex(t *testing.T) {
	loader := newMockLoader()
	loader.failOn = 2
	m := NewManager(testConfigs(3), 0.95, false, loader, nil, log.New(io.Discard, "", 0))

	if err := m.LoadBridgeAtIndex(0); err != nil {
		t.Fatalf("LoadBridgeAtIndex(0) failed: %v", err)
	}
	m.AdvanceToNextBridge() // second load fails

	if m.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d after failed load, want 0", m.CurrentIndex())
	}
}
