package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"bridgewalk/internal/bridge"
	"bridgewalk/internal/results"
	"bridgewalk/internal/telemetry"
	"bridgewalk/internal/tracking"
)

// ExerciseName identifies this exercise in persisted result records.
const ExerciseName = "bridge_walk"

// PositionProvider supplies the tracked body position each tick. The
// second return is false while no tracked body is known yet.
type PositionProvider interface {
	Position() (mgl64.Vec3, bool)
}

// Teleporter moves the tracked body; the locomotion side owns the actual
// movement, the session only requests it. Optional collaborator.
type Teleporter interface {
	TeleportTo(pos mgl64.Vec3)
}

// Session is the facade the outside world drives the exercise through:
// it owns the builder and tracker, rebuilds atomically, routes tracker
// events into recovery and result persistence, and exposes the read
// accessors. Missing optional collaborators (teleporter, sink, telemetry)
// are tolerated; the session degrades to silent operation.
type Session struct {
	tracking.BaseListener

	mu       sync.Mutex
	builder  *bridge.Builder
	cfg      bridge.Config
	tracker  *tracking.Tracker
	trackCfg tracking.Config

	provider   PositionProvider
	teleporter Teleporter
	sink       results.Sink
	telemetry  *telemetry.Manager
	logger     *log.Logger

	level int
}

// New creates a session. provider is required; teleporter, sink and
// telemetry may be nil.
func New(builder *bridge.Builder, trackCfg tracking.Config, provider PositionProvider, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		builder:  builder,
		cfg:      bridge.DefaultConfig(),
		trackCfg: trackCfg,
		provider: provider,
		sink:     results.NullSink{},
		logger:   logger,
	}
}

// SetPositionProvider attaches the tracked body source. Construction
// order can force late binding: the websocket adapter both feeds the
// session and needs it.
func (s *Session) SetPositionProvider(p PositionProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = p
}

// SetTeleporter attaches the locomotion collaborator.
func (s *Session) SetTeleporter(t Teleporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teleporter = t
}

// SetResultSink attaches the persistence collaborator.
func (s *Session) SetResultSink(sink results.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sink == nil {
		sink = results.NullSink{}
	}
	s.sink = sink
}

// SetTelemetry attaches the telemetry collaborator.
func (s *Session) SetTelemetry(tel *telemetry.Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry = tel
}

// SetBridgeConfiguration stores the config the next build uses.
func (s *Session) SetBridgeConfiguration(cfg bridge.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// BuildBridge constructs the bridge from the current config. The previous
// structure is torn down first; the tracker is re-pointed at the new axis.
// Validation errors abort the build, warnings are logged and ignored.
func (s *Session) BuildBridge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildLocked()
}

// RebuildBridge is BuildBridge under its rebuild-path name.
func (s *Session) RebuildBridge() error {
	return s.BuildBridge()
}

func (s *Session) buildLocked() error {
	data, err := s.builder.Build(s.cfg)
	if err != nil {
		return fmt.Errorf("bridge construction: %w", err)
	}

	result := bridge.Validate(data)
	for _, w := range result.Warnings {
		s.logger.Printf("[Session] validation %s", w)
	}
	if !result.OK() {
		s.builder.Teardown()
		return fmt.Errorf("bridge validation failed: %s", result.Errors[0])
	}

	if s.tracker == nil {
		s.tracker = tracking.NewTracker(s.trackCfg, data.Start, data.End, s.logger)
		s.tracker.AddListener(s)
	} else {
		s.tracker.SetBridgePoints(data.Start, data.End)
	}
	return nil
}

// LoadBridge implements sequence.BridgeLoader: it swaps the config,
// rebuilds, moves the player to the start and returns the tracker for the
// manager to subscribe to.
func (s *Session) LoadBridge(cfg bridge.Config) (*tracking.Tracker, error) {
	s.mu.Lock()
	s.cfg = cfg
	err := s.buildLocked()
	tracker := s.tracker
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.TeleportPlayerToStart()
	return tracker, nil
}

// Tracker returns the current tracker, nil before the first build.
func (s *Session) Tracker() *tracking.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker
}

// Bridge returns the current bridge data, nil before the first build.
func (s *Session) Bridge() *bridge.Data {
	return s.builder.Current()
}

// GetStartPlatform returns the entry platform, or nil.
func (s *Session) GetStartPlatform() *bridge.Entity {
	if data := s.builder.Current(); data != nil {
		return data.StartPlatform()
	}
	return nil
}

// GetEndPlatform returns the exit platform, or nil.
func (s *Session) GetEndPlatform() *bridge.Entity {
	if data := s.builder.Current(); data != nil {
		return data.EndPlatform()
	}
	return nil
}

// GetPlanks returns the ordered plank list.
func (s *Session) GetPlanks() []*bridge.Entity {
	if data := s.builder.Current(); data != nil {
		return data.Planks
	}
	return nil
}

// TeleportPlayerToStart requests a teleport onto the start platform (or
// the bridge start without platforms) and arms the tracker's grace window
// so the transient offsets of the jump cannot fail the exercise.
func (s *Session) TeleportPlayerToStart() {
	s.mu.Lock()
	teleporter := s.teleporter
	tracker := s.tracker
	data := s.builder.Current()
	s.mu.Unlock()

	if data == nil {
		return
	}

	target := data.Start
	if p := data.StartPlatform(); p != nil {
		target = p.Position.Add(mgl64.Vec3{0, data.Config.PlatformHeight, 0})
	}

	if teleporter != nil {
		teleporter.TeleportTo(target)
	}
	if tracker != nil {
		tracker.NotifyTeleported(0)
	}
}

// Update consumes one position sample per tick and feeds telemetry.
func (s *Session) Update() {
	s.mu.Lock()
	tracker := s.tracker
	provider := s.provider
	tel := s.telemetry
	s.mu.Unlock()

	if tracker == nil || provider == nil {
		return
	}
	pos, ok := provider.Position()
	if !ok {
		return
	}

	tracker.Update(pos)

	if tel != nil {
		tel.RecordSample(pos, tracker.Progress(), tracker.Speed(), tracker.IsBalanced())
		tel.PrintSummary()
	}
}

// OnBalanceFailure implements tracking.Listener: the recovery path. The
// attempt is persisted as failed at the progress reached, the player goes
// back to the start and the tracker gets a fresh grace window.
func (s *Session) OnBalanceFailure() {
	s.mu.Lock()
	tracker := s.tracker
	level := s.level
	s.mu.Unlock()

	score := 0.0
	if tracker != nil {
		score = tracker.GetProgressPercentage()
	}
	s.saveResult(level, false, score)
	s.logger.Printf("[Session] balance failure at %.0f%%, restarting", score)

	s.TeleportPlayerToStart()
	if tracker != nil {
		tracker.ResetProgress()
	}
}

// OnCrossingCompleted implements tracking.Listener.
func (s *Session) OnCrossingCompleted() {
	s.mu.Lock()
	level := s.level
	s.mu.Unlock()

	s.saveResult(level, true, 100)
	s.logger.Printf("[Session] crossing completed on level %d", level)
}

func (s *Session) saveResult(level int, completed bool, score float64) {
	s.mu.Lock()
	sink := s.sink
	tel := s.telemetry
	s.mu.Unlock()

	if tel != nil {
		if completed {
			tel.RecordEvent("crossing_completed")
		} else {
			tel.RecordEvent("failure")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rec := results.NewRecord(ExerciseName, level, completed, score)
	if err := sink.Save(ctx, rec); err != nil {
		s.logger.Printf("[Session] saving result: %v", err)
	}
}

// OnBridgeLoaded implements sequence.Events: the session tracks the
// current level for result records.
func (s *Session) OnBridgeLoaded(index int, cfg bridge.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = index
}

// OnSequenceCompleted implements sequence.Events.
func (s *Session) OnSequenceCompleted() {
	s.logger.Printf("[Session] sequence completed")
}
