package session

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"bridgewalk/internal/bridge"
	"bridgewalk/internal/physics"
	"bridgewalk/internal/results"
	"bridgewalk/internal/tracking"
)

type stubProvider struct {
	pos   mgl64.Vec3
	known bool
}

func (p *stubProvider) Position() (mgl64.Vec3, bool) { return p.pos, p.known }

type stubTeleporter struct {
	targets []mgl64.Vec3
}

func (t *stubTeleporter) TeleportTo(pos mgl64.Vec3) { t.targets = append(t.targets, pos) }

type captureSink struct {
	records []results.Record
}

func (s *captureSink) Save(ctx context.Context, rec results.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func newTestSession(t *testing.T) (*Session, *stubProvider, *stubTeleporter, *captureSink) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	world := physics.NewLocalWorld(logger)
	builder := bridge.NewBuilder(world, bridge.NewFactory(world, logger), logger)

	provider := &stubProvider{}
	teleporter := &stubTeleporter{}
	sink := &captureSink{}

	sess := New(builder, tracking.DefaultConfig(), provider, logger)
	sess.SetTeleporter(teleporter)
	sess.SetResultSink(sink)
	return sess, provider, teleporter, sink
}

func TestBuildBridgeCreatesTracker(t *testing.T) {
	sess, _, _, _ := newTestSession(t)

	if sess.Tracker() != nil {
		t.Fatal("tracker exists before the first build")
	}
	if err := sess.BuildBridge(); err != nil {
		t.Fatalf("BuildBridge() failed: %v", err)
	}
	if sess.Tracker() == nil {
		t.Fatal("no tracker after build")
	}
	if sess.Bridge() == nil {
		t.Fatal("no bridge data after build")
	}
	if sess.GetStartPlatform() == nil || sess.GetEndPlatform() == nil {
		t.Error("platforms missing after default build")
	}
	if got := len(sess.GetPlanks()); got != 8 {
		t.Errorf("GetPlanks() returned %d planks, want 8", got)
	}
}

func TestBuildBridgeRejectsInvalidConfig(t *testing.T) {
	sess, _, _, _ := newTestSession(t)

	cfg := bridge.DefaultConfig()
	cfg.PlankCount = 0
	sess.SetBridgeConfiguration(cfg)
	if err := sess.BuildBridge(); err == nil {
		t.Fatal("BuildBridge() accepted an invalid config")
	}
}

func TestRebuildKeepsTrackerInstance(t *testing.T) {
	sess, _, _, _ := newTestSession(t)

	if err := sess.BuildBridge(); err != nil {
		t.Fatalf("BuildBridge() failed: %v", err)
	}
	first := sess.Tracker()

	cfg := bridge.DefaultConfig()
	cfg.PlankCount = 5
	sess.SetBridgeConfiguration(cfg)
	if err := sess.RebuildBridge(); err != nil {
		t.Fatalf("RebuildBridge() failed: %v", err)
	}

	// Listener subscriptions survive a rebuild because the tracker does.
	if sess.Tracker() != first {
		t.Error("rebuild replaced the tracker instance")
	}
	if got := len(sess.GetPlanks()); got != 5 {
		t.Errorf("GetPlanks() returned %d planks after rebuild, want 5", got)
	}
}

func TestTeleportPlayerToStart(t *testing.T) {
	sess, _, teleporter, _ := newTestSession(t)

	// No bridge yet: nothing to teleport onto.
	sess.TeleportPlayerToStart()
	if len(teleporter.targets) != 0 {
		t.Fatal("teleported without a bridge")
	}

	if err := sess.BuildBridge(); err != nil {
		t.Fatalf("BuildBridge() failed: %v", err)
	}
	sess.TeleportPlayerToStart()
	if len(teleporter.targets) != 1 {
		t.Fatal("teleport did not reach the teleporter")
	}

	// The target is on top of the start platform, before the deck.
	data := sess.Bridge()
	target := teleporter.targets[0]
	wantY := data.StartPlatform().Position.Y() + data.Config.PlatformHeight
	if target.Y() != wantY {
		t.Errorf("teleport target y = %v, want %v", target.Y(), wantY)
	}
	if target.Z() >= data.Start.Z() {
		t.Errorf("teleport target z = %v, want before deck start %v", target.Z(), data.Start.Z())
	}
}

func TestUpdateFeedsTracker(t *testing.T) {
	sess, provider, _, _ := newTestSession(t)

	if err := sess.BuildBridge(); err != nil {
		t.Fatalf("BuildBridge() failed: %v", err)
	}

	// Unknown position: tracker stays untouched.
	sess.Update()
	if got := sess.Tracker().Progress(); got != 0 {
		t.Fatalf("Progress() = %v with no position, want 0", got)
	}

	provider.pos = mgl64.Vec3{0, 0, 0}
	provider.known = true
	sess.Update()
	if got := sess.Tracker().Progress(); got != 0.5 {
		t.Errorf("Progress() = %v at mid-bridge, want 0.5", got)
	}
}

func TestBalanceFailureRecovery(t *testing.T) {
	sess, _, teleporter, sink := newTestSession(t)

	if err := sess.BuildBridge(); err != nil {
		t.Fatalf("BuildBridge() failed: %v", err)
	}

	// Drive the tracker into a crossing so the failure has a score.
	tr := sess.Tracker()
	tr.Update(mgl64.Vec3{0, 0, 0})

	sess.OnBalanceFailure()

	if len(sink.records) != 1 {
		t.Fatalf("got %d result records, want 1", len(sink.records))
	}
	rec := sink.records[0]
	if rec.Completed {
		t.Error("failure recorded as completed")
	}
	if rec.Score != 50 {
		t.Errorf("failure score = %v, want 50", rec.Score)
	}
	if rec.Exercise != ExerciseName {
		t.Errorf("record exercise = %q, want %q", rec.Exercise, ExerciseName)
	}

	// Recovery sends the player home and clears progress.
	if len(teleporter.targets) != 1 {
		t.Fatal("failure recovery did not teleport")
	}
	if got := tr.Progress(); got != 0 {
		t.Errorf("Progress() = %v after recovery, want 0", got)
	}
}

func TestCrossingCompletedSavesResult(t *testing.T) {
	sess, _, _, sink := newTestSession(t)

	if err := sess.BuildBridge(); err != nil {
		t.Fatalf("BuildBridge() failed: %v", err)
	}
	sess.OnBridgeLoaded(3, bridge.DefaultConfig())
	sess.OnCrossingCompleted()

	if len(sink.records) != 1 {
		t.Fatalf("got %d result records, want 1", len(sink.records))
	}
	rec := sink.records[0]
	if !rec.Completed {
		t.Error("completion recorded as failed")
	}
	if rec.Score != 100 {
		t.Errorf("completion score = %v, want 100", rec.Score)
	}
	if rec.Level != 3 {
		t.Errorf("record level = %d, want 3", rec.Level)
	}
}

func TestLoadBridgeTeleportsAndReturnsTracker(t *testing.T) {
	sess, _, teleporter, _ := newTestSession(t)

	cfg := bridge.DefaultConfig()
	cfg.PlankCount = 6
	tr, err := sess.LoadBridge(cfg)
	if err != nil {
		t.Fatalf("LoadBridge() failed: %v", err)
	}
	if tr == nil || tr != sess.Tracker() {
		t.Error("LoadBridge() did not return the session tracker")
	}
	if len(teleporter.targets) != 1 {
		t.Error("LoadBridge() did not move the player to the start")
	}
	if got := len(sess.GetPlanks()); got != 6 {
		t.Errorf("GetPlanks() returned %d planks, want 6", got)
	}
}
