package physics

import (
	"io"
	"log"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestWorld() *LocalWorld {
	return NewLocalWorld(log.New(io.Discard, "", 0))
}

func mustCreate(t *testing.T, w *LocalWorld, def BodyDef) Body {
	t.Helper()
	b, err := w.CreateBody(def)
	if err != nil {
		t.Fatalf("CreateBody(%q) failed: %v", def.ID, err)
	}
	return b
}

func TestCreateBodyValidation(t *testing.T) {
	w := newTestWorld()

	if _, err := w.CreateBody(BodyDef{ID: ""}); err == nil {
		t.Error("empty body id accepted")
	}
	if _, err := w.CreateBody(BodyDef{ID: "a", Motion: MotionDynamic, Mass: 0}); err == nil {
		t.Error("dynamic body with zero mass accepted")
	}

	mustCreate(t, w, BodyDef{ID: "a", Motion: MotionKinematic})
	if _, err := w.CreateBody(BodyDef{ID: "a", Motion: MotionKinematic}); err == nil {
		t.Error("duplicate body id accepted")
	}
	if w.BodyCount() != 1 {
		t.Errorf("BodyCount() = %d, want 1", w.BodyCount())
	}
}

func TestKinematicBodiesHoldPosition(t *testing.T) {
	w := newTestWorld()
	start := mgl64.Vec3{1, 2, 3}
	b := mustCreate(t, w, BodyDef{ID: "anchor", Motion: MotionKinematic, Position: start})

	for i := 0; i < 100; i++ {
		w.Step(1.0 / 60)
	}
	if b.Position() != start {
		t.Errorf("kinematic body moved to %v", b.Position())
	}
}

func TestDynamicBodiesFall(t *testing.T) {
	w := newTestWorld()
	b := mustCreate(t, w, BodyDef{ID: "box", Motion: MotionDynamic, Mass: 1, Position: mgl64.Vec3{0, 10, 0}})

	for i := 0; i < 60; i++ {
		w.Step(1.0 / 60)
	}
	if b.Position().Y() >= 10 {
		t.Errorf("dynamic body did not fall, y = %v", b.Position().Y())
	}
	if b.Velocity().Y() >= 0 {
		t.Errorf("falling body has velocity y = %v", b.Velocity().Y())
	}
}

func TestSpringBoundsDrift(t *testing.T) {
	w := newTestWorld()
	mustCreate(t, w, BodyDef{ID: "anchor", Motion: MotionKinematic})
	hanging := mustCreate(t, w, BodyDef{ID: "box", Motion: MotionDynamic, Mass: 1, Position: mgl64.Vec3{0, -0.05, 0}})

	if _, err := w.CreateSpring(SpringDef{
		BodyA:       "anchor",
		BodyB:       "box",
		MaxDistance: 0.1,
		Stiffness:   200,
		Damping:     20,
	}); err != nil {
		t.Fatalf("CreateSpring() failed: %v", err)
	}

	for i := 0; i < 1000; i++ {
		w.Step(1.0 / 60)
	}

	// Gravity stretches the spring to mg/k past slack, never further.
	dist := hanging.Position().Len()
	if dist > 0.25 {
		t.Errorf("body drifted to distance %v, spring failed to hold it", dist)
	}
	if dist < 0.1 {
		t.Errorf("body at distance %v, spring should be taut under gravity", dist)
	}
}

func TestRigidSpringCorrectsPosition(t *testing.T) {
	w := newTestWorld()
	mustCreate(t, w, BodyDef{ID: "platform", Motion: MotionKinematic})
	b := mustCreate(t, w, BodyDef{ID: "plank", Motion: MotionDynamic, Mass: 4, Position: mgl64.Vec3{0, 0, 2}})

	if _, err := w.CreateSpring(SpringDef{
		BodyA:       "platform",
		BodyB:       "plank",
		MaxDistance: 0.5,
		Stiffness:   100,
		Damping:     10,
		Rigid:       true,
	}); err != nil {
		t.Fatalf("CreateSpring() failed: %v", err)
	}

	w.Step(1.0 / 60)
	if dist := b.Position().Len(); math.Abs(dist-0.5) > 1e-9 {
		t.Errorf("rigid coupling left distance %v, want exactly 0.5", dist)
	}
}

func TestHingeTorqueRestoresAlignment(t *testing.T) {
	w := newTestWorld()
	mustCreate(t, w, BodyDef{ID: "a", Motion: MotionDynamic, Mass: 1})
	mustCreate(t, w, BodyDef{ID: "b", Motion: MotionDynamic, Mass: 1, Position: mgl64.Vec3{0, 0, 1}})

	if _, err := w.CreateHinge(HingeDef{
		BodyA:  "a",
		BodyB:  "b",
		Axis:   mgl64.Vec3{1, 0, 0},
		Spring: 60,
		Damper: 8,
	}); err != nil {
		t.Fatalf("CreateHinge() failed: %v", err)
	}

	// Force a relative angle and let the joint react.
	w.bodies["b"].pitch = 0.05
	w.Step(1.0 / 60)

	if w.bodies["a"].pitchVel <= 0 {
		t.Errorf("body a pitch velocity = %v, want pulled toward b", w.bodies["a"].pitchVel)
	}
	if w.bodies["b"].pitchVel >= 0 {
		t.Errorf("body b pitch velocity = %v, want pulled toward a", w.bodies["b"].pitchVel)
	}
}

func TestHingeAngularLimit(t *testing.T) {
	w := newTestWorld()
	mustCreate(t, w, BodyDef{ID: "a", Motion: MotionKinematic})
	mustCreate(t, w, BodyDef{ID: "b", Motion: MotionDynamic, Mass: 1})

	if _, err := w.CreateHinge(HingeDef{
		BodyA:    "a",
		BodyB:    "b",
		Axis:     mgl64.Vec3{1, 0, 0},
		Spring:   60,
		Damper:   8,
		LimitDeg: 5,
	}); err != nil {
		t.Fatalf("CreateHinge() failed: %v", err)
	}

	// Push far past the limit in both directions.
	limit := mgl64.DegToRad(5)
	for _, pitch := range []float64{1.0, -1.0} {
		w.bodies["b"].pitch = pitch
		w.bodies["b"].pitchVel = math.Copysign(10, pitch)
		w.Step(1.0 / 60)
		if got := math.Abs(w.bodies["b"].pitch); got > limit+1e-9 {
			t.Errorf("pitch %v exceeds limit %v after clamp", got, limit)
		}
	}
}

func TestDestroyBodyCascadesConstraints(t *testing.T) {
	w := newTestWorld()
	mustCreate(t, w, BodyDef{ID: "a", Motion: MotionKinematic})
	mustCreate(t, w, BodyDef{ID: "b", Motion: MotionDynamic, Mass: 1})
	mustCreate(t, w, BodyDef{ID: "c", Motion: MotionDynamic, Mass: 1})

	if _, err := w.CreateSpring(SpringDef{BodyA: "a", BodyB: "b", MaxDistance: 1, Stiffness: 10}); err != nil {
		t.Fatalf("CreateSpring() failed: %v", err)
	}
	keep, err := w.CreateSpring(SpringDef{BodyA: "a", BodyB: "c", MaxDistance: 1, Stiffness: 10})
	if err != nil {
		t.Fatalf("CreateSpring() failed: %v", err)
	}

	if err := w.DestroyBody("b"); err != nil {
		t.Fatalf("DestroyBody() failed: %v", err)
	}
	if w.ConstraintCount() != 1 {
		t.Errorf("ConstraintCount() = %d after cascade, want 1", w.ConstraintCount())
	}
	if err := w.RemoveConstraint(keep); err != nil {
		t.Errorf("surviving constraint could not be removed: %v", err)
	}

	if err := w.DestroyBody("b"); err == nil {
		t.Error("destroying a missing body succeeded")
	}
}

func TestConstraintEndpointValidation(t *testing.T) {
	w := newTestWorld()
	mustCreate(t, w, BodyDef{ID: "a", Motion: MotionKinematic})

	if _, err := w.CreateSpring(SpringDef{BodyA: "a", BodyB: "ghost"}); err == nil {
		t.Error("spring to a missing body accepted")
	}
	if _, err := w.CreateHinge(HingeDef{BodyA: "ghost", BodyB: "a"}); err == nil {
		t.Error("hinge from a missing body accepted")
	}
	if err := w.RemoveConstraint(42); err == nil {
		t.Error("removing a missing constraint succeeded")
	}
}

func TestSetPositionStopsMotion(t *testing.T) {
	w := newTestWorld()
	b := mustCreate(t, w, BodyDef{ID: "box", Motion: MotionDynamic, Mass: 1, Position: mgl64.Vec3{0, 10, 0}})

	for i := 0; i < 30; i++ {
		w.Step(1.0 / 60)
	}
	target := mgl64.Vec3{5, 5, 5}
	b.SetPosition(target)

	if b.Position() != target {
		t.Errorf("Position() = %v after SetPosition, want %v", b.Position(), target)
	}
	if b.Velocity() != (mgl64.Vec3{}) {
		t.Errorf("Velocity() = %v after SetPosition, want zero", b.Velocity())
	}
}

func TestStepIgnoresNonPositiveDt(t *testing.T) {
	w := newTestWorld()
	b := mustCreate(t, w, BodyDef{ID: "box", Motion: MotionDynamic, Mass: 1, Position: mgl64.Vec3{0, 10, 0}})

	w.Step(0)
	w.Step(-1)
	if b.Position().Y() != 10 {
		t.Errorf("body moved on a non-positive step, y = %v", b.Position().Y())
	}
}
