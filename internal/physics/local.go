package physics

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// LocalWorld is an in-process implementation of the World port: a small
// spring-damper simulation with semi-implicit Euler integration. It is
// deterministic given the same sequence of calls and step sizes, which is
// what the bridge builder and its tests rely on.
type LocalWorld struct {
	mu          sync.RWMutex
	bodies      map[string]*localBody
	constraints map[ConstraintID]*constraint
	nextID      ConstraintID
	gravity     mgl64.Vec3
	logger      *log.Logger
}

type localBody struct {
	id          string
	kind        BodyKind
	motion      Motion
	mass        float64
	halfExtents mgl64.Vec3

	pos mgl64.Vec3
	vel mgl64.Vec3

	// Hinged plank rotation is modelled as a single pitch degree of freedom
	// about the constraint axis.
	pitch    float64
	pitchVel float64

	volumes []Volume

	mu *sync.RWMutex // world mutex, shared
}

type constraintKind int

const (
	constraintHinge constraintKind = iota
	constraintSpring
)

type constraint struct {
	kind   constraintKind
	hinge  HingeDef
	spring SpringDef
}

// NewLocalWorld creates an empty world with standard gravity.
func NewLocalWorld(logger *log.Logger) *LocalWorld {
	if logger == nil {
		logger = log.Default()
	}
	return &LocalWorld{
		bodies:      make(map[string]*localBody),
		constraints: make(map[ConstraintID]*constraint),
		gravity:     mgl64.Vec3{0, -9.81, 0},
		logger:      logger,
	}
}

func (w *LocalWorld) CreateBody(def BodyDef) (Body, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if def.ID == "" {
		return nil, fmt.Errorf("body id must not be empty")
	}
	if _, exists := w.bodies[def.ID]; exists {
		return nil, fmt.Errorf("body %q already exists", def.ID)
	}
	if def.Motion == MotionDynamic && def.Mass <= 0 {
		return nil, fmt.Errorf("dynamic body %q needs positive mass, got %f", def.ID, def.Mass)
	}

	b := &localBody{
		id:          def.ID,
		kind:        def.Kind,
		motion:      def.Motion,
		mass:        def.Mass,
		halfExtents: def.HalfExtents,
		pos:         def.Position,
		mu:          &w.mu,
	}
	w.bodies[def.ID] = b
	return b, nil
}

func (w *LocalWorld) DestroyBody(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.bodies[id]; !exists {
		return fmt.Errorf("body %q not found", id)
	}
	delete(w.bodies, id)

	// Constraints referencing a destroyed body die with it.
	for cid, c := range w.constraints {
		a, b := c.endpoints()
		if a == id || b == id {
			delete(w.constraints, cid)
		}
	}
	return nil
}

func (c *constraint) endpoints() (string, string) {
	if c.kind == constraintHinge {
		return c.hinge.BodyA, c.hinge.BodyB
	}
	return c.spring.BodyA, c.spring.BodyB
}

func (w *LocalWorld) AttachVolume(bodyID string, v Volume) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, exists := w.bodies[bodyID]
	if !exists {
		return fmt.Errorf("body %q not found", bodyID)
	}
	b.volumes = append(b.volumes, v)
	return nil
}

func (w *LocalWorld) CreateHinge(def HingeDef) (ConstraintID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkEndpoints(def.BodyA, def.BodyB); err != nil {
		return 0, err
	}
	w.nextID++
	w.constraints[w.nextID] = &constraint{kind: constraintHinge, hinge: def}
	return w.nextID, nil
}

func (w *LocalWorld) CreateSpring(def SpringDef) (ConstraintID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkEndpoints(def.BodyA, def.BodyB); err != nil {
		return 0, err
	}
	w.nextID++
	w.constraints[w.nextID] = &constraint{kind: constraintSpring, spring: def}
	return w.nextID, nil
}

func (w *LocalWorld) checkEndpoints(a, b string) error {
	if _, ok := w.bodies[a]; !ok {
		return fmt.Errorf("constraint endpoint %q not found", a)
	}
	if _, ok := w.bodies[b]; !ok {
		return fmt.Errorf("constraint endpoint %q not found", b)
	}
	return nil
}

func (w *LocalWorld) RemoveConstraint(id ConstraintID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.constraints[id]; !exists {
		return fmt.Errorf("constraint %d not found", id)
	}
	delete(w.constraints, id)
	return nil
}

func (w *LocalWorld) Body(id string) (Body, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, exists := w.bodies[id]
	return b, exists
}

func (w *LocalWorld) BodyCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.bodies)
}

func (w *LocalWorld) ConstraintCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.constraints)
}

// Step advances the simulation: constraint forces first, then integration.
func (w *LocalWorld) Step(dt float64) {
	if dt <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	forces := make(map[string]mgl64.Vec3, len(w.bodies))
	torques := make(map[string]float64, len(w.bodies))

	for _, c := range w.constraints {
		switch c.kind {
		case constraintSpring:
			w.applySpring(c.spring, forces)
		case constraintHinge:
			w.applyHinge(c.hinge, torques)
		}
	}

	for _, b := range w.bodies {
		if b.motion != MotionDynamic {
			continue
		}

		accel := w.gravity.Add(forces[b.id].Mul(1 / b.mass))
		b.vel = b.vel.Add(accel.Mul(dt))
		b.pos = b.pos.Add(b.vel.Mul(dt))

		b.pitchVel += torques[b.id] / b.mass * dt
		b.pitch += b.pitchVel * dt
	}

	// Positional correction for near-rigid couplings after integration.
	for _, c := range w.constraints {
		if c.kind == constraintSpring && c.spring.Rigid {
			w.correctRigid(c.spring)
		}
	}

	// Clamp hinge angles to their limits.
	for _, c := range w.constraints {
		if c.kind == constraintHinge {
			w.clampHinge(c.hinge)
		}
	}
}

func (w *LocalWorld) applySpring(def SpringDef, forces map[string]mgl64.Vec3) {
	a, okA := w.bodies[def.BodyA]
	b, okB := w.bodies[def.BodyB]
	if !okA || !okB {
		return
	}

	delta := b.pos.Sub(a.pos)
	dist := delta.Len()
	if dist <= def.MaxDistance || dist == 0 {
		return
	}

	dir := delta.Mul(1 / dist)
	stretch := dist - def.MaxDistance
	relVel := b.vel.Sub(a.vel).Dot(dir)
	magnitude := def.Stiffness*stretch + def.Damping*relVel

	force := dir.Mul(magnitude)
	if a.motion == MotionDynamic {
		forces[a.id] = forces[a.id].Add(force)
	}
	if b.motion == MotionDynamic {
		forces[b.id] = forces[b.id].Sub(force)
	}
}

func (w *LocalWorld) applyHinge(def HingeDef, torques map[string]float64) {
	a, okA := w.bodies[def.BodyA]
	b, okB := w.bodies[def.BodyB]
	if !okA || !okB {
		return
	}

	// Spring-damper torque driving the relative pitch back to zero.
	relAngle := b.pitch - a.pitch
	relVel := b.pitchVel - a.pitchVel
	torque := def.Spring*relAngle + def.Damper*relVel

	if a.motion == MotionDynamic {
		torques[a.id] += torque
	}
	if b.motion == MotionDynamic {
		torques[b.id] -= torque
	}
}

func (w *LocalWorld) correctRigid(def SpringDef) {
	a, okA := w.bodies[def.BodyA]
	b, okB := w.bodies[def.BodyB]
	if !okA || !okB {
		return
	}

	delta := b.pos.Sub(a.pos)
	dist := delta.Len()
	if dist <= def.MaxDistance || dist == 0 {
		return
	}

	correction := delta.Mul((dist - def.MaxDistance) / dist)
	switch {
	case a.motion == MotionDynamic && b.motion == MotionDynamic:
		a.pos = a.pos.Add(correction.Mul(0.5))
		b.pos = b.pos.Sub(correction.Mul(0.5))
	case a.motion == MotionDynamic:
		a.pos = a.pos.Add(correction)
	case b.motion == MotionDynamic:
		b.pos = b.pos.Sub(correction)
	}
}

func (w *LocalWorld) clampHinge(def HingeDef) {
	limit := mgl64.DegToRad(def.LimitDeg)
	if limit <= 0 {
		return
	}
	for _, id := range []string{def.BodyA, def.BodyB} {
		b, ok := w.bodies[id]
		if !ok || b.motion != MotionDynamic {
			continue
		}
		if b.pitch > limit {
			b.pitch = limit
			b.pitchVel = math.Min(b.pitchVel, 0)
		} else if b.pitch < -limit {
			b.pitch = -limit
			b.pitchVel = math.Max(b.pitchVel, 0)
		}
	}
}

func (b *localBody) ID() string { return b.id }

func (b *localBody) Position() mgl64.Vec3 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pos
}

func (b *localBody) SetPosition(p mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = p
	b.vel = mgl64.Vec3{}
	b.pitchVel = 0
}

func (b *localBody) Velocity() mgl64.Vec3 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.vel
}

func (b *localBody) Kinematic() bool { return b.motion == MotionKinematic }

func (b *localBody) Mass() float64 { return b.mass }
