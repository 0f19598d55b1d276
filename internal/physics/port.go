package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// BodyKind defines the collision shape of a rigid body.
type BodyKind int

const (
	KindBox BodyKind = iota
	KindPoint
)

// Motion defines how a body participates in the simulation.
type Motion int

const (
	// MotionDynamic bodies are integrated and affected by gravity and springs.
	MotionDynamic Motion = iota
	// MotionKinematic bodies hold their position; only explicit SetPosition moves them.
	MotionKinematic
)

// BodyDef describes a rigid body to be created in the physics world.
type BodyDef struct {
	ID          string
	Kind        BodyKind
	Motion      Motion
	Position    mgl64.Vec3
	HalfExtents mgl64.Vec3 // boxes only
	Mass        float64    // ignored for kinematic bodies
}

// Volume is an extra collision volume attached to a body, offset in the
// body's local frame. Cosmetic volumes never collide and exist purely for
// the render layer (platform rails, anchor cubes).
type Volume struct {
	Offset      mgl64.Vec3
	HalfExtents mgl64.Vec3
	Cosmetic    bool
}

// HingeDef describes a hinge constraint between two bodies with a
// spring-damper torque and symmetric angular limits. AnchorA/AnchorB are
// attachment points in each body's local frame.
type HingeDef struct {
	BodyA, BodyB     string
	AnchorA, AnchorB mgl64.Vec3
	Axis             mgl64.Vec3
	Spring           float64
	Damper           float64
	LimitDeg         float64 // free rotation within ±LimitDeg about Axis
}

// SpringDef describes an elastic distance constraint. The spring is slack
// until the bodies separate past MaxDistance, then pulls them back.
// Rigid marks a near-rigid coupling: the solver additionally corrects
// positions so the pair cannot drift apart visibly between steps.
type SpringDef struct {
	BodyA, BodyB string
	MaxDistance  float64
	Stiffness    float64
	Damping      float64
	Rigid        bool
}

// ConstraintID identifies a constraint inside a World.
type ConstraintID int

// Body is the live handle the world returns for a created body.
type Body interface {
	ID() string
	Position() mgl64.Vec3
	SetPosition(p mgl64.Vec3)
	Velocity() mgl64.Vec3
	Kinematic() bool
	Mass() float64
}

// World is the physics boundary the bridge construction depends on.
// Implementations create and destroy bodies, wire constraints between
// them and advance the simulation one tick at a time.
type World interface {
	CreateBody(def BodyDef) (Body, error)
	DestroyBody(id string) error
	AttachVolume(bodyID string, v Volume) error

	CreateHinge(def HingeDef) (ConstraintID, error)
	CreateSpring(def SpringDef) (ConstraintID, error)
	RemoveConstraint(id ConstraintID) error

	Body(id string) (Body, bool)
	BodyCount() int
	ConstraintCount() int

	Step(dt float64)
}
