package bridge

import (
	"github.com/go-gl/mathgl/mgl64"

	"bridgewalk/internal/physics"
)

// EntityKind tells the three bridge entity variants apart.
type EntityKind int

const (
	EntityPlank EntityKind = iota
	EntityPlatform
	EntityAnchor
)

func (k EntityKind) String() string {
	switch k {
	case EntityPlank:
		return "plank"
	case EntityPlatform:
		return "platform"
	case EntityAnchor:
		return "anchor"
	default:
		return "unknown"
	}
}

// AnchorVariant controls only the cosmetic representation of an anchor,
// never its physics behavior.
type AnchorVariant int

const (
	AnchorStandard  AnchorVariant = iota // full-size visible cube
	AnchorImproved                       // tiny cube buried below ground
	AnchorInvisible                      // no geometry at all
)

// Entity is one physically simulated piece of the bridge. Body is nil when
// the underlying allocation failed; callers must null-check.
type Entity struct {
	ID       string
	Kind     EntityKind
	Position mgl64.Vec3
	Body     physics.Body
	Config   Config
}

// ConstraintType distinguishes the three kinds of wiring in a bridge.
type ConstraintType int

const (
	// ConstraintChain is the hinge between consecutive planks.
	ConstraintChain ConstraintType = iota
	// ConstraintAnchorSpring ties a chain end or a platform to an anchor.
	ConstraintAnchorSpring
	// ConstraintPlatformCoupling is the near-rigid plank-platform link.
	ConstraintPlatformCoupling
)

// Edge is a typed record of one constraint wired during construction.
// The Tracker never touches edges; they exist for the validator and tests.
type Edge struct {
	Type ConstraintType
	From string
	To   string
	ID   physics.ConstraintID
}

// Data is the aggregate output of one construction run.
type Data struct {
	Config    Config
	Planks    []*Entity
	Platforms []*Entity // 0 or 2 entries: start, end
	Anchors   []*Entity
	Edges     []Edge

	// Bridge axis used by the tracker: unit direction from Start to End.
	Start     mgl64.Vec3
	End       mgl64.Vec3
	Direction mgl64.Vec3
	Length    float64
}

// StartPlatform returns the platform at the bridge entry, or nil.
func (d *Data) StartPlatform() *Entity {
	if len(d.Platforms) == 0 {
		return nil
	}
	return d.Platforms[0]
}

// EndPlatform returns the platform at the bridge exit, or nil.
func (d *Data) EndPlatform() *Entity {
	if len(d.Platforms) < 2 {
		return nil
	}
	return d.Platforms[1]
}
