package bridge

import (
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"bridgewalk/internal/physics"
)

// Builder runs the construction process: it computes every entity position
// from a config, invokes the factory and wires the constraints that make
// the chain load-bearing. Build is pure given its inputs - no frame or
// time dependency - so the whole topology is assertable in tests.
type Builder struct {
	world   physics.World
	factory *Factory
	logger  *log.Logger

	current *Data
}

// Spring geometry constants shared by both historical pipelines.
const (
	anchorSpringMaxDist   = 0.1  // chain end to anchor
	couplingSpringMaxDist = 0.05 // auxiliary platform shock absorber
	platformAnchorMaxDist = 0.2  // platform to its own anchor
	buriedAnchorDepth     = 0.5  // anchors hide below ground under platforms
)

// NewBuilder creates a builder over the given world and factory.
func NewBuilder(world physics.World, factory *Factory, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{world: world, factory: factory, logger: logger}
}

// Current returns the last built bridge, or nil before the first Build.
func (b *Builder) Current() *Data {
	return b.current
}

// Build constructs a bridge from cfg. The previous structure, if any, is
// fully torn down before the first new entity is created, so no partial
// bridge is ever observable.
func (b *Builder) Build(cfg Config) (*Data, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to build from invalid config: %w", err)
	}

	b.Teardown()

	origin := cfg.SpawnOffset
	data := &Data{Config: cfg}

	// The deck spans [-BridgeLength/2, +BridgeLength/2] along the local Z
	// axis; platforms sit flush against the deck ends beyond the gap.
	halfDeck := cfg.BridgeLength / 2

	// 1. Platforms.
	if cfg.PlatformsEnabled {
		startPos := origin.Add(mgl64.Vec3{0, 0, -(halfDeck + cfg.PlatformGap + cfg.PlatformLength/2)})
		endPos := origin.Add(mgl64.Vec3{0, 0, halfDeck + cfg.PlatformGap + cfg.PlatformLength/2})
		data.Platforms = append(data.Platforms,
			b.factory.CreatePlatform("start", startPos, cfg),
			b.factory.CreatePlatform("end", endPos, cfg),
		)
	}

	// 2. Anchors. Under the platforms they are buried for visual
	// concealment; without platforms they sit exactly at the deck ends.
	anchorVariant := AnchorStandard
	startAnchorPos := origin.Add(mgl64.Vec3{0, 0, -halfDeck})
	endAnchorPos := origin.Add(mgl64.Vec3{0, 0, halfDeck})
	if cfg.PlatformsEnabled {
		anchorVariant = AnchorImproved
		if p := data.StartPlatform(); p != nil {
			startAnchorPos = p.Position.Sub(mgl64.Vec3{0, buriedAnchorDepth, 0})
		}
		if p := data.EndPlatform(); p != nil {
			endAnchorPos = p.Position.Sub(mgl64.Vec3{0, buriedAnchorDepth, 0})
		}
	}
	startAnchor := b.factory.CreateAnchor("start", startAnchorPos, cfg, anchorVariant)
	endAnchor := b.factory.CreateAnchor("end", endAnchorPos, cfg, anchorVariant)
	data.Anchors = append(data.Anchors, startAnchor, endAnchor)

	// 3. Planks, evenly spaced along the deck.
	plankLength := cfg.PlankLength()
	firstCenter := -halfDeck + plankLength/2
	for i := 0; i < cfg.PlankCount; i++ {
		z := firstCenter + float64(i)*cfg.PlankSpacing()
		pos := origin.Add(mgl64.Vec3{0, 0, z})
		data.Planks = append(data.Planks, b.factory.CreatePlank(i, pos, cfg))
	}

	// 4. Constraint wiring.
	b.wireChain(data, cfg)
	b.wireAnchors(data, cfg, startAnchor, endAnchor)
	if cfg.PlatformsEnabled {
		b.wirePlatforms(data, cfg, startAnchor, endAnchor)
	}

	data.Start = origin.Add(mgl64.Vec3{0, 0, -halfDeck})
	data.End = origin.Add(mgl64.Vec3{0, 0, halfDeck})
	data.Direction = mgl64.Vec3{0, 0, 1}
	data.Length = cfg.BridgeLength

	b.current = data
	b.logger.Printf("[Builder] built bridge: %d planks, %d platforms, %d anchors, %d constraints",
		len(data.Planks), len(data.Platforms), len(data.Anchors), len(data.Edges))
	return data, nil
}

// wireChain hinges every consecutive plank pair at their facing edges:
// free rotation about the lateral axis only, spring-damper torque, and
// symmetric angular limits so the deck sags and sways without going slack.
func (b *Builder) wireChain(data *Data, cfg Config) {
	half := cfg.PlankLength() / 2
	for i := 0; i+1 < len(data.Planks); i++ {
		a, c := data.Planks[i], data.Planks[i+1]
		if a == nil || c == nil {
			continue
		}
		id, err := b.world.CreateHinge(physics.HingeDef{
			BodyA:    a.ID,
			BodyB:    c.ID,
			AnchorA:  mgl64.Vec3{0, 0, half},
			AnchorB:  mgl64.Vec3{0, 0, -half},
			Axis:     mgl64.Vec3{1, 0, 0},
			Spring:   cfg.JointSpring,
			Damper:   cfg.JointDamper,
			LimitDeg: cfg.AngularLimitDeg,
		})
		if err != nil {
			b.logger.Printf("[Builder] chain hinge %d-%d failed: %v", i, i+1, err)
			continue
		}
		data.Edges = append(data.Edges, Edge{Type: ConstraintChain, From: a.ID, To: c.ID, ID: id})
	}
}

// wireAnchors ties the first and last plank to their nearest anchor with a
// short, stiff spring that bounds drift of the chain ends.
func (b *Builder) wireAnchors(data *Data, cfg Config, startAnchor, endAnchor *Entity) {
	type tie struct {
		plank  *Entity
		anchor *Entity
	}
	ties := []tie{}
	if len(data.Planks) > 0 {
		ties = append(ties,
			tie{data.Planks[0], startAnchor},
			tie{data.Planks[len(data.Planks)-1], endAnchor},
		)
	}
	for _, t := range ties {
		if t.plank == nil || t.anchor == nil {
			continue
		}
		id, err := b.world.CreateSpring(physics.SpringDef{
			BodyA:       t.plank.ID,
			BodyB:       t.anchor.ID,
			MaxDistance: anchorSpringMaxDist,
			Stiffness:   cfg.anchorSpring(),
			Damping:     cfg.JointDamper,
		})
		if err != nil {
			b.logger.Printf("[Builder] anchor spring %s-%s failed: %v", t.plank.ID, t.anchor.ID, err)
			continue
		}
		data.Edges = append(data.Edges, Edge{Type: ConstraintAnchorSpring, From: t.plank.ID, To: t.anchor.ID, ID: id})
	}
}

// wirePlatforms couples each platform to its adjacent plank end with a
// near-rigid constraint plus a tight auxiliary spring for shock
// absorption, and ties it to its own anchor for long-term stability under
// repeated loading.
func (b *Builder) wirePlatforms(data *Data, cfg Config, startAnchor, endAnchor *Entity) {
	if len(data.Planks) == 0 {
		return
	}

	type coupling struct {
		platform *Entity
		plank    *Entity
		anchor   *Entity
	}
	couplings := []coupling{
		{data.StartPlatform(), data.Planks[0], startAnchor},
		{data.EndPlatform(), data.Planks[len(data.Planks)-1], endAnchor},
	}

	for _, c := range couplings {
		if c.platform == nil || c.plank == nil {
			continue
		}

		// Near-rigid coupling.
		rigidID, err := b.world.CreateSpring(physics.SpringDef{
			BodyA:       c.platform.ID,
			BodyB:       c.plank.ID,
			MaxDistance: cfg.PlatformGap + cfg.PlatformLength/2 + cfg.PlankLength()/2,
			Stiffness:   cfg.anchorSpring() * 2,
			Damping:     cfg.JointDamper,
			Rigid:       true,
		})
		if err != nil {
			b.logger.Printf("[Builder] platform coupling %s-%s failed: %v", c.platform.ID, c.plank.ID, err)
		} else {
			data.Edges = append(data.Edges, Edge{Type: ConstraintPlatformCoupling, From: c.platform.ID, To: c.plank.ID, ID: rigidID})
		}

		// Auxiliary tight spring: shock absorption when the deck is loaded.
		auxID, err := b.world.CreateSpring(physics.SpringDef{
			BodyA:       c.platform.ID,
			BodyB:       c.plank.ID,
			MaxDistance: couplingSpringMaxDist,
			Stiffness:   cfg.anchorSpring(),
			Damping:     cfg.JointDamper * 2,
		})
		if err != nil {
			b.logger.Printf("[Builder] platform aux spring %s-%s failed: %v", c.platform.ID, c.plank.ID, err)
		} else {
			data.Edges = append(data.Edges, Edge{Type: ConstraintPlatformCoupling, From: c.platform.ID, To: c.plank.ID, ID: auxID})
		}

		// Looser tie to the platform's own anchor.
		if c.anchor == nil {
			continue
		}
		anchorID, err := b.world.CreateSpring(physics.SpringDef{
			BodyA:       c.platform.ID,
			BodyB:       c.anchor.ID,
			MaxDistance: platformAnchorMaxDist,
			Stiffness:   cfg.platformAnchorSpring(),
			Damping:     cfg.JointDamper,
		})
		if err != nil {
			b.logger.Printf("[Builder] platform anchor spring %s-%s failed: %v", c.platform.ID, c.anchor.ID, err)
			continue
		}
		data.Edges = append(data.Edges, Edge{Type: ConstraintAnchorSpring, From: c.platform.ID, To: c.anchor.ID, ID: anchorID})
	}
}

// Teardown destroys the current structure wholesale. Constraints die with
// their bodies, so nothing dangles between rebuilds.
func (b *Builder) Teardown() {
	if b.current == nil {
		return
	}

	destroy := func(entities []*Entity) {
		for _, e := range entities {
			if e == nil || e.Body == nil {
				continue
			}
			if err := b.world.DestroyBody(e.ID); err != nil {
				b.logger.Printf("[Builder] teardown of %s failed: %v", e.ID, err)
			}
		}
	}
	destroy(b.current.Planks)
	destroy(b.current.Platforms)
	destroy(b.current.Anchors)
	b.current = nil
}
