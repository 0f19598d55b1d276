package bridge

import (
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"bridgewalk/internal/physics"
)

// Factory creates the individual bridge entities in the physics world.
// On an underlying allocation failure every Create method logs the error
// and returns nil instead of panicking; the builder null-checks.
type Factory struct {
	world  physics.World
	logger *log.Logger
}

// NewFactory creates a factory over the given physics world.
func NewFactory(world physics.World, logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &Factory{world: world, logger: logger}
}

// CreatePlank creates one dynamic deck segment: a box sized
// (width, thickness, plank length) plus two thin edge volumes at
// ±0.4·length along the long axis for accurate edge contact.
func (f *Factory) CreatePlank(index int, position mgl64.Vec3, cfg Config) *Entity {
	id := fmt.Sprintf("plank_%d", index)
	length := cfg.PlankLength()

	body, err := f.world.CreateBody(physics.BodyDef{
		ID:          id,
		Kind:        physics.KindBox,
		Motion:      physics.MotionDynamic,
		Position:    position,
		HalfExtents: mgl64.Vec3{cfg.PlankWidth / 2, cfg.PlankThickness / 2, length / 2},
		Mass:        cfg.PlankMass,
	})
	if err != nil {
		f.logger.Printf("[Factory] plank %d allocation failed: %v", index, err)
		return nil
	}

	edge := physics.Volume{
		HalfExtents: mgl64.Vec3{cfg.PlankWidth / 2, cfg.PlankThickness, 0.01},
	}
	for _, offset := range []float64{-0.4 * length, 0.4 * length} {
		edge.Offset = mgl64.Vec3{0, 0, offset}
		if err := f.world.AttachVolume(id, edge); err != nil {
			f.logger.Printf("[Factory] plank %d edge volume failed: %v", index, err)
		}
	}

	return &Entity{ID: id, Kind: EntityPlank, Position: position, Body: body, Config: cfg}
}

// CreatePlatform creates a kinematic landing zone. The walkable collision
// volume is oversized by 10% for forgiving footing; the side rails are
// cosmetic and never collide.
func (f *Factory) CreatePlatform(name string, position mgl64.Vec3, cfg Config) *Entity {
	id := "platform_" + name

	body, err := f.world.CreateBody(physics.BodyDef{
		ID:       id,
		Kind:     physics.KindBox,
		Motion:   physics.MotionKinematic,
		Position: position,
		HalfExtents: mgl64.Vec3{
			cfg.PlatformWidth / 2,
			cfg.PlatformHeight / 2,
			cfg.PlatformLength / 2,
		},
	})
	if err != nil {
		f.logger.Printf("[Factory] platform %q allocation failed: %v", name, err)
		return nil
	}

	// Oversized walk volume.
	walk := physics.Volume{
		HalfExtents: mgl64.Vec3{
			1.1 * cfg.PlatformWidth / 2,
			cfg.PlatformHeight / 2,
			1.1 * cfg.PlatformLength / 2,
		},
	}
	if err := f.world.AttachVolume(id, walk); err != nil {
		f.logger.Printf("[Factory] platform %q walk volume failed: %v", name, err)
	}

	// Cosmetic rails along both long edges.
	rail := physics.Volume{
		HalfExtents: mgl64.Vec3{0.03, 0.4, cfg.PlatformLength / 2},
		Cosmetic:    true,
	}
	for _, side := range []float64{-1, 1} {
		rail.Offset = mgl64.Vec3{side * cfg.PlatformWidth / 2, 0.4, 0}
		if err := f.world.AttachVolume(id, rail); err != nil {
			f.logger.Printf("[Factory] platform %q rail volume failed: %v", name, err)
		}
	}

	return &Entity{ID: id, Kind: EntityPlatform, Position: position, Body: body, Config: cfg}
}

// CreateAnchor creates a fixed kinematic point body. The variant controls
// only what the render layer sees.
func (f *Factory) CreateAnchor(name string, position mgl64.Vec3, cfg Config, variant AnchorVariant) *Entity {
	id := "anchor_" + name

	body, err := f.world.CreateBody(physics.BodyDef{
		ID:       id,
		Kind:     physics.KindPoint,
		Motion:   physics.MotionKinematic,
		Position: position,
	})
	if err != nil {
		f.logger.Printf("[Factory] anchor %q allocation failed: %v", name, err)
		return nil
	}

	switch variant {
	case AnchorStandard:
		cube := physics.Volume{HalfExtents: mgl64.Vec3{0.25, 0.25, 0.25}, Cosmetic: true}
		if err := f.world.AttachVolume(id, cube); err != nil {
			f.logger.Printf("[Factory] anchor %q cube volume failed: %v", name, err)
		}
	case AnchorImproved:
		// Tiny marker buried under the surface; visible only in debug views.
		cube := physics.Volume{
			Offset:      mgl64.Vec3{0, -0.1, 0},
			HalfExtents: mgl64.Vec3{0.05, 0.05, 0.05},
			Cosmetic:    true,
		}
		if err := f.world.AttachVolume(id, cube); err != nil {
			f.logger.Printf("[Factory] anchor %q marker volume failed: %v", name, err)
		}
	case AnchorInvisible:
		// No geometry at all.
	}

	return &Entity{ID: id, Kind: EntityAnchor, Position: position, Body: body, Config: cfg}
}
