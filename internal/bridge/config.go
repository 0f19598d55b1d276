package bridge

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Config is the immutable parameter set one bridge is built from.
// Derived geometry (PlankLength, PlankSpacing, TotalLength) is computed,
// never stored, so a config cannot go internally inconsistent.
type Config struct {
	PlankCount   int
	BridgeLength float64

	PlankWidth     float64
	PlankThickness float64
	PlankGap       float64
	PlankMass      float64

	PlatformsEnabled bool
	PlatformLength   float64
	PlatformWidth    float64
	PlatformHeight   float64
	PlatformGap      float64

	JointSpring    float64
	JointDamper    float64
	AngularLimitDeg float64

	// Support spring tuning. The two source pipelines disagreed on these
	// constants, so they are configuration instead of hardcoded values.
	AnchorSpringRatio         float64 // end-anchor spring = JointSpring * ratio
	PlatformAnchorSpringRatio float64 // platform-anchor spring = JointSpring * ratio

	SpawnOffset mgl64.Vec3
}

// DefaultConfig returns a mid-difficulty eight-plank bridge.
func DefaultConfig() Config {
	return Config{
		PlankCount:     8,
		BridgeLength:   8.0,
		PlankWidth:     0.8,
		PlankThickness: 0.06,
		PlankGap:       0.02,
		PlankMass:      4.0,

		PlatformsEnabled: true,
		PlatformLength:   1.5,
		PlatformWidth:    1.2,
		PlatformHeight:   0.1,
		PlatformGap:      0.05,

		JointSpring:     60.0,
		JointDamper:     8.0,
		AngularLimitDeg: 5.0,

		AnchorSpringRatio:         2.0,
		PlatformAnchorSpringRatio: 1.0,
	}
}

// PlankLength derives the length of a single plank from the bridge length,
// the plank count and the gaps between planks.
func (c Config) PlankLength() float64 {
	if c.PlankCount <= 0 {
		return 0
	}
	return (c.BridgeLength - float64(c.PlankCount-1)*c.PlankGap) / float64(c.PlankCount)
}

// PlankSpacing is the distance between consecutive plank centers.
func (c Config) PlankSpacing() float64 {
	return c.PlankLength() + c.PlankGap
}

// TotalLength is the bridge span including platforms and their gaps.
func (c Config) TotalLength() float64 {
	if !c.PlatformsEnabled {
		return c.BridgeLength
	}
	return c.BridgeLength + 2*c.PlatformLength + 2*c.PlatformGap
}

// Validate rejects configs that cannot produce a well-formed bridge.
// Callers must not hand a config that fails Validate to the builder.
func (c Config) Validate() error {
	if c.PlankCount < 1 {
		return fmt.Errorf("plank count must be at least 1, got %d", c.PlankCount)
	}
	if c.BridgeLength <= 0 {
		return fmt.Errorf("bridge length must be positive, got %f", c.BridgeLength)
	}
	if c.PlankGap < 0 {
		return fmt.Errorf("plank gap must not be negative, got %f", c.PlankGap)
	}
	if c.PlankLength() <= 0 {
		return fmt.Errorf("derived plank length %f is not positive (length=%f count=%d gap=%f)",
			c.PlankLength(), c.BridgeLength, c.PlankCount, c.PlankGap)
	}
	if c.PlankMass <= 0 {
		return fmt.Errorf("plank mass must be positive, got %f", c.PlankMass)
	}
	if c.PlankWidth <= 0 || c.PlankThickness <= 0 {
		return fmt.Errorf("plank dimensions must be positive, got width=%f thickness=%f",
			c.PlankWidth, c.PlankThickness)
	}
	if c.JointSpring <= 0 || c.JointDamper < 0 {
		return fmt.Errorf("joint tuning must be positive, got spring=%f damper=%f",
			c.JointSpring, c.JointDamper)
	}
	if c.PlatformsEnabled && (c.PlatformLength <= 0 || c.PlatformWidth <= 0) {
		return fmt.Errorf("platform dimensions must be positive, got length=%f width=%f",
			c.PlatformLength, c.PlatformWidth)
	}
	return nil
}

// anchorSpring returns the stiffness of the end-anchor springs.
func (c Config) anchorSpring() float64 {
	ratio := c.AnchorSpringRatio
	if ratio <= 0 {
		ratio = 2.0
	}
	return c.JointSpring * ratio
}

// platformAnchorSpring returns the stiffness of platform-to-anchor springs.
func (c Config) platformAnchorSpring() float64 {
	ratio := c.PlatformAnchorSpringRatio
	if ratio <= 0 {
		ratio = 1.0
	}
	return c.JointSpring * ratio
}
