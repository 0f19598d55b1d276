package bridge

import (
	"math"
	"math/rand/v2"
)

// Generator produces bridge configs by difficulty or past performance.
// It is pure parameter interpolation; every config it returns passes
// Validate.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil source means a fixed seed, so
// generated sequences stay reproducible by default.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(1, 2)
	}
	return &Generator{rng: rand.New(src)}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// GenerateConfig interpolates a config for difficulty in [0, 1]:
// harder bridges are longer, narrower, gappier and softer-sprung.
func (g *Generator) GenerateConfig(difficulty float64) Config {
	d := clamp01(difficulty)

	cfg := DefaultConfig()
	cfg.PlankCount = 6 + int(math.Round(d*8))        // 6 .. 14
	cfg.BridgeLength = lerp(6, 14, d)                // 6 .. 14
	cfg.PlankWidth = lerp(1.0, 0.5, d)               // narrower when hard
	cfg.PlankGap = lerp(0.01, 0.06, d)               // wider gaps when hard
	cfg.JointSpring = lerp(80, 40, d)                // softer joints when hard
	cfg.JointDamper = lerp(10, 6, d)
	cfg.AngularLimitDeg = lerp(3, 8, d) // more sway when hard

	return cfg
}

// GenerateAdaptiveConfig derives difficulty from a performance score in
// [0, 1] and the current level: a strong performance pushes difficulty up
// faster than the level alone would.
func (g *Generator) GenerateAdaptiveConfig(performanceScore float64, level int) Config {
	base := clamp01(float64(level) / 10.0)
	adjust := (clamp01(performanceScore) - 0.5) * 0.3
	return g.GenerateConfig(clamp01(base + adjust))
}

// GenerateProgressiveConfigs returns n configs of ascending difficulty
// with slight randomized variation so consecutive sessions differ.
func (g *Generator) GenerateProgressiveConfigs(n int) []Config {
	if n <= 0 {
		return nil
	}

	configs := make([]Config, 0, n)
	for i := 0; i < n; i++ {
		d := 0.0
		if n > 1 {
			d = float64(i) / float64(n-1)
		}
		cfg := g.GenerateConfig(d)

		// Jitter keeps runs from feeling identical without ever breaking
		// the PlankLength > 0 invariant.
		cfg.BridgeLength *= lerp(0.95, 1.05, g.rng.Float64())
		cfg.PlankMass *= lerp(0.9, 1.1, g.rng.Float64())

		configs = append(configs, cfg)
	}
	return configs
}
