package tracking

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// BalanceState is the balance half of the tracker state machine.
type BalanceState int

const (
	Balanced BalanceState = iota
	Imbalanced
)

// CrossingState is the progress half of the tracker state machine.
type CrossingState int

const (
	NotStarted CrossingState = iota
	Crossing
	Completed
)

// Listener receives tracker domain events. Register implementations with
// AddListener; embed BaseListener to implement only a subset.
type Listener interface {
	OnBalanceLost(lateral, longitudinal float64)
	OnBalanceRestored()
	OnBalanceFailure()
	OnProgressChanged(progress, speed float64)
	OnMilestoneReached(index int, fraction float64)
	OnCrossingStarted()
	OnCrossingCompleted()
}

// BaseListener is a no-op Listener for embedding.
type BaseListener struct{}

func (BaseListener) OnBalanceLost(lateral, longitudinal float64) {}
func (BaseListener) OnBalanceRestored()                          {}
func (BaseListener) OnBalanceFailure()                           {}
func (BaseListener) OnProgressChanged(progress, speed float64)   {}
func (BaseListener) OnMilestoneReached(index int, fraction float64) {
}
func (BaseListener) OnCrossingStarted()   {}
func (BaseListener) OnCrossingCompleted() {}

// Config tunes the tracker. Milestone fractions are configuration because
// the historical pipelines hardcoded them inconsistently.
type Config struct {
	MaxOffsetX float64 // lateral threshold
	MaxOffsetZ float64 // longitudinal overshoot threshold

	FailureDelay       time.Duration
	TeleportGrace      time.Duration
	FailOnlyAfterStart bool

	SampleInterval time.Duration

	CrossingStartThreshold float64
	CompletionThreshold    float64
	Milestones             []float64
}

// DefaultConfig returns the standard thresholds for the exercise.
func DefaultConfig() Config {
	return Config{
		MaxOffsetX:             0.6,
		MaxOffsetZ:             0.5,
		FailureDelay:           900 * time.Millisecond,
		TeleportGrace:          2 * time.Second,
		FailOnlyAfterStart:     true,
		SampleInterval:         200 * time.Millisecond,
		CrossingStartThreshold: 0.05,
		CompletionThreshold:    0.95,
		Milestones:             []float64{0.25, 0.50, 0.75, 1.00},
	}
}

// Tracker is the per-frame state estimator: it turns tracked body
// positions into balance, progress and failure signals. Balance is
// evaluated on every Update for responsiveness; progress and speed are
// recomputed only at the sampling interval to suppress jitter.
type Tracker struct {
	mu     sync.Mutex
	cfg    Config
	logger *log.Logger
	clock  func() time.Time

	start   mgl64.Vec3
	end     mgl64.Vec3
	dir     mgl64.Vec3
	lateral mgl64.Vec3
	length  float64

	balance  BalanceState
	crossing CrossingState
	progress float64
	speed    float64

	milestonesReached []bool

	imbalancedSince   time.Time // zero while balanced
	failureFired      bool      // at most one failure per imbalance episode
	nextFailureAfter  time.Time // grace deadline
	lastSamplePos     mgl64.Vec3
	lastSampleTime    time.Time
	lastSampleValid   bool

	listeners []Listener
}

// NewTracker creates a tracker between the two bridge points.
func NewTracker(cfg Config, start, end mgl64.Vec3, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Default()
	}
	if len(cfg.Milestones) == 0 {
		cfg.Milestones = DefaultConfig().Milestones
	}
	t := &Tracker{
		cfg:    cfg,
		logger: logger,
		clock:  time.Now,
	}
	t.setBridgePoints(start, end)
	return t
}

// AddListener registers an event listener. Listeners are invoked
// synchronously from Update, in registration order.
func (t *Tracker) AddListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// SetBridgePoints re-derives the bridge axis and resets milestone and
// crossing state. Called after every rebuild.
func (t *Tracker) SetBridgePoints(start, end mgl64.Vec3) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setBridgePoints(start, end)
}

func (t *Tracker) setBridgePoints(start, end mgl64.Vec3) {
	t.start = start
	t.end = end

	axis := end.Sub(start)
	t.length = axis.Len()
	if t.length > 0 {
		t.dir = axis.Mul(1 / t.length)
	} else {
		t.dir = mgl64.Vec3{0, 0, 1}
	}

	// Horizontal perpendicular to the axis: lateral offsets project onto it.
	t.lateral = mgl64.Vec3{t.dir.Z(), 0, -t.dir.X()}
	if l := t.lateral.Len(); l > 0 {
		t.lateral = t.lateral.Mul(1 / l)
	} else {
		t.lateral = mgl64.Vec3{1, 0, 0}
	}

	t.resetProgress()
}

// ResetProgress clears progress, crossing and milestone state without
// touching the bridge axis.
func (t *Tracker) ResetProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetProgress()
}

func (t *Tracker) resetProgress() {
	t.progress = 0
	t.speed = 0
	t.crossing = NotStarted
	t.milestonesReached = make([]bool, len(t.cfg.Milestones))
	t.lastSampleValid = false
	t.lastSampleTime = time.Time{}
	t.imbalancedSince = time.Time{}
	t.failureFired = false
	t.balance = Balanced
}

// NotifyTeleported arms the grace window: failures are suppressed until
// teleportGrace + extraGrace from now, the imbalance timer is cleared and
// the cached sample position is dropped so the next speed sample is not an
// artificial spike.
func (t *Tracker) NotifyTeleported(extraGrace time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	t.nextFailureAfter = now.Add(t.cfg.TeleportGrace + extraGrace)
	t.imbalancedSince = time.Time{}
	t.failureFired = false
	t.balance = Balanced
	t.lastSampleValid = false
	t.logger.Printf("[Tracker] teleport grace armed until %s", t.nextFailureAfter.Format("15:04:05.000"))
}

// Update consumes one tracked position sample. Call once per frame.
func (t *Tracker) Update(pos mgl64.Vec3) {
	t.mu.Lock()

	now := t.clock()
	rel := pos.Sub(t.start)
	along := rel.Dot(t.dir)
	lateral := rel.Dot(t.lateral)

	// Longitudinal offset is the overshoot past either bridge end; it is
	// zero anywhere on the deck.
	var longitudinal float64
	if along < 0 {
		longitudinal = along
	} else if along > t.length {
		longitudinal = along - t.length
	}

	var fired []func()

	fired = append(fired, t.updateBalance(lateral, longitudinal, now)...)
	if t.shouldSample(now) {
		fired = append(fired, t.sample(pos, along, now)...)
	}

	// Listeners run outside the lock: they may call back into the tracker.
	t.mu.Unlock()
	for _, f := range fired {
		f()
	}
}

func (t *Tracker) updateBalance(lateral, longitudinal float64, now time.Time) []func() {
	balanced := math.Abs(lateral) <= t.cfg.MaxOffsetX && math.Abs(longitudinal) <= t.cfg.MaxOffsetZ

	var fired []func()
	listeners := t.listeners

	switch {
	case balanced && t.balance == Imbalanced:
		t.balance = Balanced
		t.imbalancedSince = time.Time{}
		t.failureFired = false
		fired = append(fired, func() {
			for _, l := range listeners {
				l.OnBalanceRestored()
			}
		})
	case !balanced && t.balance == Balanced:
		t.balance = Imbalanced
		t.imbalancedSince = now
		lat, lon := lateral, longitudinal
		fired = append(fired, func() {
			for _, l := range listeners {
				l.OnBalanceLost(lat, lon)
			}
		})
	}

	if t.balance == Imbalanced && !t.failureFired &&
		!t.imbalancedSince.IsZero() &&
		now.Sub(t.imbalancedSince) >= t.cfg.FailureDelay &&
		!now.Before(t.nextFailureAfter) &&
		(!t.cfg.FailOnlyAfterStart || t.crossing != NotStarted) {

		t.failureFired = true
		t.imbalancedSince = now // the timer resets after firing
		fired = append(fired, func() {
			for _, l := range listeners {
				l.OnBalanceFailure()
			}
		})
	}

	return fired
}

func (t *Tracker) shouldSample(now time.Time) bool {
	return t.lastSampleTime.IsZero() || now.Sub(t.lastSampleTime) >= t.cfg.SampleInterval
}

func (t *Tracker) sample(pos mgl64.Vec3, along float64, now time.Time) []func() {
	progress := 0.0
	if t.length > 0 {
		progress = math.Min(math.Max(along, 0), t.length) / t.length
	}

	if t.lastSampleValid {
		dt := now.Sub(t.lastSampleTime).Seconds()
		if dt > 0 {
			t.speed = pos.Sub(t.lastSamplePos).Len() / dt
		}
	}
	t.lastSamplePos = pos
	t.lastSampleTime = now
	t.lastSampleValid = true

	var fired []func()
	listeners := t.listeners

	if progress != t.progress {
		t.progress = progress
		p, s := progress, t.speed
		fired = append(fired, func() {
			for _, l := range listeners {
				l.OnProgressChanged(p, s)
			}
		})
	}

	if t.crossing == NotStarted && progress > t.cfg.CrossingStartThreshold {
		t.crossing = Crossing
		fired = append(fired, func() {
			for _, l := range listeners {
				l.OnCrossingStarted()
			}
		})
	}

	// Milestones fire one-shot and in ascending order even when a sample
	// jumps over several of them at once.
	for i, fraction := range t.cfg.Milestones {
		if t.milestonesReached[i] || progress < fraction {
			continue
		}
		t.milestonesReached[i] = true
		idx, frac := i, fraction
		fired = append(fired, func() {
			for _, l := range listeners {
				l.OnMilestoneReached(idx, frac)
			}
		})
	}

	if t.crossing != Completed && progress >= t.cfg.CompletionThreshold {
		t.crossing = Completed
		fired = append(fired, func() {
			for _, l := range listeners {
				l.OnCrossingCompleted()
			}
		})
	}

	return fired
}

// Progress returns the normalized progress in [0, 1].
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// GetProgressPercentage returns progress scaled to [0, 100].
func (t *Tracker) GetProgressPercentage() float64 {
	return t.Progress() * 100
}

// IsBalanced reports the current balance state.
func (t *Tracker) IsBalanced() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance == Balanced
}

// Crossing returns the crossing half of the state machine.
func (t *Tracker) Crossing() CrossingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.crossing
}

// Speed returns the last sampled movement speed in units per second.
func (t *Tracker) Speed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speed
}
