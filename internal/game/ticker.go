package game

import (
	"context"
	"log"
	"sync"
	"time"
)

// TickSystem is one unit of per-frame work registered with the Ticker.
type TickSystem interface {
	Update(deltaTime time.Duration) error
	GetName() string
	GetPriority() int // lower runs earlier
}

// Ticker drives the simulation: one cooperative logical update per tick,
// no preemption. Systems run in priority order inside a single goroutine.
type Ticker struct {
	targetTPS    int
	tickDuration time.Duration
	maxTickTime  time.Duration

	// Guarded by stateMutex: written by the loop goroutine, read by the
	// stats endpoint.
	stateMutex   sync.RWMutex
	isRunning    bool
	isPaused     bool
	tickCount    uint64
	startTime    time.Time
	lastTickTime time.Time

	systems      []TickSystem
	systemsMutex sync.RWMutex

	perfMonitor *PerformanceMonitor

	ctx       context.Context
	cancel    context.CancelFunc
	pauseChan chan bool

	// Also guarded by stateMutex.
	averageTickTime time.Duration
	maxObservedTick time.Duration
	skippedTicks    uint64

	logger           *log.Logger
	warningThreshold time.Duration
}

// NewTicker creates a ticker at the given tick rate. targetTPS <= 0
// selects the default of 30.
func NewTicker(targetTPS int, logger *log.Logger) *Ticker {
	if targetTPS <= 0 {
		targetTPS = 30
	}
	if logger == nil {
		logger = log.Default()
	}

	tickDuration := time.Second / time.Duration(targetTPS)
	ctx, cancel := context.WithCancel(context.Background())

	return &Ticker{
		targetTPS:        targetTPS,
		tickDuration:     tickDuration,
		maxTickTime:      tickDuration * 2,
		systems:          make([]TickSystem, 0),
		perfMonitor:      NewPerformanceMonitor(50, tickDuration/4),
		ctx:              ctx,
		cancel:           cancel,
		pauseChan:        make(chan bool, 1),
		logger:           logger,
		warningThreshold: tickDuration / 2,
	}
}

// Start launches the tick loop.
func (t *Ticker) Start() error {
	t.stateMutex.Lock()
	if t.isRunning {
		t.stateMutex.Unlock()
		return nil
	}
	t.isRunning = true
	t.startTime = time.Now()
	t.lastTickTime = t.startTime
	t.stateMutex.Unlock()

	t.logger.Printf("[Ticker] starting loop: %d TPS (tick every %v)", t.targetTPS, t.tickDuration)
	go t.loop()
	return nil
}

// Stop shuts the loop down.
func (t *Ticker) Stop() {
	t.stateMutex.Lock()
	if !t.isRunning {
		t.stateMutex.Unlock()
		return
	}
	t.isRunning = false
	ticks := t.tickCount
	t.stateMutex.Unlock()

	t.logger.Printf("[Ticker] stopping loop after %d ticks", ticks)
	t.cancel()
}

// Pause suspends tick execution until Resume.
func (t *Ticker) Pause() {
	t.stateMutex.Lock()
	t.isPaused = true
	t.stateMutex.Unlock()
	t.pauseChan <- true
}

// Resume continues a paused loop.
func (t *Ticker) Resume() {
	t.stateMutex.Lock()
	t.isPaused = false
	t.stateMutex.Unlock()
	t.pauseChan <- false
}

// RegisterSystem adds a system, kept sorted by priority.
func (t *Ticker) RegisterSystem(system TickSystem) {
	t.systemsMutex.Lock()
	defer t.systemsMutex.Unlock()

	t.systems = append(t.systems, system)
	for i := len(t.systems) - 1; i > 0; i-- {
		if t.systems[i].GetPriority() < t.systems[i-1].GetPriority() {
			t.systems[i], t.systems[i-1] = t.systems[i-1], t.systems[i]
		} else {
			break
		}
	}

	t.perfMonitor.initSystemMetrics(system.GetName())
	t.logger.Printf("[Ticker] registered system %s (priority %d)", system.GetName(), system.GetPriority())
}

func (t *Ticker) loop() {
	ticker := time.NewTicker(t.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return

		case pause := <-t.pauseChan:
			for pause {
				select {
				case <-t.ctx.Done():
					return
				case pause = <-t.pauseChan:
				}
			}

		case tickTime := <-ticker.C:
			t.executeTick(tickTime)
		}
	}
}

func (t *Ticker) executeTick(tickTime time.Time) {
	tickStart := time.Now()

	t.stateMutex.Lock()
	deltaTime := tickTime.Sub(t.lastTickTime)
	delayed := deltaTime > t.tickDuration*2
	if delayed {
		t.skippedTicks++
	}
	t.tickCount++
	t.lastTickTime = tickTime
	t.stateMutex.Unlock()

	if delayed {
		t.logger.Printf("[Ticker] large tick delay: %v (expected %v)", deltaTime, t.tickDuration)
	}

	t.systemsMutex.RLock()
	systems := make([]TickSystem, len(t.systems))
	copy(systems, t.systems)
	t.systemsMutex.RUnlock()

	for _, system := range systems {
		t.executeSystem(system, deltaTime)
	}

	totalTickTime := time.Since(tickStart)
	t.updateTickMetrics(totalTickTime)
	t.checkPerformance(totalTickTime)
}

func (t *Ticker) executeSystem(system TickSystem, deltaTime time.Duration) {
	systemStart := time.Now()
	systemName := system.GetName()

	defer func() {
		if r := recover(); r != nil {
			t.logger.Printf("[Ticker] panic in system %s: %v", systemName, r)
			t.perfMonitor.recordError(systemName)
		}
	}()

	err := system.Update(deltaTime)
	t.perfMonitor.recordExecution(systemName, time.Since(systemStart))

	if err != nil {
		t.logger.Printf("[Ticker] error in system %s: %v", systemName, err)
		t.perfMonitor.recordError(systemName)
	}
}

func (t *Ticker) updateTickMetrics(tickTime time.Duration) {
	t.stateMutex.Lock()
	defer t.stateMutex.Unlock()

	if tickTime > t.maxObservedTick {
		t.maxObservedTick = tickTime
	}
	if t.averageTickTime == 0 {
		t.averageTickTime = tickTime
	} else {
		t.averageTickTime = (t.averageTickTime*9 + tickTime) / 10
	}
}

func (t *Ticker) checkPerformance(tickTime time.Duration) {
	if tickTime > t.maxTickTime {
		t.logger.Printf("[Ticker] tick exceeded budget: %v > %v (target %v)", tickTime, t.maxTickTime, t.tickDuration)
	} else if tickTime > t.warningThreshold {
		t.logger.Printf("[Ticker] slow tick: %v (target %v)", tickTime, t.tickDuration)
	}
}

// GetTickCount returns the number of executed ticks.
func (t *Ticker) GetTickCount() uint64 {
	t.stateMutex.RLock()
	defer t.stateMutex.RUnlock()
	return t.tickCount
}

// GetStats returns a snapshot of loop statistics.
func (t *Ticker) GetStats() map[string]interface{} {
	t.stateMutex.RLock()
	uptime := time.Since(t.startTime)
	actualTPS := 0.0
	if uptime > 0 {
		actualTPS = float64(t.tickCount) / uptime.Seconds()
	}
	stats := map[string]interface{}{
		"target_tps":        t.targetTPS,
		"actual_tps":        actualTPS,
		"tick_count":        t.tickCount,
		"uptime_seconds":    uptime.Seconds(),
		"average_tick_time": t.averageTickTime.String(),
		"max_observed_tick": t.maxObservedTick.String(),
		"skipped_ticks":     t.skippedTicks,
		"is_running":        t.isRunning,
		"is_paused":         t.isPaused,
	}
	t.stateMutex.RUnlock()

	stats["systems"] = t.perfMonitor.GetSystemsStats()
	return stats
}
