package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/load"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

// controllerTick is how often RampingVUs recomputes its target.
const controllerTick = 100 * time.Millisecond

// RampingVUs moves the VU count from StartVUs through each stage's target,
// interpolating linearly inside a stage.
//
// Example stages:
//
//	startVUs: 0
//	stages:
//	  - duration: 1m
//	    target: 100    # 0 -> 100 over the first minute
//	  - duration: 1m
//	    target: 250
//	  - duration: 30s
//	    target: 0      # ramp down
type RampingVUs struct {
	base

	targetVUs    atomic.Int32
	currentStage atomic.Int32

	// vus holds live VUs in spawn order; ramp-down stops from the end.
	vus   []*load.VirtualUser
	vusMu sync.Mutex
}

// NewRampingVUs creates a ramping VUs executor. A nil logger discards
// output.
func NewRampingVUs(logger *zap.Logger) *RampingVUs {
	e := &RampingVUs{}
	e.init(logger)
	return e
}

// Type returns the executor type.
func (e *RampingVUs) Type() Type {
	return TypeRampingVUs
}

// Init initializes the executor with configuration.
func (e *RampingVUs) Init(ctx context.Context, config *Config) error {
	if config.Type != TypeRampingVUs {
		return fmt.Errorf("invalid config type: expected %s, got %s", TypeRampingVUs, config.Type)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	e.config = config
	return nil
}

// Run ramps through every stage, then stops all VUs gracefully.
func (e *RampingVUs) Run(ctx context.Context, scheduler *load.VUScheduler, metricsEngine *metrics.Engine) error {
	if e.config == nil {
		return fmt.Errorf("executor not initialized")
	}
	e.start(scheduler, metricsEngine)
	defer e.finish()

	iterCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.targetVUs.Store(int32(e.config.StartVUs))
	e.adjustVUs(iterCtx, e.config.StartVUs)
	e.updatePhase()

	controllerCtx, stopController := context.WithCancel(ctx)
	controllerDone := make(chan struct{})
	go func() {
		defer close(controllerDone)
		e.vuController(controllerCtx, iterCtx)
	}()

	e.wait(ctx, e.config.TotalDuration())
	stopController()
	<-controllerDone

	e.shutdown(cancel)
	return nil
}

// vuController adjusts the VU count every tick.
func (e *RampingVUs) vuController(ctx, iterCtx context.Context) {
	ticker := time.NewTicker(controllerTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			target := e.targetAt(time.Since(e.startedAt()))
			e.targetVUs.Store(int32(target))
			e.adjustVUs(iterCtx, target)
			e.updatePhase()
		}
	}
}

// targetAt returns the interpolated VU target at elapsed and records the
// current stage.
func (e *RampingVUs) targetAt(elapsed time.Duration) int {
	var stageStart time.Duration
	prevTarget := e.config.StartVUs

	for i, stage := range e.config.Stages {
		stageEnd := stageStart + stage.Duration
		if elapsed < stageEnd {
			e.currentStage.Store(int32(i))

			progress := float64(elapsed-stageStart) / float64(stage.Duration)
			progress = max(0, min(progress, 1))

			target := float64(prevTarget) + float64(stage.Target-prevTarget)*progress
			return int(target + 0.5)
		}
		prevTarget = stage.Target
		stageStart = stageEnd
	}

	e.currentStage.Store(int32(len(e.config.Stages) - 1))
	return e.config.Stages[len(e.config.Stages)-1].Target
}

// adjustVUs spawns or stops VUs until target are live.
func (e *RampingVUs) adjustVUs(ctx context.Context, target int) {
	e.vusMu.Lock()
	defer e.vusMu.Unlock()

	current := len(e.vus)
	switch {
	case target > current:
		for i := current; i < target; i++ {
			vu := e.scheduler.SpawnVU()
			e.vus = append(e.vus, vu)
			e.wg.Add(1)
			go e.runVU(ctx, vu, true)
		}
	case target < current:
		for i := current - 1; i >= target; i-- {
			e.vus[i].RequestStop()
		}
		e.vus = e.vus[:target]
	}

	e.scheduler.UpdateMetrics()
}

// updatePhase maps the current stage to a metrics phase.
func (e *RampingVUs) updatePhase() {
	idx := int(e.currentStage.Load())
	if idx >= len(e.config.Stages) {
		return
	}

	prev := e.config.StartVUs
	if idx > 0 {
		prev = e.config.Stages[idx-1].Target
	}

	switch target := e.config.Stages[idx].Target; {
	case target > prev:
		e.metrics.SetPhase(metrics.PhaseRampUp)
	case target < prev:
		e.metrics.SetPhase(metrics.PhaseRampDown)
	default:
		e.metrics.SetPhase(metrics.PhaseSteady)
	}
}

// GetStats returns executor statistics.
func (e *RampingVUs) GetStats() *Stats {
	s := e.baseStats()
	if e.config == nil {
		return s
	}

	idx := int(e.currentStage.Load())
	s.TargetVUs = int(e.targetVUs.Load())
	s.CurrentStage = idx
	s.TotalStages = len(e.config.Stages)
	if idx < len(e.config.Stages) {
		s.CurrentStageName = e.config.Stages[idx].Name
	}
	return s
}

var _ Executor = (*RampingVUs)(nil)
