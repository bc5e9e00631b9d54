package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/load"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

// base holds the VU bookkeeping shared by both executors.
type base struct {
	config    *Config
	scheduler *load.VUScheduler
	metrics   *metrics.Engine
	logger    *zap.Logger

	startTime  time.Time
	activeVUs  atomic.Int32
	iterations atomic.Int64
	running    atomic.Bool
	started    atomic.Bool

	// stopCh is closed by Stop; done is closed when Run returns.
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	wg sync.WaitGroup
	mu sync.RWMutex
}

func (b *base) init(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b.logger = logger
	b.stopCh = make(chan struct{})
	b.done = make(chan struct{})
}

func (b *base) start(scheduler *load.VUScheduler, engine *metrics.Engine) {
	b.mu.Lock()
	b.scheduler = scheduler
	b.metrics = engine
	b.startTime = time.Now()
	b.mu.Unlock()

	b.started.Store(true)
	b.running.Store(true)
}

func (b *base) finish() {
	b.running.Store(false)
	close(b.done)
}

func (b *base) startedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.startTime
}

// runVU runs iterations on vu until it is asked to stop or ctx is done.
// When retire is set the VU is removed from the scheduler on exit.
func (b *base) runVU(ctx context.Context, vu *load.VirtualUser, retire bool) {
	defer b.wg.Done()
	defer func() {
		if retire {
			b.scheduler.RemoveVU(vu.ID)
		} else {
			vu.MarkStopped()
		}
	}()

	b.activeVUs.Add(1)
	defer b.activeVUs.Add(-1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-vu.Stopping():
			return
		default:
		}

		if err := vu.RunIteration(ctx); err != nil {
			return
		}
		b.iterations.Add(1)

		waitPacing(ctx, b.config.Pacing, vu.Stopping())
	}
}

// wait returns when the profile should end: after d, when ctx is done or
// when Stop is called.
func (b *base) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	case <-b.stopCh:
	}
}

// shutdown asks every VU to stop and gives in-flight iterations up to
// gracefulStop before cancelling them.
func (b *base) shutdown(cancelIterations context.CancelFunc) {
	b.scheduler.StopAllVUs()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	graceful := b.config.gracefulStop()
	t := time.NewTimer(graceful)
	defer t.Stop()

	select {
	case <-done:
	case <-t.C:
		b.logger.Warn("graceful stop expired, interrupting iterations",
			zap.String("executor", b.config.Name),
			zap.Duration("gracefulStop", graceful),
			zap.Int32("active", b.activeVUs.Load()))
		cancelIterations()
		<-done
	}
	b.scheduler.UpdateMetrics()
}

// GetProgress returns current progress (0.0 to 1.0).
func (b *base) GetProgress() float64 {
	if b.config == nil {
		return 0.0
	}
	start := b.startedAt()
	if !b.running.Load() {
		if start.IsZero() {
			return 0.0
		}
		return 1.0
	}

	total := b.config.TotalDuration()
	if total == 0 {
		return 1.0
	}
	return min(float64(time.Since(start))/float64(total), 1.0)
}

// GetActiveVUs returns current active VU count.
func (b *base) GetActiveVUs() int {
	return int(b.activeVUs.Load())
}

func (b *base) baseStats() *Stats {
	if b.config == nil {
		return &Stats{CurrentTime: time.Now()}
	}
	start := b.startedAt()
	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = time.Since(start)
	}

	return &Stats{
		StartTime:     start,
		CurrentTime:   time.Now(),
		Elapsed:       elapsed,
		TotalDuration: b.config.TotalDuration(),
		ActiveVUs:     int(b.activeVUs.Load()),
		Iterations:    b.iterations.Load(),
	}
}

// Stop ends the run early and waits for Run to return or ctx to be done.
// It is a no-op before Run.
func (b *base) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() { close(b.stopCh) })
	if !b.started.Load() {
		return nil
	}

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
