package metrics

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Engine collects samples from every VU of a run.
//
// Counters are atomics. Histograms are not goroutine-safe, so each one is
// guarded by a mutex. A background emitter cuts a TimeBucket every
// BucketInterval until Stop is called.
type Engine struct {
	config EngineConfig

	latency   *hdrhistogram.Histogram
	latencyMu sync.Mutex

	perRequest   map[string]*hdrhistogram.Histogram
	perRequestMu sync.Mutex

	// keyed by "tag:value"
	perTag   map[string]*tagSeries
	perTagMu sync.Mutex

	checks   map[string]*CheckStats
	checksMu sync.Mutex

	total        atomic.Int64
	succeeded    atomic.Int64
	failed       atomic.Int64
	bytes        atomic.Int64
	checksPassed atomic.Int64
	checksFailed atomic.Int64
	activeVUs    atomic.Int32

	buckets *TimeBucketStore

	phaseMu sync.RWMutex
	phase   Phase
	history []PhaseChange

	startTime time.Time

	stopEmitter context.CancelFunc
	emitterDone chan struct{}
	stopOnce    sync.Once
}

type tagSeries struct {
	tag, value string
	hist       *hdrhistogram.Histogram
	total      int64
	failed     int64
}

// NewEngine returns an engine with DefaultEngineConfig.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig returns a running engine. Callers must Stop it.
func NewEngineWithConfig(config EngineConfig) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		config:      config,
		latency:     hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		perRequest:  make(map[string]*hdrhistogram.Histogram),
		perTag:      make(map[string]*tagSeries),
		checks:      make(map[string]*CheckStats),
		buckets:     NewTimeBucketStore(config.MaxBuckets),
		phase:       PhaseInit,
		startTime:   time.Now(),
		stopEmitter: cancel,
		emitterDone: make(chan struct{}),
	}

	go e.emit(ctx)
	return e
}

// RecordLatency records an untagged sample.
func (e *Engine) RecordLatency(d time.Duration, name string, success bool, bytes int64) {
	e.Record(Sample{Duration: d, Name: name, Success: success, Bytes: bytes})
}

// Record adds one request sample to the overall, per-request and per-tag
// series.
func (e *Engine) Record(s Sample) {
	micros := e.clamp(s.Duration.Microseconds())

	e.latencyMu.Lock()
	_ = e.latency.RecordValue(micros)
	e.latencyMu.Unlock()

	if s.Name != "" {
		e.perRequestMu.Lock()
		h, ok := e.perRequest[s.Name]
		if !ok {
			h = e.newHistogram()
			e.perRequest[s.Name] = h
		}
		_ = h.RecordValue(micros)
		e.perRequestMu.Unlock()
	}

	if len(s.Tags) > 0 {
		e.perTagMu.Lock()
		for tag, value := range s.Tags {
			key := tag + ":" + value
			ts, ok := e.perTag[key]
			if !ok {
				ts = &tagSeries{tag: tag, value: value, hist: e.newHistogram()}
				e.perTag[key] = ts
			}
			_ = ts.hist.RecordValue(micros)
			ts.total++
			if !s.Success {
				ts.failed++
			}
		}
		e.perTagMu.Unlock()
	}

	e.total.Add(1)
	e.bytes.Add(s.Bytes)
	if s.Success {
		e.succeeded.Add(1)
	} else {
		e.failed.Add(1)
	}
	e.buckets.RecordRequest(s.Success)
}

// RecordCheck records the outcome of a named response check.
func (e *Engine) RecordCheck(name string, passed bool) {
	if passed {
		e.checksPassed.Add(1)
	} else {
		e.checksFailed.Add(1)
		e.buckets.RecordCheckFailure()
	}

	e.checksMu.Lock()
	defer e.checksMu.Unlock()
	cs, ok := e.checks[name]
	if !ok {
		cs = &CheckStats{Name: name}
		e.checks[name] = cs
	}
	if passed {
		cs.Passed++
	} else {
		cs.Failed++
	}
}

func (e *Engine) clamp(micros int64) int64 {
	if micros < e.config.HistogramMin {
		return e.config.HistogramMin
	}
	if micros > e.config.HistogramMax {
		return e.config.HistogramMax
	}
	return micros
}

func (e *Engine) newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(e.config.HistogramMin, e.config.HistogramMax, e.config.HistogramSigFigs)
}

// SetPhase records a phase transition. Repeated values are ignored.
func (e *Engine) SetPhase(p Phase) {
	e.phaseMu.Lock()
	defer e.phaseMu.Unlock()
	if e.phase == p {
		return
	}
	e.phase = p
	e.history = append(e.history, PhaseChange{Phase: p, Timestamp: time.Now(), Requests: e.total.Load()})
}

// GetPhase returns the current phase.
func (e *Engine) GetPhase() Phase {
	e.phaseMu.RLock()
	defer e.phaseMu.RUnlock()
	return e.phase
}

// GetPhaseHistory returns a copy of all transitions.
func (e *Engine) GetPhaseHistory() []PhaseChange {
	e.phaseMu.RLock()
	defer e.phaseMu.RUnlock()
	out := make([]PhaseChange, len(e.history))
	copy(out, e.history)
	return out
}

// SetActiveVUs overwrites the active VU gauge.
func (e *Engine) SetActiveVUs(n int) { e.activeVUs.Store(int32(n)) }

// AddActiveVUs moves the active VU gauge by delta. Executors of concurrent
// scenarios share one engine, so they add and subtract rather than set.
func (e *Engine) AddActiveVUs(delta int) { e.activeVUs.Add(int32(delta)) }

// GetActiveVUs reads the active VU gauge.
func (e *Engine) GetActiveVUs() int { return int(e.activeVUs.Load()) }

func (e *Engine) emit(ctx context.Context) {
	defer close(e.emitterDone)

	ticker := time.NewTicker(e.config.BucketInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.cut()
		}
	}
}

func (e *Engine) cut() {
	e.buckets.Cut(e.counters(), e.GetLatencyPercentiles())
}

// counters fills the cheap, lock-free part of a snapshot.
func (e *Engine) counters() Snapshot {
	return Snapshot{
		TotalRequests:   e.total.Load(),
		SuccessRequests: e.succeeded.Load(),
		FailedRequests:  e.failed.Load(),
		TotalBytes:      e.bytes.Load(),
		ChecksPassed:    e.checksPassed.Load(),
		ChecksFailed:    e.checksFailed.Load(),
		ActiveVUs:       e.GetActiveVUs(),
		CurrentPhase:    e.GetPhase(),
	}
}

// GetLatencyPercentiles reads the overall histogram.
func (e *Engine) GetLatencyPercentiles() LatencyPercentiles {
	e.latencyMu.Lock()
	defer e.latencyMu.Unlock()
	return LatencyPercentiles{
		Min: micros(e.latency.Min()),
		Max: micros(e.latency.Max()),
		P50: micros(e.latency.ValueAtQuantile(50)),
		P90: micros(e.latency.ValueAtQuantile(90)),
		P95: micros(e.latency.ValueAtQuantile(95)),
		P99: micros(e.latency.ValueAtQuantile(99)),
	}
}

// LatencyAtQuantile reads percentile q (0-100] from the overall histogram.
func (e *Engine) LatencyAtQuantile(q float64) time.Duration {
	e.latencyMu.Lock()
	defer e.latencyMu.Unlock()
	return micros(e.latency.ValueAtQuantile(q))
}

// TagLatencyAtQuantile is LatencyAtQuantile for the tag=value series.
func (e *Engine) TagLatencyAtQuantile(tag, value string, q float64) (time.Duration, bool) {
	e.perTagMu.Lock()
	defer e.perTagMu.Unlock()
	ts, ok := e.perTag[tag+":"+value]
	if !ok {
		return 0, false
	}
	return micros(ts.hist.ValueAtQuantile(q)), true
}

// GetSnapshot returns every aggregate at once.
func (e *Engine) GetSnapshot() *Snapshot {
	e.latencyMu.Lock()
	lat := statsOf(e.latency)
	e.latencyMu.Unlock()

	s := e.counters()
	s.Latency = lat
	s.StartTime = e.startTime
	s.Timestamp = time.Now()
	s.Elapsed = s.Timestamp.Sub(e.startTime)

	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.RPS = float64(s.TotalRequests) / secs
	}
	if steady, n := e.buckets.SteadyStateRPS(); n > 0 {
		s.SteadyStateRPS = steady
		s.RPS = steady
	}
	if s.TotalRequests > 0 {
		s.ErrorRate = float64(s.FailedRequests) / float64(s.TotalRequests)
	}
	if n := s.ChecksPassed + s.ChecksFailed; n > 0 {
		s.CheckRate = float64(s.ChecksPassed) / float64(n)
	}
	return &s
}

// GetTimeSeries returns the emitted buckets, oldest first.
func (e *Engine) GetTimeSeries() []*TimeBucket {
	return e.buckets.Buckets()
}

// GetRequestStats returns latency per request name.
func (e *Engine) GetRequestStats() map[string]LatencyStats {
	e.perRequestMu.Lock()
	defer e.perRequestMu.Unlock()

	out := make(map[string]LatencyStats, len(e.perRequest))
	for name, h := range e.perRequest {
		out[name] = statsOf(h)
	}
	return out
}

// GetTagStats returns the series for tag=value, if any sample carried it.
func (e *Engine) GetTagStats(tag, value string) (TagStats, bool) {
	e.perTagMu.Lock()
	defer e.perTagMu.Unlock()

	ts, ok := e.perTag[tag+":"+value]
	if !ok {
		return TagStats{Tag: tag, Value: value}, false
	}
	return ts.stats(), true
}

// GetAllTagStats returns every tagged series sorted by tag, then value.
func (e *Engine) GetAllTagStats() []TagStats {
	e.perTagMu.Lock()
	out := make([]TagStats, 0, len(e.perTag))
	for _, ts := range e.perTag {
		out = append(out, ts.stats())
	}
	e.perTagMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Tag != out[j].Tag {
			return out[i].Tag < out[j].Tag
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func (ts *tagSeries) stats() TagStats {
	s := TagStats{
		Tag:     ts.tag,
		Value:   ts.value,
		Latency: statsOf(ts.hist),
		Total:   ts.total,
		Failed:  ts.failed,
	}
	if ts.total > 0 {
		s.ErrorRate = float64(ts.failed) / float64(ts.total)
	}
	return s
}

// GetCheckStats returns check outcomes sorted by name.
func (e *Engine) GetCheckStats() []CheckStats {
	e.checksMu.Lock()
	out := make([]CheckStats, 0, len(e.checks))
	for _, cs := range e.checks {
		c := *cs
		if n := c.Passed + c.Failed; n > 0 {
			c.Rate = float64(c.Passed) / float64(n)
		}
		out = append(out, c)
	}
	e.checksMu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stop halts the emitter and cuts a final bucket. Safe to call twice.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.stopEmitter()
		<-e.emitterDone
		e.cut()
	})
}

// Reset clears every series and counter and restarts the clock.
func (e *Engine) Reset() {
	e.latencyMu.Lock()
	e.latency.Reset()
	e.latencyMu.Unlock()

	e.perRequestMu.Lock()
	e.perRequest = make(map[string]*hdrhistogram.Histogram)
	e.perRequestMu.Unlock()

	e.perTagMu.Lock()
	e.perTag = make(map[string]*tagSeries)
	e.perTagMu.Unlock()

	e.checksMu.Lock()
	e.checks = make(map[string]*CheckStats)
	e.checksMu.Unlock()

	e.total.Store(0)
	e.succeeded.Store(0)
	e.failed.Store(0)
	e.bytes.Store(0)
	e.checksPassed.Store(0)
	e.checksFailed.Store(0)
	e.activeVUs.Store(0)

	e.phaseMu.Lock()
	e.phase = PhaseInit
	e.history = nil
	e.phaseMu.Unlock()

	e.buckets.Reset()
	e.startTime = time.Now()
}

func statsOf(h *hdrhistogram.Histogram) LatencyStats {
	return LatencyStats{
		Min:    micros(h.Min()),
		Max:    micros(h.Max()),
		Mean:   time.Duration(h.Mean()) * time.Microsecond,
		StdDev: time.Duration(h.StdDev()) * time.Microsecond,
		P50:    micros(h.ValueAtQuantile(50)),
		P90:    micros(h.ValueAtQuantile(90)),
		P95:    micros(h.ValueAtQuantile(95)),
		P99:    micros(h.ValueAtQuantile(99)),
		Count:  h.TotalCount(),
	}
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
