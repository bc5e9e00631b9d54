// Package metrics aggregates load-run samples into HDR histograms, tagged
// series and check counters.
//
//	engine := metrics.NewEngine()
//	defer engine.Stop()
//
//	engine.Record(metrics.Sample{
//		Duration: 150 * time.Millisecond,
//		Name:     "GET /products",
//		Tags:     map[string]string{"endpoint": "GET /products"},
//		Success:  true,
//		Bytes:    1024,
//	})
//	engine.RecordCheck("GET status 200", true)
//
//	snap := engine.GetSnapshot()
//	tagged, _ := engine.GetTagStats("endpoint", "GET /products")
//	fmt.Println(snap.Latency.P95, tagged.Latency.P95, snap.CheckRate)
package metrics

import "time"

// Phase is the coarse state of a run, as reported by executors.
type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseWaiting  Phase = "waiting"
	PhaseRampUp   Phase = "ramp-up"
	PhaseSteady   Phase = "steady"
	PhaseRampDown Phase = "ramp-down"
	PhaseDone     Phase = "done"
)

// Sample is one completed HTTP request.
type Sample struct {
	Duration time.Duration
	// Name is the request name; empty skips the per-request histogram.
	Name    string
	Tags    map[string]string
	Success bool
	Bytes   int64
}

// Snapshot is a point-in-time view over everything recorded so far.
type Snapshot struct {
	TotalRequests   int64         `json:"totalRequests"`
	SuccessRequests int64         `json:"successRequests"`
	FailedRequests  int64         `json:"failedRequests"`
	TotalBytes      int64         `json:"totalBytes"`
	Latency         LatencyStats  `json:"latency"`
	RPS             float64       `json:"rps"`
	SteadyStateRPS  float64       `json:"steadyStateRps"`
	ErrorRate       float64       `json:"errorRate"`
	ChecksPassed    int64         `json:"checksPassed"`
	ChecksFailed    int64         `json:"checksFailed"`
	CheckRate       float64       `json:"checkRate"`
	ActiveVUs       int           `json:"activeVUs"`
	CurrentPhase    Phase         `json:"currentPhase"`
	Elapsed         time.Duration `json:"elapsed"`
	StartTime       time.Time     `json:"startTime"`
	Timestamp       time.Time     `json:"timestamp"`
}

// LatencyStats summarises one histogram.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}

// Percentile returns the stored percentile closest to p, or false when p is
// not one of 50, 90, 95 or 99.
func (s LatencyStats) Percentile(p float64) (time.Duration, bool) {
	switch p {
	case 50:
		return s.P50, true
	case 90:
		return s.P90, true
	case 95:
		return s.P95, true
	case 99:
		return s.P99, true
	}
	return 0, false
}

// TagStats is the latency and failure view for one tag value,
// e.g. endpoint=GET /products.
type TagStats struct {
	Tag       string       `json:"tag"`
	Value     string       `json:"value"`
	Latency   LatencyStats `json:"latency"`
	Total     int64        `json:"total"`
	Failed    int64        `json:"failed"`
	ErrorRate float64      `json:"errorRate"`
}

// CheckStats counts outcomes of one named check.
type CheckStats struct {
	Name   string  `json:"name"`
	Passed int64   `json:"passed"`
	Failed int64   `json:"failed"`
	Rate   float64 `json:"rate"`
}

// LatencyPercentiles is the reduced set carried in time buckets.
type LatencyPercentiles struct {
	Min time.Duration
	Max time.Duration
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// TimeBucket holds cumulative totals and per-interval deltas for one tick
// of the emitter.
type TimeBucket struct {
	Timestamp time.Time `json:"timestamp"`

	TotalRequests  int64 `json:"totalRequests"`
	TotalSuccesses int64 `json:"totalSuccesses"`
	TotalFailures  int64 `json:"totalFailures"`
	TotalBytes     int64 `json:"totalBytes"`

	IntervalRequests     int64   `json:"intervalRequests"`
	IntervalRPS          float64 `json:"intervalRPS"`
	IntervalErrorRate    float64 `json:"intervalErrorRate"`
	IntervalChecksFailed int64   `json:"intervalChecksFailed"`

	LatencyP50 time.Duration `json:"latencyP50"`
	LatencyP95 time.Duration `json:"latencyP95"`
	LatencyP99 time.Duration `json:"latencyP99"`
	LatencyMax time.Duration `json:"latencyMax"`

	ActiveVUs int   `json:"activeVUs"`
	Phase     Phase `json:"phase"`
}

// PhaseChange records a phase transition.
type PhaseChange struct {
	Phase     Phase
	Timestamp time.Time
	Requests  int64
}

// EngineConfig tunes the histogram range and the time-series emitter.
type EngineConfig struct {
	BucketInterval time.Duration
	MaxBuckets     int

	// Histogram bounds are in microseconds.
	HistogramMin     int64
	HistogramMax     int64
	HistogramSigFigs int
}

// DefaultEngineConfig keeps one hour of 1s buckets and records latencies
// from 1µs to 1h with 3 significant figures.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BucketInterval:   time.Second,
		MaxBuckets:       3600,
		HistogramMin:     1,
		HistogramMax:     3600000000,
		HistogramSigFigs: 3,
	}
}
