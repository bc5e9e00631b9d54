package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// TimeBucketStore is a fixed-size ring of TimeBuckets. Interval counters
// are atomics so the request path never takes the ring lock.
type TimeBucketStore struct {
	mu      sync.RWMutex
	ring    []*TimeBucket
	next    int
	filled  int
	lastCut time.Time

	reqs       atomic.Int64
	fails      atomic.Int64
	checkFails atomic.Int64
}

// NewTimeBucketStore returns a store retaining at most size buckets.
func NewTimeBucketStore(size int) *TimeBucketStore {
	if size <= 0 {
		size = 3600
	}
	return &TimeBucketStore{
		ring:    make([]*TimeBucket, size),
		lastCut: time.Now(),
	}
}

// RecordRequest counts a request into the open interval.
func (s *TimeBucketStore) RecordRequest(success bool) {
	s.reqs.Add(1)
	if !success {
		s.fails.Add(1)
	}
}

// RecordCheckFailure counts a failed check into the open interval.
func (s *TimeBucketStore) RecordCheckFailure() {
	s.checkFails.Add(1)
}

// Cut closes the open interval into a bucket and appends it to the ring.
func (s *TimeBucketStore) Cut(totals Snapshot, lat LatencyPercentiles) *TimeBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	reqs := s.reqs.Swap(0)
	fails := s.fails.Swap(0)
	checkFails := s.checkFails.Swap(0)

	secs := now.Sub(s.lastCut).Seconds()
	if secs <= 0 {
		secs = 1
	}
	errRate := 0.0
	if reqs > 0 {
		errRate = float64(fails) / float64(reqs)
	}

	b := &TimeBucket{
		Timestamp:            now,
		TotalRequests:        totals.TotalRequests,
		TotalSuccesses:       totals.SuccessRequests,
		TotalFailures:        totals.FailedRequests,
		TotalBytes:           totals.TotalBytes,
		IntervalRequests:     reqs,
		IntervalRPS:          float64(reqs) / secs,
		IntervalErrorRate:    errRate,
		IntervalChecksFailed: checkFails,
		LatencyP50:           lat.P50,
		LatencyP95:           lat.P95,
		LatencyP99:           lat.P99,
		LatencyMax:           lat.Max,
		ActiveVUs:            totals.ActiveVUs,
		Phase:                totals.CurrentPhase,
	}

	s.ring[s.next] = b
	s.next = (s.next + 1) % len(s.ring)
	if s.filled < len(s.ring) {
		s.filled++
	}
	s.lastCut = now
	return b
}

// Buckets returns the retained buckets oldest first.
func (s *TimeBucketStore) Buckets() []*TimeBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.filled == 0 {
		return nil
	}
	out := make([]*TimeBucket, s.filled)
	start := 0
	if s.filled == len(s.ring) {
		start = s.next
	}
	for i := 0; i < s.filled; i++ {
		out[i] = s.ring[(start+i)%len(s.ring)]
	}
	return out
}

// Count returns how many buckets are retained.
func (s *TimeBucketStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filled
}

// SteadyStateRPS averages interval RPS over steady-phase buckets. The second
// return value is the number of buckets that contributed.
func (s *TimeBucketStore) SteadyStateRPS() (float64, int) {
	var sum float64
	n := 0
	for _, b := range s.Buckets() {
		if b.Phase != PhaseSteady {
			continue
		}
		sum += b.IntervalRPS
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// Reset drops all buckets and interval counters.
func (s *TimeBucketStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring = make([]*TimeBucket, len(s.ring))
	s.next = 0
	s.filled = 0
	s.lastCut = time.Now()
	s.reqs.Store(0)
	s.fails.Store(0)
	s.checkFails.Store(0)
}
