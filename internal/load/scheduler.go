package load

import (
	"crypto/tls"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

// VUScheduler owns the VUs of one scenario: it creates them, shares an
// HTTP client between them and keeps the engine's active-VU gauge in step.
type VUScheduler struct {
	scenario   *Scenario
	metrics    *metrics.Engine
	logger     *zap.Logger
	httpConfig HTTPClientConfig

	vus      map[int]*VirtualUser
	vusMu    sync.RWMutex
	nextVUID atomic.Int32

	sharedClient *http.Client

	// reported is this scheduler's contribution to the shared gauge.
	reported atomic.Int32
	gaugeMu  sync.Mutex
}

// HTTPClientConfig tunes the transport used by VUs.
type HTTPClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	DisableKeepAlives   bool
	DisableCompression  bool
	InsecureSkipVerify  bool
	// UseSharedClient gives every VU the same client and connection pool.
	UseSharedClient bool
}

// DefaultHTTPClientConfig returns pool sizes suited to a few hundred VUs.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		UseSharedClient:     true,
	}
}

// NewVUScheduler creates a scheduler for scenario. A nil logger is replaced
// with a no-op.
func NewVUScheduler(scenario *Scenario, engine *metrics.Engine, httpConfig HTTPClientConfig, logger *zap.Logger) *VUScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &VUScheduler{
		scenario:   scenario,
		metrics:    engine,
		logger:     logger,
		httpConfig: httpConfig,
		vus:        make(map[int]*VirtualUser),
	}
	if httpConfig.UseSharedClient {
		s.sharedClient = s.newHTTPClient()
	}
	return s
}

func (s *VUScheduler) newHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        s.httpConfig.MaxIdleConns,
		MaxIdleConnsPerHost: s.httpConfig.MaxIdleConnsPerHost,
		MaxConnsPerHost:     s.httpConfig.MaxConnsPerHost,
		IdleConnTimeout:     s.httpConfig.IdleConnTimeout,
		DisableKeepAlives:   s.httpConfig.DisableKeepAlives,
		DisableCompression:  s.httpConfig.DisableCompression,
	}
	if s.httpConfig.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   s.httpConfig.Timeout,
	}
}

// Scenario returns the scenario this scheduler's VUs run.
func (s *VUScheduler) Scenario() *Scenario { return s.scenario }

// SpawnVU registers a new idle VU. The caller runs it and must call
// RemoveVU (or MarkStopped) when its goroutine exits.
func (s *VUScheduler) SpawnVU() *VirtualUser {
	id := int(s.nextVUID.Add(1))

	client := s.sharedClient
	if client == nil {
		client = s.newHTTPClient()
	}
	vu := NewVirtualUser(id, s.scenario, client, s.metrics, s.logger)

	s.vusMu.Lock()
	s.vus[id] = vu
	s.vusMu.Unlock()
	return vu
}

// GetVU returns a VU by ID, or nil.
func (s *VUScheduler) GetVU(id int) *VirtualUser {
	s.vusMu.RLock()
	defer s.vusMu.RUnlock()
	return s.vus[id]
}

// GetActiveVUCount counts registered VUs that have not stopped.
func (s *VUScheduler) GetActiveVUCount() int {
	s.vusMu.RLock()
	defer s.vusMu.RUnlock()

	n := 0
	for _, vu := range s.vus {
		if vu.GetState() != VUStateStopped {
			n++
		}
	}
	return n
}

// TotalSpawned returns how many VUs were ever created.
func (s *VUScheduler) TotalSpawned() int {
	return int(s.nextVUID.Load())
}

// StopAllVUs asks every VU to stop.
func (s *VUScheduler) StopAllVUs() {
	s.vusMu.RLock()
	defer s.vusMu.RUnlock()
	for _, vu := range s.vus {
		vu.RequestStop()
	}
}

// RemoveVU marks a VU stopped and forgets it.
func (s *VUScheduler) RemoveVU(id int) {
	s.vusMu.Lock()
	vu, ok := s.vus[id]
	delete(s.vus, id)
	s.vusMu.Unlock()

	if ok {
		vu.MarkStopped()
	}
}

// WaitForAllVUs waits up to timeout and returns how many VUs had not
// stopped by then.
func (s *VUScheduler) WaitForAllVUs(timeout time.Duration) int {
	deadline := time.Now().Add(timeout)

	s.vusMu.RLock()
	vus := make([]*VirtualUser, 0, len(s.vus))
	for _, vu := range s.vus {
		vus = append(vus, vu)
	}
	s.vusMu.RUnlock()

	pending := 0
	for _, vu := range vus {
		remaining := time.Until(deadline)
		if remaining <= 0 || !vu.WaitForStop(remaining) {
			pending++
		}
	}
	return pending
}

// UpdateMetrics moves the engine's active-VU gauge by the change since the
// last call. Several schedulers can share one engine.
func (s *VUScheduler) UpdateMetrics() {
	s.gaugeMu.Lock()
	defer s.gaugeMu.Unlock()

	count := int32(s.GetActiveVUCount())
	prev := s.reported.Swap(count)
	if d := count - prev; d != 0 {
		s.metrics.AddActiveVUs(int(d))
	}
}

// Shutdown stops every VU, waits up to timeout and releases idle
// connections.
func (s *VUScheduler) Shutdown(timeout time.Duration) {
	s.StopAllVUs()
	if pending := s.WaitForAllVUs(timeout); pending > 0 {
		s.logger.Warn("VUs still running after graceful stop",
			zap.String("scenario", s.scenario.Name),
			zap.Int("pending", pending),
			zap.Duration("timeout", timeout))
	}
	s.UpdateMetrics()

	if s.sharedClient != nil {
		s.sharedClient.CloseIdleConnections()
	}
}
