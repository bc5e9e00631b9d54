package output

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

const namespace = "shopcheck"

// Collector exposes a metrics.Engine to Prometheus. Values are read from
// the engine on every scrape.
type Collector struct {
	source *metrics.Engine
	runID  string

	requests    *prometheus.Desc
	failed      *prometheus.Desc
	bytes       *prometheus.Desc
	activeVUs   *prometheus.Desc
	rps         *prometheus.Desc
	latency     *prometheus.Desc
	tagLatency  *prometheus.Desc
	tagRequests *prometheus.Desc
	checks      *prometheus.Desc
	phase       *prometheus.Desc
}

// NewCollector creates a collector for m, labelling every series with runID.
func NewCollector(m *metrics.Engine, runID string) *Collector {
	constLabels := prometheus.Labels{"run": runID}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, constLabels)
	}

	return &Collector{
		source:      m,
		runID:       runID,
		requests:    desc("http_reqs_total", "HTTP requests completed."),
		failed:      desc("http_req_failed_total", "HTTP requests that failed or returned >= 400."),
		bytes:       desc("http_received_bytes_total", "Response bytes received."),
		activeVUs:   desc("vus", "Active virtual users."),
		rps:         desc("http_reqs_per_second", "Request rate over the run."),
		latency:     desc("http_req_duration_seconds", "HTTP request latency."),
		tagLatency:  desc("tagged_http_req_duration_seconds", "HTTP request latency per tag value.", "tag", "value"),
		tagRequests: desc("tagged_http_reqs_total", "HTTP requests per tag value and outcome.", "tag", "value", "result"),
		checks:      desc("checks_total", "Check outcomes.", "check", "result"),
		phase:       desc("phase", "Current run phase, 1 for the active one.", "phase"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.requests, c.failed, c.bytes, c.activeVUs, c.rps,
		c.latency, c.tagLatency, c.tagRequests, c.checks, c.phase,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.GetSnapshot()

	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(snap.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(snap.FailedRequests))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue, float64(snap.TotalBytes))
	ch <- prometheus.MustNewConstMetric(c.activeVUs, prometheus.GaugeValue, float64(snap.ActiveVUs))
	ch <- prometheus.MustNewConstMetric(c.rps, prometheus.GaugeValue, snap.RPS)
	ch <- summary(c.latency, snap.Latency)

	for _, ts := range c.source.GetAllTagStats() {
		ch <- summary(c.tagLatency, ts.Latency, ts.Tag, ts.Value)
		ch <- prometheus.MustNewConstMetric(c.tagRequests, prometheus.CounterValue,
			float64(ts.Total-ts.Failed), ts.Tag, ts.Value, "success")
		ch <- prometheus.MustNewConstMetric(c.tagRequests, prometheus.CounterValue,
			float64(ts.Failed), ts.Tag, ts.Value, "failure")
	}

	for _, cs := range c.source.GetCheckStats() {
		ch <- prometheus.MustNewConstMetric(c.checks, prometheus.CounterValue, float64(cs.Passed), cs.Name, "pass")
		ch <- prometheus.MustNewConstMetric(c.checks, prometheus.CounterValue, float64(cs.Failed), cs.Name, "fail")
	}

	ch <- prometheus.MustNewConstMetric(c.phase, prometheus.GaugeValue, 1, string(snap.CurrentPhase))
}

// summary converts latency stats into a constant summary in seconds. The
// sum is approximated from the mean.
func summary(desc *prometheus.Desc, ls metrics.LatencyStats, labels ...string) prometheus.Metric {
	quantiles := map[float64]float64{
		0.5:  ls.P50.Seconds(),
		0.9:  ls.P90.Seconds(),
		0.95: ls.P95.Seconds(),
		0.99: ls.P99.Seconds(),
	}
	sum := ls.Mean.Seconds() * float64(ls.Count)
	return prometheus.MustNewConstSummary(desc, uint64(ls.Count), sum, quantiles, labels...)
}

// MetricsServer serves /metrics for one run.
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewMetricsServer registers a Collector for m on a private registry and
// prepares an HTTP server on addr.
func NewMetricsServer(addr string, m *metrics.Engine, runID string, logger *zap.Logger) (*MetricsServer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(m, runID)); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &MetricsServer{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}, nil
}

// Start listens in the background. Listen errors are logged.
func (s *MetricsServer) Start() {
	go func() {
		s.logger.Info("serving metrics", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Handler returns the server's handler, for tests.
func (s *MetricsServer) Handler() http.Handler {
	return s.server.Handler
}

// Shutdown stops the server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
