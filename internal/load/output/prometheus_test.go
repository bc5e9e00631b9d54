package output

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

func feedEngine(t *testing.T) *metrics.Engine {
	t.Helper()
	m := metrics.NewEngine()
	t.Cleanup(m.Stop)

	get := map[string]string{"endpoint": "GET /products"}
	for i := 0; i < 9; i++ {
		m.Record(metrics.Sample{Duration: 100 * time.Millisecond, Name: "list_products", Tags: get, Success: true, Bytes: 10})
	}
	m.Record(metrics.Sample{Duration: 100 * time.Millisecond, Name: "list_products", Tags: get, Success: false})
	m.RecordCheck("GET status 200", true)
	m.RecordCheck("GET status 200", false)
	m.SetActiveVUs(75)
	return m
}

func TestCollector(t *testing.T) {
	m := feedEngine(t)
	c := NewCollector(m, "run-1")

	// 5 totals + 1 latency summary, 3 per tag value, 2 per check, 1 phase
	if got := testutil.CollectAndCount(c); got != 6+3+2+1 {
		t.Errorf("CollectAndCount() = %d, want 12", got)
	}

	expected := `
# HELP shopcheck_http_reqs_total HTTP requests completed.
# TYPE shopcheck_http_reqs_total counter
shopcheck_http_reqs_total{run="run-1"} 10
# HELP shopcheck_vus Active virtual users.
# TYPE shopcheck_vus gauge
shopcheck_vus{run="run-1"} 75
# HELP shopcheck_checks_total Check outcomes.
# TYPE shopcheck_checks_total counter
shopcheck_checks_total{check="GET status 200",result="fail",run="run-1"} 1
shopcheck_checks_total{check="GET status 200",result="pass",run="run-1"} 1
# HELP shopcheck_tagged_http_reqs_total HTTP requests per tag value and outcome.
# TYPE shopcheck_tagged_http_reqs_total counter
shopcheck_tagged_http_reqs_total{result="failure",run="run-1",tag="endpoint",value="GET /products"} 1
shopcheck_tagged_http_reqs_total{result="success",run="run-1",tag="endpoint",value="GET /products"} 9
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"shopcheck_http_reqs_total", "shopcheck_vus", "shopcheck_checks_total", "shopcheck_tagged_http_reqs_total")
	if err != nil {
		t.Errorf("CollectAndCompare() error = %v", err)
	}
}

func TestMetricsServer(t *testing.T) {
	m := feedEngine(t)
	s, err := NewMetricsServer("127.0.0.1:0", m, "run-1", nil)
	if err != nil {
		t.Fatalf("NewMetricsServer() error = %v", err)
	}

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`shopcheck_http_req_duration_seconds_count{run="run-1"} 10`,
		`shopcheck_tagged_http_req_duration_seconds{run="run-1",tag="endpoint",value="GET /products",quantile="0.95"}`,
		`shopcheck_phase{phase="init",run="run-1"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult(true)); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var decoded struct {
		Name       string `json:"name"`
		Passed     bool   `json:"passed"`
		Thresholds []struct {
			Metric string `json:"metric"`
		} `json:"thresholds"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Name != "fakestore-load" || !decoded.Passed || len(decoded.Thresholds) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	if err := WriteJSONFile(path, sampleResult(false)); err != nil {
		t.Fatalf("WriteJSONFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"passed": false`) {
		t.Errorf("report = %s", data)
	}

	if err := WriteJSONFile(filepath.Join(t.TempDir(), "missing", "r.json"), sampleResult(true)); err == nil {
		t.Error("WriteJSONFile() into a missing directory succeeded")
	}
}
