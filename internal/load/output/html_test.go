package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

func TestGenerateHTMLString(t *testing.T) {
	result := sampleResult(false)
	result.RunID = "run-123"
	result.TimeSeries = []*metrics.TimeBucket{
		{IntervalRPS: 100, LatencyP95: 500 * time.Millisecond},
		{IntervalRPS: 250, LatencyP95: 640 * time.Millisecond},
		{IntervalRPS: 240, LatencyP95: 600 * time.Millisecond},
	}

	html, err := GenerateHTMLString(result)
	if err != nil {
		t.Fatalf("GenerateHTMLString() error = %v", err)
	}

	for _, want := range []string{
		"<title>fakestore-load - Load Test Report</title>",
		"Run run-123",
		`class="status fail"`,
		"30,000",
		"0.10%",
		"640ms",
		"http_req_duration{endpoint:GET /products}",
		"p(95)&lt;800",
		"endpoint: GET /products",
		"POST returns id",
		"list_products",
		"create_product (skipped)",
		"<polyline",
		"peak 250.0",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}

	if strings.Index(html, "<td>create_product (skipped)") > strings.Index(html, "<td>list_products</td>") {
		t.Error("scenarios should be sorted by name")
	}
}

func TestGenerateHTMLString_NoTimeSeries(t *testing.T) {
	html, err := GenerateHTMLString(sampleResult(true))
	if err != nil {
		t.Fatalf("GenerateHTMLString() error = %v", err)
	}
	if strings.Contains(html, "<svg") {
		t.Error("no chart expected without time series")
	}
	if !strings.Contains(html, `class="status pass"`) {
		t.Error("expected a passing status")
	}
}

func TestGenerateHTMLString_Nil(t *testing.T) {
	if _, err := GenerateHTMLString(nil); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestGenerateHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.html")
	if err := GenerateHTML(sampleResult(true), path); err != nil {
		t.Fatalf("GenerateHTML() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "<!DOCTYPE html>") {
		t.Errorf("unexpected report start: %.40q", data)
	}
}
