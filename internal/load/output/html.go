package output

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/load/engine"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

// htmlReport is the data behind the HTML template.
type htmlReport struct {
	*engine.TestResult
	ScenarioNames []string
	RPSChart      template.HTML
	P95Chart      template.HTML
}

// GenerateHTML writes a self-contained HTML report to path, creating its
// directory if needed.
func GenerateHTML(result *engine.TestResult, path string) error {
	html, err := GenerateHTMLString(result)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}

// GenerateHTMLString renders the report for result.
func GenerateHTMLString(result *engine.TestResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result cannot be nil")
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"duration": formatDuration,
		"latency":  formatDurationShort,
		"number":   formatNumber,
		"percent":  func(rate float64) string { return fmt.Sprintf("%.2f%%", rate*100) },
	}).Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	names := make([]string, 0, len(result.Scenarios))
	for name := range result.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	data := htmlReport{
		TestResult:    result,
		ScenarioNames: names,
		RPSChart: sparkline(result.TimeSeries, func(b *metrics.TimeBucket) float64 {
			return b.IntervalRPS
		}),
		P95Chart: sparkline(result.TimeSeries, func(b *metrics.TimeBucket) float64 {
			return float64(b.LatencyP95) / float64(time.Millisecond)
		}),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

const (
	chartWidth  = 600
	chartHeight = 80
)

// sparkline draws series as an inline SVG polyline scaled to its maximum.
func sparkline(series []*metrics.TimeBucket, value func(*metrics.TimeBucket) float64) template.HTML {
	if len(series) < 2 {
		return ""
	}
	peak := 0.0
	for _, b := range series {
		peak = max(peak, value(b))
	}
	if peak == 0 {
		peak = 1
	}

	points := make([]string, len(series))
	step := float64(chartWidth) / float64(len(series)-1)
	for i, b := range series {
		x := float64(i) * step
		y := chartHeight - value(b)/peak*chartHeight
		points[i] = fmt.Sprintf("%.1f,%.1f", x, y)
	}
	return template.HTML(fmt.Sprintf(
		`<svg viewBox="0 0 %d %d" width="100%%" height="%d" preserveAspectRatio="none"><polyline fill="none" stroke="#2563eb" stroke-width="2" points="%s"/></svg><div class="peak">peak %.1f</div>`,
		chartWidth, chartHeight, chartHeight, strings.Join(points, " "), peak))
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Name}} - Load Test Report</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937;background:#f9fafb}
h1{margin-bottom:.2rem}
.meta{color:#6b7280}
.status{display:inline-block;padding:.3rem .8rem;border-radius:4px;font-weight:bold;color:#fff}
.pass{background:#16a34a}.fail{background:#dc2626}
.cards{display:flex;gap:1rem;flex-wrap:wrap;margin:1.5rem 0}
.card{background:#fff;border:1px solid #e5e7eb;border-radius:6px;padding:1rem;min-width:9rem}
.card .label{color:#6b7280;font-size:.8rem}.card .value{font-size:1.4rem;font-weight:bold}
table{border-collapse:collapse;width:100%;background:#fff;margin-bottom:1.5rem}
th,td{border:1px solid #e5e7eb;padding:.4rem .6rem;text-align:left}
th{background:#f3f4f6}
.ok{color:#16a34a}.bad{color:#dc2626}
.peak{color:#6b7280;font-size:.8rem}
</style>
</head>
<body>
<h1>{{.Name}}</h1>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p class="meta">Run {{.RunID}} &middot; {{.StartTime.Format "2006-01-02 15:04:05"}} &middot; {{duration .Duration}}{{if .Interrupted}} &middot; interrupted{{end}}</p>
<span class="status {{if .Passed}}pass{{else}}fail{{end}}">{{if .Passed}}&#10003; PASSED{{else}}&#10007; FAILED{{end}}</span>

{{with .Metrics}}
<div class="cards">
<div class="card"><div class="label">Requests</div><div class="value">{{number .TotalRequests}}</div></div>
<div class="card"><div class="label">Throughput</div><div class="value">{{printf "%.1f" .RPS}} req/s</div></div>
<div class="card"><div class="label">Failed</div><div class="value">{{percent .ErrorRate}}</div></div>
<div class="card"><div class="label">p95</div><div class="value">{{latency .Latency.P95}}</div></div>
<div class="card"><div class="label">Checks</div><div class="value">{{percent .CheckRate}}</div></div>
</div>
<table>
<tr><th>min</th><th>mean</th><th>p50</th><th>p90</th><th>p95</th><th>p99</th><th>max</th></tr>
<tr><td>{{latency .Latency.Min}}</td><td>{{latency .Latency.Mean}}</td><td>{{latency .Latency.P50}}</td><td>{{latency .Latency.P90}}</td><td>{{latency .Latency.P95}}</td><td>{{latency .Latency.P99}}</td><td>{{latency .Latency.Max}}</td></tr>
</table>
{{end}}

{{if .RPSChart}}
<h2>Throughput (req/s)</h2>
{{.RPSChart}}
<h2>p95 latency (ms)</h2>
{{.P95Chart}}
{{end}}

{{if .Thresholds}}
<h2>Thresholds</h2>
<table>
<tr><th></th><th>Metric</th><th>Expression</th><th>Actual</th><th>Message</th></tr>
{{range .Thresholds}}<tr><td class="{{if .Passed}}ok{{else}}bad{{end}}">{{if .Passed}}&#10003;{{else}}&#10007;{{end}}</td><td>{{.Metric}}</td><td>{{.Expression}}</td><td>{{.Value}}</td><td>{{.Message}}</td></tr>
{{end}}</table>
{{end}}

{{if .TagStats}}
<h2>Endpoints</h2>
<table>
<tr><th>Tag</th><th>Requests</th><th>Failed</th><th>p50</th><th>p95</th><th>p99</th><th>max</th></tr>
{{range .TagStats}}<tr><td>{{.Tag}}: {{.Value}}</td><td>{{number .Total}}</td><td>{{percent .ErrorRate}}</td><td>{{latency .Latency.P50}}</td><td>{{latency .Latency.P95}}</td><td>{{latency .Latency.P99}}</td><td>{{latency .Latency.Max}}</td></tr>
{{end}}</table>
{{end}}

{{if .Checks}}
<h2>Checks</h2>
<table>
<tr><th>Check</th><th>Passed</th><th>Failed</th><th>Rate</th></tr>
{{range .Checks}}<tr><td>{{.Name}}</td><td>{{number .Passed}}</td><td>{{number .Failed}}</td><td class="{{if eq .Failed 0}}ok{{else}}bad{{end}}">{{percent .Rate}}</td></tr>
{{end}}</table>
{{end}}

{{if .ScenarioNames}}
<h2>Scenarios</h2>
<table>
<tr><th>Scenario</th><th>Executor</th><th>Start delay</th><th>Duration</th><th>Iterations</th><th>VUs</th></tr>
{{range .ScenarioNames}}{{with index $.Scenarios .}}<tr><td>{{.Name}}{{if .Skipped}} (skipped){{end}}</td><td>{{.Executor}}</td><td>{{duration .StartDelay}}</td><td>{{duration .Duration}}</td><td>{{number .Iterations}}</td><td>{{.VUsSpawned}}</td></tr>
{{end}}{{end}}</table>
{{end}}
</body>
</html>
`
