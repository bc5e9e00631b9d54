// Package output renders load runs for humans: a live status block while
// the run is in flight and a summary once it has finished.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/wesleyorama2/shopcheck/internal/load/engine"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

const (
	cursorUp  = "\033[%dA"
	clearLine = "\033[2K"

	boxHorizontal  = "━"
	boxVertical    = "│"
	boxTopLeft     = "┌"
	boxTopRight    = "┐"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"

	progressFilled = "█"
	progressEmpty  = "░"

	ruleWidth = 56
	boxWidth  = 55
)

// LiveStats is one frame of the live display.
type LiveStats struct {
	Progress  float64
	Elapsed   time.Duration
	Remaining time.Duration

	ActiveVUs int
	TargetVUs int

	CurrentRPS    float64
	TotalRequests int64
	Errors        int64
	ErrorRate     float64

	LatencyP95 time.Duration
	LatencyAvg time.Duration

	CurrentPhase string
	// CurrentStage is 1-indexed; zero when the run has no stages.
	CurrentStage int
	TotalStages  int
}

// ConsoleOutput writes the live display and the summary.
type ConsoleOutput struct {
	testName      string
	executorType  string
	totalDuration time.Duration
	writer        io.Writer
	isTTY         bool
	quiet         bool

	bold, dim, cyan, green, yellow, red, blue, magenta *color.Color

	mu          sync.Mutex
	lastStats   *LiveStats
	linesOutput int
}

// ConsoleOutputConfig configures a ConsoleOutput.
type ConsoleOutputConfig struct {
	TestName      string
	ExecutorType  string
	TotalDuration time.Duration
	Writer        io.Writer
	Quiet         bool
	ForceColors   bool
	ForceTTY      bool
	// NoColor wins over ForceColors.
	NoColor       bool
}

// NewConsoleOutput creates a console writer. Colors are used only on a
// colour-capable terminal unless ForceColors is set.
func NewConsoleOutput(config ConsoleOutputConfig) *ConsoleOutput {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	isTTY := config.ForceTTY || IsTerminal(config.Writer)
	useColors := !config.NoColor && (config.ForceColors || (isTTY && supportsColors()))

	c := &ConsoleOutput{
		testName:      config.TestName,
		executorType:  config.ExecutorType,
		totalDuration: config.TotalDuration,
		writer:        config.Writer,
		isTTY:         isTTY,
		quiet:         config.Quiet,
		bold:          color.New(color.Bold),
		dim:           color.New(color.Faint),
		cyan:          color.New(color.FgCyan),
		green:         color.New(color.FgGreen),
		yellow:        color.New(color.FgYellow),
		red:           color.New(color.FgRed),
		blue:          color.New(color.FgBlue),
		magenta:       color.New(color.FgMagenta),
	}
	for _, col := range []*color.Color{c.bold, c.dim, c.cyan, c.green, c.yellow, c.red, c.blue, c.magenta} {
		if useColors {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// PrintHeader prints the run banner.
func (c *ConsoleOutput) PrintHeader() {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line := strings.Repeat(boxHorizontal, ruleWidth)
	executorInfo := ""
	if c.executorType != "" {
		executorInfo = fmt.Sprintf(" [%s]", c.executorType)
	}
	if c.totalDuration > 0 {
		executorInfo += " " + formatDuration(c.totalDuration)
	}

	c.writeln(c.cyan.Sprint(line))
	c.writeln(c.bold.Sprintf("%s - Running%s", c.testName, executorInfo))
	c.writeln(c.cyan.Sprint(line))
	c.writeln("")
}

// Update redraws the live block in place. It does nothing off a terminal;
// use PrintNonInteractiveUpdate there.
func (c *ConsoleOutput) Update(stats *LiveStats) {
	if c.quiet || !c.isTTY {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastStats = stats
	c.clearLive()

	lines := c.renderLiveStats(stats)
	c.linesOutput = len(lines)
	for _, line := range lines {
		c.writeln(line)
	}
}

// clearLive erases the previous live block. Callers hold mu.
func (c *ConsoleOutput) clearLive() {
	if c.linesOutput == 0 {
		return
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	for i := 0; i < c.linesOutput; i++ {
		c.write(clearLine + "\n")
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	c.linesOutput = 0
}

func (c *ConsoleOutput) renderLiveStats(stats *LiveStats) []string {
	var lines []string

	bar := renderProgressBar(stats.Progress, 40)
	timeInfo := fmt.Sprintf("%s / %s", formatDuration(stats.Elapsed), formatDuration(stats.Elapsed+stats.Remaining))
	lines = append(lines, fmt.Sprintf("Progress: %s %s | %s",
		c.green.Sprint(bar),
		c.bold.Sprintf("%.0f%%", stats.Progress*100),
		c.dim.Sprint(timeInfo)))

	phase := stats.CurrentPhase
	if stats.TotalStages > 0 {
		phase = fmt.Sprintf("%s (%d/%d)", stats.CurrentPhase, stats.CurrentStage, stats.TotalStages)
	}
	lines = append(lines, fmt.Sprintf("Stage:    %s", c.magenta.Sprint(phase)), "")

	lines = append(lines, c.dim.Sprint(boxTopLeft+strings.Repeat(boxHorizontal, boxWidth-2)+boxTopRight))

	vus := fmt.Sprintf("VUs:     %s / %d", c.cyan.Sprint(stats.ActiveVUs), stats.TargetVUs)
	reqs := fmt.Sprintf("Requests:    %s", c.cyan.Sprint(formatNumber(stats.TotalRequests)))
	lines = append(lines, c.formatBoxRow(vus, reqs))

	errColor := c.rateColor(stats.ErrorRate, 0.01, 0.05)
	rps := fmt.Sprintf("RPS:     %s", c.green.Sprintf("%.1f", stats.CurrentRPS))
	errs := fmt.Sprintf("Errors:      %s (%s)",
		errColor.Sprint(stats.Errors),
		errColor.Sprintf("%.1f%%", stats.ErrorRate*100))
	lines = append(lines, c.formatBoxRow(rps, errs))

	p95 := fmt.Sprintf("P95:     %s", c.blue.Sprint(formatDurationShort(stats.LatencyP95)))
	avg := fmt.Sprintf("Avg:         %s", c.blue.Sprint(formatDurationShort(stats.LatencyAvg)))
	lines = append(lines, c.formatBoxRow(p95, avg))

	lines = append(lines, c.dim.Sprint(boxBottomLeft+strings.Repeat(boxHorizontal, boxWidth-2)+boxBottomRight))
	return lines
}

// rateColor picks green, yellow or red for an error rate.
func (c *ConsoleOutput) rateColor(rate, warn, bad float64) *color.Color {
	switch {
	case rate > bad:
		return c.red
	case rate > warn:
		return c.yellow
	}
	return c.green
}

func (c *ConsoleOutput) formatBoxRow(left, right string) string {
	colWidth := (boxWidth - 4) / 2
	leftPad := max(colWidth-visibleLen(left), 0)
	rightPad := max(colWidth-visibleLen(right), 0)

	bar := c.dim.Sprint(boxVertical)
	return fmt.Sprintf("%s %s%s%s %s%s %s",
		bar, left, strings.Repeat(" ", leftPad),
		bar, right, strings.Repeat(" ", rightPad),
		bar)
}

func renderProgressBar(progress float64, width int) string {
	progress = min(max(progress, 0), 1)
	filled := int(progress * float64(width))
	return "[" + strings.Repeat(progressFilled, filled) + strings.Repeat(progressEmpty, width-filled) + "]"
}

// PrintSummary prints the end-of-run report: totals, latency, one line per
// tagged endpoint, checks and thresholds. Quiet mode prints only
// PASSED or FAILED.
func (c *ConsoleOutput) PrintSummary(result *engine.TestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quiet {
		if result.Passed {
			c.writeln(c.green.Sprint("PASSED"))
		} else {
			c.writeln(c.red.Sprint("FAILED"))
		}
		return
	}

	if c.isTTY {
		c.clearLive()
	}

	line := strings.Repeat(boxHorizontal, ruleWidth)
	status := c.green.Sprint("Completed ✓")
	switch {
	case !result.Passed:
		status = c.red.Sprint("Failed ✗")
	case result.Interrupted:
		status = c.yellow.Sprint("Interrupted")
	}

	c.writeln("")
	c.writeln(c.cyan.Sprint(line))
	c.writeln(fmt.Sprintf("%s - %s", c.bold.Sprint(result.Name), status))
	c.writeln(c.cyan.Sprint(line))
	c.writeln("")

	c.writeln(fmt.Sprintf("Duration:      %s", c.cyan.Sprint(formatDuration(result.Duration))))
	if m := result.Metrics; m != nil {
		c.writeln(fmt.Sprintf("Total Reqs:    %s", c.cyan.Sprint(formatNumber(m.TotalRequests))))
		c.writeln(fmt.Sprintf("Throughput:    %s", c.cyan.Sprintf("%.1f req/s", m.RPS)))

		successRate := 1.0 - m.ErrorRate
		c.writeln(fmt.Sprintf("Success Rate:  %s",
			c.rateColor(m.ErrorRate, 0.01, 0.05).Sprintf("%.1f%%", successRate*100)))
	}
	c.writeln("")

	if len(result.Scenarios) > 0 {
		c.writeln(c.bold.Sprint("Scenarios:"))
		names := make([]string, 0, len(result.Scenarios))
		for name := range result.Scenarios {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sr := result.Scenarios[name]
			if sr.Skipped {
				c.writeln(fmt.Sprintf("  %-24s %s", name, c.dim.Sprint("skipped")))
				continue
			}
			c.writeln(fmt.Sprintf("  %-24s %-13s %s VUs  %s iterations  %s",
				name, sr.Executor, formatNumber(int64(sr.VUsSpawned)),
				formatNumber(sr.Iterations), formatDuration(sr.Duration)))
		}
		c.writeln("")
	}

	if m := result.Metrics; m != nil {
		c.writeln(c.bold.Sprint("Latency Distribution:"))
		c.writeln(fmt.Sprintf("  Min:       %s", formatDurationShort(m.Latency.Min)))
		c.writeln(fmt.Sprintf("  P50:       %s", formatDurationShort(m.Latency.P50)))
		c.writeln(fmt.Sprintf("  P90:       %s", formatDurationShort(m.Latency.P90)))
		c.writeln(fmt.Sprintf("  P95:       %s", formatDurationShort(m.Latency.P95)))
		c.writeln(fmt.Sprintf("  P99:       %s", formatDurationShort(m.Latency.P99)))
		c.writeln(fmt.Sprintf("  Max:       %s", formatDurationShort(m.Latency.Max)))
		c.writeln("")
	}

	var endpoints []metrics.TagStats
	for _, ts := range result.TagStats {
		if ts.Tag == "endpoint" {
			endpoints = append(endpoints, ts)
		}
	}
	if len(endpoints) > 0 {
		c.writeln(c.bold.Sprint("Endpoints:"))
		for _, ts := range endpoints {
			c.writeln(fmt.Sprintf("  %-22s reqs=%-8s p95=%-8s p99=%-8s failed=%s",
				ts.Value, formatNumber(ts.Total),
				formatDurationShort(ts.Latency.P95), formatDurationShort(ts.Latency.P99),
				c.rateColor(ts.ErrorRate, 0.01, 0.05).Sprintf("%.2f%%", ts.ErrorRate*100)))
		}
		c.writeln("")
	}

	if len(result.Checks) > 0 {
		c.writeln(c.bold.Sprint("Checks:"))
		for _, cs := range result.Checks {
			c.writeln(fmt.Sprintf("  %s %s %s", c.icon(cs.Failed == 0), cs.Name,
				c.dim.Sprintf("(%d passed, %d failed)", cs.Passed, cs.Failed)))
		}
		c.writeln("")
	}

	if len(result.Thresholds) > 0 {
		c.writeln(c.bold.Sprint("Thresholds:"))
		for _, t := range result.Thresholds {
			c.writeln(fmt.Sprintf("  %s %s %s (actual: %s)", c.icon(t.Passed), t.Metric, t.Expression, t.Value))
			if !t.Passed && t.Message != "" {
				c.writeln("      " + c.dim.Sprint(t.Message))
			}
		}
		c.writeln("")
	}
}

func (c *ConsoleOutput) icon(ok bool) string {
	if ok {
		return c.green.Sprint("✓")
	}
	return c.red.Sprint("✗")
}

// PrintNonInteractiveUpdate prints a single status line, for CI logs and
// pipes.
func (c *ConsoleOutput) PrintNonInteractiveUpdate(stats *LiveStats) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("[%s] Progress: %.0f%% | VUs: %d | Reqs: %d | RPS: %.1f | Errors: %d (%.1f%%) | P95: %s",
		formatDuration(stats.Elapsed),
		stats.Progress*100,
		stats.ActiveVUs,
		stats.TotalRequests,
		stats.CurrentRPS,
		stats.Errors,
		stats.ErrorRate*100,
		formatDurationShort(stats.LatencyP95)))
}

// IsTTY returns whether the output is a terminal.
func (c *ConsoleOutput) IsTTY() bool {
	return c.isTTY
}

func (c *ConsoleOutput) write(s string) {
	fmt.Fprint(c.writer, s)
}

func (c *ConsoleOutput) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %02dm %02ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

func formatDurationShort(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return "0ms"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// formatNumber adds thousands separators.
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(str, "-")
	if len(str) <= 3 {
		if neg {
			return "-" + str
		}
		return str
	}

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	offset := len(str) % 3
	if offset > 0 {
		sb.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(str[i : i+3])
	}
	return sb.String()
}

// visibleLen is the rune count of s without ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		n++
	}
	return n
}

// StatsFromMetrics builds a live frame from a snapshot.
func StatsFromMetrics(snapshot *metrics.Snapshot, progress float64, totalDuration time.Duration, targetVUs, currentStage, totalStages int) *LiveStats {
	if snapshot == nil {
		return &LiveStats{
			Progress:     progress,
			TargetVUs:    targetVUs,
			CurrentStage: currentStage,
			TotalStages:  totalStages,
			CurrentPhase: "initializing",
		}
	}

	elapsed := snapshot.Elapsed
	var remaining time.Duration
	if totalDuration > 0 {
		remaining = max(totalDuration-elapsed, 0)
	} else if progress > 0 && progress < 1 {
		remaining = time.Duration(float64(elapsed) * (1 - progress) / progress)
	}

	return &LiveStats{
		Progress:      progress,
		Elapsed:       elapsed,
		Remaining:     remaining,
		ActiveVUs:     snapshot.ActiveVUs,
		TargetVUs:     targetVUs,
		CurrentRPS:    snapshot.RPS,
		TotalRequests: snapshot.TotalRequests,
		Errors:        snapshot.FailedRequests,
		ErrorRate:     snapshot.ErrorRate,
		LatencyP95:    snapshot.Latency.P95,
		LatencyAvg:    snapshot.Latency.Mean,
		CurrentPhase:  string(snapshot.CurrentPhase),
		CurrentStage:  currentStage,
		TotalStages:   totalStages,
	}
}
