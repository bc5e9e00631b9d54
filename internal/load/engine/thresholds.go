package engine

import (
	"fmt"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/load/config"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

// ThresholdResult contains the result of a threshold evaluation.
type ThresholdResult struct {
	// Metric is the threshold key, including any tag filter.
	Metric     string `json:"metric"`
	Expression string `json:"expression"`
	Passed     bool   `json:"passed"`
	Value      string `json:"value"`
	Message    string `json:"message,omitempty"`
}

// EvaluateThresholds checks every threshold against what m has recorded.
//
// A duration threshold with no samples fails: a run that never reached an
// endpoint has not shown it is fast enough.
func EvaluateThresholds(thresholds []*config.Threshold, m *metrics.Engine) []ThresholdResult {
	if len(thresholds) == 0 {
		return nil
	}

	snapshot := m.GetSnapshot()
	results := make([]ThresholdResult, 0, len(thresholds))
	for _, t := range thresholds {
		var r ThresholdResult
		switch t.Metric {
		case config.MetricReqDuration:
			r = evaluateDuration(t, m, snapshot)
		case config.MetricReqFailed:
			r = evaluateFailed(t, m, snapshot)
		case config.MetricReqs:
			r = evaluateRequests(t, snapshot)
		case config.MetricChecks:
			r = evaluateRate(t, snapshot.CheckRate)
		default:
			r = ThresholdResult{Message: fmt.Sprintf("unknown metric: %s", t.Metric)}
		}
		r.Metric = t.Key
		r.Expression = t.Expr
		results = append(results, r)
	}
	return results
}

func evaluateDuration(t *config.Threshold, m *metrics.Engine, snapshot *metrics.Snapshot) ThresholdResult {
	stats := snapshot.Latency
	if t.Tag != "" {
		ts, _ := m.GetTagStats(t.Tag, t.TagValue)
		stats = ts.Latency
	}
	if stats.Count == 0 {
		return ThresholdResult{Value: "n/a", Message: "no samples recorded"}
	}

	var actual time.Duration
	switch {
	case t.Percentile > 0 && t.Tag != "":
		actual, _ = m.TagLatencyAtQuantile(t.Tag, t.TagValue, t.Percentile)
	case t.Percentile > 0:
		actual = m.LatencyAtQuantile(t.Percentile)
	case t.Stat == "min":
		actual = stats.Min
	case t.Stat == "max":
		actual = stats.Max
	case t.Stat == "avg":
		actual = stats.Mean
	case t.Stat == "med":
		actual = stats.P50
	default:
		return ThresholdResult{Message: fmt.Sprintf("unknown stat: %s", t.Stat)}
	}

	ms := float64(actual) / float64(time.Millisecond)
	r := ThresholdResult{Value: actual.String(), Passed: t.Compare(ms)}
	if !r.Passed {
		r.Message = fmt.Sprintf("%s is %s, threshold: %s %s", t.Stat, actual, t.Op, t.Duration())
	}
	return r
}

func evaluateFailed(t *config.Threshold, m *metrics.Engine, snapshot *metrics.Snapshot) ThresholdResult {
	rate := snapshot.ErrorRate
	if t.Tag != "" {
		ts, _ := m.GetTagStats(t.Tag, t.TagValue)
		rate = ts.ErrorRate
	}
	return evaluateRate(t, rate)
}

func evaluateRate(t *config.Threshold, rate float64) ThresholdResult {
	r := ThresholdResult{Value: fmt.Sprintf("%.4f", rate), Passed: t.Compare(rate)}
	if !r.Passed {
		r.Message = fmt.Sprintf("rate is %.4f, threshold: %s %.4f", rate, t.Op, t.Value)
	}
	return r
}

func evaluateRequests(t *config.Threshold, snapshot *metrics.Snapshot) ThresholdResult {
	var actual float64
	switch t.Stat {
	case "count":
		actual = float64(snapshot.TotalRequests)
	case "rate":
		actual = snapshot.RPS
	}

	r := ThresholdResult{Value: fmt.Sprintf("%.2f", actual), Passed: t.Compare(actual)}
	if !r.Passed {
		r.Message = fmt.Sprintf("%s is %.2f, threshold: %s %.2f", t.Stat, actual, t.Op, t.Value)
	}
	return r
}
