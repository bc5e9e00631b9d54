package config

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Metric names understood in threshold keys.
const (
	MetricReqDuration = "http_req_duration"
	MetricReqFailed   = "http_req_failed"
	MetricReqs        = "http_reqs"
	MetricChecks      = "checks"
)

// Threshold is one parsed "key: expression" pair, e.g.
// http_req_duration{endpoint:GET /products} with p(95)<800.
type Threshold struct {
	Key    string
	Metric string
	// Tag and TagValue are set when the key carries a {tag:value} filter.
	Tag      string
	TagValue string

	Expr string
	// Stat is pN (any percentile, e.g. p95 or p99.9), avg, med, min, max,
	// rate or count.
	Stat string
	// Percentile is N for a pN stat, zero otherwise.
	Percentile float64
	Op         string
	// Value is in milliseconds for http_req_duration, a plain number
	// otherwise.
	Value float64
}

var (
	thresholdKeyRe  = regexp.MustCompile(`^(\w+)(?:\{\s*([^:{}]+?)\s*:\s*([^{}]*?)\s*\})?$`)
	thresholdExprRe = regexp.MustCompile(`^([\w.]+)\s*([<>=!]+)\s*(.+)$`)
	percentileRe    = regexp.MustCompile(`^p\(\s*(\d+(?:\.\d+)?)\s*\)`)
	percentileStat  = regexp.MustCompile(`^p(\d+(?:\.\d+)?)$`)
)

var validOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true}

var statsByMetric = map[string]map[string]bool{
	MetricReqDuration: {"avg": true, "med": true, "min": true, "max": true},
	MetricReqFailed:   {"rate": true},
	MetricReqs:        {"count": true, "rate": true},
	MetricChecks:      {"rate": true},
}

// ParseThreshold parses one key and one of its expressions.
func ParseThreshold(key, expr string) (*Threshold, error) {
	km := thresholdKeyRe.FindStringSubmatch(strings.TrimSpace(key))
	if km == nil {
		return nil, fmt.Errorf("invalid threshold key %q", key)
	}
	t := &Threshold{Key: key, Metric: km[1], Tag: km[2], TagValue: km[3], Expr: expr}

	allowed, ok := statsByMetric[t.Metric]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q", t.Metric)
	}
	if t.Tag != "" && t.Metric != MetricReqDuration && t.Metric != MetricReqFailed {
		return nil, fmt.Errorf("metric %s does not support tag filters", t.Metric)
	}

	norm := percentileRe.ReplaceAllString(strings.TrimSpace(expr), "p$1")
	em := thresholdExprRe.FindStringSubmatch(norm)
	if em == nil {
		return nil, fmt.Errorf("invalid expression format: %s", expr)
	}
	t.Stat, t.Op = em[1], em[2]
	if pm := percentileStat.FindStringSubmatch(t.Stat); pm != nil && t.Metric == MetricReqDuration {
		q, _ := strconv.ParseFloat(pm[1], 64)
		if q <= 0 || q > 100 {
			return nil, fmt.Errorf("percentile %s out of range (0, 100]", pm[1])
		}
		t.Percentile = q
	} else if !allowed[t.Stat] {
		return nil, fmt.Errorf("%s does not support %q", t.Metric, t.Stat)
	}
	if !validOps[t.Op] {
		return nil, fmt.Errorf("invalid operator %q", t.Op)
	}

	raw := strings.TrimSpace(em[3])
	if t.Metric == MetricReqDuration {
		v, err := parseMillis(raw)
		if err != nil {
			return nil, err
		}
		t.Value = v
		return t, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid threshold value %q", raw)
	}
	t.Value = v
	return t, nil
}

// parseMillis reads "800" as 800ms and "1.2s" as 1200ms.
func parseMillis(raw string) (float64, error) {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration threshold %q", raw)
	}
	return float64(d) / float64(time.Millisecond), nil
}

// Duration returns Value as a time.Duration; only meaningful for
// http_req_duration.
func (t *Threshold) Duration() time.Duration {
	return time.Duration(t.Value * float64(time.Millisecond))
}

// Compare applies the threshold's operator to actual.
func (t *Threshold) Compare(actual float64) bool {
	switch t.Op {
	case "<":
		return actual < t.Value
	case "<=":
		return actual <= t.Value
	case ">":
		return actual > t.Value
	case ">=":
		return actual >= t.Value
	case "==":
		return actual == t.Value
	case "!=":
		return actual != t.Value
	}
	return false
}

// ParsedThresholds parses every threshold, ordered by key then by position.
func (c *TestConfig) ParsedThresholds() ([]*Threshold, error) {
	keys := make([]string, 0, len(c.Thresholds))
	for k := range c.Thresholds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []*Threshold
	for _, k := range keys {
		for _, expr := range c.Thresholds[k] {
			t, err := ParseThreshold(k, expr)
			if err != nil {
				return nil, fmt.Errorf("thresholds.%s: %w", k, err)
			}
			out = append(out, t)
		}
	}
	return out, nil
}
