package config

import (
	"testing"
	"time"
)

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		key, expr string
		want      Threshold
		wantErr   bool
	}{
		{
			key:  "http_req_failed",
			expr: "rate<0.02",
			want: Threshold{Metric: MetricReqFailed, Stat: "rate", Op: "<", Value: 0.02},
		},
		{
			key:  "http_req_duration",
			expr: "p(95)<800",
			want: Threshold{Metric: MetricReqDuration, Stat: "p95", Percentile: 95, Op: "<", Value: 800},
		},
		{
			key:  "http_req_duration",
			expr: "p99 <= 1.2s",
			want: Threshold{Metric: MetricReqDuration, Stat: "p99", Percentile: 99, Op: "<=", Value: 1200},
		},
		{
			key:  "http_req_duration{endpoint:GET /products}",
			expr: "p(95)<800",
			want: Threshold{
				Metric: MetricReqDuration, Tag: "endpoint", TagValue: "GET /products",
				Stat: "p95", Percentile: 95, Op: "<", Value: 800,
			},
		},
		{
			key:  "http_req_failed{ endpoint : POST /products }",
			expr: "rate<0.05",
			want: Threshold{
				Metric: MetricReqFailed, Tag: "endpoint", TagValue: "POST /products",
				Stat: "rate", Op: "<", Value: 0.05,
			},
		},
		{
			key:  "http_reqs",
			expr: "count>=10",
			want: Threshold{Metric: MetricReqs, Stat: "count", Op: ">=", Value: 10},
		},
		{
			key:  "checks",
			expr: "rate>0.99",
			want: Threshold{Metric: MetricChecks, Stat: "rate", Op: ">", Value: 0.99},
		},
		{
			key:  "http_req_duration",
			expr: "p(75)<300",
			want: Threshold{Metric: MetricReqDuration, Stat: "p75", Percentile: 75, Op: "<", Value: 300},
		},
		{
			key:  "http_req_duration",
			expr: "p( 99.9 ) < 2s",
			want: Threshold{Metric: MetricReqDuration, Stat: "p99.9", Percentile: 99.9, Op: "<", Value: 2000},
		},
		{key: "http_req_duration", expr: "p(0)<800", wantErr: true},
		{key: "http_req_duration", expr: "p(101)<800", wantErr: true},
		{key: "http_req_failed", expr: "p(95)<800", wantErr: true},
		{key: "http_req_waiting", expr: "p95<1", wantErr: true},
		{key: "checks{name:x}", expr: "rate>0.9", wantErr: true},
		{key: "http_req_duration", expr: "rate<1", wantErr: true},
		{key: "http_req_duration", expr: "p95 => 1", wantErr: true},
		{key: "http_req_duration", expr: "p95<fast", wantErr: true},
		{key: "http_req_failed", expr: "rate<two", wantErr: true},
		{key: "http_req_failed", expr: "garbage", wantErr: true},
		{key: "bad key{", expr: "rate<1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key+" "+tt.expr, func(t *testing.T) {
			got, err := ParseThreshold(tt.key, tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseThreshold() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Metric != tt.want.Metric || got.Tag != tt.want.Tag || got.TagValue != tt.want.TagValue {
				t.Errorf("ParseThreshold() metric = %s{%s:%s}, want %s{%s:%s}",
					got.Metric, got.Tag, got.TagValue, tt.want.Metric, tt.want.Tag, tt.want.TagValue)
			}
			if got.Percentile != tt.want.Percentile {
				t.Errorf("ParseThreshold() Percentile = %v, want %v", got.Percentile, tt.want.Percentile)
			}
			if got.Stat != tt.want.Stat || got.Op != tt.want.Op || got.Value != tt.want.Value {
				t.Errorf("ParseThreshold() = %s%s%v, want %s%s%v",
					got.Stat, got.Op, got.Value, tt.want.Stat, tt.want.Op, tt.want.Value)
			}
		})
	}
}

func TestThreshold_Compare(t *testing.T) {
	tests := []struct {
		op     string
		actual float64
		want   bool
	}{
		{"<", 0.01, true},
		{"<", 0.02, false},
		{"<=", 0.02, true},
		{">", 0.03, true},
		{">=", 0.01, false},
		{"==", 0.02, true},
		{"!=", 0.02, false},
	}
	for _, tt := range tests {
		th := &Threshold{Op: tt.op, Value: 0.02}
		if got := th.Compare(tt.actual); got != tt.want {
			t.Errorf("Compare(%v %s 0.02) = %v, want %v", tt.actual, tt.op, got, tt.want)
		}
	}
}

func TestThreshold_Duration(t *testing.T) {
	th, err := ParseThreshold("http_req_duration", "p(95)<800")
	if err != nil {
		t.Fatalf("ParseThreshold() error = %v", err)
	}
	if got := th.Duration(); got != 800*time.Millisecond {
		t.Errorf("Duration() = %v, want 800ms", got)
	}
}

func TestParsedThresholds(t *testing.T) {
	cfg := &TestConfig{Thresholds: map[string][]string{
		"http_req_failed":   {"rate<0.02"},
		"http_req_duration": {"p(95)<800", "p(99)<1500"},
	}}

	got, err := cfg.ParsedThresholds()
	if err != nil {
		t.Fatalf("ParsedThresholds() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(ParsedThresholds()) = %d, want 3", len(got))
	}
	if got[0].Stat != "p95" || got[1].Stat != "p99" || got[2].Metric != MetricReqFailed {
		t.Errorf("ParsedThresholds() order = %s, %s, %s", got[0].Key, got[1].Key, got[2].Key)
	}

	cfg.Thresholds["checks"] = []string{"avg>1"}
	if _, err := cfg.ParsedThresholds(); err == nil {
		t.Error("ParsedThresholds() error = nil, want error")
	}
}
