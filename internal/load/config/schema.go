// Package config loads and validates load-test scenario files.
package config

import (
	"maps"
	"slices"
	"time"
)

// TestConfig is the root of a scenario file.
//
// Example YAML:
//
//	name: fakestore-load
//	settings:
//	  baseUrl: https://fakestoreapi.com
//	scenarios:
//	  list_products:
//	    executor: constant-vus
//	    vus: 75
//	    duration: 2m
//	    pacing: {type: random, min: 300ms, max: 700ms}
//	    requests:
//	      - name: list_products
//	        method: GET
//	        url: "{{baseUrl}}/products"
//	        tags: {endpoint: GET /products}
//	        checks:
//	          - {name: GET status 200, status: [200]}
//	thresholds:
//	  http_req_failed: ["rate<0.02"]
//	  "http_req_duration{endpoint:GET /products}": ["p(95)<800"]
type TestConfig struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Settings GlobalSettings `json:"settings,omitempty" yaml:"settings,omitempty"`

	// Variables are available to every request as {{name}}.
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Scenarios run concurrently, each with its own executor.
	Scenarios map[string]*ScenarioConfig `json:"scenarios" yaml:"scenarios"`

	// Thresholds maps a metric key, optionally with a {tag:value} filter,
	// to expressions that must all hold for the run to pass.
	Thresholds map[string][]string `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`

	Options *ExecutionOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

// Clone returns a copy that ApplyDefaults can fill without touching c.
// Scenarios, requests and options are copied; leaf maps are shared.
func (c *TestConfig) Clone() *TestConfig {
	out := *c
	out.Scenarios = make(map[string]*ScenarioConfig, len(c.Scenarios))
	for name, sc := range c.Scenarios {
		if sc == nil {
			out.Scenarios[name] = nil
			continue
		}
		cp := *sc
		cp.Stages = slices.Clone(sc.Stages)
		cp.Requests = slices.Clone(sc.Requests)
		out.Scenarios[name] = &cp
	}
	out.Variables = maps.Clone(c.Variables)
	out.Thresholds = maps.Clone(c.Thresholds)
	if c.Options != nil {
		opts := *c.Options
		out.Options = &opts
	}
	return &out
}

// GlobalSettings holds HTTP settings shared by all scenarios.
type GlobalSettings struct {
	BaseURL               string            `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Timeout               Duration          `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxConnectionsPerHost int               `json:"maxConnectionsPerHost,omitempty" yaml:"maxConnectionsPerHost,omitempty"`
	MaxIdleConnsPerHost   int               `json:"maxIdleConnsPerHost,omitempty" yaml:"maxIdleConnsPerHost,omitempty"`
	InsecureSkipVerify    bool              `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`
	UserAgent             string            `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	Headers               map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ScenarioConfig is one load profile.
type ScenarioConfig struct {
	// Executor is "constant-vus" or "ramping-vus".
	Executor string `json:"executor" yaml:"executor"`

	// VUs and Duration drive constant-vus.
	VUs      int    `json:"vus,omitempty" yaml:"vus,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`

	// StartVUs and Stages drive ramping-vus.
	StartVUs int           `json:"startVUs,omitempty" yaml:"startVUs,omitempty"`
	Stages   []StageConfig `json:"stages,omitempty" yaml:"stages,omitempty"`

	Requests []RequestConfig `json:"requests" yaml:"requests"`

	GracefulStop string        `json:"gracefulStop,omitempty" yaml:"gracefulStop,omitempty"`
	Pacing       *PacingConfig `json:"pacing,omitempty" yaml:"pacing,omitempty"`

	// StartTime delays the scenario relative to the start of the run.
	StartTime string `json:"startTime,omitempty" yaml:"startTime,omitempty"`

	// Tags are attached to every sample this scenario records.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// StageConfig is one ramping step: reach Target VUs over Duration.
type StageConfig struct {
	Duration string `json:"duration" yaml:"duration"`
	Target   int    `json:"target" yaml:"target"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
}

// RequestConfig is one templated HTTP request.
type RequestConfig struct {
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Body may use {{var}} and generators such as {{$uuid8}} or
	// {{$randFloat:50:200}}.
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	Timeout   string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	ThinkTime string `json:"thinkTime,omitempty" yaml:"thinkTime,omitempty"`

	Tags    map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Checks  []CheckConfig     `json:"checks,omitempty" yaml:"checks,omitempty"`
	Extract []ExtractConfig   `json:"extract,omitempty" yaml:"extract,omitempty"`
}

// CheckConfig is a named response assertion. Every field that is set must
// hold.
type CheckConfig struct {
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	Status        []int  `json:"status,omitempty" yaml:"status,omitempty"`
	BodyMinLength int    `json:"bodyMinLength,omitempty" yaml:"bodyMinLength,omitempty"`
	JSONPath      string `json:"jsonPath,omitempty" yaml:"jsonPath,omitempty"`
	Exists        bool   `json:"exists,omitempty" yaml:"exists,omitempty"`
	Equals        string `json:"equals,omitempty" yaml:"equals,omitempty"`
	Contains      string `json:"contains,omitempty" yaml:"contains,omitempty"`
	// Schema is a JSON Schema document the body must satisfy.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// PacingConfig is the wait between iterations of one VU.
type PacingConfig struct {
	// Type is "none", "constant" or "random".
	Type     string `json:"type" yaml:"type"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Min      string `json:"min,omitempty" yaml:"min,omitempty"`
	Max      string `json:"max,omitempty" yaml:"max,omitempty"`
}

// ExtractConfig copies part of a response into the VU's variables.
type ExtractConfig struct {
	Name string `json:"name" yaml:"name"`
	// Source is "body", "header" or "status".
	Source string `json:"source" yaml:"source"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ExecutionOptions controls how scenarios are scheduled.
type ExecutionOptions struct {
	// Sequential runs scenarios one after another, ignoring startTime.
	Sequential bool `json:"sequential,omitempty" yaml:"sequential,omitempty"`

	// NoVUConnectionReuse gives every VU its own HTTP client.
	NoVUConnectionReuse bool `json:"noVUConnectionReuse,omitempty" yaml:"noVUConnectionReuse,omitempty"`
}

// Duration is a time.Duration read from "30s"-style strings.
type Duration time.Duration

// GetDuration returns d, or def when d is zero.
func (d Duration) GetDuration(def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" {
		s = ""
	}
	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
