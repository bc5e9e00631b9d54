package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDurationString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "seconds", input: "30s", expected: 30 * time.Second},
		{name: "minutes", input: "2m", expected: 2 * time.Minute},
		{name: "milliseconds", input: "300ms", expected: 300 * time.Millisecond},
		{name: "combined", input: "1m30s", expected: 90 * time.Second},
		{name: "integer as seconds", input: "45", expected: 45 * time.Second},
		{name: "surrounding spaces", input: " 1s ", expected: time.Second},
		{name: "empty string", input: "", expected: 0},
		{name: "invalid format", input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDurationString(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseDurationString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	yamlContent := `
name: smoke
settings:
  baseUrl: http://localhost:8080
  timeout: 5s
variables:
  category: electronics
scenarios:
  browse:
    executor: constant-vus
    vus: 2
    duration: 10s
    requests:
      - method: get
        url: "{{baseUrl}}/products/category/{{category}}"
        checks:
          - status: [200]
`
	dir := t.TempDir()
	path := filepath.Join(dir, "smoke.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Name != "smoke" {
		t.Errorf("Name = %q, want smoke", cfg.Name)
	}
	if got := cfg.Settings.Timeout.GetDuration(0); got != 5*time.Second {
		t.Errorf("Settings.Timeout = %v, want 5s", got)
	}

	sc := cfg.Scenarios["browse"]
	if sc == nil || sc.VUs != 2 || len(sc.Requests) != 1 {
		t.Fatalf("Scenarios[browse] = %+v", sc)
	}
	if got := sc.Requests[0].Checks[0].Status; len(got) != 1 || got[0] != 200 {
		t.Errorf("Checks[0].Status = %v, want [200]", got)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	jsonContent := `{
  "name": "json-smoke",
  "settings": {"baseUrl": "http://localhost", "timeout": "2s"},
  "scenarios": {
    "create": {
      "executor": "ramping-vus",
      "startVUs": 1,
      "stages": [{"duration": "5s", "target": 3}],
      "requests": [{"method": "POST", "url": "/products", "body": "{}"}]
    }
  },
  "thresholds": {"http_req_failed": ["rate<0.1"]}
}`
	path := filepath.Join(t.TempDir(), "smoke.json")
	if err := os.WriteFile(path, []byte(jsonContent), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	sc := cfg.Scenarios["create"]
	if sc.StartVUs != 1 || len(sc.Stages) != 1 || sc.Stages[0].Target != 3 {
		t.Errorf("Scenarios[create] = %+v", sc)
	}
	if got := cfg.Thresholds["http_req_failed"]; len(got) != 1 {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() error = nil, want error for missing file")
	}
}

func TestScenarioDuration(t *testing.T) {
	tests := []struct {
		name    string
		sc      *ScenarioConfig
		want    time.Duration
		wantErr bool
	}{
		{"explicit", &ScenarioConfig{Duration: "2m"}, 2 * time.Minute, false},
		{
			"sum of stages",
			&ScenarioConfig{Stages: []StageConfig{{Duration: "1m", Target: 100}, {Duration: "30s", Target: 0}}},
			90 * time.Second,
			false,
		},
		{"neither", &ScenarioConfig{}, 0, true},
		{"bad stage", &ScenarioConfig{Stages: []StageConfig{{Duration: "later"}}}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScenarioDuration(tt.sc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ScenarioDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ScenarioDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTotalDuration(t *testing.T) {
	cfg := &TestConfig{
		Scenarios: map[string]*ScenarioConfig{
			"a": {Duration: "2m"},
			"b": {Duration: "2m", StartTime: "1s"},
		},
	}
	got, err := cfg.TotalDuration()
	if err != nil {
		t.Fatalf("TotalDuration() error = %v", err)
	}
	if want := 2*time.Minute + time.Second; got != want {
		t.Errorf("TotalDuration() = %v, want %v", got, want)
	}

	cfg.Options = &ExecutionOptions{Sequential: true}
	got, _ = cfg.TotalDuration()
	if want := 4 * time.Minute; got != want {
		t.Errorf("TotalDuration() sequential = %v, want %v", got, want)
	}
}

func TestResolveVariables(t *testing.T) {
	settings := &GlobalSettings{BaseURL: "https://fakestoreapi.com"}
	globals := map[string]string{"id": "7"}

	got := ResolveVariables("{{baseUrl}}/products/{{id}}?t={{$timestamp}}", globals, settings)
	if !strings.HasPrefix(got, "https://fakestoreapi.com/products/7?t=") {
		t.Errorf("ResolveVariables() = %q", got)
	}

	if got := ResolveVariables("{{missing}}", nil, nil); got != "{{missing}}" {
		t.Errorf("ResolveVariables() = %q, want placeholder kept", got)
	}
}

func TestMergeVariables(t *testing.T) {
	got := MergeVariables(map[string]string{"a": "1", "b": "1"}, nil, map[string]string{"b": "2"})
	if got["a"] != "1" || got["b"] != "2" || len(got) != 2 {
		t.Errorf("MergeVariables() = %v", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &TestConfig{
		Scenarios: map[string]*ScenarioConfig{
			"browse": {Requests: []RequestConfig{{URL: "/products"}, {Method: "post", URL: "/products"}}},
		},
	}
	ApplyDefaults(cfg)

	if got := cfg.Settings.Timeout.GetDuration(0); got != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", got)
	}
	if cfg.Settings.UserAgent != "shopcheck/1.0" {
		t.Errorf("UserAgent = %q", cfg.Settings.UserAgent)
	}
	if cfg.Options == nil {
		t.Fatal("Options = nil, want defaults")
	}

	sc := cfg.Scenarios["browse"]
	if sc.Executor != "" || sc.VUs != 0 {
		t.Errorf("Executor = %q, VUs = %d, want both left unset", sc.Executor, sc.VUs)
	}
	if sc.Requests[0].Name != "browse_request_1" || sc.Requests[0].Method != "GET" {
		t.Errorf("Requests[0] = %+v", sc.Requests[0])
	}
	if sc.Requests[1].Method != "POST" {
		t.Errorf("Requests[1].Method = %q, want POST", sc.Requests[1].Method)
	}
}

func TestClone(t *testing.T) {
	orig := &TestConfig{
		Name:      "clone",
		Variables: map[string]string{"id": "1"},
		Scenarios: map[string]*ScenarioConfig{
			"browse": {Executor: "constant-vus", VUs: 2, Requests: []RequestConfig{{URL: "/products"}}},
		},
	}

	cp := orig.Clone()
	ApplyDefaults(cp)
	cp.Variables["id"] = "2"

	if orig.Options != nil {
		t.Error("Options set on the original")
	}
	if orig.Settings.UserAgent != "" {
		t.Errorf("original UserAgent = %q, want empty", orig.Settings.UserAgent)
	}
	if req := orig.Scenarios["browse"].Requests[0]; req.Name != "" || req.Method != "" {
		t.Errorf("original request = %+v, want untouched", req)
	}
	if orig.Variables["id"] != "1" {
		t.Errorf("original Variables[id] = %q, want 1", orig.Variables["id"])
	}
	if cp.Scenarios["browse"].Requests[0].Method != "GET" {
		t.Errorf("clone Method = %q, want GET", cp.Scenarios["browse"].Requests[0].Method)
	}
}

func TestConvertToExecutorConfig(t *testing.T) {
	sc := &ScenarioConfig{
		Executor:  "ramping-vus",
		StartVUs:  0,
		StartTime: "30s",
		Stages: []StageConfig{
			{Duration: "1m", Target: 100},
			{Duration: "30s", Target: 0, Name: "ramp-down"},
		},
		Pacing: &PacingConfig{Type: "random", Min: "300ms", Max: "700ms"},
	}

	got, err := ConvertToExecutorConfig("ramp", sc)
	if err != nil {
		t.Fatalf("ConvertToExecutorConfig() error = %v", err)
	}
	if got.Duration != 90*time.Second {
		t.Errorf("Duration = %v, want 1m30s", got.Duration)
	}
	if got.StartTime != 30*time.Second {
		t.Errorf("StartTime = %v, want 30s", got.StartTime)
	}
	if got.GracefulStop != DefaultGracefulStop {
		t.Errorf("GracefulStop = %v, want %v", got.GracefulStop, DefaultGracefulStop)
	}
	if got.Stages[1].Name != "ramp-down" {
		t.Errorf("Stages[1].Name = %q", got.Stages[1].Name)
	}
	if got.Pacing.Min != 300*time.Millisecond || got.Pacing.Max != 700*time.Millisecond {
		t.Errorf("Pacing = %+v", got.Pacing)
	}

	if _, err := ConvertToExecutorConfig("bad", &ScenarioConfig{Duration: "forever"}); err == nil {
		t.Error("ConvertToExecutorConfig() error = nil, want invalid duration")
	}
}
