package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/shopcheck/internal/load"
)

// DefaultGracefulStop is used when a scenario sets no gracefulStop.
const DefaultGracefulStop = 30 * time.Second

// LoadConfig reads a scenario file. .json files are parsed as JSON,
// everything else as YAML.
func LoadConfig(path string) (*TestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses data using the format implied by path's extension.
func ParseConfig(data []byte, path string) (*TestConfig, error) {
	var cfg TestConfig

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config (unknown format %s): %w", ext, err)
		}
	}
	return &cfg, nil
}

// ParseDurationString accepts Go durations ("30s", "1m30s") and bare
// integers, which are seconds. The empty string is zero.
func ParseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration format: %s", s)
}

// ScenarioDuration is the explicit duration, or the sum of the stages.
func ScenarioDuration(sc *ScenarioConfig) (time.Duration, error) {
	if sc.Duration != "" {
		return ParseDurationString(sc.Duration)
	}
	if len(sc.Stages) == 0 {
		return 0, fmt.Errorf("no duration specified and no stages defined")
	}

	var total time.Duration
	for i, stage := range sc.Stages {
		d, err := ParseDurationString(stage.Duration)
		if err != nil {
			return 0, fmt.Errorf("stage %d: %w", i, err)
		}
		total += d
	}
	return total, nil
}

// TotalDuration is the wall-clock length of the whole run: the latest
// startTime + duration over all scenarios, or their sum when sequential.
func (c *TestConfig) TotalDuration() (time.Duration, error) {
	var total time.Duration
	sequential := c.Options != nil && c.Options.Sequential

	for name, sc := range c.Scenarios {
		d, err := ScenarioDuration(sc)
		if err != nil {
			return 0, fmt.Errorf("scenario %s: %w", name, err)
		}
		if sequential {
			total += d
			continue
		}
		start, err := ParseDurationString(sc.StartTime)
		if err != nil {
			return 0, fmt.Errorf("scenario %s: startTime: %w", name, err)
		}
		total = max(total, start+d)
	}
	return total, nil
}

// ScenarioNames returns the scenario names in a stable order.
func (c *TestConfig) ScenarioNames() []string {
	return sortedScenarioNames(c.Scenarios)
}

func sortedScenarioNames(scenarios map[string]*ScenarioConfig) []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveVariables expands {{name}} from globals and {{baseUrl}} from
// settings. Generators are expanded as well, once per call.
func ResolveVariables(input string, globals map[string]string, settings *GlobalSettings) string {
	return load.Render(input, func(name string) (string, bool) {
		if v, ok := globals[name]; ok {
			return v, true
		}
		if settings != nil && settings.BaseURL != "" && (name == "baseUrl" || name == "baseURL") {
			return settings.BaseURL, true
		}
		return "", false
	})
}

// MergeVariables merges maps left to right; later maps win.
func MergeVariables(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// ApplyDefaults fills unset settings, request names and methods. Executor
// and VU counts have no defaults; Validate requires them.
func ApplyDefaults(cfg *TestConfig) {
	if cfg.Settings.Timeout == 0 {
		cfg.Settings.Timeout = Duration(30 * time.Second)
	}
	if cfg.Settings.MaxIdleConnsPerHost == 0 {
		cfg.Settings.MaxIdleConnsPerHost = 100
	}
	if cfg.Settings.UserAgent == "" {
		cfg.Settings.UserAgent = "shopcheck/1.0"
	}
	if cfg.Options == nil {
		cfg.Options = &ExecutionOptions{}
	}

	for name, sc := range cfg.Scenarios {
		for i := range sc.Requests {
			req := &sc.Requests[i]
			if req.Name == "" {
				req.Name = fmt.Sprintf("%s_request_%d", name, i+1)
			}
			if req.Method == "" {
				req.Method = "GET"
			}
			req.Method = strings.ToUpper(req.Method)
		}
	}
}

// ExecutorConfig is a scenario with its durations parsed.
type ExecutorConfig struct {
	Name         string
	Type         string
	VUs          int
	StartVUs     int
	Duration     time.Duration
	Stages       []ExecutorStage
	GracefulStop time.Duration
	StartTime    time.Duration
	Pacing       *ExecutorPacing
}

// ExecutorStage is a parsed stage.
type ExecutorStage struct {
	Duration time.Duration
	Target   int
	Name     string
}

// ExecutorPacing is a parsed pacing block.
type ExecutorPacing struct {
	Type     string
	Duration time.Duration
	Min      time.Duration
	Max      time.Duration
}

// ConvertToExecutorConfig parses every duration of sc.
func ConvertToExecutorConfig(name string, sc *ScenarioConfig) (*ExecutorConfig, error) {
	out := &ExecutorConfig{
		Name:         name,
		Type:         sc.Executor,
		VUs:          sc.VUs,
		StartVUs:     sc.StartVUs,
		GracefulStop: DefaultGracefulStop,
	}

	var err error
	if out.Duration, err = ParseDurationString(sc.Duration); err != nil {
		return nil, fmt.Errorf("invalid duration: %w", err)
	}
	if out.StartTime, err = ParseDurationString(sc.StartTime); err != nil {
		return nil, fmt.Errorf("invalid startTime: %w", err)
	}
	if sc.GracefulStop != "" {
		if out.GracefulStop, err = ParseDurationString(sc.GracefulStop); err != nil {
			return nil, fmt.Errorf("invalid gracefulStop: %w", err)
		}
	}

	for i, stage := range sc.Stages {
		d, err := ParseDurationString(stage.Duration)
		if err != nil {
			return nil, fmt.Errorf("invalid duration for stage %d: %w", i, err)
		}
		out.Stages = append(out.Stages, ExecutorStage{Duration: d, Target: stage.Target, Name: stage.Name})
	}
	if len(out.Stages) > 0 && out.Duration == 0 {
		for _, s := range out.Stages {
			out.Duration += s.Duration
		}
	}

	if sc.Pacing != nil {
		p := &ExecutorPacing{Type: sc.Pacing.Type}
		if p.Duration, err = ParseDurationString(sc.Pacing.Duration); err != nil {
			return nil, fmt.Errorf("invalid pacing duration: %w", err)
		}
		if p.Min, err = ParseDurationString(sc.Pacing.Min); err != nil {
			return nil, fmt.Errorf("invalid pacing min: %w", err)
		}
		if p.Max, err = ParseDurationString(sc.Pacing.Max); err != nil {
			return nil, fmt.Errorf("invalid pacing max: %w", err)
		}
		out.Pacing = p
	}
	return out, nil
}
