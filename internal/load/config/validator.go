package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/wesleyorama2/shopcheck/internal/load"
)

// ValidationError is one problem at a field path such as
// scenarios.ramp.stages[0].duration.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Add records an error.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors reports whether anything was recorded.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Has reports whether an error was recorded for field.
func (e *ValidationErrors) Has(field string) bool {
	for _, err := range e.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

var validExecutors = map[string]bool{
	"constant-vus": true,
	"ramping-vus":  true,
}

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// Validate checks the whole configuration and returns a *ValidationErrors
// listing every problem, or nil.
func (c *TestConfig) Validate() error {
	errs := &ValidationErrors{}

	if len(c.Scenarios) == 0 {
		errs.Add("scenarios", "at least one scenario is required")
	}
	for _, name := range sortedScenarioNames(c.Scenarios) {
		validateScenario(name, c.Scenarios[name], errs)
	}
	validateThresholds(c.Thresholds, errs)
	validateSettings(&c.Settings, errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateScenario(name string, sc *ScenarioConfig, errs *ValidationErrors) {
	prefix := "scenarios." + name
	if sc == nil {
		errs.Add(prefix, "scenario is empty")
		return
	}

	switch {
	case sc.Executor == "":
		errs.Add(prefix+".executor", "executor type is required")
	case !validExecutors[sc.Executor]:
		errs.Add(prefix+".executor", fmt.Sprintf("unknown executor type: %s", sc.Executor))
	}

	switch sc.Executor {
	case "constant-vus":
		if sc.VUs <= 0 {
			errs.Add(prefix+".vus", "vus must be greater than 0")
		}
		if sc.Duration == "" {
			errs.Add(prefix+".duration", "duration is required for constant-vus executor")
		} else if d, err := ParseDurationString(sc.Duration); err != nil {
			errs.Add(prefix+".duration", fmt.Sprintf("invalid duration: %v", err))
		} else if d <= 0 {
			errs.Add(prefix+".duration", "duration must be greater than 0")
		}
	case "ramping-vus":
		if len(sc.Stages) == 0 {
			errs.Add(prefix+".stages", "at least one stage is required for ramping-vus executor")
		}
		if sc.StartVUs < 0 {
			errs.Add(prefix+".startVUs", "startVUs cannot be negative")
		}
	}

	for i := range sc.Stages {
		validateStage(fmt.Sprintf("%s.stages[%d]", prefix, i), &sc.Stages[i], errs)
	}

	if sc.StartTime != "" {
		if d, err := ParseDurationString(sc.StartTime); err != nil {
			errs.Add(prefix+".startTime", fmt.Sprintf("invalid startTime: %v", err))
		} else if d < 0 {
			errs.Add(prefix+".startTime", "startTime cannot be negative")
		}
	}
	if sc.GracefulStop != "" {
		if d, err := ParseDurationString(sc.GracefulStop); err != nil || d < 0 {
			errs.Add(prefix+".gracefulStop", "gracefulStop must be a non-negative duration")
		}
	}

	if len(sc.Requests) == 0 {
		errs.Add(prefix+".requests", "at least one request is required")
	}
	for i := range sc.Requests {
		validateRequest(fmt.Sprintf("%s.requests[%d]", prefix, i), &sc.Requests[i], errs)
	}

	if sc.Pacing != nil {
		validatePacing(prefix+".pacing", sc.Pacing, errs)
	}
}

func validateStage(prefix string, stage *StageConfig, errs *ValidationErrors) {
	if stage.Duration == "" {
		errs.Add(prefix+".duration", "duration is required")
	} else if d, err := ParseDurationString(stage.Duration); err != nil {
		errs.Add(prefix+".duration", fmt.Sprintf("invalid duration: %v", err))
	} else if d <= 0 {
		errs.Add(prefix+".duration", "duration must be greater than 0")
	}

	if stage.Target < 0 {
		errs.Add(prefix+".target", "target cannot be negative")
	}
}

var placeholderRe = regexp.MustCompile(`\{\{[^}]*\}\}`)

func validateRequest(prefix string, req *RequestConfig, errs *ValidationErrors) {
	method := strings.ToUpper(req.Method)
	if method != "" && !validMethods[method] {
		errs.Add(prefix+".method", fmt.Sprintf("invalid HTTP method: %s", req.Method))
	}

	if req.URL == "" {
		errs.Add(prefix+".url", "url is required")
	} else {
		// placeholders stand in for a host or a path segment
		check := strings.NewReplacer("{{baseUrl}}", "http://example.com", "{{baseURL}}", "http://example.com").Replace(req.URL)
		check = placeholderRe.ReplaceAllString(check, "placeholder")
		if _, err := url.Parse(check); err != nil {
			errs.Add(prefix+".url", fmt.Sprintf("invalid URL: %v", err))
		}
		if err := load.CheckTemplate(req.URL); err != nil {
			errs.Add(prefix+".url", err.Error())
		}
	}
	if err := load.CheckTemplate(req.Body); err != nil {
		errs.Add(prefix+".body", err.Error())
	}

	if _, err := ParseDurationString(req.Timeout); err != nil {
		errs.Add(prefix+".timeout", fmt.Sprintf("invalid timeout: %v", err))
	}
	if _, err := ParseDurationString(req.ThinkTime); err != nil {
		errs.Add(prefix+".thinkTime", fmt.Sprintf("invalid thinkTime: %v", err))
	}

	for i, ex := range req.Extract {
		p := fmt.Sprintf("%s.extract[%d]", prefix, i)
		if ex.Name == "" {
			errs.Add(p+".name", "name is required")
		}
		switch ex.Source {
		case "body", "header", "status":
		case "":
			errs.Add(p+".source", "source is required")
		default:
			errs.Add(p+".source", fmt.Sprintf("invalid source: %s", ex.Source))
		}
	}

	for i := range req.Checks {
		validateCheck(fmt.Sprintf("%s.checks[%d]", prefix, i), &req.Checks[i], errs)
	}
}

func validateCheck(prefix string, c *CheckConfig, errs *ValidationErrors) {
	if len(c.Status) == 0 && c.BodyMinLength == 0 && c.JSONPath == "" && c.Contains == "" && c.Schema == "" {
		errs.Add(prefix, "check has no condition")
	}
	if c.BodyMinLength < 0 {
		errs.Add(prefix+".bodyMinLength", "cannot be negative")
	}
	if (c.Exists || c.Equals != "") && c.JSONPath == "" {
		errs.Add(prefix+".jsonPath", "jsonPath is required with exists or equals")
	}
	for _, code := range c.Status {
		if code < 100 || code > 599 {
			errs.Add(prefix+".status", fmt.Sprintf("invalid status code: %d", code))
		}
	}
	if c.Schema != "" {
		if err := (&load.Check{Schema: c.Schema}).Compile(); err != nil {
			errs.Add(prefix+".schema", err.Error())
		}
	}
}

func validatePacing(prefix string, pacing *PacingConfig, errs *ValidationErrors) {
	switch pacing.Type {
	case "none":
	case "constant":
		if pacing.Duration == "" {
			errs.Add(prefix+".duration", "duration is required for constant pacing")
		} else if d, err := ParseDurationString(pacing.Duration); err != nil || d < 0 {
			errs.Add(prefix+".duration", "duration must be a non-negative duration")
		}
	case "random":
		minDur, minErr := ParseDurationString(pacing.Min)
		maxDur, maxErr := ParseDurationString(pacing.Max)
		if pacing.Min == "" {
			errs.Add(prefix+".min", "min is required for random pacing")
		} else if minErr != nil || minDur < 0 {
			errs.Add(prefix+".min", "min must be a non-negative duration")
		}
		if pacing.Max == "" {
			errs.Add(prefix+".max", "max is required for random pacing")
		} else if maxErr != nil {
			errs.Add(prefix+".max", fmt.Sprintf("invalid max: %v", maxErr))
		}
		if minErr == nil && maxErr == nil && minDur > maxDur {
			errs.Add(prefix, "min must be less than or equal to max")
		}
	default:
		errs.Add(prefix+".type", fmt.Sprintf("invalid pacing type: %s", pacing.Type))
	}
}

func validateThresholds(thresholds map[string][]string, errs *ValidationErrors) {
	for key, exprs := range thresholds {
		if len(exprs) == 0 {
			errs.Add("thresholds."+key, "at least one expression is required")
		}
		for i, expr := range exprs {
			if _, err := ParseThreshold(key, expr); err != nil {
				errs.Add(fmt.Sprintf("thresholds.%s[%d]", key, i), err.Error())
			}
		}
	}
}

func validateSettings(s *GlobalSettings, errs *ValidationErrors) {
	if s.BaseURL != "" {
		u, err := url.Parse(s.BaseURL)
		if err != nil {
			errs.Add("settings.baseUrl", fmt.Sprintf("invalid URL: %v", err))
		} else if u.Scheme == "" || u.Host == "" {
			errs.Add("settings.baseUrl", "baseUrl must be absolute, e.g. https://fakestoreapi.com")
		}
	}
	if s.MaxConnectionsPerHost < 0 {
		errs.Add("settings.maxConnectionsPerHost", "cannot be negative")
	}
	if s.MaxIdleConnsPerHost < 0 {
		errs.Add("settings.maxIdleConnsPerHost", "cannot be negative")
	}
}
