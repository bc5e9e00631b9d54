package engine

import (
	"fmt"
	"net/http"

	"github.com/wesleyorama2/shopcheck/internal/load"
	"github.com/wesleyorama2/shopcheck/internal/load/config"
)

// buildScenario converts a scenario from the file into what VUs execute.
// The file's structs are not retained or modified.
func (e *Engine) buildScenario(name string, sc *config.ScenarioConfig) (*load.Scenario, error) {
	settings := &e.config.Settings

	scenario := &load.Scenario{
		Name:      name,
		Variables: config.MergeVariables(e.config.Variables),
		Tags:      config.MergeVariables(sc.Tags, map[string]string{"scenario": name}),
	}
	if settings.BaseURL != "" {
		scenario.Variables["baseUrl"] = settings.BaseURL
		scenario.Variables["baseURL"] = settings.BaseURL
	}

	for i := range sc.Requests {
		req := &sc.Requests[i]

		rc := &load.RequestConfig{
			Name:    req.Name,
			Method:  req.Method,
			URL:     req.URL,
			Headers: requestHeaders(settings, req.Headers),
			Body:    req.Body,
			Tags:    config.MergeVariables(req.Tags),
		}
		if rc.Name == "" {
			rc.Name = fmt.Sprintf("%s_request_%d", name, i+1)
		}

		var err error
		if rc.Timeout, err = config.ParseDurationString(req.Timeout); err != nil {
			return nil, fmt.Errorf("request %s: timeout: %w", rc.Name, err)
		}
		if rc.ThinkTime, err = config.ParseDurationString(req.ThinkTime); err != nil {
			return nil, fmt.Errorf("request %s: thinkTime: %w", rc.Name, err)
		}

		for _, ex := range req.Extract {
			rc.Extract = append(rc.Extract, load.ExtractConfig{Name: ex.Name, Source: ex.Source, Path: ex.Path})
		}

		for _, cc := range req.Checks {
			check := &load.Check{
				Name:          cc.Name,
				Status:        cc.Status,
				BodyMinLength: cc.BodyMinLength,
				JSONPath:      cc.JSONPath,
				Exists:        cc.Exists,
				Equals:        cc.Equals,
				Contains:      cc.Contains,
				Schema:        cc.Schema,
			}
			if err := check.Compile(); err != nil {
				return nil, fmt.Errorf("request %s: check %q: %w", rc.Name, check.Label(), err)
			}
			rc.Checks = append(rc.Checks, check)
		}

		scenario.Requests = append(scenario.Requests, rc)
	}
	return scenario, nil
}

// requestHeaders layers settings headers, the user agent and the request's
// own headers, later ones winning.
func requestHeaders(settings *config.GlobalSettings, own map[string]string) map[string]string {
	out := make(map[string]string, len(settings.Headers)+len(own)+1)
	for k, v := range settings.Headers {
		out[http.CanonicalHeaderKey(k)] = v
	}
	if settings.UserAgent != "" {
		if _, ok := out["User-Agent"]; !ok {
			out["User-Agent"] = settings.UserAgent
		}
	}
	for k, v := range own {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}
