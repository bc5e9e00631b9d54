// Package load runs HTTP scenarios with virtual users.
//
// A Scenario is an ordered list of requests. A VUScheduler hands out
// VirtualUsers that execute the scenario in a loop; executors in the
// executor package decide how many VUs run and for how long. Every request
// is recorded into a metrics.Engine together with its tags, and every
// configured Check is recorded as a pass or fail.
package load

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

// VUState is the lifecycle state of a VirtualUser.
type VUState int32

const (
	VUStateIdle VUState = iota
	VUStateRunning
	VUStateStopping
	VUStateStopped
)

func (s VUState) String() string {
	switch s {
	case VUStateIdle:
		return "idle"
	case VUStateRunning:
		return "running"
	case VUStateStopping:
		return "stopping"
	case VUStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// VirtualUser is one simulated client looping over a Scenario.
//
// Each VU has its own variable scope, filled by Extract rules, and its own
// iteration counter. The HTTP client is usually shared through the
// scheduler.
type VirtualUser struct {
	ID         int
	Scenario   *Scenario
	HTTPClient *http.Client
	Metrics    *metrics.Engine
	Logger     *zap.Logger

	state     atomic.Int32
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	doneOnce  sync.Once
	iteration atomic.Int64

	data   map[string]string
	dataMu sync.RWMutex
}

// NewVirtualUser creates an idle VU. A nil logger is replaced with a no-op.
func NewVirtualUser(id int, scenario *Scenario, client *http.Client, engine *metrics.Engine, logger *zap.Logger) *VirtualUser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VirtualUser{
		ID:         id,
		Scenario:   scenario,
		HTTPClient: client,
		Metrics:    engine,
		Logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		data:       make(map[string]string),
	}
}

// GetState returns the current state.
func (vu *VirtualUser) GetState() VUState {
	return VUState(vu.state.Load())
}

// GetIteration returns how many iterations have started.
func (vu *VirtualUser) GetIteration() int64 {
	return vu.iteration.Load()
}

// RunIteration executes every request of the scenario once, in order.
//
// Failed requests and failed checks are recorded, not returned. The error
// is non-nil only when the context is done or the VU was already stopping.
func (vu *VirtualUser) RunIteration(ctx context.Context) error {
	if st := vu.GetState(); st == VUStateStopping || st == VUStateStopped {
		return fmt.Errorf("VU %d is stopping or stopped", vu.ID)
	}

	vu.state.CompareAndSwap(int32(VUStateIdle), int32(VUStateRunning))
	vu.iteration.Add(1)
	defer vu.state.CompareAndSwap(int32(VUStateRunning), int32(VUStateIdle))

	reqs := vu.Scenario.Requests
	for i, req := range reqs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-vu.stopCh:
			return nil
		default:
		}

		result := vu.executeRequest(ctx, req)
		if result.Error != nil && ctx.Err() != nil {
			// cut off by the end of the run, not a server failure
			return ctx.Err()
		}

		vu.Metrics.Record(metrics.Sample{
			Duration: result.Duration,
			Name:     req.Name,
			Tags:     vu.tagsFor(req),
			Success:  result.Error == nil && result.StatusCode < 400,
			Bytes:    result.BytesReceived,
		})
		vu.runChecks(req, result)

		if req.ThinkTime > 0 && i < len(reqs)-1 {
			vu.sleep(ctx, req.ThinkTime)
		}
	}
	return nil
}

func (vu *VirtualUser) runChecks(req *RequestConfig, result *RequestResult) {
	if len(req.Checks) == 0 {
		return
	}
	resp := Response{StatusCode: result.StatusCode, Body: result.ResponseBody}
	for _, c := range req.Checks {
		err := result.Error
		if err == nil {
			err = c.Evaluate(resp)
		}
		vu.Metrics.RecordCheck(c.Label(), err == nil)
		if err != nil {
			vu.Logger.Debug("check failed",
				zap.Int("vu", vu.ID),
				zap.String("request", req.Name),
				zap.String("check", c.Label()),
				zap.Error(err))
		}
	}
}

// tagsFor merges scenario tags with request tags; request tags win.
func (vu *VirtualUser) tagsFor(req *RequestConfig) map[string]string {
	if len(vu.Scenario.Tags) == 0 {
		return req.Tags
	}
	if len(req.Tags) == 0 {
		return vu.Scenario.Tags
	}
	tags := maps.Clone(vu.Scenario.Tags)
	maps.Copy(tags, req.Tags)
	return tags
}

func (vu *VirtualUser) executeRequest(ctx context.Context, req *RequestConfig) *RequestResult {
	start := time.Now()
	result := &RequestResult{
		VUID:        vu.ID,
		Iteration:   vu.iteration.Load(),
		RequestName: req.Name,
		StartTime:   start,
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := vu.buildRequest(ctx, req)
	if err != nil {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		result.Error = fmt.Errorf("failed to build request: %w", err)
		return result
	}

	resp, err := vu.HTTPClient.Do(httpReq)
	if err != nil {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		result.Error = err
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)
	result.StatusCode = resp.StatusCode
	if err != nil {
		result.Error = fmt.Errorf("failed to read response body: %w", err)
		return result
	}
	result.BytesReceived = int64(len(body))
	result.ResponseBody = body

	if len(req.Extract) > 0 {
		vu.extractVariables(req.Extract, resp, body)
	}
	return result
}

func (vu *VirtualUser) buildRequest(ctx context.Context, req *RequestConfig) (*http.Request, error) {
	url := vu.render(req.URL)

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(vu.render(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, err
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, vu.render(value))
	}
	return httpReq, nil
}

// render expands generators and variables; VU data shadows scenario
// variables.
func (vu *VirtualUser) render(input string) string {
	return Render(input, func(name string) (string, bool) {
		if v, ok := vu.GetData(name); ok {
			return v, true
		}
		if vu.Scenario != nil {
			v, ok := vu.Scenario.Variables[name]
			return v, ok
		}
		return "", false
	})
}

func (vu *VirtualUser) extractVariables(extracts []ExtractConfig, resp *http.Response, body []byte) {
	for _, ex := range extracts {
		var value string
		switch ex.Source {
		case "header":
			value = resp.Header.Get(ex.Path)
		case "status":
			value = strconv.Itoa(resp.StatusCode)
		case "body":
			if ex.Path == "" {
				value = string(body)
			} else if res := gjson.GetBytes(body, gjsonPath(ex.Path)); res.Exists() {
				value = res.String()
			}
		}
		if value != "" {
			vu.SetData(ex.Name, value)
		}
	}
}

func (vu *VirtualUser) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-vu.stopCh:
	case <-t.C:
	}
}

// RequestStop asks the VU to stop after the request in flight.
func (vu *VirtualUser) RequestStop() {
	if vu.state.CompareAndSwap(int32(VUStateRunning), int32(VUStateStopping)) ||
		vu.state.CompareAndSwap(int32(VUStateIdle), int32(VUStateStopping)) {
		vu.stopOnce.Do(func() { close(vu.stopCh) })
	}
}

// Stopping is closed once RequestStop has been called.
func (vu *VirtualUser) Stopping() <-chan struct{} {
	return vu.stopCh
}

// WaitForStop reports whether the VU stopped within timeout.
func (vu *VirtualUser) WaitForStop(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-vu.doneCh:
		return true
	case <-t.C:
		return false
	}
}

// MarkStopped is called by whoever owns the VU goroutine when it exits.
func (vu *VirtualUser) MarkStopped() {
	vu.state.Store(int32(VUStateStopped))
	vu.stopOnce.Do(func() { close(vu.stopCh) })
	vu.doneOnce.Do(func() { close(vu.doneCh) })
}

// SetData stores a value in the VU's variable scope.
func (vu *VirtualUser) SetData(key, value string) {
	vu.dataMu.Lock()
	defer vu.dataMu.Unlock()
	vu.data[key] = value
}

// GetData reads a value from the VU's variable scope.
func (vu *VirtualUser) GetData(key string) (string, bool) {
	vu.dataMu.RLock()
	defer vu.dataMu.RUnlock()
	v, ok := vu.data[key]
	return v, ok
}

// RequestResult is the outcome of one HTTP request.
type RequestResult struct {
	VUID          int           `json:"vuId"`
	Iteration     int64         `json:"iteration"`
	RequestName   string        `json:"requestName"`
	StartTime     time.Time     `json:"startTime"`
	EndTime       time.Time     `json:"endTime"`
	Duration      time.Duration `json:"duration"`
	StatusCode    int           `json:"statusCode"`
	BytesReceived int64         `json:"bytesReceived"`
	Error         error         `json:"error,omitempty"`
	ResponseBody  []byte        `json:"-"`
}

// Scenario is what a VU executes on each iteration.
type Scenario struct {
	Name      string
	Variables map[string]string
	// Tags are attached to every request of the scenario.
	Tags     map[string]string
	Requests []*RequestConfig
}

// RequestConfig is one templated HTTP request.
type RequestConfig struct {
	Name      string
	Method    string
	URL       string
	Headers   map[string]string
	Body      string
	Timeout   time.Duration
	ThinkTime time.Duration
	Tags      map[string]string
	Checks    []*Check
	Extract   []ExtractConfig
}

// ExtractConfig copies part of a response into the VU's variable scope.
type ExtractConfig struct {
	Name string
	// Source is one of "body", "header" or "status".
	Source string
	// Path is a header name or a JSON path into the body.
	Path string
}
