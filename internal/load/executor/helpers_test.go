package executor_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/load"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

// newTestServer answers every request after delay, or as soon as the
// client goes away.
func newTestServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestScheduler wires a scheduler and engine against srv and releases
// both when the test ends.
func newTestScheduler(t *testing.T, srv *httptest.Server) (*load.VUScheduler, *metrics.Engine) {
	t.Helper()
	scenario := &load.Scenario{
		Name: "list_products",
		Tags: map[string]string{"endpoint": "GET /products"},
		Requests: []*load.RequestConfig{
			{Name: "list_products", Method: "GET", URL: srv.URL + "/products"},
		},
	}

	engine := metrics.NewEngine()
	scheduler := load.NewVUScheduler(scenario, engine, load.DefaultHTTPClientConfig(), nil)
	t.Cleanup(func() {
		scheduler.Shutdown(time.Second)
		engine.Stop()
	})
	return scheduler, engine
}
