package load_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/load"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

func createTestServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
}

func TestDefaultHTTPClientConfig(t *testing.T) {
	config := load.DefaultHTTPClientConfig()

	if config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", config.Timeout)
	}
	if config.MaxIdleConnsPerHost != 100 {
		t.Errorf("MaxIdleConnsPerHost = %d, want 100", config.MaxIdleConnsPerHost)
	}
	if !config.UseSharedClient {
		t.Error("UseSharedClient should be true by default")
	}
}

func TestVUScheduler_SpawnAndRemove(t *testing.T) {
	server := createTestServer()
	defer server.Close()

	engine := metrics.NewEngine()
	defer engine.Stop()

	s := load.NewVUScheduler(createTestScenario(server.URL), engine, load.DefaultHTTPClientConfig(), nil)

	a := s.SpawnVU()
	b := s.SpawnVU()
	if a.ID == b.ID {
		t.Errorf("SpawnVU() returned duplicate ID %d", a.ID)
	}
	if a.HTTPClient != b.HTTPClient {
		t.Error("shared client config gave VUs different clients")
	}
	if s.GetVU(a.ID) != a {
		t.Error("GetVU() did not return the spawned VU")
	}
	if got := s.GetActiveVUCount(); got != 2 {
		t.Errorf("GetActiveVUCount() = %d, want 2", got)
	}

	s.RemoveVU(a.ID)
	if s.GetVU(a.ID) != nil {
		t.Error("GetVU() after RemoveVU != nil")
	}
	if a.GetState() != load.VUStateStopped {
		t.Errorf("removed VU state = %v, want stopped", a.GetState())
	}
	if s.TotalSpawned() != 2 {
		t.Errorf("TotalSpawned() = %d, want 2", s.TotalSpawned())
	}
}

func TestVUScheduler_PerVUClients(t *testing.T) {
	engine := metrics.NewEngine()
	defer engine.Stop()

	cfg := load.DefaultHTTPClientConfig()
	cfg.UseSharedClient = false
	s := load.NewVUScheduler(&load.Scenario{Name: "x"}, engine, cfg, nil)

	if s.SpawnVU().HTTPClient == s.SpawnVU().HTTPClient {
		t.Error("per-VU config gave VUs the same client")
	}
}

func TestVUScheduler_SharedGauge(t *testing.T) {
	engine := metrics.NewEngine()
	defer engine.Stop()

	list := load.NewVUScheduler(&load.Scenario{Name: "list"}, engine, load.DefaultHTTPClientConfig(), nil)
	create := load.NewVUScheduler(&load.Scenario{Name: "create"}, engine, load.DefaultHTTPClientConfig(), nil)

	for i := 0; i < 3; i++ {
		list.SpawnVU()
	}
	v := create.SpawnVU()
	create.SpawnVU()

	list.UpdateMetrics()
	create.UpdateMetrics()
	if got := engine.GetActiveVUs(); got != 5 {
		t.Errorf("GetActiveVUs() = %d, want 5", got)
	}

	create.RemoveVU(v.ID)
	create.UpdateMetrics()
	if got := engine.GetActiveVUs(); got != 4 {
		t.Errorf("GetActiveVUs() after remove = %d, want 4", got)
	}
}

func TestVUScheduler_Shutdown(t *testing.T) {
	server := createTestServer()
	defer server.Close()

	engine := metrics.NewEngine()
	defer engine.Stop()

	s := load.NewVUScheduler(createTestScenario(server.URL), engine, load.DefaultHTTPClientConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		vu := s.SpawnVU()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer vu.MarkStopped()
			for vu.GetState() != load.VUStateStopping {
				if err := vu.RunIteration(ctx); err != nil {
					return
				}
			}
		}()
	}
	s.UpdateMetrics()

	time.Sleep(50 * time.Millisecond)
	s.Shutdown(2 * time.Second)
	wg.Wait()

	if got := s.GetActiveVUCount(); got != 0 {
		t.Errorf("GetActiveVUCount() after Shutdown = %d, want 0", got)
	}
	if got := engine.GetActiveVUs(); got != 0 {
		t.Errorf("engine GetActiveVUs() after Shutdown = %d, want 0", got)
	}
	if engine.GetSnapshot().TotalRequests == 0 {
		t.Error("no requests recorded before Shutdown")
	}
}
