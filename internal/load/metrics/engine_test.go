package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestNewEngine(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 0 {
		t.Errorf("Initial TotalRequests = %d, want 0", snapshot.TotalRequests)
	}
	if snapshot.CurrentPhase != PhaseInit {
		t.Errorf("Initial phase = %v, want %v", snapshot.CurrentPhase, PhaseInit)
	}
}

func TestEngine_RecordLatency(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	engine.RecordLatency(10*time.Millisecond, "list", true, 1000)
	engine.RecordLatency(20*time.Millisecond, "list", true, 2000)
	engine.RecordLatency(30*time.Millisecond, "list", false, 500)

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", snapshot.TotalRequests)
	}
	if snapshot.SuccessRequests != 2 {
		t.Errorf("SuccessRequests = %d, want 2", snapshot.SuccessRequests)
	}
	if snapshot.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", snapshot.FailedRequests)
	}
	if snapshot.TotalBytes != 3500 {
		t.Errorf("TotalBytes = %d, want 3500", snapshot.TotalBytes)
	}
}

func TestEngine_LatencyPercentiles(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	for i := 1; i <= 10; i++ {
		engine.RecordLatency(time.Duration(i*10)*time.Millisecond, "", true, 100)
	}

	p := engine.GetLatencyPercentiles()
	if p.P50 < 40*time.Millisecond || p.P50 > 60*time.Millisecond {
		t.Errorf("P50 = %v, want ~50ms", p.P50)
	}
	if p.P99 < 90*time.Millisecond || p.P99 > 110*time.Millisecond {
		t.Errorf("P99 = %v, want ~100ms", p.P99)
	}
	if p.Min < 9*time.Millisecond || p.Min > 11*time.Millisecond {
		t.Errorf("Min = %v, want ~10ms", p.Min)
	}
}

func TestEngine_TaggedSeries(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	get := map[string]string{"endpoint": "GET /products"}
	post := map[string]string{"endpoint": "POST /products"}

	for i := 0; i < 20; i++ {
		engine.Record(Sample{Duration: 100 * time.Millisecond, Name: "list", Tags: get, Success: true})
	}
	for i := 0; i < 10; i++ {
		engine.Record(Sample{Duration: 900 * time.Millisecond, Name: "create", Tags: post, Success: i != 0})
	}

	g, ok := engine.GetTagStats("endpoint", "GET /products")
	if !ok {
		t.Fatal("GetTagStats(GET) not found")
	}
	if g.Total != 20 || g.Failed != 0 {
		t.Errorf("GET total/failed = %d/%d, want 20/0", g.Total, g.Failed)
	}
	if g.Latency.P95 > 110*time.Millisecond {
		t.Errorf("GET P95 = %v, want ~100ms", g.Latency.P95)
	}

	p, ok := engine.GetTagStats("endpoint", "POST /products")
	if !ok {
		t.Fatal("GetTagStats(POST) not found")
	}
	if p.ErrorRate < 0.09 || p.ErrorRate > 0.11 {
		t.Errorf("POST ErrorRate = %v, want 0.1", p.ErrorRate)
	}
	if p.Latency.P95 < 850*time.Millisecond {
		t.Errorf("POST P95 = %v, want ~900ms", p.Latency.P95)
	}

	if _, ok := engine.GetTagStats("endpoint", "DELETE /products"); ok {
		t.Error("GetTagStats(DELETE) found, want missing")
	}

	all := engine.GetAllTagStats()
	if len(all) != 2 || all[0].Value != "GET /products" {
		t.Errorf("GetAllTagStats() = %+v, want GET first of 2", all)
	}
}

func TestEngine_Checks(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	for i := 0; i < 9; i++ {
		engine.RecordCheck("status 200", true)
	}
	engine.RecordCheck("status 200", false)
	engine.RecordCheck("returns id", true)

	snapshot := engine.GetSnapshot()
	if snapshot.ChecksPassed != 10 || snapshot.ChecksFailed != 1 {
		t.Errorf("checks = %d/%d, want 10/1", snapshot.ChecksPassed, snapshot.ChecksFailed)
	}
	if snapshot.CheckRate < 0.90 || snapshot.CheckRate > 0.91 {
		t.Errorf("CheckRate = %v, want 10/11", snapshot.CheckRate)
	}

	stats := engine.GetCheckStats()
	if len(stats) != 2 {
		t.Fatalf("GetCheckStats() len = %d, want 2", len(stats))
	}
	if stats[0].Name != "returns id" || stats[1].Rate != 0.9 {
		t.Errorf("GetCheckStats() = %+v", stats)
	}
}

func TestEngine_Phase(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	phases := []Phase{PhaseWaiting, PhaseRampUp, PhaseSteady, PhaseSteady, PhaseRampDown, PhaseDone}
	for _, phase := range phases {
		engine.SetPhase(phase)
		if engine.GetPhase() != phase {
			t.Errorf("After SetPhase(%v), GetPhase() = %v", phase, engine.GetPhase())
		}
	}

	// the repeated steady is collapsed
	if got := len(engine.GetPhaseHistory()); got != 5 {
		t.Errorf("PhaseHistory length = %d, want 5", got)
	}
}

func TestEngine_ActiveVUs(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	engine.SetActiveVUs(10)
	engine.AddActiveVUs(5)
	engine.AddActiveVUs(-3)
	if got := engine.GetActiveVUs(); got != 12 {
		t.Errorf("GetActiveVUs() = %d, want 12", got)
	}
}

func TestEngine_RequestStats(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	engine.RecordLatency(10*time.Millisecond, "login", true, 100)
	engine.RecordLatency(15*time.Millisecond, "login", true, 100)
	engine.RecordLatency(50*time.Millisecond, "profile", true, 500)

	stats := engine.GetRequestStats()
	if len(stats) != 2 {
		t.Errorf("RequestStats length = %d, want 2", len(stats))
	}
	if stats["login"].Count != 2 {
		t.Errorf("login count = %d, want 2", stats["login"].Count)
	}
}

func TestEngine_Reset(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	engine.Record(Sample{Duration: time.Millisecond, Tags: map[string]string{"a": "b"}, Success: false})
	engine.RecordCheck("c", false)
	engine.SetPhase(PhaseSteady)
	engine.SetActiveVUs(5)

	engine.Reset()

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 0 || snapshot.ChecksFailed != 0 || snapshot.ActiveVUs != 0 {
		t.Errorf("after Reset snapshot = %+v", snapshot)
	}
	if snapshot.CurrentPhase != PhaseInit {
		t.Errorf("after Reset phase = %v, want %v", snapshot.CurrentPhase, PhaseInit)
	}
	if len(engine.GetAllTagStats()) != 0 {
		t.Error("after Reset tag stats not empty")
	}
}

func TestEngine_ConcurrentRecord(t *testing.T) {
	engine := NewEngine()
	defer engine.Stop()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				engine.Record(Sample{
					Duration: time.Millisecond,
					Name:     "r",
					Tags:     map[string]string{"endpoint": "GET /"},
					Success:  true,
				})
				engine.RecordCheck("ok", true)
			}
		}()
	}
	wg.Wait()

	if got := engine.GetSnapshot().TotalRequests; got != 4000 {
		t.Errorf("TotalRequests = %d, want 4000", got)
	}
	ts, _ := engine.GetTagStats("endpoint", "GET /")
	if ts.Total != 4000 {
		t.Errorf("tag total = %d, want 4000", ts.Total)
	}
}

func TestEngine_StopCutsFinalBucket(t *testing.T) {
	engine := NewEngineWithConfig(EngineConfig{
		BucketInterval:   time.Hour,
		MaxBuckets:       10,
		HistogramMin:     1,
		HistogramMax:     60000000,
		HistogramSigFigs: 2,
	})
	engine.RecordLatency(time.Millisecond, "", true, 1)
	engine.Stop()
	engine.Stop()

	series := engine.GetTimeSeries()
	if len(series) != 1 {
		t.Fatalf("GetTimeSeries() len = %d, want 1", len(series))
	}
	if series[0].IntervalRequests != 1 {
		t.Errorf("IntervalRequests = %d, want 1", series[0].IntervalRequests)
	}
}
