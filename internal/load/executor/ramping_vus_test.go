package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/load/executor"
	"github.com/wesleyorama2/shopcheck/internal/load/metrics"
)

func TestNewRampingVUs(t *testing.T) {
	e := executor.NewRampingVUs(nil)
	if e.Type() != executor.TypeRampingVUs {
		t.Errorf("Type() = %v, want %v", e.Type(), executor.TypeRampingVUs)
	}
}

func TestRampingVUs_Init(t *testing.T) {
	tests := []struct {
		name    string
		config  *executor.Config
		wantErr bool
	}{
		{
			name: "valid",
			config: &executor.Config{
				Type:   executor.TypeRampingVUs,
				Stages: []executor.Stage{{Duration: time.Minute, Target: 100}, {Duration: 30 * time.Second, Target: 0}},
			},
		},
		{
			name:    "no stages",
			config:  &executor.Config{Type: executor.TypeRampingVUs},
			wantErr: true,
		},
		{
			name:    "zero stage duration",
			config:  &executor.Config{Type: executor.TypeRampingVUs, Stages: []executor.Stage{{Duration: 0, Target: 10}}},
			wantErr: true,
		},
		{
			name:    "negative target",
			config:  &executor.Config{Type: executor.TypeRampingVUs, Stages: []executor.Stage{{Duration: time.Second, Target: -1}}},
			wantErr: true,
		},
		{
			name: "negative startVUs",
			config: &executor.Config{
				Type: executor.TypeRampingVUs, StartVUs: -1,
				Stages: []executor.Stage{{Duration: time.Second, Target: 1}},
			},
			wantErr: true,
		},
		{
			name:    "wrong type",
			config:  &executor.Config{Type: executor.TypeConstantVUs, VUs: 1, Duration: time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := executor.NewRampingVUs(nil).Init(context.Background(), tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRampingVUs_Run_UpAndDown(t *testing.T) {
	srv := newTestServer(t, 0)
	scheduler, engine := newTestScheduler(t, srv)

	e := executor.NewRampingVUs(nil)
	if err := e.Init(context.Background(), &executor.Config{
		Type: executor.TypeRampingVUs,
		Stages: []executor.Stage{
			{Duration: 400 * time.Millisecond, Target: 4},
			{Duration: 300 * time.Millisecond, Target: 0, Name: "ramp-down"},
		},
		Pacing: &executor.PacingConfig{Type: executor.PacingConstant, Duration: 20 * time.Millisecond},
	}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := e.Run(context.Background(), scheduler, engine); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := scheduler.TotalSpawned(); got < 1 || got > 4 {
		t.Errorf("TotalSpawned() = %d, want 1..4", got)
	}
	if got := scheduler.GetActiveVUCount(); got != 0 {
		t.Errorf("GetActiveVUCount() after Run = %d, want 0", got)
	}
	if got := engine.GetActiveVUs(); got != 0 {
		t.Errorf("engine.GetActiveVUs() after Run = %d, want 0", got)
	}
	if e.GetStats().Iterations == 0 {
		t.Error("Iterations = 0, want > 0")
	}

	var sawUp, sawDown bool
	for _, pc := range engine.GetPhaseHistory() {
		switch pc.Phase {
		case metrics.PhaseRampUp:
			sawUp = true
		case metrics.PhaseRampDown:
			sawDown = true
		}
	}
	if !sawUp || !sawDown {
		t.Errorf("phase history = %+v, want ramp-up and ramp-down", engine.GetPhaseHistory())
	}

	stats := e.GetStats()
	if stats.TotalStages != 2 || stats.CurrentStageName != "ramp-down" {
		t.Errorf("stats stage = %d/%d %q", stats.CurrentStage, stats.TotalStages, stats.CurrentStageName)
	}
}

func TestRampingVUs_Run_StartVUs(t *testing.T) {
	srv := newTestServer(t, 0)
	scheduler, engine := newTestScheduler(t, srv)

	e := executor.NewRampingVUs(nil)
	_ = e.Init(context.Background(), &executor.Config{
		Type:     executor.TypeRampingVUs,
		StartVUs: 3,
		Stages:   []executor.Stage{{Duration: 250 * time.Millisecond, Target: 3}},
		Pacing:   &executor.PacingConfig{Type: executor.PacingConstant, Duration: 20 * time.Millisecond},
	})

	if err := e.Run(context.Background(), scheduler, engine); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := scheduler.TotalSpawned(); got != 3 {
		t.Errorf("TotalSpawned() = %d, want 3", got)
	}
	if got := engine.GetPhase(); got != metrics.PhaseSteady {
		t.Errorf("GetPhase() = %v, want %v", got, metrics.PhaseSteady)
	}
}

func TestRampingVUs_Stop(t *testing.T) {
	srv := newTestServer(t, 0)
	scheduler, engine := newTestScheduler(t, srv)

	e := executor.NewRampingVUs(nil)
	_ = e.Init(context.Background(), &executor.Config{
		Type:     executor.TypeRampingVUs,
		StartVUs: 2,
		Stages:   []executor.Stage{{Duration: time.Minute, Target: 10}},
	})

	runDone := make(chan error, 1)
	go func() {
		runDone <- e.Run(context.Background(), scheduler, engine)
	}()
	time.Sleep(150 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Stop()")
	}
	if got := e.GetActiveVUs(); got != 0 {
		t.Errorf("GetActiveVUs() after Stop = %d, want 0", got)
	}
}

func TestRampingVUs_GetStats_BeforeInit(t *testing.T) {
	stats := executor.NewRampingVUs(nil).GetStats()
	if stats == nil || stats.Iterations != 0 {
		t.Errorf("GetStats() = %+v", stats)
	}
}
