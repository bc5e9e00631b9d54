package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/load/config"
	"github.com/wesleyorama2/shopcheck/internal/load/executor"
)

func TestNewExecutor(t *testing.T) {
	tests := []struct {
		typ     executor.Type
		wantErr bool
	}{
		{executor.TypeConstantVUs, false},
		{executor.TypeRampingVUs, false},
		{"constant-arrival-rate", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			exec, err := executor.NewExecutor(tt.typ, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExecutor(%q) error = %v, wantErr %v", tt.typ, err, tt.wantErr)
			}
			if !tt.wantErr && exec.Type() != tt.typ {
				t.Errorf("Type() = %v, want %v", exec.Type(), tt.typ)
			}
		})
	}
}

func TestCreateAndInitExecutor_Invalid(t *testing.T) {
	_, err := executor.CreateAndInitExecutor(context.Background(), &executor.Config{Type: executor.TypeConstantVUs}, nil)
	if err == nil {
		t.Error("CreateAndInitExecutor() error = nil, want validation error")
	}
}

func TestConfigFromScenario_Builtins(t *testing.T) {
	cfg, err := config.LoadBuiltin("fakestore-load")
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}

	ec, err := executor.ConfigFromScenario("create_product", cfg.Scenarios["create_product"])
	if err != nil {
		t.Fatalf("ConfigFromScenario() error = %v", err)
	}
	if ec.Type != executor.TypeConstantVUs || ec.VUs != 75 || ec.Duration != 2*time.Minute {
		t.Errorf("config = %s/%d/%v, want constant-vus/75/2m", ec.Type, ec.VUs, ec.Duration)
	}
	if ec.StartTime != time.Second || ec.GracefulStop != 10*time.Second {
		t.Errorf("StartTime = %v, GracefulStop = %v", ec.StartTime, ec.GracefulStop)
	}
	if ec.Pacing == nil || ec.Pacing.Type != executor.PacingRandom ||
		ec.Pacing.Min != 300*time.Millisecond || ec.Pacing.Max != 700*time.Millisecond {
		t.Errorf("Pacing = %+v", ec.Pacing)
	}

	lo, hi := executor.IterationBounds(ec.Duration, ec.Pacing.Min, ec.Pacing.Max, 0)
	if lo != 171 || hi != 400 {
		t.Errorf("IterationBounds() = [%d, %d], want [171, 400]", lo, hi)
	}

	ramp, err := config.LoadBuiltin("fakestore-ramp")
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}
	exec, rc, err := executor.CreateExecutorFromScenarioConfig(context.Background(), "ramp_list_products", ramp.Scenarios["ramp_list_products"], nil)
	if err != nil {
		t.Fatalf("CreateExecutorFromScenarioConfig() error = %v", err)
	}
	if exec.Type() != executor.TypeRampingVUs || len(rc.Stages) != 8 {
		t.Errorf("executor = %s with %d stages", exec.Type(), len(rc.Stages))
	}
	if rc.TotalDuration() != 7*time.Minute+30*time.Second {
		t.Errorf("TotalDuration() = %v, want 7m30s", rc.TotalDuration())
	}
}
