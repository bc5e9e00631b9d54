package output

import (
	"context"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/load/engine"
)

// DefaultUpdateInterval is how often Watch redraws.
const DefaultUpdateInterval = time.Second

// nonTTYEvery throttles status lines when the output is not a terminal.
const nonTTYEvery = 10

// Watch redraws the live display from eng until ctx is done. Off a
// terminal it prints a status line every ten intervals instead.
func (c *ConsoleOutput) Watch(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	if c.quiet {
		return
	}
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}

	total, _ := eng.GetConfig().TotalDuration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		stats := LiveFrame(eng, total)
		if c.isTTY {
			c.Update(stats)
		} else if tick%nonTTYEvery == 0 {
			c.PrintNonInteractiveUpdate(stats)
		}
	}
}

// LiveFrame collects one frame from a running engine. Target VUs are summed
// over scenarios; stage information comes from the first staged scenario.
func LiveFrame(eng *engine.Engine, total time.Duration) *LiveStats {
	var target, stage, stages int
	all := eng.GetScenarioStats()
	for _, name := range eng.GetConfig().ScenarioNames() {
		st, ok := all[name]
		if !ok || st == nil {
			continue
		}
		target += st.TargetVUs
		if stages == 0 && st.TotalStages > 0 {
			stage, stages = st.CurrentStage+1, st.TotalStages
		}
	}
	return StatsFromMetrics(eng.GetMetrics(), eng.GetProgress(), total, target, stage, stages)
}
