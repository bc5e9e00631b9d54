package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Launch starts the browser engine named in cfg.
func Launch(ctx context.Context, cfg Config, logger *zap.Logger) (Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("engine", cfg.Engine))

	switch cfg.Engine {
	case EngineRod, "":
		return NewRod(ctx, cfg, logger)
	case EnginePlaywright:
		return NewPlaywright(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("unknown browser engine %q", cfg.Engine)
}
