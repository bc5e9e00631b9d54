package browser

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by LoadConfig.
const (
	EnvHeadless          = "HEADLESS"
	EnvSlowMo            = "SLOW_MO"
	EnvEngine            = "BROWSER_ENGINE"
	EnvBin               = "BROWSER_BIN"
	EnvScreenshotDir     = "SCREENSHOT_DIR"
	EnvNavigationTimeout = "NAVIGATION_TIMEOUT"
)

// Engines.
const (
	EngineRod        = "rod"
	EnginePlaywright = "playwright"
)

// Config controls how a browser is launched.
type Config struct {
	Engine   string
	Headless bool
	// SlowMo delays every browser operation.
	SlowMo time.Duration
	// Bin is the browser executable; empty lets the engine find one.
	Bin string

	ScreenshotDir     string
	NavigationTimeout time.Duration
	// ActionTimeout bounds element lookups inside element methods.
	ActionTimeout time.Duration

	ViewportWidth  int
	ViewportHeight int
}

// DefaultConfig returns a headless rod configuration.
func DefaultConfig() Config {
	return Config{
		Engine:            EngineRod,
		Headless:          true,
		ScreenshotDir:     "screenshots",
		NavigationTimeout: 30 * time.Second,
		ActionTimeout:     10 * time.Second,
		ViewportWidth:     1280,
		ViewportHeight:    720,
	}
}

// LoadConfig reads the configuration from the process environment. Load a
// .env file first if one should apply.
func LoadConfig() (Config, error) {
	return ConfigFromEnv(os.LookupEnv)
}

// ConfigFromEnv builds a configuration from lookup.
//
// HEADLESS is true unless it is exactly "false". SLOW_MO is in
// milliseconds. NAVIGATION_TIMEOUT accepts a Go duration or milliseconds.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	if v, ok := lookup(EnvHeadless); ok {
		cfg.Headless = strings.TrimSpace(v) != "false"
	}

	if v, ok := lookup(EnvSlowMo); ok && strings.TrimSpace(v) != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || ms < 0 {
			return cfg, fmt.Errorf("%s: want a non-negative number of milliseconds, got %q", EnvSlowMo, v)
		}
		cfg.SlowMo = time.Duration(ms) * time.Millisecond
	}

	if v, ok := lookup(EnvEngine); ok && strings.TrimSpace(v) != "" {
		switch e := strings.ToLower(strings.TrimSpace(v)); e {
		case EngineRod, EnginePlaywright:
			cfg.Engine = e
		default:
			return cfg, fmt.Errorf("%s: unknown engine %q (want %s or %s)", EnvEngine, v, EngineRod, EnginePlaywright)
		}
	}

	if v, ok := lookup(EnvBin); ok {
		cfg.Bin = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvScreenshotDir); ok && strings.TrimSpace(v) != "" {
		cfg.ScreenshotDir = strings.TrimSpace(v)
	}

	if v, ok := lookup(EnvNavigationTimeout); ok && strings.TrimSpace(v) != "" {
		d, err := parseTimeout(strings.TrimSpace(v))
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvNavigationTimeout, err)
		}
		cfg.NavigationTimeout = d
	}

	return cfg, nil
}

func parseTimeout(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("must be positive, got %q", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %q", s)
	}
	return d, nil
}
