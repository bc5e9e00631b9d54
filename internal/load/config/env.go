package config

import (
	"os"
	"strings"
)

// EnvBaseURL overrides settings.baseUrl when set.
const EnvBaseURL = "BASE_URL"

// ApplyEnv applies environment overrides to cfg. It reads the process
// environment; use ApplyEnvFunc to supply another source.
func ApplyEnv(cfg *TestConfig) {
	ApplyEnvFunc(cfg, os.LookupEnv)
}

// ApplyEnvFunc is ApplyEnv with an explicit lookup.
func ApplyEnvFunc(cfg *TestConfig, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBaseURL); ok && strings.TrimSpace(v) != "" {
		cfg.Settings.BaseURL = strings.TrimRight(strings.TrimSpace(v), "/")
	}
}
