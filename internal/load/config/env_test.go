package config

import "testing"

func TestApplyEnvFunc(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unset keeps file value", nil, "https://fakestoreapi.com"},
		{"override", map[string]string{"BASE_URL": "http://localhost:3000"}, "http://localhost:3000"},
		{"trailing slash trimmed", map[string]string{"BASE_URL": "http://localhost:3000/"}, "http://localhost:3000"},
		{"blank ignored", map[string]string{"BASE_URL": "  "}, "https://fakestoreapi.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &TestConfig{Settings: GlobalSettings{BaseURL: "https://fakestoreapi.com"}}
			ApplyEnvFunc(cfg, func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			})
			if cfg.Settings.BaseURL != tt.want {
				t.Errorf("BaseURL = %q, want %q", cfg.Settings.BaseURL, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://127.0.0.1:9999")
	cfg := &TestConfig{}
	ApplyEnv(cfg)
	if cfg.Settings.BaseURL != "http://127.0.0.1:9999" {
		t.Errorf("BaseURL = %q", cfg.Settings.BaseURL)
	}
}
