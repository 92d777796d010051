package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/phishwatch.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
model:
  path: /opt/models/bundle.json
  polarity: LEGIT
lists:
  url_file: /opt/data/urls.csv
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Model.Polarity != "LEGIT" {
		t.Errorf("polarity = %q", cfg.Model.Polarity)
	}
	if cfg.Lists.URLFile != "/opt/data/urls.csv" {
		t.Errorf("url_file = %q", cfg.Lists.URLFile)
	}
	// Untouched settings keep their defaults.
	if cfg.Lists.URLColumn != "url" {
		t.Errorf("url_column = %q", cfg.Lists.URLColumn)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PHISHWATCH_POLARITY", "PHISH")
	t.Setenv("PHISHWATCH_MODEL_URL", "https://registry.example/bundle.json")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Model.Polarity != "PHISH" {
		t.Errorf("polarity = %q", cfg.Model.Polarity)
	}
	if cfg.Model.URL != "https://registry.example/bundle.json" {
		t.Errorf("model url = %q", cfg.Model.URL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no model source", func(c *Config) { c.Model.Path = ""; c.Model.URL = "" }},
		{"bad polarity", func(c *Config) { c.Model.Polarity = "MAYBE" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"milter no address", func(c *Config) { c.Milter.Enabled = true; c.Milter.Address = "" }},
		{"milter bad network", func(c *Config) { c.Milter.Enabled = true; c.Milter.Network = "udp" }},
		{"milter bad threshold", func(c *Config) { c.Milter.Enabled = true; c.Milter.RejectThreshold = 0.1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := DefaultConfig()
	cfg.Server.Port = 9999
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Server.Port != 9999 {
		t.Errorf("round-trip port = %d", loaded.Server.Port)
	}
}
