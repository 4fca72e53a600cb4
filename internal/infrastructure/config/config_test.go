package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
topology:
  path: "/srv/topology/site.xml"
  max_backups: 5
database:
  path: "/tmp/test.db"
mqtt:
  enabled: true
  broker:
    host: "broker.local"
  qos: 2
api:
  port: 9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Topology.Path != "/srv/topology/site.xml" {
		t.Errorf("Topology.Path = %q", cfg.Topology.Path)
	}
	if cfg.Topology.MaxBackups != 5 {
		t.Errorf("Topology.MaxBackups = %d, want 5", cfg.Topology.MaxBackups)
	}
	if !cfg.Topology.StartOnLoad {
		t.Error("Topology.StartOnLoad default lost")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "invalid: [yaml: content")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GRAYLOGIC_TOPOLOGY_PATH", "/env/topology.xml")
	t.Setenv("GRAYLOGIC_API_PORT", "9191")
	t.Setenv("GRAYLOGIC_LOGGING_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "site:\n  id: env-site\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Topology.Path != "/env/topology.xml" {
		t.Errorf("Topology.Path = %q", cfg.Topology.Path)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("API.Port = %d", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "missing site ID", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: "site.id"},
		{name: "missing topology path", mutate: func(c *Config) { c.Topology.Path = "" }, wantErr: "topology.path"},
		{name: "negative backups", mutate: func(c *Config) { c.Topology.MaxBackups = -1 }, wantErr: "max_backups"},
		{name: "journal without path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "journal disabled", mutate: func(c *Config) { c.Database.Enabled = false; c.Database.Path = "" }},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "invalid port", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: "api.port"},
		{name: "api disabled", mutate: func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }},
		{name: "tls without files", mutate: func(c *Config) { c.API.TLS.Enabled = true }, wantErr: "api.tls"},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: "influxdb.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestTopologyConfig_BackupDirectory(t *testing.T) {
	tc := TopologyConfig{Path: "/srv/topology/site.xml"}
	if got := tc.BackupDirectory(); got != filepath.Join("/srv/topology", "backups") {
		t.Errorf("BackupDirectory() = %q", got)
	}
	tc.BackupDir = "/var/backups/topology"
	if got := tc.BackupDirectory(); got != "/var/backups/topology" {
		t.Errorf("BackupDirectory() = %q", got)
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := Default()
	if cfg.GetReadTimeout().Seconds() != 30 || cfg.GetIdleTimeout().Seconds() != 60 {
		t.Errorf("timeouts = %v / %v", cfg.GetReadTimeout(), cfg.GetIdleTimeout())
	}
}
