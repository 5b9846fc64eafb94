package config

import (
	"os"
	"testing"
)

func TestApplyEnvOverridesHostnameAndDataDir(t *testing.T) {
	os.Setenv("GEOFABRIC_HOSTNAME", "node-7")
	os.Setenv("GEOFABRIC_DATA_DIR", "/var/geofabric")
	defer os.Unsetenv("GEOFABRIC_HOSTNAME")
	defer os.Unsetenv("GEOFABRIC_DATA_DIR")

	cfg := ApplyEnv(Default())
	if cfg.Node.Hostname != "node-7" {
		t.Errorf("Node.Hostname = %q, want node-7", cfg.Node.Hostname)
	}
	if cfg.Storage.DataDir != "/var/geofabric" {
		t.Errorf("Storage.DataDir = %q, want /var/geofabric", cfg.Storage.DataDir)
	}
}

func TestApplyEnvLeavesDefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("GEOFABRIC_HOSTNAME")
	cfg := ApplyEnv(Default())
	if cfg.Node.Hostname != "node-1" {
		t.Errorf("Node.Hostname = %q, want default node-1", cfg.Node.Hostname)
	}
}

func TestApplyEnvInvalidPortIsIgnored(t *testing.T) {
	os.Setenv("GEOFABRIC_HTTP_PORT", "not-a-number")
	defer os.Unsetenv("GEOFABRIC_HTTP_PORT")

	cfg := ApplyEnv(Default())
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080 when env value is invalid", cfg.Server.Port)
	}
}
