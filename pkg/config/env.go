package config

import (
	"os"
	"strconv"
)

// ApplyEnv overlays environment variables onto cfg, the same shape as
// pkg/cluster.FromEnv: a handful of well-known variables override whatever
// the YAML file set, so a container can fix hostname and data directory
// without templating the config file.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("GEOFABRIC_HOSTNAME"); v != "" {
		cfg.Node.Hostname = v
	}
	if v := os.Getenv("GEOFABRIC_TOPOLOGY_PATH"); v != "" {
		cfg.Node.TopologyPath = v
	}
	if v := os.Getenv("GEOFABRIC_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("GEOFABRIC_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	return cfg
}
