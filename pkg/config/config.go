// Package config holds a storage node's configuration tree: logging,
// HTTP server, node identity, on-disk storage, coordinator fan-out timing,
// and metrics exposure. Shaped like the original yaml-tagged config.Config
// (Logger/Server/DB), generalized from an LSM engine's memtable/persistence
// knobs to a fabric node's topology/storage/fan-out knobs, loaded the same
// way: goccy/go-yaml with an env overlay.
package config

import "time"

// Config is the root configuration for one storage node process.
type Config struct {
	Logger      LoggerConfig      `yaml:"logger" validate:"required"`
	Server      ServerConfig      `yaml:"http_server" validate:"required"`
	Node        NodeConfig        `yaml:"node" validate:"required"`
	Storage     StorageConfig     `yaml:"storage" validate:"required"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// LoggerConfig controls the process-wide slog handler.
type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig covers the chi-routed HTTP surface.
type ServerConfig struct {
	Port              int           `yaml:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// NodeConfig identifies this node within the static topology.
type NodeConfig struct {
	Hostname     string `yaml:"hostname" validate:"required"`
	TopologyPath string `yaml:"topology_path" validate:"required"`
	PIDFile      string `yaml:"pid_file"`
	StatusFile   string `yaml:"status_file"`
}

// StorageConfig covers the blockstore's on-disk layout.
type StorageConfig struct {
	DataDir string `yaml:"data_dir" validate:"required"`
}

// CoordinatorConfig bounds how long a fan-out query waits on a slow peer
// before treating it as missing.
type CoordinatorConfig struct {
	FanoutTimeout time.Duration `yaml:"fanout_timeout"`
	EventBuffer   int           `yaml:"event_buffer"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a baseline development config for a single local node.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Node: NodeConfig{
			Hostname:     "node-1",
			TopologyPath: "./topology.yaml",
			StatusFile:   "./status.txt",
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Coordinator: CoordinatorConfig{
			FanoutTimeout: 2 * time.Second,
			EventBuffer:   256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
