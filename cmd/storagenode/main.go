// Command storagenode runs one geofabric storage node: it loads config and
// topology, opens its filesystem registry, and serves the client and
// peer-to-peer HTTP surfaces until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	nodecfg "geofabric/internal/config"
	"geofabric/internal/node"
	"geofabric/pkg/blockstore"
	"geofabric/pkg/metrics"
	"geofabric/pkg/topology"
	"geofabric/pkg/types"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to node config file")
	flag.Parse()

	cfg, err := nodecfg.Load(*configPath)
	if err != nil {
		slog.Error("storagenode: load config failed", "error", err)
		os.Exit(1)
	}
	nodecfg.InitLogger(cfg)
	status := nodecfg.NewStatusLine(cfg.Node.StatusFile)

	status.Set("Reading network configuration")
	topo, err := topology.Load(cfg.Node.TopologyPath)
	if err != nil {
		status.Set("Could not load topology")
		slog.Error("storagenode: load topology failed", "error", err, "path", cfg.Node.TopologyPath)
		os.Exit(1)
	}

	self, ok := findSelf(topo, cfg.Node.Hostname)
	if !ok {
		status.Set("Failed to identify the group of the storage node")
		slog.Error("storagenode: hostname not present in topology", "hostname", cfg.Node.Hostname)
		os.Exit(1)
	}

	if err := nodecfg.WritePIDFile(cfg.Node.PIDFile); err != nil {
		slog.Error("storagenode: write pid file failed", "error", err)
		os.Exit(1)
	}
	defer nodecfg.RemovePIDFile(cfg.Node.PIDFile)

	var collector metrics.Collector = metrics.NoopCollector{}
	var promCollector *metrics.PrometheusCollector
	if cfg.Metrics.Enabled {
		promCollector = metrics.NewPrometheusCollector(nil)
		collector = promCollector
	}

	n, err := node.New(node.Options{
		Self:          self,
		Topology:      topo,
		DataDir:       cfg.Storage.DataDir,
		Factory:       blockstore.Open,
		Collector:     collector,
		EventBuffer:   cfg.Coordinator.EventBuffer,
		FanoutTimeout: cfg.Coordinator.FanoutTimeout,
	})
	if err != nil {
		slog.Error("storagenode: failed to start node", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n.Start(ctx)
	opts := node.ServerOptions{
		Addr:              fmt.Sprintf(":%d", self.Port),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	if promCollector != nil {
		opts.MetricsPath = cfg.Metrics.Path
		opts.MetricsHandler = promCollector.Handler()
	}
	srv := node.NewServer(n, opts)
	srv.Start()

	status.Set("Online")
	slog.Info("storagenode: running", "hostname", self.Hostname, "port", self.Port)
	<-ctx.Done()

	status.Set("Shutting down")
	slog.Info("storagenode: shutting down")
	if err := srv.Stop(); err != nil {
		slog.Error("storagenode: http shutdown error", "error", err)
	}
	if err := n.Stop(); err != nil {
		slog.Error("storagenode: node shutdown error", "error", err)
	}
}

func findSelf(topo *topology.Topology, hostname string) (types.NodeInfo, bool) {
	for _, n := range topo.AllNodes() {
		if n.Hostname == hostname {
			return n, true
		}
	}
	return types.NodeInfo{}, false
}
