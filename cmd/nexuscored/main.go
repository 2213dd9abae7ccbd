// Command nexuscored runs the cluster control plane: the HTTP API,
// the host/cluster health monitor, and the fault handler, backed by a
// pluggable key/value store and a Docker runtime driver.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexuscore/nexuscore/pkg/api"
	"github.com/nexuscore/nexuscore/pkg/config"
	"github.com/nexuscore/nexuscore/pkg/fault"
	"github.com/nexuscore/nexuscore/pkg/health"
	"github.com/nexuscore/nexuscore/pkg/hostmon"
	"github.com/nexuscore/nexuscore/pkg/log"
	"github.com/nexuscore/nexuscore/pkg/metrics"
	"github.com/nexuscore/nexuscore/pkg/nodemgr"
	"github.com/nexuscore/nexuscore/pkg/runtime"
	"github.com/nexuscore/nexuscore/pkg/scheduler"
	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "nexuscored",
	Short:   "nexuscored is the cluster control plane",
	Long:    "nexuscored registers nodes, schedules pods by best fit, and monitors cluster health.",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("nexuscored version %s\nCommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	cfg := config.LoadServer()
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	if !rootCmd.PersistentFlags().Changed("log-level") {
		logLevel = cfg.LogLevel
	}
	if !rootCmd.PersistentFlags().Changed("log-json") {
		logJSON = cfg.LogJSON
	}
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

func run() error {
	cfg := config.LoadServer()
	logger := log.WithComponent("main")

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("nexuscored: open store: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := runtime.NewDockerDriver(ctx, cfg.ControlPlaneURL)
	if err != nil {
		return fmt.Errorf("nexuscored: connect docker: %w", err)
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("store", true, "")
	metrics.RegisterComponent("runtime", true, "")

	nodes := nodemgr.New(store, driver)
	sched := scheduler.New(store)
	hm := hostmon.New(store)
	fh := fault.New(store)
	hc := health.New(store, hm, fh, health.Config{
		HostLoopInterval:    cfg.HostLoopInterval,
		ClusterLoopInterval: cfg.ClusterLoopInterval,
		LivenessThreshold:   cfg.LivenessThreshold,
	})
	server := api.NewServer(store, nodes, sched, fh, hm)

	typed := storage.NewTyped(store)
	collector := metrics.NewCollector(
		func() (map[string]int, error) { return countByStatus(nodes.List(ctx)) },
		func() (map[string]int, error) {
			pods, err := typed.ListPods(ctx)
			if err != nil {
				return nil, err
			}
			counts := make(map[string]int, len(pods))
			for _, p := range pods {
				counts[string(p.Status)]++
			}
			return counts, nil
		},
		15*time.Second,
	)
	collector.Start()
	defer collector.Stop()

	hc.Start()
	defer hc.Stop()

	logger.Info().Str("addr", cfg.ListenAddr).Str("backend", cfg.StoreBackend).Msg("nexuscored starting")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx, cfg.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		if err := fh.CleanupStaleResources(context.Background()); err != nil {
			logger.Error().Err(err).Msg("stale resource cleanup failed")
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func countByStatus(nodes []*types.Node, err error) (map[string]int, error) {
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(nodes))
	for _, n := range nodes {
		counts[string(n.Status)]++
	}
	return counts, nil
}

func newStore(cfg config.Server) (storage.Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		return storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	default:
		return storage.NewBoltStore(cfg.BoltPath)
	}
}
