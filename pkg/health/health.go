// Package health implements the Health Monitor: a host loop that
// samples this process's own machine capacity, and a cluster loop
// that sweeps node liveness and per-node utilization, handing
// anything unhealthy to the fault handler.
package health

import (
	"context"
	"time"

	"github.com/nexuscore/nexuscore/pkg/fault"
	"github.com/nexuscore/nexuscore/pkg/hostmon"
	"github.com/nexuscore/nexuscore/pkg/log"
	"github.com/nexuscore/nexuscore/pkg/metrics"
	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/nexuscore/nexuscore/pkg/usage"
	"github.com/rs/zerolog"
)

// DefaultLivenessThreshold, DefaultHostLoopInterval and
// DefaultClusterLoopInterval match spec.md §6's 300s/30s/60s and are
// used when a caller passes a zero Config field.
const (
	DefaultLivenessThreshold   = 300 * time.Second
	DefaultHostLoopInterval    = 30 * time.Second
	DefaultClusterLoopInterval = 60 * time.Second
)

const loopBackoff = 5 * time.Second
const loopTimeout = 5 * time.Second

// Config holds the operator-tunable timing knobs for the health
// monitor, sourced from pkg/config so that the liveness threshold and
// loop cadences are not silently fixed regardless of configuration.
type Config struct {
	HostLoopInterval    time.Duration
	ClusterLoopInterval time.Duration
	LivenessThreshold   time.Duration
}

// Monitor runs the host and cluster monitoring loops.
type Monitor struct {
	store   *storage.Typed
	hostmon *hostmon.Monitor
	fault   *fault.Handler
	logger  zerolog.Logger
	stopCh  chan struct{}
	cfg     Config
}

// New creates a Monitor wrapping a state store, a host sampler and a
// fault handler. Zero fields in cfg fall back to the spec's defaults.
func New(store storage.Store, hm *hostmon.Monitor, fh *fault.Handler, cfg Config) *Monitor {
	if cfg.HostLoopInterval <= 0 {
		cfg.HostLoopInterval = DefaultHostLoopInterval
	}
	if cfg.ClusterLoopInterval <= 0 {
		cfg.ClusterLoopInterval = DefaultClusterLoopInterval
	}
	if cfg.LivenessThreshold <= 0 {
		cfg.LivenessThreshold = DefaultLivenessThreshold
	}
	return &Monitor{
		store:   storage.NewTyped(store),
		hostmon: hm,
		fault:   fh,
		logger:  log.WithComponent("health"),
		stopCh:  make(chan struct{}),
		cfg:     cfg,
	}
}

// Start launches the host and cluster loops as background goroutines.
func (m *Monitor) Start() {
	metrics.RegisterComponent("health_monitor", true, "")
	go m.runHostLoop()
	go m.runClusterLoop()
}

// Stop signals both loops to exit.
func (m *Monitor) Stop() {
	close(m.stopCh)
}

func (m *Monitor) runHostLoop() {
	ticker := time.NewTicker(m.cfg.HostLoopInterval)
	defer ticker.Stop()
	m.logger.Info().Dur("interval", m.cfg.HostLoopInterval).Msg("host loop started")

	for {
		select {
		case <-ticker.C:
			if err := m.hostLoopOnce(); err != nil {
				m.logger.Error().Err(err).Msg("host loop iteration failed, backing off")
				time.Sleep(loopBackoff)
			}
		case <-m.stopCh:
			m.logger.Info().Msg("host loop stopped")
			return
		}
	}
}

func (m *Monitor) hostLoopOnce() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.HealthHostLoopDuration)

	ctx, cancel := context.WithTimeout(context.Background(), loopTimeout)
	defer cancel()

	_, err := m.hostmon.Sample(ctx)
	return err
}

func (m *Monitor) runClusterLoop() {
	ticker := time.NewTicker(m.cfg.ClusterLoopInterval)
	defer ticker.Stop()
	m.logger.Info().Dur("interval", m.cfg.ClusterLoopInterval).Msg("cluster loop started")

	for {
		select {
		case <-ticker.C:
			if err := m.clusterLoopOnce(); err != nil {
				m.logger.Error().Err(err).Msg("cluster loop iteration failed, backing off")
				time.Sleep(loopBackoff)
			}
		case <-m.stopCh:
			m.logger.Info().Msg("cluster loop stopped")
			return
		}
	}
}

func (m *Monitor) clusterLoopOnce() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.HealthClusterLoopDuration)

	ctx, cancel := context.WithTimeout(context.Background(), loopTimeout)
	defer cancel()

	if err := m.checkNodesLiveness(ctx); err != nil {
		return err
	}
	return m.checkClusterUtilization(ctx)
}

// checkNodesLiveness marks any online node whose last heartbeat is
// older than the configured liveness threshold as offline.
func (m *Monitor) checkNodesLiveness(ctx context.Context) error {
	nodes, err := m.store.ListNodes(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, node := range nodes {
		if node.Status != types.NodeStatusOnline || node.LastHeartbeat == nil {
			continue
		}
		if now.Sub(*node.LastHeartbeat) <= m.cfg.LivenessThreshold {
			continue
		}
		m.logger.Warn().
			Str("node_id", node.ID).
			Dur("since_last_heartbeat", now.Sub(*node.LastHeartbeat)).
			Msg("node missed heartbeat, marking offline")
		node.Status = types.NodeStatusOffline
		if err := m.store.PutNode(ctx, node); err != nil {
			m.logger.Error().Err(err).Str("node_id", node.ID).Msg("failed to mark node offline")
			continue
		}
		metrics.LivenessTransitionsTotal.Inc()
	}
	return nil
}

// checkClusterUtilization compares each online node's utilization
// against the configured host limits, handing overloaded nodes to
// the fault handler.
func (m *Monitor) checkClusterUtilization(ctx context.Context) error {
	limits, err := m.hostmon.Get(ctx)
	if err != nil {
		return err
	}

	nodes, err := m.store.ListNodes(ctx)
	if err != nil {
		return err
	}

	var online []*types.Node
	for _, node := range nodes {
		if node.Status == types.NodeStatusOnline {
			online = append(online, node)
		}
	}
	if len(online) == 0 {
		m.logger.Warn().Msg("no online nodes found in cluster")
		return nil
	}

	for _, node := range online {
		usedCPU, usedMem, err := usage.Of(ctx, m.store, node.ID)
		if err != nil {
			m.logger.Error().Err(err).Str("node_id", node.ID).Msg("failed to compute node usage")
			continue
		}
		cpuPct, memPct := usage.UtilizationPercent(node, usedCPU, usedMem)
		if cpuPct <= limits.CPULimitPercent && memPct <= limits.MemoryLimitPercent {
			continue
		}
		m.logger.Warn().
			Str("node_id", node.ID).
			Float64("cpu_utilization", cpuPct).
			Float64("memory_utilization", memPct).
			Msg("node exceeds configured resource limits")
		if _, err := m.fault.HandleResourceFailure(ctx, node); err != nil {
			m.logger.Error().Err(err).Str("node_id", node.ID).Msg("failed to handle resource failure")
		}
	}
	return nil
}
