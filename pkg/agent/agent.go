// Package agent implements the in-container heartbeat client: it
// discovers its own container id, periodically reports host capacity
// to the control plane, and notifies the control plane on graceful
// shutdown, grounded in original_source/node/heartbeat_client.py.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/nexuscore/nexuscore/pkg/config"
	"github.com/nexuscore/nexuscore/pkg/log"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// warnAfterFailures is the consecutive-failure count after which the
// agent logs a warning, per spec.md §7.
const warnAfterFailures = 3

// Agent periodically reports this container's capacity to the
// control plane and reconciles a clean shutdown with it.
type Agent struct {
	cfg                config.Agent
	containerID        string
	httpClient         *http.Client
	logger             zerolog.Logger
	consecutiveFailures int
}

// New creates an Agent and resolves its container id via the
// /proc/self/cgroup -> HOSTNAME -> configured NODE_ID fallback chain.
func New(cfg config.Agent) *Agent {
	return &Agent{
		cfg:         cfg,
		containerID: discoverContainerID(cfg.NodeID),
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		logger:      log.WithComponent("agent"),
	}
}

// discoverContainerID reads /proc/self/cgroup for a docker-managed
// cgroup path, falling back to HOSTNAME, then to the configured id.
func discoverContainerID(configuredID string) string {
	if f, err := os.Open("/proc/self/cgroup"); err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.Contains(line, "docker") {
				parts := strings.Split(line, "/")
				if id := parts[len(parts)-1]; id != "" {
					return id
				}
			}
		}
	}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		return hostname
	}
	return configuredID
}

// Run starts the heartbeat loop; it blocks until ctx is canceled,
// then sends one shutdown notification before returning.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info().
		Str("node_id", a.cfg.NodeID).
		Str("container_id", a.containerID).
		Dur("interval", a.cfg.HeartbeatInterval).
		Msg("heartbeat loop started")

	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.tick(ctx)
		case <-ctx.Done():
			a.shutdown()
			return nil
		}
	}
}

func (a *Agent) tick(ctx context.Context) {
	if err := a.sendHeartbeat(ctx); err != nil {
		a.consecutiveFailures++
		a.logger.Error().Err(err).Int("consecutive_failures", a.consecutiveFailures).Msg("heartbeat failed")
		if a.consecutiveFailures > warnAfterFailures {
			a.logger.Warn().Int("consecutive_failures", a.consecutiveFailures).Msg("multiple consecutive heartbeat failures")
		}
		return
	}
	a.consecutiveFailures = 0
}

type heartbeatBody struct {
	Resources types.NodeResources `json:"resources"`
	Status    types.NodeStatus    `json:"status"`
}

func (a *Agent) sendHeartbeat(ctx context.Context) error {
	counts, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return fmt.Errorf("agent: cpu count: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("agent: virtual memory: %w", err)
	}

	body := heartbeatBody{
		Resources: types.NodeResources{
			CPUCount:         counts,
			MemoryTotalBytes: int64(vm.Total),
			MemoryAvailBytes: int64(vm.Available),
		},
		Status: types.NodeStatusOnline,
	}

	url := fmt.Sprintf("%s/health/heartbeat/%s", a.cfg.APIURL, a.containerID)
	return retry.Do(
		func() error { return a.postJSON(ctx, url, body) },
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
	)
}

// shutdown notifies the control plane once, best effort, mirroring
// heartbeat_client.py's cleanup().
func (a *Agent) shutdown() {
	url := fmt.Sprintf("%s/nodes/%s/shutdown", a.cfg.APIURL, a.containerID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.postJSON(ctx, url, nil); err != nil {
		a.logger.Error().Err(err).Msg("shutdown notification failed")
		return
	}
	a.logger.Info().Str("container_id", a.containerID).Msg("shutdown notification sent")
}

func (a *Agent) postJSON(ctx context.Context, url string, body any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("agent: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent: %s returned status %d", url, resp.StatusCode)
	}
	return nil
}
