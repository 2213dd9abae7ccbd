package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
)

const (
	// NetworkName is the bridge network every node container joins,
	// mirroring the original system's "nexuscore-network".
	NetworkName = "nexuscore-network"

	// NodeImage is the image run for a simulated node.
	NodeImage = "nexuscore-node:latest"
)

// DockerDriver implements Driver against the Docker Engine API.
type DockerDriver struct {
	cli    *client.Client
	apiURL string
}

// NewDockerDriver connects to the Docker daemon using the standard
// environment configuration (DOCKER_HOST, DOCKER_CERT_PATH, ...) and
// ensures the node network exists. apiURL is the control plane's own
// address, injected into node containers as API_URL so their
// in-container heartbeat agent can reach back.
func NewDockerDriver(ctx context.Context, apiURL string) (*DockerDriver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("runtime: connect to docker: %w", err)
	}

	d := &DockerDriver{cli: cli, apiURL: apiURL}
	if err := d.ensureNetwork(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DockerDriver) ensureNetwork(ctx context.Context) error {
	networks, err := d.cli.NetworkList(ctx, types.NetworkListOptions{})
	if err != nil {
		return fmt.Errorf("runtime: list networks: %w", err)
	}
	for _, n := range networks {
		if n.Name == NetworkName {
			return nil
		}
	}
	_, err = d.cli.NetworkCreate(ctx, NetworkName, types.NetworkCreate{Driver: "bridge"})
	if err != nil {
		return fmt.Errorf("runtime: create network %s: %w", NetworkName, err)
	}
	return nil
}

// CreateContainer runs a new node container with CPU and memory
// pinned via nano-CPUs and a hard memory limit (and matching
// memory-swap limit, disabling swap), per §6.2.
func (d *DockerDriver) CreateContainer(ctx context.Context, cpuCount int, memoryMB int64) (string, string, string, error) {
	name := fmt.Sprintf("nexus-node-%s", uuid.New().String()[:8])

	env := []string{
		fmt.Sprintf("NODE_CPU_COUNT=%d", cpuCount),
		fmt.Sprintf("NODE_ID=%s", name),
		fmt.Sprintf("API_URL=%s", d.apiURL),
	}

	hostConfig := &container.HostConfig{
		NetworkMode: container.NetworkMode(NetworkName),
		Resources: container.Resources{
			NanoCPUs: int64(cpuCount) * 1_000_000_000,
		},
	}
	if memoryMB > 0 {
		memBytes := memoryMB * 1024 * 1024
		hostConfig.Resources.Memory = memBytes
		hostConfig.Resources.MemorySwap = memBytes
		env = append(env, fmt.Sprintf("NODE_MEMORY_MB=%d", memoryMB))
	}

	resp, err := d.cli.ContainerCreate(ctx, &container.Config{
		Image: NodeImage,
		Env:   env,
	}, hostConfig, &network.NetworkingConfig{}, nil, name)
	if err != nil {
		return "", "", "", fmt.Errorf("runtime: create container: %w", err)
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", "", "", fmt.Errorf("runtime: start container: %w", err)
	}

	// Give the container a moment to come up and attach to the
	// network before inspecting it for an address.
	time.Sleep(2 * time.Second)

	info, err := d.cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		return "", "", "", fmt.Errorf("runtime: inspect container: %w", err)
	}
	if !info.State.Running {
		return "", "", "", fmt.Errorf("runtime: container %s failed to start", name)
	}

	address := ""
	if netInfo, ok := info.NetworkSettings.Networks[NetworkName]; ok {
		address = netInfo.IPAddress
	}

	return resp.ID, name, address, nil
}

func (d *DockerDriver) Stop(ctx context.Context, id string) error {
	if err := d.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("runtime: stop container %s: %w", id, err)
	}
	return nil
}

func (d *DockerDriver) Restart(ctx context.Context, id string) error {
	if err := d.cli.ContainerRestart(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("runtime: restart container %s: %w", id, err)
	}
	return nil
}

func (d *DockerDriver) Delete(ctx context.Context, id string) error {
	if err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("runtime: delete container %s: %w", id, err)
	}
	return nil
}
