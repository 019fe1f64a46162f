package docker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"

	"github.com/ryanmoran/bubble/internal/services"
)

// ErrServiceNotReady is returned when a service's readiness probe never succeeds.
var ErrServiceNotReady = errors.New("service not ready")

// StartService replaces any container with the service's name, then creates
// and starts the service on the network, aliased by its short name so the dev
// container can reach it as e.g. "mysql".
func (c Client) StartService(ctx context.Context, svc services.Descriptor, networkName string, labels map[string]string) (string, error) {
	name := svc.ContainerName()

	if err := c.CleanupExisting(ctx, name); err != nil {
		return "", err
	}

	hostConfig := &container.HostConfig{
		NetworkMode: container.NetworkMode(networkName),
	}
	if vol, ok := svc.Volume(); ok {
		hostConfig.Mounts = []mount.Mount{{
			Type:   mount.TypeVolume,
			Source: vol.Name,
			Target: vol.Target,
		}}
	}

	response, err := c.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: &container.Config{
			Image:  svc.Image(),
			Env:    svc.ContainerEnv(),
			Labels: labels,
		},
		HostConfig: hostConfig,
		NetworkingConfig: &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				networkName: {Aliases: []string{svc.Name()}},
			},
		},
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create %s container: %w\nCheck that the image %q can be pulled", svc.Name(), err, svc.Image())
	}
	c.writer.Info("service container created", "service", svc.Name(), "id", response.ID)

	if _, err := c.client.ContainerStart(ctx, response.ID, client.ContainerStartOptions{}); err != nil {
		return response.ID, fmt.Errorf("failed to start %s container: %w", svc.Name(), err)
	}
	c.writer.Info("service container started", "service", svc.Name(), "id", response.ID)

	return response.ID, nil
}

// WaitForReady runs the service's readiness probe in the container until it
// exits zero, at most maxAttempts times with interval between attempts. The
// wait is not cancelled by ctx once started; ctx only bounds each probe.
func (c Client) WaitForReady(ctx context.Context, containerID string, svc services.Descriptor, maxAttempts int, interval time.Duration) error {
	c.writer.Info("waiting for service to be ready", "service", svc.Name(), "container", containerID)

	probe := execArgs(containerID, false, svc.ReadinessCommand())
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cmd := c.command(context.WithoutCancel(ctx), c.binary, probe...)
		if err := cmd.Run(); err == nil {
			c.writer.Info("service is ready", "service", svc.Name(), "attempt", attempt)
			return nil
		}

		if attempt < maxAttempts {
			c.writer.Debug("service not ready, retrying", "service", svc.Name(), "attempt", attempt, "max", maxAttempts)
			c.sleep(interval)
		}
	}

	return fmt.Errorf("%w: %s did not become ready after %d attempts\nInspect the container logs with: docker logs %s", ErrServiceNotReady, svc.Name(), maxAttempts, svc.ContainerName())
}
