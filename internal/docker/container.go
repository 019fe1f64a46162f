package docker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
	"golang.org/x/sync/errgroup"

	"github.com/ryanmoran/bubble/internal"
)

const (
	// WorkspaceDir is where the host project directory is bound in the dev container.
	WorkspaceDir = "/workspace"

	staleSweepLimit = 4
)

// ContainerOptions describes the dev container to create.
type ContainerOptions struct {
	Image      internal.ImageTag
	Name       string
	ProjectDir string
	Env        internal.Environment
	// Network is optional; when set the container joins it with its own name as alias.
	Network string
	// ExtraBinds are appended after the workspace bind, in host:container[:ro] form.
	ExtraBinds []string
	Labels     map[string]string
}

// CleanupExisting stops and force-removes every container named exactly name,
// running or not. No match is not an error.
func (c Client) CleanupExisting(ctx context.Context, name string) error {
	result, err := c.client.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: make(client.Filters).Add("name", name),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w\nEnsure Docker is running", err)
	}

	exact := "/" + name
	for _, item := range result.Items {
		if !hasName(item.Names, exact) {
			continue
		}

		c.writer.Warn("removing existing container", "name", name, "id", item.ID)
		c.stop(ctx, item.ID)
		if _, err := c.client.ContainerRemove(ctx, item.ID, client.ContainerRemoveOptions{Force: true}); err != nil {
			return fmt.Errorf("failed to remove existing container %q: %w\nRemove it manually with: docker rm -f %s", name, err, name)
		}
	}

	return nil
}

// CleanupStale removes every container named prefix or prefix-<suffix>, which
// covers dev and service containers left behind by a session that never tore
// down. Removals run concurrently; failures are logged and not counted.
func (c Client) CleanupStale(ctx context.Context, prefix string) (int, error) {
	result, err := c.client.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: make(client.Filters).Add("name", prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list containers for stale detection: %w\nEnsure Docker is running", err)
	}

	var removed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(staleSweepLimit)

	for _, item := range result.Items {
		if !anyMatchesStalePrefix(item.Names, prefix) {
			continue
		}

		id, name := item.ID, firstName(item.Names)
		g.Go(func() error {
			c.writer.Warn("removing stale container from previous session", "name", name, "id", id)
			c.stop(gctx, id)
			if _, err := c.client.ContainerRemove(gctx, id, client.ContainerRemoveOptions{Force: true}); err != nil {
				c.writer.Warn("failed to remove stale container", "name", name, "id", id, "err", err)
				return nil
			}
			removed.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	return int(removed.Load()), nil
}

// CreateAndStart creates the dev container and starts it. The container runs
// "sleep infinity" as the host user's uid:gid so it stays up for exec sessions
// and files written to the workspace keep their ownership.
func (c Client) CreateAndStart(ctx context.Context, opts ContainerOptions) (string, error) {
	binds := append([]string{opts.ProjectDir + ":" + WorkspaceDir}, opts.ExtraBinds...)

	hostConfig := &container.HostConfig{
		Binds: binds,
	}

	var networking *network.NetworkingConfig
	if opts.Network != "" {
		hostConfig.NetworkMode = container.NetworkMode(opts.Network)
		networking = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				opts.Network: {Aliases: []string{opts.Name}},
			},
		}
	}

	response, err := c.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: &container.Config{
			Image:      string(opts.Image),
			Cmd:        []string{"sleep", "infinity"},
			User:       c.user(),
			WorkingDir: WorkspaceDir,
			Env:        []string(opts.Env),
			Labels:     opts.Labels,
		},
		HostConfig:       hostConfig,
		NetworkingConfig: networking,
		Name:             opts.Name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create container %q from image %q: %w\nEnsure image exists and container config is valid", opts.Name, opts.Image, err)
	}
	c.writer.Info("container created", "name", opts.Name, "id", response.ID)

	if _, err := c.client.ContainerStart(ctx, response.ID, client.ContainerStartOptions{}); err != nil {
		return response.ID, fmt.Errorf("failed to start container %q: %w\nContainer may be misconfigured or Docker daemon may be unhealthy", opts.Name, err)
	}
	c.writer.Info("container started", "id", response.ID)

	return response.ID, nil
}

// StopAndRemove stops the container with a grace timeout and force-removes it.
// A failed stop is ignored since the container may already be stopped; a failed
// remove is returned.
func (c Client) StopAndRemove(ctx context.Context, containerID string) error {
	c.writer.Debug("stopping container", "id", containerID)
	c.stop(ctx, containerID)

	if _, err := c.client.ContainerRemove(ctx, containerID, client.ContainerRemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %q: %w\nContainer may be in an inconsistent state", containerID, err)
	}
	c.writer.Debug("container removed", "id", containerID)

	return nil
}

func (c Client) stop(ctx context.Context, containerID string) {
	timeout := StopTimeout
	_, _ = c.client.ContainerStop(ctx, containerID, client.ContainerStopOptions{Timeout: &timeout})
}

func (c Client) user() string {
	return strconv.Itoa(c.uid) + ":" + strconv.Itoa(c.gid)
}

func hasName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func anyMatchesStalePrefix(names []string, prefix string) bool {
	for _, n := range names {
		if MatchesStalePrefix(n, prefix) {
			return true
		}
	}
	return false
}

func firstName(names []string) string {
	if len(names) == 0 {
		return "unknown"
	}
	return names[0]
}

func currentUID() int { return os.Getuid() }

func currentGID() int { return os.Getgid() }
