package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/moby/moby/client"
)

// EnsureNetwork returns the name of a bridge network called exactly name,
// creating it with the given labels when none exists. The engine's name filter
// matches substrings, so the listed networks are narrowed to an exact match
// before deciding.
func (c Client) EnsureNetwork(ctx context.Context, name string, labels map[string]string) (string, error) {
	result, err := c.client.NetworkList(ctx, client.NetworkListOptions{
		Filters: make(client.Filters).Add("name", name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list networks: %w\nEnsure Docker is running", err)
	}

	for _, n := range result.Items {
		if n.Name == name {
			c.writer.Debug("reusing network", "name", name, "id", n.ID)
			return name, nil
		}
	}

	created, err := c.client.NetworkCreate(ctx, name, client.NetworkCreateOptions{
		Driver: "bridge",
		Labels: labels,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create network %q: %w\nA network with a conflicting name or subnet may exist", name, err)
	}
	c.writer.Debug("created network", "name", name, "id", created.ID)

	return name, nil
}

// RemoveNetwork removes the network. Failures, for example endpoints that are
// still attached, are logged and never returned.
func (c Client) RemoveNetwork(ctx context.Context, name string) {
	if _, err := c.client.NetworkRemove(ctx, name, client.NetworkRemoveOptions{}); err != nil {
		c.writer.Warn("failed to remove network", "name", name, "err", err)
	}
}

// CleanupStaleNetworks removes every network named prefix or prefix-<suffix>
// and returns how many were removed.
func (c Client) CleanupStaleNetworks(ctx context.Context, prefix string) (int, error) {
	result, err := c.client.NetworkList(ctx, client.NetworkListOptions{
		Filters: make(client.Filters).Add("name", prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list networks: %w\nEnsure Docker is running", err)
	}

	removed := 0
	for _, n := range result.Items {
		if !matchesPrefix(n.Name, prefix) {
			continue
		}
		if _, err := c.client.NetworkRemove(ctx, n.ID, client.NetworkRemoveOptions{}); err != nil {
			c.writer.Warn("failed to remove stale network", "name", n.Name, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func matchesPrefix(name, prefix string) bool {
	return name == prefix || strings.HasPrefix(name, prefix+"-")
}

// MatchesStalePrefix reports whether an engine container name, which carries a
// leading slash, belongs to prefix: it equals "/prefix" or starts with
// "/prefix-". A bare prefix match such as "/foobar" for "foo" does not count.
func MatchesStalePrefix(name, prefix string) bool {
	return matchesPrefix(name, "/"+prefix)
}
