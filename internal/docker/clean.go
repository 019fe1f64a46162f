package docker

import (
	"context"
	"fmt"

	"github.com/moby/moby/client"
)

// CleanReport counts the resources removed by Clean.
type CleanReport struct {
	Containers int
	Networks   int
	Volumes    int
	Images     int
}

// Clean reclaims everything a project's sessions may have left behind:
// containers and networks named after prefix, every bubble image, and, when
// volumes is set, the project's service data volumes. Containers go first since
// they hold references to the other resources.
func (c Client) Clean(ctx context.Context, prefix string, volumes bool) (CleanReport, error) {
	var (
		report CleanReport
		err    error
	)

	report.Containers, err = c.CleanupStale(ctx, prefix)
	if err != nil {
		return report, err
	}

	report.Networks, err = c.CleanupStaleNetworks(ctx, prefix)
	if err != nil {
		return report, err
	}

	if volumes {
		report.Volumes, err = c.RemoveVolumes(ctx, prefix)
		if err != nil {
			return report, err
		}
	}

	report.Images, err = c.RemoveImages(ctx)
	if err != nil {
		return report, err
	}

	return report, nil
}

// RemoveVolumes removes the volumes named prefix or prefix-<suffix> and returns
// how many were removed.
func (c Client) RemoveVolumes(ctx context.Context, prefix string) (int, error) {
	result, err := c.client.VolumeList(ctx, client.VolumeListOptions{
		Filters: make(client.Filters).Add("name", prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list volumes: %w\nEnsure Docker is running", err)
	}

	removed := 0
	for _, v := range result.Items {
		if !matchesPrefix(v.Name, prefix) {
			continue
		}
		if _, err := c.client.VolumeRemove(ctx, v.Name, client.VolumeRemoveOptions{}); err != nil {
			c.writer.Warn("failed to remove volume", "name", v.Name, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}
