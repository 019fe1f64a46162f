package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/moby/moby/client"

	"github.com/ryanmoran/bubble/internal"
)

var (
	// ErrBuildFailed is returned when the engine reports an error while building.
	ErrBuildFailed = errors.New("image build failed")

	// ErrInvalidContextPath is returned for build context files whose path is
	// empty, absolute, or escapes the context root.
	ErrInvalidContextPath = errors.New("invalid build context path")
)

// ImageRepository is the repository every built image is tagged into.
const ImageRepository = internal.NamePrefix

// ContextFile is an extra file placed in the build context next to the Dockerfile.
type ContextFile struct {
	Path    string
	Content []byte
	Mode    int64
}

// BuildResult reports the tag of the image and whether an existing image was reused.
type BuildResult struct {
	Tag    internal.ImageTag
	Cached bool
}

// ComputeTag derives the image tag from the Dockerfile text: the repository
// followed by the first 12 hex characters of its SHA-256 digest. Equal text
// always yields an equal tag.
func ComputeTag(dockerfile string) internal.ImageTag {
	sum := sha256.Sum256([]byte(dockerfile))
	return internal.ImageTag(ImageRepository + ":" + hex.EncodeToString(sum[:])[:12])
}

// ImageExists reports whether an image carrying exactly the given tag is present.
func (c Client) ImageExists(ctx context.Context, tag internal.ImageTag) (bool, error) {
	result, err := c.client.ImageList(ctx, client.ImageListOptions{
		Filters: make(client.Filters).Add("reference", string(tag)),
	})
	if err != nil {
		return false, fmt.Errorf("failed to list images for %q: %w\nEnsure Docker is running", tag, err)
	}

	for _, img := range result.Items {
		for _, repoTag := range img.RepoTags {
			if repoTag == string(tag) {
				return true, nil
			}
		}
	}
	return false, nil
}

// BuildImage builds the Dockerfile unless an image with its content tag already
// exists. With force set the cache check is skipped and the image is always
// rebuilt. Build output lines are written to the Writer as they stream in.
func (c Client) BuildImage(ctx context.Context, dockerfile string, files []ContextFile, force bool) (BuildResult, error) {
	tag := ComputeTag(dockerfile)

	if !force {
		exists, err := c.ImageExists(ctx, tag)
		if err != nil {
			return BuildResult{}, err
		}
		if exists {
			c.writer.Debug("using cached image", "tag", tag)
			return BuildResult{Tag: tag, Cached: true}, nil
		}
	}

	buildContext, err := createBuildContext(dockerfile, files)
	if err != nil {
		return BuildResult{}, err
	}

	c.writer.Info("building image", "tag", tag)
	response, err := c.client.ImageBuild(ctx, buildContext, client.ImageBuildOptions{
		Dockerfile:  "Dockerfile",
		Tags:        []string{string(tag)},
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to build image %q: %w\nCheck Docker daemon logs for details", tag, err)
	}
	defer response.Body.Close()

	if err := c.streamBuildOutput(ctx, response.Body); err != nil {
		return BuildResult{}, err
	}

	return BuildResult{Tag: tag}, nil
}

type buildMessage struct {
	Stream      string `json:"stream"`
	Error       string `json:"error"`
	ErrorDetail *struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
}

func (c Client) streamBuildOutput(ctx context.Context, body io.Reader) error {
	decoder := json.NewDecoder(body)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var msg buildMessage
		err := decoder.Decode(&msg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode build output: %w\nDocker may have returned malformed JSON", err)
		}

		if msg.ErrorDetail != nil && msg.ErrorDetail.Message != "" {
			return fmt.Errorf("%w: %s", ErrBuildFailed, msg.ErrorDetail.Message)
		}
		if msg.Error != "" {
			return fmt.Errorf("%w: %s", ErrBuildFailed, msg.Error)
		}

		if msg.Stream != "" {
			c.writer.Print(msg.Stream)
		}
	}
}

// createBuildContext returns an uncompressed tar holding the Dockerfile at the
// root followed by the context files in the given order.
func createBuildContext(dockerfile string, files []ContextFile) (io.Reader, error) {
	for _, f := range files {
		if err := validateContextPath(f.Path); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	write := func(name string, content []byte, mode int64) error {
		header := &tar.Header{
			Name: name,
			Mode: mode,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w\nThis is a system error with tar archive creation", name, err)
		}
		if _, err := tw.Write(content); err != nil {
			return fmt.Errorf("failed to write %s to tar archive: %w\nThis is a system error with tar archive creation", name, err)
		}
		return nil
	}

	if err := write("Dockerfile", []byte(dockerfile), 0o644); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := write(path.Clean(f.Path), f.Content, f.Mode); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize build context: %w", err)
	}
	return &buf, nil
}

func validateContextPath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidContextPath)
	}
	if path.IsAbs(p) || strings.HasPrefix(p, `\`) {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidContextPath, p)
	}
	cleaned := path.Clean(strings.ReplaceAll(p, `\`, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: %q escapes the build context", ErrInvalidContextPath, p)
	}
	return nil
}

// RemoveImages removes every image in the bubble repository and returns how
// many were removed. Failures are logged and skipped.
func (c Client) RemoveImages(ctx context.Context) (int, error) {
	result, err := c.client.ImageList(ctx, client.ImageListOptions{
		Filters: make(client.Filters).Add("reference", ImageRepository+":*"),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list images: %w\nEnsure Docker is running", err)
	}

	removed := 0
	for _, img := range result.Items {
		if !hasRepository(img.RepoTags, ImageRepository) {
			continue
		}
		if _, err := c.client.ImageRemove(ctx, img.ID, client.ImageRemoveOptions{Force: true, PruneChildren: true}); err != nil {
			c.writer.Warn("failed to remove image", "id", img.ID, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func hasRepository(repoTags []string, repository string) bool {
	for _, t := range repoTags {
		if strings.HasPrefix(t, repository+":") {
			return true
		}
	}
	return false
}
