package docker_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/moby/moby/api/types/image"
	"github.com/moby/moby/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanmoran/bubble/internal"
	"github.com/ryanmoran/bubble/internal/docker"
)

func buildBody(lines ...string) client.ImageBuildResult {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line + "\n")
	}
	return client.ImageBuildResult{Body: io.NopCloser(&buf)}
}

func TestComputeTag(t *testing.T) {
	t.Run("is deterministic for equal text", func(t *testing.T) {
		assert.Equal(t, docker.ComputeTag("FROM alpine\n"), docker.ComputeTag("FROM alpine\n"))
	})

	t.Run("changes with any byte of the text", func(t *testing.T) {
		assert.NotEqual(t, docker.ComputeTag("FROM alpine\n"), docker.ComputeTag("FROM alpine \n"))
	})

	t.Run("uses the bubble repository and 12 hex characters", func(t *testing.T) {
		tag := string(docker.ComputeTag("FROM alpine\n"))
		assert.Regexp(t, regexp.MustCompile(`^bubble:[0-9a-f]{12}$`), tag)
	})

	t.Run("matches the sha256 prefix of the text", func(t *testing.T) {
		// sha256("") = e3b0c44298fc1c149afbf4c8996fb924...
		assert.Equal(t, internal.ImageTag("bubble:e3b0c44298fc"), docker.ComputeTag(""))
	})
}

func TestImageExists(t *testing.T) {
	t.Run("requires an exact tag match", func(t *testing.T) {
		tag := docker.ComputeTag("FROM alpine\n")
		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				return client.ImageListResult{Items: []image.Summary{
					{ID: "sha256:1", RepoTags: []string{string(tag) + "-other"}},
				}}, nil
			},
		}

		exists, err := docker.NewClient(mock, newMockWriter()).ImageExists(context.Background(), tag)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("finds a matching tag", func(t *testing.T) {
		tag := docker.ComputeTag("FROM alpine\n")
		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				return client.ImageListResult{Items: []image.Summary{
					{ID: "sha256:1", RepoTags: []string{"other:latest", string(tag)}},
				}}, nil
			},
		}

		exists, err := docker.NewClient(mock, newMockWriter()).ImageExists(context.Background(), tag)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("fails when the engine cannot list images", func(t *testing.T) {
		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				return client.ImageListResult{}, errors.New("connection refused")
			},
		}

		_, err := docker.NewClient(mock, newMockWriter()).ImageExists(context.Background(), "bubble:000000000000")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list images")
	})
}

func TestBuildImage(t *testing.T) {
	const dockerfile = "FROM alpine:latest\n"
	tag := docker.ComputeTag(dockerfile)

	cached := func() client.ImageListResult {
		return client.ImageListResult{Items: []image.Summary{{ID: "sha256:1", RepoTags: []string{string(tag)}}}}
	}

	t.Run("returns a cache hit without building", func(t *testing.T) {
		built := false
		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				return cached(), nil
			},
			imageBuildFunc: func(ctx context.Context, buildContext io.Reader, options client.ImageBuildOptions) (client.ImageBuildResult, error) {
				built = true
				return buildBody(), nil
			},
		}

		result, err := docker.NewClient(mock, newMockWriter()).BuildImage(context.Background(), dockerfile, nil, false)
		require.NoError(t, err)
		assert.Equal(t, docker.BuildResult{Tag: tag, Cached: true}, result)
		assert.False(t, built)
	})

	t.Run("always builds when forced", func(t *testing.T) {
		listed, built := false, false
		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				listed = true
				return cached(), nil
			},
			imageBuildFunc: func(ctx context.Context, buildContext io.Reader, options client.ImageBuildOptions) (client.ImageBuildResult, error) {
				built = true
				return buildBody(`{"stream":"done\n"}`), nil
			},
		}

		result, err := docker.NewClient(mock, newMockWriter()).BuildImage(context.Background(), dockerfile, nil, true)
		require.NoError(t, err)
		assert.Equal(t, docker.BuildResult{Tag: tag, Cached: false}, result)
		assert.True(t, built)
		assert.False(t, listed)
	})

	t.Run("sends the Dockerfile and context files in a tar", func(t *testing.T) {
		type entry struct {
			name    string
			mode    int64
			content string
		}
		var entries []entry
		var captured client.ImageBuildOptions

		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				return client.ImageListResult{}, nil
			},
			imageBuildFunc: func(ctx context.Context, buildContext io.Reader, options client.ImageBuildOptions) (client.ImageBuildResult, error) {
				captured = options
				tr := tar.NewReader(buildContext)
				for {
					header, err := tr.Next()
					if err == io.EOF {
						break
					}
					require.NoError(t, err)
					content, err := io.ReadAll(tr)
					require.NoError(t, err)
					entries = append(entries, entry{header.Name, header.Mode, string(content)})
				}
				return buildBody(`{"stream":"Step 1/1 : FROM alpine:latest\n"}`), nil
			},
		}

		writer := newMockWriter()
		files := []docker.ContextFile{
			{Path: "scripts/install.sh", Content: []byte("#!/bin/sh\n"), Mode: 0o755},
			{Path: "motd", Content: []byte("hello"), Mode: 0o644},
		}

		_, err := docker.NewClient(mock, writer).BuildImage(context.Background(), dockerfile, files, false)
		require.NoError(t, err)

		require.Len(t, entries, 3)
		assert.Equal(t, entry{"Dockerfile", 0o644, dockerfile}, entries[0])
		assert.Equal(t, entry{"scripts/install.sh", 0o755, "#!/bin/sh\n"}, entries[1])
		assert.Equal(t, entry{"motd", 0o644, "hello"}, entries[2])

		assert.Equal(t, []string{string(tag)}, captured.Tags)
		assert.True(t, captured.Remove)
		assert.True(t, captured.ForceRemove)
		assert.Contains(t, writer.String(), "Step 1/1")
	})

	t.Run("rejects context paths outside the context root", func(t *testing.T) {
		for _, p := range []string{"", "/etc/passwd", "../secret", "a/../../b", "."} {
			mock := &mockDockerClient{
				imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
					return client.ImageListResult{}, nil
				},
			}

			_, err := docker.NewClient(mock, newMockWriter()).BuildImage(context.Background(), dockerfile, []docker.ContextFile{{Path: p}}, false)
			require.ErrorIs(t, err, docker.ErrInvalidContextPath, "path %q", p)
		}
	})

	t.Run("surfaces the engine error message verbatim", func(t *testing.T) {
		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				return client.ImageListResult{}, nil
			},
			imageBuildFunc: func(ctx context.Context, buildContext io.Reader, options client.ImageBuildOptions) (client.ImageBuildResult, error) {
				return buildBody(
					`{"stream":"Step 1/2\n"}`,
					`{"error":"RUN false: exit code 1","errorDetail":{"message":"RUN false: exit code 1"}}`,
				), nil
			},
		}

		_, err := docker.NewClient(mock, newMockWriter()).BuildImage(context.Background(), dockerfile, nil, false)
		require.ErrorIs(t, err, docker.ErrBuildFailed)
		assert.Contains(t, err.Error(), "RUN false: exit code 1")
	})

	t.Run("fails on malformed build output", func(t *testing.T) {
		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				return client.ImageListResult{}, nil
			},
			imageBuildFunc: func(ctx context.Context, buildContext io.Reader, options client.ImageBuildOptions) (client.ImageBuildResult, error) {
				return buildBody(`{"stream":`), nil
			},
		}

		_, err := docker.NewClient(mock, newMockWriter()).BuildImage(context.Background(), dockerfile, nil, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode build output")
	})

	t.Run("fails when the build request fails", func(t *testing.T) {
		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				return client.ImageListResult{}, nil
			},
			imageBuildFunc: func(ctx context.Context, buildContext io.Reader, options client.ImageBuildOptions) (client.ImageBuildResult, error) {
				return client.ImageBuildResult{}, errors.New("daemon gone")
			},
		}

		_, err := docker.NewClient(mock, newMockWriter()).BuildImage(context.Background(), dockerfile, nil, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to build image")
	})
}

func TestRemoveImages(t *testing.T) {
	t.Run("removes only bubble images and skips failures", func(t *testing.T) {
		var removed []string
		mock := &mockDockerClient{
			imageListFunc: func(ctx context.Context, options client.ImageListOptions) (client.ImageListResult, error) {
				return client.ImageListResult{Items: []image.Summary{
					{ID: "a", RepoTags: []string{"bubble:aaaaaaaaaaaa"}},
					{ID: "b", RepoTags: []string{"bubblegum:latest"}},
					{ID: "c", RepoTags: []string{"bubble:cccccccccccc"}},
				}}, nil
			},
			imageRemoveFunc: func(ctx context.Context, imageID string, options client.ImageRemoveOptions) (client.ImageRemoveResult, error) {
				if imageID == "c" {
					return client.ImageRemoveResult{}, errors.New("in use")
				}
				removed = append(removed, imageID)
				return client.ImageRemoveResult{}, nil
			},
		}

		writer := newMockWriter()
		count, err := docker.NewClient(mock, writer).RemoveImages(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, []string{"a"}, removed)
		assert.Contains(t, writer.String(), "failed to remove image")
	})
}
