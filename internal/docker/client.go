package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/docker/cli/cli/streams"
	"github.com/moby/moby/client"
	"github.com/moby/term"

	"github.com/ryanmoran/bubble/internal"
)

// ErrEngineUnavailable is returned when the container engine cannot be reached.
var ErrEngineUnavailable = errors.New("container engine unavailable")

// StopTimeout is the grace period in seconds before a stopped container is killed.
const StopTimeout = internal.DefaultStopTimeout

// CommandFunc constructs the external command used for docker CLI invocations.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Client performs engine operations for a session. API calls go through the
// DockerClient; interactive and in-container executions shell out to the
// docker CLI so the user's terminal is attached directly.
type Client struct {
	client     DockerClient
	writer     internal.Writer
	binary     string
	command    CommandFunc
	sleep      func(time.Duration)
	isTerminal func() bool
	uid, gid   int
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

// Option customizes a Client.
type Option func(*Client)

// WithCommandFunc replaces exec.CommandContext for docker CLI invocations.
func WithCommandFunc(fn CommandFunc) Option {
	return func(c *Client) { c.command = fn }
}

// WithBinary sets the docker CLI executable.
func WithBinary(name string) Option {
	return func(c *Client) { c.binary = name }
}

// WithSleep replaces time.Sleep between readiness probes.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithTerminalCheck replaces the stdin terminal detection used to decide
// whether interactive executions allocate a TTY.
func WithTerminalCheck(fn func() bool) Option {
	return func(c *Client) { c.isTerminal = fn }
}

// WithUser sets the uid and gid the dev container runs as.
func WithUser(uid, gid int) Option {
	return func(c *Client) {
		c.uid = uid
		c.gid = gid
	}
}

// WithStdio sets the streams docker CLI executions inherit.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(c *Client) {
		c.stdin = stdin
		c.stdout = stdout
		c.stderr = stderr
	}
}

// NewClient creates a Client that wraps the provided Docker client interface.
func NewClient(dockerClient DockerClient, w internal.Writer, opts ...Option) Client {
	c := Client{
		client:     dockerClient,
		writer:     w,
		binary:     "docker",
		command:    exec.CommandContext,
		sleep:      time.Sleep,
		isTerminal: stdinIsTerminal,
		uid:        currentUID(),
		gid:        currentGID(),
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NewDefaultClient creates a Client with a real Docker client from the environment.
func NewDefaultClient(w internal.Writer, opts ...Option) (Client, error) {
	cli, err := client.New(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return Client{}, fmt.Errorf("failed to create docker client: %w\nEnsure Docker is running and DOCKER_HOST is set correctly", err)
	}

	return NewClient(cli, w, opts...), nil
}

// Close closes the underlying Docker client connection.
func (c Client) Close() {
	c.client.Close()
}

// Ping checks that the engine answers and returns its API version.
func (c Client) Ping(ctx context.Context) (string, error) {
	ping, err := c.client.Ping(ctx, client.PingOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: %w\nEnsure Docker is running and DOCKER_HOST is set correctly", ErrEngineUnavailable, err)
	}
	return ping.APIVersion, nil
}

func stdinIsTerminal() bool {
	stdin, _, _ := term.StdStreams()
	return streams.NewIn(stdin).IsTerminal()
}
