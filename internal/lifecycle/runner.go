// Package lifecycle drives one dev container session: it builds the image,
// provisions the network and services, runs the session inside the dev
// container and tears every created resource down exactly once, whether the
// session ends normally, fails, or is interrupted by a signal.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ryanmoran/bubble/internal"
	"github.com/ryanmoran/bubble/internal/docker"
	"github.com/ryanmoran/bubble/internal/hooks"
	"github.com/ryanmoran/bubble/internal/services"
)

// Engine is the set of container engine operations a session needs.
// docker.Client implements it.
type Engine interface {
	internal.Teardowner
	hooks.Execer

	BuildImage(ctx context.Context, dockerfile string, files []docker.ContextFile, force bool) (docker.BuildResult, error)
	EnsureNetwork(ctx context.Context, name string, labels map[string]string) (string, error)
	StartService(ctx context.Context, svc services.Descriptor, network string, labels map[string]string) (string, error)
	WaitForReady(ctx context.Context, containerID string, svc services.Descriptor, maxAttempts int, interval time.Duration) error
	CleanupExisting(ctx context.Context, name string) error
	CreateAndStart(ctx context.Context, opts docker.ContainerOptions) (string, error)
	WriteCredentials(ctx context.Context, containerID, secret string) error
	ExecInteractiveShell(ctx context.Context, containerID, shell string) (int, error)
	ExecInteractiveCommand(ctx context.Context, containerID string, command internal.Command) (int, error)
	ExecCommand(ctx context.Context, containerID string, command internal.Command) (int, error)
}

const claudeConfigScript = `cat > "${HOME}/.claude.json"`

type Runner struct {
	engine  Engine
	signals <-chan os.Signal
	exit    func(int)
	writer  internal.Writer
}

// NewRunner creates a Runner. A termination signal received on signals during
// Run tears the session down and then calls exit with 128 plus the signal
// number.
func NewRunner(engine Engine, signals <-chan os.Signal, exit func(int), w internal.Writer) Runner {
	return Runner{
		engine:  engine,
		signals: signals,
		exit:    exit,
		writer:  w,
	}
}

// Build builds the session image, or reuses it when cached.
func (r Runner) Build(ctx context.Context, plan Plan) (docker.BuildResult, error) {
	result, err := r.engine.BuildImage(ctx, plan.Dockerfile.Dockerfile, plan.Dockerfile.ContextFiles, plan.ForceRebuild)
	if err != nil {
		return docker.BuildResult{}, err
	}
	r.writer.Info("image ready", "tag", result.Tag, "cached", result.Cached)
	return result, nil
}

// DryRun describes the plan without touching the engine.
func (r Runner) DryRun(plan Plan) {
	plan.Describe(r.writer)
}

// Run executes the session and returns the exit code of the process run in
// the dev container. On error every resource created so far is removed and the
// error is returned.
func (r Runner) Run(ctx context.Context, plan Plan) (int, error) {
	registry := internal.NewCleanupRegistry(r.engine, "", r.writer)
	stop := registry.Watch(r.signals, r.exit)

	code, err := r.run(ctx, plan, registry)

	stop()
	registry.Teardown(context.WithoutCancel(ctx))

	if err != nil {
		return 1, err
	}
	return code, nil
}

func (r Runner) run(ctx context.Context, plan Plan, registry *internal.CleanupRegistry) (int, error) {
	image, err := r.Build(ctx, plan)
	if err != nil {
		return 1, err
	}

	network, err := r.engine.EnsureNetwork(ctx, plan.NetworkName, plan.Labels)
	if err != nil {
		return 1, err
	}
	if err := registry.RegisterNetwork(network); err != nil {
		r.engine.RemoveNetwork(context.WithoutCancel(ctx), network)
		return 1, err
	}

	for _, svc := range plan.Services {
		id, err := r.engine.StartService(ctx, svc, network, plan.Labels)
		if id != "" {
			if regErr := r.register(ctx, id, registry.RegisterService); regErr != nil {
				return 1, regErr
			}
		}
		if err != nil {
			return 1, err
		}

		if err := r.engine.WaitForReady(ctx, id, svc, plan.ReadyAttempts, plan.ReadyInterval); err != nil {
			return 1, err
		}
	}

	if err := r.engine.CleanupExisting(ctx, plan.ContainerName); err != nil {
		return 1, err
	}

	id, err := r.engine.CreateAndStart(ctx, docker.ContainerOptions{
		Image:      image.Tag,
		Name:       plan.ContainerName,
		ProjectDir: plan.ProjectDir,
		Env:        plan.Env,
		Network:    network,
		ExtraBinds: plan.Binds,
		Labels:     plan.Labels,
	})
	if id != "" {
		if regErr := r.register(ctx, id, registry.RegisterDevContainer); regErr != nil {
			return 1, regErr
		}
	}
	if err != nil {
		return 1, err
	}

	if plan.Credentials != "" {
		if err := r.engine.WriteCredentials(ctx, id, plan.Credentials); err != nil {
			return 1, err
		}
	}
	if plan.ClaudeConfig != "" {
		r.writeClaudeConfig(ctx, id, plan.ClaudeConfig)
	}

	hookRunner := hooks.NewRunner(r.engine, id, plan.Hooks, r.writer)
	hookRunner.RunPostStart(ctx)

	code, err := r.exec(ctx, id, plan)
	if err != nil {
		return 1, err
	}

	hookRunner.RunPreStop(ctx)

	return code, nil
}

// register records a container in the registry. When teardown already began,
// the container is removed right away since nothing else will remove it.
func (r Runner) register(ctx context.Context, id string, register func(string) error) error {
	err := register(id)
	if err == nil {
		return nil
	}

	if errors.Is(err, internal.ErrRegistryClosed) {
		if rmErr := r.engine.StopAndRemove(context.WithoutCancel(ctx), id); rmErr != nil {
			r.writer.Warn("failed to remove container created during teardown", "id", id, "err", rmErr)
		}
	}
	return fmt.Errorf("session interrupted: %w", err)
}

func (r Runner) exec(ctx context.Context, id string, plan Plan) (int, error) {
	switch plan.Mode {
	case internal.ModeShell:
		return r.engine.ExecInteractiveShell(ctx, id, plan.Shell)
	case internal.ModeInteractiveCommand:
		return r.engine.ExecInteractiveCommand(ctx, id, plan.Command)
	case internal.ModeCommand:
		return r.engine.ExecCommand(ctx, id, plan.Command)
	default:
		return 1, fmt.Errorf("unknown session mode %d", plan.Mode)
	}
}

func (r Runner) writeClaudeConfig(ctx context.Context, id, config string) {
	var stdin io.Reader = strings.NewReader(config)
	code, err := r.engine.RunInContainer(ctx, id, internal.Command{"sh", "-c", claudeConfigScript}, stdin)
	if err != nil || code != 0 {
		r.writer.Warn("failed to write Claude config", "code", code, "err", err)
	}
}
