// Package hooks runs the user's post_start and pre_stop commands inside the
// dev container. Hooks are conveniences: a failing hook is reported and the
// remaining hooks still run.
package hooks

import (
	"context"
	"io"

	"github.com/ryanmoran/bubble/internal"
)

// Execer runs a command inside a container and reports its exit code.
type Execer interface {
	RunInContainer(ctx context.Context, containerID string, command internal.Command, stdin io.Reader) (int, error)
}

type Runner struct {
	execer      Execer
	containerID string
	hooks       internal.HookConfig
	writer      internal.Writer
}

func NewRunner(execer Execer, containerID string, hooks internal.HookConfig, w internal.Writer) Runner {
	return Runner{
		execer:      execer,
		containerID: containerID,
		hooks:       hooks,
		writer:      w,
	}
}

// RunPostStart runs the post_start hooks in declared order.
func (r Runner) RunPostStart(ctx context.Context) {
	r.run(ctx, "post_start", r.hooks.PostStart)
}

// RunPreStop runs the pre_stop hooks in declared order.
func (r Runner) RunPreStop(ctx context.Context) {
	r.run(ctx, "pre_stop", r.hooks.PreStop)
}

func (r Runner) run(ctx context.Context, phase string, commands []string) {
	if len(commands) == 0 {
		return
	}

	r.writer.Info("running hooks", "phase", phase)
	for _, cmd := range commands {
		r.writer.Debug("executing hook", "phase", phase, "cmd", cmd)

		code, err := r.execer.RunInContainer(ctx, r.containerID, internal.Command{"sh", "-c", cmd}, nil)
		switch {
		case err != nil:
			r.writer.Warn("hook execution error", "phase", phase, "cmd", cmd, "err", err)
		case code != 0:
			r.writer.Warn("hook failed", "phase", phase, "cmd", cmd, "code", code)
		default:
			r.writer.Info("hook completed", "phase", phase, "cmd", cmd)
		}
	}
}
