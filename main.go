package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ryanmoran/bubble/internal"
	"github.com/ryanmoran/bubble/internal/auth"
	"github.com/ryanmoran/bubble/internal/docker"
)

func main() {
	w := internal.NewStandardWriter()

	defer func() {
		if r := recover(); r != nil {
			w.Error("panic occurred", "panic", r)
			os.Exit(1)
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	os.Exit(run(context.Background(), os.Args[1:], environment{
		writer:    w,
		getenv:    os.Getenv,
		getwd:     os.Getwd,
		homeDir:   os.UserHomeDir,
		loadOpts:  internal.DefaultLoadOptions(),
		newEngine: newDockerEngine,
		auth:      auth.NewResolver(w),
		signals:   signals,
		exit:      os.Exit,
	}))
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, env environment) int {
	a := &app{env: env}

	cmd := a.rootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(env.writer.GetWriter())

	if err := cmd.ExecuteContext(ctx); err != nil {
		var sigErr signalError
		if errors.As(err, &sigErr) {
			env.writer.Warn("interrupted", "signal", sigErr.signal)
			return internal.ExitCodeForSignal(sigErr.signal)
		}
		env.writer.Error(err.Error())
		return 1
	}
	return a.code
}

func newDockerEngine(w internal.Writer) (engine, error) {
	client, err := docker.NewDefaultClient(w)
	if err != nil {
		return nil, err
	}
	return client, nil
}
