package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ryanmoran/bubble/internal"
	"github.com/ryanmoran/bubble/internal/docker"
	"github.com/ryanmoran/bubble/internal/dockerfile"
	"github.com/ryanmoran/bubble/internal/lifecycle"
	"github.com/ryanmoran/bubble/internal/services"
)

// engine is what the commands need from the container engine. docker.Client
// implements it.
type engine interface {
	lifecycle.Engine
	Ping(ctx context.Context) (string, error)
	Clean(ctx context.Context, prefix string, volumes bool) (docker.CleanReport, error)
	Close()
}

// tokenSource resolves the Claude Code credentials forwarded into the container.
type tokenSource interface {
	ResolveToken(ctx context.Context) string
	ClaudeConfig() (string, error)
}

// environment is the process state the commands read. Tests substitute every
// field.
type environment struct {
	writer    *internal.StandardWriter
	getenv    func(string) string
	getwd     func() (string, error)
	homeDir   func() (string, error)
	loadOpts  internal.LoadOptions
	newEngine func(internal.Writer) (engine, error)
	auth      tokenSource
	signals   <-chan os.Signal
	exit      func(int)
}

type app struct {
	env     environment
	flags   internal.Flags
	verbose bool
	code    int
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bubble",
		Short:         "Ephemeral Docker dev containers",
		Long:          "bubble runs a project inside a throwaway dev container with the runtimes and backing services it needs.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.env.writer.SetLevel(a.env.getenv("BUBBLE_LOG_LEVEL"))
			if a.verbose {
				a.env.writer.SetLevel("debug")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd.Context(), internal.ModeShell, nil, false)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.PHP, "with-php", "", "include the PHP runtime (8.1, 8.2, 8.3)")
	flags.StringVar(&a.flags.Node, "with-node", "", "include the Node.js runtime (18, 20, 22)")
	flags.BoolVar(&a.flags.Rust, "with-rust", false, "include the Rust toolchain")
	flags.StringVar(&a.flags.Go, "with-go", "", "include the Go runtime (1.22, 1.23)")
	flags.StringVar(&a.flags.MySQL, "with-mysql", "", "start a MySQL service container")
	flags.Lookup("with-mysql").NoOptDefVal = services.DefaultMySQLVersion
	flags.BoolVar(&a.flags.Redis, "with-redis", false, "start a Redis service container")
	flags.StringVar(&a.flags.Postgres, "with-postgres", "", "start a PostgreSQL service container")
	flags.Lookup("with-postgres").NoOptDefVal = services.DefaultPostgresVersion
	flags.StringVar(&a.flags.Network, "network", "", "network name")
	flags.StringVar(&a.flags.Name, "name", "", "dev container name")
	flags.StringVar(&a.flags.Shell, "shell", "", "shell to open inside the container")
	flags.BoolVar(&a.flags.NoCache, "no-cache", false, "rebuild the image even when it is cached")
	flags.BoolVar(&a.flags.DryRun, "dry-run", false, "print what would run without touching Docker")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug events")

	root.AddCommand(
		a.shellCommand(),
		a.claudeCommand(),
		a.chiefCommand(),
		a.execCommand(),
		a.buildCommand(),
		a.configCommand(),
		a.cleanCommand(),
	)

	return root
}

func (a *app) shellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive shell in the container (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd.Context(), internal.ModeShell, nil, false)
		},
	}
}

func (a *app) claudeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claude [-- args...]",
		Short: "Run Claude Code inside the container",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd.Context(), internal.ModeInteractiveCommand, withArgs(lifecycle.ClaudeCommand, args), false)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) chiefCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chief [-- args...]",
		Short: "Run Chief inside the container",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd.Context(), internal.ModeInteractiveCommand, withArgs(lifecycle.ChiefCommand, args), true)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) execCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec -- command [args...]",
		Short: "Run a command inside the container and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd.Context(), internal.ModeCommand, internal.Command(args), false)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) buildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the container image without starting a container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.interruptible(cmd.Context())
			defer stop()

			plan, err := a.plan(ctx, internal.ModeShell, nil, false)
			if err != nil {
				return interrupted(ctx, err)
			}

			if a.flags.DryRun {
				a.env.writer.Print(plan.Dockerfile.Dockerfile)
				return nil
			}

			e, err := a.connect(ctx)
			if err != nil {
				return interrupted(ctx, err)
			}
			defer e.Close()

			result, err := lifecycle.NewRunner(e, nil, nil, a.env.writer).Build(ctx, plan)
			if err != nil {
				return interrupted(ctx, err)
			}
			a.env.writer.Println(result.Tag)
			return nil
		},
	}
}

func (a *app) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			out, err := cfg.TOML()
			if err != nil {
				return err
			}
			a.env.writer.Print(string(out))
			return nil
		},
	}
}

func (a *app) cleanCommand() *cobra.Command {
	var volumes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove bubble images, stale containers and networks, and optionally volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := a.workspace()
			if err != nil {
				return err
			}

			if a.flags.DryRun {
				a.env.writer.Printf("Would remove bubble images and resources named %s\n", session.Prefix())
				return nil
			}

			ctx, stop := a.interruptible(cmd.Context())
			defer stop()

			e, err := a.connect(ctx)
			if err != nil {
				return interrupted(ctx, err)
			}
			defer e.Close()

			report, err := e.Clean(ctx, session.Prefix(), volumes)
			if err != nil {
				return interrupted(ctx, err)
			}
			a.env.writer.Printf("Removed %d containers, %d networks, %d volumes, %d images\n",
				report.Containers, report.Networks, report.Volumes, report.Images)
			return nil
		},
	}
	cmd.Flags().BoolVar(&volumes, "volumes", false, "also remove service data volumes")
	return cmd
}

// session runs one dev container session and records its exit code. Until
// the session starts, a signal cancels the preparation; from then on the
// lifecycle runner owns the signal channel and tears the session down.
func (a *app) session(ctx context.Context, mode internal.Mode, command internal.Command, chief bool) error {
	prepCtx, stop := a.interruptible(ctx)
	defer stop()

	plan, err := a.plan(prepCtx, mode, command, chief)
	if err != nil {
		return interrupted(prepCtx, err)
	}
	// token resolution gives up quietly on cancellation
	if err := interrupted(prepCtx, nil); err != nil {
		return err
	}

	if a.flags.DryRun {
		lifecycle.NewRunner(nil, nil, nil, a.env.writer).DryRun(plan)
		return nil
	}

	e, err := a.connect(prepCtx)
	if err != nil {
		return interrupted(prepCtx, err)
	}
	defer e.Close()

	stop()
	if err := interrupted(prepCtx, nil); err != nil {
		return err
	}

	code, err := lifecycle.NewRunner(e, a.env.signals, a.env.exit, a.env.writer).Run(ctx, plan)
	if err != nil {
		return err
	}
	a.code = code
	return nil
}

func (a *app) plan(ctx context.Context, mode internal.Mode, command internal.Command, chief bool) (lifecycle.Plan, error) {
	cfg, err := a.config()
	if err != nil {
		return lifecycle.Plan{}, err
	}

	session, workdir, err := a.workspace()
	if err != nil {
		return lifecycle.Plan{}, err
	}

	home, err := a.env.homeDir()
	if err != nil {
		a.env.writer.Warn("failed to find home directory, dotfiles will not be mounted", "err", err)
	}

	renderer, err := dockerfile.NewRenderer()
	if err != nil {
		return lifecycle.Plan{}, err
	}

	in := lifecycle.PlanInput{
		Config:     cfg,
		Session:    session,
		ProjectDir: workdir,
		HomeDir:    home,
		Getenv:     a.env.getenv,
		Mode:       mode,
		Command:    command,
		Chief:      chief,
		NoCache:    a.flags.NoCache,
	}
	if !a.flags.DryRun {
		in.Token = a.env.auth.ResolveToken(ctx)
		in.ClaudeConfig, err = a.env.auth.ClaudeConfig()
		if err != nil {
			return lifecycle.Plan{}, err
		}
	}

	return lifecycle.NewPlan(renderer, in, a.env.writer)
}

func (a *app) config() (internal.Config, error) {
	cfg, err := internal.LoadConfig(a.env.loadOpts)
	if err != nil {
		return internal.Config{}, err
	}
	cfg.ApplyFlags(a.flags)
	return cfg, cfg.Validate()
}

// workspace returns the session for the working directory, which is also the
// project directory mounted into the dev container.
func (a *app) workspace() (internal.Session, string, error) {
	workdir, err := a.env.getwd()
	if err != nil {
		return internal.Session{}, "", fmt.Errorf("failed to get current working directory: %w\nThis is a system error - check file system permissions", err)
	}
	return internal.NewSession(filepath.Base(workdir)), workdir, nil
}

// connect creates the engine handle and checks that the engine answers.
func (a *app) connect(ctx context.Context) (engine, error) {
	e, err := a.env.newEngine(a.env.writer)
	if err != nil {
		return nil, err
	}

	version, err := e.Ping(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}
	a.env.writer.Debug("connected to docker", "api_version", version)
	return e, nil
}

func withArgs(base internal.Command, args []string) internal.Command {
	command := make(internal.Command, 0, len(base)+len(args))
	command = append(command, base...)
	return append(command, args...)
}
