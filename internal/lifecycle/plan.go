package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/ryanmoran/bubble/internal"
	"github.com/ryanmoran/bubble/internal/auth"
	"github.com/ryanmoran/bubble/internal/docker"
	"github.com/ryanmoran/bubble/internal/dockerfile"
	"github.com/ryanmoran/bubble/internal/services"
	"github.com/ryanmoran/bubble/internal/shell"
)

// ClaudeCommand starts Claude Code without permission prompts; the container is
// the sandbox.
var ClaudeCommand = internal.Command{"claude", "--permission-mode", "bypassPermissions"}

// ChiefCommand starts Chief.
var ChiefCommand = internal.Command{"chief"}

// Plan is everything a session needs, resolved before the engine is touched.
type Plan struct {
	Project       string
	ContainerName string
	NetworkName   string
	ProjectDir    string
	Labels        map[string]string

	Dockerfile   dockerfile.Result
	ForceRebuild bool

	Services      []services.Descriptor
	ReadyAttempts int
	ReadyInterval time.Duration

	Env   internal.Environment
	Binds []string
	Hooks internal.HookConfig

	Mode    internal.Mode
	Shell   string
	Command internal.Command

	// Credentials is the credentials document; empty skips writing it.
	Credentials string
	// ClaudeConfig is written to ~/.claude.json when non-empty.
	ClaudeConfig string
}

// PlanInput carries the resolved configuration and host facts a Plan is built from.
type PlanInput struct {
	Config     internal.Config
	Session    internal.Session
	ProjectDir string
	HomeDir    string
	Getenv     func(string) string

	Mode    internal.Mode
	Command internal.Command
	Chief   bool
	NoCache bool

	Token        string
	ClaudeConfig string
}

// NewPlan renders the Dockerfile and derives names, environment and mounts.
func NewPlan(renderer dockerfile.Renderer, in PlanInput, w internal.Writer) (Plan, error) {
	rendered, err := renderer.Render(in.Config.Runtimes, dockerfile.Options{Chief: in.Chief})
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Project:       in.Session.Project(),
		ContainerName: in.Session.ContainerName(),
		NetworkName:   in.Session.NetworkName(),
		ProjectDir:    in.ProjectDir,
		Labels:        in.Session.Labels(),
		Dockerfile:    rendered,
		ForceRebuild:  in.NoCache,
		Services:      services.Collect(in.Config.Services, in.Session.Project()),
		ReadyAttempts: internal.DefaultReadyAttempts,
		ReadyInterval: internal.DefaultReadyInterval * time.Second,
		Hooks:         in.Config.Hooks,
		Mode:          in.Mode,
		Shell:         shell.Resolve(in.Config.Container.Shell, in.Getenv),
		Command:       in.Command,
		ClaudeConfig:  in.ClaudeConfig,
	}
	if in.Config.Container.Name != "" {
		plan.ContainerName = in.Config.Container.Name
	}
	if in.Config.Container.Network != "" {
		plan.NetworkName = in.Config.Container.Network
	}

	if engines := services.SQLEngines(plan.Services); len(engines) > 1 {
		w.Warn("multiple SQL services enabled, their DB_* variables collide and the last one wins",
			"services", strings.Join(engines, ","), "wins", engines[len(engines)-1])
	}

	plan.Env = internal.Environment{"HOME=" + shell.ContainerHome}
	if in.Token != "" {
		plan.Env = append(plan.Env, auth.TokenEnv+"="+in.Token)
		plan.Credentials, err = auth.CredentialsJSON(in.Token)
		if err != nil {
			return Plan{}, err
		}
	}
	plan.Env = append(plan.Env, services.CollectDevEnv(plan.Services)...)

	fileEnv, err := in.Config.EnvFileVariables()
	if err != nil {
		return Plan{}, err
	}
	plan.Env = append(plan.Env, fileEnv...)

	if in.Config.Shell.MountConfigs {
		plan.Binds = shell.DotfileMounts(in.HomeDir)
	}

	return plan, nil
}

// Describe writes a human-readable summary of the plan.
func (p Plan) Describe(w internal.Writer) {
	w.Printf("Image:      %s\n", docker.ComputeTag(p.Dockerfile.Dockerfile))
	w.Printf("Container:  %s\n", p.ContainerName)
	w.Printf("Network:    %s\n", p.NetworkName)
	w.Printf("Workspace:  %s -> /workspace\n", p.ProjectDir)
	for _, svc := range p.Services {
		w.Printf("Service:    %s (%s) as %s\n", svc.Name(), svc.Image(), svc.ContainerName())
	}
	for _, bind := range p.Binds {
		w.Printf("Mount:      %s\n", bind)
	}
	for _, kv := range p.Env {
		key, _, _ := strings.Cut(kv, "=")
		w.Printf("Env:        %s\n", key)
	}
	for _, cmd := range p.Hooks.PostStart {
		w.Printf("post_start: %s\n", cmd)
	}
	for _, cmd := range p.Hooks.PreStop {
		w.Printf("pre_stop:   %s\n", cmd)
	}
	w.Printf("Run:        %s\n", p.run())
	w.Println()
	w.Print(p.Dockerfile.Dockerfile)
}

func (p Plan) run() string {
	switch p.Mode {
	case internal.ModeShell:
		return p.Shell
	default:
		return fmt.Sprintf("%q", []string(p.Command))
	}
}
