package internal

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/syntax"

	"github.com/ryanmoran/bubble/internal/services"
)

const (
	// DefaultStopTimeout is the grace period in seconds given to a container
	// before it is killed.
	DefaultStopTimeout = 5

	// DefaultReadyAttempts and DefaultReadyInterval bound the readiness wait for
	// service containers: 30 probes, 2 seconds apart.
	DefaultReadyAttempts = 30
	DefaultReadyInterval = 2

	// ProjectConfigFile is read from the working directory and layered over the
	// global configuration.
	ProjectConfigFile = ".bubble.toml"

	// EnvPrefix is the prefix of environment variables that override file values,
	// e.g. BUBBLE_CONTAINER_NETWORK.
	EnvPrefix = "BUBBLE"
)

// Config is the resolved configuration of a session.
type Config struct {
	Runtimes  RuntimeConfig   `mapstructure:"runtimes" toml:"runtimes"`
	Services  services.Config `mapstructure:"services" toml:"services"`
	Hooks     HookConfig      `mapstructure:"hooks" toml:"hooks"`
	Shell     ShellConfig     `mapstructure:"shell" toml:"shell"`
	Container ContainerConfig `mapstructure:"container" toml:"container"`
}

// RuntimeConfig selects the language runtimes layered into the image. Empty
// versions are not installed.
type RuntimeConfig struct {
	PHP  string `mapstructure:"php" toml:"php,omitempty"`
	Node string `mapstructure:"node" toml:"node,omitempty"`
	Rust bool   `mapstructure:"rust" toml:"rust"`
	Go   string `mapstructure:"go" toml:"go,omitempty"`
}

// HookConfig lists shell commands run inside the dev container after it starts
// and before it stops.
type HookConfig struct {
	PostStart []string `mapstructure:"post_start" toml:"post_start"`
	PreStop   []string `mapstructure:"pre_stop" toml:"pre_stop"`
}

type ShellConfig struct {
	MountConfigs bool `mapstructure:"mount_configs" toml:"mount_configs"`
}

type ContainerConfig struct {
	Network string `mapstructure:"network" toml:"network,omitempty"`
	Name    string `mapstructure:"name" toml:"name,omitempty"`
	Shell   string `mapstructure:"shell" toml:"shell,omitempty"`
	EnvFile string `mapstructure:"env_file" toml:"env_file,omitempty"`
}

// LoadOptions names the configuration files to layer. Missing files are skipped.
type LoadOptions struct {
	GlobalPath  string
	ProjectPath string
}

// DefaultLoadOptions returns the user config directory file and the project file
// in the working directory.
func DefaultLoadOptions() LoadOptions {
	opts := LoadOptions{ProjectPath: ProjectConfigFile}
	if dir, err := os.UserConfigDir(); err == nil {
		opts.GlobalPath = filepath.Join(dir, "bubble", "config.toml")
	}
	return opts
}

// serviceTables records service tables declared in a config file. Viper drops
// empty tables, so a bare [services.mysql] would otherwise leave MySQL off.
type serviceTables struct {
	mysql    bool
	postgres bool
}

func (t *serviceTables) scan(content []byte) {
	var doc struct {
		Services map[string]any `toml:"services"`
	}
	if err := toml.Unmarshal(content, &doc); err != nil {
		return
	}
	if _, ok := doc.Services["mysql"].(map[string]any); ok {
		t.mysql = true
	}
	if _, ok := doc.Services["postgres"].(map[string]any); ok {
		t.postgres = true
	}
}

func (t serviceTables) enable(cfg *services.Config) {
	if t.mysql && cfg.MySQL == nil {
		cfg.MySQL = &services.MySQLConfig{}
	}
	if t.postgres && cfg.Postgres == nil {
		cfg.Postgres = &services.PostgresConfig{}
	}
}

// LoadConfig resolves the configuration from defaults, the global file, the
// project file and BUBBLE_* environment variables, in increasing precedence.
// Command-line flags are applied afterwards with ApplyFlags.
func LoadConfig(opts LoadOptions) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("runtimes.php", "")
	v.SetDefault("runtimes.node", "")
	v.SetDefault("runtimes.rust", false)
	v.SetDefault("runtimes.go", "")
	v.SetDefault("services.redis", false)
	v.SetDefault("hooks.post_start", []string{})
	v.SetDefault("hooks.pre_stop", []string{})
	v.SetDefault("shell.mount_configs", false)
	v.SetDefault("container.network", "")
	v.SetDefault("container.name", "")
	v.SetDefault("container.shell", "")
	v.SetDefault("container.env_file", "")

	var declared serviceTables
	for _, path := range []string{opts.GlobalPath, opts.ProjectPath} {
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err == nil {
			err = v.MergeConfig(bytes.NewReader(content))
		}
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %q: %w\nCheck that the file contains valid TOML", path, err)
		}
		declared.scan(content)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only sees keys viper already knows, and the service tables
	// have no defaults since their absence means "disabled".
	for _, service := range []string{"mysql", "postgres"} {
		for _, field := range []string{"version", "database", "username", "password"} {
			if err := v.BindEnv("services." + service + "." + field); err != nil {
				return Config{}, fmt.Errorf("failed to bind environment: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	declared.enable(&cfg.Services)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that every hook command parses as a POSIX shell program.
func (c Config) Validate() error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	check := func(phase string, cmds []string) error {
		for i, cmd := range cmds {
			if _, err := parser.Parse(strings.NewReader(cmd), fmt.Sprintf("%s[%d]", phase, i)); err != nil {
				return fmt.Errorf("invalid %s hook %q: %w", phase, cmd, err)
			}
		}
		return nil
	}
	if err := check("post_start", c.Hooks.PostStart); err != nil {
		return err
	}
	return check("pre_stop", c.Hooks.PreStop)
}

// Flags carries command-line overrides. Zero values leave the configuration
// untouched.
type Flags struct {
	PHP      string
	Node     string
	Rust     bool
	Go       string
	MySQL    string
	Redis    bool
	Postgres string
	Network  string
	Name     string
	Shell    string
	NoCache  bool
	DryRun   bool
}

// ApplyFlags overlays command-line flags onto the configuration. Requesting a
// service version keeps any credentials configured in files.
func (c *Config) ApplyFlags(f Flags) {
	if f.PHP != "" {
		c.Runtimes.PHP = f.PHP
	}
	if f.Node != "" {
		c.Runtimes.Node = f.Node
	}
	if f.Rust {
		c.Runtimes.Rust = true
	}
	if f.Go != "" {
		c.Runtimes.Go = f.Go
	}

	if f.MySQL != "" {
		mysql := services.MySQLConfig{}
		if c.Services.MySQL != nil {
			mysql = *c.Services.MySQL
		}
		mysql.Version = f.MySQL
		c.Services.MySQL = &mysql
	}
	if f.Redis {
		c.Services.Redis = true
	}
	if f.Postgres != "" {
		pg := services.PostgresConfig{}
		if c.Services.Postgres != nil {
			pg = *c.Services.Postgres
		}
		pg.Version = f.Postgres
		c.Services.Postgres = &pg
	}

	if f.Network != "" {
		c.Container.Network = f.Network
	}
	if f.Name != "" {
		c.Container.Name = f.Name
	}
	if f.Shell != "" {
		c.Container.Shell = f.Shell
	}
}

// EnvFileVariables reads container.env_file, if set, and returns its entries as
// KEY=VALUE strings sorted by key.
func (c Config) EnvFileVariables() (Environment, error) {
	if c.Container.EnvFile == "" {
		return nil, nil
	}

	values, err := godotenv.Read(c.Container.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %q: %w\nCheck container.env_file in your configuration", c.Container.EnvFile, err)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	env := make(Environment, 0, len(keys))
	for _, key := range keys {
		env = append(env, key+"="+values[key])
	}
	return env, nil
}

// TOML encodes the resolved configuration.
func (c Config) TOML() ([]byte, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}
