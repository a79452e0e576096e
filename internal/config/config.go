package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file name looked up when -c is not given.
const DefaultFile = "wasmship.yaml"

// Config represents the application configuration.
type Config struct {
	Contract ContractConfig `yaml:"contract"`
	Build    BuildConfig    `yaml:"build"`
	Staging  StagingConfig  `yaml:"staging"`
	Deploy   DeployConfig   `yaml:"deploy"`
	History  HistoryConfig  `yaml:"history"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ContractConfig identifies the contract crate being built.
type ContractConfig struct {
	Name string `yaml:"name"`          // crate name; artifact file is <name>.wasm
	Dir  string `yaml:"dir,omitempty"` // directory containing Cargo.toml, defaults to "."
}

// BuildConfig configures the toolchain invocation.
type BuildConfig struct {
	Cargo   string `yaml:"cargo,omitempty"`   // cargo binary, defaults to "cargo"
	Target  string `yaml:"target,omitempty"`  // compilation target triple
	Profile string `yaml:"profile,omitempty"` // cargo profile, defaults to "release"
}

// StagingConfig configures where the built artifact is copied.
type StagingConfig struct {
	Dir string `yaml:"dir,omitempty"` // shared release directory, defaults to "../res"
}

// DeployConfig configures the network deploy CLI.
type DeployConfig struct {
	Tool     string   `yaml:"tool,omitempty"`      // deploy binary, defaults to "near"
	StateDir string   `yaml:"state_dir,omitempty"` // local dev credentials cache, defaults to "neardev"
	Args     []string `yaml:"args,omitempty"`      // extra arguments appended to dev-deploy
}

// HistoryConfig configures the local run ledger.
type HistoryConfig struct {
	Path     string `yaml:"path,omitempty"` // sqlite file, defaults to .wasmship/history.db
	Disabled bool   `yaml:"disabled,omitempty"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Paths       []string `yaml:"paths,omitempty"`    // watched paths relative to contract dir
	Debounce    Duration `yaml:"debounce,omitempty"` // quiet period before a rebuild triggers
	Interval    Duration `yaml:"interval,omitempty"` // optional periodic redeploy, 0 disables
	MetricsAddr string   `yaml:"metrics_addr,omitempty"`
}

// Duration is a time.Duration that (un)marshals as a YAML string like "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ArtifactFile returns the artifact file name produced by the build.
func (c *Config) ArtifactFile() string {
	return c.Contract.Name + ".wasm"
}

// ResolvedStagingDir returns the staging directory resolved against the
// contract directory, since "../res" in config is relative to the contract.
func (c *Config) ResolvedStagingDir() string {
	if filepath.IsAbs(c.Staging.Dir) {
		return c.Staging.Dir
	}
	return filepath.Join(c.Contract.Dir, c.Staging.Dir)
}

// StagedArtifactPath returns the staged artifact location.
func (c *Config) StagedArtifactPath() string {
	return filepath.Join(c.ResolvedStagingDir(), c.ArtifactFile())
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env if present; existing process environment wins.
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment variables from .env")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if config.Contract.Name == "" {
		return nil, fmt.Errorf("contract.name is required (the crate name that produces <name>.wasm)")
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Contract.Dir == "" {
		c.Contract.Dir = "."
	}
	if c.Build.Cargo == "" {
		c.Build.Cargo = "cargo"
	}
	if c.Build.Target == "" {
		c.Build.Target = "wasm32-unknown-unknown"
	}
	if c.Build.Profile == "" {
		c.Build.Profile = "release"
	}
	if c.Staging.Dir == "" {
		c.Staging.Dir = "../res"
	}
	if c.Deploy.Tool == "" {
		c.Deploy.Tool = "near"
	}
	if c.Deploy.StateDir == "" {
		c.Deploy.StateDir = "neardev"
	}
	if c.History.Path == "" {
		c.History.Path = filepath.Join(".wasmship", "history.db")
	}
	if len(c.Watch.Paths) == 0 {
		c.Watch.Paths = []string{"src"}
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(2 * time.Second)
	}
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Contract: ContractConfig{
			Name: "non_fungible_token",
			Dir:  ".",
		},
		Build: BuildConfig{
			Target:  "wasm32-unknown-unknown",
			Profile: "release",
		},
		Staging: StagingConfig{
			Dir: "../res",
		},
		Deploy: DeployConfig{
			Tool:     "near",
			StateDir: "neardev",
		},
		Watch: WatchConfig{
			Paths:    []string{"src"},
			Debounce: Duration(2 * time.Second),
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
