package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/logfields"
)

// Cargo wraps the Rust toolchain invocations used by the pipeline. The
// toolchain itself is an opaque collaborator: we only rely on its exit status
// and on the conventional target/<triple>/<profile>/ output layout.
type Cargo struct {
	runner  CommandRunner
	bin     string
	dir     string
	target  string
	profile string
}

// NewCargo creates a Cargo wrapper for the configured contract directory.
func NewCargo(cfg *config.Config, runner CommandRunner) *Cargo {
	return &Cargo{
		runner:  runner,
		bin:     cfg.Build.Cargo,
		dir:     cfg.Contract.Dir,
		target:  cfg.Build.Target,
		profile: cfg.Build.Profile,
	}
}

// Clean removes all previous build outputs for the project.
func (c *Cargo) Clean(ctx context.Context) error {
	slog.Info("Cleaning build outputs", logfields.Path(c.dir))
	if err := c.runner.Run(ctx, c.dir, c.bin, "clean"); err != nil {
		return fmt.Errorf("cargo clean failed: %w", err)
	}
	return nil
}

// Build compiles the contract for the configured target and profile.
func (c *Cargo) Build(ctx context.Context) error {
	args := []string{"build", "--target", c.target}
	if c.profile == "release" {
		args = append(args, "--release")
	} else {
		args = append(args, "--profile", c.profile)
	}
	slog.Info("Building contract", "target", c.target, "profile", c.profile)
	if err := c.runner.Run(ctx, c.dir, c.bin, args...); err != nil {
		return fmt.Errorf("cargo build failed: %w", err)
	}
	return nil
}

// ArtifactPath returns where the toolchain writes the named wasm artifact,
// relative to the contract directory.
func (c *Cargo) ArtifactPath(artifactFile string) string {
	// Cargo places custom-profile output under the profile's directory name,
	// which for the builtin release profile is "release".
	return filepath.Join(c.dir, "target", c.target, c.profile, artifactFile)
}
