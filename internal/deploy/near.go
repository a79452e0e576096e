// Package deploy invokes the network deploy CLI and manages the local
// dev-deployment state directory it maintains.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/logfields"
	"github.com/wasmship/wasmship/internal/toolchain"
)

// NearCLI wraps the near deploy tool. Like the toolchain, it is an opaque
// collaborator: the pipeline relies only on its exit status and on the fact
// that dev-deploy recreates the state directory itself.
type NearCLI struct {
	runner   toolchain.CommandRunner
	bin      string
	dir      string
	stateDir string
	extra    []string
}

// NewNearCLI creates a deploy wrapper for the configured contract directory.
func NewNearCLI(cfg *config.Config, runner toolchain.CommandRunner) *NearCLI {
	return &NearCLI{
		runner:   runner,
		bin:      cfg.Deploy.Tool,
		dir:      cfg.Contract.Dir,
		stateDir: cfg.Deploy.StateDir,
		extra:    cfg.Deploy.Args,
	}
}

// DevDeploy pushes the staged artifact to a disposable development account.
func (n *NearCLI) DevDeploy(ctx context.Context, wasmPath string) error {
	args := append([]string{"dev-deploy", wasmPath}, n.extra...)
	slog.Info("Deploying to development network", logfields.Artifact(wasmPath))
	if err := n.runner.Run(ctx, n.dir, n.bin, args...); err != nil {
		return fmt.Errorf("%s dev-deploy failed: %w", n.bin, err)
	}
	return nil
}

// ResetState forcibly removes the cached dev account/key directory so the
// deploy tool provisions a fresh one. A missing directory is success.
func (n *NearCLI) ResetState() error {
	path := n.StatePath()
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove deploy state %s: %w", path, err)
	}
	slog.Debug("Removed local deploy state", logfields.Path(path))
	return nil
}

// StatePath returns the state directory location relative to the contract dir.
func (n *NearCLI) StatePath() string {
	return filepath.Join(n.dir, n.stateDir)
}
