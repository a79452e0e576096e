package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/pipeline"
)

// DeployCmd implements the 'deploy' command: the full
// clean → build → stage → reset → deploy sequence.
type DeployCmd struct{}

func (d *DeployCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// An interrupt terminates whichever external tool is currently running;
	// partially-completed steps are not cleaned up.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := pipeline.New(cfg)
	report, err := p.Deploy(ctx)
	recordRun(cfg, report)
	return err
}
