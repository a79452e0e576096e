package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/pipeline"
)

// BuildCmd implements the 'build' command: clean, compile and stage the
// artifact without touching the network or local deploy state.
type BuildCmd struct{}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := pipeline.New(cfg)
	report, err := p.Build(ctx)
	recordRun(cfg, report)
	return err
}
