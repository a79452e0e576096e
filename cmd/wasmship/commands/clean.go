package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/pipeline"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := pipeline.New(cfg)
	_, err = p.Clean(ctx)
	return err
}
