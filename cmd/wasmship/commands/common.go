package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/history"
	"github.com/wasmship/wasmship/internal/logfields"
	"github.com/wasmship/wasmship/internal/pipeline"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"wasmship.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Deploy  DeployCmd  `cmd:"" help:"Build, stage and deploy the contract to the development network"`
	Build   BuildCmd   `cmd:"" help:"Build the contract and stage the artifact without deploying"`
	Clean   CleanCmd   `cmd:"" help:"Remove previous build outputs"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	History HistoryCmd `cmd:"" help:"Show recent pipeline runs from the local ledger"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild and redeploy whenever the contract source changes"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := parseLogLevel(c.Verbose)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel resolves the log level from the verbose flag and the
// WASMSHIP_LOG_LEVEL environment variable (flag wins).
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(os.Getenv("WASMSHIP_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// recordRun appends a pipeline report to the local run ledger. The ledger is
// informational: failures here are logged and never fail the pipeline.
func recordRun(cfg *config.Config, report *pipeline.Report) {
	if cfg.History.Disabled || report == nil {
		return
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		slog.Warn("Run ledger unavailable", logfields.Error(err))
		return
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	run := history.Run{
		ID:             report.RunID,
		StartedAt:      report.StartedAt,
		Duration:       report.Duration,
		Outcome:        report.Outcome,
		FailedStage:    string(report.FailedStage),
		ArtifactPath:   report.Artifact.Path,
		ArtifactSHA256: report.Artifact.SHA256,
		ArtifactSize:   report.Artifact.Size,
		Commit:         report.Commit,
		Dirty:          report.Dirty,
	}
	if err := store.Record(ctx, run); err != nil {
		slog.Warn("Failed to record run", logfields.RunID(report.RunID), logfields.Error(err))
	}
}
