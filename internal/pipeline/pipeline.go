// Package pipeline orchestrates the build-stage-deploy sequence for a
// WebAssembly contract: clean previous outputs, compile, copy the binary into
// the shared release directory, drop stale dev credentials, and deploy.
//
// The sequence is strictly linear and fail-fast: a stage runs only after the
// previous one succeeded, the first failure aborts the run, and there is no
// retry or rollback. Re-running from the start is the only recovery path.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wasmship/wasmship/internal/artifact"
	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/deploy"
	"github.com/wasmship/wasmship/internal/gitinfo"
	"github.com/wasmship/wasmship/internal/logfields"
	"github.com/wasmship/wasmship/internal/metrics"
	"github.com/wasmship/wasmship/internal/toolchain"
)

// Run outcomes recorded in reports and the ledger.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// Report summarizes one pipeline run.
type Report struct {
	RunID          string
	StartedAt      time.Time
	Duration       time.Duration
	StageDurations map[StageName]time.Duration
	Outcome        string
	FailedStage    StageName // empty on success
	Artifact       artifact.Info
	Commit         string
	Dirty          bool
}

// RunState carries mutable state across stages of a single run.
type RunState struct {
	ID       string
	Config   *config.Config
	Cargo    *toolchain.Cargo
	Near     *deploy.NearCLI
	Artifact artifact.Info
	Report   *Report

	recorder metrics.Recorder
}

// Pipeline wires the external collaborators and runs stage sequences.
type Pipeline struct {
	cfg      *config.Config
	cargo    *toolchain.Cargo
	near     *deploy.NearCLI
	recorder metrics.Recorder
}

// Option configures pipeline construction.
type Option func(*options)

type options struct {
	runner   toolchain.CommandRunner
	recorder metrics.Recorder
}

// WithRunner substitutes the external process runner (used by tests).
func WithRunner(r toolchain.CommandRunner) Option {
	return func(o *options) { o.runner = r }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// New creates a pipeline for the given configuration.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	o := options{
		runner:   toolchain.ExecRunner{},
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline{
		cfg:      cfg,
		cargo:    toolchain.NewCargo(cfg, o.runner),
		near:     deploy.NewNearCLI(cfg, o.runner),
		recorder: o.recorder,
	}
}

// Deploy runs the full five-stage pipeline.
func (p *Pipeline) Deploy(ctx context.Context) (*Report, error) {
	return p.run(ctx, []StageDef{
		{StageClean, stageClean},
		{StageBuild, stageBuild},
		{StageStageArtifact, stageStageArtifact},
		{StageResetState, stageResetState},
		{StageDeploy, stageDeploy},
	})
}

// Build runs only the artifact-producing stages: clean, build, stage.
func (p *Pipeline) Build(ctx context.Context) (*Report, error) {
	return p.run(ctx, []StageDef{
		{StageClean, stageClean},
		{StageBuild, stageBuild},
		{StageStageArtifact, stageStageArtifact},
	})
}

// Clean runs only the clean stage.
func (p *Pipeline) Clean(ctx context.Context) (*Report, error) {
	return p.run(ctx, []StageDef{
		{StageClean, stageClean},
	})
}

func (p *Pipeline) run(ctx context.Context, stages []StageDef) (*Report, error) {
	report := &Report{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now(),
		StageDurations: make(map[StageName]time.Duration),
	}

	if info, err := gitinfo.Lookup(p.cfg.Contract.Dir); err == nil {
		report.Commit = info.Commit
		report.Dirty = info.Dirty
	} else {
		slog.Debug("No source revision available", logfields.Error(err))
	}

	rs := &RunState{
		ID:       report.RunID,
		Config:   p.cfg,
		Cargo:    p.cargo,
		Near:     p.near,
		Report:   report,
		recorder: p.recorder,
	}

	slog.Info("Starting pipeline run",
		logfields.RunID(report.RunID),
		"stages", len(stages),
		logfields.Commit(report.Commit))

	err := runStages(ctx, rs, stages)
	report.Duration = time.Since(report.StartedAt)
	p.recorder.ObserveRunDuration(report.Duration)

	switch {
	case err == nil:
		report.Outcome = OutcomeSuccess
	case isCanceled(err):
		report.Outcome = OutcomeCanceled
	default:
		report.Outcome = OutcomeFailed
	}
	p.recorder.IncRunOutcome(report.Outcome)

	slog.Info("Pipeline run finished",
		logfields.RunID(report.RunID),
		logfields.Outcome(report.Outcome),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))

	return report, err
}

func isCanceled(err error) bool {
	se, ok := err.(*StageError)
	return ok && se.Kind == StageErrorCanceled
}
