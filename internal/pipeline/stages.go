package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/wasmship/wasmship/internal/artifact"
	"github.com/wasmship/wasmship/internal/logfields"
	"github.com/wasmship/wasmship/internal/metrics"
)

// StageName is a strongly-typed identifier for a pipeline stage. All canonical
// stages are declared as constants here for compile-time safety.
type StageName string

// Canonical stage names, in pipeline order.
const (
	StageClean         StageName = "clean"
	StageBuild         StageName = "build"
	StageStageArtifact StageName = "stage_artifact"
	StageResetState    StageName = "reset_state"
	StageDeploy        StageName = "deploy"
)

// Stage is a discrete unit of work in a pipeline run.
type Stage func(ctx context.Context, rs *RunState) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err)
}
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// runStages executes stages in order, recording timing and stopping on the
// first error. Steps after a failed stage never run.
func runStages(ctx context.Context, rs *RunState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(st.Name, ctx.Err())
			rs.recorder.IncStageResult(string(st.Name), metrics.ResultCanceled)
			rs.Report.FailedStage = st.Name
			return se
		default:
		}

		t0 := time.Now()
		err := st.Fn(ctx, rs)
		dur := time.Since(t0)
		rs.Report.StageDurations[st.Name] = dur
		rs.recorder.ObserveStageDuration(string(st.Name), dur)

		if err != nil {
			var se *StageError
			if !errors.As(err, &se) {
				se = newFatalStageError(st.Name, err)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				se = newCanceledStageError(st.Name, err)
			}
			switch se.Kind {
			case StageErrorCanceled:
				rs.recorder.IncStageResult(string(st.Name), metrics.ResultCanceled)
			default:
				rs.recorder.IncStageResult(string(st.Name), metrics.ResultFatal)
			}
			rs.Report.FailedStage = st.Name
			slog.Error("Stage failed",
				logfields.RunID(rs.ID),
				logfields.Stage(string(st.Name)),
				logfields.DurationMS(float64(dur.Milliseconds())),
				logfields.Error(se.Err))
			return se
		}

		rs.recorder.IncStageResult(string(st.Name), metrics.ResultSuccess)
		slog.Debug("Stage completed",
			logfields.RunID(rs.ID),
			logfields.Stage(string(st.Name)),
			logfields.DurationMS(float64(dur.Milliseconds())))
	}
	return nil
}

// Individual stage implementations.

func stageClean(ctx context.Context, rs *RunState) error {
	if err := rs.Cargo.Clean(ctx); err != nil {
		return newFatalStageError(StageClean, fmt.Errorf("%w: %w", ErrToolchain, err))
	}
	return nil
}

func stageBuild(ctx context.Context, rs *RunState) error {
	if err := rs.Cargo.Build(ctx); err != nil {
		return newFatalStageError(StageBuild, fmt.Errorf("%w: %w", ErrToolchain, err))
	}
	return nil
}

// stageStageArtifact copies the freshly built binary into the shared release
// directory, overwriting any prior artifact there.
func stageStageArtifact(ctx context.Context, rs *RunState) error {
	src := rs.Cargo.ArtifactPath(rs.Config.ArtifactFile())
	info, err := artifact.Stage(src, rs.Config.ResolvedStagingDir())
	if err != nil {
		return newFatalStageError(StageStageArtifact, fmt.Errorf("%w: %w", ErrStaging, err))
	}
	rs.Artifact = info
	rs.Report.Artifact = info
	slog.Info("Staged artifact",
		logfields.Artifact(info.Path),
		logfields.SHA256(info.SHA256),
		logfields.SizeBytes(info.Size))
	return nil
}

// stageResetState removes the cached dev credentials. Absence of the
// directory is success; the deploy tool recreates it on the next deploy.
func stageResetState(ctx context.Context, rs *RunState) error {
	if err := rs.Near.ResetState(); err != nil {
		return newFatalStageError(StageResetState, fmt.Errorf("%w: %w", ErrStateReset, err))
	}
	return nil
}

func stageDeploy(ctx context.Context, rs *RunState) error {
	// The deploy tool runs inside the contract directory, so hand it an
	// absolute artifact path rather than one relative to our own cwd.
	wasmPath, err := filepath.Abs(rs.Artifact.Path)
	if err != nil {
		wasmPath = rs.Artifact.Path
	}
	if err := rs.Near.DevDeploy(ctx, wasmPath); err != nil {
		return newFatalStageError(StageDeploy, fmt.Errorf("%w: %w", ErrDeploy, err))
	}
	return nil
}
