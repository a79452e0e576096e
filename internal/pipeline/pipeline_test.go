package pipeline

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/toolchain"
)

// fakeRunner simulates the external cargo/near tools. A successful "cargo
// build" writes the artifact file, mirroring the real toolchain's side effect.
type fakeRunner struct {
	mu           sync.Mutex
	calls        []string
	failures     map[string]error // keyed by "<bin> <subcommand>"
	artifactPath string
	artifactData []byte
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := name
	if len(args) > 0 {
		key += " " + args[0]
	}
	f.calls = append(f.calls, key)

	if err := f.failures[key]; err != nil {
		return err
	}
	if key == "cargo build" && f.artifactData != nil {
		if err := os.MkdirAll(filepath.Dir(f.artifactPath), 0o755); err != nil {
			return err
		}
		return os.WriteFile(f.artifactPath, f.artifactData, 0o644)
	}
	return nil
}

// exitError produces a real *exec.ExitError with the given status.
func exitError(t *testing.T, code int) error {
	t.Helper()
	err := exec.Command("sh", "-c", "exit "+strconv.Itoa(code)).Run()
	require.Error(t, err)
	return err
}

func newFixture(t *testing.T) (*config.Config, *fakeRunner) {
	t.Helper()
	root := t.TempDir()
	contractDir := filepath.Join(root, "nft")
	require.NoError(t, os.MkdirAll(contractDir, 0o755))

	cfg := &config.Config{
		Contract: config.ContractConfig{Name: "non_fungible_token", Dir: contractDir},
		Build:    config.BuildConfig{Cargo: "cargo", Target: "wasm32-unknown-unknown", Profile: "release"},
		Staging:  config.StagingConfig{Dir: "../res"},
		Deploy:   config.DeployConfig{Tool: "near", StateDir: "neardev"},
	}

	runner := &fakeRunner{
		failures:     map[string]error{},
		artifactPath: filepath.Join(contractDir, "target", "wasm32-unknown-unknown", "release", "non_fungible_token.wasm"),
		artifactData: []byte("\x00asm compiled contract"),
	}
	return cfg, runner
}

func TestDeployRunsStagesInOrder(t *testing.T) {
	cfg, runner := newFixture(t)

	// Pre-existing dev credentials must be wiped before the deploy runs.
	stateDir := filepath.Join(cfg.Contract.Dir, "neardev")
	require.NoError(t, os.MkdirAll(stateDir, 0o755))

	p := New(cfg, WithRunner(runner))
	report, err := p.Deploy(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"cargo clean", "cargo build", "near dev-deploy"}, runner.calls)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Empty(t, report.FailedStage)
	require.Len(t, report.StageDurations, 5)

	// Artifact staged next to the contract under ../res.
	staged := filepath.Join(filepath.Dir(cfg.Contract.Dir), "res", "non_fungible_token.wasm")
	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	require.Equal(t, runner.artifactData, data)
	require.Equal(t, int64(len(runner.artifactData)), report.Artifact.Size)
	require.NotEmpty(t, report.Artifact.SHA256)

	// Reset stage removed the stale credentials.
	_, statErr := os.Stat(stateDir)
	require.True(t, os.IsNotExist(statErr))

	require.Equal(t, 0, toolchain.ExitCode(err))
}

func TestBuildFailureAbortsBeforeStaging(t *testing.T) {
	cfg, runner := newFixture(t)
	runner.failures["cargo build"] = exitError(t, 3)

	p := New(cfg, WithRunner(runner))
	report, err := p.Deploy(context.Background())

	require.Error(t, err)
	require.ErrorIs(t, err, ErrToolchain)
	require.Equal(t, 3, toolchain.ExitCode(err))
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Equal(t, StageBuild, report.FailedStage)

	// Later steps never ran.
	require.Equal(t, []string{"cargo clean", "cargo build"}, runner.calls)
	staged := filepath.Join(filepath.Dir(cfg.Contract.Dir), "res", "non_fungible_token.wasm")
	_, statErr := os.Stat(staged)
	require.True(t, os.IsNotExist(statErr))
}

func TestStagingFailureSkipsDeploy(t *testing.T) {
	cfg, runner := newFixture(t)
	// Build "succeeds" but silently produces no artifact.
	runner.artifactData = nil

	p := New(cfg, WithRunner(runner))
	report, err := p.Deploy(context.Background())

	require.Error(t, err)
	require.ErrorIs(t, err, ErrStaging)
	require.Equal(t, StageStageArtifact, report.FailedStage)
	require.NotContains(t, runner.calls, "near dev-deploy")
}

func TestDeployFailurePropagatesExitStatus(t *testing.T) {
	cfg, runner := newFixture(t)
	runner.failures["near dev-deploy"] = exitError(t, 7)

	p := New(cfg, WithRunner(runner))
	report, err := p.Deploy(context.Background())

	require.Error(t, err)
	require.ErrorIs(t, err, ErrDeploy)
	require.Equal(t, 7, toolchain.ExitCode(err))
	require.Equal(t, StageDeploy, report.FailedStage)
}

func TestResetToleratesMissingStateDir(t *testing.T) {
	cfg, runner := newFixture(t)
	// No neardev directory exists anywhere; the run must still succeed.
	p := New(cfg, WithRunner(runner))
	_, err := p.Deploy(context.Background())
	require.NoError(t, err)
}

func TestRepeatedRunsProduceIdenticalArtifact(t *testing.T) {
	cfg, runner := newFixture(t)
	p := New(cfg, WithRunner(runner))

	first, err := p.Deploy(context.Background())
	require.NoError(t, err)
	second, err := p.Deploy(context.Background())
	require.NoError(t, err)

	require.Equal(t, first.Artifact.SHA256, second.Artifact.SHA256)
	require.Equal(t, first.Artifact.Size, second.Artifact.Size)
}

func TestBuildStopsAfterStaging(t *testing.T) {
	cfg, runner := newFixture(t)

	stateDir := filepath.Join(cfg.Contract.Dir, "neardev")
	require.NoError(t, os.MkdirAll(stateDir, 0o755))

	p := New(cfg, WithRunner(runner))
	report, err := p.Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"cargo clean", "cargo build"}, runner.calls)
	require.Len(t, report.StageDurations, 3)

	// Build-only runs leave deploy state alone.
	_, statErr := os.Stat(stateDir)
	require.NoError(t, statErr)
}

func TestCleanRunsSingleStage(t *testing.T) {
	cfg, runner := newFixture(t)
	p := New(cfg, WithRunner(runner))

	report, err := p.Clean(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"cargo clean"}, runner.calls)
	require.Len(t, report.StageDurations, 1)
}

func TestCanceledContextAbortsRun(t *testing.T) {
	cfg, runner := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(cfg, WithRunner(runner))
	report, err := p.Deploy(ctx)

	require.Error(t, err)
	var se *StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, StageErrorCanceled, se.Kind)
	require.Equal(t, OutcomeCanceled, report.Outcome)
	require.Empty(t, runner.calls)
}
