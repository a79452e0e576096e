package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStageCopiesAndFingerprints(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "res")
	content := []byte("\x00asm fake wasm payload")

	src := filepath.Join(srcDir, "nft.wasm")
	require.NoError(t, os.WriteFile(src, content, 0o644))

	info, err := Stage(src, dstDir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dstDir, "nft.wasm"), info.Path)
	require.Equal(t, int64(len(content)), info.Size)

	sum := sha256.Sum256(content)
	require.Equal(t, hex.EncodeToString(sum[:]), info.SHA256)

	staged, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	require.Equal(t, content, staged)
}

func TestStageOverwritesPriorArtifact(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	src := filepath.Join(srcDir, "nft.wasm")
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "nft.wasm"), []byte("old build, longer than new"), 0o644))
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))

	info, err := Stage(src, dstDir)
	require.NoError(t, err)

	staged, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	require.Equal(t, []byte("new"), staged)
}

func TestStageMissingSource(t *testing.T) {
	_, err := Stage(filepath.Join(t.TempDir(), "missing.wasm"), t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "open built artifact")
}

func TestStageIsDeterministic(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "nft.wasm")
	require.NoError(t, os.WriteFile(src, []byte("deterministic build output"), 0o644))

	first, err := Stage(src, dstDir)
	require.NoError(t, err)
	second, err := Stage(src, dstDir)
	require.NoError(t, err)

	require.Equal(t, first.SHA256, second.SHA256)
	require.Equal(t, first.Size, second.Size)
}

func TestFingerprintMatchesStage(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "nft.wasm")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	staged, err := Stage(src, t.TempDir())
	require.NoError(t, err)

	direct, err := Fingerprint(src)
	require.NoError(t, err)
	require.Equal(t, staged.SHA256, direct.SHA256)
	require.Equal(t, staged.Size, direct.Size)
}
