// Package artifact stages built wasm binaries into the shared release
// directory and fingerprints them for the run ledger.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Info describes a staged artifact.
type Info struct {
	Path   string // staged location
	SHA256 string // hex digest of the staged bytes
	Size   int64  // size in bytes
}

// Stage copies the built artifact from the toolchain output path into dstDir,
// overwriting any prior artifact there. The destination directory is created
// if needed. A missing source file is an error: it means the build silently
// produced nothing.
func Stage(src, dstDir string) (Info, error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return Info{}, fmt.Errorf("open built artifact %s: %w", src, err)
	}
	defer func() {
		_ = srcFile.Close()
	}()

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return Info{}, fmt.Errorf("create staging directory: %w", err)
	}

	dst := filepath.Join(dstDir, filepath.Base(src))
	dstFile, err := os.Create(dst)
	if err != nil {
		return Info{}, fmt.Errorf("create staged artifact: %w", err)
	}
	defer func() {
		_ = dstFile.Close()
	}()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(dstFile, hasher), srcFile)
	if err != nil {
		return Info{}, fmt.Errorf("copy artifact to %s: %w", dst, err)
	}

	return Info{
		Path:   dst,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
		Size:   size,
	}, nil
}

// Fingerprint hashes an existing file without copying it.
func Fingerprint(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return Info{}, fmt.Errorf("hash artifact %s: %w", path, err)
	}

	return Info{
		Path:   path,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
		Size:   size,
	}, nil
}
