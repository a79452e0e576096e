package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyArtifact   = "artifact"
	KeySHA256     = "sha256"
	KeySizeBytes  = "size_bytes"
	KeyCommit     = "commit"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Artifact(p string) slog.Attr     { return slog.String(KeyArtifact, p) }
func SHA256(sum string) slog.Attr     { return slog.String(KeySHA256, sum) }
func SizeBytes(n int64) slog.Attr     { return slog.Int64(KeySizeBytes, n) }
func Commit(hash string) slog.Attr    { return slog.String(KeyCommit, hash) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
