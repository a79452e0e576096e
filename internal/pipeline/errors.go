package pipeline

import "errors"

// Sentinel domain errors used to classify pipeline failures.
// They should always be wrapped with contextual information at the call site.
var (
	ErrToolchain  = errors.New("wasmship: toolchain error")
	ErrStaging    = errors.New("wasmship: staging error")
	ErrStateReset = errors.New("wasmship: state reset error")
	ErrDeploy     = errors.New("wasmship: deploy error")
)
