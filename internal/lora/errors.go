package lora

import "errors"

// Sentinel errors for the construction path. Forward-path violations panic
// instead (shape bugs and unsupported execution modes are programmer
// errors, matching the nn package convention).
var (
	// ErrConfig reports an invalid adapter configuration.
	ErrConfig = errors.New("lora: invalid configuration")

	// ErrNoTargetModules reports that the target selector matched no
	// adaptable module anywhere in the host network.
	ErrNoTargetModules = errors.New("lora: target modules not found in the base model")

	// ErrBiasMode reports an unknown bias training mode.
	ErrBiasMode = errors.New("lora: unsupported bias mode")

	// ErrQuantBackendMissing reports that the host network is marked as
	// quantized but no 8-bit execution backend is linked into this build.
	ErrQuantBackendMissing = errors.New("lora: quantized host requires an 8-bit backend, none is available")

	// ErrUnsupported reports an adapter variant that is deliberately
	// unimplemented (merged-linear, quantized layers).
	ErrUnsupported = errors.New("lora: unsupported adapter variant")
)
