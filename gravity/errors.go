package gravity

import "github.com/oyin-bo/three-g/gravity/gpu"

// Construction errors surface as *ResourceError; Kind tells the class.
type (
	ResourceError = gpu.ResourceError
	ErrorKind     = gpu.ErrorKind
)

const (
	ErrExtensionMissing      = gpu.ErrExtensionMissing
	ErrShaderCompileFailed   = gpu.ErrShaderCompileFailed
	ErrProgramLinkFailed     = gpu.ErrProgramLinkFailed
	ErrFramebufferIncomplete = gpu.ErrFramebufferIncomplete
	ErrAllocationFailed      = gpu.ErrAllocationFailed
	ErrInvalidInput          = gpu.ErrInvalidInput
)

// NewDefaultLogger builds the standard stdout/stderr logger.
func NewDefaultLogger(prefix string, debug bool) Logger {
	return gpu.NewDefaultLogger(prefix, debug)
}

// NewNopLogger drops all output.
func NewNopLogger() Logger { return gpu.NewNopLogger() }
