package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrNoSuitableDevice            = errors.New("no physical device meets the requirements")
	ErrMissingLayer                = errors.New("required validation layer is missing")
	ErrMissingExtension            = errors.New("required extension is missing")
	ErrDataSizeMismatch            = errors.New("data size does not match the resource size")
	ErrUnsupportedLayoutTransition = errors.New("unsupported image layout transition")
	ErrUnsupportedFormat           = errors.New("unsupported texture format")
	ErrPoolExhausted               = errors.New("descriptor pool exhausted after retry")
	ErrResourcesAlive              = errors.New("context destroyed while resources are still alive")
	ErrFenceTimeout                = errors.New("fence wait timed out")
	ErrInvalidCommandBufferState   = errors.New("command buffer is in the wrong state")
	ErrNoSuitableMemoryType        = errors.New("unable to find a suitable memory type")
	ErrInvalidShaderCode           = errors.New("invalid SPIR-V bytecode")
	ErrAssetNotFound               = errors.New("asset not found")
	ErrUnknown                     = errors.New("unknown")
)
