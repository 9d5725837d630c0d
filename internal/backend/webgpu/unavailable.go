//go:build !windows

// Package webgpu runs the optimiser kernels on a GPU through WebGPU.
// The bindings are only built on windows; elsewhere New always fails.
package webgpu

import (
	"errors"

	"github.com/liamt19/bullet/internal/tensor"
)

// ErrUnavailable is returned by New when no WebGPU adapter can be opened.
var ErrUnavailable = errors.New("webgpu: not available")

// Backend is never constructed on this platform.
type Backend struct{}

var _ tensor.OptimiserKernels = (*Backend)(nil)

// New always returns ErrUnavailable on this platform.
func New() (*Backend, error) {
	return nil, ErrUnavailable
}

// IsAvailable always reports false on this platform.
func IsAvailable() bool { return false }

// Release is a no-op.
func (b *Backend) Release() {}

// Name returns the backend name.
func (b *Backend) Name() string { return "WebGPU" }

// Device returns tensor.WebGPU.
func (b *Backend) Device() tensor.Device { return tensor.WebGPU }

// AdapterDescription is empty on this platform.
func (b *Backend) AdapterDescription() string { return "" }

// Adam returns ErrUnavailable.
func (b *Backend) Adam(int, *tensor.Buffer, *tensor.Buffer, *tensor.Buffer, *tensor.Buffer,
	float32, float32, float32, float32, bool,
) error {
	return ErrUnavailable
}

// Clip returns ErrUnavailable.
func (b *Backend) Clip(int, *tensor.Buffer, float32, float32) error { return ErrUnavailable }

// Scale returns ErrUnavailable.
func (b *Backend) Scale(int, *tensor.Buffer, float32) error { return ErrUnavailable }
