// Package cpu implements the reference execution context on the host CPU,
// using gonum BLAS for matrix products and goroutine fan-out for elementwise
// kernels.
package cpu

import (
	"github.com/liamt19/bullet/internal/parallel"
	"github.com/liamt19/bullet/internal/tensor"
)

// CPUBackend implements tensor.ExecutionContext on the host CPU.
type CPUBackend struct {
	device tensor.Device
	cfg    parallel.Config
}

// Compile-time check that CPUBackend implements tensor.ExecutionContext.
var _ tensor.ExecutionContext = (*CPUBackend)(nil)

// New creates a new CPU backend with default parallelism.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallel config.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		cfg:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Copy writes src[:size] into dst[:size].
func (cpu *CPUBackend) Copy(size int, dst, src *tensor.Buffer) error {
	v, err := acquire("copy", use(dst, size), use(src, size))
	if err != nil {
		return err
	}
	copy(v[0], v[1])
	return nil
}

// Accumulate adds alpha*src[:size] into dst[:size].
func (cpu *CPUBackend) Accumulate(size int, dst, src *tensor.Buffer, alpha float32) error {
	v, err := acquire("accumulate", use(dst, size), use(src, size))
	if err != nil {
		return err
	}
	d, s := v[0], v[1]
	parallel.Range(size, cpu.cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			d[i] += alpha * s[i]
		}
	})
	return nil
}

// Concat writes a[:sizeA] followed by b[:sizeB] into out.
func (cpu *CPUBackend) Concat(sizeA, sizeB int, a, b, out *tensor.Buffer) error {
	v, err := acquire("concat", use(a, sizeA), use(b, sizeB), use(out, sizeA+sizeB))
	if err != nil {
		return err
	}
	copy(v[2][:sizeA], v[0])
	copy(v[2][sizeA:], v[1])
	return nil
}

// SliceAccumulate adds src[offset:offset+size] into dst[:size].
func (cpu *CPUBackend) SliceAccumulate(offset, size int, src, dst *tensor.Buffer) error {
	if offset < 0 {
		return &tensor.CapacityError{Op: "slice accumulate", Requested: offset, Capacity: src.Size()}
	}
	v, err := acquire("slice accumulate", use(src, offset+size), use(dst, size))
	if err != nil {
		return err
	}
	s, d := v[0][offset:], v[1]
	for i := range d {
		d[i] += s[i]
	}
	return nil
}
