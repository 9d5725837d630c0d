//go:build windows

// Package webgpu runs the optimiser kernels on a GPU through WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO bindings.
//
// Only tensor.OptimiserKernels is implemented. Forward and backward passes
// stay on the CPU backend; parameter updates are uploaded, run as one compute
// pass and read back into the caller's buffers.
package webgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/liamt19/bullet/internal/tensor"
)

// ErrUnavailable is returned by New when no WebGPU adapter can be opened.
var ErrUnavailable = errors.New("webgpu: not available")

// Backend implements tensor.OptimiserKernels on a WebGPU device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	adapterInfo wgpu.AdapterInfo

	// Staging buffers are reused across optimiser steps.
	staging *BufferPool

	// Serialises submissions so kernels stay synchronous.
	submitMu sync.Mutex
}

var _ tensor.OptimiserKernels = (*Backend)(nil)

// New opens the high-performance adapter and its default queue.
func New() (backend *Backend, err error) {
	// wgpu_native panics when the shared library is missing.
	defer func() {
		if r := recover(); r != nil {
			backend, err = nil, fmt.Errorf("%w: native library: %v", ErrUnavailable, r)
		}
	}()

	b := &Backend{
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
	}
	b.instance = wgpu.CreateInstance(nil)
	if b.adapter, err = b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	}); err != nil {
		b.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", ErrUnavailable, err)
	}
	b.adapterInfo = b.adapter.GetInfo()

	if b.device, err = b.adapter.RequestDevice(nil); err != nil {
		b.Release()
		return nil, fmt.Errorf("%w: request device: %w", ErrUnavailable, err)
	}
	if b.queue = b.device.GetQueue(); b.queue == nil {
		b.Release()
		return nil, fmt.Errorf("%w: device has no queue", ErrUnavailable)
	}
	b.staging = NewBufferPool(b.device)
	return b, nil
}

// Release frees every GPU object owned by the backend, newest first.
// It is safe on a partially constructed backend.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.staging != nil {
		b.staging.Clear()
	}
	for _, p := range b.pipelines {
		p.Release()
	}
	for _, s := range b.shaders {
		s.Release()
	}
	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
	b.staging, b.pipelines, b.shaders = nil, nil, nil
	b.queue, b.device, b.adapter, b.instance = nil, nil, nil, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "WebGPU"
}

// Device returns tensor.WebGPU.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// AdapterDescription describes the GPU the backend runs on.
func (b *Backend) AdapterDescription() string {
	return fmt.Sprintf("%s (%s)", b.adapterInfo.Description, b.adapterInfo.Vendor)
}

// IsAvailable reports whether an adapter can be requested on this machine.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}
