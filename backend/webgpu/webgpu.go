// Copyright 2025 The Bullet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides optimiser kernels on a WebGPU device.
//
// The bindings are built on windows only; New returns ErrUnavailable on other
// platforms and when no adapter is found.
//
// Example:
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    return err
//	}
//	defer gpu.Release()
//	opt := optim.New(optim.DefaultAdamW(), graph, gpu)
package webgpu

import (
	"github.com/liamt19/bullet/internal/backend/webgpu"
	"github.com/liamt19/bullet/tensor"
)

// Backend runs Adam, Clip and Scale on the GPU.
type Backend = webgpu.Backend

var _ tensor.OptimiserKernels = (*Backend)(nil)

// ErrUnavailable is returned by New when WebGPU cannot be used.
var ErrUnavailable = webgpu.ErrUnavailable

// New opens the default high-performance adapter.
func New() (*Backend, error) {
	return webgpu.New()
}

// IsAvailable reports whether an adapter can be requested.
func IsAvailable() bool {
	return webgpu.IsAvailable()
}
