// Copyright 2025 The Bullet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the reference execution context.
package cpu

import (
	internalcpu "github.com/liamt19/bullet/internal/backend/cpu"
	"github.com/liamt19/bullet/internal/parallel"
	"github.com/liamt19/bullet/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.ExecutionContext.
var _ tensor.ExecutionContext = (*Backend)(nil)

// ParallelConfig controls how elementwise kernels fan out.
type ParallelConfig = parallel.Config

// New creates a CPU backend using every core.
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that never spawns goroutines.
func NewSequential() *Backend {
	return internalcpu.NewWithConfig(parallel.Sequential())
}

// NewWithConfig creates a CPU backend with an explicit parallel config.
func NewWithConfig(cfg ParallelConfig) *Backend {
	return internalcpu.NewWithConfig(cfg)
}
