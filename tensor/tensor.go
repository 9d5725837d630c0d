// Copyright 2025 The Bullet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes shapes, device buffers and the kernel contracts the
// autograd graph runs on.
//
// Matrices are column-major: element (r, c) of an R×C matrix lives at
// c*R + r. Every kernel checks the requested size against each buffer it
// touches before writing and reports violations as a *CapacityError.
//
// Example:
//
//	import (
//	    "github.com/liamt19/bullet/backend/cpu"
//	    "github.com/liamt19/bullet/tensor"
//	)
//
//	ctx := cpu.New()
//	a := tensor.NewBuffer(4, tensor.CPU)
//	_ = a.CopyFrom([]float32{1, 2, 3, 4})
//	_ = ctx.Scale(4, a, 0.5)
package tensor

import "github.com/liamt19/bullet/internal/tensor"

// Shape is a rows×cols matrix shape.
type Shape = tensor.Shape

// NewShape returns a rows×cols shape.
func NewShape(rows, cols int) Shape {
	return tensor.NewShape(rows, cols)
}

// Vector returns an n×1 shape.
func Vector(n int) Shape {
	return tensor.Vector(n)
}

// Device identifies where a buffer lives.
type Device = tensor.Device

// Supported devices.
const (
	CPU    = tensor.CPU
	WebGPU = tensor.WebGPU
)

// Buffer is owned, fixed-capacity float32 storage.
type Buffer = tensor.Buffer

// NewBuffer allocates a zeroed buffer of size elements.
func NewBuffer(size int, device Device) *Buffer {
	return tensor.NewBuffer(size, device)
}

// Tensor pairs a value buffer with an optional gradient buffer.
type Tensor = tensor.Tensor

// New allocates a dense tensor, with gradients iff withGrad.
func New(shape Shape, withGrad bool, device Device) *Tensor {
	return tensor.New(shape, withGrad, device)
}

// DataType is the element encoding used when persisting buffers.
type DataType = tensor.DataType

// Supported data types.
const (
	Float32 = tensor.Float32
	Float16 = tensor.Float16
)

// Activation selects an elementwise activation.
type Activation = tensor.Activation

// Supported activations.
const (
	ReLU   = tensor.ReLU
	CReLU  = tensor.CReLU
	SCReLU = tensor.SCReLU
)

// OptimiserKernels is the kernel set parameter updates need.
type OptimiserKernels = tensor.OptimiserKernels

// ExecutionContext is the full kernel set the graph needs.
type ExecutionContext = tensor.ExecutionContext

// CapacityError reports a kernel request larger than a buffer.
type CapacityError = tensor.CapacityError

// ErrIllegalAddressAccess is matched by every *CapacityError.
var ErrIllegalAddressAccess = tensor.ErrIllegalAddressAccess
