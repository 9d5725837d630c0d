// Copyright 2025 The Bullet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff builds and runs autograd computation graphs.
//
// Nodes are added in topological order and referred to by NodeHandle.
// Shapes are validated once, when an operation is added; Forward runs the
// nodes in build order and Backward in reverse.
//
// Example:
//
//	g := autodiff.New(tensor.CPU)
//	w := g.AddWeights("w", tensor.NewShape(8, 4))
//	b := g.AddWeights("b", tensor.Vector(8))
//	x := g.AddInput("x", tensor.Vector(4))
//	y, err := g.AddOperation(autodiff.Affine{}, w, b, x)
//	if err != nil {
//	    return err
//	}
//	ctx := cpu.New()
//	_ = g.Forward(ctx)
//	_ = g.SetGradient(y, grad)
//	_ = g.Backward(ctx)
package autodiff

import (
	"github.com/liamt19/bullet/internal/autodiff"
	"github.com/liamt19/bullet/internal/autodiff/ops"
	"github.com/liamt19/bullet/tensor"
)

// Graph is an append-only DAG of tensors and operations.
type Graph = autodiff.Graph

// NodeHandle refers to a node of a Graph.
type NodeHandle = autodiff.NodeHandle

// New returns an empty graph whose buffers live on device.
func New(device tensor.Device) *Graph {
	return autodiff.New(device)
}

// Error types reported by graph construction and execution.
type (
	NodeError   = autodiff.NodeError
	HandleError = autodiff.HandleError
	KindError   = autodiff.KindError
	ShapeError  = ops.ShapeError
)

// Operation is a unit of computation in the graph.
type Operation = ops.Operation

// Supported operations.
type (
	SubmatrixProduct = ops.SubmatrixProduct
	Affine           = ops.Affine
	SparseAffine     = ops.SparseAffine
	Activate         = ops.Activate
	Concat           = ops.Concat
)
