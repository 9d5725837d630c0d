// Package ops defines the typed operations a graph node can run.
//
// Each operation provides:
//   - OutputShape: the shape-inference rule, applied once at build time
//   - Forward: reads the parents' values and writes the node's values
//   - Backward: reads the node's gradient and the parents' values and adds
//     into the parents' gradients
//
// Backward issues one kernel per writable gradient buffer, so two inputs are
// never written by the same kernel call even when they share storage.
//
// Supported operations:
//   - SubmatrixProduct: Aᵀ·B of two vectors read as m-row block matrices
//   - Affine: W·x + b
//   - SparseAffine: W·x + b for a sparse binary x
//   - Activate: elementwise ReLU / CReLU / SCReLU
//   - Concat: stacks two column vectors
package ops

import "github.com/liamt19/bullet/internal/tensor"

// Operation is a unit of computation in the autograd graph.
type Operation interface {
	// Name identifies the operation in errors.
	Name() string

	// OutputShape infers the output shape from the parents' shapes.
	// It is called exactly once, when the node is added to the graph.
	OutputShape(inputs []tensor.Shape) (tensor.Shape, error)

	// Forward computes the output values from the inputs' values.
	Forward(ctx tensor.ExecutionContext, inputs []*tensor.Tensor, output *tensor.Tensor) error

	// Backward accumulates input gradients given the output gradient.
	// Inputs without a gradient buffer are skipped.
	Backward(ctx tensor.ExecutionContext, output *tensor.Tensor, inputs []*tensor.Tensor) error
}
