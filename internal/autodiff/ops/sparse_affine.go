package ops

import (
	"fmt"

	"github.com/liamt19/bullet/internal/tensor"
)

// SparseAffine computes W·x + b for inputs [W (R×F), b (R×1), x (F×1 sparse)],
// where x is binary and given by its active feature indices. This is the
// feature transformer of an NNUE network.
//
// Backward pass:
//   - dW[:, i] += dO for every active i
//   - db += dO
//
// Sparse inputs never receive gradients.
type SparseAffine struct{}

// Name returns "sparse affine".
func (SparseAffine) Name() string {
	return "sparse affine"
}

// OutputShape returns (R, 1).
func (op SparseAffine) OutputShape(inputs []tensor.Shape) (tensor.Shape, error) {
	if err := expectInputs(op.Name(), inputs, 3); err != nil {
		return tensor.Shape{}, err
	}
	w, b, x := inputs[0], inputs[1], inputs[2]
	if !x.IsVector() || !b.IsVector() {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrNotVector, "bias and input must be vectors")
	}
	if w.Cols != x.Rows || w.Rows != b.Rows {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrShapeMismatch,
			"weights %s incompatible with bias %s and input %s", w, b, x)
	}
	return tensor.Vector(w.Rows), nil
}

// Forward writes b plus the weight columns of the active features.
func (op SparseAffine) Forward(ctx tensor.ExecutionContext, inputs []*tensor.Tensor, output *tensor.Tensor) error {
	x := inputs[2]
	if !x.IsSparse() {
		return fmt.Errorf("%s: %w", op.Name(), ErrSparseRequired)
	}
	w := inputs[0].Shape()
	return ctx.SparseAffine(w.Rows, w.Cols, inputs[0].Values(), inputs[1].Values(), x.Active(), output.Values())
}

// Backward scatters the output gradient into the active weight columns and
// the bias.
func (op SparseAffine) Backward(ctx tensor.ExecutionContext, output *tensor.Tensor, inputs []*tensor.Tensor) error {
	outGrad := output.Gradients()
	if outGrad == nil {
		return nil
	}
	w, b, x := inputs[0], inputs[1], inputs[2]
	rows, features := w.Shape().Rows, w.Shape().Cols

	if w.RequiresGrad() {
		if err := ctx.SparseAffineBackward(rows, features, x.Active(), outGrad, w.Gradients()); err != nil {
			return err
		}
	}
	if b.RequiresGrad() {
		if err := ctx.Accumulate(rows, b.Gradients(), outGrad, 1); err != nil {
			return err
		}
	}
	return nil
}
