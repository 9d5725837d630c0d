package ops

import "github.com/liamt19/bullet/internal/tensor"

// Affine computes W·x + b for inputs [W (R×C), b (R×1), x (C×1)].
//
// Backward pass:
//   - dW += dO · xᵀ
//   - db += dO
//   - dx += Wᵀ · dO
type Affine struct{}

// Name returns "affine".
func (Affine) Name() string {
	return "affine"
}

// OutputShape returns (R, 1).
func (op Affine) OutputShape(inputs []tensor.Shape) (tensor.Shape, error) {
	if err := expectInputs(op.Name(), inputs, 3); err != nil {
		return tensor.Shape{}, err
	}
	w, b, x := inputs[0], inputs[1], inputs[2]
	if !x.IsVector() || !b.IsVector() {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrNotVector, "bias and input must be vectors")
	}
	out, err := w.Mul(x)
	if err != nil {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrShapeMismatch,
			"weights %s cannot multiply input %s", w, x)
	}
	if out != b {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrShapeMismatch,
			"bias %s does not match output %s", b, out)
	}
	return out, nil
}

// Forward writes W·x + b.
func (op Affine) Forward(ctx tensor.ExecutionContext, inputs []*tensor.Tensor, output *tensor.Tensor) error {
	w := inputs[0].Shape()
	return ctx.Affine(w.Rows, w.Cols, inputs[0].Values(), inputs[1].Values(), inputs[2].Values(), output.Values())
}

// Backward accumulates weight, bias and input gradients.
func (op Affine) Backward(ctx tensor.ExecutionContext, output *tensor.Tensor, inputs []*tensor.Tensor) error {
	outGrad := output.Gradients()
	if outGrad == nil {
		return nil
	}
	w, b, x := inputs[0], inputs[1], inputs[2]
	rows, cols := w.Shape().Rows, w.Shape().Cols

	if w.RequiresGrad() {
		if err := ctx.AffineWeightGrad(rows, cols, x.Values(), outGrad, w.Gradients()); err != nil {
			return err
		}
	}
	if b.RequiresGrad() {
		if err := ctx.Accumulate(rows, b.Gradients(), outGrad, 1); err != nil {
			return err
		}
	}
	if x.RequiresGrad() {
		if err := ctx.AffineInputGrad(rows, cols, w.Values(), outGrad, x.Gradients()); err != nil {
			return err
		}
	}
	return nil
}
