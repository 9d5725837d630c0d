package ops

import "github.com/liamt19/bullet/internal/tensor"

// Concat stacks two column vectors.
type Concat struct{}

// Name returns "concat".
func (Concat) Name() string {
	return "concat"
}

// OutputShape returns (rowsA + rowsB, 1).
func (op Concat) OutputShape(inputs []tensor.Shape) (tensor.Shape, error) {
	if err := expectInputs(op.Name(), inputs, 2); err != nil {
		return tensor.Shape{}, err
	}
	if !inputs[0].IsVector() || !inputs[1].IsVector() {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrNotVector, "inputs must be vectors")
	}
	return tensor.Vector(inputs[0].Rows + inputs[1].Rows), nil
}

// Forward writes [a; b].
func (op Concat) Forward(ctx tensor.ExecutionContext, inputs []*tensor.Tensor, output *tensor.Tensor) error {
	a, b := inputs[0], inputs[1]
	return ctx.Concat(a.Shape().Size(), b.Shape().Size(), a.Values(), b.Values(), output.Values())
}

// Backward routes each half of dO to its input.
func (op Concat) Backward(ctx tensor.ExecutionContext, output *tensor.Tensor, inputs []*tensor.Tensor) error {
	outGrad := output.Gradients()
	if outGrad == nil {
		return nil
	}
	a, b := inputs[0], inputs[1]
	sizeA := a.Shape().Size()

	if a.RequiresGrad() {
		if err := ctx.SliceAccumulate(0, sizeA, outGrad, a.Gradients()); err != nil {
			return err
		}
	}
	if b.RequiresGrad() {
		if err := ctx.SliceAccumulate(sizeA, b.Shape().Size(), outGrad, b.Gradients()); err != nil {
			return err
		}
	}
	return nil
}
