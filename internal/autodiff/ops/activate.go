package ops

import "github.com/liamt19/bullet/internal/tensor"

// Activate applies an elementwise activation.
type Activate struct {
	Act tensor.Activation
}

// Name returns the activation name.
func (op Activate) Name() string {
	return "activate " + op.Act.String()
}

// OutputShape returns the input shape.
func (op Activate) OutputShape(inputs []tensor.Shape) (tensor.Shape, error) {
	if err := expectInputs(op.Name(), inputs, 1); err != nil {
		return tensor.Shape{}, err
	}
	if !op.Act.Valid() {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrUnknownActivation, "unsupported activation %d", int(op.Act))
	}
	return inputs[0], nil
}

// Forward writes act(x).
func (op Activate) Forward(ctx tensor.ExecutionContext, inputs []*tensor.Tensor, output *tensor.Tensor) error {
	return ctx.Activate(op.Act, output.Shape().Size(), inputs[0].Values(), output.Values())
}

// Backward adds act'(x)·dO into dx.
func (op Activate) Backward(ctx tensor.ExecutionContext, output *tensor.Tensor, inputs []*tensor.Tensor) error {
	outGrad := output.Gradients()
	if outGrad == nil || !inputs[0].RequiresGrad() {
		return nil
	}
	return ctx.ActivateBackward(op.Act, output.Shape().Size(), inputs[0].Values(), outGrad, inputs[0].Gradients())
}
