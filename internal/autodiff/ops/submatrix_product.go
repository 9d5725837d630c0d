package ops

import "github.com/liamt19/bullet/internal/tensor"

// SubmatrixProduct reinterprets each of two equal-length column vectors as an
// M-row block matrix (rows/M columns) and computes transpose(A) × B, emitting
// the (rows/M)×(rows/M) product as a column vector.
//
// Backward pass:
//   - dA = B · dOᵀ
//   - dB = A · dO
//
// Each gradient is written by its own kernel call.
type SubmatrixProduct struct {
	M int // Rows per block
}

// Name returns "submatrix product".
func (op SubmatrixProduct) Name() string {
	return "submatrix product"
}

// OutputShape validates the inputs and returns ((rows/M)², 1).
func (op SubmatrixProduct) OutputShape(inputs []tensor.Shape) (tensor.Shape, error) {
	if err := expectInputs(op.Name(), inputs, 2); err != nil {
		return tensor.Shape{}, err
	}
	if inputs[0] != inputs[1] {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrShapeMismatch,
			"inputs must have same shape: %s != %s", inputs[0], inputs[1])
	}
	if !inputs[0].IsVector() {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrNotVector, "input must be a vector")
	}
	if op.M <= 0 || inputs[0].Rows%op.M != 0 {
		return tensor.Shape{}, shapeError(op.Name(), inputs, ErrNotDivisible,
			"input vector (%s) must have dimension divisible by %d", inputs[0], op.M)
	}

	block := tensor.NewShape(op.M, inputs[0].Rows/op.M)
	product, err := block.Transpose().Mul(block)
	if err != nil {
		return tensor.Shape{}, err
	}
	return tensor.Vector(product.Size()), nil
}

// Forward writes Aᵀ·B into the output.
func (op SubmatrixProduct) Forward(ctx tensor.ExecutionContext, inputs []*tensor.Tensor, output *tensor.Tensor) error {
	size := inputs[0].Shape().Size()
	return ctx.SubmatrixProduct(op.M, size, inputs[0].Values(), inputs[1].Values(), output.Values())
}

// Backward adds B·dOᵀ into dA and A·dO into dB.
func (op SubmatrixProduct) Backward(ctx tensor.ExecutionContext, output *tensor.Tensor, inputs []*tensor.Tensor) error {
	outGrad := output.Gradients()
	if outGrad == nil {
		return nil
	}
	a, b := inputs[0], inputs[1]
	size := a.Shape().Size()

	if a.RequiresGrad() {
		if err := ctx.SubmatrixProductGradLHS(op.M, size, b.Values(), outGrad, a.Gradients()); err != nil {
			return err
		}
	}
	if b.RequiresGrad() {
		if err := ctx.SubmatrixProductGradRHS(op.M, size, a.Values(), outGrad, b.Gradients()); err != nil {
			return err
		}
	}
	return nil
}
