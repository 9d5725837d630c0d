package ops_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamt19/bullet/internal/autodiff/ops"
	"github.com/liamt19/bullet/internal/backend/cpu"
	"github.com/liamt19/bullet/internal/tensor"
)

func vectorOf(t *testing.T, withGrad bool, data ...float32) *tensor.Tensor {
	t.Helper()
	v := tensor.New(tensor.Vector(len(data)), withGrad, tensor.CPU)
	require.NoError(t, v.Values().CopyFrom(data))
	return v
}

func TestSubmatrixProduct_OutputShape(t *testing.T) {
	op := ops.SubmatrixProduct{M: 2}

	t.Run("Valid", func(t *testing.T) {
		for _, tc := range []struct{ rows, m, want int }{
			{6, 2, 9},
			{6, 3, 4},
			{8, 2, 16},
			{12, 4, 9},
			{5, 5, 1},
			{16, 1, 256},
		} {
			shape, err := ops.SubmatrixProduct{M: tc.m}.OutputShape(
				[]tensor.Shape{tensor.Vector(tc.rows), tensor.Vector(tc.rows)})
			require.NoError(t, err, "rows=%d m=%d", tc.rows, tc.m)
			assert.Equal(t, tensor.Vector(tc.want), shape)

			n := tc.rows / tc.m
			assert.Equal(t, n*n, shape.Rows)
		}
	})

	tests := []struct {
		name   string
		inputs []tensor.Shape
		want   error
	}{
		{"OneInput", []tensor.Shape{tensor.Vector(6)}, ops.ErrArity},
		{"ThreeInputs", []tensor.Shape{tensor.Vector(6), tensor.Vector(6), tensor.Vector(6)}, ops.ErrArity},
		{"ShapeMismatch", []tensor.Shape{tensor.Vector(6), tensor.Vector(4)}, ops.ErrShapeMismatch},
		{"NotVector", []tensor.Shape{tensor.NewShape(6, 2), tensor.NewShape(6, 2)}, ops.ErrNotVector},
		{"NotDivisible", []tensor.Shape{tensor.Vector(7), tensor.Vector(7)}, ops.ErrNotDivisible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := op.OutputShape(tt.inputs)
			require.ErrorIs(t, err, tt.want)

			var shapeErr *ops.ShapeError
			require.True(t, errors.As(err, &shapeErr))
			assert.Equal(t, "submatrix product", shapeErr.Op)
			assert.Equal(t, tt.inputs, shapeErr.Shapes)
		})
	}

	t.Run("MessageNamesShapes", func(t *testing.T) {
		_, err := op.OutputShape([]tensor.Shape{tensor.Vector(6), tensor.Vector(4)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "6x1 != 4x1")
	})
}

func TestSubmatrixProduct_ForwardBackward(t *testing.T) {
	backend := cpu.New()
	op := ops.SubmatrixProduct{M: 2}

	a := vectorOf(t, true, 1, 2, 3, 4, 5, 6)
	b := vectorOf(t, true, 6, 5, 4, 3, 2, 1)
	out := tensor.New(tensor.Vector(9), true, tensor.CPU)

	require.NoError(t, op.Forward(backend, []*tensor.Tensor{a, b}, out))
	assert.InDeltaSlice(t, []float32{16, 38, 60, 10, 24, 38, 4, 10, 16}, out.Values().All(), 1e-5)

	require.NoError(t, out.Gradients().CopyFrom([]float32{1, 1, 1, 1, 1, 1, 1, 1, 1}))
	require.NoError(t, op.Backward(backend, out, []*tensor.Tensor{a, b}))
	assert.InDeltaSlice(t, []float32{12, 9, 12, 9, 12, 9}, a.Gradients().All(), 1e-5)
	assert.InDeltaSlice(t, []float32{9, 12, 9, 12, 9, 12}, b.Gradients().All(), 1e-5)
}

func TestSubmatrixProduct_SameInputTwice(t *testing.T) {
	// x used as both operands: d(xᵀx)/dx must receive both contributions.
	backend := cpu.New()
	op := ops.SubmatrixProduct{M: 1}

	x := vectorOf(t, true, 3)
	out := tensor.New(tensor.Vector(1), true, tensor.CPU)

	require.NoError(t, op.Forward(backend, []*tensor.Tensor{x, x}, out))
	assert.InDelta(t, 9, out.Values().All()[0], 1e-6)

	require.NoError(t, out.Gradients().CopyFrom([]float32{1}))
	require.NoError(t, op.Backward(backend, out, []*tensor.Tensor{x, x}))
	assert.InDelta(t, 6, x.Gradients().All()[0], 1e-6)
}

func TestAffine_OutputShape(t *testing.T) {
	op := ops.Affine{}

	shape, err := op.OutputShape([]tensor.Shape{tensor.NewShape(2, 3), tensor.Vector(2), tensor.Vector(3)})
	require.NoError(t, err)
	assert.Equal(t, tensor.Vector(2), shape)

	_, err = op.OutputShape([]tensor.Shape{tensor.NewShape(2, 3), tensor.Vector(2), tensor.Vector(4)})
	require.ErrorIs(t, err, ops.ErrShapeMismatch)

	_, err = op.OutputShape([]tensor.Shape{tensor.NewShape(2, 3), tensor.Vector(3), tensor.Vector(3)})
	require.ErrorIs(t, err, ops.ErrShapeMismatch)

	_, err = op.OutputShape([]tensor.Shape{tensor.NewShape(2, 3), tensor.Vector(2)})
	require.ErrorIs(t, err, ops.ErrArity)
}

func TestActivate_OutputShape(t *testing.T) {
	for _, act := range []tensor.Activation{tensor.ReLU, tensor.CReLU, tensor.SCReLU} {
		shape, err := ops.Activate{Act: act}.OutputShape([]tensor.Shape{tensor.Vector(4)})
		require.NoError(t, err, act.String())
		assert.Equal(t, tensor.Vector(4), shape)
	}

	_, err := ops.Activate{Act: tensor.Activation(9)}.OutputShape([]tensor.Shape{tensor.Vector(4)})
	require.ErrorIs(t, err, ops.ErrUnknownActivation)
	assert.Contains(t, err.Error(), "unsupported activation 9")

	_, err = ops.Activate{Act: tensor.Activation(-1)}.OutputShape([]tensor.Shape{tensor.Vector(4)})
	require.ErrorIs(t, err, ops.ErrUnknownActivation)
}

func TestSparseAffine(t *testing.T) {
	backend := cpu.New()
	op := ops.SparseAffine{}

	shape, err := op.OutputShape([]tensor.Shape{tensor.NewShape(2, 3), tensor.Vector(2), tensor.Vector(3)})
	require.NoError(t, err)
	assert.Equal(t, tensor.Vector(2), shape)

	w := tensor.New(tensor.NewShape(2, 3), true, tensor.CPU)
	require.NoError(t, w.Values().CopyFrom([]float32{1, 10, 2, 20, 3, 30}))
	b := vectorOf(t, true, 0, 1)
	x := tensor.NewSparse(tensor.Vector(3), 2, tensor.CPU)
	require.NoError(t, x.SetActive([]int{1, 2}))
	out := tensor.New(shape, true, tensor.CPU)

	require.NoError(t, op.Forward(backend, []*tensor.Tensor{w, b, x}, out))
	assert.InDeltaSlice(t, []float32{5, 51}, out.Values().All(), 1e-6)

	require.NoError(t, out.Gradients().CopyFrom([]float32{1, 2}))
	require.NoError(t, op.Backward(backend, out, []*tensor.Tensor{w, b, x}))
	assert.Equal(t, []float32{0, 0, 1, 2, 1, 2}, w.Gradients().All())
	assert.Equal(t, []float32{1, 2}, b.Gradients().All())

	dense := vectorOf(t, false, 1, 0, 0)
	err = op.Forward(backend, []*tensor.Tensor{w, b, dense}, out)
	require.ErrorIs(t, err, ops.ErrSparseRequired)
}

func TestConcat(t *testing.T) {
	backend := cpu.New()
	op := ops.Concat{}

	_, err := op.OutputShape([]tensor.Shape{tensor.Vector(2), tensor.NewShape(2, 2)})
	require.ErrorIs(t, err, ops.ErrNotVector)

	a := vectorOf(t, true, 1, 2)
	b := vectorOf(t, true, 3)
	out := tensor.New(tensor.Vector(3), true, tensor.CPU)

	require.NoError(t, op.Forward(backend, []*tensor.Tensor{a, b}, out))
	assert.Equal(t, []float32{1, 2, 3}, out.Values().All())

	require.NoError(t, out.Gradients().CopyFrom([]float32{4, 5, 6}))
	require.NoError(t, op.Backward(backend, out, []*tensor.Tensor{a, b}))
	assert.Equal(t, []float32{4, 5}, a.Gradients().All())
	assert.Equal(t, []float32{6}, b.Gradients().All())
}

func TestActivate_SkipsInputsWithoutGrad(t *testing.T) {
	backend := cpu.New()
	op := ops.Activate{Act: tensor.ReLU}

	x := vectorOf(t, false, -1, 2)
	out := tensor.New(tensor.Vector(2), true, tensor.CPU)

	require.NoError(t, op.Forward(backend, []*tensor.Tensor{x}, out))
	assert.Equal(t, []float32{0, 2}, out.Values().All())
	require.NoError(t, op.Backward(backend, out, []*tensor.Tensor{x}))
	assert.Nil(t, x.Gradients())
}
