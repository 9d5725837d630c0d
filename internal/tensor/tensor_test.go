package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	s := NewShape(3, 4)
	assert.Equal(t, 12, s.Size())
	assert.Equal(t, NewShape(4, 3), s.Transpose())
	assert.Equal(t, "3x4", s.String())
	assert.False(t, s.IsVector())
	assert.True(t, Vector(5).IsVector())

	out, err := s.Mul(NewShape(4, 2))
	require.NoError(t, err)
	assert.Equal(t, NewShape(3, 2), out)

	_, err = s.Mul(NewShape(3, 2))
	assert.Error(t, err)

	assert.NoError(t, s.Validate())
	assert.Error(t, NewShape(0, 1).Validate())
}

func TestBuffer_SliceChecksCapacity(t *testing.T) {
	b := NewBuffer(4, CPU)
	assert.Equal(t, 4, b.Size())
	assert.Equal(t, CPU, b.Device())

	view, err := b.Slice(4)
	require.NoError(t, err)
	view[2] = 7
	assert.Equal(t, []float32{0, 0, 7, 0}, b.All())

	_, err = b.Slice(5)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 5, capErr.Requested)
	assert.Equal(t, 4, capErr.Capacity)
	assert.True(t, errors.Is(err, ErrIllegalAddressAccess))

	empty, err := b.Slice(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBuffer_CopyAndClone(t *testing.T) {
	b := NewBuffer(3, WebGPU)
	require.NoError(t, b.CopyFrom([]float32{1, 2, 3}))
	assert.Error(t, b.CopyFrom([]float32{1, 2, 3, 4}))

	dst := make([]float32, 2)
	require.NoError(t, b.CopyTo(dst))
	assert.Equal(t, []float32{1, 2}, dst)

	raw, err := b.Bytes(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, raw)

	c := b.Clone()
	b.Zero()
	assert.Equal(t, []float32{1, 2, 3}, c.All())
	assert.Equal(t, []float32{0, 0, 0}, b.All())
	assert.Equal(t, WebGPU, c.Device())
}

func TestCheckCapacity(t *testing.T) {
	a, b := NewBuffer(4, CPU), NewBuffer(2, CPU)
	assert.NoError(t, CheckCapacity("op", 2, a, b))
	assert.ErrorIs(t, CheckCapacity("op", 3, a, b), ErrIllegalAddressAccess)
	assert.ErrorIs(t, CheckCapacity("op", -1, a), ErrIllegalAddressAccess)
	assert.ErrorIs(t, CheckCapacity("op", 1, a, nil), ErrIllegalAddressAccess)
	assert.EqualError(t, CheckCapacity("adam", 3, b),
		"adam: requested 3 elements but buffer holds 2: illegal address access")
}

func TestTensor_Dense(t *testing.T) {
	x := New(Vector(3), true, CPU)
	assert.True(t, x.RequiresGrad())
	assert.False(t, x.IsSparse())
	require.NoError(t, x.Gradients().CopyFrom([]float32{1, 1, 1}))
	x.ZeroGrad()
	assert.Equal(t, []float32{0, 0, 0}, x.Gradients().All())

	assert.Nil(t, New(Vector(3), false, CPU).Gradients())
	assert.Error(t, x.SetActive([]int{0}))
}

func TestTensor_Sparse(t *testing.T) {
	x := NewSparse(Vector(10), 2, CPU)
	assert.True(t, x.IsSparse())
	assert.Equal(t, 2, x.MaxActive())

	require.NoError(t, x.SetActive([]int{3, 9}))
	assert.Equal(t, []int{3, 9}, x.Active())

	assert.ErrorIs(t, x.SetActive([]int{1, 2, 3}), ErrIllegalAddressAccess)
	assert.Error(t, x.SetActive([]int{10}))
	assert.Equal(t, []int{3, 9}, x.Active(), "rejected updates keep the old indices")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "screlu", SCReLU.String())
	assert.Equal(t, "CPU", CPU.String())
	assert.Equal(t, 2, Float16.Size())
	assert.Equal(t, 4, Float32.Size())
}
