package tensor

import "fmt"

// Tensor pairs a value buffer with an optional gradient buffer of the same
// shape. Sparse input tensors also carry the indices of their active features.
//
// Example:
//
//	t := tensor.New(tensor.Vector(8), true, tensor.CPU)
//	_ = t.Values().CopyFrom(data)
//	t.ZeroGrad()
type Tensor struct {
	shape     Shape
	values    *Buffer
	grads     *Buffer // nil when the tensor does not take part in backprop
	sparse    []int   // active feature indices for sparse inputs
	maxActive int     // capacity of sparse, 0 for dense tensors
}

// New allocates a dense tensor. A gradient buffer is allocated iff withGrad.
func New(shape Shape, withGrad bool, device Device) *Tensor {
	t := &Tensor{
		shape:  shape,
		values: NewBuffer(shape.Size(), device),
	}
	if withGrad {
		t.grads = NewBuffer(shape.Size(), device)
	}
	return t
}

// NewSparse allocates a sparse input tensor with room for maxActive features.
// It owns no dense values; kernels read the active indices instead.
func NewSparse(shape Shape, maxActive int, device Device) *Tensor {
	return &Tensor{
		shape:     shape,
		values:    NewBuffer(0, device),
		sparse:    make([]int, 0, maxActive),
		maxActive: maxActive,
	}
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Values returns the value buffer.
func (t *Tensor) Values() *Buffer {
	return t.values
}

// Gradients returns the gradient buffer, or nil when gradients are not tracked.
func (t *Tensor) Gradients() *Buffer {
	return t.grads
}

// RequiresGrad reports whether the tensor owns a gradient buffer.
func (t *Tensor) RequiresGrad() bool {
	return t.grads != nil
}

// IsSparse reports whether the tensor is a sparse feature input.
func (t *Tensor) IsSparse() bool {
	return t.maxActive > 0
}

// Active returns the active feature indices of a sparse tensor.
func (t *Tensor) Active() []int {
	return t.sparse
}

// MaxActive returns the sparse index capacity.
func (t *Tensor) MaxActive() int {
	return t.maxActive
}

// SetActive replaces the active feature indices of a sparse tensor.
// Indices must lie in [0, Rows) and fit the declared capacity.
func (t *Tensor) SetActive(indices []int) error {
	if !t.IsSparse() {
		return fmt.Errorf("set active: tensor %s is dense", t.shape)
	}
	if len(indices) > t.maxActive {
		return &CapacityError{Op: "set active", Requested: len(indices), Capacity: t.maxActive}
	}
	for _, idx := range indices {
		if idx < 0 || idx >= t.shape.Rows {
			return fmt.Errorf("set active: feature %d out of range [0, %d)", idx, t.shape.Rows)
		}
	}
	t.sparse = append(t.sparse[:0], indices...)
	return nil
}

// ZeroGrad clears the gradient buffer if present.
func (t *Tensor) ZeroGrad() {
	if t.grads != nil {
		t.grads.Zero()
	}
}
