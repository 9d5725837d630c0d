package cpu

import (
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/liamt19/bullet/internal/tensor"
)

// checkActive rejects any feature index whose weight column would fall
// outside a rows×features matrix.
func checkActive(op string, rows, features int, active []int, weights *tensor.Buffer) error {
	for _, idx := range active {
		if idx < 0 || idx >= features {
			return &tensor.CapacityError{Op: op, Requested: (idx + 1) * rows, Capacity: rows * features}
		}
	}
	return tensor.CheckCapacity(op, rows*features, weights)
}

// SparseAffine computes out = b + Σ W[:, i] over the active feature indices.
func (cpu *CPUBackend) SparseAffine(rows, features int, weights, bias *tensor.Buffer, active []int, out *tensor.Buffer) error {
	if err := checkActive("sparse affine", rows, features, active, weights); err != nil {
		return err
	}
	v, err := acquire("sparse affine", use(weights, rows*features), use(bias, rows), use(out, rows))
	if err != nil {
		return err
	}
	w, b, y := v[0], v[1], v[2]
	copy(y, b)
	if rows == 0 {
		return nil
	}
	for _, idx := range active {
		blas32.Axpy(1, vec(w[idx*rows:(idx+1)*rows]), vec(y))
	}
	return nil
}

// SparseAffineBackward adds outGrad into every active weight column.
func (cpu *CPUBackend) SparseAffineBackward(rows, features int, active []int, outGrad, wGrad *tensor.Buffer) error {
	if err := checkActive("sparse affine backward", rows, features, active, wGrad); err != nil {
		return err
	}
	v, err := acquire("sparse affine backward", use(outGrad, rows), use(wGrad, rows*features))
	if err != nil {
		return err
	}
	g, dw := v[0], v[1]
	if rows == 0 {
		return nil
	}
	for _, idx := range active {
		blas32.Axpy(1, vec(g), vec(dw[idx*rows:(idx+1)*rows]))
	}
	return nil
}
