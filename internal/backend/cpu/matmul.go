package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/liamt19/bullet/internal/tensor"
)

// Column-major R×C data is handed to gonum (row-major) as its C×R transpose
// with stride R. All products below are written in that transposed view.

func colMajorT(data []float32, rows, cols int) blas32.General {
	return blas32.General{Rows: cols, Cols: rows, Stride: rows, Data: data}
}

func vec(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}

// Affine computes out = W·x + b for W of shape rows×cols.
func (cpu *CPUBackend) Affine(rows, cols int, weights, bias, input, out *tensor.Buffer) error {
	v, err := acquire("affine",
		use(weights, rows*cols), use(bias, rows), use(input, cols), use(out, rows))
	if err != nil {
		return err
	}
	w, b, x, y := v[0], v[1], v[2], v[3]
	copy(y, b)
	if rows == 0 || cols == 0 {
		return nil
	}
	// y = Wᵀᵀ·x, i.e. Trans of the C×R row-major view.
	blas32.Gemv(blas.Trans, 1, colMajorT(w, rows, cols), vec(x), 1, vec(y))
	return nil
}

// AffineInputGrad adds Wᵀ·outGrad into inGrad.
func (cpu *CPUBackend) AffineInputGrad(rows, cols int, weights, outGrad, inGrad *tensor.Buffer) error {
	v, err := acquire("affine input grad",
		use(weights, rows*cols), use(outGrad, rows), use(inGrad, cols))
	if err != nil {
		return err
	}
	if rows == 0 || cols == 0 {
		return nil
	}
	blas32.Gemv(blas.NoTrans, 1, colMajorT(v[0], rows, cols), vec(v[1]), 1, vec(v[2]))
	return nil
}

// AffineWeightGrad adds outGrad·xᵀ into wGrad.
func (cpu *CPUBackend) AffineWeightGrad(rows, cols int, input, outGrad, wGrad *tensor.Buffer) error {
	v, err := acquire("affine weight grad",
		use(input, cols), use(outGrad, rows), use(wGrad, rows*cols))
	if err != nil {
		return err
	}
	if rows == 0 || cols == 0 {
		return nil
	}
	// Transposed view: dWᵀ += x·gᵀ.
	blas32.Ger(1, vec(v[0]), vec(v[1]), colMajorT(v[2], rows, cols))
	return nil
}

// blocks validates the submatrix split and returns the block column count.
func blocks(op string, m, size int) (int, error) {
	if m <= 0 || size%m != 0 {
		return 0, fmt.Errorf("%s: size %d is not divisible by %d", op, size, m)
	}
	return size / m, nil
}

// SubmatrixProduct writes the column-major flattening of Aᵀ·B into out,
// where A and B are a and b read as m×n blocks (n = size/m).
//
// Viewed row-major, A and B are n×m matrices A' and B' and the output
// O'[j][i] = out[j*n+i] = A'_i · B'_j, so O' = B'·A'ᵀ.
func (cpu *CPUBackend) SubmatrixProduct(m, size int, a, b, out *tensor.Buffer) error {
	n, err := blocks("submatrix product", m, size)
	if err != nil {
		return err
	}
	v, err := acquire("submatrix product", use(a, size), use(b, size), use(out, n*n))
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	blas32.Gemm(blas.NoTrans, blas.Trans, 1, rowBlocks(v[1], n, m), rowBlocks(v[0], n, m), 0, rowBlocks(v[2], n, n))
	return nil
}

// SubmatrixProductGradLHS adds dA' = dO'ᵀ·B' into aGrad.
func (cpu *CPUBackend) SubmatrixProductGradLHS(m, size int, b, outGrad, aGrad *tensor.Buffer) error {
	n, err := blocks("submatrix product grad lhs", m, size)
	if err != nil {
		return err
	}
	v, err := acquire("submatrix product grad lhs", use(b, size), use(outGrad, n*n), use(aGrad, size))
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	blas32.Gemm(blas.Trans, blas.NoTrans, 1, rowBlocks(v[1], n, n), rowBlocks(v[0], n, m), 1, rowBlocks(v[2], n, m))
	return nil
}

// SubmatrixProductGradRHS adds dB' = dO'·A' into bGrad.
func (cpu *CPUBackend) SubmatrixProductGradRHS(m, size int, a, outGrad, bGrad *tensor.Buffer) error {
	n, err := blocks("submatrix product grad rhs", m, size)
	if err != nil {
		return err
	}
	v, err := acquire("submatrix product grad rhs", use(a, size), use(outGrad, n*n), use(bGrad, size))
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, rowBlocks(v[1], n, n), rowBlocks(v[0], n, m), 1, rowBlocks(v[2], n, m))
	return nil
}

func rowBlocks(data []float32, rows, cols int) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: data}
}
