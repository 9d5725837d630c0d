package tensor

// Activation selects an elementwise activation function.
type Activation int

// Supported activations.
const (
	ReLU   Activation = iota // max(x, 0)
	CReLU                    // clamp(x, 0, 1)
	SCReLU                   // clamp(x, 0, 1)^2
)

// String returns the activation name.
func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case CReLU:
		return "crelu"
	case SCReLU:
		return "screlu"
	default:
		return "unknown"
	}
}

// Valid reports whether a names a supported activation.
func (a Activation) Valid() bool {
	return a >= ReLU && a <= SCReLU
}

// OptimiserKernels is the subset of kernels parameter-update rules need.
// Backends that cannot run a full graph (e.g. WebGPU) may implement only this.
//
// Every kernel checks size against every buffer it touches before writing and
// returns a *CapacityError if any check fails; a failing call never modifies
// a buffer.
type OptimiserKernels interface {
	// Adam applies one adaptive-moment update to the first size elements:
	//
	//	g = gradientFactor * gradient
	//	m = beta1*m + (1-beta1)*g
	//	v = beta2*v + (1-beta2)*g*g
	//	p -= learningRate * m / (sqrt(v) + 1e-8)   // denom
	//	p -= learningRate * m                      // !denom
	Adam(size int, params, gradient, momentum, velocity *Buffer,
		beta1, beta2, gradientFactor, learningRate float32, denom bool) error

	// Clip clamps the first size parameters to [lo, hi].
	Clip(size int, params *Buffer, lo, hi float32) error

	// Scale multiplies the first size elements by alpha.
	Scale(size int, buf *Buffer, alpha float32) error

	// Metadata
	Name() string
	Device() Device
}

// ExecutionContext is a handle to a compute backend through which the graph
// issues buffer-level kernels.
//
// Matrices are column-major: element (r, c) of an R×C matrix lives at c*R + r.
// Kernels are synchronous; any internal parallelism is hidden from the caller.
// Backward kernels have exactly one writable buffer each and accumulate into
// it rather than overwriting.
//
// Implementations:
//   - CPU: pure Go with gonum BLAS (internal/backend/cpu)
//   - WebGPU: optimiser kernels only (internal/backend/webgpu, windows)
type ExecutionContext interface {
	OptimiserKernels

	// Copy writes src[:size] into dst[:size].
	Copy(size int, dst, src *Buffer) error

	// Accumulate adds alpha*src[:size] into dst[:size].
	Accumulate(size int, dst, src *Buffer, alpha float32) error

	// Concat writes a[:sizeA] followed by b[:sizeB] into out.
	Concat(sizeA, sizeB int, a, b, out *Buffer) error

	// SliceAccumulate adds src[offset:offset+size] into dst[:size].
	SliceAccumulate(offset, size int, src, dst *Buffer) error

	// Activate writes act(in) into out.
	Activate(act Activation, size int, in, out *Buffer) error

	// ActivateBackward adds act'(in) * outGrad into inGrad.
	ActivateBackward(act Activation, size int, in, outGrad, inGrad *Buffer) error

	// Affine computes out = W·x + b for W of shape rows×cols.
	Affine(rows, cols int, weights, bias, input, out *Buffer) error

	// AffineInputGrad adds Wᵀ·outGrad into inGrad.
	AffineInputGrad(rows, cols int, weights, outGrad, inGrad *Buffer) error

	// AffineWeightGrad adds outGrad·xᵀ into wGrad.
	AffineWeightGrad(rows, cols int, input, outGrad, wGrad *Buffer) error

	// SparseAffine computes out = b + Σ W[:, i] over the active indices,
	// W having shape rows×features.
	SparseAffine(rows, features int, weights, bias *Buffer, active []int, out *Buffer) error

	// SparseAffineBackward adds outGrad into W[:, i] for every active index.
	SparseAffineBackward(rows, features int, active []int, outGrad, wGrad *Buffer) error

	// SubmatrixProduct reads a and b (size elements each) as m×(size/m)
	// blocks A and B and writes the column-major flattening of Aᵀ·B into out.
	SubmatrixProduct(m, size int, a, b, out *Buffer) error

	// SubmatrixProductGradLHS adds the gradient of Aᵀ·B with respect to A,
	// B·dOᵀ, into aGrad.
	SubmatrixProductGradLHS(m, size int, b, outGrad, aGrad *Buffer) error

	// SubmatrixProductGradRHS adds the gradient of Aᵀ·B with respect to B,
	// A·dO, into bGrad.
	SubmatrixProductGradRHS(m, size int, a, outGrad, bGrad *Buffer) error
}
