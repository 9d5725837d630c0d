package autodiff_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamt19/bullet/internal/autodiff"
	"github.com/liamt19/bullet/internal/autodiff/ops"
	"github.com/liamt19/bullet/internal/backend/cpu"
	"github.com/liamt19/bullet/internal/tensor"
)

// weightedSum evaluates sum(seed ⊙ out) after a forward pass.
func weightedSum(t *testing.T, g *autodiff.Graph, out autodiff.NodeHandle, seed []float32) float32 {
	t.Helper()
	require.NoError(t, g.Forward(cpu.New()))
	var sum float32
	for i, v := range g.Values(out) {
		sum += seed[i] * v
	}
	return sum
}

// checkGradients compares the analytic gradient of every weight against a
// central finite difference of sum(seed ⊙ out).
func checkGradients(t *testing.T, g *autodiff.Graph, out autodiff.NodeHandle, epsilon, tolerance float32) {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	seed := make([]float32, g.Shape(out).Size())
	for i := range seed {
		seed[i] = rng.Float32()*2 - 1
	}

	g.ZeroGrad()
	require.NoError(t, g.Forward(cpu.New()))
	require.NoError(t, g.SetGradient(out, seed))
	require.NoError(t, g.Backward(cpu.New()))

	for _, w := range g.Weights() {
		values := g.Values(w)
		analytic := append([]float32(nil), g.Gradients(w)...)
		for i := range values {
			orig := values[i]
			values[i] = orig + epsilon
			plus := weightedSum(t, g, out, seed)
			values[i] = orig - epsilon
			minus := weightedSum(t, g, out, seed)
			values[i] = orig

			numerical := (plus - minus) / (2 * epsilon)
			assert.InDelta(t, numerical, analytic[i], float64(tolerance),
				"%s[%d]", g.NameOf(w), i)
		}
	}
}

func randomise(t *testing.T, g *autodiff.Graph, seed uint64, scale float32) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	for _, w := range g.Weights() {
		values := make([]float32, g.Shape(w).Size())
		for i := range values {
			values[i] = (rng.Float32()*2 - 1) * scale
		}
		require.NoError(t, g.SetInput(w, values))
	}
}

func TestNumericalGradient_SubmatrixProduct(t *testing.T) {
	g := autodiff.New(tensor.CPU)
	a := g.AddWeights("a", tensor.Vector(12))
	b := g.AddWeights("b", tensor.Vector(12))
	out, err := g.AddOperation(ops.SubmatrixProduct{M: 3}, a, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Vector(16), g.Shape(out))

	randomise(t, g, 7, 1)
	checkGradients(t, g, out, 1e-2, 1e-2)
}

func TestNumericalGradient_AffineSCReLU(t *testing.T) {
	g := autodiff.New(tensor.CPU)
	w := g.AddWeights("w", tensor.NewShape(4, 3))
	b := g.AddWeights("b", tensor.Vector(4))
	x := g.AddInput("x", tensor.Vector(3))
	hidden, err := g.AddOperation(ops.Affine{}, w, b, x)
	require.NoError(t, err)
	act, err := g.AddOperation(ops.Activate{Act: tensor.SCReLU}, hidden)
	require.NoError(t, err)

	randomise(t, g, 11, 0.1)
	require.NoError(t, g.SetInput(x, []float32{0.5, 1, 0.25}))
	// Keep every pre-activation inside (0, 1) so the check stays off the kinks.
	require.NoError(t, g.SetInput(b, []float32{0.5, 0.5, 0.5, 0.5}))
	checkGradients(t, g, act, 1e-3, 1e-2)
}

func TestNumericalGradient_SmallNetwork(t *testing.T) {
	g := autodiff.New(tensor.CPU)
	ft := g.AddWeights("ft", tensor.NewShape(4, 8))
	ftBias := g.AddWeights("ft_bias", tensor.Vector(4))
	stm := g.AddSparseInput("stm", tensor.Vector(8), 3)
	nstm := g.AddSparseInput("nstm", tensor.Vector(8), 3)
	outW := g.AddWeights("out", tensor.NewShape(1, 8))
	outB := g.AddWeights("out_bias", tensor.Vector(1))

	us, err := g.AddOperation(ops.SparseAffine{}, ft, ftBias, stm)
	require.NoError(t, err)
	them, err := g.AddOperation(ops.SparseAffine{}, ft, ftBias, nstm)
	require.NoError(t, err)
	hidden, err := g.AddOperation(ops.Concat{}, us, them)
	require.NoError(t, err)
	act, err := g.AddOperation(ops.Activate{Act: tensor.SCReLU}, hidden)
	require.NoError(t, err)
	out, err := g.AddOperation(ops.Affine{}, outW, outB, act)
	require.NoError(t, err)

	randomise(t, g, 3, 0.1)
	require.NoError(t, g.SetInput(ftBias, []float32{0.5, 0.5, 0.5, 0.5}))
	require.NoError(t, g.SetSparse(stm, []int{0, 2, 5}))
	require.NoError(t, g.SetSparse(nstm, []int{1, 2, 7}))
	checkGradients(t, g, out, 1e-3, 1e-2)
}
