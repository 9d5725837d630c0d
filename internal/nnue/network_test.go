package nnue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamt19/bullet/internal/backend/cpu"
	"github.com/liamt19/bullet/internal/nnue"
	"github.com/liamt19/bullet/internal/tensor"
)

func smallConfig() nnue.Config {
	return nnue.Config{
		Inputs:     12,
		MaxActive:  4,
		Hidden:     8,
		Activation: tensor.SCReLU,
		Seed:       42,
	}
}

func param(t *testing.T, n *nnue.Network, name string) []float32 {
	t.Helper()
	h, ok := n.Param(name)
	require.True(t, ok, name)
	return n.Graph().Values(h)
}

func grad(t *testing.T, n *nnue.Network, name string) []float32 {
	t.Helper()
	h, ok := n.Param(name)
	require.True(t, ok, name)
	return n.Graph().Gradients(h)
}

func TestNew_Shapes(t *testing.T) {
	n, err := nnue.New(smallConfig())
	require.NoError(t, err)

	names := make([]string, 0, 4)
	for _, p := range n.Params() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{nnue.FtWeight, nnue.FtBias, nnue.OutWeight, nnue.OutBias}, names)

	g := n.Graph()
	h, _ := n.Param(nnue.FtWeight)
	assert.Equal(t, tensor.NewShape(8, 12), g.Shape(h))
	h, _ = n.Param(nnue.OutWeight)
	assert.Equal(t, tensor.NewShape(1, 16), g.Shape(h))

	_, ok := n.Param("missing")
	assert.False(t, ok)
}

func TestNew_PairwiseStage(t *testing.T) {
	cfg := smallConfig()
	cfg.PairwiseM = 2
	n, err := nnue.New(cfg)
	require.NoError(t, err)

	h, _ := n.Param(nnue.OutWeight)
	assert.Equal(t, tensor.NewShape(1, 32), n.Graph().Shape(h), "two perspectives of (8/2)² each")

	cfg.PairwiseM = 3
	_, err = nnue.New(cfg)
	assert.Error(t, err, "hidden size must divide by M")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := nnue.New(nnue.Config{})
	assert.Error(t, err)
}

func TestInitialisation_Deterministic(t *testing.T) {
	a, err := nnue.New(smallConfig())
	require.NoError(t, err)
	b, err := nnue.New(smallConfig())
	require.NoError(t, err)
	assert.Equal(t, param(t, a, nnue.FtWeight), param(t, b, nnue.FtWeight))
	assert.Equal(t, make([]float32, 8), param(t, a, nnue.FtBias))

	cfg := smallConfig()
	cfg.Seed = 43
	c, err := nnue.New(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, param(t, a, nnue.FtWeight), param(t, c, nnue.FtWeight))
}

func TestEvaluate(t *testing.T) {
	n, err := nnue.New(smallConfig())
	require.NoError(t, err)
	backend := cpu.New()

	clear(param(t, n, nnue.OutWeight))
	param(t, n, nnue.OutBias)[0] = 0.25
	eval, err := n.Evaluate(backend, []int{0, 3}, []int{1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, eval, 1e-7)

	_, err = n.Evaluate(backend, []int{0, 1, 2, 3, 4}, nil)
	assert.Error(t, err, "more features than MaxActive")
	_, err = n.Evaluate(backend, []int{12}, nil)
	assert.Error(t, err, "feature out of range")
}

func TestBackprop_MatchesFiniteDifference(t *testing.T) {
	cfg := smallConfig()
	cfg.PairwiseM = 2
	n, err := nnue.New(cfg)
	require.NoError(t, err)
	backend := cpu.New()

	bias := param(t, n, nnue.FtBias)
	for i := range bias {
		bias[i] = 0.5
	}
	stm, nstm := []int{0, 5, 7}, []int{1, 4, 7}

	n.ZeroGrad()
	_, err = n.Evaluate(backend, stm, nstm)
	require.NoError(t, err)
	require.NoError(t, n.Backprop(backend, 1))

	const eps = 1e-3
	for _, name := range []string{nnue.FtWeight, nnue.FtBias, nnue.OutWeight} {
		values := param(t, n, name)
		analytic := grad(t, n, name)
		for _, i := range []int{0, 5, len(values) - 1} {
			orig := values[i]
			values[i] = orig + eps
			plus, err := n.Evaluate(backend, stm, nstm)
			require.NoError(t, err)
			values[i] = orig - eps
			minus, err := n.Evaluate(backend, stm, nstm)
			require.NoError(t, err)
			values[i] = orig

			assert.InDelta(t, (plus-minus)/(2*eps), analytic[i], 1e-2, "%s[%d]", name, i)
		}
	}
	assert.Equal(t, []float32{1}, grad(t, n, nnue.OutBias))
}

func TestBackprop_Accumulates(t *testing.T) {
	n, err := nnue.New(smallConfig())
	require.NoError(t, err)
	backend := cpu.New()

	n.ZeroGrad()
	for _, g := range []float32{0.5, -2} {
		_, err := n.Evaluate(backend, []int{1}, []int{2})
		require.NoError(t, err)
		require.NoError(t, n.Backprop(backend, g))
	}
	assert.Equal(t, []float32{-1.5}, grad(t, n, nnue.OutBias))
}

func TestCopyAndAccumulate(t *testing.T) {
	backend := cpu.New()
	a, err := nnue.New(smallConfig())
	require.NoError(t, err)
	cfg := smallConfig()
	cfg.Seed = 7
	b, err := nnue.New(cfg)
	require.NoError(t, err)

	require.NoError(t, b.CopyParamsFrom(backend, a))
	assert.Equal(t, param(t, a, nnue.FtWeight), param(t, b, nnue.FtWeight))

	clone, err := a.Clone(backend)
	require.NoError(t, err)
	assert.Equal(t, param(t, a, nnue.OutWeight), param(t, clone, nnue.OutWeight))

	a.ZeroGrad()
	b.ZeroGrad()
	_, err = b.Evaluate(backend, []int{3}, []int{4})
	require.NoError(t, err)
	require.NoError(t, b.Backprop(backend, 2))
	require.NoError(t, a.AccumulateGradsFrom(backend, b))
	require.NoError(t, a.AccumulateGradsFrom(backend, b))
	assert.Equal(t, []float32{4}, grad(t, a, nnue.OutBias))

	other := smallConfig()
	other.Hidden = 4
	c, err := nnue.New(other)
	require.NoError(t, err)
	assert.Error(t, a.CopyParamsFrom(backend, c))
}
