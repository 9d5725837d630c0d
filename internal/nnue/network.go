// Package nnue builds perspective NNUE evaluation networks on an
// autodiff.Graph.
//
// Architecture:
//
//	stm features ──► SparseAffine(ft) ──► act ──► [SubmatrixProduct] ─┐
//	                                                                    ├─► Concat ─► Affine(out) ─► eval
//	nstm features ─► SparseAffine(ft) ──► act ──► [SubmatrixProduct] ─┘
//
// The feature transformer is shared between both perspectives.
package nnue

import (
	"errors"
	"fmt"

	"github.com/liamt19/bullet/internal/autodiff"
	"github.com/liamt19/bullet/internal/autodiff/ops"
	"github.com/liamt19/bullet/internal/tensor"
)

// Parameter names.
const (
	FtWeight  = "ft.weight"
	FtBias    = "ft.bias"
	OutWeight = "out.weight"
	OutBias   = "out.bias"
)

// Config describes a network.
type Config struct {
	Inputs     int               // sparse features per perspective
	MaxActive  int               // features one position may activate
	Hidden     int               // feature transformer width
	Activation tensor.Activation // applied to the feature transformer output
	PairwiseM  int               // block rows of the submatrix product stage, 0 disables it
	Seed       uint64            // initialisation seed
}

// DefaultConfig returns a small ataxx network.
func DefaultConfig() Config {
	return Config{
		Inputs:     147,
		MaxActive:  49,
		Hidden:     64,
		Activation: tensor.SCReLU,
		Seed:       0x5eed,
	}
}

// Param is a named trainable weight of the network.
type Param struct {
	Name   string
	Handle autodiff.NodeHandle
}

// Network is a perspective network and the graph that computes it.
type Network struct {
	cfg    Config
	graph  *autodiff.Graph
	stm    autodiff.NodeHandle
	nstm   autodiff.NodeHandle
	out    autodiff.NodeHandle
	params []Param
}

// New builds a network with freshly initialised parameters.
func New(cfg Config) (*Network, error) {
	if cfg.Inputs <= 0 || cfg.Hidden <= 0 || cfg.MaxActive <= 0 {
		return nil, fmt.Errorf("nnue: invalid config %+v", cfg)
	}

	g := autodiff.New(tensor.CPU)
	n := &Network{cfg: cfg, graph: g}

	ftW := g.AddWeights(FtWeight, tensor.NewShape(cfg.Hidden, cfg.Inputs))
	ftB := g.AddWeights(FtBias, tensor.Vector(cfg.Hidden))
	n.stm = g.AddSparseInput("stm", tensor.Vector(cfg.Inputs), cfg.MaxActive)
	n.nstm = g.AddSparseInput("nstm", tensor.Vector(cfg.Inputs), cfg.MaxActive)

	us, err := n.perspective(ftW, ftB, n.stm)
	if err != nil {
		return nil, err
	}
	them, err := n.perspective(ftW, ftB, n.nstm)
	if err != nil {
		return nil, err
	}
	hidden, err := g.AddOperation(ops.Concat{}, us, them)
	if err != nil {
		return nil, err
	}

	width := g.Shape(hidden).Rows
	outW := g.AddWeights(OutWeight, tensor.NewShape(1, width))
	outB := g.AddWeights(OutBias, tensor.Vector(1))
	if n.out, err = g.AddOperation(ops.Affine{}, outW, outB, hidden); err != nil {
		return nil, err
	}
	if err := g.Name(n.out, "eval"); err != nil {
		return nil, err
	}

	n.params = []Param{
		{FtWeight, ftW},
		{FtBias, ftB},
		{OutWeight, outW},
		{OutBias, outB},
	}
	n.initialise()
	return n, nil
}

func (n *Network) perspective(ftW, ftB, features autodiff.NodeHandle) (autodiff.NodeHandle, error) {
	g := n.graph
	acc, err := g.AddOperation(ops.SparseAffine{}, ftW, ftB, features)
	if err != nil {
		return -1, err
	}
	act, err := g.AddOperation(ops.Activate{Act: n.cfg.Activation}, acc)
	if err != nil {
		return -1, err
	}
	if n.cfg.PairwiseM == 0 {
		return act, nil
	}
	return g.AddOperation(ops.SubmatrixProduct{M: n.cfg.PairwiseM}, act, act)
}

// Config returns the network configuration.
func (n *Network) Config() Config {
	return n.cfg
}

// Graph returns the underlying graph.
func (n *Network) Graph() *autodiff.Graph {
	return n.graph
}

// Params returns the trainable parameters in a fixed order.
func (n *Network) Params() []Param {
	return append([]Param(nil), n.params...)
}

// Param returns the handle of a named parameter.
func (n *Network) Param(name string) (autodiff.NodeHandle, bool) {
	for _, p := range n.params {
		if p.Name == name {
			return p.Handle, true
		}
	}
	return -1, false
}

// Evaluate loads the features of both perspectives and runs a forward pass,
// returning the raw network output.
func (n *Network) Evaluate(ctx tensor.ExecutionContext, stm, nstm []int) (float32, error) {
	if err := n.graph.SetSparse(n.stm, stm); err != nil {
		return 0, fmt.Errorf("stm features: %w", err)
	}
	if err := n.graph.SetSparse(n.nstm, nstm); err != nil {
		return 0, fmt.Errorf("nstm features: %w", err)
	}
	if err := n.graph.Forward(ctx); err != nil {
		return 0, err
	}
	return n.graph.Values(n.out)[0], nil
}

// Backprop seeds the output gradient with grad and accumulates parameter
// gradients for the position last passed to Evaluate.
func (n *Network) Backprop(ctx tensor.ExecutionContext, grad float32) error {
	if err := n.graph.SetGradient(n.out, []float32{grad}); err != nil {
		return err
	}
	return n.graph.Backward(ctx)
}

// ZeroGrad clears all gradients.
func (n *Network) ZeroGrad() {
	n.graph.ZeroGrad()
}

var errArchitecture = errors.New("nnue: networks have different architectures")

// CopyParamsFrom overwrites every parameter with the values of src.
func (n *Network) CopyParamsFrom(ctx tensor.ExecutionContext, src *Network) error {
	return n.zip(src, func(size int, dst, from *tensor.Tensor) error {
		return ctx.Copy(size, dst.Values(), from.Values())
	})
}

// AccumulateGradsFrom adds the parameter gradients of src into n.
func (n *Network) AccumulateGradsFrom(ctx tensor.ExecutionContext, src *Network) error {
	return n.zip(src, func(size int, dst, from *tensor.Tensor) error {
		return ctx.Accumulate(size, dst.Gradients(), from.Gradients(), 1)
	})
}

func (n *Network) zip(src *Network, f func(size int, dst, from *tensor.Tensor) error) error {
	if n.cfg.Inputs != src.cfg.Inputs || n.cfg.Hidden != src.cfg.Hidden ||
		n.cfg.PairwiseM != src.cfg.PairwiseM || len(n.params) != len(src.params) {
		return errArchitecture
	}
	for i, p := range n.params {
		dst := n.graph.Tensor(p.Handle)
		from := src.graph.Tensor(src.params[i].Handle)
		if err := f(dst.Shape().Size(), dst, from); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	return nil
}

// Clone builds a network with the same architecture and parameter values.
func (n *Network) Clone(ctx tensor.ExecutionContext) (*Network, error) {
	c, err := New(n.cfg)
	if err != nil {
		return nil, err
	}
	if err := c.CopyParamsFrom(ctx, n); err != nil {
		return nil, err
	}
	return c, nil
}
