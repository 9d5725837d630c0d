// Package optim implements parameter update rules for training networks
// built on an autodiff.Graph.
//
// This package provides:
//   - Rule: a closed set of update rules (AdamW, Adam, Momentum)
//   - Optimiser: per-parameter momentum/velocity state plus the rule
//
// Every update goes through tensor.OptimiserKernels, so the same Optimiser
// drives the CPU backend and any accelerated backend.
//
// Example usage:
//
//	opt := optim.New(optim.DefaultAdamW(), graph, backend)
//
//	for superbatch := range superbatches {
//	    graph.ZeroGrad()
//	    // ... accumulate gradients ...
//	    err := opt.Step(graph, 1/float32(batchSize), schedule.LR(superbatch))
//	}
package optim

import (
	"fmt"

	"github.com/liamt19/bullet/internal/autodiff"
	"github.com/liamt19/bullet/internal/tensor"
)

// Rule is an optimiser update rule. The set of rules is closed: AdamW, Adam
// and Momentum are the only implementations.
type Rule interface {
	// Name returns a short human readable description.
	Name() string

	isRule()
}

// State is the per-parameter optimiser state.
type State struct {
	Momentum *tensor.Buffer
	Velocity *tensor.Buffer
}

// Optimiser owns the momentum and velocity buffers of every weight in a
// graph. State is created once in New and never resized.
type Optimiser struct {
	rule    Rule
	kernels tensor.OptimiserKernels
	state   map[autodiff.NodeHandle]State
	order   []autodiff.NodeHandle
}

// New allocates zeroed state for every weight leaf of graph.
func New(rule Rule, graph *autodiff.Graph, kernels tensor.OptimiserKernels) *Optimiser {
	weights := graph.Weights()
	o := &Optimiser{
		rule:    rule,
		kernels: kernels,
		state:   make(map[autodiff.NodeHandle]State, len(weights)),
		order:   weights,
	}
	for _, h := range weights {
		size := graph.Shape(h).Size()
		o.state[h] = State{
			Momentum: tensor.NewBuffer(size, kernels.Device()),
			Velocity: tensor.NewBuffer(size, kernels.Device()),
		}
	}
	return o
}

// Rule returns the update rule.
func (o *Optimiser) Rule() Rule {
	return o.rule
}

// Params returns the weights the optimiser updates, in graph build order.
func (o *Optimiser) Params() []autodiff.NodeHandle {
	return append([]autodiff.NodeHandle(nil), o.order...)
}

// State returns the momentum and velocity of a weight.
func (o *Optimiser) State(h autodiff.NodeHandle) (State, bool) {
	s, ok := o.state[h]
	return s, ok
}

// Restore overwrites the momentum and velocity of a weight.
func (o *Optimiser) Restore(h autodiff.NodeHandle, momentum, velocity []float32) error {
	s, ok := o.state[h]
	if !ok {
		return fmt.Errorf("restore optimiser state: node %d is not a parameter", h)
	}
	if len(momentum) != s.Momentum.Size() || len(velocity) != s.Velocity.Size() {
		return fmt.Errorf("restore optimiser state of node %d: got %d/%d values, want %d",
			h, len(momentum), len(velocity), s.Momentum.Size())
	}
	if err := s.Momentum.CopyFrom(momentum); err != nil {
		return fmt.Errorf("restore momentum of node %d: %w", h, err)
	}
	if err := s.Velocity.CopyFrom(velocity); err != nil {
		return fmt.Errorf("restore velocity of node %d: %w", h, err)
	}
	return nil
}

// Step applies one update to every weight of graph using its accumulated
// gradients scaled by gradientFactor.
func (o *Optimiser) Step(graph *autodiff.Graph, gradientFactor, learningRate float32) error {
	for _, h := range o.order {
		t := graph.Tensor(h)
		size := t.Shape().Size()
		if err := o.update(size, t, o.state[h], gradientFactor, learningRate); err != nil {
			return fmt.Errorf("%s step on %q: %w", o.rule.Name(), graph.NameOf(h), err)
		}
	}
	return nil
}

func (o *Optimiser) update(size int, t *tensor.Tensor, s State, gradientFactor, learningRate float32) error {
	params, grads := t.Values(), t.Gradients()
	if err := tensor.CheckCapacity(o.rule.Name(), size, params, grads, s.Momentum, s.Velocity); err != nil {
		return err
	}

	switch r := o.rule.(type) {
	case AdamW:
		if err := o.kernels.Scale(size, params, 1-learningRate*r.Decay); err != nil {
			return err
		}
		if err := o.kernels.Adam(size, params, grads, s.Momentum, s.Velocity,
			r.Beta1, r.Beta2, gradientFactor, learningRate, true); err != nil {
			return err
		}
		return o.kernels.Clip(size, params, r.MinWeight, r.MaxWeight)
	case Adam:
		return o.kernels.Adam(size, params, grads, s.Momentum, s.Velocity,
			r.Beta1, r.Beta2, gradientFactor, learningRate, true)
	case Momentum:
		return o.kernels.Adam(size, params, grads, s.Momentum, s.Velocity,
			r.Beta, r.Beta, gradientFactor, learningRate, false)
	default:
		panic(fmt.Sprintf("optim: unknown rule %T", o.rule))
	}
}
