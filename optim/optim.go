// Copyright 2025 The Bullet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the parameter update rules.
//
// Example:
//
//	opt := optim.New(optim.DefaultAdamW(), graph, cpu.New())
//	err := opt.Step(graph, 1/float32(batchSize), lr)
package optim

import (
	"github.com/liamt19/bullet/autodiff"
	"github.com/liamt19/bullet/internal/optim"
	"github.com/liamt19/bullet/tensor"
)

// Rule is one of AdamW, Adam or Momentum.
type Rule = optim.Rule

// Update rules.
type (
	AdamW    = optim.AdamW
	Adam     = optim.Adam
	Momentum = optim.Momentum
)

// DefaultAdamW returns AdamW with beta1 0.9, beta2 0.999, decay 0.01 and
// weights clipped to [-1.98, 1.98].
func DefaultAdamW() AdamW {
	return optim.DefaultAdamW()
}

// DefaultAdam returns Adam with beta1 0.9 and beta2 0.999.
func DefaultAdam() Adam {
	return optim.DefaultAdam()
}

// Optimiser holds per-parameter state and applies a Rule.
type Optimiser = optim.Optimiser

// State is the momentum and velocity of one parameter.
type State = optim.State

// New allocates zeroed state for every weight node of graph.
func New(rule Rule, graph *autodiff.Graph, kernels tensor.OptimiserKernels) *Optimiser {
	return optim.New(rule, graph, kernels)
}
