package nnue

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// initialise fills weights with Xavier-uniform values and biases with zeros,
// drawing from a PCG stream seeded by Config.Seed.
func (n *Network) initialise() {
	//nolint:gosec // weight initialisation is not security sensitive
	rng := rand.New(rand.NewPCG(n.cfg.Seed, n.cfg.Seed^0x9e3779b97f4a7c15))

	for _, p := range n.params {
		values := n.graph.Values(p.Handle)
		shape := n.graph.Shape(p.Handle)
		if p.Name == FtBias || p.Name == OutBias {
			clear(values)
			continue
		}

		fanIn, fanOut := shape.Cols, shape.Rows
		if p.Name == FtWeight {
			// Only MaxActive columns contribute to any one output.
			fanIn = n.cfg.MaxActive
		}
		xavier(rng, values, fanIn, fanOut)
	}
}

// xavier draws from U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
func xavier(rng *rand.Rand, values []float32, fanIn, fanOut int) {
	bound := math32.Sqrt(6 / float32(fanIn+fanOut))
	for i := range values {
		values[i] = (rng.Float32()*2 - 1) * bound
	}
}
