package autodiff

import (
	"github.com/liamt19/bullet/internal/tensor"
)

// Forward executes every operation node in build order. Leaves are left
// untouched. The first failing node stops the pass and is reported as a
// *NodeError.
func (g *Graph) Forward(ctx tensor.ExecutionContext) error {
	inputs := make([]*tensor.Tensor, 0, 4)
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.kind != kindOperation {
			continue
		}

		inputs = g.gather(inputs[:0], n.parents)
		if err := n.op.Forward(ctx, inputs, n.tensor); err != nil {
			return &NodeError{Node: NodeHandle(i), Op: n.op.Name(), Pass: "forward", Err: err}
		}
	}
	return nil
}

// Backward propagates gradients from every seeded node towards the leaves,
// visiting operation nodes in reverse build order.
//
// Gradients of operation nodes that feed other operations are reset first,
// so repeated Backward calls never double-count intermediate results. Leaf
// gradients and the gradients of sink nodes (seeded with SetGradient)
// accumulate across calls until ZeroGrad.
func (g *Graph) Backward(ctx tensor.ExecutionContext) error {
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.kind == kindOperation && n.consumers > 0 {
			n.tensor.ZeroGrad()
		}
	}

	inputs := make([]*tensor.Tensor, 0, 4)
	for i := len(g.nodes) - 1; i >= 0; i-- {
		n := &g.nodes[i]
		if n.kind != kindOperation || !n.tensor.RequiresGrad() {
			continue
		}

		inputs = g.gather(inputs[:0], n.parents)
		if err := n.op.Backward(ctx, n.tensor, inputs); err != nil {
			return &NodeError{Node: NodeHandle(i), Op: n.op.Name(), Pass: "backward", Err: err}
		}
	}
	return nil
}

// ZeroGrad clears every gradient buffer in the graph.
func (g *Graph) ZeroGrad() {
	for i := range g.nodes {
		g.nodes[i].tensor.ZeroGrad()
	}
}

func (g *Graph) gather(dst []*tensor.Tensor, parents []NodeHandle) []*tensor.Tensor {
	for _, p := range parents {
		dst = append(dst, g.nodes[p].tensor)
	}
	return dst
}
