// Package autodiff implements the autograd computation graph.
//
// A Graph is an arena of nodes addressed by integer handles. Nodes are
// appended in build order; because a node's parents must already exist when
// it is added, build order is a topological order and needs no sorting.
//
// Architecture:
//   - Leaves: inputs, sparse inputs and weights (weights require gradients)
//   - Operation nodes: an ops.Operation applied to parent handles, output
//     shape inferred and validated once when the node is added
//   - Execution: Forward walks the nodes in build order, Backward in reverse,
//     every kernel going through a tensor.ExecutionContext
//
// Usage:
//
//	g := autodiff.New(tensor.CPU)
//	a := g.AddWeights("a", tensor.Vector(6))
//	b := g.AddWeights("b", tensor.Vector(6))
//	out, err := g.AddOperation(ops.SubmatrixProduct{M: 2}, a, b)
//
//	g.ZeroGrad()
//	err = g.Forward(backend)
//	err = g.SetGradient(out, upstream)
//	err = g.Backward(backend)
package autodiff

import (
	"fmt"

	"github.com/liamt19/bullet/internal/autodiff/ops"
	"github.com/liamt19/bullet/internal/tensor"
)

// NodeHandle identifies a node in a Graph. Handles are stable for the life of
// the graph and cheap to copy.
type NodeHandle int

type nodeKind int

const (
	kindInput nodeKind = iota
	kindSparseInput
	kindWeights
	kindOperation
)

// node is one arena entry. Its shape is fixed when the node is created.
type node struct {
	kind      nodeKind
	name      string
	op        ops.Operation // nil for leaves
	parents   []NodeHandle
	shape     tensor.Shape
	tensor    *tensor.Tensor
	consumers int // number of operation nodes reading this node
}

// Graph is an ordered collection of nodes forming a DAG over tensors.
// It owns every node and tensor it creates.
type Graph struct {
	nodes  []node
	names  map[string]NodeHandle
	device tensor.Device
}

// New creates an empty graph whose buffers live on device.
func New(device tensor.Device) *Graph {
	return &Graph{
		nodes:  make([]node, 0, 16),
		names:  make(map[string]NodeHandle),
		device: device,
	}
}

// AddInput adds a dense input leaf without gradients.
//
// AddInput, AddSparseInput and AddWeights panic if shape has a non-positive
// dimension.
func (g *Graph) AddInput(name string, shape tensor.Shape) NodeHandle {
	return g.addLeaf(kindInput, name, shape, tensor.New(checkLeaf(name, shape), false, g.device))
}

// AddSparseInput adds a sparse feature input leaf holding up to maxActive
// feature indices.
func (g *Graph) AddSparseInput(name string, shape tensor.Shape, maxActive int) NodeHandle {
	return g.addLeaf(kindSparseInput, name, shape, tensor.NewSparse(checkLeaf(name, shape), maxActive, g.device))
}

// AddWeights adds a trainable parameter leaf. Weights always carry gradients.
func (g *Graph) AddWeights(name string, shape tensor.Shape) NodeHandle {
	return g.addLeaf(kindWeights, name, shape, tensor.New(checkLeaf(name, shape), true, g.device))
}

func checkLeaf(name string, shape tensor.Shape) tensor.Shape {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("autodiff: leaf %q: %v", name, err))
	}
	return shape
}

func (g *Graph) addLeaf(kind nodeKind, name string, shape tensor.Shape, t *tensor.Tensor) NodeHandle {
	h := NodeHandle(len(g.nodes))
	g.nodes = append(g.nodes, node{
		kind:   kind,
		name:   name,
		shape:  shape,
		tensor: t,
	})
	if name != "" {
		g.names[name] = h
	}
	return h
}

// AddOperation appends a node applying op to the given parents.
//
// The output shape is inferred from the parents' shapes by op.OutputShape; a
// structural violation is returned as *ops.ShapeError and nothing is added.
// The new node carries a gradient buffer iff any parent does.
func (g *Graph) AddOperation(op ops.Operation, parents ...NodeHandle) (NodeHandle, error) {
	shapes := make([]tensor.Shape, len(parents))
	withGrad := false
	for i, p := range parents {
		if !g.valid(p) {
			return -1, &HandleError{Handle: p, Len: len(g.nodes)}
		}
		shapes[i] = g.nodes[p].shape
		withGrad = withGrad || g.nodes[p].tensor.RequiresGrad()
	}

	shape, err := op.OutputShape(shapes)
	if err != nil {
		return -1, err
	}
	if err := shape.Validate(); err != nil {
		return -1, &ops.ShapeError{Op: op.Name(), Shapes: shapes, Err: err, Detail: err.Error()}
	}

	for _, p := range parents {
		g.nodes[p].consumers++
	}

	h := NodeHandle(len(g.nodes))
	g.nodes = append(g.nodes, node{
		kind:    kindOperation,
		op:      op,
		parents: append([]NodeHandle(nil), parents...),
		shape:   shape,
		tensor:  tensor.New(shape, withGrad, g.device),
	})
	return h, nil
}

// Name labels a node so it can be found with Lookup.
func (g *Graph) Name(h NodeHandle, name string) error {
	if !g.valid(h) {
		return &HandleError{Handle: h, Len: len(g.nodes)}
	}
	g.nodes[h].name = name
	g.names[name] = h
	return nil
}

// Lookup returns the node registered under name.
func (g *Graph) Lookup(name string) (NodeHandle, bool) {
	h, ok := g.names[name]
	return h, ok
}

// NameOf returns the name a node was registered with, if any.
func (g *Graph) NameOf(h NodeHandle) string {
	if !g.valid(h) {
		return ""
	}
	return g.nodes[h].name
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Shape returns a node's output shape.
func (g *Graph) Shape(h NodeHandle) tensor.Shape {
	return g.nodes[h].shape
}

// Tensor returns the tensor owned by a node.
func (g *Graph) Tensor(h NodeHandle) *tensor.Tensor {
	return g.nodes[h].tensor
}

// Parents returns a copy of a node's parent handles.
func (g *Graph) Parents(h NodeHandle) []NodeHandle {
	return append([]NodeHandle(nil), g.nodes[h].parents...)
}

// Weights returns the handles of all weight leaves in build order.
func (g *Graph) Weights() []NodeHandle {
	var out []NodeHandle
	for i := range g.nodes {
		if g.nodes[i].kind == kindWeights {
			out = append(out, NodeHandle(i))
		}
	}
	return out
}

// Values returns a view of a node's values.
func (g *Graph) Values(h NodeHandle) []float32 {
	return g.nodes[h].tensor.Values().All()
}

// Gradients returns a view of a node's gradients, or nil if it has none.
func (g *Graph) Gradients(h NodeHandle) []float32 {
	grads := g.nodes[h].tensor.Gradients()
	if grads == nil {
		return nil
	}
	return grads.All()
}

// SetInput copies values into a dense leaf.
func (g *Graph) SetInput(h NodeHandle, values []float32) error {
	if !g.valid(h) {
		return &HandleError{Handle: h, Len: len(g.nodes)}
	}
	n := &g.nodes[h]
	if n.kind == kindOperation || n.kind == kindSparseInput {
		return &KindError{Handle: h, Want: "dense leaf"}
	}
	if len(values) != n.shape.Size() {
		return &tensor.CapacityError{Op: "set input", Requested: len(values), Capacity: n.shape.Size()}
	}
	return n.tensor.Values().CopyFrom(values)
}

// SetSparse replaces the active feature indices of a sparse input.
func (g *Graph) SetSparse(h NodeHandle, indices []int) error {
	if !g.valid(h) {
		return &HandleError{Handle: h, Len: len(g.nodes)}
	}
	n := &g.nodes[h]
	if n.kind != kindSparseInput {
		return &KindError{Handle: h, Want: "sparse input"}
	}
	return n.tensor.SetActive(indices)
}

// SetGradient seeds a node's gradient, typically the loss derivative at the
// graph output, before Backward.
func (g *Graph) SetGradient(h NodeHandle, values []float32) error {
	if !g.valid(h) {
		return &HandleError{Handle: h, Len: len(g.nodes)}
	}
	n := &g.nodes[h]
	grads := n.tensor.Gradients()
	if grads == nil {
		return &KindError{Handle: h, Want: "node with gradients"}
	}
	if len(values) != n.shape.Size() {
		return &tensor.CapacityError{Op: "set gradient", Requested: len(values), Capacity: n.shape.Size()}
	}
	return grads.CopyFrom(values)
}

func (g *Graph) valid(h NodeHandle) bool {
	return h >= 0 && int(h) < len(g.nodes)
}
