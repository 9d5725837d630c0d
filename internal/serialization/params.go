package serialization

import (
	"fmt"

	"github.com/liamt19/bullet/internal/autodiff"
	"github.com/liamt19/bullet/internal/optim"
	"github.com/liamt19/bullet/internal/tensor"
)

// ParamEntries collects every named weight of graph, stored as dtype, and,
// when opt is non-nil, its optimiser state as float32.
func ParamEntries(graph *autodiff.Graph, opt *optim.Optimiser, dtype tensor.DataType) ([]Entry, error) {
	var entries []Entry
	for _, h := range graph.Weights() {
		name := graph.NameOf(h)
		if name == "" {
			return nil, fmt.Errorf("weight node %d has no name", h)
		}
		shape := graph.Shape(h)
		entries = append(entries, Entry{Name: name, Shape: shape, DType: dtype, Values: graph.Values(h)})

		if opt == nil {
			continue
		}
		state, ok := opt.State(h)
		if !ok {
			continue
		}
		entries = append(entries,
			Entry{Name: name + MomentumSuffix, Shape: shape, DType: tensor.Float32, Values: state.Momentum.All()},
			Entry{Name: name + VelocitySuffix, Shape: shape, DType: tensor.Float32, Values: state.Velocity.All()},
		)
	}
	return entries, nil
}

// WriteParams saves the weights of graph (and the state of opt, if given)
// to path. The checkpoint metadata in header is kept as is.
func WriteParams(path string, graph *autodiff.Graph, opt *optim.Optimiser, header Header, dtype tensor.DataType) error {
	entries, err := ParamEntries(graph, opt, dtype)
	if err != nil {
		return err
	}
	if opt != nil {
		meta := CheckpointMeta{}
		if header.CheckpointMeta != nil {
			meta = *header.CheckpointMeta
		}
		meta.Optimizer = opt.Rule().Name()
		header.CheckpointMeta = &meta
	}
	return WriteFile(path, header, entries)
}

// ReadParams loads every named weight of graph from path. Optimiser state is
// restored into opt when both opt is non-nil and the file carries it.
func ReadParams(path string, graph *autodiff.Graph, opt *optim.Optimiser, opts ReaderOptions) (Header, error) {
	file, err := ReadFile(path, opts)
	if err != nil {
		return Header{}, err
	}
	if err := LoadParams(file, graph, opt); err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return file.Header(), nil
}

// LoadParams copies the tensors of a decoded file into graph and opt.
func LoadParams(file *File, graph *autodiff.Graph, opt *optim.Optimiser) error {
	withState := opt != nil && file.Flags()&FlagHasOptimizer != 0

	for _, h := range graph.Weights() {
		name := graph.NameOf(h)
		values, err := loadTensor(file, name, graph.Shape(h))
		if err != nil {
			return err
		}
		if err := graph.SetInput(h, values); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if !withState {
			continue
		}
		momentum, err := loadTensor(file, name+MomentumSuffix, graph.Shape(h))
		if err != nil {
			return err
		}
		velocity, err := loadTensor(file, name+VelocitySuffix, graph.Shape(h))
		if err != nil {
			return err
		}
		if err := opt.Restore(h, momentum, velocity); err != nil {
			return err
		}
	}
	return nil
}

func loadTensor(file *File, name string, want tensor.Shape) ([]float32, error) {
	values, shape, err := file.Tensor(name)
	if err != nil {
		return nil, err
	}
	if shape != want {
		return nil, fmt.Errorf("%w: %s is %s in file, %s in graph", ErrShapeMismatch, name, shape, want)
	}
	return values, nil
}
