package cpu

import (
	"fmt"

	"github.com/liamt19/bullet/internal/parallel"
	"github.com/liamt19/bullet/internal/tensor"
)

// Activate writes act(in) into out.
func (cpu *CPUBackend) Activate(act tensor.Activation, size int, in, out *tensor.Buffer) error {
	f, err := activationFunc(act)
	if err != nil {
		return err
	}
	v, err := acquire("activate", use(in, size), use(out, size))
	if err != nil {
		return err
	}
	x, y := v[0], v[1]
	parallel.Range(size, cpu.cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			y[i] = f(x[i])
		}
	})
	return nil
}

// ActivateBackward adds act'(in) * outGrad into inGrad.
func (cpu *CPUBackend) ActivateBackward(act tensor.Activation, size int, in, outGrad, inGrad *tensor.Buffer) error {
	df, err := activationPrime(act)
	if err != nil {
		return err
	}
	v, err := acquire("activate backward", use(in, size), use(outGrad, size), use(inGrad, size))
	if err != nil {
		return err
	}
	x, g, dx := v[0], v[1], v[2]
	parallel.Range(size, cpu.cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dx[i] += df(x[i]) * g[i]
		}
	})
	return nil
}

func activationFunc(act tensor.Activation) (func(float32) float32, error) {
	switch act {
	case tensor.ReLU:
		return func(x float32) float32 { return max(x, 0) }, nil
	case tensor.CReLU:
		return func(x float32) float32 { return min(max(x, 0), 1) }, nil
	case tensor.SCReLU:
		return func(x float32) float32 {
			c := min(max(x, 0), 1)
			return c * c
		}, nil
	default:
		return nil, fmt.Errorf("activate: unsupported activation %d", act)
	}
}

func activationPrime(act tensor.Activation) (func(float32) float32, error) {
	switch act {
	case tensor.ReLU:
		return func(x float32) float32 {
			if x > 0 {
				return 1
			}
			return 0
		}, nil
	case tensor.CReLU:
		return func(x float32) float32 {
			if x > 0 && x < 1 {
				return 1
			}
			return 0
		}, nil
	case tensor.SCReLU:
		return func(x float32) float32 {
			if x > 0 && x < 1 {
				return 2 * x
			}
			return 0
		}, nil
	default:
		return nil, fmt.Errorf("activate backward: unsupported activation %d", act)
	}
}
