package cpu

import (
	"github.com/chewxy/math32"

	"github.com/liamt19/bullet/internal/parallel"
	"github.com/liamt19/bullet/internal/tensor"
)

const adamEpsilon = 1e-8

// Adam applies one adaptive-moment update in place.
// Capacity is checked against params, gradient, momentum and velocity before
// any element is written.
func (cpu *CPUBackend) Adam(
	size int,
	params, gradient, momentum, velocity *tensor.Buffer,
	beta1, beta2, gradientFactor, learningRate float32,
	denom bool,
) error {
	v, err := acquire("adam",
		use(params, size), use(gradient, size), use(momentum, size), use(velocity, size))
	if err != nil {
		return err
	}
	p, g, m, vel := v[0], v[1], v[2], v[3]

	parallel.Range(size, cpu.cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			grad := gradientFactor * g[i]
			m[i] = beta1*m[i] + (1-beta1)*grad
			vel[i] = beta2*vel[i] + (1-beta2)*grad*grad

			step := m[i]
			if denom {
				step /= math32.Sqrt(vel[i]) + adamEpsilon
			}
			p[i] -= learningRate * step
		}
	})
	return nil
}

// Clip clamps params[:size] to [lo, hi].
func (cpu *CPUBackend) Clip(size int, params *tensor.Buffer, lo, hi float32) error {
	v, err := acquire("clip", use(params, size))
	if err != nil {
		return err
	}
	p := v[0]
	parallel.Range(size, cpu.cfg, func(from, to int) {
		for i := from; i < to; i++ {
			p[i] = min(max(p[i], lo), hi)
		}
	})
	return nil
}

// Scale multiplies buf[:size] by alpha.
func (cpu *CPUBackend) Scale(size int, buf *tensor.Buffer, alpha float32) error {
	v, err := acquire("scale", use(buf, size))
	if err != nil {
		return err
	}
	x := v[0]
	parallel.Range(size, cpu.cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			x[i] *= alpha
		}
	})
	return nil
}
