//go:build windows

package webgpu

import (
	"encoding/binary"
	"math"

	"github.com/liamt19/bullet/internal/tensor"
)

// uniformWriter packs little-endian shader parameters.
type uniformWriter []byte

func (u uniformWriter) u32(v uint32) uniformWriter {
	return binary.LittleEndian.AppendUint32(u, v)
}

func (u uniformWriter) f32(v float32) uniformWriter {
	return u.u32(math.Float32bits(v))
}

// Adam runs the adaptive-moment update on the GPU.
func (b *Backend) Adam(size int, params, gradient, momentum, velocity *tensor.Buffer,
	beta1, beta2, gradientFactor, learningRate float32, denom bool,
) error {
	if err := tensor.CheckCapacity("adam", size, params, gradient, momentum, velocity); err != nil {
		return err
	}
	var d uint32
	if denom {
		d = 1
	}
	//nolint:gosec // G115: size checked non-negative above
	uniform := uniformWriter(nil).
		u32(uint32(size)).
		f32(beta1).
		f32(beta2).
		f32(gradientFactor).
		f32(learningRate).
		u32(d)
	return b.run("adam", adamShader, size, uniform,
		binding{buf: params, readback: true},
		binding{buf: gradient},
		binding{buf: momentum, readback: true},
		binding{buf: velocity, readback: true},
	)
}

// Clip clamps the first size parameters to [lo, hi] on the GPU.
func (b *Backend) Clip(size int, params *tensor.Buffer, lo, hi float32) error {
	if err := tensor.CheckCapacity("clip", size, params); err != nil {
		return err
	}
	//nolint:gosec // G115: size checked non-negative above
	uniform := uniformWriter(nil).u32(uint32(size)).f32(lo).f32(hi)
	return b.run("clip", clipShader, size, uniform, binding{buf: params, readback: true})
}

// Scale multiplies the first size elements by alpha on the GPU.
func (b *Backend) Scale(size int, buf *tensor.Buffer, alpha float32) error {
	if err := tensor.CheckCapacity("scale", size, buf); err != nil {
		return err
	}
	//nolint:gosec // G115: size checked non-negative above
	uniform := uniformWriter(nil).u32(uint32(size)).f32(alpha)
	return b.run("scale", scaleShader, size, uniform, binding{buf: buf, readback: true})
}
