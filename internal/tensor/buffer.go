package tensor

import (
	"unsafe"
)

// Device represents the compute device owning a buffer.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// Buffer is an owned, fixed-capacity block of float32 storage.
//
// Storage is kept as raw bytes so that backends can upload it without a
// conversion. Buffer is the only place in the module that reinterprets memory
// with package unsafe, and every view it hands out is checked against the
// declared capacity first.
type Buffer struct {
	data   []byte
	size   int
	device Device
}

// NewBuffer allocates a zeroed buffer holding size float32 elements.
func NewBuffer(size int, device Device) *Buffer {
	if size < 0 {
		size = 0
	}
	return &Buffer{
		data:   make([]byte, size*4),
		size:   size,
		device: device,
	}
}

// Size returns the capacity in elements.
func (b *Buffer) Size() int {
	return b.size
}

// Device returns the device the buffer is tagged with.
func (b *Buffer) Device() Device {
	return b.device
}

// Slice returns a float32 view of the first size elements.
// It fails with a CapacityError when size exceeds the capacity.
func (b *Buffer) Slice(size int) ([]float32, error) {
	if err := CheckCapacity("slice", size, b); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	//nolint:gosec // capacity checked above; data holds exactly b.size float32 values
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.data[0])), size), nil
}

// All returns a view of the whole buffer.
func (b *Buffer) All() []float32 {
	view, _ := b.Slice(b.size) // size never exceeds itself
	return view
}

// Bytes returns the raw little-endian bytes of the first size elements.
func (b *Buffer) Bytes(size int) ([]byte, error) {
	if err := CheckCapacity("bytes", size, b); err != nil {
		return nil, err
	}
	return b.data[:size*4], nil
}

// Zero resets every element to zero.
func (b *Buffer) Zero() {
	clear(b.data)
}

// CopyFrom writes src into the start of the buffer.
func (b *Buffer) CopyFrom(src []float32) error {
	dst, err := b.Slice(len(src))
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

// CopyTo reads the first len(dst) elements into dst.
func (b *Buffer) CopyTo(dst []float32) error {
	src, err := b.Slice(len(dst))
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		data:   make([]byte, len(b.data)),
		size:   b.size,
		device: b.device,
	}
	copy(out.data, b.data)
	return out
}
