//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPerKey bounds how many idle buffers of one size and usage are kept.
const maxPerKey = 8

type poolKey struct {
	size  uint64
	usage wgpu.BufferUsage
}

// BufferPool recycles GPU buffers that need no initial contents, such as
// readback staging buffers. A training run updates the same parameter tensors
// every step, so buffers are matched by exact size and usage.
type BufferPool struct {
	device *wgpu.Device

	idle map[poolKey][]*wgpu.Buffer
	mu   sync.Mutex

	// Statistics
	allocated uint64
	hits      uint64
	misses    uint64
}

// NewBufferPool creates an empty pool for device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		idle:   make(map[poolKey][]*wgpu.Buffer),
	}
}

// Acquire returns an idle buffer of exactly size bytes and usage, or creates one.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := poolKey{size: size, usage: usage}
	if list := p.idle[key]; len(list) > 0 {
		buf := list[len(list)-1]
		p.idle[key] = list[:len(list)-1]
		p.hits++
		return buf
	}

	p.misses++
	p.allocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Put returns buf to the pool. Buffers beyond maxPerKey are released.
func (p *BufferPool) Put(buf *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := poolKey{size: size, usage: usage}
	if len(p.idle[key]) >= maxPerKey {
		buf.Release()
		return
	}
	p.idle[key] = append(p.idle[key], buf)
}

// Clear releases every idle buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, list := range p.idle {
		for _, buf := range list {
			buf.Release()
		}
		delete(p.idle, key)
	}
}

// PoolStats summarises pool usage.
type PoolStats struct {
	Allocated uint64
	Hits      uint64
	Misses    uint64
	Idle      int
}

// Stats returns a snapshot of the pool counters.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	idle := 0
	for _, list := range p.idle {
		idle += len(list)
	}
	return PoolStats{Allocated: p.allocated, Hits: p.hits, Misses: p.misses, Idle: idle}
}
