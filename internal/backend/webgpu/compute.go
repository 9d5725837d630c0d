//go:build windows

package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/liamt19/bullet/internal/tensor"
)

// binding is one storage buffer of a kernel launch.
type binding struct {
	buf      *tensor.Buffer
	readback bool // copied back into buf after the pass
}

// compileShader compiles WGSL code, caching by name.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, ok := b.shaders[name]; ok {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()
	return shader
}

// pipeline returns the cached compute pipeline for a shader.
func (b *Backend) pipeline(name, code string) *wgpu.ComputePipeline {
	b.mu.RLock()
	if p, ok := b.pipelines[name]; ok {
		b.mu.RUnlock()
		return p
	}
	b.mu.RUnlock()

	p := b.device.CreateComputePipelineSimple(nil, b.compileShader(name, code), "main")

	b.mu.Lock()
	b.pipelines[name] = p
	b.mu.Unlock()
	return p
}

// createBuffer creates a GPU buffer initialised with data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mapped := buffer.GetMappedRange(0, size)
	//nolint:gosec // mapped range is exactly size bytes
	copy(unsafe.Slice((*byte)(mapped), size), data)
	buffer.Unmap()
	return buffer
}

// createUniformBuffer uploads data rounded up to a 16-byte boundary.
func (b *Backend) createUniformBuffer(data []byte) (*wgpu.Buffer, uint64) {
	aligned := (uint64(len(data)) + 15) &^ 15
	padded := make([]byte, aligned)
	copy(padded, data)
	return b.createBuffer(padded, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst), aligned
}

// run uploads the first size elements of every binding, dispatches the named
// shader with the uniform block bound after them and copies the readback
// bindings home. Callers check capacity first; run never sees a short buffer.
func (b *Backend) run(name, code string, size int, uniform []byte, bindings ...binding) error {
	if size == 0 {
		return nil
	}

	b.submitMu.Lock()
	defer b.submitMu.Unlock()

	byteSize := uint64(size) * 4
	pipeline := b.pipeline(name, code)

	gpu := make([]*wgpu.Buffer, len(bindings))
	entries := make([]wgpu.BindGroupEntry, 0, len(bindings)+1)
	for i, bind := range bindings {
		data, err := bind.buf.Bytes(size)
		if err != nil {
			return err
		}
		gpu[i] = b.createBuffer(data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
		defer gpu[i].Release()
		//nolint:gosec // G115: binding count is tiny
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), gpu[i], 0, byteSize))
	}

	params, paramsSize := b.createUniformBuffer(uniform)
	defer params.Release()
	//nolint:gosec // G115: binding count is tiny
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(bindings)), params, 0, paramsSize))

	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	//nolint:gosec // G115: workgroup count is non-negative
	pass.DispatchWorkgroups(uint32((size+workgroupSize-1)/workgroupSize), 1, 1)
	pass.End()

	stagingUsage := wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
	staging := make([]*wgpu.Buffer, len(bindings))
	for i, bind := range bindings {
		if !bind.readback {
			continue
		}
		staging[i] = b.staging.Acquire(byteSize, stagingUsage)
		encoder.CopyBufferToBuffer(gpu[i], 0, staging[i], 0, byteSize)
	}
	b.queue.Submit(encoder.Finish(nil))

	// Map every staging buffer before writing any host buffer so a failed
	// readback leaves the caller's buffers untouched.
	var mapErr error
	mapped := make([]bool, len(bindings))
	for i := range bindings {
		if staging[i] == nil || mapErr != nil {
			continue
		}
		if err := staging[i].MapAsync(b.device, wgpu.MapModeRead, 0, byteSize); err != nil {
			mapErr = fmt.Errorf("webgpu: %s: map staging buffer %d: %w", name, i, err)
			continue
		}
		mapped[i] = true
	}
	if mapErr == nil {
		for i, bind := range bindings {
			if staging[i] == nil {
				continue
			}
			dst, _ := bind.buf.Bytes(size) // checked on upload
			view := staging[i].GetMappedRange(0, byteSize)
			//nolint:gosec // mapped range is exactly byteSize bytes
			copy(dst, unsafe.Slice((*byte)(view), byteSize))
		}
	}

	for i := range bindings {
		if staging[i] == nil {
			continue
		}
		if mapped[i] {
			staging[i].Unmap()
		}
		b.staging.Put(staging[i], byteSize, stagingUsage)
	}
	return mapErr
}
