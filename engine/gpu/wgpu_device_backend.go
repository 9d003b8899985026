package gpu

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuDeviceBackendImpl struct {
	mu     *sync.Mutex
	sink   bufferSink
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
}

var _ DeviceBackend = &wgpuDeviceBackendImpl{}

func newWGPUDeviceBackend(label string, forceFallbackAdapter bool, sink bufferSink) DeviceBackend {
	runtime.LockOSThread()
	w := &wgpuDeviceBackendImpl{
		mu:       &sync.Mutex{},
		sink:     sink,
		instance: wgpu.CreateInstance(nil),
	}

	// No CompatibleSurface: this device never presents, it only runs compute
	// and buffer traffic.
	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	// Start from the WebGPU spec default limits and raise the per-stage
	// storage buffer count so a trace pipeline can bind all scene tables
	// (vertices, triangles, nodes, geometry records, instances, materials,
	// light distribution) at once.
	limits := wgpu.DefaultLimits()
	limits.MaxStorageBuffersPerShaderStage = 10

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func toWGPUUsage(usage BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if usage&BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if usage&BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if usage&BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if usage&BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if usage&BufferUsageCopySrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if usage&BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func (b *wgpuDeviceBackendImpl) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            toWGPUUsage(desc.Usage),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}

	return &wgpuBuffer{
		id:      newBufferID(),
		label:   desc.Label,
		size:    desc.Size,
		usage:   desc.Usage,
		buf:     buf,
		backend: b,
	}, nil
}

func (b *wgpuDeviceBackendImpl) SubmitAccelBuild(desc *AccelBuildDescriptor) error {
	wb, ok := desc.Dest.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("gpu: build output for %q was not allocated on this device", desc.Label)
	}
	if wb.released.Load() {
		return ErrBufferReleased
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(wb.buf, 0, desc.Nodes)
	return nil
}

func (b *wgpuDeviceBackendImpl) Sync() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.device.Poll(true, nil)
}

func (b *wgpuDeviceBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.device.Poll(true, nil)
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
}

// wgpuBuffer is a device allocation backed by a native WebGPU buffer.
type wgpuBuffer struct {
	id    uint64
	label string
	size  uint64
	usage BufferUsage

	buf      *wgpu.Buffer
	backend  *wgpuDeviceBackendImpl
	released atomic.Bool
}

var _ Buffer = &wgpuBuffer{}

func (w *wgpuBuffer) ID() uint64 {
	return w.id
}

func (w *wgpuBuffer) Label() string {
	return w.label
}

func (w *wgpuBuffer) Size() uint64 {
	return w.size
}

func (w *wgpuBuffer) Usage() BufferUsage {
	return w.usage
}

func (w *wgpuBuffer) Write(offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if w.released.Load() {
		return ErrBufferReleased
	}
	if err := checkAccess(w.size, offset, len(data), w.usage, BufferUsageCopyDst); err != nil {
		return err
	}

	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	w.backend.queue.WriteBuffer(w.buf, offset, data)
	return nil
}

// Read copies through a transient MapRead staging buffer: queue copy into the
// staging buffer, map it, memcpy out. Blocks on Poll until the map resolves.
func (w *wgpuBuffer) Read(offset uint64, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if w.released.Load() {
		return ErrBufferReleased
	}
	if err := checkAccess(w.size, offset, len(dst), w.usage, BufferUsageCopySrc); err != nil {
		return err
	}

	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()

	size := uint64(len(dst))
	staging, err := w.backend.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: w.label + " Readback Staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: readback staging for %q: %w", w.label, err)
	}
	defer staging.Release()

	encoder, err := w.backend.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: readback encoder for %q: %w", w.label, err)
	}
	if err := encoder.CopyBufferToBuffer(w.buf, offset, staging, 0, size); err != nil {
		encoder.Release()
		return fmt.Errorf("gpu: readback copy for %q: %w", w.label, err)
	}
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return fmt.Errorf("gpu: readback submit for %q: %w", w.label, err)
	}
	w.backend.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return fmt.Errorf("gpu: readback map for %q: %w", w.label, err)
	}
	w.backend.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("gpu: readback map for %q returned status %d", w.label, status)
	}

	copy(dst, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return nil
}

func (w *wgpuBuffer) Release() {
	if !w.released.CompareAndSwap(false, true) {
		return
	}
	w.buf.Release()
	w.backend.sink.noteBufferReleased(w.size)
}
