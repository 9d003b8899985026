package gpu

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// nullDeviceBackendImpl is the in-memory device backend. Every buffer is
// shadowed by a host byte slice, writes land immediately, and reads return
// exactly what was written. Combined with the device's central accounting it
// doubles as an allocation tracker: tests drive the real scene code against
// it and then assert that no buffer or structure outlived its owner.
type nullDeviceBackendImpl struct {
	mu   *sync.Mutex
	sink bufferSink
}

var _ DeviceBackend = &nullDeviceBackendImpl{}

func newNullDeviceBackend(sink bufferSink) DeviceBackend {
	return &nullDeviceBackendImpl{
		mu:   &sync.Mutex{},
		sink: sink,
	}
}

func (b *nullDeviceBackendImpl) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	return &nullBuffer{
		id:    newBufferID(),
		label: desc.Label,
		usage: desc.Usage,
		data:  make([]byte, desc.Size),
		sink:  b.sink,
	}, nil
}

func (b *nullDeviceBackendImpl) SubmitAccelBuild(desc *AccelBuildDescriptor) error {
	nb, ok := desc.Dest.(*nullBuffer)
	if !ok {
		return fmt.Errorf("gpu: build output for %q was not allocated on this device", desc.Label)
	}
	if nb.released.Load() {
		return ErrBufferReleased
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	copy(nb.data, desc.Nodes)
	return nil
}

func (b *nullDeviceBackendImpl) Sync() {}

func (b *nullDeviceBackendImpl) Release() {}

// nullBuffer is a device allocation backed by host memory.
type nullBuffer struct {
	id    uint64
	label string
	usage BufferUsage

	mu       sync.Mutex
	data     []byte
	sink     bufferSink
	released atomic.Bool
}

var _ Buffer = &nullBuffer{}

func (n *nullBuffer) ID() uint64 {
	return n.id
}

func (n *nullBuffer) Label() string {
	return n.label
}

func (n *nullBuffer) Size() uint64 {
	return uint64(len(n.data))
}

func (n *nullBuffer) Usage() BufferUsage {
	return n.usage
}

func (n *nullBuffer) Write(offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if n.released.Load() {
		return ErrBufferReleased
	}
	if err := checkAccess(uint64(len(n.data)), offset, len(data), n.usage, BufferUsageCopyDst); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	copy(n.data[offset:], data)
	return nil
}

func (n *nullBuffer) Read(offset uint64, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if n.released.Load() {
		return ErrBufferReleased
	}
	if err := checkAccess(uint64(len(n.data)), offset, len(dst), n.usage, BufferUsageCopySrc); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	copy(dst, n.data[offset:])
	return nil
}

func (n *nullBuffer) Release() {
	if !n.released.CompareAndSwap(false, true) {
		return
	}
	n.sink.noteBufferReleased(uint64(len(n.data)))
}
