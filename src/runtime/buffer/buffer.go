package buffer

import (
	"unsafe"

	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

// Buffer is a typed Vulkan buffer holding Len elements of T.
type Buffer[T any] struct {
	device *device.Device
	Buffer vulkan.Buffer
	memory vulkan.DeviceMemory
	Len    int
	size   vulkan.DeviceSize
	data   unsafe.Pointer
}

func sizeOf[T any](n int) vulkan.DeviceSize {
	var t T
	return vulkan.DeviceSize(n * int(unsafe.Sizeof(t)))
}

func New[T any](
	dev *device.Device,
	length int,
	mapped bool,
	usage vulkan.BufferUsageFlags,
	memoryProps vulkan.MemoryPropertyFlags,
) (*Buffer[T], error) {
	if length <= 0 {
		return nil, errors.Newf("buffer of %d elements", length)
	}
	size := sizeOf[T](length)
	buf, memory, err := dev.CreateBuffer(size, usage, memoryProps)
	if err != nil {
		return nil, err
	}

	b := &Buffer[T]{
		device: dev,
		Buffer: buf,
		memory: memory,
		Len:    length,
		size:   size,
	}
	if mapped {
		if err := vulkan.Error(vulkan.MapMemory(dev.LogicalDevice, memory, 0, size, 0, &b.data)); err != nil {
			b.Close()
			return nil, errors.Wrap(err, "map buffer memory")
		}
	}

	return b, nil
}

// NewUniform creates a host-visible uniform buffer holding value.
func NewUniform[T any](dev *device.Device, value T) (*Buffer[T], error) {
	b, err := New[T](
		dev, 1, true,
		vulkan.BufferUsageFlags(vulkan.BufferUsageUniformBufferBit),
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, err
	}
	if err := b.Write([]T{value}); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// NewDeviceLocal creates a device-local buffer and fills it with data through a
// staging copy recorded into the upload batch.
func NewDeviceLocal[T any](dev *device.Device, batch *device.Batch, data []T, usage vulkan.BufferUsageFlags) (*Buffer[T], error) {
	b, err := New[T](
		dev, len(data), false,
		usage|vulkan.BufferUsageFlags(vulkan.BufferUsageTransferDstBit),
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, err
	}

	staging, err := device.Stage(batch, data)
	if err != nil {
		b.Close()
		return nil, err
	}
	batch.Record(func(cb vulkan.CommandBuffer) {
		vulkan.CmdCopyBuffer(cb, staging, b.Buffer, 1, []vulkan.BufferCopy{
			{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      b.size,
			},
		})
	})

	return b, nil
}

func (b *Buffer[T]) Write(values []T) error {
	if b.data == nil {
		return errors.New("buffer is not mapped")
	}
	if len(values) > b.Len {
		return errors.Newf("write of %d elements into buffer of %d", len(values), b.Len)
	}
	copy(unsafe.Slice((*T)(b.data), b.Len), values)
	return nil
}

func (b *Buffer[T]) Size() vulkan.DeviceSize {
	return b.size
}

func (b *Buffer[T]) Close() {
	if b.data != nil {
		vulkan.UnmapMemory(b.device.LogicalDevice, b.memory)
		b.data = nil
	}
	vulkan.DestroyBuffer(b.device.LogicalDevice, b.Buffer, nil)
	vulkan.FreeMemory(b.device.LogicalDevice, b.memory, nil)
}
