package device

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

// SubmitAndWait records a one-shot command buffer, submits it and blocks until
// the GPU has executed it. Load time only, the frame loop never calls this.
func (v *Device) SubmitAndWait(record func(cb vulkan.CommandBuffer)) error {
	commandBuffer, err := v.AllocateCommandBuffer()
	if err != nil {
		return err
	}
	defer v.FreeCommandBuffer(commandBuffer)

	if err := vulkan.Error(vulkan.BeginCommandBuffer(commandBuffer, &vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	})); err != nil {
		return errors.Wrap(err, "begin transfer command buffer")
	}

	record(commandBuffer)

	if err := vulkan.Error(vulkan.EndCommandBuffer(commandBuffer)); err != nil {
		return errors.Wrap(err, "end transfer command buffer")
	}

	fence, err := v.NewFence(false)
	if err != nil {
		return err
	}
	defer vulkan.DestroyFence(v.LogicalDevice, fence, nil)

	if err := vulkan.Error(vulkan.QueueSubmit(v.Queue, 1, []vulkan.SubmitInfo{
		{
			SType:              vulkan.StructureTypeSubmitInfo,
			CommandBufferCount: 1,
			PCommandBuffers:    []vulkan.CommandBuffer{commandBuffer},
		},
	}, fence)); err != nil {
		return errors.Wrap(err, "submit transfer")
	}

	if err := vulkan.Error(vulkan.WaitForFences(v.LogicalDevice, 1, []vulkan.Fence{fence}, vulkan.True, math.MaxUint64)); err != nil {
		return errors.Wrap(err, "wait for transfer")
	}
	return nil
}

type staging struct {
	buffer vulkan.Buffer
	memory vulkan.DeviceMemory
}

// Batch collects staging buffers and transfer commands into one blocking upload.
type Batch struct {
	device   *Device
	staging  []staging
	commands []func(vulkan.CommandBuffer)
}

func (v *Device) NewBatch() *Batch {
	return &Batch{device: v}
}

// Stage copies data into a new host-visible staging buffer owned by the batch.
func Stage[T any](b *Batch, data []T) (vulkan.Buffer, error) {
	if len(data) == 0 {
		return nil, errors.New("staging empty data")
	}
	size := vulkan.DeviceSize(len(data) * int(unsafe.Sizeof(data[0])))

	buf, memory, err := b.device.CreateBuffer(
		size,
		vulkan.BufferUsageFlags(vulkan.BufferUsageTransferSrcBit),
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	b.staging = append(b.staging, staging{buffer: buf, memory: memory})

	var mapped unsafe.Pointer
	if err := vulkan.Error(vulkan.MapMemory(b.device.LogicalDevice, memory, 0, size, 0, &mapped)); err != nil {
		return nil, errors.Wrap(err, "map staging memory")
	}
	copy(unsafe.Slice((*T)(mapped), len(data)), data)
	vulkan.UnmapMemory(b.device.LogicalDevice, memory)

	return buf, nil
}

// Record appends transfer commands executed in order by Submit.
func (b *Batch) Record(fn func(cb vulkan.CommandBuffer)) {
	b.commands = append(b.commands, fn)
}

// Submit runs every recorded command in one command buffer, waits for it and
// frees the staging memory.
func (b *Batch) Submit() error {
	defer b.Discard()
	if len(b.commands) == 0 {
		return nil
	}
	return b.device.SubmitAndWait(func(cb vulkan.CommandBuffer) {
		for _, fn := range b.commands {
			fn(cb)
		}
	})
}

// Discard frees the staging memory without submitting.
func (b *Batch) Discard() {
	for _, s := range b.staging {
		vulkan.DestroyBuffer(b.device.LogicalDevice, s.buffer, nil)
		vulkan.FreeMemory(b.device.LogicalDevice, s.memory, nil)
	}
	b.staging = nil
	b.commands = nil
}
