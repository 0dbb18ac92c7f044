package vulkan

import (
	"slices"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// Buffer is a VkBuffer with its own memory allocation.
type Buffer struct {
	Handle vk.Buffer
	Size   uint64
	Usage  vk.BufferUsageFlags

	memory    *Allocation
	allocator *MemoryAllocator
	id        uuid.UUID
}

// NewBuffer creates a buffer and binds fresh memory to it. When
// sharedFamilies names more than one queue family the buffer is created
// with concurrent sharing between them.
func NewBuffer(allocator *MemoryAllocator, size uint64, usage vk.BufferUsageFlags, required vk.MemoryPropertyFlags, hint MemoryUsage, sharedFamilies ...uint32) (*Buffer, error) {
	device := allocator.device
	buffer := &Buffer{
		Size:      size,
		Usage:     usage,
		allocator: allocator,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if families := distinctFamilies(sharedFamilies); len(families) > 1 {
		bufferInfo.SharingMode = vk.SharingModeConcurrent
		bufferInfo.QueueFamilyIndexCount = uint32(len(families))
		bufferInfo.PQueueFamilyIndices = families
	}
	if err := Check(vk.CreateBuffer(device.LogicalDevice, &bufferInfo, device.Allocator, &buffer.Handle), "vkCreateBuffer"); err != nil {
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	memory, err := allocator.Allocate(requirements, hint, required)
	if err != nil {
		vk.DestroyBuffer(device.LogicalDevice, buffer.Handle, device.Allocator)
		return nil, errors.Wrapf(err, "buffer of %d bytes", size)
	}
	buffer.memory = memory

	if err := Check(vk.BindBufferMemory(device.LogicalDevice, buffer.Handle, memory.Memory, 0), "vkBindBufferMemory"); err != nil {
		allocator.Free(memory)
		vk.DestroyBuffer(device.LogicalDevice, buffer.Handle, device.Allocator)
		return nil, err
	}

	buffer.id = device.tracker.Track(KindBuffer)
	return buffer, nil
}

func (b *Buffer) HostVisible() bool {
	return b.memory != nil && b.memory.HostVisible()
}

// LoadData copies data into host visible memory. len(data) must equal the
// buffer size.
func (b *Buffer) LoadData(data []byte) error {
	if uint64(len(data)) != b.Size {
		return errors.Wrapf(core.ErrDataSizeMismatch, "buffer is %d bytes, data is %d", b.Size, len(data))
	}
	ptr, err := b.allocator.Map(b.memory)
	if err != nil {
		return err
	}
	defer b.allocator.Unmap(b.memory)

	vk.Memcopy(ptr, data)
	return nil
}

// ReadData copies the buffer contents back to the host.
func (b *Buffer) ReadData() ([]byte, error) {
	ptr, err := b.allocator.Map(b.memory)
	if err != nil {
		return nil, err
	}
	defer b.allocator.Unmap(b.memory)

	out := make([]byte, b.Size)
	copy(out, unsafe.Slice((*byte)(ptr), b.Size))
	return out, nil
}

// LoadDataStaging uploads data through a temporary host visible buffer and
// returns once the copy has completed on queue.
func (b *Buffer) LoadDataStaging(data []byte, queue *Queue, pool *CommandPool) error {
	if uint64(len(data)) != b.Size {
		return errors.Wrapf(core.ErrDataSizeMismatch, "buffer is %d bytes, data is %d", b.Size, len(data))
	}
	staging, err := NewBuffer(b.allocator, b.Size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisibleCoherent, MemoryUsageCPUOnly)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	if err := staging.LoadData(data); err != nil {
		return err
	}
	return staging.CopyTo(b, queue, pool)
}

// CopyTo copies the whole buffer into dst with a single use command buffer.
// The queue is idle before and after the copy.
func (b *Buffer) CopyTo(dst *Buffer, queue *Queue, pool *CommandPool) error {
	if dst.Size < b.Size {
		return errors.Wrapf(core.ErrDataSizeMismatch, "destination is %d bytes, source is %d", dst.Size, b.Size)
	}
	if err := queue.WaitIdle(); err != nil {
		return err
	}
	return pool.SubmitSingleUse(queue, func(cb *CommandBuffer) error {
		return cb.CopyBuffer(b, dst, b.Size)
	})
}

func (b *Buffer) Destroy() {
	if b.Handle == vk.NullBuffer {
		return
	}
	device := b.allocator.device
	vk.DestroyBuffer(device.LogicalDevice, b.Handle, device.Allocator)
	b.Handle = vk.NullBuffer
	b.allocator.Free(b.memory)
	b.memory = nil
	device.tracker.Release(b.id)
}

func distinctFamilies(families []uint32) []uint32 {
	var out []uint32
	for _, f := range families {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
