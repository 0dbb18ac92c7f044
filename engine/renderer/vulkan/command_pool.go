package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// CommandPool allocates command buffers for one queue family. Buffers
// allocated from it can be reset individually.
type CommandPool struct {
	Handle      vk.CommandPool
	FamilyIndex uint32

	device *VulkanDevice
	id     uuid.UUID
}

func NewCommandPool(device *VulkanDevice, queueFamilyIndex uint32) (*CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	pool := &CommandPool{
		FamilyIndex: queueFamilyIndex,
		device:      device,
	}
	if err := Check(vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, device.Allocator, &pool.Handle), "vkCreateCommandPool"); err != nil {
		return nil, err
	}
	pool.id = device.tracker.Track(KindCommandPool)
	core.LogDebug("Command pool created for queue family %d.", queueFamilyIndex)
	return pool, nil
}

func (cp *CommandPool) Allocate(primary bool) (*CommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if primary {
		level = vk.CommandBufferLevelPrimary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cp.Handle,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := cp.device.locks.SafeCall(CommandBufferManagement, func() error {
		return Check(vk.AllocateCommandBuffers(cp.device.LogicalDevice, &allocateInfo, handles), "vkAllocateCommandBuffers")
	}); err != nil {
		return nil, err
	}
	return &CommandBuffer{
		Handle: handles[0],
		State:  CommandBufferStateReady,
		pool:   cp,
	}, nil
}

// AllocateAndBeginSingleUse allocates a primary buffer and begins recording
// it for one submission.
func (cp *CommandPool) AllocateAndBeginSingleUse() (*CommandBuffer, error) {
	cb, err := cp.Allocate(true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free()
		return nil, err
	}
	return cb, nil
}

// SubmitSingleUse records a one time buffer with record, submits it to
// queue and waits for the queue to go idle. The buffer is freed on every
// path, including a failed record.
func (cp *CommandPool) SubmitSingleUse(queue *Queue, record func(cb *CommandBuffer) error) error {
	cb, err := cp.AllocateAndBeginSingleUse()
	if err != nil {
		return err
	}
	if err := record(cb); err != nil {
		cb.Free()
		return err
	}
	return cb.EndSingleUse(queue)
}

func (cp *CommandPool) Destroy() {
	if cp.Handle == vk.NullCommandPool {
		return
	}
	vk.DestroyCommandPool(cp.device.LogicalDevice, cp.Handle, cp.device.Allocator)
	cp.Handle = vk.NullCommandPool
	cp.device.tracker.Release(cp.id)
}
