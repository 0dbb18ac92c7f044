package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// Fence signals the CPU when a submission retires. IsSignaled mirrors the
// last state observed by the CPU.
type Fence struct {
	Handle     vk.Fence
	IsSignaled bool

	device *VulkanDevice
	id     uuid.UUID
}

func NewFence(device *VulkanDevice, createSignaled bool) (*Fence, error) {
	fence := &Fence{
		IsSignaled: createSignaled,
		device:     device,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	if err := Check(vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, device.Allocator, &fence.Handle), "vkCreateFence"); err != nil {
		return nil, err
	}
	fence.id = device.tracker.Track(KindFence)
	return fence, nil
}

// Wait blocks until the fence is signaled or timeoutNs elapses, in which
// case ErrFenceTimeout is returned.
func (f *Fence) Wait(timeoutNs uint64) error {
	if f.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(f.device.LogicalDevice, 1, []vk.Fence{f.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		f.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return errors.Wrapf(core.ErrFenceTimeout, "after %d ns", timeoutNs)
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - An unknown error has occurred.")
	}
	return Check(result, "vkWaitForFences")
}

func (f *Fence) Reset() error {
	if !f.IsSignaled {
		return nil
	}
	if err := Check(vk.ResetFences(f.device.LogicalDevice, 1, []vk.Fence{f.Handle}), "vkResetFences"); err != nil {
		return err
	}
	f.IsSignaled = false
	return nil
}

func (f *Fence) Destroy() {
	if f.Handle == vk.NullFence {
		return
	}
	vk.DestroyFence(f.device.LogicalDevice, f.Handle, f.device.Allocator)
	f.Handle = vk.NullFence
	f.IsSignaled = false
	f.device.tracker.Release(f.id)
}

// Semaphore orders work between queue operations on the GPU.
type Semaphore struct {
	Handle vk.Semaphore

	device *VulkanDevice
	id     uuid.UUID
}

func NewSemaphore(device *VulkanDevice) (*Semaphore, error) {
	semaphore := &Semaphore{device: device}
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	if err := Check(vk.CreateSemaphore(device.LogicalDevice, &createInfo, device.Allocator, &semaphore.Handle), "vkCreateSemaphore"); err != nil {
		return nil, err
	}
	semaphore.id = device.tracker.Track(KindSemaphore)
	return semaphore, nil
}

func (s *Semaphore) Destroy() {
	if s.Handle == vk.NullSemaphore {
		return
	}
	vk.DestroySemaphore(s.device.LogicalDevice, s.Handle, s.device.Allocator)
	s.Handle = vk.NullSemaphore
	s.device.tracker.Release(s.id)
}
