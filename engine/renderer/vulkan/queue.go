package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// Queue is a device queue. Submissions on the same family are serialized
// through the device lock pool.
type Queue struct {
	Handle      vk.Queue
	FamilyIndex uint32

	device *VulkanDevice
}

// Submit submits cb. waitStages holds one stage mask per wait semaphore.
// fence may be nil; a non-nil fence must be unsignaled and becomes
// signaled when the GPU retires the work.
func (q *Queue) Submit(cb *CommandBuffer, waits []*Semaphore, waitStages []vk.PipelineStageFlags, signals []*Semaphore, fence *Fence) error {
	if len(waits) != len(waitStages) {
		return errors.Newf("%d wait semaphores with %d stage masks", len(waits), len(waitStages))
	}
	fenceHandle := vk.NullFence
	if fence != nil {
		if fence.IsSignaled {
			return errors.New("submit with a fence that has not been reset")
		}
		fenceHandle = fence.Handle
	}
	if err := cb.markSubmitted(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      semaphoreHandles(waits),
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    semaphoreHandles(signals),
	}

	return q.device.locks.SafeQueueCall(q.FamilyIndex, func() error {
		return Check(vk.QueueSubmit(q.Handle, 1, []vk.SubmitInfo{submitInfo}, fenceHandle), "vkQueueSubmit")
	})
}

// Present queues imageIndex of swapchain for presentation once wait is
// signaled. A suboptimal swapchain is reported by the driver but still
// presented.
func (q *Queue) Present(swapchain *Swapchain, wait *Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.Handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	return q.device.locks.SafeQueueCall(q.FamilyIndex, func() error {
		result := vk.QueuePresent(q.Handle, &presentInfo)
		if result == vk.Suboptimal {
			return nil
		}
		return Check(result, "vkQueuePresentKHR")
	})
}

func (q *Queue) WaitIdle() error {
	return q.device.locks.SafeQueueCall(q.FamilyIndex, func() error {
		return Check(vk.QueueWaitIdle(q.Handle), "vkQueueWaitIdle")
	})
}

func semaphoreHandles(semaphores []*Semaphore) []vk.Semaphore {
	if len(semaphores) == 0 {
		return nil
	}
	handles := make([]vk.Semaphore, len(semaphores))
	for i, s := range semaphores {
		handles[i] = s.Handle
	}
	return handles
}
