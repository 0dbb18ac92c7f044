package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

type CommandBufferState int

const (
	CommandBufferStateNotAllocated CommandBufferState = iota
	CommandBufferStateReady
	CommandBufferStateRecording
	CommandBufferStateInRenderPass
	CommandBufferStateRecordingEnded
	CommandBufferStateSubmitted
)

func (s CommandBufferState) String() string {
	switch s {
	case CommandBufferStateReady:
		return "ready"
	case CommandBufferStateRecording:
		return "recording"
	case CommandBufferStateInRenderPass:
		return "in_render_pass"
	case CommandBufferStateRecordingEnded:
		return "recording_ended"
	case CommandBufferStateSubmitted:
		return "submitted"
	}
	return "not_allocated"
}

// CommandBuffer records commands for its pool's queue family. Every
// operation checks the buffer state first and fails with
// ErrInvalidCommandBufferState without touching the driver when it is
// called out of order.
type CommandBuffer struct {
	Handle vk.CommandBuffer
	State  CommandBufferState

	pool *CommandPool
}

func (cb *CommandBuffer) expect(op string, states ...CommandBufferState) error {
	for _, s := range states {
		if cb.State == s {
			return nil
		}
	}
	return errors.Wrapf(core.ErrInvalidCommandBufferState, "%s in state %s", op, cb.State)
}

// recording accepts both plain recording and recording inside a render pass.
func (cb *CommandBuffer) recording(op string) error {
	return cb.expect(op, CommandBufferStateRecording, CommandBufferStateInRenderPass)
}

func (cb *CommandBuffer) Begin(singleUse, renderPassContinue, simultaneousUse bool) error {
	// the pool allows implicit resets, so a retired buffer can be re-recorded
	if err := cb.expect("begin", CommandBufferStateReady, CommandBufferStateRecordingEnded, CommandBufferStateSubmitted); err != nil {
		return err
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if singleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if renderPassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if simultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := Check(vk.BeginCommandBuffer(cb.Handle, &beginInfo), "vkBeginCommandBuffer"); err != nil {
		return err
	}
	cb.State = CommandBufferStateRecording
	return nil
}

func (cb *CommandBuffer) End() error {
	if err := cb.expect("end", CommandBufferStateRecording); err != nil {
		return err
	}
	if err := Check(vk.EndCommandBuffer(cb.Handle), "vkEndCommandBuffer"); err != nil {
		return err
	}
	cb.State = CommandBufferStateRecordingEnded
	return nil
}

func (cb *CommandBuffer) Reset() error {
	if err := cb.expect("reset", CommandBufferStateReady, CommandBufferStateRecordingEnded, CommandBufferStateSubmitted); err != nil {
		return err
	}
	if err := Check(vk.ResetCommandBuffer(cb.Handle, 0), "vkResetCommandBuffer"); err != nil {
		return err
	}
	cb.State = CommandBufferStateReady
	return nil
}

func (cb *CommandBuffer) markSubmitted() error {
	if err := cb.expect("submit", CommandBufferStateRecordingEnded); err != nil {
		return err
	}
	cb.State = CommandBufferStateSubmitted
	return nil
}

func (cb *CommandBuffer) BeginRenderPass(renderPass *RenderPass, framebuffer *Framebuffer, area vk.Rect2D) error {
	if err := cb.expect("begin render pass", CommandBufferStateRecording); err != nil {
		return err
	}
	clearValues := renderPass.clearValues()
	beginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      renderPass.Handle,
		Framebuffer:     framebuffer.Handle,
		RenderArea:      area,
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb.Handle, &beginInfo, vk.SubpassContentsInline)
	cb.State = CommandBufferStateInRenderPass
	return nil
}

func (cb *CommandBuffer) EndRenderPass() error {
	if err := cb.expect("end render pass", CommandBufferStateInRenderPass); err != nil {
		return err
	}
	vk.CmdEndRenderPass(cb.Handle)
	cb.State = CommandBufferStateRecording
	return nil
}

func (cb *CommandBuffer) SetViewport(viewport vk.Viewport) error {
	if err := cb.recording("set viewport"); err != nil {
		return err
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	return nil
}

func (cb *CommandBuffer) SetScissor(scissor vk.Rect2D) error {
	if err := cb.recording("set scissor"); err != nil {
		return err
	}
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})
	return nil
}

func (cb *CommandBuffer) BindPipeline(pipeline *Pipeline) error {
	if err := cb.recording("bind pipeline"); err != nil {
		return err
	}
	vk.CmdBindPipeline(cb.Handle, pipeline.BindPoint, pipeline.Handle)
	return nil
}

func (cb *CommandBuffer) BindDescriptorSets(pipeline *Pipeline, firstSet uint32, sets ...vk.DescriptorSet) error {
	if err := cb.recording("bind descriptor sets"); err != nil {
		return err
	}
	vk.CmdBindDescriptorSets(cb.Handle, pipeline.BindPoint, pipeline.Layout, firstSet, uint32(len(sets)), sets, 0, nil)
	return nil
}

func (cb *CommandBuffer) BindVertexBuffer(buffer *Buffer, offset uint64) error {
	if err := cb.recording("bind vertex buffer"); err != nil {
		return err
	}
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{buffer.Handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
	return nil
}

func (cb *CommandBuffer) BindIndexBuffer(buffer *Buffer, offset uint64, indexType vk.IndexType) error {
	if err := cb.recording("bind index buffer"); err != nil {
		return err
	}
	vk.CmdBindIndexBuffer(cb.Handle, buffer.Handle, vk.DeviceSize(offset), indexType)
	return nil
}

func (cb *CommandBuffer) PushConstants(pipeline *Pipeline, stages vk.ShaderStageFlags, offset uint32, data []byte) error {
	if err := cb.recording("push constants"); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	vk.CmdPushConstants(cb.Handle, pipeline.Layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
	return nil
}

func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if err := cb.expect("draw", CommandBufferStateInRenderPass); err != nil {
		return err
	}
	vk.CmdDraw(cb.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	if err := cb.expect("draw indexed", CommandBufferStateInRenderPass); err != nil {
		return err
	}
	vk.CmdDrawIndexed(cb.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

// Dispatch records a compute dispatch. Dispatches are not allowed inside a
// render pass.
func (cb *CommandBuffer) Dispatch(groupsX, groupsY, groupsZ uint32) error {
	if err := cb.expect("dispatch", CommandBufferStateRecording); err != nil {
		return err
	}
	vk.CmdDispatch(cb.Handle, groupsX, groupsY, groupsZ)
	return nil
}

func (cb *CommandBuffer) CopyBuffer(src, dst *Buffer, size uint64) error {
	if err := cb.expect("copy buffer", CommandBufferStateRecording); err != nil {
		return err
	}
	vk.CmdCopyBuffer(cb.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
	return nil
}

func (cb *CommandBuffer) CopyBufferToImage(src *Buffer, texture *Texture) error {
	if err := cb.expect("copy buffer to image", CommandBufferStateRecording); err != nil {
		return err
	}
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(texture.Aspect),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{
			Width:  texture.Width,
			Height: texture.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cb.Handle, src.Handle, texture.Image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	return nil
}

func (cb *CommandBuffer) PipelineBarrier(srcStage, dstStage vk.PipelineStageFlags, barriers ...vk.ImageMemoryBarrier) error {
	if err := cb.expect("pipeline barrier", CommandBufferStateRecording); err != nil {
		return err
	}
	vk.CmdPipelineBarrier(cb.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
	return nil
}

// EndSingleUse ends recording, submits to queue, waits for the queue to go
// idle and frees the buffer.
func (cb *CommandBuffer) EndSingleUse(queue *Queue) error {
	defer cb.Free()

	if err := cb.End(); err != nil {
		return err
	}
	if err := queue.Submit(cb, nil, nil, nil, nil); err != nil {
		return err
	}
	return queue.WaitIdle()
}

func (cb *CommandBuffer) Free() {
	if cb.State == CommandBufferStateNotAllocated {
		return
	}
	device := cb.pool.device
	_ = device.locks.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(device.LogicalDevice, cb.pool.Handle, 1, []vk.CommandBuffer{cb.Handle})
		return nil
	})
	cb.Handle = nil
	cb.State = CommandBufferStateNotAllocated
}
