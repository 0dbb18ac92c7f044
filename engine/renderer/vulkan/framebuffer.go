package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
)

type Framebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	RenderPass  *RenderPass

	device *VulkanDevice
	id     uuid.UUID
}

func NewFramebuffer(device *VulkanDevice, renderPass *RenderPass, width, height uint32, attachments ...vk.ImageView) (*Framebuffer, error) {
	framebuffer := &Framebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		RenderPass:  renderPass,
		device:      device,
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.Handle,
		AttachmentCount: uint32(len(framebuffer.Attachments)),
		PAttachments:    framebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	if err := Check(vk.CreateFramebuffer(device.LogicalDevice, &createInfo, device.Allocator, &framebuffer.Handle), "vkCreateFramebuffer"); err != nil {
		return nil, err
	}
	framebuffer.id = device.tracker.Track(KindFramebuffer)
	return framebuffer, nil
}

// NewSwapchainFramebuffers creates one framebuffer per swapchain image,
// each sharing the swapchain depth attachment.
func NewSwapchainFramebuffers(device *VulkanDevice, renderPass *RenderPass, swapchain *Swapchain) ([]*Framebuffer, error) {
	framebuffers := make([]*Framebuffer, 0, len(swapchain.Views))
	for _, view := range swapchain.Views {
		fb, err := NewFramebuffer(device, renderPass, swapchain.Extent.Width, swapchain.Extent.Height, view, swapchain.DepthAttachment.View)
		if err != nil {
			for _, created := range framebuffers {
				created.Destroy()
			}
			return nil, err
		}
		framebuffers = append(framebuffers, fb)
	}
	return framebuffers, nil
}

func (fb *Framebuffer) Destroy() {
	if fb.Handle == vk.NullFramebuffer {
		return
	}
	vk.DestroyFramebuffer(fb.device.LogicalDevice, fb.Handle, fb.device.Allocator)
	fb.Handle = vk.NullFramebuffer
	fb.Attachments = nil
	fb.RenderPass = nil
	fb.device.tracker.Release(fb.id)
}
