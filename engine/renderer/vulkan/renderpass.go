package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
)

type RenderPassConfig struct {
	ColorFormat vk.Format
	DepthFormat vk.Format
	ClearColor  [4]float32
	Depth       float32
	Stencil     uint32
}

// RenderPass is a single subpass pass with one color attachment that ends
// in the present layout and a cleared depth attachment.
type RenderPass struct {
	Handle     vk.RenderPass
	ClearColor [4]float32
	Depth      float32
	Stencil    uint32

	device *VulkanDevice
	id     uuid.UUID
}

func NewRenderPass(device *VulkanDevice, config RenderPassConfig) (*RenderPass, error) {
	attachments := []vk.AttachmentDescription{
		{
			Format:         config.ColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         config.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	depthReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
		PDepthStencilAttachment: &depthReference,
	}

	// Color and depth writes of this pass wait for the previous frame
	// using the same attachments.
	outputStages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  outputStages,
		DstStageMask:  outputStages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	renderPass := &RenderPass{
		ClearColor: config.ClearColor,
		Depth:      config.Depth,
		Stencil:    config.Stencil,
		device:     device,
	}
	if err := Check(vk.CreateRenderPass(device.LogicalDevice, &createInfo, device.Allocator, &renderPass.Handle), "vkCreateRenderPass"); err != nil {
		return nil, err
	}
	renderPass.id = device.tracker.Track(KindRenderPass)
	return renderPass, nil
}

func (rp *RenderPass) clearValues() []vk.ClearValue {
	values := make([]vk.ClearValue, 2)
	values[0].SetColor(rp.ClearColor[:])
	values[1].SetDepthStencil(rp.Depth, rp.Stencil)
	return values
}

func (rp *RenderPass) Destroy() {
	if rp.Handle == vk.NullRenderPass {
		return
	}
	vk.DestroyRenderPass(rp.device.LogicalDevice, rp.Handle, rp.device.Allocator)
	rp.Handle = vk.NullRenderPass
	rp.device.tracker.Release(rp.id)
}
