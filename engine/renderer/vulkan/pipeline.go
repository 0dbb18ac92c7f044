package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// maxPushConstantRanges follows from the 128 bytes with 4 byte alignment
// every device guarantees.
const maxPushConstantRanges = 32

/**
 * @brief Holds a Vulkan pipeline, its layout and the point it binds to.
 */
type Pipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	Layout vk.PipelineLayout
	/** @brief Graphics or compute. */
	BindPoint vk.PipelineBindPoint

	device *VulkanDevice
	id     uuid.UUID
}

type ShaderStage struct {
	Module *ShaderModule
	Stage  vk.ShaderStageFlagBits
}

type GraphicsPipelineConfig struct {
	/** @brief The renderpass to associate with the pipeline. */
	RenderPass *RenderPass
	/** @brief The vertex and fragment stages. */
	Stages []ShaderStage
	/** @brief The stride of one vertex in binding 0. */
	Stride uint32
	/** @brief The vertex attributes read from binding 0. */
	Attributes []vk.VertexInputAttributeDescription
	/** @brief The descriptor set layouts, in set order. */
	DescriptorSetLayouts []vk.DescriptorSetLayout
	/** @brief The push constant ranges. */
	PushConstantRanges []vk.PushConstantRange
	/** @brief The face cull mode. */
	CullMode vk.CullModeFlagBits
	/** @brief Indicates if this pipeline should use wireframe mode. */
	IsWireframe bool
	DepthTest   bool
	DepthWrite  bool
	/** @brief Enables src alpha over one minus src alpha blending. */
	AlphaBlend bool
}

type ComputePipelineConfig struct {
	Shader               *ShaderModule
	DescriptorSetLayouts []vk.DescriptorSetLayout
	PushConstantRanges   []vk.PushConstantRange
}

func createPipelineLayout(device *VulkanDevice, setLayouts []vk.DescriptorSetLayout, ranges []vk.PushConstantRange) (vk.PipelineLayout, error) {
	if len(ranges) > maxPushConstantRanges {
		return vk.NullPipelineLayout, errors.Newf("cannot have more than %d push constant ranges, got %d", maxPushConstantRanges, len(ranges))
	}
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}
	var layout vk.PipelineLayout
	err := device.locks.SafeCall(PipelineManagement, func() error {
		return Check(vk.CreatePipelineLayout(device.LogicalDevice, &createInfo, device.Allocator, &layout), "vkCreatePipelineLayout")
	})
	return layout, err
}

// NewGraphicsPipeline builds a triangle list pipeline with dynamic
// viewport and scissor.
func NewGraphicsPipeline(device *VulkanDevice, config GraphicsPipelineConfig) (*Pipeline, error) {
	if config.RenderPass == nil {
		return nil, errors.New("graphics pipeline without a render pass")
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, len(config.Stages))
	for i, s := range config.Stages {
		stages[i] = s.Module.stage(s.Stage)
	}

	// Counts only, the actual values are set per frame.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(config.CullMode),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}
	if config.IsWireframe {
		rasterizer.PolygonMode = vk.PolygonModeLine
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	blendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if config.AlphaBlend {
		blendAttachment.BlendEnable = vk.True
		blendAttachment.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		blendAttachment.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		blendAttachment.ColorBlendOp = vk.BlendOpAdd
		blendAttachment.SrcAlphaBlendFactor = vk.BlendFactorSrcAlpha
		blendAttachment.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		blendAttachment.AlphaBlendOp = vk.BlendOpAdd
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    config.Stride,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	layout, err := createPipelineLayout(device, config.DescriptorSetLayouts, config.PushConstantRanges)
	if err != nil {
		return nil, err
	}
	pipeline := &Pipeline{
		Layout:    layout,
		BindPoint: vk.PipelineBindPointGraphics,
		device:    device,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          config.RenderPass.Handle,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	handles := make([]vk.Pipeline, 1)
	if err := device.locks.SafeCall(PipelineManagement, func() error {
		return Check(vk.CreateGraphicsPipelines(device.LogicalDevice, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, device.Allocator, handles), "vkCreateGraphicsPipelines")
	}); err != nil {
		pipeline.Destroy()
		return nil, err
	}
	pipeline.Handle = handles[0]
	pipeline.id = device.tracker.Track(KindPipeline)

	core.LogDebug("Graphics pipeline created!")
	return pipeline, nil
}

func NewComputePipeline(device *VulkanDevice, config ComputePipelineConfig) (*Pipeline, error) {
	if config.Shader == nil {
		return nil, errors.New("compute pipeline without a shader")
	}
	layout, err := createPipelineLayout(device, config.DescriptorSetLayouts, config.PushConstantRanges)
	if err != nil {
		return nil, err
	}
	pipeline := &Pipeline{
		Layout:    layout,
		BindPoint: vk.PipelineBindPointCompute,
		device:    device,
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              config.Shader.stage(vk.ShaderStageComputeBit),
		Layout:             layout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}

	handles := make([]vk.Pipeline, 1)
	if err := device.locks.SafeCall(PipelineManagement, func() error {
		return Check(vk.CreateComputePipelines(device.LogicalDevice, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{createInfo}, device.Allocator, handles), "vkCreateComputePipelines")
	}); err != nil {
		pipeline.Destroy()
		return nil, err
	}
	pipeline.Handle = handles[0]
	pipeline.id = device.tracker.Track(KindPipeline)

	core.LogDebug("Compute pipeline created!")
	return pipeline, nil
}

func (p *Pipeline) Destroy() {
	device := p.device
	_ = device.locks.SafeCall(PipelineManagement, func() error {
		if p.Handle != vk.NullPipeline {
			vk.DestroyPipeline(device.LogicalDevice, p.Handle, device.Allocator)
			p.Handle = vk.NullPipeline
			device.tracker.Release(p.id)
		}
		if p.Layout != vk.NullPipelineLayout {
			vk.DestroyPipelineLayout(device.LogicalDevice, p.Layout, device.Allocator)
			p.Layout = vk.NullPipelineLayout
		}
		return nil
	})
}
