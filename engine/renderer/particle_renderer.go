package renderer

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/particle-shadowing/engine/assets/loaders"
	"github.com/spaghettifunk/particle-shadowing/engine/core"
	emath "github.com/spaghettifunk/particle-shadowing/engine/math"
	"github.com/spaghettifunk/particle-shadowing/engine/particles"
	"github.com/spaghettifunk/particle-shadowing/engine/renderer/vulkan"
)

// WindowSystem is the part of the platform layer the renderer needs.
type WindowSystem interface {
	vulkan.SurfaceSource
	RequiredInstanceExtensions() []string
	VulkanProcAddress() unsafe.Pointer
	FramebufferSize() (width, height uint32)
}

type ParticleRendererConfig struct {
	ApplicationName  string
	EnableValidation bool
	ParticleCount    uint32
	Shaders          ShaderSet
	ClearColor       [4]float32
	SphereSectors    uint32
	SphereStacks     uint32
	// SurfaceImage tints the spheres. Nil means plain white.
	SurfaceImage *loaders.ImageData
}

const (
	vertexStage   = vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	fragmentStage = vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	computeStage  = vk.ShaderStageFlags(vk.ShaderStageComputeBit)

	hostVisibleCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
)

// frameResources is everything one frame slot records into or waits on.
type frameResources struct {
	computeCommands  *vulkan.CommandBuffer
	graphicsCommands *vulkan.CommandBuffer

	computeFence  *vulkan.Fence
	graphicsFence *vulkan.Fence

	computeFinished *vulkan.Semaphore
	imageAvailable  *vulkan.Semaphore
	renderFinished  *vulkan.Semaphore

	particles *vulkan.Buffer
	shadows   *vulkan.Buffer
	uniforms  *vulkan.Buffer

	particleSet    vk.DescriptorSet
	shadowWriteSet vk.DescriptorSet
	globalSet      vk.DescriptorSet
	shadowReadSet  vk.DescriptorSet
}

// ParticleRenderer draws every particle as an instanced-by-push-constant
// sphere whose brightness comes from a per particle shadow factor computed
// on the compute queue earlier in the same frame.
type ParticleRenderer struct {
	config ParticleRendererConfig

	instance    *vulkan.VulkanInstance
	messenger   vulkan.DebugMessenger
	surface     *vulkan.Surface
	device      *vulkan.VulkanDevice
	allocator   *vulkan.MemoryAllocator
	layouts     *vulkan.DescriptorSetLayoutCache
	descriptors *vulkan.DescriptorAllocator

	graphicsQueue *vulkan.Queue
	computeQueue  *vulkan.Queue
	presentQueue  *vulkan.Queue
	graphicsPool  *vulkan.CommandPool
	computePool   *vulkan.CommandPool

	swapchain    *vulkan.Swapchain
	renderPass   *vulkan.RenderPass
	framebuffers []*vulkan.Framebuffer

	sphereVertices *vulkan.Buffer
	sphereIndices  *vulkan.Buffer
	indexCount     uint32
	surfaceTexture *vulkan.Texture

	graphicsSetLayouts []vk.DescriptorSetLayout
	computeSetLayouts  []vk.DescriptorSetLayout

	graphicsPipeline *vulkan.Pipeline
	computePipeline  *vulkan.Pipeline

	frames []*frameResources
	packet *RenderPacket

	// destroyers run in reverse order on shutdown.
	destroyers []func() error
}

// NewParticleRenderer brings up the whole Vulkan stack for window. Anything
// created before a failure is destroyed again before returning.
func NewParticleRenderer(window WindowSystem, config ParticleRendererConfig) (*ParticleRenderer, error) {
	if config.ParticleCount == 0 {
		return nil, errors.New("particle renderer needs at least one particle")
	}
	if config.SphereSectors == 0 {
		config.SphereSectors = 36
	}
	if config.SphereStacks == 0 {
		config.SphereStacks = 18
	}

	r := &ParticleRenderer{config: config}
	if err := r.initialize(window); err != nil {
		if releaseErr := r.release(); releaseErr != nil {
			core.LogError("Partial renderer teardown failed: %v", releaseErr)
		}
		return nil, err
	}
	return r, nil
}

func (r *ParticleRenderer) onShutdown(destroy func() error) {
	r.destroyers = append(r.destroyers, destroy)
}

func (r *ParticleRenderer) onShutdownQuiet(destroy func()) {
	r.onShutdown(func() error {
		destroy()
		return nil
	})
}

func (r *ParticleRenderer) initialize(window WindowSystem) error {
	var err error
	if err = vulkan.InitLoader(window.VulkanProcAddress()); err != nil {
		return err
	}

	r.instance, err = vulkan.NewInstance(vulkan.InstanceConfig{
		ApplicationName:  r.config.ApplicationName,
		EngineName:       "particle-shadowing",
		EnableValidation: r.config.EnableValidation,
	}, window.RequiredInstanceExtensions())
	if err != nil {
		return err
	}
	r.onShutdownQuiet(r.instance.Destroy)

	if r.messenger, err = vulkan.NewDebugMessenger(r.instance); err != nil {
		return err
	}
	r.onShutdownQuiet(r.messenger.Destroy)

	if r.surface, err = r.instance.CreateSurface(window); err != nil {
		return err
	}
	r.onShutdownQuiet(r.surface.Destroy)

	if r.device, err = vulkan.NewDevice(r.instance, r.surface); err != nil {
		return err
	}
	r.onShutdown(r.device.Destroy)

	r.allocator = vulkan.NewMemoryAllocator(r.device)
	r.onShutdown(r.allocator.Destroy)

	r.layouts = vulkan.NewDescriptorSetLayoutCache(r.device)
	r.onShutdownQuiet(r.layouts.Destroy)
	r.descriptors = vulkan.NewDescriptorAllocator(r.device)
	r.onShutdownQuiet(r.descriptors.Destroy)

	r.graphicsQueue = r.device.Queue(vulkan.QueueGraphics)
	r.computeQueue = r.device.Queue(vulkan.QueueCompute)
	r.presentQueue = r.device.Queue(vulkan.QueuePresent)

	if r.graphicsPool, err = vulkan.NewCommandPool(r.device, r.graphicsQueue.FamilyIndex); err != nil {
		return err
	}
	r.onShutdownQuiet(r.graphicsPool.Destroy)
	if r.computePool, err = vulkan.NewCommandPool(r.device, r.computeQueue.FamilyIndex); err != nil {
		return err
	}
	r.onShutdownQuiet(r.computePool.Destroy)

	width, height := window.FramebufferSize()
	if r.swapchain, err = vulkan.NewSwapchain(r.allocator, width, height); err != nil {
		return err
	}
	r.onShutdownQuiet(r.swapchain.Destroy)

	r.renderPass, err = vulkan.NewRenderPass(r.device, vulkan.RenderPassConfig{
		ColorFormat: r.swapchain.ImageFormat.Format,
		DepthFormat: vulkan.DepthFormat,
		ClearColor:  r.config.ClearColor,
		Depth:       1.0,
		Stencil:     0,
	})
	if err != nil {
		return err
	}
	r.onShutdownQuiet(r.renderPass.Destroy)

	if r.framebuffers, err = vulkan.NewSwapchainFramebuffers(r.device, r.renderPass, r.swapchain); err != nil {
		return err
	}
	for _, fb := range r.framebuffers {
		r.onShutdownQuiet(fb.Destroy)
	}

	if err = r.createSphere(); err != nil {
		return err
	}
	if err = r.createSurfaceTexture(); err != nil {
		return err
	}
	if err = r.createSetLayouts(); err != nil {
		return err
	}
	if err = r.createFrames(); err != nil {
		return err
	}

	if r.graphicsPipeline, r.computePipeline, err = r.buildPipelines(r.config.Shaders); err != nil {
		return err
	}

	core.LogInfo("Particle renderer initialized with %d frames in flight.", len(r.frames))
	return nil
}

func floatBytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func uintBytes(values []uint32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// createSphere uploads the unit sphere every particle is drawn with.
func (r *ParticleRenderer) createSphere() error {
	vertices := floatBytes(emath.SphereVertices(1, r.config.SphereSectors, r.config.SphereStacks))
	indices := emath.SphereIndices(r.config.SphereSectors, r.config.SphereStacks)
	r.indexCount = uint32(len(indices))

	var err error
	r.sphereVertices, err = vulkan.NewBuffer(r.allocator, uint64(len(vertices)),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), vulkan.MemoryUsageGPUOnly)
	if err != nil {
		return err
	}
	r.onShutdownQuiet(r.sphereVertices.Destroy)
	if err := r.sphereVertices.LoadDataStaging(vertices, r.graphicsQueue, r.graphicsPool); err != nil {
		return errors.Wrap(err, "sphere vertices")
	}

	indexData := uintBytes(indices)
	r.sphereIndices, err = vulkan.NewBuffer(r.allocator, uint64(len(indexData)),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), vulkan.MemoryUsageGPUOnly)
	if err != nil {
		return err
	}
	r.onShutdownQuiet(r.sphereIndices.Destroy)
	if err := r.sphereIndices.LoadDataStaging(indexData, r.graphicsQueue, r.graphicsPool); err != nil {
		return errors.Wrap(err, "sphere indices")
	}
	return nil
}

var whitePixel = &loaders.ImageData{Width: 1, Height: 1, ChannelCount: 4, Pixels: []byte{255, 255, 255, 255}}

// createSurfaceTexture uploads the image sampled across every sphere.
func (r *ParticleRenderer) createSurfaceTexture() error {
	img := r.config.SurfaceImage
	if img == nil {
		img = whitePixel
	}
	if img.ChannelCount != 4 {
		return errors.Newf("surface image has %d channels, want 4", img.ChannelCount)
	}

	var err error
	r.surfaceTexture, err = vulkan.NewTexture(r.allocator, vulkan.TextureConfig{
		Width:  img.Width,
		Height: img.Height,
		Format: vk.FormatR8g8b8a8Unorm,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageSampledBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
	})
	if err != nil {
		return err
	}
	r.onShutdownQuiet(r.surfaceTexture.Destroy)
	return errors.Wrap(r.surfaceTexture.WriteData(img.Pixels, r.graphicsQueue, r.graphicsPool), "surface texture")
}

func globalBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: vertexStage},
		{Binding: 1, DescriptorType: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1, StageFlags: fragmentStage},
	}
}

func layoutBinding(descriptorType vk.DescriptorType, stages vk.ShaderStageFlags) []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
		StageFlags:      stages,
	}}
}

// createSetLayouts resolves the pipeline layouts through the cache. Both
// compute sets share a single layout.
func (r *ParticleRenderer) createSetLayouts() error {
	global, err := r.layouts.CreateLayout(globalBindings())
	if err != nil {
		return err
	}
	shadowRead, err := r.layouts.CreateLayout(layoutBinding(vk.DescriptorTypeStorageBuffer, vertexStage))
	if err != nil {
		return err
	}
	computeRead, err := r.layouts.CreateLayout(layoutBinding(vk.DescriptorTypeStorageBuffer, computeStage))
	if err != nil {
		return err
	}
	computeWrite, err := r.layouts.CreateLayout(layoutBinding(vk.DescriptorTypeStorageBuffer, computeStage))
	if err != nil {
		return err
	}
	r.graphicsSetLayouts = []vk.DescriptorSetLayout{global, shadowRead}
	r.computeSetLayouts = []vk.DescriptorSetLayout{computeRead, computeWrite}
	return nil
}

func wholeBuffer(b *vulkan.Buffer) vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{Buffer: b.Handle, Offset: 0, Range: vk.DeviceSize(b.Size)}
}

func (r *ParticleRenderer) createFrames() error {
	count := r.swapchain.MaxFramesInFlight
	r.frames = make([]*frameResources, count)

	families := []uint32{r.graphicsQueue.FamilyIndex, r.computeQueue.FamilyIndex}
	storage := vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)

	for i := range r.frames {
		fr := &frameResources{}
		r.frames[i] = fr

		var err error
		if fr.computeCommands, err = r.computePool.Allocate(true); err != nil {
			return err
		}
		if fr.graphicsCommands, err = r.graphicsPool.Allocate(true); err != nil {
			return err
		}

		// both fences start signaled so the first wait of every slot passes
		if fr.computeFence, err = vulkan.NewFence(r.device, true); err != nil {
			return err
		}
		r.onShutdownQuiet(fr.computeFence.Destroy)
		if fr.graphicsFence, err = vulkan.NewFence(r.device, true); err != nil {
			return err
		}
		r.onShutdownQuiet(fr.graphicsFence.Destroy)

		for _, s := range []**vulkan.Semaphore{&fr.computeFinished, &fr.imageAvailable, &fr.renderFinished} {
			if *s, err = vulkan.NewSemaphore(r.device); err != nil {
				return err
			}
			r.onShutdownQuiet((*s).Destroy)
		}

		particleBytes := uint64(r.config.ParticleCount) * particles.ParticleSize
		if fr.particles, err = vulkan.NewBuffer(r.allocator, particleBytes, storage, hostVisibleCoherent, vulkan.MemoryUsageCPUToGPU); err != nil {
			return err
		}
		r.onShutdownQuiet(fr.particles.Destroy)

		shadowBytes := uint64(r.config.ParticleCount) * ShadowFactorSize
		if fr.shadows, err = vulkan.NewBuffer(r.allocator, shadowBytes, storage, hostVisibleCoherent, vulkan.MemoryUsageGPUToCPU, families...); err != nil {
			return err
		}
		r.onShutdownQuiet(fr.shadows.Destroy)

		if fr.uniforms, err = vulkan.NewBuffer(r.allocator, GlobalUniformsSize, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisibleCoherent, vulkan.MemoryUsageCPUToGPU); err != nil {
			return err
		}
		r.onShutdownQuiet(fr.uniforms.Destroy)

		if fr.particleSet, _, err = vulkan.NewDescriptorSetBuilder(r.layouts, r.descriptors).
			BindBuffer(0, wholeBuffer(fr.particles), vk.DescriptorTypeStorageBuffer, computeStage).
			Build(); err != nil {
			return errors.Wrap(err, "particle set")
		}
		if fr.shadowWriteSet, _, err = vulkan.NewDescriptorSetBuilder(r.layouts, r.descriptors).
			BindBuffer(0, wholeBuffer(fr.shadows), vk.DescriptorTypeStorageBuffer, computeStage).
			Build(); err != nil {
			return errors.Wrap(err, "shadow write set")
		}
		if fr.globalSet, _, err = vulkan.NewDescriptorSetBuilder(r.layouts, r.descriptors).
			BindBuffer(0, wholeBuffer(fr.uniforms), vk.DescriptorTypeUniformBuffer, vertexStage).
			BindImage(1, vk.DescriptorImageInfo{
				Sampler:     r.surfaceTexture.Sampler,
				ImageView:   r.surfaceTexture.View,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}, vk.DescriptorTypeCombinedImageSampler, fragmentStage).
			Build(); err != nil {
			return errors.Wrap(err, "global set")
		}
		if fr.shadowReadSet, _, err = vulkan.NewDescriptorSetBuilder(r.layouts, r.descriptors).
			BindBuffer(0, wholeBuffer(fr.shadows), vk.DescriptorTypeStorageBuffer, vertexStage).
			Build(); err != nil {
			return errors.Wrap(err, "shadow read set")
		}
	}
	return nil
}

// buildPipelines compiles both pipelines from shaders. The shader modules
// are only needed while the pipelines are created.
func (r *ParticleRenderer) buildPipelines(shaders ShaderSet) (*vulkan.Pipeline, *vulkan.Pipeline, error) {
	vert, err := vulkan.NewShaderModule(r.device, "particle.vert", shaders.Vertex)
	if err != nil {
		return nil, nil, err
	}
	defer vert.Destroy()
	frag, err := vulkan.NewShaderModule(r.device, "particle.frag", shaders.Fragment)
	if err != nil {
		return nil, nil, err
	}
	defer frag.Destroy()
	comp, err := vulkan.NewShaderModule(r.device, "particle_shadowing.comp", shaders.Compute)
	if err != nil {
		return nil, nil, err
	}
	defer comp.Destroy()

	graphics, err := vulkan.NewGraphicsPipeline(r.device, vulkan.GraphicsPipelineConfig{
		RenderPass: r.renderPass,
		Stages: []vulkan.ShaderStage{
			{Module: vert, Stage: vk.ShaderStageVertexBit},
			{Module: frag, Stage: vk.ShaderStageFragmentBit},
		},
		Stride: emath.SphereVertexStride * 4,
		Attributes: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		},
		DescriptorSetLayouts: r.graphicsSetLayouts,
		PushConstantRanges: []vk.PushConstantRange{
			{StageFlags: vertexStage, Offset: 0, Size: GraphicsPushConstantsSize},
		},
		CullMode:   vk.CullModeBackBit,
		DepthTest:  true,
		DepthWrite: true,
		AlphaBlend: true,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "graphics pipeline")
	}

	compute, err := vulkan.NewComputePipeline(r.device, vulkan.ComputePipelineConfig{
		Shader:               comp,
		DescriptorSetLayouts: r.computeSetLayouts,
		PushConstantRanges: []vk.PushConstantRange{
			{StageFlags: computeStage, Offset: 0, Size: ComputePushConstantsSize},
		},
	})
	if err != nil {
		graphics.Destroy()
		return nil, nil, errors.Wrap(err, "compute pipeline")
	}
	return graphics, compute, nil
}

func (r *ParticleRenderer) MaxFramesInFlight() uint32 {
	return uint32(len(r.frames))
}

func (r *ParticleRenderer) Prepare(packet *RenderPacket) {
	r.packet = packet
}

func (r *ParticleRenderer) WaitIdle() error {
	return r.device.WaitIdle()
}

func (r *ParticleRenderer) WaitComputeFence(frame uint32) error {
	fr := r.frames[frame]
	if err := fr.computeFence.Wait(math.MaxUint64); err != nil {
		return err
	}
	return fr.computeFence.Reset()
}

// RecordCompute uploads the particles and records one shadow factor
// invocation per particle.
func (r *ParticleRenderer) RecordCompute(frame uint32) error {
	if r.packet == nil {
		return errors.New("no render packet prepared")
	}
	fr := r.frames[frame]
	if err := fr.particles.LoadData(r.packet.ParticleData); err != nil {
		return err
	}

	sun := ComputePushConstants{SunDirection: r.packet.SunDirection.Vec4(0)}
	cb := fr.computeCommands
	return firstError(
		func() error { return cb.Begin(false, false, false) },
		func() error { return cb.BindPipeline(r.computePipeline) },
		func() error {
			return cb.BindDescriptorSets(r.computePipeline, 0, fr.particleSet, fr.shadowWriteSet)
		},
		func() error { return cb.PushConstants(r.computePipeline, computeStage, 0, sun.Bytes()) },
		func() error { return cb.Dispatch(DispatchGroups(r.config.ParticleCount, ComputeLocalSize), 1, 1) },
		cb.End,
	)
}

func (r *ParticleRenderer) SubmitCompute(frame uint32) error {
	fr := r.frames[frame]
	return r.computeQueue.Submit(fr.computeCommands, nil, nil, []*vulkan.Semaphore{fr.computeFinished}, fr.computeFence)
}

func (r *ParticleRenderer) WaitGraphicsFences(frame uint32) error {
	fr := r.frames[frame]
	if err := fr.computeFence.Wait(math.MaxUint64); err != nil {
		return err
	}
	if err := fr.graphicsFence.Wait(math.MaxUint64); err != nil {
		return err
	}
	return fr.graphicsFence.Reset()
}

func (r *ParticleRenderer) AcquireImage(frame uint32) (uint32, error) {
	return r.swapchain.AcquireNextImage(math.MaxUint64, r.frames[frame].imageAvailable)
}

// RecordGraphics draws one sphere per particle. The shadow buffer is
// indexed by draw order, which is particle order.
func (r *ParticleRenderer) RecordGraphics(frame, imageIndex uint32) error {
	if r.packet == nil {
		return errors.New("no render packet prepared")
	}
	if int(imageIndex) >= len(r.framebuffers) {
		return errors.Newf("image index %d out of range", imageIndex)
	}
	fr := r.frames[frame]
	globals := GlobalUniforms{Projection: r.packet.Projection, View: r.packet.View}
	if err := fr.uniforms.LoadData(globals.Bytes()); err != nil {
		return err
	}

	drawn := r.packet.Particles
	if uint32(len(drawn)) > r.config.ParticleCount {
		drawn = drawn[:r.config.ParticleCount]
	}

	extent := r.swapchain.Extent
	area := vk.Rect2D{Offset: vk.Offset2D{X: 0, Y: 0}, Extent: extent}
	cb := fr.graphicsCommands
	err := firstError(
		func() error { return cb.Begin(false, false, false) },
		func() error { return cb.BeginRenderPass(r.renderPass, r.framebuffers[imageIndex], area) },
		func() error { return cb.SetViewport(FlippedViewport(extent)) },
		func() error { return cb.SetScissor(area) },
		func() error { return cb.BindPipeline(r.graphicsPipeline) },
		func() error { return cb.BindVertexBuffer(r.sphereVertices, 0) },
		func() error { return cb.BindIndexBuffer(r.sphereIndices, 0, vk.IndexTypeUint32) },
		func() error {
			return cb.BindDescriptorSets(r.graphicsPipeline, 0, fr.globalSet, fr.shadowReadSet)
		},
	)
	if err != nil {
		return err
	}

	for i, p := range drawn {
		constants := GraphicsPushConstants{
			Model:       emath.ModelMatrix(p.Position, p.Radius),
			ShadowIndex: uint32(i),
			Opacity:     p.Opacity,
		}
		if err := cb.PushConstants(r.graphicsPipeline, vertexStage, 0, constants.Bytes()); err != nil {
			return err
		}
		if err := cb.DrawIndexed(r.indexCount, 1, 0, 0, 0); err != nil {
			return err
		}
	}

	if err := cb.EndRenderPass(); err != nil {
		return err
	}
	return cb.End()
}

// SubmitGraphics waits on the shadow factors before vertex input and on
// the swapchain image before color output.
func (r *ParticleRenderer) SubmitGraphics(frame, imageIndex uint32) error {
	fr := r.frames[frame]
	return r.graphicsQueue.Submit(fr.graphicsCommands,
		[]*vulkan.Semaphore{fr.computeFinished, fr.imageAvailable},
		[]vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		[]*vulkan.Semaphore{fr.renderFinished},
		fr.graphicsFence)
}

func (r *ParticleRenderer) Present(frame, imageIndex uint32) error {
	return r.presentQueue.Present(r.swapchain, r.frames[frame].renderFinished, imageIndex)
}

// ReloadShaders swaps in pipelines built from shaders once the device is
// idle. On failure the current pipelines are kept.
func (r *ParticleRenderer) ReloadShaders(shaders ShaderSet) error {
	if err := r.device.WaitIdle(); err != nil {
		return err
	}
	graphics, compute, err := r.buildPipelines(shaders)
	if err != nil {
		return err
	}
	r.destroyPipelines()
	r.graphicsPipeline, r.computePipeline = graphics, compute
	r.config.Shaders = shaders
	return nil
}

func (r *ParticleRenderer) destroyPipelines() {
	if r.graphicsPipeline != nil {
		r.graphicsPipeline.Destroy()
		r.graphicsPipeline = nil
	}
	if r.computePipeline != nil {
		r.computePipeline.Destroy()
		r.computePipeline = nil
	}
}

// Shutdown waits for the device and destroys everything in reverse
// creation order. Resources leaked by the device or allocator are
// reported as an error.
func (r *ParticleRenderer) Shutdown() error {
	if r.device != nil {
		if err := r.device.WaitIdle(); err != nil {
			core.LogWarn("Device did not go idle before shutdown: %v", err)
		}
	}
	return r.release()
}

func (r *ParticleRenderer) release() error {
	r.destroyPipelines()
	var combined error
	for i := len(r.destroyers) - 1; i >= 0; i-- {
		combined = errors.CombineErrors(combined, r.destroyers[i]())
	}
	r.destroyers = nil
	r.frames = nil
	return combined
}

func firstError(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
