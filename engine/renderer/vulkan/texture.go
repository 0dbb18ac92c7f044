package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

var texelSizes = map[vk.Format]uint32{
	vk.FormatR8Unorm:            1,
	vk.FormatR8Uint:             1,
	vk.FormatR8g8Unorm:          2,
	vk.FormatR16Sfloat:          2,
	vk.FormatD16Unorm:           2,
	vk.FormatR8g8b8a8Unorm:      4,
	vk.FormatR8g8b8a8Srgb:       4,
	vk.FormatB8g8r8a8Unorm:      4,
	vk.FormatB8g8r8a8Srgb:       4,
	vk.FormatR16g16Sfloat:       4,
	vk.FormatR32Sfloat:          4,
	vk.FormatR32Uint:            4,
	vk.FormatR32Sint:            4,
	vk.FormatD32Sfloat:          4,
	vk.FormatR16g16b16a16Sfloat: 8,
	vk.FormatR32g32Sfloat:       8,
	vk.FormatR32g32b32Sfloat:    12,
	vk.FormatR32g32b32a32Sfloat: 16,
}

// FormatTexelSize returns the bytes per texel of an uncompressed format.
func FormatTexelSize(format vk.Format) (uint32, error) {
	size, ok := texelSizes[format]
	if !ok {
		return 0, errors.Wrapf(core.ErrUnsupportedFormat, "no texel size for format %d", format)
	}
	return size, nil
}

func isDepthFormat(format vk.Format) bool {
	switch format {
	case vk.FormatD16Unorm, vk.FormatD32Sfloat, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

type layoutTransition struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

// layoutTransitionMasks returns the access masks and stages of the
// supported image layout transitions. Any other pair is an error.
func layoutTransitionMasks(oldLayout, newLayout vk.ImageLayout) (layoutTransition, error) {
	transfer := vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	topOfPipe := vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	fragment := vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	allCommands := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	shaderReadWrite := vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit)

	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return layoutTransition{0, vk.AccessFlags(vk.AccessTransferWriteBit), topOfPipe, transfer}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit), transfer, fragment}, nil
	case oldLayout == vk.ImageLayoutTransferSrcOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{vk.AccessFlags(vk.AccessTransferReadBit), vk.AccessFlags(vk.AccessShaderReadBit), transfer, fragment}, nil
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferSrcOptimal:
		return layoutTransition{0, vk.AccessFlags(vk.AccessTransferReadBit), topOfPipe, transfer}, nil
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutGeneral:
		return layoutTransition{0, shaderReadWrite, allCommands, allCommands}, nil
	case oldLayout == vk.ImageLayoutShaderReadOnlyOptimal && newLayout == vk.ImageLayoutGeneral:
		return layoutTransition{vk.AccessFlags(vk.AccessShaderReadBit), shaderReadWrite, allCommands, allCommands}, nil
	}
	return layoutTransition{}, errors.Wrapf(core.ErrUnsupportedLayoutTransition, "%d -> %d", oldLayout, newLayout)
}

type TextureConfig struct {
	Width  uint32
	Height uint32
	Format vk.Format
	Usage  vk.ImageUsageFlags
}

// Texture is a 2D device local image with its view and sampler.
type Texture struct {
	Image   vk.Image
	View    vk.ImageView
	Sampler vk.Sampler
	Format  vk.Format
	Width   uint32
	Height  uint32
	Aspect  vk.ImageAspectFlagBits
	Layout  vk.ImageLayout

	memory    *Allocation
	allocator *MemoryAllocator
	id        uuid.UUID
}

func NewTexture(allocator *MemoryAllocator, config TextureConfig) (*Texture, error) {
	device := allocator.device

	if config.Usage&vk.ImageUsageFlags(vk.ImageUsageStorageBit) != 0 {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, config.Format, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureStorageImageBit) == 0 {
			return nil, errors.Wrapf(core.ErrUnsupportedFormat, "format %d does not support storage images", config.Format)
		}
	}

	texture := &Texture{
		Format:    config.Format,
		Width:     config.Width,
		Height:    config.Height,
		Aspect:    vk.ImageAspectColorBit,
		Layout:    vk.ImageLayoutUndefined,
		allocator: allocator,
	}
	if isDepthFormat(config.Format) {
		texture.Aspect = vk.ImageAspectDepthBit
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    config.Format,
		Extent: vk.Extent3D{
			Width:  config.Width,
			Height: config.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         config.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if err := Check(vk.CreateImage(device.LogicalDevice, &imageCreateInfo, device.Allocator, &texture.Image), "vkCreateImage"); err != nil {
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.LogicalDevice, texture.Image, &requirements)
	requirements.Deref()

	memory, err := allocator.Allocate(requirements, MemoryUsageGPUOnly, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(device.LogicalDevice, texture.Image, device.Allocator)
		return nil, errors.Wrapf(err, "texture %dx%d", config.Width, config.Height)
	}
	texture.memory = memory
	texture.id = device.tracker.Track(KindTexture)

	if err := Check(vk.BindImageMemory(device.LogicalDevice, texture.Image, memory.Memory, 0), "vkBindImageMemory"); err != nil {
		texture.Destroy()
		return nil, err
	}

	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    texture.Image,
		ViewType: vk.ImageViewType2d,
		Format:   config.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(texture.Aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if err := Check(vk.CreateImageView(device.LogicalDevice, &viewCreateInfo, device.Allocator, &texture.View), "vkCreateImageView"); err != nil {
		texture.Destroy()
		return nil, err
	}

	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: vk.False,
		MaxAnisotropy:    1.0,
		CompareEnable:    vk.False,
		CompareOp:        vk.CompareOpNever,
		MinLod:           0.0,
		MaxLod:           1.0,
		BorderColor:      vk.BorderColorFloatOpaqueWhite,
	}
	if err := Check(vk.CreateSampler(device.LogicalDevice, &samplerCreateInfo, device.Allocator, &texture.Sampler), "vkCreateSampler"); err != nil {
		texture.Destroy()
		return nil, err
	}

	return texture, nil
}

// ByteSize is the number of bytes WriteData expects.
func (t *Texture) ByteSize() (uint64, error) {
	texel, err := FormatTexelSize(t.Format)
	if err != nil {
		return 0, err
	}
	return uint64(t.Width) * uint64(t.Height) * uint64(texel), nil
}

// WriteData uploads tightly packed pixels and leaves the texture in the
// shader read only layout. The call returns after the upload completed.
func (t *Texture) WriteData(pixels []byte, queue *Queue, pool *CommandPool) error {
	size, err := t.ByteSize()
	if err != nil {
		return err
	}
	if uint64(len(pixels)) != size {
		return errors.Wrapf(core.ErrDataSizeMismatch, "texture is %d bytes, data is %d", size, len(pixels))
	}

	staging, err := NewBuffer(t.allocator, size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisibleCoherent, MemoryUsageCPUOnly)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	if err := staging.LoadData(pixels); err != nil {
		return err
	}

	return pool.SubmitSingleUse(queue, func(cb *CommandBuffer) error {
		if err := t.TransitionLayout(cb, vk.ImageLayoutTransferDstOptimal, queue.FamilyIndex); err != nil {
			return err
		}
		if err := cb.CopyBufferToImage(staging, t); err != nil {
			return err
		}
		return t.TransitionLayout(cb, vk.ImageLayoutShaderReadOnlyOptimal, queue.FamilyIndex)
	})
}

// TransitionLayout records a barrier moving the texture from its current
// layout to newLayout.
func (t *Texture) TransitionLayout(cb *CommandBuffer, newLayout vk.ImageLayout, queueFamilyIndex uint32) error {
	masks, err := layoutTransitionMasks(t.Layout, newLayout)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           t.Layout,
		NewLayout:           newLayout,
		SrcAccessMask:       masks.srcAccess,
		DstAccessMask:       masks.dstAccess,
		SrcQueueFamilyIndex: queueFamilyIndex,
		DstQueueFamilyIndex: queueFamilyIndex,
		Image:               t.Image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(t.Aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if err := cb.PipelineBarrier(masks.srcStage, masks.dstStage, barrier); err != nil {
		return err
	}
	t.Layout = newLayout
	return nil
}

func (t *Texture) Destroy() {
	device := t.allocator.device
	if t.Sampler != vk.NullSampler {
		vk.DestroySampler(device.LogicalDevice, t.Sampler, device.Allocator)
		t.Sampler = vk.NullSampler
	}
	if t.View != vk.NullImageView {
		vk.DestroyImageView(device.LogicalDevice, t.View, device.Allocator)
		t.View = vk.NullImageView
	}
	if t.Image != vk.NullImage {
		vk.DestroyImage(device.LogicalDevice, t.Image, device.Allocator)
		t.Image = vk.NullImage
		t.allocator.Free(t.memory)
		t.memory = nil
		device.tracker.Release(t.id)
	}
}
