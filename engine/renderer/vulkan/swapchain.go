package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
	emath "github.com/spaghettifunk/particle-shadowing/engine/math"
)

// DepthFormat is the format of the depth attachment created with every
// swapchain.
const DepthFormat = vk.FormatD32SfloatS8Uint

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func querySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	var support VulkanSwapchainSupportInfo

	if err := Check(vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilitiesKHR"); err != nil {
		return support, err
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := Check(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
		return support, err
	}
	if formatCount > 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := Check(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
			return support, err
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if err := Check(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
		return support, err
	}
	if modeCount > 0 {
		support.PresentModes = make([]vk.PresentMode, modeCount)
		if err := Check(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, support.PresentModes), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
			return support, err
		}
	}
	return support, nil
}

// chooseSurfaceFormat prefers B8G8R8A8_UNORM with the sRGB non-linear
// color space and otherwise takes the first reported format.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return modes[0]
}

// clampExtent uses the surface extent when the platform fixes it and
// clamps the requested size otherwise.
func clampExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  emath.Clamp(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: emath.Clamp(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// swapchainImageCount requests one image over the minimum, capped by a
// nonzero maximum. One image is always kept for presentation, so at most
// count-1 frames are in flight.
func swapchainImageCount(capabilities vk.SurfaceCapabilities) (imageCount, maxFramesInFlight uint32) {
	imageCount = capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	maxFramesInFlight = imageCount - 1
	if maxFramesInFlight == 0 {
		maxFramesInFlight = 1
	}
	return imageCount, maxFramesInFlight
}

type Swapchain struct {
	Handle            vk.Swapchain
	ImageFormat       vk.SurfaceFormat
	PresentMode       vk.PresentMode
	Extent            vk.Extent2D
	MaxFramesInFlight uint32
	Images            []vk.Image
	Views             []vk.ImageView
	DepthAttachment   *Texture

	device *VulkanDevice
	id     uuid.UUID
}

// NewSwapchain creates the swapchain for the device surface, one view per
// image and a depth attachment of the same extent.
func NewSwapchain(allocator *MemoryAllocator, width, height uint32) (*Swapchain, error) {
	device := allocator.device
	support, err := querySwapchainSupport(device.PhysicalDevice, device.surface.Handle)
	if err != nil {
		return nil, err
	}
	device.SwapchainSupport = support

	imageCount, inFlight := swapchainImageCount(support.Capabilities)
	swapchain := &Swapchain{
		ImageFormat:       chooseSurfaceFormat(support.Formats),
		PresentMode:       choosePresentMode(support.PresentModes),
		Extent:            clampExtent(support.Capabilities, width, height),
		MaxFramesInFlight: inFlight,
		device:            device,
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          device.surface.Handle,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	families := device.QueueFamilies
	if families.Graphics != families.Present {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{families.Graphics, families.Present}
	}

	if err := Check(vk.CreateSwapchain(device.LogicalDevice, &createInfo, device.Allocator, &swapchain.Handle), "vkCreateSwapchainKHR"); err != nil {
		return nil, err
	}
	swapchain.id = device.tracker.Track(KindSwapchain)

	var count uint32
	if err := Check(vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &count, nil), "vkGetSwapchainImagesKHR"); err != nil {
		swapchain.Destroy()
		return nil, err
	}
	swapchain.Images = make([]vk.Image, count)
	if err := Check(vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &count, swapchain.Images), "vkGetSwapchainImagesKHR"); err != nil {
		swapchain.Destroy()
		return nil, err
	}

	swapchain.Views = make([]vk.ImageView, 0, count)
	for _, image := range swapchain.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := Check(vk.CreateImageView(device.LogicalDevice, &viewInfo, device.Allocator, &view), "vkCreateImageView"); err != nil {
			swapchain.Destroy()
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	depth, err := NewTexture(allocator, TextureConfig{
		Width:  swapchain.Extent.Width,
		Height: swapchain.Extent.Height,
		Format: DepthFormat,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
	})
	if err != nil {
		swapchain.Destroy()
		return nil, errors.Wrap(err, "swapchain depth attachment")
	}
	swapchain.DepthAttachment = depth

	core.LogInfo("Swapchain created with %d images, %d frames in flight.", count, inFlight)
	return swapchain, nil
}

// ImageCount is the number of presentable images owned by the swapchain.
func (s *Swapchain) ImageCount() uint32 {
	return uint32(len(s.Images))
}

// AcquireNextImage returns the index of the next presentable image. signal
// is signaled once the image can be rendered to. A suboptimal swapchain is
// still usable and is not reported.
func (s *Swapchain) AcquireNextImage(timeoutNs uint64, signal *Semaphore) (uint32, error) {
	var index uint32
	result := vk.AcquireNextImage(s.device.LogicalDevice, s.Handle, timeoutNs, signal.Handle, vk.NullFence, &index)
	if result == vk.Suboptimal {
		return index, nil
	}
	if err := Check(result, "vkAcquireNextImageKHR"); err != nil {
		return 0, err
	}
	return index, nil
}

// Destroy releases the views and the depth attachment. The images belong
// to the swapchain and go with it.
func (s *Swapchain) Destroy() {
	device := s.device
	if s.DepthAttachment != nil {
		s.DepthAttachment.Destroy()
		s.DepthAttachment = nil
	}
	for _, view := range s.Views {
		vk.DestroyImageView(device.LogicalDevice, view, device.Allocator)
	}
	s.Views = nil
	s.Images = nil
	if s.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device.LogicalDevice, s.Handle, device.Allocator)
		s.Handle = vk.NullSwapchain
		device.tracker.Release(s.id)
	}
}
