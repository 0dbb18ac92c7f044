package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

const portabilitySubsetExtName = "VK_KHR_portability_subset"

type QueueRole int

const (
	QueueGraphics QueueRole = iota
	QueuePresent
	QueueCompute
	QueueTransfer
)

func (r QueueRole) String() string {
	switch r {
	case QueueGraphics:
		return "graphics"
	case QueuePresent:
		return "present"
	case QueueCompute:
		return "compute"
	case QueueTransfer:
		return "transfer"
	}
	return "unknown"
}

// QueueFamily is the subset of a queue family's properties used for
// selection.
type QueueFamily struct {
	Flags   vk.QueueFlags
	Present bool
}

func (qf QueueFamily) has(bit vk.QueueFlagBits) bool {
	return qf.Flags&vk.QueueFlags(bit) != 0
}

type QueueFamilyIndices struct {
	Graphics uint32
	Present  uint32
	Compute  uint32
	Transfer uint32
}

func (q QueueFamilyIndices) Index(role QueueRole) uint32 {
	switch role {
	case QueuePresent:
		return q.Present
	case QueueCompute:
		return q.Compute
	case QueueTransfer:
		return q.Transfer
	default:
		return q.Graphics
	}
}

// Unique returns the distinct family indices in role order.
func (q QueueFamilyIndices) Unique() []uint32 {
	var unique []uint32
	seen := make(map[uint32]struct{}, 4)
	for _, i := range []uint32{q.Graphics, q.Present, q.Compute, q.Transfer} {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		unique = append(unique, i)
	}
	return unique
}

// selectQueueFamilies resolves the four queue roles.
//   - graphics: the first graphics family able to present, else the first
//     graphics family
//   - present: the graphics family when it can present, else the first
//     family able to present
//   - compute: the first compute family without graphics, else the first
//     compute family
//   - transfer: the first transfer-only family, else the first family
//     reporting transfer, else the graphics family (graphics queues always
//     accept transfer commands)
func selectQueueFamilies(families []QueueFamily) (QueueFamilyIndices, bool) {
	const none = -1
	graphics, graphicsPresent, present := none, none, none
	compute, dedicatedCompute := none, none
	transfer, dedicatedTransfer := none, none

	for i, f := range families {
		isGraphics := f.has(vk.QueueGraphicsBit)
		isCompute := f.has(vk.QueueComputeBit)

		if isGraphics {
			if graphics == none {
				graphics = i
			}
			if f.Present && graphicsPresent == none {
				graphicsPresent = i
			}
		}
		if f.Present && present == none {
			present = i
		}
		if isCompute {
			if compute == none {
				compute = i
			}
			if !isGraphics && dedicatedCompute == none {
				dedicatedCompute = i
			}
		}
		if f.has(vk.QueueTransferBit) {
			if transfer == none {
				transfer = i
			}
			if !isGraphics && !isCompute && dedicatedTransfer == none {
				dedicatedTransfer = i
			}
		}
	}

	if graphicsPresent != none {
		graphics = graphicsPresent
		present = graphicsPresent
	}
	if dedicatedCompute != none {
		compute = dedicatedCompute
	}
	if dedicatedTransfer != none {
		transfer = dedicatedTransfer
	}
	if transfer == none {
		transfer = graphics
	}

	if graphics == none || present == none || compute == none || transfer == none {
		return QueueFamilyIndices{}, false
	}
	return QueueFamilyIndices{
		Graphics: uint32(graphics),
		Present:  uint32(present),
		Compute:  uint32(compute),
		Transfer: uint32(transfer),
	}, true
}

// VulkanDevice is the selected physical device and its logical device. It
// owns one Queue per unique family and tracks every resource created from
// it; Destroy fails while any of them is alive.
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Allocator      *vk.AllocationCallbacks

	Properties    vk.PhysicalDeviceProperties
	Features      vk.PhysicalDeviceFeatures
	Memory        vk.PhysicalDeviceMemoryProperties
	QueueFamilies QueueFamilyIndices

	SwapchainSupport VulkanSwapchainSupportInfo

	surface *Surface
	queues  map[uint32]*Queue
	tracker *ResourceTracker
	locks   *VulkanLockPool
}

// NewDevice picks the first physical device that exposes the required
// extensions, resolves all queue roles and has swapchain support for
// surface. Devices are not ranked.
func NewDevice(instance *VulkanInstance, surface *Surface) (*VulkanDevice, error) {
	var count uint32
	if err := Check(vk.EnumeratePhysicalDevices(instance.Handle, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if err := Check(vk.EnumeratePhysicalDevices(instance.Handle, &count, physicalDevices), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}

	device := &VulkanDevice{
		Allocator: instance.Allocator,
		surface:   surface,
		queues:    make(map[uint32]*Queue),
		tracker:   NewResourceTracker("device"),
		locks:     NewVulkanLockPool(),
	}

	var extensions []string
	for _, pd := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()
		name := CString(properties.DeviceName[:])

		available, err := deviceExtensions(pd)
		if err != nil {
			return nil, err
		}
		if missing := missingNames([]string{vk.KhrSwapchainExtensionName}, available); len(missing) > 0 {
			core.LogInfo("Device '%s' is missing extensions %v, skipping.", name, missing)
			continue
		}

		families, err := queueFamilies(pd, surface)
		if err != nil {
			return nil, err
		}
		indices, ok := selectQueueFamilies(families)
		if !ok {
			core.LogInfo("Device '%s' does not meet queue requirements, skipping.", name)
			continue
		}

		support, err := querySwapchainSupport(pd, surface.Handle)
		if err != nil {
			return nil, err
		}
		if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
			core.LogInfo("Required swapchain support not present on '%s', skipping.", name)
			continue
		}

		device.PhysicalDevice = pd
		device.Properties = properties
		device.QueueFamilies = indices
		device.SwapchainSupport = support
		extensions = []string{vk.KhrSwapchainExtensionName}
		if len(missingNames([]string{portabilitySubsetExtName}, available)) == 0 {
			core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtName)
			extensions = append(extensions, portabilitySubsetExtName)
		}
		break
	}

	if device.PhysicalDevice == nil {
		return nil, errors.Wrap(core.ErrNoSuitableDevice, "no physical devices were found which meet the requirements")
	}

	vk.GetPhysicalDeviceFeatures(device.PhysicalDevice, &device.Features)
	device.Features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(device.PhysicalDevice, &device.Memory)
	device.Memory.Deref()
	device.logSelection()

	if err := device.createLogicalDevice(extensions); err != nil {
		return nil, err
	}
	return device, nil
}

func (d *VulkanDevice) createLogicalDevice(extensions []string) error {
	core.LogInfo("Creating logical device...")

	unique := d.QueueFamilies.Unique()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(unique))
	for i, family := range unique {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	if err := Check(vk.CreateDevice(d.PhysicalDevice, &deviceCreateInfo, d.Allocator, &d.LogicalDevice), "vkCreateDevice"); err != nil {
		return err
	}
	core.LogInfo("Logical device created.")

	for _, family := range unique {
		var handle vk.Queue
		vk.GetDeviceQueue(d.LogicalDevice, family, 0, &handle)
		d.queues[family] = &Queue{
			Handle:      handle,
			FamilyIndex: family,
			device:      d,
		}
	}
	core.LogInfo("Queues obtained.")
	return nil
}

func (d *VulkanDevice) logSelection() {
	core.LogInfo("Selected device: '%s'.", CString(d.Properties.DeviceName[:]))
	switch d.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(d.Properties.ApiVersion).Major(),
		vk.Version(d.Properties.ApiVersion).Minor(),
		vk.Version(d.Properties.ApiVersion).Patch(),
	)
	core.LogDebug("Graphics Family Index: %d", d.QueueFamilies.Graphics)
	core.LogDebug("Present Family Index:  %d", d.QueueFamilies.Present)
	core.LogDebug("Compute Family Index:  %d", d.QueueFamilies.Compute)
	core.LogDebug("Transfer Family Index: %d", d.QueueFamilies.Transfer)
}

// Queue returns the queue serving role. Roles resolved to the same family
// share one Queue.
func (d *VulkanDevice) Queue(role QueueRole) *Queue {
	return d.queues[d.QueueFamilies.Index(role)]
}

func (d *VulkanDevice) Tracker() *ResourceTracker {
	return d.tracker
}

func (d *VulkanDevice) Locks() *VulkanLockPool {
	return d.locks
}

func (d *VulkanDevice) Surface() *Surface {
	return d.surface
}

func (d *VulkanDevice) WaitIdle() error {
	return Check(vk.DeviceWaitIdle(d.LogicalDevice), "vkDeviceWaitIdle")
}

// Destroy destroys the logical device. Every resource created from the
// device must have been destroyed first.
func (d *VulkanDevice) Destroy() error {
	if err := d.tracker.CheckEmpty(); err != nil {
		return err
	}
	d.queues = nil
	if d.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(d.LogicalDevice, d.Allocator)
		d.LogicalDevice = nil
	}
	d.PhysicalDevice = nil
	return nil
}

func deviceExtensions(pd vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := Check(vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := Check(vk.EnumerateDeviceExtensionProperties(pd, "", &count, props), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, CString(props[i].ExtensionName[:]))
	}
	return names, nil
}

func queueFamilies(pd vk.PhysicalDevice, surface *Surface) ([]QueueFamily, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)

	families := make([]QueueFamily, count)
	for i := range props {
		props[i].Deref()
		var supportsPresent vk.Bool32
		if err := Check(vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), surface.Handle, &supportsPresent), "vkGetPhysicalDeviceSurfaceSupport"); err != nil {
			return nil, err
		}
		families[i] = QueueFamily{
			Flags:   props[i].QueueFlags,
			Present: supportsPresent == vk.True,
		}
	}
	return families, nil
}
