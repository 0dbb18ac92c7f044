package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// MemoryUsage is the placement hint of an allocation.
type MemoryUsage int

const (
	MemoryUsageGPUOnly MemoryUsage = iota
	MemoryUsageCPUToGPU
	MemoryUsageGPUToCPU
	MemoryUsageCPUOnly
)

const hostVisibleCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)

// propertyFlags returns the flags a memory type must have and the flags it
// should have for the hint.
func (u MemoryUsage) propertyFlags() (required, preferred vk.MemoryPropertyFlags) {
	switch u {
	case MemoryUsageCPUToGPU:
		return hostVisibleCoherent, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	case MemoryUsageGPUToCPU:
		return hostVisibleCoherent, vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit)
	case MemoryUsageCPUOnly:
		return hostVisibleCoherent, 0
	default:
		return 0, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
}

// findMemoryType returns the first type allowed by typeBits that has
// required|preferred, falling back to the first one that has required.
func findMemoryType(types []vk.MemoryPropertyFlags, typeBits uint32, required, preferred vk.MemoryPropertyFlags) (uint32, bool) {
	fallback, found := uint32(0), false
	for i, flags := range types {
		if typeBits&(1<<uint(i)) == 0 || flags&required != required {
			continue
		}
		if flags&preferred == preferred {
			return uint32(i), true
		}
		if !found {
			fallback, found = uint32(i), true
		}
	}
	return fallback, found
}

// Allocation is one block of device memory backing a single resource.
type Allocation struct {
	Memory    vk.DeviceMemory
	Size      vk.DeviceSize
	TypeIndex uint32
	Flags     vk.MemoryPropertyFlags

	id uuid.UUID
}

func (a *Allocation) HostVisible() bool {
	return a.Flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
}

// MemoryAllocator is bound to one device and must outlive every
// allocation it hands out.
type MemoryAllocator struct {
	device  *VulkanDevice
	types   []vk.MemoryPropertyFlags
	tracker *ResourceTracker
	id      uuid.UUID
}

func NewMemoryAllocator(device *VulkanDevice) *MemoryAllocator {
	types := make([]vk.MemoryPropertyFlags, device.Memory.MemoryTypeCount)
	for i := range types {
		device.Memory.MemoryTypes[i].Deref()
		types[i] = device.Memory.MemoryTypes[i].PropertyFlags
	}
	return &MemoryAllocator{
		device:  device,
		types:   types,
		tracker: NewResourceTracker("allocator"),
		id:      device.tracker.Track(KindAllocator),
	}
}

func (ma *MemoryAllocator) Device() *VulkanDevice {
	return ma.device
}

func (ma *MemoryAllocator) Tracker() *ResourceTracker {
	return ma.tracker
}

func (ma *MemoryAllocator) Allocate(requirements vk.MemoryRequirements, usage MemoryUsage, required vk.MemoryPropertyFlags) (*Allocation, error) {
	usageRequired, preferred := usage.propertyFlags()
	required |= usageRequired

	index, ok := findMemoryType(ma.types, requirements.MemoryTypeBits, required, preferred)
	if !ok {
		return nil, errors.Wrapf(core.ErrNoSuitableMemoryType, "type bits %#x, flags %#x", requirements.MemoryTypeBits, uint32(required))
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: index,
	}
	allocation := &Allocation{
		Size:      requirements.Size,
		TypeIndex: index,
		Flags:     ma.types[index],
	}
	if err := ma.device.locks.SafeCall(MemoryManagement, func() error {
		return Check(vk.AllocateMemory(ma.device.LogicalDevice, &allocateInfo, ma.device.Allocator, &allocation.Memory), "vkAllocateMemory")
	}); err != nil {
		return nil, err
	}
	allocation.id = ma.tracker.Track(KindMemory)
	return allocation, nil
}

func (ma *MemoryAllocator) Free(allocation *Allocation) {
	if allocation == nil || allocation.Memory == vk.NullDeviceMemory {
		return
	}
	_ = ma.device.locks.SafeCall(MemoryManagement, func() error {
		vk.FreeMemory(ma.device.LogicalDevice, allocation.Memory, ma.device.Allocator)
		return nil
	})
	allocation.Memory = vk.NullDeviceMemory
	ma.tracker.Release(allocation.id)
}

// Map maps the whole allocation. The memory must be host visible.
func (ma *MemoryAllocator) Map(allocation *Allocation) (unsafe.Pointer, error) {
	if !allocation.HostVisible() {
		return nil, errors.New("cannot map memory that is not host visible")
	}
	var data unsafe.Pointer
	if err := Check(vk.MapMemory(ma.device.LogicalDevice, allocation.Memory, 0, allocation.Size, 0, &data), "vkMapMemory"); err != nil {
		return nil, err
	}
	return data, nil
}

func (ma *MemoryAllocator) Unmap(allocation *Allocation) {
	vk.UnmapMemory(ma.device.LogicalDevice, allocation.Memory)
}

// Destroy fails with ErrResourcesAlive while any allocation is live.
func (ma *MemoryAllocator) Destroy() error {
	if err := ma.tracker.CheckEmpty(); err != nil {
		return err
	}
	ma.device.tracker.Release(ma.id)
	return nil
}
