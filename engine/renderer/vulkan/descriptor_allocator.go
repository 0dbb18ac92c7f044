package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// setsPerPool is the number of sets every descriptor pool is sized for.
const setsPerPool = 1000

// descriptorWeights is the expected number of descriptors of each type per
// set; pool sizes are the weight times setsPerPool.
var descriptorWeights = []struct {
	kind   vk.DescriptorType
	weight float32
}{
	{vk.DescriptorTypeSampler, 0.5},
	{vk.DescriptorTypeCombinedImageSampler, 4},
	{vk.DescriptorTypeSampledImage, 4},
	{vk.DescriptorTypeStorageImage, 1},
	{vk.DescriptorTypeUniformTexelBuffer, 1},
	{vk.DescriptorTypeStorageTexelBuffer, 1},
	{vk.DescriptorTypeUniformBuffer, 2},
	{vk.DescriptorTypeStorageBuffer, 2},
	{vk.DescriptorTypeUniformBufferDynamic, 1},
	{vk.DescriptorTypeStorageBufferDynamic, 1},
	{vk.DescriptorTypeInputAttachment, 0.5},
}

func descriptorPoolSizes(sets uint32) []vk.DescriptorPoolSize {
	sizes := make([]vk.DescriptorPoolSize, len(descriptorWeights))
	for i, w := range descriptorWeights {
		sizes[i] = vk.DescriptorPoolSize{
			Type:            w.kind,
			DescriptorCount: uint32(w.weight * float32(sets)),
		}
	}
	return sizes
}

func isPoolExhausted(result vk.Result) bool {
	return result == vk.ErrorOutOfPoolMemory || result == vk.ErrorFragmentedPool
}

// DescriptorAllocator hands out descriptor sets from a growing list of
// pools. When the current pool runs out it moves to a fresh one and tries
// once more.
type DescriptorAllocator struct {
	backend descriptorBackend
	current vk.DescriptorPool
	used    []vk.DescriptorPool
	free    []vk.DescriptorPool

	device *VulkanDevice
	id     uuid.UUID
}

func NewDescriptorAllocator(device *VulkanDevice) *DescriptorAllocator {
	allocator := newDescriptorAllocator(deviceDescriptorBackend{device: device})
	allocator.device = device
	allocator.id = device.tracker.Track(KindDescriptorAllocator)
	return allocator
}

func newDescriptorAllocator(backend descriptorBackend) *DescriptorAllocator {
	return &DescriptorAllocator{
		backend: backend,
		current: vk.NullDescriptorPool,
	}
}

func (da *DescriptorAllocator) grabPool() (vk.DescriptorPool, error) {
	if n := len(da.free); n > 0 {
		pool := da.free[n-1]
		da.free = da.free[:n-1]
		return pool, nil
	}
	return da.backend.createPool(setsPerPool, descriptorPoolSizes(setsPerPool))
}

func (da *DescriptorAllocator) nextPool() error {
	pool, err := da.grabPool()
	if err != nil {
		return err
	}
	da.current = pool
	da.used = append(da.used, pool)
	return nil
}

func (da *DescriptorAllocator) Allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	if da.current == vk.NullDescriptorPool {
		if err := da.nextPool(); err != nil {
			return nil, err
		}
	}

	set, result := da.backend.allocateSet(da.current, layout)
	if result == vk.Success {
		return set, nil
	}
	if !isPoolExhausted(result) {
		return nil, Check(result, "vkAllocateDescriptorSets")
	}

	core.LogDebug("Descriptor pool exhausted (%s), moving to a new pool.", VulkanResultString(result, false))
	if err := da.nextPool(); err != nil {
		return nil, err
	}
	set, result = da.backend.allocateSet(da.current, layout)
	if result == vk.Success {
		return set, nil
	}
	if isPoolExhausted(result) {
		return nil, errors.Wrap(core.ErrPoolExhausted, VulkanResultString(result, true))
	}
	return nil, Check(result, "vkAllocateDescriptorSets")
}

// Reset returns every used pool to the free list. Sets allocated before
// the reset become invalid.
func (da *DescriptorAllocator) Reset() error {
	for _, pool := range da.used {
		if err := da.backend.resetPool(pool); err != nil {
			return err
		}
	}
	da.free = append(da.free, da.used...)
	da.used = nil
	da.current = vk.NullDescriptorPool
	return nil
}

// Pools reports how many pools are in use and how many are free.
func (da *DescriptorAllocator) Pools() (used, free int) {
	return len(da.used), len(da.free)
}

func (da *DescriptorAllocator) Destroy() {
	for _, pool := range da.free {
		da.backend.destroyPool(pool)
	}
	for _, pool := range da.used {
		da.backend.destroyPool(pool)
	}
	da.free = nil
	da.used = nil
	da.current = vk.NullDescriptorPool
	if da.device != nil {
		da.device.tracker.Release(da.id)
		da.device = nil
	}
}
