package vulkan

import (
	vk "github.com/goki/vulkan"
)

// descriptorBackend is the part of the device the descriptor services
// talk to. allocateSet returns the raw result so callers can tell pool
// exhaustion from other failures.
type descriptorBackend interface {
	createLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error)
	destroyLayout(layout vk.DescriptorSetLayout)
	createPool(maxSets uint32, sizes []vk.DescriptorPoolSize) (vk.DescriptorPool, error)
	resetPool(pool vk.DescriptorPool) error
	destroyPool(pool vk.DescriptorPool)
	allocateSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result)
	updateSets(writes []vk.WriteDescriptorSet)
}

type deviceDescriptorBackend struct {
	device *VulkanDevice
}

func (b deviceDescriptorBackend) createLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	err := b.device.locks.SafeCall(DescriptorManagement, func() error {
		return Check(vk.CreateDescriptorSetLayout(b.device.LogicalDevice, &createInfo, b.device.Allocator, &layout), "vkCreateDescriptorSetLayout")
	})
	return layout, err
}

func (b deviceDescriptorBackend) destroyLayout(layout vk.DescriptorSetLayout) {
	_ = b.device.locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorSetLayout(b.device.LogicalDevice, layout, b.device.Allocator)
		return nil
	})
}

func (b deviceDescriptorBackend) createPool(maxSets uint32, sizes []vk.DescriptorPoolSize) (vk.DescriptorPool, error) {
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	err := b.device.locks.SafeCall(DescriptorManagement, func() error {
		return Check(vk.CreateDescriptorPool(b.device.LogicalDevice, &createInfo, b.device.Allocator, &pool), "vkCreateDescriptorPool")
	})
	return pool, err
}

func (b deviceDescriptorBackend) resetPool(pool vk.DescriptorPool) error {
	return b.device.locks.SafeCall(DescriptorManagement, func() error {
		return Check(vk.ResetDescriptorPool(b.device.LogicalDevice, pool, 0), "vkResetDescriptorPool")
	})
}

func (b deviceDescriptorBackend) destroyPool(pool vk.DescriptorPool) {
	_ = b.device.locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(b.device.LogicalDevice, pool, b.device.Allocator)
		return nil
	})
}

func (b deviceDescriptorBackend) allocateSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	result := vk.Success
	_ = b.device.locks.SafeCall(DescriptorManagement, func() error {
		result = vk.AllocateDescriptorSets(b.device.LogicalDevice, &allocateInfo, &set)
		return nil
	})
	return set, result
}

func (b deviceDescriptorBackend) updateSets(writes []vk.WriteDescriptorSet) {
	_ = b.device.locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(b.device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
		return nil
	})
}
