package vulkan

import (
	vk "github.com/goki/vulkan"
)

// DescriptorSetBuilder collects buffer and image bindings and turns them
// into one layout, one set and a single descriptor update.
type DescriptorSetBuilder struct {
	cache     *DescriptorSetLayoutCache
	allocator *DescriptorAllocator
	bindings  []vk.DescriptorSetLayoutBinding
	writes    []vk.WriteDescriptorSet
}

func NewDescriptorSetBuilder(cache *DescriptorSetLayoutCache, allocator *DescriptorAllocator) *DescriptorSetBuilder {
	return &DescriptorSetBuilder{
		cache:     cache,
		allocator: allocator,
	}
}

func (b *DescriptorSetBuilder) addBinding(binding uint32, descriptorType vk.DescriptorType, stages vk.ShaderStageFlags) {
	b.bindings = append(b.bindings, vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
		StageFlags:      stages,
	})
}

func (b *DescriptorSetBuilder) BindBuffer(binding uint32, info vk.DescriptorBufferInfo, descriptorType vk.DescriptorType, stages vk.ShaderStageFlags) *DescriptorSetBuilder {
	b.addBinding(binding, descriptorType, stages)
	b.writes = append(b.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PBufferInfo:     []vk.DescriptorBufferInfo{info},
	})
	return b
}

func (b *DescriptorSetBuilder) BindImage(binding uint32, info vk.DescriptorImageInfo, descriptorType vk.DescriptorType, stages vk.ShaderStageFlags) *DescriptorSetBuilder {
	b.addBinding(binding, descriptorType, stages)
	b.writes = append(b.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PImageInfo:      []vk.DescriptorImageInfo{info},
	})
	return b
}

// BuildLayout resolves only the layout of the collected bindings.
func (b *DescriptorSetBuilder) BuildLayout() (vk.DescriptorSetLayout, error) {
	return b.cache.CreateLayout(b.bindings)
}

// Build allocates a set for the collected bindings and writes all of them
// with one update.
func (b *DescriptorSetBuilder) Build() (vk.DescriptorSet, vk.DescriptorSetLayout, error) {
	layout, err := b.cache.CreateLayout(b.bindings)
	if err != nil {
		return nil, vk.NullDescriptorSetLayout, err
	}
	set, err := b.allocator.Allocate(layout)
	if err != nil {
		return nil, vk.NullDescriptorSetLayout, err
	}
	for i := range b.writes {
		b.writes[i].DstSet = set
	}
	if len(b.writes) > 0 {
		b.allocator.backend.updateSets(b.writes)
	}
	return set, layout, nil
}
