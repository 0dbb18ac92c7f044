package vulkan

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// Handle types point at opaque zero size structs, so two fake handles may
// compare equal. Each fake handle instead points at its own serial number,
// which is what the fake and the tests compare.
type fakeHandles struct {
	serial uint64
}

func (h *fakeHandles) next() unsafe.Pointer {
	h.serial++
	id := new(uint64)
	*id = h.serial
	return unsafe.Pointer(id)
}

func serialOf(handle unsafe.Pointer) uint64 {
	if handle == nil {
		return 0
	}
	return *(*uint64)(handle)
}

type fakeDescriptorBackend struct {
	fakeHandles

	poolCapacity int
	exhaustAll   bool

	createdLayouts  [][]vk.DescriptorSetLayoutBinding
	createdPools    []vk.DescriptorPool
	poolSizes       []vk.DescriptorPoolSize
	allocated       map[uint64]int
	resets          int
	destroyedPools  int
	destroyedLayout int
	updates         [][]vk.WriteDescriptorSet
}

func newFakeDescriptorBackend(poolCapacity int) *fakeDescriptorBackend {
	return &fakeDescriptorBackend{
		poolCapacity: poolCapacity,
		allocated:    make(map[uint64]int),
	}
}

func (f *fakeDescriptorBackend) createLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	f.createdLayouts = append(f.createdLayouts, append([]vk.DescriptorSetLayoutBinding(nil), bindings...))
	return vk.DescriptorSetLayout(f.next()), nil
}

func (f *fakeDescriptorBackend) destroyLayout(vk.DescriptorSetLayout) {
	f.destroyedLayout++
}

func (f *fakeDescriptorBackend) createPool(_ uint32, sizes []vk.DescriptorPoolSize) (vk.DescriptorPool, error) {
	pool := vk.DescriptorPool(f.next())
	f.createdPools = append(f.createdPools, pool)
	f.poolSizes = sizes
	return pool, nil
}

func (f *fakeDescriptorBackend) resetPool(pool vk.DescriptorPool) error {
	f.allocated[serialOf(unsafe.Pointer(pool))] = 0
	f.resets++
	return nil
}

func (f *fakeDescriptorBackend) destroyPool(vk.DescriptorPool) {
	f.destroyedPools++
}

func (f *fakeDescriptorBackend) allocateSet(pool vk.DescriptorPool, _ vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result) {
	if f.exhaustAll {
		return nil, vk.ErrorOutOfPoolMemory
	}
	id := serialOf(unsafe.Pointer(pool))
	if f.allocated[id] >= f.poolCapacity {
		return nil, vk.ErrorFragmentedPool
	}
	f.allocated[id]++
	return vk.DescriptorSet(f.next()), vk.Success
}

func (f *fakeDescriptorBackend) updateSets(writes []vk.WriteDescriptorSet) {
	f.updates = append(f.updates, writes)
}

func binding(index uint32, descriptorType vk.DescriptorType, stages vk.ShaderStageFlagBits) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         index,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(stages),
	}
}

func TestLayoutCacheOrderIndependent(t *testing.T) {
	backend := newFakeDescriptorBackend(10)
	cache := newDescriptorSetLayoutCache(backend)

	a := []vk.DescriptorSetLayoutBinding{
		binding(0, vk.DescriptorTypeStorageBuffer, vk.ShaderStageComputeBit),
		binding(1, vk.DescriptorTypeStorageBuffer, vk.ShaderStageComputeBit),
	}
	b := []vk.DescriptorSetLayoutBinding{a[1], a[0]}

	first, err := cache.CreateLayout(a)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.CreateLayout(b)
	if err != nil {
		t.Fatal(err)
	}
	if serialOf(unsafe.Pointer(first)) != serialOf(unsafe.Pointer(second)) {
		t.Error("same bindings in a different order produced different layouts")
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
	if len(backend.createdLayouts) != 1 {
		t.Errorf("created %d layouts, want 1", len(backend.createdLayouts))
	}
	if b[0].Binding != 1 {
		t.Error("caller's binding slice was reordered")
	}
	if got := backend.createdLayouts[0][0].Binding; got != 0 {
		t.Errorf("layout created with binding %d first, want 0", got)
	}
}

func TestLayoutCacheDistinguishesBindings(t *testing.T) {
	base := binding(0, vk.DescriptorTypeUniformBuffer, vk.ShaderStageVertexBit)
	tests := []struct {
		name  string
		other vk.DescriptorSetLayoutBinding
	}{
		{"type", binding(0, vk.DescriptorTypeStorageBuffer, vk.ShaderStageVertexBit)},
		{"stage", binding(0, vk.DescriptorTypeUniformBuffer, vk.ShaderStageFragmentBit)},
		{"index", binding(1, vk.DescriptorTypeUniformBuffer, vk.ShaderStageVertexBit)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeDescriptorBackend(10)
			cache := newDescriptorSetLayoutCache(backend)
			first, _ := cache.CreateLayout([]vk.DescriptorSetLayoutBinding{base})
			second, _ := cache.CreateLayout([]vk.DescriptorSetLayoutBinding{tt.other})
			if len(backend.createdLayouts) != 2 {
				t.Errorf("created %d layouts, want 2", len(backend.createdLayouts))
			}
			if serialOf(unsafe.Pointer(first)) == serialOf(unsafe.Pointer(second)) {
				t.Error("different bindings share a layout")
			}
			if cache.Len() != 2 {
				t.Errorf("Len() = %d, want 2", cache.Len())
			}
		})
	}
}

func TestLayoutHash(t *testing.T) {
	b := binding(3, vk.DescriptorTypeStorageBuffer, vk.ShaderStageComputeBit)
	want := uint64(1) ^ (uint64(3) | uint64(vk.DescriptorTypeStorageBuffer)<<8 | uint64(1)<<16 | uint64(vk.ShaderStageComputeBit)<<24)
	if got := layoutHash([]vk.DescriptorSetLayoutBinding{b}); got != want {
		t.Errorf("layoutHash = %#x, want %#x", got, want)
	}
}

func TestLayoutCacheDestroy(t *testing.T) {
	backend := newFakeDescriptorBackend(10)
	cache := newDescriptorSetLayoutCache(backend)
	cache.CreateLayout([]vk.DescriptorSetLayoutBinding{binding(0, vk.DescriptorTypeUniformBuffer, vk.ShaderStageVertexBit)})
	cache.CreateLayout([]vk.DescriptorSetLayoutBinding{binding(0, vk.DescriptorTypeStorageBuffer, vk.ShaderStageVertexBit)})
	cache.Destroy()
	if backend.destroyedLayout != 2 || cache.Len() != 0 {
		t.Errorf("destroyed %d layouts, %d left", backend.destroyedLayout, cache.Len())
	}
}

func TestDescriptorPoolSizes(t *testing.T) {
	sizes := descriptorPoolSizes(setsPerPool)
	want := map[vk.DescriptorType]uint32{
		vk.DescriptorTypeSampler:              500,
		vk.DescriptorTypeCombinedImageSampler: 4000,
		vk.DescriptorTypeStorageBuffer:        2000,
		vk.DescriptorTypeUniformBufferDynamic: 1000,
		vk.DescriptorTypeInputAttachment:      500,
	}
	for _, size := range sizes {
		if n, ok := want[size.Type]; ok && size.DescriptorCount != n {
			t.Errorf("type %d: %d descriptors, want %d", size.Type, size.DescriptorCount, n)
		}
	}
	if len(sizes) != 11 {
		t.Errorf("%d pool sizes, want 11", len(sizes))
	}
}

func TestDescriptorAllocatorGrowsAndResets(t *testing.T) {
	backend := newFakeDescriptorBackend(2)
	allocator := newDescriptorAllocator(backend)
	layout := vk.DescriptorSetLayout(backend.next())

	for i := 0; i < 5; i++ {
		if _, err := allocator.Allocate(layout); err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
	}
	if used, free := allocator.Pools(); used != 3 || free != 0 {
		t.Errorf("Pools() = %d used, %d free, want 3 and 0", used, free)
	}

	if err := allocator.Reset(); err != nil {
		t.Fatal(err)
	}
	if backend.resets != 3 {
		t.Errorf("%d pool resets, want 3", backend.resets)
	}
	if used, free := allocator.Pools(); used != 0 || free != 3 {
		t.Errorf("after reset Pools() = %d used, %d free, want 0 and 3", used, free)
	}

	if _, err := allocator.Allocate(layout); err != nil {
		t.Fatal(err)
	}
	if len(backend.createdPools) != 3 {
		t.Errorf("%d pools created, want the free pool to be reused", len(backend.createdPools))
	}

	allocator.Destroy()
	if backend.destroyedPools != 3 {
		t.Errorf("%d pools destroyed, want 3", backend.destroyedPools)
	}
}

func TestDescriptorAllocatorRetriesOnce(t *testing.T) {
	backend := newFakeDescriptorBackend(2)
	backend.exhaustAll = true
	allocator := newDescriptorAllocator(backend)

	_, err := allocator.Allocate(vk.DescriptorSetLayout(backend.next()))
	if !errors.Is(err, core.ErrPoolExhausted) {
		t.Fatalf("err = %v, want ErrPoolExhausted", err)
	}
	if len(backend.createdPools) != 2 {
		t.Errorf("%d pools created, want exactly one retry", len(backend.createdPools))
	}
	if len(backend.poolSizes) != len(descriptorWeights) {
		t.Errorf("pool created with %d sizes", len(backend.poolSizes))
	}
}

func TestDescriptorSetBuilderSingleUpdate(t *testing.T) {
	backend := newFakeDescriptorBackend(10)
	cache := newDescriptorSetLayoutCache(backend)
	allocator := newDescriptorAllocator(backend)

	set, layout, err := NewDescriptorSetBuilder(cache, allocator).
		BindBuffer(1, vk.DescriptorBufferInfo{Range: 64}, vk.DescriptorTypeStorageBuffer, vk.ShaderStageFlags(vk.ShaderStageComputeBit)).
		BindImage(0, vk.DescriptorImageInfo{ImageLayout: vk.ImageLayoutGeneral}, vk.DescriptorTypeStorageImage, vk.ShaderStageFlags(vk.ShaderStageComputeBit)).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if set == nil || layout == nil {
		t.Fatal("Build returned null handles")
	}
	if len(backend.updates) != 1 {
		t.Fatalf("%d update calls, want 1", len(backend.updates))
	}
	writes := backend.updates[0]
	if len(writes) != 2 {
		t.Fatalf("%d writes, want 2", len(writes))
	}
	for _, w := range writes {
		if serialOf(unsafe.Pointer(w.DstSet)) != serialOf(unsafe.Pointer(set)) {
			t.Errorf("write for binding %d targets another set", w.DstBinding)
		}
	}
	if writes[0].DstBinding != 1 || len(writes[0].PBufferInfo) != 1 {
		t.Errorf("first write = %+v, want the buffer binding", writes[0])
	}

	again, err := NewDescriptorSetBuilder(cache, allocator).
		BindImage(0, vk.DescriptorImageInfo{}, vk.DescriptorTypeStorageImage, vk.ShaderStageFlags(vk.ShaderStageComputeBit)).
		BindBuffer(1, vk.DescriptorBufferInfo{}, vk.DescriptorTypeStorageBuffer, vk.ShaderStageFlags(vk.ShaderStageComputeBit)).
		BuildLayout()
	if err != nil {
		t.Fatal(err)
	}
	if serialOf(unsafe.Pointer(again)) != serialOf(unsafe.Pointer(layout)) {
		t.Error("builder with the same bindings resolved a new layout")
	}
}
