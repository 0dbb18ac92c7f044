package vulkan

import (
	"cmp"
	"slices"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
)

type layoutEntry struct {
	bindings []vk.DescriptorSetLayoutBinding
	layout   vk.DescriptorSetLayout
}

// DescriptorSetLayoutCache creates each distinct set of bindings once. Two
// requests with the same bindings in any order get the same layout.
type DescriptorSetLayoutCache struct {
	backend descriptorBackend
	mu      sync.Mutex
	layouts map[uint64][]layoutEntry

	device *VulkanDevice
	id     uuid.UUID
}

func NewDescriptorSetLayoutCache(device *VulkanDevice) *DescriptorSetLayoutCache {
	cache := newDescriptorSetLayoutCache(deviceDescriptorBackend{device: device})
	cache.device = device
	cache.id = device.tracker.Track(KindDescriptorCache)
	return cache
}

func newDescriptorSetLayoutCache(backend descriptorBackend) *DescriptorSetLayoutCache {
	return &DescriptorSetLayoutCache{
		backend: backend,
		layouts: make(map[uint64][]layoutEntry),
	}
}

func compareBindings(a, b vk.DescriptorSetLayoutBinding) int {
	return cmp.Compare(a.Binding, b.Binding)
}

// canonicalBindings returns bindings ordered by binding index, copying
// only when they are not already sorted.
func canonicalBindings(bindings []vk.DescriptorSetLayoutBinding) []vk.DescriptorSetLayoutBinding {
	if slices.IsSortedFunc(bindings, compareBindings) {
		return bindings
	}
	sorted := slices.Clone(bindings)
	slices.SortFunc(sorted, compareBindings)
	return sorted
}

// layoutHash folds every binding into one word. Bindings must already be
// canonical.
func layoutHash(bindings []vk.DescriptorSetLayoutBinding) uint64 {
	hash := uint64(len(bindings))
	for _, b := range bindings {
		hash ^= uint64(b.Binding) |
			uint64(b.DescriptorType)<<8 |
			uint64(b.DescriptorCount)<<16 |
			uint64(b.StageFlags)<<24
	}
	return hash
}

func sameBindings(a, b []vk.DescriptorSetLayoutBinding) bool {
	return slices.EqualFunc(a, b, func(x, y vk.DescriptorSetLayoutBinding) bool {
		return x.Binding == y.Binding &&
			x.DescriptorType == y.DescriptorType &&
			x.DescriptorCount == y.DescriptorCount &&
			x.StageFlags == y.StageFlags
	})
}

// CreateLayout returns the cached layout for bindings, creating it on the
// first request.
func (c *DescriptorSetLayoutCache) CreateLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	canonical := canonicalBindings(bindings)
	hash := layoutHash(canonical)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.layouts[hash] {
		if sameBindings(entry.bindings, canonical) {
			return entry.layout, nil
		}
	}

	layout, err := c.backend.createLayout(canonical)
	if err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	c.layouts[hash] = append(c.layouts[hash], layoutEntry{
		bindings: slices.Clone(canonical),
		layout:   layout,
	})
	return layout, nil
}

// Len is the number of distinct layouts created so far.
func (c *DescriptorSetLayoutCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, entries := range c.layouts {
		n += len(entries)
	}
	return n
}

func (c *DescriptorSetLayoutCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for hash, entries := range c.layouts {
		for _, entry := range entries {
			c.backend.destroyLayout(entry.layout)
		}
		delete(c.layouts, hash)
	}
	if c.device != nil {
		c.device.tracker.Release(c.id)
		c.device = nil
	}
}
