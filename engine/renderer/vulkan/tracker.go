package vulkan

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// ResourceKind names the type of a tracked handle in diagnostics.
type ResourceKind string

const (
	KindBuffer              ResourceKind = "buffer"
	KindTexture             ResourceKind = "texture"
	KindMemory              ResourceKind = "memory"
	KindCommandPool         ResourceKind = "command_pool"
	KindFence               ResourceKind = "fence"
	KindSemaphore           ResourceKind = "semaphore"
	KindSwapchain           ResourceKind = "swapchain"
	KindRenderPass          ResourceKind = "render_pass"
	KindFramebuffer         ResourceKind = "framebuffer"
	KindShaderModule        ResourceKind = "shader_module"
	KindPipeline            ResourceKind = "pipeline"
	KindDescriptorAllocator ResourceKind = "descriptor_allocator"
	KindDescriptorCache     ResourceKind = "descriptor_layout_cache"
	KindAllocator           ResourceKind = "allocator"
)

// ResourceTracker counts the live handles created from one owner. An owner
// refuses to be destroyed while its tracker is not empty, which turns the
// "owner outlives its resources" rule into a checked error.
type ResourceTracker struct {
	owner string
	mu    sync.Mutex
	live  map[uuid.UUID]ResourceKind
}

func NewResourceTracker(owner string) *ResourceTracker {
	return &ResourceTracker{
		owner: owner,
		live:  make(map[uuid.UUID]ResourceKind),
	}
}

func (rt *ResourceTracker) Track(kind ResourceKind) uuid.UUID {
	id := uuid.New()

	rt.mu.Lock()
	rt.live[id] = kind
	rt.mu.Unlock()

	return id
}

// Release forgets id. Releasing an unknown or already released id is a no-op.
func (rt *ResourceTracker) Release(id uuid.UUID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, ok := rt.live[id]; !ok {
		core.LogWarn("%s: release of unknown resource %s", rt.owner, id)
		return
	}
	delete(rt.live, id)
}

func (rt *ResourceTracker) Live() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	return len(rt.live)
}

// LiveKinds returns the number of live handles per kind.
func (rt *ResourceTracker) LiveKinds() map[ResourceKind]int {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	kinds := make(map[ResourceKind]int)
	for _, k := range rt.live {
		kinds[k]++
	}
	return kinds
}

// CheckEmpty returns ErrResourcesAlive listing what is still alive.
func (rt *ResourceTracker) CheckEmpty() error {
	kinds := rt.LiveKinds()
	if len(kinds) == 0 {
		return nil
	}
	parts := make([]string, 0, len(kinds))
	for k, n := range kinds {
		parts = append(parts, string(k)+"="+strconv.Itoa(n))
	}
	sort.Strings(parts)
	return errors.Wrapf(core.ErrResourcesAlive, "%s: %s", rt.owner, strings.Join(parts, ", "))
}
