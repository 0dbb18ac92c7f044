package vulkan

import (
	"reflect"
	"testing"

	vk "github.com/goki/vulkan"
)

func family(present bool, bits ...vk.QueueFlagBits) QueueFamily {
	var flags vk.QueueFlags
	for _, b := range bits {
		flags |= vk.QueueFlags(b)
	}
	return QueueFamily{Flags: flags, Present: present}
}

func TestSelectQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []QueueFamily
		want     QueueFamilyIndices
		ok       bool
	}{
		{
			name: "single universal family",
			families: []QueueFamily{
				family(true, vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
			},
			want: QueueFamilyIndices{0, 0, 0, 0},
			ok:   true,
		},
		{
			name: "dedicated compute and transfer",
			families: []QueueFamily{
				family(true, vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
				family(false, vk.QueueComputeBit, vk.QueueTransferBit),
				family(false, vk.QueueTransferBit),
			},
			want: QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 1, Transfer: 2},
			ok:   true,
		},
		{
			name: "graphics family that presents wins",
			families: []QueueFamily{
				family(false, vk.QueueGraphicsBit, vk.QueueComputeBit),
				family(true, vk.QueueGraphicsBit, vk.QueueComputeBit),
			},
			want: QueueFamilyIndices{Graphics: 1, Present: 1, Compute: 0, Transfer: 1},
			ok:   true,
		},
		{
			name: "separate present family",
			families: []QueueFamily{
				family(false, vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
				family(true),
			},
			want: QueueFamilyIndices{Graphics: 0, Present: 1, Compute: 0, Transfer: 0},
			ok:   true,
		},
		{
			name: "no transfer bit falls back to graphics",
			families: []QueueFamily{
				family(true, vk.QueueGraphicsBit, vk.QueueComputeBit),
			},
			want: QueueFamilyIndices{0, 0, 0, 0},
			ok:   true,
		},
		{
			name: "no present support",
			families: []QueueFamily{
				family(false, vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
			},
			ok: false,
		},
		{
			name: "no compute support",
			families: []QueueFamily{
				family(true, vk.QueueGraphicsBit, vk.QueueTransferBit),
			},
			ok: false,
		},
		{
			name: "no families",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectQueueFamilies(tt.families)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestQueueFamilyIndices(t *testing.T) {
	indices := QueueFamilyIndices{Graphics: 0, Present: 2, Compute: 1, Transfer: 0}
	if got, want := indices.Unique(), []uint32{0, 2, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Unique() = %v, want %v", got, want)
	}
	roles := map[QueueRole]uint32{
		QueueGraphics: 0,
		QueuePresent:  2,
		QueueCompute:  1,
		QueueTransfer: 0,
	}
	for role, want := range roles {
		if got := indices.Index(role); got != want {
			t.Errorf("Index(%s) = %d, want %d", role, got, want)
		}
	}
}

func TestMissingNames(t *testing.T) {
	available := []string{"VK_KHR_surface", "VK_KHR_swapchain"}
	tests := []struct {
		name     string
		required []string
		want     []string
	}{
		{"all present", []string{"VK_KHR_swapchain"}, nil},
		{"one missing", []string{"VK_KHR_swapchain", "VK_KHR_portability_subset"}, []string{"VK_KHR_portability_subset"}},
		{"nothing required", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := missingNames(tt.required, available); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("missingNames = %v, want %v", got, tt.want)
			}
		})
	}
}
