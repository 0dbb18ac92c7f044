package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

const (
	validationLayerName           = "VK_LAYER_KHRONOS_validation"
	portabilityEnumerationExtName = "VK_KHR_portability_enumeration"
	physicalDeviceProps2ExtName   = "VK_KHR_get_physical_device_properties2"

	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	instanceCreateEnumeratePortabilityBit = 0x00000001
)

type InstanceConfig struct {
	ApplicationName  string
	EngineName       string
	EnableValidation bool
}

// VulkanInstance owns the VkInstance. It must outlive every surface,
// device and debug messenger created from it.
type VulkanInstance struct {
	Handle    vk.Instance
	Allocator *vk.AllocationCallbacks

	extensions []string
	layers     []string
}

// InitLoader points goki/vulkan at the platform's vkGetInstanceProcAddr and
// loads the global entry points.
func InitLoader(procAddr unsafe.Pointer) error {
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize vk")
	}
	return nil
}

// NewInstance creates the instance with the platform's surface extensions.
// With validation enabled the Khronos validation layer and the debug
// report extension are required; a missing one is an error.
func NewInstance(config InstanceConfig, platformExtensions []string) (*VulkanInstance, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		PEngineName:        VulkanSafeString(config.EngineName),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{}, platformExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions, portabilityEnumerationExtName, physicalDeviceProps2ExtName)
		createInfo.Flags |= instanceCreateEnumeratePortabilityBit
	}

	var requiredLayers []string
	if config.EnableValidation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		requiredLayers = append(requiredLayers, validationLayerName)
	}

	availableExtensions, err := instanceExtensions()
	if err != nil {
		return nil, err
	}
	if missing := missingNames(requiredExtensions, availableExtensions); len(missing) > 0 {
		return nil, errors.Wrapf(core.ErrMissingExtension, "instance extensions %v", missing)
	}

	if len(requiredLayers) > 0 {
		core.LogInfo("Validation layers enabled. Enumerating...")
		availableLayers, err := instanceLayers()
		if err != nil {
			return nil, err
		}
		if missing := missingNames(requiredLayers, availableLayers); len(missing) > 0 {
			return nil, errors.Wrapf(core.ErrMissingLayer, "validation layers %v", missing)
		}
		core.LogInfo("All required validation layers are present.")
	}

	for _, e := range requiredExtensions {
		core.LogDebug("Required extension: %s", e)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	instance := &VulkanInstance{
		extensions: requiredExtensions,
		layers:     requiredLayers,
	}
	if err := Check(vk.CreateInstance(&createInfo, instance.Allocator, &instance.Handle), "vkCreateInstance"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance.Handle); err != nil {
		return nil, errors.Wrap(err, "failed to load instance functions")
	}

	core.LogInfo("Vulkan Instance created.")
	return instance, nil
}

// HasExtension reports whether name was enabled at creation.
func (vi *VulkanInstance) HasExtension(name string) bool {
	for _, e := range vi.extensions {
		if e == name {
			return true
		}
	}
	return false
}

func (vi *VulkanInstance) Destroy() {
	if vi.Handle != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vi.Handle, vi.Allocator)
		vi.Handle = nil
	}
}

// SurfaceSource creates a presentation surface for an instance. A
// *glfw.Window satisfies it.
type SurfaceSource interface {
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

type Surface struct {
	Handle   vk.Surface
	instance *VulkanInstance
}

func (vi *VulkanInstance) CreateSurface(source SurfaceSource) (*Surface, error) {
	core.LogDebug("Creating Vulkan surface...")
	ptr, err := source.CreateWindowSurface(vi.Handle, nil)
	if err != nil {
		return nil, errors.Wrap(err, "vulkan surface creation failed")
	}
	core.LogDebug("Vulkan surface created.")
	return &Surface{
		Handle:   vk.SurfaceFromPointer(ptr),
		instance: vi,
	}, nil
}

func (s *Surface) Destroy() {
	if s.Handle != vk.NullSurface {
		vk.DestroySurface(s.instance.Handle, s.Handle, s.instance.Allocator)
		s.Handle = vk.NullSurface
	}
}

func instanceExtensions() ([]string, error) {
	var count uint32
	if err := Check(vk.EnumerateInstanceExtensionProperties("", &count, nil), "vkEnumerateInstanceExtensionProperties"); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := Check(vk.EnumerateInstanceExtensionProperties("", &count, props), "vkEnumerateInstanceExtensionProperties"); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, CString(props[i].ExtensionName[:]))
	}
	return names, nil
}

func instanceLayers() ([]string, error) {
	var count uint32
	if err := Check(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := Check(vk.EnumerateInstanceLayerProperties(&count, props), "vkEnumerateInstanceLayerProperties"); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, CString(props[i].LayerName[:]))
	}
	return names, nil
}

// missingNames returns the entries of required absent from available, in
// the order they were required.
func missingNames(required, available []string) []string {
	set := make(map[string]struct{}, len(available))
	for _, a := range available {
		set[a] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := set[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}
