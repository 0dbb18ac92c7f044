package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// DebugMessenger forwards validation messages to the engine logger.
type DebugMessenger interface {
	Destroy()
}

type noopMessenger struct{}

func (noopMessenger) Destroy() {}

type reportMessenger struct {
	instance *VulkanInstance
	handle   vk.DebugReportCallback
}

func (rm *reportMessenger) Destroy() {
	if rm.handle != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(rm.instance.Handle, rm.handle, rm.instance.Allocator)
		rm.handle = vk.NullDebugReportCallback
	}
}

// NewDebugMessenger installs a debug report callback when the instance was
// created with the debug report extension and returns a no-op messenger
// otherwise.
func NewDebugMessenger(instance *VulkanInstance) (DebugMessenger, error) {
	if !instance.HasExtension(vk.ExtDebugReportExtensionName) {
		return noopMessenger{}, nil
	}

	core.LogDebug("Creating Vulkan debugger...")
	createInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var handle vk.DebugReportCallback
	if err := Check(vk.CreateDebugReportCallback(instance.Handle, &createInfo, instance.Allocator, &handle), "vkCreateDebugReportCallback"); err != nil {
		return nil, err
	}
	core.LogDebug("Vulkan debugger created.")

	return &reportMessenger{instance: instance, handle: handle}, nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
