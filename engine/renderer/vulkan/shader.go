package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// spirvMagic is the first word of every SPIR-V binary.
const spirvMagic uint32 = 0x07230203

type ShaderModule struct {
	Handle vk.ShaderModule
	Name   string

	device *VulkanDevice
	id     uuid.UUID
}

// shaderModuleCreateInfo describes code; CodeSize is in bytes.
func shaderModuleCreateInfo(code []uint32) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
}

func NewShaderModule(device *VulkanDevice, name string, code []uint32) (*ShaderModule, error) {
	if len(code) == 0 || code[0] != spirvMagic {
		return nil, errors.Wrapf(core.ErrInvalidShaderCode, "shader %q", name)
	}
	createInfo := shaderModuleCreateInfo(code)
	module := &ShaderModule{Name: name, device: device}
	if err := Check(vk.CreateShaderModule(device.LogicalDevice, &createInfo, device.Allocator, &module.Handle), "vkCreateShaderModule"); err != nil {
		return nil, errors.Wrapf(err, "shader %q", name)
	}
	module.id = device.tracker.Track(KindShaderModule)
	return module, nil
}

// stage describes module as the entry point "main" of stage.
func (sm *ShaderModule) stage(stage vk.ShaderStageFlagBits) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: sm.Handle,
		PName:  VulkanSafeString("main"),
	}
}

func (sm *ShaderModule) Destroy() {
	if sm.Handle == vk.NullShaderModule {
		return
	}
	vk.DestroyShaderModule(sm.device.LogicalDevice, sm.Handle, sm.device.Allocator)
	sm.Handle = vk.NullShaderModule
	sm.device.tracker.Release(sm.id)
}
