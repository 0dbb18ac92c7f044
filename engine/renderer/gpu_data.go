package renderer

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

// Byte sizes of the blocks shared with the shaders.
const (
	GraphicsPushConstantsSize = 72
	ComputePushConstantsSize  = 16
	GlobalUniformsSize        = 128
	ShadowFactorSize          = 4

	// ComputeLocalSize must match local_size_x of the shadow compute shader.
	ComputeLocalSize = 256
)

// GraphicsPushConstants is the per draw block of the particle vertex shader.
type GraphicsPushConstants struct {
	Model       mgl32.Mat4
	ShadowIndex uint32
	Opacity     float32
}

// ComputePushConstants is the per dispatch block of the shadow compute
// shader. W is unused.
type ComputePushConstants struct {
	SunDirection mgl32.Vec4
}

type GlobalUniforms struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
}

func putFloats(dst []byte, values []float32) []byte {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
	return dst[len(values)*4:]
}

// Bytes encodes the block; matrices are column major like GLSL.
func (pc GraphicsPushConstants) Bytes() []byte {
	out := make([]byte, GraphicsPushConstantsSize)
	rest := putFloats(out, pc.Model[:])
	binary.LittleEndian.PutUint32(rest, pc.ShadowIndex)
	binary.LittleEndian.PutUint32(rest[4:], math.Float32bits(pc.Opacity))
	return out
}

func (pc ComputePushConstants) Bytes() []byte {
	out := make([]byte, ComputePushConstantsSize)
	putFloats(out, pc.SunDirection[:])
	return out
}

func (u GlobalUniforms) Bytes() []byte {
	out := make([]byte, GlobalUniformsSize)
	rest := putFloats(out, u.Projection[:])
	putFloats(rest, u.View[:])
	return out
}

// DispatchGroups is the number of workgroups covering count invocations.
func DispatchGroups(count, localSize uint32) uint32 {
	return (count + localSize - 1) / localSize
}

// FlippedViewport covers extent with a negative height so that +Y points
// up in clip space.
func FlippedViewport(extent vk.Extent2D) vk.Viewport {
	return vk.Viewport{
		X:        0,
		Y:        float32(extent.Height),
		Width:    float32(extent.Width),
		Height:   -float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}
