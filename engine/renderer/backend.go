package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/particle-shadowing/engine/particles"
)

// RenderPacket is everything the backend needs to draw one frame.
type RenderPacket struct {
	DeltaTime  float64
	Projection mgl32.Mat4
	View       mgl32.Mat4
	// SunDirection points from the scene towards the light.
	SunDirection mgl32.Vec3
	Particles    []particles.Particle
	// ParticleData is Particles in the storage buffer layout.
	ParticleData []byte
}

// ShaderSet holds the SPIR-V words of every pipeline stage.
type ShaderSet struct {
	Vertex   []uint32
	Fragment []uint32
	Compute  []uint32
}

type RendererBackend interface {
	FrameStepper
	// Prepare hands the backend the packet used by the next frame.
	Prepare(packet *RenderPacket)
	ReloadShaders(shaders ShaderSet) error
	Shutdown() error
}
