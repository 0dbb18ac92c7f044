package renderer

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/particle-shadowing/engine/core"
)

// Renderer feeds render packets to a backend and runs its frame loop.
type Renderer struct {
	backend RendererBackend
	loop    *FrameLoop
}

func New(backend RendererBackend) *Renderer {
	return &Renderer{
		backend: backend,
		loop:    NewFrameLoop(backend),
	}
}

// Loop exposes the frame loop, mostly for its state and slot.
func (r *Renderer) Loop() *FrameLoop {
	return r.loop
}

func (r *Renderer) DrawFrame(packet *RenderPacket) error {
	if packet == nil {
		return errors.New("draw frame without a render packet")
	}
	r.backend.Prepare(packet)
	if err := r.loop.Step(); err != nil {
		core.LogError("Frame failed in state %s.", r.loop.State())
		return err
	}
	return nil
}

// ReloadShaders rebuilds the pipelines from new shader code. The current
// pipelines stay in use when the rebuild fails.
func (r *Renderer) ReloadShaders(shaders ShaderSet) error {
	if err := r.backend.ReloadShaders(shaders); err != nil {
		return errors.Wrap(err, "shader reload")
	}
	core.LogInfo("Shaders reloaded.")
	return nil
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}
