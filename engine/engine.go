package engine

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/particle-shadowing/engine/assets"
	"github.com/spaghettifunk/particle-shadowing/engine/assets/loaders"
	"github.com/spaghettifunk/particle-shadowing/engine/core"
	"github.com/spaghettifunk/particle-shadowing/engine/particles"
	"github.com/spaghettifunk/particle-shadowing/engine/platform"
	"github.com/spaghettifunk/particle-shadowing/engine/renderer"
	"github.com/spaghettifunk/particle-shadowing/engine/renderer/components"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// inputDeltaTime scales mouse and wheel deltas independently of the frame
// rate.
const inputDeltaTime = 0.01

// Shader binaries under <asset dir>/shaders, without the .spv suffix.
const (
	vertexShaderName   = "particle.vert"
	fragmentShaderName = "particle.frag"
	computeShaderName  = "particle_shadowing.comp"
)

type Engine struct {
	config       ApplicationConfig
	currentStage Stage
	isRunning    atomic.Bool

	platform     *platform.Platform
	input        *core.Input
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	camera       *components.Camera
	particles    *particles.System

	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	sinceMetrics  float64
	previousMouse mgl32.Vec2
}

func New(config ApplicationConfig) *Engine {
	input := core.NewInput()
	return &Engine{
		config:       config,
		currentStage: EngineStageUninitialized,
		platform:     platform.New(input),
		input:        input,
		camera:       components.NewCamera(config.Camera, config.StartWidth, config.StartHeight),
		particles:    particles.NewSystem(config.Particles),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := core.LogSetLevel(e.config.LogLevel); err != nil {
		return err
	}

	if err := e.platform.Startup(e.config.Name,
		e.config.StartPosX,
		e.config.StartPosY,
		e.config.StartWidth,
		e.config.StartHeight); err != nil {
		return err
	}

	am, err := assets.NewAssetManager(e.config.AssetDirectory)
	if err != nil {
		return err
	}
	e.assetManager = am

	shaders, err := loadShaders(e.assetManager)
	if err != nil {
		return err
	}

	surface, err := loadSurfaceImage(e.assetManager, e.config.SurfaceImage)
	if err != nil {
		return err
	}

	width, _ := e.platform.FramebufferSize()
	if width == 0 {
		return errors.New("window has an empty framebuffer")
	}

	backend, err := renderer.NewParticleRenderer(e.platform, renderer.ParticleRendererConfig{
		ApplicationName:  e.config.Name,
		EnableValidation: e.config.EnableValidation,
		ParticleCount:    e.config.Particles.Count,
		Shaders:          shaders,
		ClearColor:       e.config.ClearColor,
		SurfaceImage:     surface,
	})
	if err != nil {
		return err
	}
	e.renderer = renderer.New(backend)
	e.renderer.Loop().WaitIdleEachFrame = e.config.WaitIdleEachFrame

	if e.config.HotReloadShaders {
		e.assetManager.Watch()
	}

	e.particles.CreateExplosion(e.config.Particles.Origin)
	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

func loadShaders(am *assets.AssetManager) (renderer.ShaderSet, error) {
	var set renderer.ShaderSet
	for _, s := range []struct {
		name string
		dst  *[]uint32
	}{
		{vertexShaderName, &set.Vertex},
		{fragmentShaderName, &set.Fragment},
		{computeShaderName, &set.Compute},
	} {
		code, err := am.LoadShader(s.name)
		if err != nil {
			return set, err
		}
		*s.dst = code
	}
	return set, nil
}

// loadSurfaceImage returns nil when no image is configured.
func loadSurfaceImage(am *assets.AssetManager, path string) (*loaders.ImageData, error) {
	if path == "" {
		return nil, nil
	}
	return am.LoadImage(path)
}

// Run drives the main loop until the window closes, ESC is pressed or
// Stop is called. A failed frame ends the loop with its error.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		e.input.Begin()
		e.platform.PumpMessages()
		if e.platform.ShouldClose() || e.input.WasKeyPressed(core.KEY_ESCAPE) {
			break
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if e.input.WasKeyPressed(core.KEY_R) {
			e.particles.CreateExplosion(e.config.Particles.Origin)
		}
		e.previousMouse = updateCamera(e.camera, e.input, e.previousMouse)
		e.particles.Update(float32(delta))
		e.reloadChangedShaders()

		if err := e.renderer.DrawFrame(e.buildPacket(delta)); err != nil {
			e.isRunning.Store(false)
			return err
		}
		e.updateMetrics(delta)
	}
	e.isRunning.Store(false)
	return nil
}

// Stop asks the loop to exit after the current frame. Safe to call from
// any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) buildPacket(delta float64) *renderer.RenderPacket {
	return &renderer.RenderPacket{
		DeltaTime:    delta,
		Projection:   e.camera.Projection(),
		View:         e.camera.View(),
		SunDirection: e.config.SunDirection.Normalize(),
		Particles:    e.particles.Particles(),
		ParticleData: e.particles.Bytes(),
	}
}

// updateCamera applies the orbit controls and returns the cursor position
// to diff against next frame. Middle drag rotates, with left shift it pans.
func updateCamera(camera *components.Camera, input *core.Input, previousMouse mgl32.Vec2) mgl32.Vec2 {
	x, y := input.MousePosition()
	currentMouse := mgl32.Vec2{float32(x), float32(y)}
	delta := currentMouse.Sub(previousMouse).Mul(inputDeltaTime)

	if input.IsButtonHeld(core.BUTTON_MIDDLE) {
		if input.IsKeyHeld(core.KEY_LSHIFT) {
			camera.Pan(delta)
		} else {
			camera.Rotate(delta)
		}
	}
	if _, wheelY := input.Wheel(); wheelY != 0 {
		camera.Zoom(inputDeltaTime * float32(wheelY) * 5)
	}
	return currentMouse
}

// reloadChangedShaders drains pending change notifications and rebuilds
// the pipelines once. A broken shader is logged and the old pipelines stay.
func (e *Engine) reloadChangedShaders() {
	changed := false
	for drained := false; !drained; {
		select {
		case path := <-e.assetManager.ShaderChanges():
			core.LogDebug("Shader changed: %s", path)
			changed = true
		default:
			drained = true
		}
	}
	if !changed {
		return
	}

	shaders, err := loadShaders(e.assetManager)
	if err == nil {
		err = e.renderer.ReloadShaders(shaders)
	}
	if err != nil {
		core.LogError("Keeping the current shaders: %v", err)
	}
}

func (e *Engine) updateMetrics(delta float64) {
	e.metrics.Update(delta)
	e.sinceMetrics += delta
	if e.sinceMetrics >= 1 {
		fps, frameTime := e.metrics.Frame()
		core.LogDebug("FPS: %.0f, frame time: %.3f ms", fps, frameTime)
		e.sinceMetrics = 0
	}
}

// Shutdown releases the renderer, the asset watcher and the window in
// that order. It reports every failure.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var err error
	if e.renderer != nil {
		err = errors.CombineErrors(err, e.renderer.Shutdown())
		e.renderer = nil
	}
	if e.assetManager != nil {
		err = errors.CombineErrors(err, e.assetManager.Close())
		e.assetManager = nil
	}
	e.platform.Shutdown()
	e.clock.Stop()
	e.currentStage = EngineStageUninitialized
	return err
}
