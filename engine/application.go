package engine

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/particle-shadowing/engine/particles"
	"github.com/spaghettifunk/particle-shadowing/engine/renderer/components"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`

	EnableValidation bool `toml:"enable_validation"`
	// AssetDirectory holds shaders/*.spv.
	AssetDirectory   string `toml:"asset_directory"`
	HotReloadShaders bool   `toml:"hot_reload_shaders"`
	// SurfaceImage is an image under AssetDirectory mapped onto every
	// sphere. Empty keeps the spheres untextured.
	SurfaceImage string `toml:"surface_image"`
	// WaitIdleEachFrame drains the device at the top of every frame.
	WaitIdleEachFrame bool `toml:"wait_idle_each_frame"`

	// SunDirection points towards the light; it is normalized on use.
	SunDirection mgl32.Vec3 `toml:"sun_direction"`
	ClearColor   [4]float32 `toml:"clear_color"`

	Particles particles.Config        `toml:"particles"`
	Camera    components.CameraConfig `toml:"camera"`
}

func DefaultApplicationConfig() ApplicationConfig {
	return ApplicationConfig{
		StartPosX:         100,
		StartPosY:         100,
		StartWidth:        800,
		StartHeight:       600,
		Name:              "Particle Shadowing",
		LogLevel:          "info",
		EnableValidation:  true,
		AssetDirectory:    "assets",
		HotReloadShaders:  true,
		WaitIdleEachFrame: true,
		SunDirection:      mgl32.Vec3{0.5, 1.0, 0.3},
		ClearColor:        [4]float32{0, 0, 0, 1},
		Particles:         particles.DefaultConfig(),
		Camera:            components.DefaultCameraConfig(),
	}
}

// LoadApplicationConfig decodes the TOML file at path over the defaults, so
// keys missing from the file keep their default value. A missing file
// yields the defaults.
func LoadApplicationConfig(path string) (ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, errors.Wrapf(err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "decode config %s", path)
	}
	return config, config.Validate()
}

func (c ApplicationConfig) Validate() error {
	switch {
	case c.StartWidth == 0 || c.StartHeight == 0:
		return errors.Newf("window size %dx%d is empty", c.StartWidth, c.StartHeight)
	case c.Particles.Count == 0:
		return errors.New("particle count must be positive")
	case c.Particles.MinRadius <= 0 || c.Particles.MaxRadius < c.Particles.MinRadius:
		return errors.Newf("particle radius range [%v, %v] is invalid", c.Particles.MinRadius, c.Particles.MaxRadius)
	case c.Particles.MaxSpeed < 0:
		return errors.Newf("particle max speed %v is negative", c.Particles.MaxSpeed)
	case c.Particles.FadeRate < 0:
		return errors.Newf("particle fade rate %v is negative", c.Particles.FadeRate)
	case c.SunDirection.Len() == 0:
		return errors.New("sun direction must not be zero")
	}
	return nil
}
