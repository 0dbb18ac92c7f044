package particles

import (
	"encoding/binary"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/particle-shadowing/engine/math"
)

// ParticleSize is the byte size of one particle in the GPU storage buffer
// (std430: vec3 + pad, radius, opacity, vec2 pad).
const ParticleSize = 32

// Particle is the simulated state the shaders consume.
type Particle struct {
	Position mgl32.Vec3
	Radius   float32
	Opacity  float32
}

type Config struct {
	Count     uint32     `toml:"count"`
	Origin    mgl32.Vec3 `toml:"origin"`
	MinRadius float32    `toml:"min_radius"`
	MaxRadius float32    `toml:"max_radius"`
	// MaxSpeed is the radius of the ball initial velocities are drawn from.
	MaxSpeed float32 `toml:"max_speed"`
	// FadeRate is the opacity lost per second.
	FadeRate float32 `toml:"fade_rate"`
	Seed     uint64  `toml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		Count:     1024,
		Origin:    mgl32.Vec3{0, 0, 0},
		MinRadius: 0.1,
		MaxRadius: 0.5,
		MaxSpeed:  1.0,
		FadeRate:  0.5,
		Seed:      1,
	}
}

// System owns the particle array and the parallel velocity array. The GPU
// buffers are not owned here; the renderer copies Bytes() every frame.
type System struct {
	config     Config
	random     *math.Random
	particles  []Particle
	velocities []mgl32.Vec3
	bytes      []byte
}

func NewSystem(config Config) *System {
	return &System{
		config:     config,
		random:     math.NewRandom(config.Seed),
		particles:  make([]Particle, config.Count),
		velocities: make([]mgl32.Vec3, config.Count),
		bytes:      make([]byte, int(config.Count)*ParticleSize),
	}
}

func (s *System) Config() Config {
	return s.config
}

func (s *System) Count() uint32 {
	return s.config.Count
}

// CreateExplosion places every particle at origin with full opacity, a
// random radius and an isotropic velocity.
func (s *System) CreateExplosion(origin mgl32.Vec3) {
	for i := range s.particles {
		s.particles[i] = Particle{
			Position: origin,
			Radius:   s.random.Float32Range(s.config.MinRadius, s.config.MaxRadius),
			Opacity:  1.0,
		}
		s.velocities[i] = s.random.BallRand(s.config.MaxSpeed)
	}
}

// Update integrates positions and fades opacity towards zero. Particles
// that reach zero opacity stay in place and are never respawned.
func (s *System) Update(deltaTime float32) {
	fade := s.config.FadeRate * deltaTime
	for i := range s.particles {
		p := &s.particles[i]
		p.Position = p.Position.Add(s.velocities[i].Mul(deltaTime))
		p.Opacity -= fade
		if p.Opacity < 0 {
			p.Opacity = 0
		}
	}
}

func (s *System) Particles() []Particle {
	return s.particles
}

func (s *System) Velocities() []mgl32.Vec3 {
	return s.velocities
}

// Bytes encodes the particles in the storage buffer layout. The returned
// slice is reused by subsequent calls.
func (s *System) Bytes() []byte {
	for i, p := range s.particles {
		b := s.bytes[i*ParticleSize : (i+1)*ParticleSize]
		putFloat(b[0:], p.Position.X())
		putFloat(b[4:], p.Position.Y())
		putFloat(b[8:], p.Position.Z())
		putFloat(b[12:], 0)
		putFloat(b[16:], p.Radius)
		putFloat(b[20:], p.Opacity)
		putFloat(b[24:], 0)
		putFloat(b[28:], 0)
	}
	return s.bytes
}

func putFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, gomath.Float32bits(v))
}
