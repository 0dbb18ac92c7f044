package particles

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestUpdateZeroIsNoop(t *testing.T) {
	origin := mgl32.Vec3{1, -2, 3}
	s := NewSystem(DefaultConfig())
	s.CreateExplosion(origin)
	s.Update(0)

	for i, p := range s.Particles() {
		if p.Position != origin {
			t.Fatalf("particle %d moved to %v", i, p.Position)
		}
		if p.Opacity != 1 {
			t.Fatalf("particle %d opacity = %v, want 1", i, p.Opacity)
		}
	}
}

func TestExplosionRanges(t *testing.T) {
	config := DefaultConfig()
	config.Count = 256
	config.MaxSpeed = 3
	s := NewSystem(config)
	s.CreateExplosion(mgl32.Vec3{})

	for i, p := range s.Particles() {
		if p.Radius < config.MinRadius || p.Radius > config.MaxRadius {
			t.Errorf("particle %d radius %v outside [%v, %v]", i, p.Radius, config.MinRadius, config.MaxRadius)
		}
		if v := s.Velocities()[i]; v.Len() > config.MaxSpeed+1e-5 {
			t.Errorf("particle %d speed %v above %v", i, v.Len(), config.MaxSpeed)
		}
	}
}

func TestOpacityReachesZero(t *testing.T) {
	tests := []struct {
		name string
		dt   float32
		fade float32
	}{
		{"default fade", 0.01, 0.5},
		{"odd step", 0.033, 0.5},
		{"fast fade", 0.1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.Count = 16
			config.FadeRate = tt.fade
			s := NewSystem(config)
			s.CreateExplosion(mgl32.Vec3{})

			for elapsed := float32(0); elapsed < 2/tt.fade; elapsed += tt.dt {
				s.Update(tt.dt)
				for _, p := range s.Particles() {
					if p.Opacity < 0 {
						t.Fatalf("negative opacity %v", p.Opacity)
					}
				}
			}
			for i, p := range s.Particles() {
				if p.Opacity != 0 {
					t.Errorf("particle %d opacity = %v, want 0", i, p.Opacity)
				}
			}
		})
	}
}

func TestSeedDeterminism(t *testing.T) {
	a, b := NewSystem(DefaultConfig()), NewSystem(DefaultConfig())
	a.CreateExplosion(mgl32.Vec3{})
	b.CreateExplosion(mgl32.Vec3{})
	for i := range a.Particles() {
		if a.Particles()[i] != b.Particles()[i] || a.Velocities()[i] != b.Velocities()[i] {
			t.Fatalf("particle %d differs between identically seeded systems", i)
		}
	}
}

func TestBytesLayout(t *testing.T) {
	config := DefaultConfig()
	config.Count = 2
	s := NewSystem(config)
	s.CreateExplosion(mgl32.Vec3{4, 5, 6})

	b := s.Bytes()
	if len(b) != 2*ParticleSize {
		t.Fatalf("len = %d, want %d", len(b), 2*ParticleSize)
	}
	read := func(off int) float32 {
		return gomath.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
	}
	p := s.Particles()[1]
	base := ParticleSize
	if read(base) != 4 || read(base+4) != 5 || read(base+8) != 6 {
		t.Errorf("position encoded as (%v, %v, %v)", read(base), read(base+4), read(base+8))
	}
	if read(base+16) != p.Radius || read(base+20) != p.Opacity {
		t.Errorf("radius/opacity encoded as %v/%v", read(base+16), read(base+20))
	}
}
