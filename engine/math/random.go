package math

import (
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/rand"
)

// Random is a seedable source of the distributions used by the simulation.
// It is not safe for concurrent use.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Float32Range returns a uniformly distributed value in [min, max).
func (r *Random) Float32Range(min, max float32) float32 {
	if max <= min {
		return min
	}
	return min + r.rng.Float32()*(max-min)
}

// BallRand returns a point uniformly distributed inside the ball of the
// given radius centered on the origin.
func (r *Random) BallRand(radius float32) mgl32.Vec3 {
	for {
		v := mgl32.Vec3{
			r.Float32Range(-1, 1),
			r.Float32Range(-1, 1),
			r.Float32Range(-1, 1),
		}
		if v.LenSqr() <= 1 {
			return v.Mul(radius)
		}
	}
}
