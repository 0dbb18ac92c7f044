package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// SphereVertexStride is the number of floats per sphere vertex: a position
// followed by its normal.
const SphereVertexStride = 6

// SphereVertices generates the interleaved position/normal array of a UV
// sphere. Rings run from the north pole (+Z) to the south pole, each ring
// holding sectors+1 vertices so the seam gets its own copy.
func SphereVertices(radius float32, sectors, stacks uint32) []float32 {
	vertices := make([]float32, 0, (sectors+1)*(stacks+1)*SphereVertexStride)
	invRadius := 1 / radius

	sectorStep := 2 * gomath.Pi / float64(sectors)
	stackStep := gomath.Pi / float64(stacks)

	for i := uint32(0); i <= stacks; i++ {
		stackAngle := gomath.Pi/2 - float64(i)*stackStep
		xy := float64(radius) * gomath.Cos(stackAngle)
		z := float32(float64(radius) * gomath.Sin(stackAngle))

		for j := uint32(0); j <= sectors; j++ {
			sectorAngle := float64(j) * sectorStep
			x := float32(xy * gomath.Cos(sectorAngle))
			y := float32(xy * gomath.Sin(sectorAngle))

			vertices = append(vertices,
				x, y, z,
				x*invRadius, y*invRadius, z*invRadius,
			)
		}
	}
	return vertices
}

// SphereIndices generates the triangle list matching SphereVertices. The
// pole rings emit a single triangle per sector.
func SphereIndices(sectors, stacks uint32) []uint32 {
	indices := make([]uint32, 0, sectors*(stacks-1)*6)
	for i := uint32(0); i < stacks; i++ {
		k1 := i * (sectors + 1)
		k2 := k1 + sectors + 1

		for j := uint32(0); j < sectors; j, k1, k2 = j+1, k1+1, k2+1 {
			if i != 0 {
				indices = append(indices, k1, k2, k1+1)
			}
			if i != stacks-1 {
				indices = append(indices, k1+1, k2, k2+1)
			}
		}
	}
	return indices
}

// ModelMatrix places a unit mesh at position scaled uniformly by scale.
func ModelMatrix(position mgl32.Vec3, scale float32) mgl32.Mat4 {
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}
