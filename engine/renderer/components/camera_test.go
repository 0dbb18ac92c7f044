package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-4

// near compares component wise with an absolute tolerance. The relative
// ApproxEqual helpers of mgl32 reject tiny residuals next to a zero.
func near(got, want mgl32.Vec3) bool {
	for i := range got {
		if mgl32.Abs(got[i]-want[i]) > epsilon {
			return false
		}
	}
	return true
}

func nearMat4(got, want mgl32.Mat4) bool {
	for i := range got {
		if mgl32.Abs(got[i]-want[i]) > epsilon {
			return false
		}
	}
	return true
}

func newTestCamera() *Camera {
	return NewCamera(DefaultCameraConfig(), 800, 600)
}

func TestCameraProjection(t *testing.T) {
	c := newTestCamera()
	want := mgl32.Perspective(mgl32.DegToRad(45), 800.0/600.0, 0.1, 1000)
	if !nearMat4(c.Projection(), want) {
		t.Errorf("Projection() = %v, want %v", c.Projection(), want)
	}
}

func TestCameraDefaultView(t *testing.T) {
	c := newTestCamera()
	view := c.View()

	if !near(c.Position, mgl32.Vec3{0, 0, -10}) {
		t.Errorf("Position = %v, want (0, 0, -10)", c.Position)
	}
	// the eye maps to the view space origin
	eye := view.Mul4x1(c.Position.Vec4(1))
	if !near(eye.Vec3(), mgl32.Vec3{}) {
		t.Errorf("eye in view space = %v, want origin", eye)
	}
}

func TestCameraZoom(t *testing.T) {
	tests := []struct {
		name         string
		distance     float32
		delta        float32
		wantDistance float32
		wantFocal    mgl32.Vec3
	}{
		{"in", 10, 0.1, 10 - 0.1*64, mgl32.Vec3{}},
		{"out", 10, -0.1, 10 + 0.1*64, mgl32.Vec3{}},
		{"clamped", 10, 1, 1, mgl32.Vec3{0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCamera()
			c.Distance = tt.distance
			c.Zoom(tt.delta)
			if mgl32.Abs(c.Distance-tt.wantDistance) > epsilon {
				t.Errorf("Distance = %v, want %v", c.Distance, tt.wantDistance)
			}
			if !near(c.FocalPoint, tt.wantFocal) {
				t.Errorf("FocalPoint = %v, want %v", c.FocalPoint, tt.wantFocal)
			}
		})
	}
}

func TestCameraZoomSpeed(t *testing.T) {
	tests := []struct {
		distance, want float32
	}{
		{10, 64},
		{20, 100},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		c := newTestCamera()
		c.Distance = tt.distance
		if got := c.ZoomSpeed(); mgl32.Abs(got-tt.want) > epsilon {
			t.Errorf("ZoomSpeed() at %v = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestCameraPanSpeed(t *testing.T) {
	c := newTestCamera()
	x, y := c.PanSpeed()
	if mgl32.Abs(x-0.183284) > epsilon {
		t.Errorf("pan x = %v, want 0.183284", x)
	}
	if mgl32.Abs(y-0.208596) > epsilon {
		t.Errorf("pan y = %v, want 0.208596", y)
	}

	c.SetViewport(5000, 5000)
	capped, _ := c.PanSpeed()
	if want := panFactor(2400); mgl32.Abs(capped-want) > epsilon {
		t.Errorf("pan speed not capped: %v, want %v", capped, want)
	}
}

func TestCameraPan(t *testing.T) {
	c := newTestCamera()
	speedX, _ := c.PanSpeed()
	c.Pan(mgl32.Vec2{1, 0})
	// right is +X at rest so the focal point moves towards -X
	want := mgl32.Vec3{-speedX * 10, 0, 0}
	if !near(c.FocalPoint, want) {
		t.Errorf("FocalPoint = %v, want %v", c.FocalPoint, want)
	}
}

func TestCameraRotate(t *testing.T) {
	c := newTestCamera()
	c.Rotate(mgl32.Vec2{1, 0.5})
	if mgl32.Abs(c.Yaw+0.8) > epsilon {
		t.Errorf("Yaw = %v, want -0.8", c.Yaw)
	}
	if mgl32.Abs(c.Pitch-0.4) > epsilon {
		t.Errorf("Pitch = %v, want 0.4", c.Pitch)
	}
}

func TestCameraOrientationAxes(t *testing.T) {
	c := newTestCamera()
	c.Yaw = -mgl32.DegToRad(90)
	// a quarter turn about Y takes forward from +Z to +X
	if !near(c.Forward(), mgl32.Vec3{1, 0, 0}) {
		t.Errorf("Forward() = %v, want (1, 0, 0)", c.Forward())
	}
	if !near(c.Up(), mgl32.Vec3{0, 1, 0}) {
		t.Errorf("Up() = %v, want (0, 1, 0)", c.Up())
	}
}
