package components

import (
	"github.com/go-gl/mathgl/mgl32"
)

type CameraConfig struct {
	/** @brief The vertical field of view in degrees. */
	Fov      float32 `toml:"fov"`
	Near     float32 `toml:"near"`
	Far      float32 `toml:"far"`
	Distance float32 `toml:"distance"`
}

func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Fov:      45.0,
		Near:     0.1,
		Far:      1000.0,
		Distance: 10.0,
	}
}

/**
 * @brief An orbit camera circling a focal point. The view is derived
 * from the focal point, the distance to it and the pitch/yaw angles
 * every time it is requested.
 */
type Camera struct {
	Fov  float32
	Near float32
	Far  float32

	/** @brief The eye position, refreshed by View(). */
	Position   mgl32.Vec3
	FocalPoint mgl32.Vec3
	Distance   float32
	/** @brief Pitch and yaw in radians. */
	Pitch float32
	Yaw   float32

	ViewportWidth  float32
	ViewportHeight float32
}

func NewCamera(config CameraConfig, viewportWidth, viewportHeight uint32) *Camera {
	return &Camera{
		Fov:            config.Fov,
		Near:           config.Near,
		Far:            config.Far,
		Distance:       config.Distance,
		ViewportWidth:  float32(viewportWidth),
		ViewportHeight: float32(viewportHeight),
	}
}

func (c *Camera) SetViewport(width, height uint32) {
	c.ViewportWidth = float32(width)
	c.ViewportHeight = float32(height)
}

func (c *Camera) AspectRatio() float32 {
	return c.ViewportWidth / c.ViewportHeight
}

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio(), c.Near, c.Far)
}

func (c *Camera) View() mgl32.Mat4 {
	c.Position = c.FocalPoint.Sub(c.Forward().Mul(c.Distance))
	eye := mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z()).Mul4(c.Orientation().Mat4())
	return eye.Inv()
}

// Orientation rotates about X by -pitch first, then about Y by -yaw.
func (c *Camera) Orientation() mgl32.Quat {
	yaw := mgl32.QuatRotate(-c.Yaw, mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(-c.Pitch, mgl32.Vec3{1, 0, 0})
	return yaw.Mul(pitch)
}

func (c *Camera) Up() mgl32.Vec3 {
	return c.Orientation().Rotate(mgl32.Vec3{0, 1, 0})
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Orientation().Rotate(mgl32.Vec3{1, 0, 0})
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.Orientation().Rotate(mgl32.Vec3{0, 0, 1})
}

/** @brief Moves the focal point in the view plane. */
func (c *Camera) Pan(delta mgl32.Vec2) {
	speedX, speedY := c.PanSpeed()
	c.FocalPoint = c.FocalPoint.Add(c.Right().Mul(-delta.X() * speedX * c.Distance))
	c.FocalPoint = c.FocalPoint.Add(c.Up().Mul(-delta.Y() * speedY * c.Distance))
}

func (c *Camera) Rotate(delta mgl32.Vec2) {
	yawSign := float32(-1)
	if c.Up().Y() < 0 {
		yawSign = 1
	}
	c.Yaw += yawSign * delta.X() * c.RotationSpeed()
	c.Pitch += delta.Y() * c.RotationSpeed()
}

/**
 * @brief Moves towards the focal point. The distance never drops below 1;
 * past that the focal point itself is pushed forward.
 */
func (c *Camera) Zoom(delta float32) {
	c.Distance -= delta * c.ZoomSpeed()
	if c.Distance < 1 {
		c.FocalPoint = c.FocalPoint.Add(c.Forward())
		c.Distance = 1
	}
}

func panFactor(viewportSize float32) float32 {
	x := min(viewportSize/1000, 2.4)
	return 0.0366*(x*x) - 0.1778*x + 0.3021
}

func (c *Camera) PanSpeed() (x, y float32) {
	return panFactor(c.ViewportWidth), panFactor(c.ViewportHeight)
}

func (c *Camera) RotationSpeed() float32 {
	return 0.8
}

func (c *Camera) ZoomSpeed() float32 {
	d := max(c.Distance*0.8, 0)
	return min(d*d, 100)
}
