package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxPitch keeps the view direction away from the up axis.
const MaxPitch = math.Pi/2 - 0.01

var up = mgl32.Vec3{0, 1, 0}

// Camera is a first-person camera. Yaw 0 and pitch 0 look down +Z.
type Camera struct {
	Position mgl32.Vec3
	yaw      float32
	pitch    float32
}

func New(position mgl32.Vec3) *Camera {
	return &Camera{Position: position}
}

func (c *Camera) Yaw() float32   { return c.yaw }
func (c *Camera) Pitch() float32 { return c.pitch }

func (c *Camera) Forward() mgl32.Vec3 {
	sy, cy := math.Sincos(float64(c.yaw))
	sp, cp := math.Sincos(float64(c.pitch))
	return mgl32.Vec3{float32(sy * cp), float32(sp), float32(cy * cp)}
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(up).Normalize()
}

// Rotate adds to yaw and pitch, in radians. Pitch is clamped to MaxPitch.
func (c *Camera) Rotate(yaw, pitch float32) {
	c.yaw = float32(math.Remainder(float64(c.yaw+yaw), 2*math.Pi))
	c.pitch = mgl32.Clamp(c.pitch+pitch, -MaxPitch, MaxPitch)
}

// Move walks along the view direction, the right vector and world up.
func (c *Camera) Move(forward, right, upward float32) {
	c.Position = c.Position.
		Add(c.Forward().Mul(forward)).
		Add(c.Right().Mul(right)).
		Add(up.Mul(upward))
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), up)
}
