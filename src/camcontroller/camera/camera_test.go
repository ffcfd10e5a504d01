package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDefaultLooksDownZ(t *testing.T) {
	c := New(mgl32.Vec3{})
	if got := c.Forward(); !got.ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, 1e-6) {
		t.Fatalf("forward = %v", got)
	}
	if got := c.Right(); !got.ApproxEqualThreshold(mgl32.Vec3{-1, 0, 0}, 1e-6) {
		t.Fatalf("right = %v", got)
	}
}

func TestPitchClamped(t *testing.T) {
	c := New(mgl32.Vec3{})
	c.Rotate(0, 10)
	if c.Pitch() != MaxPitch {
		t.Fatalf("pitch = %v, want %v", c.Pitch(), MaxPitch)
	}
	c.Rotate(0, -20)
	if c.Pitch() != -MaxPitch {
		t.Fatalf("pitch = %v, want %v", c.Pitch(), -MaxPitch)
	}
}

func TestYawWraps(t *testing.T) {
	c := New(mgl32.Vec3{})
	c.Rotate(3*math.Pi, 0)
	if math.Abs(float64(c.Yaw())) > math.Pi+1e-5 {
		t.Fatalf("yaw = %v not wrapped", c.Yaw())
	}
}

func TestMoveFollowsYaw(t *testing.T) {
	c := New(mgl32.Vec3{1, 0, 0})
	c.Rotate(math.Pi/2, 0)
	c.Move(2, 0, 1)
	want := mgl32.Vec3{3, 1, 0}
	if !c.Position.ApproxEqualThreshold(want, 1e-5) {
		t.Fatalf("position = %v, want %v", c.Position, want)
	}
}

func TestViewPutsTargetInFront(t *testing.T) {
	c := New(mgl32.Vec3{0, 0, -5})
	target := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	// Right-handed view space looks down -Z.
	if target.Z() >= 0 || math.Abs(float64(target.Z()+5)) > 1e-5 {
		t.Fatalf("origin in view space = %v", target)
	}
}
