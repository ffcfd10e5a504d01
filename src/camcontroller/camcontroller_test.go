package camcontroller

import (
	"testing"
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/camcontroller/camera"
	"github.com/go-gl/mathgl/mgl32"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		since time.Duration
		check func(t *testing.T, c *camera.Camera)
	}{
		{
			name:  "forward for one second",
			in:    Input{Forward: 1},
			since: time.Second,
			check: func(t *testing.T, c *camera.Camera) {
				if !c.Position.ApproxEqualThreshold(mgl32.Vec3{0, 0, Speed}, 1e-5) {
					t.Errorf("position = %v", c.Position)
				}
			},
		},
		{
			name: "cursor right turns right",
			in:   Input{DX: 100},
			check: func(t *testing.T, c *camera.Camera) {
				if c.Yaw() >= 0 {
					t.Errorf("yaw = %v, want negative", c.Yaw())
				}
				if c.Forward().X() >= 0 {
					t.Errorf("forward = %v, want towards -X", c.Forward())
				}
			},
		},
		{
			name: "cursor up looks up",
			in:   Input{DY: -10},
			check: func(t *testing.T, c *camera.Camera) {
				want := float32(10 * Sensitivity)
				if diff := c.Pitch() - want; diff > 1e-6 || diff < -1e-6 {
					t.Errorf("pitch = %v, want %v", c.Pitch(), want)
				}
			},
		},
		{
			name:  "no time no movement",
			in:    Input{Forward: 1, Right: 1, Up: 1},
			since: 0,
			check: func(t *testing.T, c *camera.Camera) {
				if c.Position != (mgl32.Vec3{}) {
					t.Errorf("position = %v", c.Position)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := camera.New(mgl32.Vec3{})
			Apply(tt.in, c, tt.since)
			tt.check(t, c)
		})
	}
}
