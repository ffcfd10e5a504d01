package camcontroller

import (
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/camcontroller/camera"
	"github.com/WowVeryLogin/deferred_engine/src/window"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	// Sensitivity is radians of rotation per pixel of mouse movement.
	Sensitivity = 0.005
	// Speed is world units per second.
	Speed = 2.5
)

// Input is one frame of controller input.
type Input struct {
	Forward, Right, Up float32
	// DX and DY are the cursor movement in pixels since the last frame.
	DX, DY float64
}

type Controller struct {
	lastUpdateTime time.Time
	lastX, lastY   float64
}

func New(w *window.Window) *Controller {
	x, y := w.Window.GetCursorPos()
	return &Controller{
		lastUpdateTime: time.Now(),
		lastX:          x,
		lastY:          y,
	}
}

// Read samples the keyboard and cursor. Escape asks the window to close.
func (c *Controller) Read(w *window.Window) Input {
	var in Input
	key := func(k glfw.Key) bool { return w.Window.GetKey(k) == glfw.Press }
	if key(glfw.KeyW) {
		in.Forward++
	}
	if key(glfw.KeyS) {
		in.Forward--
	}
	if key(glfw.KeyD) {
		in.Right++
	}
	if key(glfw.KeyA) {
		in.Right--
	}
	if key(glfw.KeySpace) {
		in.Up++
	}
	if key(glfw.KeyLeftShift) {
		in.Up--
	}
	if key(glfw.KeyEscape) {
		w.Window.SetShouldClose(true)
	}

	x, y := w.Window.GetCursorPos()
	in.DX, in.DY = x-c.lastX, y-c.lastY
	c.lastX, c.lastY = x, y
	return in
}

// Update reads input and applies it to cam with the time since the last call.
func (c *Controller) Update(w *window.Window, cam *camera.Camera) {
	since := time.Since(c.lastUpdateTime)
	c.lastUpdateTime = time.Now()
	Apply(c.Read(w), cam, since)
}

// Apply moves and turns cam. Moving the cursor right turns right and moving
// it up looks up.
func Apply(in Input, cam *camera.Camera, since time.Duration) {
	cam.Rotate(float32(-in.DX*Sensitivity), float32(-in.DY*Sensitivity))
	step := float32(since.Seconds()) * Speed
	cam.Move(in.Forward*step, in.Right*step, in.Up*step)
}
