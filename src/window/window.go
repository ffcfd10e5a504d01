package window

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/goki/vulkan"
)

type Window struct {
	Window *glfw.Window

	onResize []func(width, height int)
}

func New(width, height int, title string) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "initialize glfw")
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "create window")
	}
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	w := &Window{Window: window}
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width int, height int) {
		for _, fn := range w.onResize {
			fn(width, height)
		}
	})

	return w, nil
}

// OnResize registers fn to run from PollEvents whenever the framebuffer size changes.
func (w *Window) OnResize(fn func(width, height int)) {
	w.onResize = append(w.onResize, fn)
}

// Extent returns the current framebuffer size in pixels. It is zero while minimized.
func (w *Window) Extent() vulkan.Extent2D {
	width, height := w.Window.GetFramebufferSize()
	return vulkan.Extent2D{
		Width:  uint32(max(width, 0)),
		Height: uint32(max(height, 0)),
	}
}

func (w *Window) Close() {
	w.Window.Destroy()
	glfw.Terminate()
}

func (w *Window) ShouldClose() bool {
	return w.Window.ShouldClose()
}

func (w *Window) CreateSurface(instance vulkan.Instance) (vulkan.Surface, error) {
	surface, err := w.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vulkan.Surface(vulkan.NullHandle), errors.Wrap(err, "create window surface")
	}

	return vulkan.SurfaceFromPointer(surface), nil
}

func (w *Window) GetRequiredInstanceExtensions() []string {
	var result []string
	for _, e := range w.Window.GetRequiredInstanceExtensions() {
		result = append(result, e+"\x00")
	}

	return result
}
