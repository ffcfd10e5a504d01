package app

import (
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/assets"
	"github.com/WowVeryLogin/deferred_engine/src/camcontroller"
	"github.com/WowVeryLogin/deferred_engine/src/camcontroller/camera"
	"github.com/WowVeryLogin/deferred_engine/src/config"
	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/WowVeryLogin/deferred_engine/src/object"
	"github.com/WowVeryLogin/deferred_engine/src/physics"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/WowVeryLogin/deferred_engine/src/systems/renderer"
	"github.com/WowVeryLogin/deferred_engine/src/systems/renderer/vk"
	"github.com/WowVeryLogin/deferred_engine/src/window"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/goki/vulkan"
	"github.com/loov/hrtime"
)

const statsInterval = 5 * time.Second

type App struct {
	config config.Config

	window   *window.Window
	device   *device.Device
	backend  *vk.Backend
	renderer *renderer.Renderer
	assets   *assets.Manager

	objects    []*object.GameObject
	lights     []renderer.PointLight
	world      *physics.World
	camera     *camera.Camera
	controller *camcontroller.Controller
	stats      frameStats

	// resizeErr is set by the resize callback, which runs inside PollEvents.
	resizeErr error
}

func New(cfg config.Config) (*App, error) {
	a := &App{
		config: cfg,
		assets: assets.New(),
		world:  physics.NewWorld(cfg.PhysicsStep),
		camera: camera.New(mgl32.Vec3{0, 1, -2}),
		lights: pointLights(),
		stats:  frameStats{interval: statsInterval},
	}

	// Decode before touching the GPU so a bad path fails fast.
	models, err := a.assets.Load(cfg.Models...)
	if err != nil {
		return nil, err
	}

	if a.window, err = window.New(cfg.Width, cfg.Height, cfg.Title); err != nil {
		return nil, err
	}
	vulkan.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vulkan.Init(); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "initialize vulkan")
	}

	if a.device, err = device.New(a.window, cfg.Validation); err != nil {
		a.Close()
		return nil, err
	}
	if a.backend, err = vk.New(a.device, a.window, cfg.ShaderDir); err != nil {
		a.Close()
		return nil, err
	}
	if a.renderer, err = renderer.New(a.backend, renderer.Options{
		FOV:              cfg.FOV,
		Near:             cfg.Near,
		Far:              cfg.Far,
		AcquireTimeout:   cfg.AcquireTimeout,
		StrictStageOrder: cfg.StrictStageOrder,
	}); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.loadScene(); err != nil {
		a.Close()
		return nil, err
	}
	a.objects = placeObjects(models, a.world)
	a.controller = camcontroller.New(a.window)

	a.window.OnResize(func(width, height int) {
		logger.Get().Debug("window resized", "width", width, "height", height)
		if err := a.renderer.RecreateSwapchain(); err != nil {
			a.resizeErr = err
		}
	})
	return a, nil
}

func (a *App) loadScene() error {
	if err := a.assets.UploadAll(a.renderer); err != nil {
		return err
	}

	if a.config.LightProxy != "" {
		proxy, err := a.assets.Load(a.config.LightProxy)
		if err != nil {
			return err
		}
		if err := a.renderer.SetLightProxy(proxy[0]); err != nil {
			return err
		}
	}

	if len(a.config.Skybox) == 6 {
		faces, err := assets.LoadSkybox([6]string(a.config.Skybox))
		if err != nil {
			return err
		}
		if err := a.renderer.UploadSkybox(faces); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Run() error {
	if err := a.renderer.SetView(a.camera.View()); err != nil {
		return err
	}

	start := hrtime.Now()
	last := start
	for !a.window.ShouldClose() {
		glfw.PollEvents()
		if a.resizeErr != nil {
			return a.resizeErr
		}

		now := hrtime.Now()
		since := now - last
		last = now

		a.controller.Update(a.window, a.camera)
		a.world.Advance(since)
		for _, obj := range a.objects {
			obj.Update(since)
		}

		a.renderer.CleanupFinished()
		if err := a.frame(now - start); err != nil {
			return err
		}
		if err := a.renderer.SetView(a.camera.View()); err != nil {
			return err
		}

		if report, ok := a.stats.add(since); ok {
			logger.Get().Info("frame time",
				"frames", report.Frames,
				"average", report.Average,
				"worst", report.Worst,
			)
		}
	}
	return nil
}

func (a *App) frame(elapsed time.Duration) error {
	r := a.renderer
	if err := r.Start(); err != nil {
		return err
	}
	for _, obj := range a.objects {
		r.Geometry(obj.Model, obj)
	}
	r.Ambient()
	r.Directional(sun(elapsed))
	for _, light := range a.lights {
		r.PointLight(light)
	}
	r.Skybox()
	for _, light := range a.lights {
		r.LightObject(light.Position, light.Color)
	}
	return r.Finish()
}

func (a *App) Close() {
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			logger.Get().Error("failed to close renderer", "error", err)
		}
	}
	if a.assets != nil {
		a.assets.Close()
	}
	if a.backend != nil {
		a.backend.Close()
	}
	if a.device != nil {
		a.device.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
