// Package renderer drives a deferred frame: geometry into the G-buffer, then
// ambient, directional, point, skybox and light-object passes reading it.
//
// Every public draw call is checked against Transition. A call made out of
// order drops the frame instead of submitting partial work. Swapchain loss is
// handled internally by rebuilding the targets on the next call.
package renderer

import (
	"context"
	"log/slog"
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/future"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/texture"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform positions a model in the world.
type Transform interface {
	ModelMatrix() mgl32.Mat4
	NormalMatrix() mgl32.Mat4
}

type Options struct {
	// FOV is the vertical field of view in degrees.
	FOV  float32
	Near float32
	Far  float32
	// AcquireTimeout bounds the wait for a swapchain image. Zero waits forever.
	AcquireTimeout time.Duration
	// StrictStageOrder logs out-of-order calls as warnings instead of debug.
	StrictStageOrder bool
}

func DefaultOptions() Options {
	return Options{FOV: 90, Near: 0.01, Far: 1000}
}

type frame struct {
	rec      Recorder
	acquired Acquisition
	// retired resources that this frame's commands may reference.
	retired []func()
}

type Renderer struct {
	device  Device
	options Options

	stage RenderStage
	frame *frame

	targets Targets
	vp      Binding
	view    viewState

	ambient    AmbientData
	skybox     Skybox
	lightProxy *model.Model

	previous future.Future
	releaser future.Releaser
}

func New(device Device, options Options) (*Renderer, error) {
	r := &Renderer{
		device:   device,
		options:  options,
		stage:    NeedsRedraw,
		view:     newViewState(),
		ambient:  AmbientData{Color: [3]float32{1, 1, 1}, Intensity: 0.1},
		previous: device.Now(),
	}
	if err := r.RecreateSwapchain(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) Stage() RenderStage {
	return r.stage
}

// step applies Transition for call and reports whether the call should record.
func (r *Renderer) step(call Call) bool {
	next, action := Transition(r.stage, call)
	switch action {
	case ActionRecord:
		r.stage = next
		return true
	case ActionSkip:
		r.stage = next
	case ActionAbort:
		r.abort(call)
	case ActionRebuild:
		if err := r.RecreateSwapchain(); err != nil {
			logger.Get().Error("swapchain rebuild failed", "call", call, "error", err)
		}
	}
	return false
}

func (r *Renderer) abort(call Call) {
	level := slog.LevelDebug
	if r.options.StrictStageOrder {
		level = slog.LevelWarn
	}
	logger.Get().Log(context.Background(), level, "frame aborted by out-of-order call", "call", call, "stage", r.stage)
	r.dropFrame()
	r.stage = Stopped
}

func (r *Renderer) fail(call Call, err error) {
	logger.Get().Error("frame dropped", "call", call, "error", err)
	r.dropFrame()
	r.stage = Stopped
}

func (r *Renderer) dropFrame() {
	if r.frame == nil {
		return
	}
	r.frame.rec.Discard()
	for _, fn := range r.frame.retired {
		r.releaser.After(r.previous, fn)
	}
	r.frame = nil
}

// retire releases fn once no recorded or submitted work can still use it.
func (r *Renderer) retire(fn func()) {
	if r.frame != nil {
		r.frame.retired = append(r.frame.retired, fn)
		return
	}
	r.releaser.After(r.previous, fn)
}

// Start acquires a swapchain image and opens the geometry subpass. It returns
// nil without opening a frame when the swapchain had to be rebuilt. Errors are
// fatal.
func (r *Renderer) Start() error {
	next, action := Transition(r.stage, CallStart)
	switch action {
	case ActionRebuild:
		return r.RecreateSwapchain()
	case ActionAbort:
		r.abort(CallStart)
		return nil
	}

	acquired, err := r.device.Acquire(r.targets, r.options.AcquireTimeout)
	switch {
	case errors.Is(err, ErrOutOfDate), errors.Is(err, ErrSuboptimal):
		logger.Get().Debug("swapchain needs rebuild on acquire", "reason", err)
		r.stage = NeedsRedraw
		return nil
	case errors.Is(err, ErrAcquireTimeout):
		r.stage = Stopped
		return errors.Wrapf(ErrDeviceLost, "no swapchain image within %s", r.options.AcquireTimeout)
	case err != nil:
		r.stage = Stopped
		return errors.Wrap(err, "acquire swapchain image")
	}

	rec, err := r.device.Begin(r.targets, acquired)
	if err != nil {
		r.stage = Stopped
		return errors.Wrap(err, "begin frame")
	}

	r.frame = &frame{rec: rec, acquired: acquired}
	r.stage = next
	return nil
}

// Geometry draws every uploaded mesh of m into the G-buffer. Meshes without
// complete GPU resources are skipped.
func (r *Renderer) Geometry(m *model.Model, t Transform) {
	if !r.step(CallGeometry) {
		return
	}

	push := PushConstants{Model: t.ModelMatrix(), Normals: t.NormalMatrix()}
	for _, mesh := range m.Meshes {
		if !mesh.Uploaded() {
			logger.Get().Debug("skipping mesh without gpu resources", "model", m.Path, "mesh", mesh.Name)
			continue
		}
		r.frame.rec.DrawGeometry(r.vp, mesh.GPU, push)
	}
}

// Ambient moves to the lighting subpass and adds the ambient term. Repeated
// calls in one frame are ignored.
func (r *Renderer) Ambient() {
	from := r.stage
	if !r.step(CallAmbient) {
		return
	}
	if from == Deferred {
		r.frame.rec.NextSubpass()
	}
	if err := r.frame.rec.DrawAmbient(r.ambient); err != nil {
		r.fail(CallAmbient, err)
	}
}

func (r *Renderer) Directional(light DirectionalLight) {
	if !r.step(CallDirectional) {
		return
	}
	if err := r.frame.rec.DrawDirectional(light.Data(), r.view.camera()); err != nil {
		r.fail(CallDirectional, err)
	}
}

func (r *Renderer) PointLight(light PointLight) {
	if !r.step(CallPointLight) {
		return
	}
	if err := r.frame.rec.DrawPointLight(light.Data(), r.view.camera()); err != nil {
		r.fail(CallPointLight, err)
	}
}

// Skybox fills the background where the geometry pass left depth untouched.
// Without an uploaded skybox it only advances the stage.
func (r *Renderer) Skybox() {
	if !r.step(CallSkybox) {
		return
	}
	if r.skybox == nil {
		return
	}
	if err := r.frame.rec.DrawSkybox(r.skybox, r.view.skybox()); err != nil {
		r.fail(CallSkybox, err)
	}
}

// LightObject draws the light proxy model at position in a flat color.
func (r *Renderer) LightObject(position mgl32.Vec3, color [3]float32) {
	if !r.step(CallLightObject) {
		return
	}
	if r.lightProxy == nil {
		return
	}

	push := NewPushConstants(lightProxyModel(position))
	for _, mesh := range r.lightProxy.Meshes {
		if !mesh.Uploaded() {
			continue
		}
		if err := r.frame.rec.DrawLightObject(r.vp, mesh.GPU, push, color); err != nil {
			r.fail(CallLightObject, err)
			return
		}
	}
}

// Finish submits and presents the open frame. Presentation problems mark the
// swapchain for rebuild; only a failed rebuild is returned.
func (r *Renderer) Finish() error {
	from := r.stage
	_, action := Transition(r.stage, CallFinish)
	switch action {
	case ActionRebuild:
		return r.RecreateSwapchain()
	case ActionAbort:
		r.abort(CallFinish)
		return nil
	case ActionNone:
		return nil
	}

	f := r.frame
	r.frame = nil
	r.stage = Stopped
	if from == Deferred {
		f.rec.NextSubpass()
	}

	previous := r.previous
	r.previous = nil

	submitted, err := r.device.Submit(f.rec, previous)
	if submitted != nil {
		r.previous = submitted
	} else {
		r.previous = r.device.Now()
		r.releaser.After(previous, previous.CleanupFinished)
	}
	for _, fn := range f.retired {
		r.releaser.After(r.previous, fn)
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrOutOfDate), errors.Is(err, ErrSuboptimal):
		logger.Get().Debug("swapchain needs rebuild on present", "reason", err)
		r.stage = NeedsRedraw
	default:
		logger.Get().Warn("frame submission degraded", "submitted", submitted != nil, "error", err)
		r.stage = NeedsRedraw
	}
	return nil
}

// SetView replaces the view matrix. The new view-projection uniform is used by
// draws recorded after the call.
func (r *Renderer) SetView(view mgl32.Mat4) error {
	state := r.view
	state.setView(view)
	binding, err := r.device.CreateViewProjection(state.data())
	if err != nil {
		return errors.Wrap(err, "view projection uniform")
	}

	old := r.vp
	r.vp, r.view = binding, state
	if old != nil {
		r.retire(old.Close)
	}
	return nil
}

func (r *Renderer) SetAmbient(color [3]float32, intensity float32) {
	r.ambient = AmbientData{Color: color, Intensity: intensity}
}

// RecreateSwapchain replaces the swapchain, the G-buffer, the framebuffers and
// the view-projection uniform together. Any open frame is dropped. When the
// window has no drawable area the renderer stays in NeedsRedraw and retries on
// the next call.
func (r *Renderer) RecreateSwapchain() error {
	r.dropFrame()
	r.stage = NeedsRedraw

	extent := r.device.WindowExtent()
	if extent.Empty() {
		return nil
	}

	state := r.view
	state.projection = Projection(r.options.FOV, extent.AspectRatio(), r.options.Near, r.options.Far)

	targets, err := r.device.CreateTargets(r.targets, extent)
	if errors.Is(err, ErrInvalidExtent) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "create swapchain targets")
	}

	binding, err := r.device.CreateViewProjection(state.data())
	if err != nil {
		targets.Close()
		return errors.Wrap(err, "view projection uniform")
	}

	oldTargets, oldBinding := r.targets, r.vp
	r.targets, r.vp, r.view = targets, binding, state
	if oldTargets != nil {
		r.releaser.After(r.previous, oldTargets.Close)
	}
	if oldBinding != nil {
		r.releaser.After(r.previous, oldBinding.Close)
	}

	r.stage = Stopped
	logger.Get().Info("swapchain recreated",
		"width", extent.Width,
		"height", extent.Height,
		"images", targets.ImageCount(),
	)
	return nil
}

// UploadMeshToGPU copies mesh to device memory and blocks until it is there.
// A mesh that already has GPU resources is left alone.
func (r *Renderer) UploadMeshToGPU(mesh *model.Mesh) error {
	if mesh.GPU != nil {
		return nil
	}
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return errors.Wrapf(ErrMissingBuffers, "mesh %q", mesh.Name)
	}
	if err := r.device.UploadMesh(mesh); err != nil {
		return errors.Wrapf(err, "upload mesh %q", mesh.Name)
	}
	return nil
}

func (r *Renderer) UploadModel(m *model.Model) error {
	for _, mesh := range m.Meshes {
		if err := r.UploadMeshToGPU(mesh); err != nil {
			return errors.Wrapf(err, "model %s", m.Path)
		}
	}
	return nil
}

// UploadSkybox uploads six equally sized faces, ordered +X, -X, +Y, -Y, +Z, -Z,
// as the cube drawn by Skybox.
func (r *Renderer) UploadSkybox(faces [6]*texture.TextureConfig) error {
	for i, face := range faces {
		if face == nil {
			return errors.Newf("skybox face %d is missing", i)
		}
		if face.Width != faces[0].Width || face.Height != faces[0].Height {
			return errors.Wrapf(ErrFaceMismatch, "face %d is %dx%d, face 0 is %dx%d",
				i, face.Width, face.Height, faces[0].Width, faces[0].Height)
		}
	}

	sky, err := r.device.UploadSkybox(faces)
	if err != nil {
		return errors.Wrap(err, "upload skybox")
	}
	if r.skybox != nil {
		r.retire(r.skybox.Close)
	}
	r.skybox = sky
	return nil
}

// SetLightProxy uploads m if needed and uses it for LightObject.
func (r *Renderer) SetLightProxy(m *model.Model) error {
	if err := r.UploadModel(m); err != nil {
		return err
	}
	r.lightProxy = m
	return nil
}

// CleanupFinished releases resources of frames the GPU has completed. It never
// blocks.
func (r *Renderer) CleanupFinished() {
	r.previous.CleanupFinished()
	r.releaser.Collect()
}

// Close waits for the device and releases everything the renderer owns.
// Uploaded meshes belong to their models.
func (r *Renderer) Close() error {
	r.dropFrame()
	r.stage = Stopped
	err := r.device.WaitIdle()

	r.previous.CleanupFinished()
	r.releaser.Flush()
	if r.skybox != nil {
		r.skybox.Close()
		r.skybox = nil
	}
	if r.vp != nil {
		r.vp.Close()
		r.vp = nil
	}
	if r.targets != nil {
		r.targets.Close()
		r.targets = nil
	}
	return errors.Wrap(err, "wait for device")
}
