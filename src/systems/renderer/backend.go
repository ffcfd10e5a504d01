package renderer

import (
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/future"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/texture"
	"github.com/cockroachdb/errors"
)

var (
	// ErrOutOfDate and ErrSuboptimal mean the swapchain no longer matches the surface.
	ErrOutOfDate  = errors.New("swapchain out of date")
	ErrSuboptimal = errors.New("swapchain suboptimal")
	// ErrInvalidExtent is returned by CreateTargets when the surface cannot
	// currently hold a swapchain, for example while minimized.
	ErrInvalidExtent = errors.New("invalid swapchain extent")
	// ErrAcquireTimeout is returned by Acquire when no image became available in time.
	ErrAcquireTimeout = errors.New("acquire timed out")
	ErrDeviceLost     = errors.New("device lost")
	ErrFaceMismatch   = texture.ErrFaceMismatch
	ErrMissingBuffers = errors.New("mesh has no vertices or indices")
)

type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) AspectRatio() float32 {
	if e.Height == 0 {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

// Targets is the swapchain together with the G-buffer and the framebuffers
// built for it. It is replaced as a whole.
type Targets interface {
	Extent() Extent
	ImageCount() int
	Close()
}

// Binding is a view-projection uniform with the descriptor set that reads it.
type Binding interface {
	Close()
}

type Skybox interface {
	Close()
}

// Acquisition is a swapchain image handed out by Acquire. Ready completes when
// the presentation engine released the image.
type Acquisition struct {
	ImageIndex uint32
	Ready      future.Future
}

// Device is the GPU side of the renderer.
type Device interface {
	WindowExtent() Extent
	// CreateTargets builds a new bundle for extent, retiring prev's swapchain.
	// prev stays valid and is closed by the caller.
	CreateTargets(prev Targets, extent Extent) (Targets, error)
	CreateViewProjection(data ViewProjectionData) (Binding, error)

	// Acquire returns ErrOutOfDate or ErrSuboptimal without an acquisition,
	// having already drained any image it got.
	Acquire(targets Targets, timeout time.Duration) (Acquisition, error)
	// Begin starts the render pass for an acquired image.
	Begin(targets Targets, acquisition Acquisition) (Recorder, error)
	// Submit ends the pass, submits behind previous and presents. The returned
	// future is nil when the queue did not accept the work.
	Submit(rec Recorder, previous future.Future) (future.Future, error)
	Now() future.Future
	WaitIdle() error

	UploadMesh(mesh *model.Mesh) error
	UploadSkybox(faces [6]*texture.TextureConfig) (Skybox, error)
}

// Recorder records one frame. Lighting draws come after NextSubpass.
type Recorder interface {
	ImageIndex() uint32
	DrawGeometry(vp Binding, mesh model.GPUResources, push PushConstants)
	NextSubpass()
	DrawAmbient(data AmbientData) error
	DrawDirectional(light DirectionalLightData, camera CameraData) error
	DrawPointLight(light PointLightData, camera CameraData) error
	DrawSkybox(sky Skybox, data SkyboxData) error
	DrawLightObject(vp Binding, mesh model.GPUResources, push PushConstants, color [3]float32) error
	// Discard drops the recorded commands and drains the acquisition so the
	// image returns to the swapchain.
	Discard()
}
