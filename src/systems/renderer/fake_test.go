package renderer

import (
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/future"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/texture"
)

type fakeFuture struct {
	id      int
	done    bool
	cleaned int
}

func (f *fakeFuture) Done() bool               { return f.done }
func (f *fakeFuture) Wait(time.Duration) error { f.done = true; return nil }
func (f *fakeFuture) CleanupFinished()         { f.cleaned++ }

type fakeTargets struct {
	extent Extent
	images int
	closed int
}

func (t *fakeTargets) Extent() Extent  { return t.extent }
func (t *fakeTargets) ImageCount() int { return t.images }
func (t *fakeTargets) Close()          { t.closed++ }

type fakeBinding struct {
	data   ViewProjectionData
	closed int
}

func (b *fakeBinding) Close() { b.closed++ }

type fakeSkybox struct {
	closed int
}

func (s *fakeSkybox) Close() { s.closed++ }

type fakeGPU struct {
	complete bool
	closed   int
}

func (g *fakeGPU) Complete() bool { return g.complete }
func (g *fakeGPU) Close()         { g.closed++ }

type fakeRecorder struct {
	index     uint32
	ops       []string
	vps       []Binding
	pushes    []PushConstants
	colors    [][3]float32
	ambient   []AmbientData
	discarded bool
	drawErr   error
}

func (r *fakeRecorder) ImageIndex() uint32 { return r.index }

func (r *fakeRecorder) DrawGeometry(vp Binding, _ model.GPUResources, push PushConstants) {
	r.ops = append(r.ops, "geometry")
	r.vps = append(r.vps, vp)
	r.pushes = append(r.pushes, push)
}

func (r *fakeRecorder) NextSubpass() { r.ops = append(r.ops, "next_subpass") }

func (r *fakeRecorder) DrawAmbient(data AmbientData) error {
	r.ops = append(r.ops, "ambient")
	r.ambient = append(r.ambient, data)
	return r.drawErr
}

func (r *fakeRecorder) DrawDirectional(DirectionalLightData, CameraData) error {
	r.ops = append(r.ops, "directional")
	return r.drawErr
}

func (r *fakeRecorder) DrawPointLight(PointLightData, CameraData) error {
	r.ops = append(r.ops, "point_light")
	return r.drawErr
}

func (r *fakeRecorder) DrawSkybox(Skybox, SkyboxData) error {
	r.ops = append(r.ops, "skybox")
	return r.drawErr
}

func (r *fakeRecorder) DrawLightObject(vp Binding, _ model.GPUResources, push PushConstants, color [3]float32) error {
	r.ops = append(r.ops, "light_object")
	r.vps = append(r.vps, vp)
	r.pushes = append(r.pushes, push)
	r.colors = append(r.colors, color)
	return r.drawErr
}

func (r *fakeRecorder) Discard() { r.discarded = true }

type submission struct {
	rec      *fakeRecorder
	previous future.Future
	result   *fakeFuture
}

// fakeDevice records every call the renderer makes. acquireErr, submitErr and
// bindingErr apply to the next matching call only; targetsErr stays until cleared.
type fakeDevice struct {
	extent Extent

	acquireErr   error
	submitErr    error
	rejectSubmit bool
	targetsErr   error
	bindingErr   error
	drawErr      error
	futuresDone  bool

	targets   []*fakeTargets
	prevs     []Targets
	bindings  []*fakeBinding
	recorders []*fakeRecorder
	submits   []submission
	acquires  int
	presents  int
	waitIdle  int
	uploads   []*model.Mesh
	skyboxes  []*fakeSkybox
	nextIndex uint32
	futureID  int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{extent: Extent{Width: 800, Height: 600}, futuresDone: true}
}

func (d *fakeDevice) WindowExtent() Extent { return d.extent }

func (d *fakeDevice) CreateTargets(prev Targets, extent Extent) (Targets, error) {
	if err := d.targetsErr; err != nil {
		return nil, err
	}
	t := &fakeTargets{extent: extent, images: 3}
	d.targets = append(d.targets, t)
	d.prevs = append(d.prevs, prev)
	return t, nil
}

func (d *fakeDevice) CreateViewProjection(data ViewProjectionData) (Binding, error) {
	if err := d.bindingErr; err != nil {
		d.bindingErr = nil
		return nil, err
	}
	b := &fakeBinding{data: data}
	d.bindings = append(d.bindings, b)
	return b, nil
}

func (d *fakeDevice) Acquire(Targets, time.Duration) (Acquisition, error) {
	d.acquires++
	if err := d.acquireErr; err != nil {
		d.acquireErr = nil
		return Acquisition{}, err
	}
	index := d.nextIndex
	d.nextIndex = (d.nextIndex + 1) % 3
	return Acquisition{ImageIndex: index, Ready: future.Now()}, nil
}

func (d *fakeDevice) Begin(_ Targets, acquisition Acquisition) (Recorder, error) {
	rec := &fakeRecorder{index: acquisition.ImageIndex, drawErr: d.drawErr}
	d.recorders = append(d.recorders, rec)
	return rec, nil
}

func (d *fakeDevice) Submit(rec Recorder, previous future.Future) (future.Future, error) {
	err := d.submitErr
	d.submitErr = nil
	if d.rejectSubmit {
		d.rejectSubmit = false
		return nil, err
	}

	d.futureID++
	result := &fakeFuture{id: d.futureID, done: d.futuresDone}
	d.submits = append(d.submits, submission{rec: rec.(*fakeRecorder), previous: previous, result: result})
	d.presents++
	return result, err
}

func (d *fakeDevice) Now() future.Future { return future.Now() }

func (d *fakeDevice) WaitIdle() error {
	d.waitIdle++
	return nil
}

func (d *fakeDevice) UploadMesh(mesh *model.Mesh) error {
	d.uploads = append(d.uploads, mesh)
	mesh.GPU = &fakeGPU{complete: true}
	return nil
}

func (d *fakeDevice) UploadSkybox([6]*texture.TextureConfig) (Skybox, error) {
	s := &fakeSkybox{}
	d.skyboxes = append(d.skyboxes, s)
	return s, nil
}

func (d *fakeDevice) lastTargets() *fakeTargets {
	return d.targets[len(d.targets)-1]
}

func (d *fakeDevice) lastBinding() *fakeBinding {
	return d.bindings[len(d.bindings)-1]
}

func (d *fakeDevice) lastRecorder() *fakeRecorder {
	return d.recorders[len(d.recorders)-1]
}
