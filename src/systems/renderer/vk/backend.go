// Package vk is the Vulkan implementation of renderer.Device.
package vk

import (
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/buffer"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/descriptors"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/future"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/renderpass"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/swapchain"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/texture"
	"github.com/WowVeryLogin/deferred_engine/src/systems/renderer"
	"github.com/WowVeryLogin/deferred_engine/src/window"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

type Backend struct {
	device    *device.Device
	window    *window.Window
	shaderDir string

	sets       *setLayouts
	sampler    vulkan.Sampler
	formats    renderpass.Formats
	renderPass vulkan.RenderPass
	pipelines  *pipelines
	frames     *framePool
}

var _ renderer.Device = (*Backend)(nil)

// New prepares everything that does not depend on the swapchain. The render
// pass and pipelines are built by the first CreateTargets.
func New(dev *device.Device, w *window.Window, shaderDir string) (*Backend, error) {
	b := &Backend{
		device:    dev,
		window:    w,
		shaderDir: shaderDir,
		frames:    newFramePool(dev),
	}

	var err error
	if b.sets, err = newSetLayouts(dev); err != nil {
		return nil, err
	}
	if b.sampler, err = texture.NewSampler(dev); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// ensurePass builds the render pass and pipelines for a swapchain format,
// rebuilding them if the format changed.
func (b *Backend) ensurePass(final vulkan.Format) error {
	if b.pipelines != nil && b.formats.Final == final {
		return nil
	}
	b.closePass()

	formats, err := renderpass.DefaultFormats(b.device, final)
	if err != nil {
		return err
	}
	renderPass, err := renderpass.New(b.device, formats)
	if err != nil {
		return err
	}
	pipelines, err := newPipelines(b.device, b.sets, renderPass, b.shaderDir)
	if err != nil {
		vulkan.DestroyRenderPass(b.device.LogicalDevice, renderPass, nil)
		return err
	}

	b.formats, b.renderPass, b.pipelines = formats, renderPass, pipelines
	logger.Get().Debug("built deferred pipelines", "format", final)
	return nil
}

func (b *Backend) closePass() {
	if b.pipelines != nil {
		b.pipelines.Close()
		b.pipelines = nil
	}
	if b.renderPass != vulkan.RenderPass(vulkan.NullHandle) {
		vulkan.DestroyRenderPass(b.device.LogicalDevice, b.renderPass, nil)
		b.renderPass = vulkan.RenderPass(vulkan.NullHandle)
	}
}

func (b *Backend) WindowExtent() renderer.Extent {
	extent := b.window.Extent()
	return renderer.Extent{Width: extent.Width, Height: extent.Height}
}

// viewProjection owns the uniform and set read by the geometry and light object passes.
type viewProjection struct {
	buffer *buffer.Buffer[renderer.ViewProjectionData]
	pool   *descriptors.Pool
	set    vulkan.DescriptorSet
}

func (v *viewProjection) Close() {
	v.pool.Close()
	v.buffer.Close()
}

func (b *Backend) CreateViewProjection(data renderer.ViewProjectionData) (renderer.Binding, error) {
	buf, err := buffer.NewUniform(b.device, data)
	if err != nil {
		return nil, err
	}
	pool, err := descriptors.NewPool(b.device, 1, descriptors.PoolSizes(1, viewProjectionSet))
	if err != nil {
		buf.Close()
		return nil, err
	}
	set, err := pool.Allocate(b.sets.viewProjection, fill(viewProjectionSet, uniform(buf.Buffer)))
	if err != nil {
		pool.Close()
		buf.Close()
		return nil, err
	}
	return &viewProjection{buffer: buf, pool: pool, set: set}, nil
}

func (b *Backend) Acquire(t renderer.Targets, timeout time.Duration) (renderer.Acquisition, error) {
	tg := t.(*targets)
	ctx, err := b.frames.take()
	if err != nil {
		return renderer.Acquisition{}, err
	}

	index, err := tg.swapchain.Acquire(ctx.imageAvailable, timeout)
	switch {
	case err == nil:
		return renderer.Acquisition{ImageIndex: index, Ready: &acquired{context: ctx}}, nil
	case errors.Is(err, swapchain.ErrSuboptimal):
		// The semaphore will signal, so it has to be waited on before reuse.
		if err := b.drain(ctx); err != nil {
			return renderer.Acquisition{}, err
		}
		return renderer.Acquisition{}, renderer.ErrSuboptimal
	case errors.Is(err, swapchain.ErrOutOfDate):
		b.frames.put(ctx)
		return renderer.Acquisition{}, renderer.ErrOutOfDate
	case errors.Is(err, swapchain.ErrTimeout):
		b.frames.put(ctx)
		return renderer.Acquisition{}, errors.Mark(err, renderer.ErrAcquireTimeout)
	}
	b.frames.put(ctx)
	return renderer.Acquisition{}, deviceError(err)
}

// drain consumes ctx's image-available semaphore with an empty submission.
func (b *Backend) drain(ctx *frameContext) error {
	stage := vulkan.PipelineStageFlags(vulkan.PipelineStageAllCommandsBit)
	result := vulkan.QueueSubmit(b.device.Queue, 1, []vulkan.SubmitInfo{
		{
			SType:              vulkan.StructureTypeSubmitInfo,
			WaitSemaphoreCount: 1,
			PWaitSemaphores:    []vulkan.Semaphore{ctx.imageAvailable},
			PWaitDstStageMask:  []vulkan.PipelineStageFlags{stage},
		},
	}, ctx.fence)
	if err := device.Check(result, "drain acquired image"); err != nil {
		b.frames.put(ctx)
		return deviceError(err)
	}
	b.frames.submitted(ctx)
	return nil
}

func (b *Backend) Begin(t renderer.Targets, acquisition renderer.Acquisition) (renderer.Recorder, error) {
	tg := t.(*targets)
	acq, ok := acquisition.Ready.(*acquired)
	if !ok {
		return nil, errors.New("acquisition was not made by this backend")
	}

	r := &recorder{
		backend:    b,
		targets:    tg,
		ctx:        acq.context,
		imageIndex: acquisition.ImageIndex,
		acquired:   acq,
	}
	if err := r.begin(); err != nil {
		if derr := b.drain(r.ctx); derr != nil {
			logger.Get().Warn("failed to drain acquisition", "error", derr)
		}
		return nil, err
	}
	return r, nil
}

// Submit ends the frame, submits it behind previous and presents it. The
// returned future is nil only when the queue did not accept the work.
func (b *Backend) Submit(rec renderer.Recorder, previous future.Future) (future.Future, error) {
	r := rec.(*recorder)
	if err := r.end(); err != nil {
		if derr := b.drain(r.ctx); derr != nil {
			logger.Get().Warn("failed to drain acquisition", "error", derr)
		}
		return nil, err
	}

	if err := b.submit(r.ctx); err != nil {
		if derr := b.drain(r.ctx); derr != nil {
			logger.Get().Warn("failed to drain acquisition", "error", derr)
		}
		return nil, err
	}

	ctx := r.ctx
	release := b.frames.submitted(ctx)
	f := future.After(
		future.Join(r.acquired, previous),
		fenceSignal{device: b.device.LogicalDevice, context: ctx, generation: ctx.generation},
		release,
	)
	return f, presentError(r.targets.swapchain.Present(ctx.renderFinished, r.imageIndex))
}

func (b *Backend) submit(ctx *frameContext) error {
	result := vulkan.QueueSubmit(b.device.Queue, 1, []vulkan.SubmitInfo{
		{
			SType:                vulkan.StructureTypeSubmitInfo,
			WaitSemaphoreCount:   1,
			PWaitSemaphores:      []vulkan.Semaphore{ctx.imageAvailable},
			PWaitDstStageMask:    []vulkan.PipelineStageFlags{vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit)},
			CommandBufferCount:   1,
			PCommandBuffers:      []vulkan.CommandBuffer{ctx.cb},
			SignalSemaphoreCount: 1,
			PSignalSemaphores:    []vulkan.Semaphore{ctx.renderFinished},
		},
	}, ctx.fence)
	return deviceError(device.Check(result, "submit frame"))
}

func presentError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, swapchain.ErrOutOfDate):
		return renderer.ErrOutOfDate
	case errors.Is(err, swapchain.ErrSuboptimal):
		return renderer.ErrSuboptimal
	}
	return deviceError(err)
}

// deviceError marks err as renderer.ErrDeviceLost when Vulkan reported a lost device.
func deviceError(err error) error {
	if errors.Is(err, device.ErrDeviceLost) {
		return errors.Mark(err, renderer.ErrDeviceLost)
	}
	return err
}

func (b *Backend) Now() future.Future {
	return future.Now()
}

func (b *Backend) WaitIdle() error {
	return b.device.WaitIdle()
}

// Close destroys everything the backend created. Targets, bindings and
// uploaded meshes are closed by their owners first.
func (b *Backend) Close() {
	if err := b.device.WaitIdle(); err != nil {
		logger.Get().Warn("failed to wait for device before close", "error", err)
	}
	b.frames.Close()
	b.closePass()
	if b.sampler != vulkan.Sampler(vulkan.NullHandle) {
		vulkan.DestroySampler(b.device.LogicalDevice, b.sampler, nil)
	}
	if b.sets != nil {
		b.sets.close(b.device)
	}
}
