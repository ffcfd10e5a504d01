package vk

import (
	"unsafe"

	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/buffer"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/future"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/renderpass"
	"github.com/WowVeryLogin/deferred_engine/src/systems/renderer"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

// colorData is the light object uniform.
type colorData struct {
	Color [3]float32
	_     float32
}

type recorder struct {
	backend    *Backend
	targets    *targets
	ctx        *frameContext
	imageIndex uint32
	acquired   future.Future
	subpass    int
	ended      bool
}

var _ renderer.Recorder = (*recorder)(nil)

func (r *recorder) ImageIndex() uint32 {
	return r.imageIndex
}

func (r *recorder) begin() error {
	cb := r.ctx.cb
	if err := device.Check(vulkan.ResetCommandBuffer(cb, 0), "reset frame command buffer"); err != nil {
		return err
	}
	if err := device.Check(vulkan.BeginCommandBuffer(cb, &vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	}), "begin frame command buffer"); err != nil {
		return err
	}

	extent := r.targets.swapchain.Extent
	clear := renderpass.ClearValues()
	vulkan.CmdBeginRenderPass(cb, &vulkan.RenderPassBeginInfo{
		SType:       vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.backend.renderPass,
		Framebuffer: r.targets.gbuffer.Framebuffers[r.imageIndex],
		RenderArea: vulkan.Rect2D{
			Offset: vulkan.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}, vulkan.SubpassContentsInline)

	vulkan.CmdSetViewport(cb, 0, 1, []vulkan.Viewport{
		{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		},
	})
	vulkan.CmdSetScissor(cb, 0, 1, []vulkan.Rect2D{
		{
			Offset: vulkan.Offset2D{},
			Extent: extent,
		},
	})

	r.subpass = 0
	r.ended = false
	return nil
}

func (r *recorder) end() error {
	if r.ended {
		return errors.New("frame already ended")
	}
	r.ended = true
	r.NextSubpass()
	vulkan.CmdEndRenderPass(r.ctx.cb)
	return device.Check(vulkan.EndCommandBuffer(r.ctx.cb), "end frame command buffer")
}

func (r *recorder) push(layout vulkan.PipelineLayout, push renderer.PushConstants) {
	vulkan.CmdPushConstants(
		r.ctx.cb,
		layout,
		vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
		0,
		uint32(unsafe.Sizeof(renderer.PushConstants{})),
		unsafe.Pointer(&push),
	)
}

func (r *recorder) bind(pipeline vulkan.Pipeline, layout vulkan.PipelineLayout, sets ...vulkan.DescriptorSet) {
	vulkan.CmdBindPipeline(r.ctx.cb, vulkan.PipelineBindPointGraphics, pipeline)
	vulkan.CmdBindDescriptorSets(r.ctx.cb, vulkan.PipelineBindPointGraphics, layout, 0, uint32(len(sets)), sets, 0, nil)
}

// frameUniform creates a uniform that lives until the frame retires.
func frameUniform[T any](r *recorder, value T) (vulkan.Buffer, error) {
	buf, err := buffer.NewUniform(r.backend.device, value)
	if err != nil {
		return nil, err
	}
	r.ctx.track(buf)
	return buf.Buffer, nil
}

func (r *recorder) DrawGeometry(vp renderer.Binding, mesh model.GPUResources, push renderer.PushConstants) {
	v := vp.(*viewProjection)
	m, ok := mesh.(*meshGPU)
	if !ok || !m.Complete() {
		return
	}
	p := r.backend.pipelines
	r.bind(p.geometry, p.geometryLayout, v.set, m.set)
	r.push(p.geometryLayout, push)
	m.draw(r.ctx.cb)
}

func (r *recorder) NextSubpass() {
	if r.subpass > 0 {
		return
	}
	vulkan.CmdNextSubpass(r.ctx.cb, vulkan.SubpassContentsInline)
	r.subpass = 1
}

func (r *recorder) fullScreen() {
	vulkan.CmdDraw(r.ctx.cb, 6, 1, 0, 0)
}

func (r *recorder) DrawAmbient(data renderer.AmbientData) error {
	buf, err := frameUniform(r, data)
	if err != nil {
		return err
	}
	set, err := r.ctx.pool.Allocate(r.backend.sets.uniform, fill(uniformSet, uniform(buf)))
	if err != nil {
		return err
	}
	p := r.backend.pipelines
	r.bind(p.ambient, p.ambientLayout, r.targets.inputs, set)
	r.fullScreen()
	return nil
}

func (r *recorder) drawLight(pipeline vulkan.Pipeline, light vulkan.Buffer, camera renderer.CameraData) error {
	cam, err := frameUniform(r, camera)
	if err != nil {
		return err
	}
	set, err := r.ctx.pool.Allocate(r.backend.sets.light, fill(lightSet, uniform(light), uniform(cam)))
	if err != nil {
		return err
	}
	r.bind(pipeline, r.backend.pipelines.lightingLayout, r.targets.inputs, set)
	r.fullScreen()
	return nil
}

func (r *recorder) DrawDirectional(light renderer.DirectionalLightData, camera renderer.CameraData) error {
	buf, err := frameUniform(r, light)
	if err != nil {
		return err
	}
	return r.drawLight(r.backend.pipelines.directional, buf, camera)
}

func (r *recorder) DrawPointLight(light renderer.PointLightData, camera renderer.CameraData) error {
	buf, err := frameUniform(r, light)
	if err != nil {
		return err
	}
	return r.drawLight(r.backend.pipelines.point, buf, camera)
}

func (r *recorder) DrawSkybox(sky renderer.Skybox, data renderer.SkyboxData) error {
	s := sky.(*skybox)
	buf, err := frameUniform(r, data)
	if err != nil {
		return err
	}
	set, err := r.ctx.pool.Allocate(r.backend.sets.skybox, fill(skyboxSet, uniform(buf), sampled(s.texture.ImageView, r.backend.sampler)))
	if err != nil {
		return err
	}
	p := r.backend.pipelines
	r.bind(p.skybox, p.skyboxLayout, set)
	r.fullScreen()
	return nil
}

func (r *recorder) DrawLightObject(vp renderer.Binding, mesh model.GPUResources, push renderer.PushConstants, color [3]float32) error {
	v := vp.(*viewProjection)
	m, ok := mesh.(*meshGPU)
	if !ok || !m.Complete() {
		return nil
	}
	buf, err := frameUniform(r, colorData{Color: color})
	if err != nil {
		return err
	}
	set, err := r.ctx.pool.Allocate(r.backend.sets.uniform, fill(uniformSet, uniform(buf)))
	if err != nil {
		return err
	}
	p := r.backend.pipelines
	r.bind(p.lightObject, p.objectLayout, v.set, set)
	r.push(p.objectLayout, push)
	m.draw(r.ctx.cb)
	return nil
}

// Discard throws away what was recorded and presents a cleared image instead,
// so the acquired image goes back to the swapchain.
func (r *recorder) Discard() {
	if r.ended {
		return
	}
	b := r.backend
	err := r.begin()
	if err == nil {
		err = r.end()
	}
	if err == nil {
		err = b.submit(r.ctx)
	}
	if err != nil {
		logger.Get().Debug("discarded frame could not be submitted", "error", err)
		r.ended = true
		if derr := b.drain(r.ctx); derr != nil {
			logger.Get().Warn("failed to drain acquisition", "error", derr)
		}
		return
	}

	b.frames.submitted(r.ctx)
	if err := r.targets.swapchain.Present(r.ctx.renderFinished, r.imageIndex); err != nil {
		logger.Get().Debug("discarded frame present failed", "error", err)
	}
}
