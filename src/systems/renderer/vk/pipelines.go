package vk

import (
	"path/filepath"
	"unsafe"

	"github.com/WowVeryLogin/deferred_engine/src/object/model"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/descriptors"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/pipeline"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/shader"
	"github.com/WowVeryLogin/deferred_engine/src/systems/renderer"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

var (
	fragment       = vulkan.ShaderStageFlags(vulkan.ShaderStageFragmentBit)
	vertexFragment = vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit | vulkan.ShaderStageFragmentBit)

	viewProjectionSet = []descriptors.Descriptor{
		{Type: vulkan.DescriptorTypeUniformBuffer, Flags: vertexFragment},
	}
	materialSet = []descriptors.Descriptor{
		{Type: vulkan.DescriptorTypeUniformBuffer, Flags: fragment},
		{Type: vulkan.DescriptorTypeCombinedImageSampler, Flags: fragment},
	}
	gbufferSet = []descriptors.Descriptor{
		{Type: vulkan.DescriptorTypeInputAttachment, Flags: fragment},
		{Type: vulkan.DescriptorTypeInputAttachment, Flags: fragment},
		{Type: vulkan.DescriptorTypeInputAttachment, Flags: fragment},
		{Type: vulkan.DescriptorTypeInputAttachment, Flags: fragment},
	}
	// uniformSet is a single fragment uniform: ambient light or light object color.
	uniformSet = []descriptors.Descriptor{
		{Type: vulkan.DescriptorTypeUniformBuffer, Flags: fragment},
	}
	// lightSet is the light uniform followed by the camera uniform.
	lightSet = []descriptors.Descriptor{
		{Type: vulkan.DescriptorTypeUniformBuffer, Flags: fragment},
		{Type: vulkan.DescriptorTypeUniformBuffer, Flags: fragment},
	}
	skyboxSet = []descriptors.Descriptor{
		{Type: vulkan.DescriptorTypeUniformBuffer, Flags: vertexFragment},
		{Type: vulkan.DescriptorTypeCombinedImageSampler, Flags: fragment},
	}
)

// fill copies a descriptor template and points each binding at a resource.
func fill(template []descriptors.Descriptor, resources ...func(*descriptors.Descriptor)) []descriptors.Descriptor {
	out := make([]descriptors.Descriptor, len(template))
	copy(out, template)
	for i, set := range resources {
		set(&out[i])
	}
	return out
}

func uniform(buffer vulkan.Buffer) func(*descriptors.Descriptor) {
	return func(d *descriptors.Descriptor) { d.Buffer = buffer }
}

func sampled(view vulkan.ImageView, sampler vulkan.Sampler) func(*descriptors.Descriptor) {
	return func(d *descriptors.Descriptor) {
		d.ImageView = view
		d.ImageSampler = sampler
	}
}

func input(view vulkan.ImageView) func(*descriptors.Descriptor) {
	return func(d *descriptors.Descriptor) { d.ImageView = view }
}

type setLayouts struct {
	viewProjection vulkan.DescriptorSetLayout
	material       vulkan.DescriptorSetLayout
	gbuffer        vulkan.DescriptorSetLayout
	uniform        vulkan.DescriptorSetLayout
	light          vulkan.DescriptorSetLayout
	skybox         vulkan.DescriptorSetLayout
}

func (l *setLayouts) all() []*vulkan.DescriptorSetLayout {
	return []*vulkan.DescriptorSetLayout{&l.viewProjection, &l.material, &l.gbuffer, &l.uniform, &l.light, &l.skybox}
}

// newSetLayouts creates the descriptor set layouts. They do not depend on the
// render pass, so uploads can allocate sets before any swapchain exists.
func newSetLayouts(dev *device.Device) (*setLayouts, error) {
	l := &setLayouts{}
	templates := [][]descriptors.Descriptor{viewProjectionSet, materialSet, gbufferSet, uniformSet, lightSet, skyboxSet}
	for i, dst := range l.all() {
		layout, err := descriptors.NewLayout(dev, templates[i])
		if err != nil {
			l.close(dev)
			return nil, err
		}
		*dst = layout
	}
	return l, nil
}

func (l *setLayouts) close(dev *device.Device) {
	for _, layout := range l.all() {
		if *layout != nil {
			vulkan.DestroyDescriptorSetLayout(dev.LogicalDevice, *layout, nil)
			*layout = nil
		}
	}
}

// pipelines holds the six pipelines of the deferred pass and their layouts.
// The set layouts belong to the backend.
type pipelines struct {
	device  *device.Device
	sets    *setLayouts
	shaders []vulkan.ShaderModule

	geometryLayout vulkan.PipelineLayout
	ambientLayout  vulkan.PipelineLayout
	lightingLayout vulkan.PipelineLayout
	skyboxLayout   vulkan.PipelineLayout
	objectLayout   vulkan.PipelineLayout

	geometry    vulkan.Pipeline
	ambient     vulkan.Pipeline
	directional vulkan.Pipeline
	point       vulkan.Pipeline
	skybox      vulkan.Pipeline
	lightObject vulkan.Pipeline
}

var pushRange = []vulkan.PushConstantRange{
	{
		StageFlags: vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(renderer.PushConstants{})),
	},
}

func newPipelines(dev *device.Device, sets *setLayouts, renderPass vulkan.RenderPass, shaderDir string) (*pipelines, error) {
	p := &pipelines{device: dev, sets: sets}
	if err := p.build(renderPass, shaderDir); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *pipelines) shader(dir, name string) (vulkan.ShaderModule, error) {
	module, err := shader.CreateShaderModule(filepath.Join(dir, name), p.device.LogicalDevice)
	if err != nil {
		return nil, err
	}
	p.shaders = append(p.shaders, module)
	return module, nil
}

func (p *pipelines) build(renderPass vulkan.RenderPass, shaderDir string) error {
	layouts := []struct {
		dst  *vulkan.PipelineLayout
		sets []vulkan.DescriptorSetLayout
		push []vulkan.PushConstantRange
	}{
		{&p.geometryLayout, []vulkan.DescriptorSetLayout{p.sets.viewProjection, p.sets.material}, pushRange},
		{&p.ambientLayout, []vulkan.DescriptorSetLayout{p.sets.gbuffer, p.sets.uniform}, nil},
		{&p.lightingLayout, []vulkan.DescriptorSetLayout{p.sets.gbuffer, p.sets.light}, nil},
		{&p.skyboxLayout, []vulkan.DescriptorSetLayout{p.sets.skybox}, nil},
		{&p.objectLayout, []vulkan.DescriptorSetLayout{p.sets.viewProjection, p.sets.uniform}, pushRange},
	}
	for _, l := range layouts {
		layout, err := pipeline.NewLayout(p.device, l.sets, l.push)
		if err != nil {
			return err
		}
		*l.dst = layout
	}

	type stage struct {
		name   string
		config pipeline.PipelineConfig
		dst    *vulkan.Pipeline
	}
	fullScreen := func(layout vulkan.PipelineLayout, blend pipeline.Blend, depth pipeline.Depth) pipeline.PipelineConfig {
		return pipeline.PipelineConfig{
			Layout:           layout,
			RenderPass:       renderPass,
			Subpass:          1,
			ColorAttachments: 1,
			Blend:            blend,
			Depth:            depth,
			Cull:             vulkan.CullModeNone,
		}
	}
	stages := []stage{
		{"geometry", pipeline.PipelineConfig{
			Layout:           p.geometryLayout,
			RenderPass:       renderPass,
			Subpass:          0,
			VertexBindings:   model.VertexBindingDescription,
			VertexAttributes: model.VertexAttributeDescription,
			ColorAttachments: 4,
			Blend:            pipeline.BlendNone,
			Depth:            pipeline.DepthWrite,
			Cull:             vulkan.CullModeBackBit,
		}, &p.geometry},
		{"ambient", fullScreen(p.ambientLayout, pipeline.BlendAdditive, pipeline.DepthNone), &p.ambient},
		{"directional", fullScreen(p.lightingLayout, pipeline.BlendAdditive, pipeline.DepthNone), &p.directional},
		{"point", fullScreen(p.lightingLayout, pipeline.BlendAdditive, pipeline.DepthNone), &p.point},
		{"skybox", fullScreen(p.skyboxLayout, pipeline.BlendNone, pipeline.DepthReadLessOrEqual), &p.skybox},
		{"light_object", pipeline.PipelineConfig{
			Layout:           p.objectLayout,
			RenderPass:       renderPass,
			Subpass:          1,
			VertexBindings:   model.VertexBindingDescription,
			VertexAttributes: model.VertexAttributeDescription,
			ColorAttachments: 1,
			Blend:            pipeline.BlendNone,
			Depth:            pipeline.DepthWrite,
			Cull:             vulkan.CullModeBackBit,
		}, &p.lightObject},
	}

	configs := make([]pipeline.PipelineConfig, len(stages))
	for i, s := range stages {
		vert, err := p.shader(shaderDir, s.name+".vert.spv")
		if err != nil {
			return err
		}
		frag, err := p.shader(shaderDir, s.name+".frag.spv")
		if err != nil {
			return err
		}
		configs[i] = s.config
		configs[i].VertShader = vert
		configs[i].FragShader = frag
	}

	built, err := pipeline.New(p.device, configs)
	if err != nil {
		return errors.Wrap(err, "deferred pipelines")
	}
	for i, s := range stages {
		*s.dst = built[i]
	}
	return nil
}

func (p *pipelines) Close() {
	dev := p.device.LogicalDevice
	for _, pl := range []vulkan.Pipeline{p.geometry, p.ambient, p.directional, p.point, p.skybox, p.lightObject} {
		if pl != nil {
			vulkan.DestroyPipeline(dev, pl, nil)
		}
	}
	for _, layout := range []vulkan.PipelineLayout{p.geometryLayout, p.ambientLayout, p.lightingLayout, p.skyboxLayout, p.objectLayout} {
		if layout != nil {
			vulkan.DestroyPipelineLayout(dev, layout, nil)
		}
	}
	for _, module := range p.shaders {
		vulkan.DestroyShaderModule(dev, module, nil)
	}
	p.shaders = nil
}
