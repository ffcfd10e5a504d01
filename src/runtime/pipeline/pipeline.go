package pipeline

import (
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

func NewLayout(
	device *device.Device,
	descriptorsLayout []vulkan.DescriptorSetLayout,
	constRanges []vulkan.PushConstantRange,
) (vulkan.PipelineLayout, error) {
	var layout vulkan.PipelineLayout
	if err := vulkan.Error(vulkan.CreatePipelineLayout(device.LogicalDevice, &vulkan.PipelineLayoutCreateInfo{
		SType:                  vulkan.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: uint32(len(constRanges)),
		PPushConstantRanges:    constRanges,
		SetLayoutCount:         uint32(len(descriptorsLayout)),
		PSetLayouts:            descriptorsLayout,
	}, nil, &layout)); err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}

	return layout, nil
}

type Blend int

const (
	// BlendNone overwrites the attachment.
	BlendNone Blend = iota
	// BlendAdditive accumulates light: color One+One, alpha Max.
	BlendAdditive
)

type Depth int

const (
	DepthNone Depth = iota
	// DepthWrite tests Less and writes.
	DepthWrite
	// DepthReadLessOrEqual tests LessOrEqual without writing.
	DepthReadLessOrEqual
)

type PipelineConfig struct {
	Layout     vulkan.PipelineLayout
	RenderPass vulkan.RenderPass
	Subpass    uint32
	VertShader vulkan.ShaderModule
	FragShader vulkan.ShaderModule

	// VertexBindings and VertexAttributes are empty for full-screen passes that
	// generate their vertices in the shader.
	VertexBindings   []vulkan.VertexInputBindingDescription
	VertexAttributes []vulkan.VertexInputAttributeDescription

	ColorAttachments int
	Blend            Blend
	Depth            Depth
	Cull             vulkan.CullModeFlagBits
}

func colorBlend(blend Blend) vulkan.PipelineColorBlendAttachmentState {
	state := vulkan.PipelineColorBlendAttachmentState{
		ColorWriteMask:      vulkan.ColorComponentFlags(vulkan.ColorComponentRBit | vulkan.ColorComponentGBit | vulkan.ColorComponentBBit | vulkan.ColorComponentABit),
		SrcColorBlendFactor: vulkan.BlendFactorOne,
		DstColorBlendFactor: vulkan.BlendFactorZero,
		ColorBlendOp:        vulkan.BlendOpAdd,
		SrcAlphaBlendFactor: vulkan.BlendFactorOne,
		DstAlphaBlendFactor: vulkan.BlendFactorZero,
		AlphaBlendOp:        vulkan.BlendOpAdd,
	}
	if blend == BlendAdditive {
		state.BlendEnable = vulkan.True
		state.DstColorBlendFactor = vulkan.BlendFactorOne
		state.DstAlphaBlendFactor = vulkan.BlendFactorOne
		state.AlphaBlendOp = vulkan.BlendOpMax
	}
	return state
}

func depthStencil(depth Depth) *vulkan.PipelineDepthStencilStateCreateInfo {
	state := &vulkan.PipelineDepthStencilStateCreateInfo{
		SType:          vulkan.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthCompareOp: vulkan.CompareOpLess,
		MinDepthBounds: 0,
		MaxDepthBounds: 1,
	}
	switch depth {
	case DepthWrite:
		state.DepthTestEnable = vulkan.True
		state.DepthWriteEnable = vulkan.True
	case DepthReadLessOrEqual:
		state.DepthTestEnable = vulkan.True
		state.DepthCompareOp = vulkan.CompareOpLessOrEqual
	}
	return state
}

func createInfo(config PipelineConfig) vulkan.GraphicsPipelineCreateInfo {
	attachments := max(config.ColorAttachments, 1)
	blends := make([]vulkan.PipelineColorBlendAttachmentState, attachments)
	for i := range blends {
		blends[i] = colorBlend(config.Blend)
	}

	return vulkan.GraphicsPipelineCreateInfo{
		SType:      vulkan.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vulkan.PipelineShaderStageCreateInfo{
			{
				SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vulkan.ShaderStageVertexBit,
				Module: config.VertShader,
				PName:  "main\x00",
			},
			{
				SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vulkan.ShaderStageFragmentBit,
				Module: config.FragShader,
				PName:  "main\x00",
			},
		},
		PVertexInputState: &vulkan.PipelineVertexInputStateCreateInfo{
			SType:                           vulkan.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(config.VertexBindings)),
			PVertexBindingDescriptions:      config.VertexBindings,
			VertexAttributeDescriptionCount: uint32(len(config.VertexAttributes)),
			PVertexAttributeDescriptions:    config.VertexAttributes,
		},
		PInputAssemblyState: &vulkan.PipelineInputAssemblyStateCreateInfo{
			SType:                  vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               vulkan.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: vulkan.False,
		},
		PViewportState: &vulkan.PipelineViewportStateCreateInfo{
			SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vulkan.PipelineRasterizationStateCreateInfo{
			SType:       vulkan.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vulkan.PolygonModeFill,
			LineWidth:   1.0,
			CullMode:    vulkan.CullModeFlags(config.Cull),
			FrontFace:   vulkan.FrontFaceCounterClockwise,
		},
		PMultisampleState: &vulkan.PipelineMultisampleStateCreateInfo{
			SType:                vulkan.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vulkan.SampleCount1Bit,
			MinSampleShading:     1.0,
		},
		PColorBlendState: &vulkan.PipelineColorBlendStateCreateInfo{
			SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
			LogicOp:         vulkan.LogicOpCopy,
			AttachmentCount: uint32(attachments),
			PAttachments:    blends,
		},
		PDepthStencilState: depthStencil(config.Depth),
		PDynamicState: &vulkan.PipelineDynamicStateCreateInfo{
			SType:             vulkan.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vulkan.DynamicState{
				vulkan.DynamicStateViewport,
				vulkan.DynamicStateScissor,
			},
		},
		Layout:             config.Layout,
		RenderPass:         config.RenderPass,
		Subpass:            config.Subpass,
		BasePipelineIndex:  -1,
		BasePipelineHandle: vulkan.NullPipeline,
	}
}

// New builds all configs in one call. Viewport and scissor are dynamic, so the
// pipelines survive swapchain recreation.
func New(device *device.Device, configs []PipelineConfig) ([]vulkan.Pipeline, error) {
	infos := make([]vulkan.GraphicsPipelineCreateInfo, 0, len(configs))
	for _, config := range configs {
		infos = append(infos, createInfo(config))
	}

	pipelines := make([]vulkan.Pipeline, len(configs))
	if err := vulkan.Error(vulkan.CreateGraphicsPipelines(device.LogicalDevice, vulkan.NullPipelineCache, uint32(len(configs)),
		infos, nil, pipelines)); err != nil {
		return nil, errors.Wrap(err, "create graphics pipelines")
	}

	return pipelines, nil
}
