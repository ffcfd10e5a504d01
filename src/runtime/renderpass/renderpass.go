// Package renderpass builds the two-subpass deferred render pass.
//
// Subpass 0 fills the G-buffer (color, normal, position, specular) and depth.
// Subpass 1 reads the G-buffer as input attachments and writes the swapchain image.
package renderpass

import (
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

// Attachment indices, also the framebuffer view order.
const (
	Final = iota
	Color
	Normal
	Position
	Specular
	Depth
	AttachmentCount
)

type Formats struct {
	Final    vulkan.Format
	Color    vulkan.Format
	Normal   vulkan.Format
	Position vulkan.Format
	Specular vulkan.Format
	Depth    vulkan.Format
}

// DefaultFormats picks the G-buffer formats for a swapchain format.
func DefaultFormats(device *device.Device, final vulkan.Format) (Formats, error) {
	depth, err := device.FindSupportedFormat([]vulkan.Format{
		vulkan.FormatD16Unorm,
		vulkan.FormatD32Sfloat,
		vulkan.FormatD24UnormS8Uint,
	}, vulkan.ImageTilingOptimal, vulkan.FormatFeatureFlags(vulkan.FormatFeatureDepthStencilAttachmentBit))
	if err != nil {
		return Formats{}, errors.Wrap(err, "depth format")
	}

	return Formats{
		Final:    final,
		Color:    vulkan.FormatA2b10g10r10UnormPack32,
		Normal:   vulkan.FormatR16g16b16a16Sfloat,
		Position: vulkan.FormatR16g16b16a16Sfloat,
		Specular: vulkan.FormatR16g16Sfloat,
		Depth:    depth,
	}, nil
}

func gbufferAttachment(format vulkan.Format) vulkan.AttachmentDescription {
	return vulkan.AttachmentDescription{
		Format:         format,
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpDontCare,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutShaderReadOnlyOptimal,
	}
}

func attachments(formats Formats) []vulkan.AttachmentDescription {
	depth := gbufferAttachment(formats.Depth)
	depth.FinalLayout = vulkan.ImageLayoutDepthStencilAttachmentOptimal

	return []vulkan.AttachmentDescription{
		Final: {
			Format:         formats.Final,
			Samples:        vulkan.SampleCount1Bit,
			LoadOp:         vulkan.AttachmentLoadOpClear,
			StoreOp:        vulkan.AttachmentStoreOpStore,
			StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
			StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
			InitialLayout:  vulkan.ImageLayoutUndefined,
			FinalLayout:    vulkan.ImageLayoutPresentSrc,
		},
		Color:    gbufferAttachment(formats.Color),
		Normal:   gbufferAttachment(formats.Normal),
		Position: gbufferAttachment(formats.Position),
		Specular: gbufferAttachment(formats.Specular),
		Depth:    depth,
	}
}

func colorRef(attachment uint32) vulkan.AttachmentReference {
	return vulkan.AttachmentReference{Attachment: attachment, Layout: vulkan.ImageLayoutColorAttachmentOptimal}
}

func inputRef(attachment uint32) vulkan.AttachmentReference {
	return vulkan.AttachmentReference{Attachment: attachment, Layout: vulkan.ImageLayoutShaderReadOnlyOptimal}
}

func subpasses() []vulkan.SubpassDescription {
	depth := &vulkan.AttachmentReference{
		Attachment: Depth,
		Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}
	geometryTargets := []vulkan.AttachmentReference{colorRef(Color), colorRef(Normal), colorRef(Position), colorRef(Specular)}
	lightingInputs := []vulkan.AttachmentReference{inputRef(Color), inputRef(Normal), inputRef(Position), inputRef(Specular)}

	return []vulkan.SubpassDescription{
		{
			PipelineBindPoint:       vulkan.PipelineBindPointGraphics,
			ColorAttachmentCount:    uint32(len(geometryTargets)),
			PColorAttachments:       geometryTargets,
			PDepthStencilAttachment: depth,
		},
		{
			PipelineBindPoint:       vulkan.PipelineBindPointGraphics,
			ColorAttachmentCount:    1,
			PColorAttachments:       []vulkan.AttachmentReference{colorRef(Final)},
			InputAttachmentCount:    uint32(len(lightingInputs)),
			PInputAttachments:       lightingInputs,
			PDepthStencilAttachment: depth,
		},
	}
}

func dependencies() []vulkan.SubpassDependency {
	return []vulkan.SubpassDependency{
		{
			SrcSubpass:    vulkan.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageLateFragmentTestsBit | vulkan.PipelineStageFragmentShaderBit),
			DstStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit | vulkan.AccessInputAttachmentReadBit),
			DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit),
		},
		{
			SrcSubpass:      0,
			DstSubpass:      1,
			SrcStageMask:    vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageLateFragmentTestsBit),
			DstStageMask:    vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit | vulkan.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask:   vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit),
			DstAccessMask:   vulkan.AccessFlags(vulkan.AccessInputAttachmentReadBit | vulkan.AccessDepthStencilAttachmentReadBit),
			DependencyFlags: vulkan.DependencyFlags(vulkan.DependencyByRegionBit),
		},
	}
}

func New(device *device.Device, formats Formats) (vulkan.RenderPass, error) {
	descs := attachments(formats)
	passes := subpasses()
	deps := dependencies()

	var renderPass vulkan.RenderPass
	if err := vulkan.Error(vulkan.CreateRenderPass(device.LogicalDevice, &vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descs)),
		PAttachments:    descs,
		SubpassCount:    uint32(len(passes)),
		PSubpasses:      passes,
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}, nil, &renderPass)); err != nil {
		return nil, errors.Wrap(err, "create render pass")
	}

	return renderPass, nil
}

// ClearValues matches the attachment order: opaque black for final and color,
// zero for the remaining G-buffer targets and depth 1.
func ClearValues() []vulkan.ClearValue {
	values := make([]vulkan.ClearValue, AttachmentCount)
	values[Final] = vulkan.NewClearValue([]float32{0, 0, 0, 1})
	values[Color] = vulkan.NewClearValue([]float32{0, 0, 0, 1})
	// A zero normal alpha marks pixels no geometry was written to.
	for _, i := range []int{Normal, Position, Specular} {
		values[i] = vulkan.NewClearValue([]float32{0, 0, 0, 0})
	}
	values[Depth] = vulkan.NewClearDepthStencil(1.0, 0)
	return values
}
