package pipeline

import (
	"testing"

	"github.com/goki/vulkan"
)

func TestCreateInfoGeometry(t *testing.T) {
	info := createInfo(PipelineConfig{
		Subpass:          0,
		ColorAttachments: 4,
		Depth:            DepthWrite,
		Cull:             vulkan.CullModeBackBit,
	})

	if info.PColorBlendState.AttachmentCount != 4 || len(info.PColorBlendState.PAttachments) != 4 {
		t.Fatalf("geometry pass writes 4 G-buffer targets, got %d", info.PColorBlendState.AttachmentCount)
	}
	if info.PColorBlendState.PAttachments[0].BlendEnable == vulkan.True {
		t.Error("geometry pass must not blend")
	}
	ds := info.PDepthStencilState
	if ds.DepthTestEnable != vulkan.True || ds.DepthWriteEnable != vulkan.True || ds.DepthCompareOp != vulkan.CompareOpLess {
		t.Errorf("unexpected depth state %+v", ds)
	}
	if info.PRasterizationState.CullMode != vulkan.CullModeFlags(vulkan.CullModeBackBit) {
		t.Error("expected back-face culling")
	}
}

func TestCreateInfoLighting(t *testing.T) {
	info := createInfo(PipelineConfig{Subpass: 1, Blend: BlendAdditive})

	if info.Subpass != 1 {
		t.Errorf("subpass = %d", info.Subpass)
	}
	if info.PColorBlendState.AttachmentCount != 1 {
		t.Errorf("lighting writes only the final image, got %d", info.PColorBlendState.AttachmentCount)
	}
	blend := info.PColorBlendState.PAttachments[0]
	if blend.BlendEnable != vulkan.True ||
		blend.SrcColorBlendFactor != vulkan.BlendFactorOne ||
		blend.DstColorBlendFactor != vulkan.BlendFactorOne ||
		blend.ColorBlendOp != vulkan.BlendOpAdd ||
		blend.AlphaBlendOp != vulkan.BlendOpMax {
		t.Errorf("unexpected blend %+v", blend)
	}
	if info.PDepthStencilState.DepthTestEnable == vulkan.True {
		t.Error("lighting must not depth test")
	}
	if info.PVertexInputState.VertexBindingDescriptionCount != 0 {
		t.Error("full-screen pass takes no vertex input")
	}
}

func TestCreateInfoSkyboxDepth(t *testing.T) {
	ds := createInfo(PipelineConfig{Depth: DepthReadLessOrEqual}).PDepthStencilState
	if ds.DepthTestEnable != vulkan.True || ds.DepthWriteEnable == vulkan.True || ds.DepthCompareOp != vulkan.CompareOpLessOrEqual {
		t.Errorf("unexpected depth state %+v", ds)
	}
}
