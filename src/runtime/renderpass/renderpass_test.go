package renderpass

import (
	"testing"

	"github.com/goki/vulkan"
)

func TestAttachmentOrder(t *testing.T) {
	descs := attachments(Formats{
		Final:    vulkan.FormatB8g8r8a8Srgb,
		Color:    vulkan.FormatA2b10g10r10UnormPack32,
		Normal:   vulkan.FormatR16g16b16a16Sfloat,
		Position: vulkan.FormatR16g16b16a16Sfloat,
		Specular: vulkan.FormatR16g16Sfloat,
		Depth:    vulkan.FormatD16Unorm,
	})
	if len(descs) != AttachmentCount {
		t.Fatalf("got %d attachments", len(descs))
	}
	if descs[Final].StoreOp != vulkan.AttachmentStoreOpStore || descs[Final].FinalLayout != vulkan.ImageLayoutPresentSrc {
		t.Error("final image must be stored and presentable")
	}
	for _, i := range []int{Color, Normal, Position, Specular, Depth} {
		if descs[i].LoadOp != vulkan.AttachmentLoadOpClear || descs[i].StoreOp != vulkan.AttachmentStoreOpDontCare {
			t.Errorf("attachment %d should clear and discard", i)
		}
	}
	if descs[Depth].Format != vulkan.FormatD16Unorm || descs[Specular].Format != vulkan.FormatR16g16Sfloat {
		t.Error("formats not placed at their attachment index")
	}
}

func TestSubpasses(t *testing.T) {
	passes := subpasses()
	if len(passes) != 2 {
		t.Fatalf("got %d subpasses", len(passes))
	}

	geometry, lighting := passes[0], passes[1]
	if geometry.ColorAttachmentCount != 4 || geometry.InputAttachmentCount != 0 {
		t.Errorf("geometry subpass: %d color, %d input", geometry.ColorAttachmentCount, geometry.InputAttachmentCount)
	}
	if lighting.ColorAttachmentCount != 1 || lighting.PColorAttachments[0].Attachment != Final {
		t.Error("lighting subpass must write the final image only")
	}
	want := []uint32{Color, Normal, Position, Specular}
	for i, ref := range lighting.PInputAttachments {
		if ref.Attachment != want[i] {
			t.Errorf("input %d reads attachment %d, want %d", i, ref.Attachment, want[i])
		}
	}
}

func TestDependenciesChainSubpasses(t *testing.T) {
	deps := dependencies()
	last := deps[len(deps)-1]
	if last.SrcSubpass != 0 || last.DstSubpass != 1 {
		t.Fatalf("missing geometry to lighting dependency: %+v", last)
	}
	if last.DstAccessMask&vulkan.AccessFlags(vulkan.AccessInputAttachmentReadBit) == 0 {
		t.Error("lighting must wait for input attachment reads")
	}
}

func TestClearValues(t *testing.T) {
	if got := len(ClearValues()); got != AttachmentCount {
		t.Fatalf("got %d clear values", got)
	}
}
