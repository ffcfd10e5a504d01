package descriptors

import (
	"testing"

	"github.com/goki/vulkan"
)

var lighting = []Descriptor{
	{Type: vulkan.DescriptorTypeInputAttachment},
	{Type: vulkan.DescriptorTypeInputAttachment},
	{Type: vulkan.DescriptorTypeInputAttachment},
	{Type: vulkan.DescriptorTypeInputAttachment},
	{Type: vulkan.DescriptorTypeUniformBuffer},
	{Type: vulkan.DescriptorTypeUniformBuffer},
}

func TestPoolSizes(t *testing.T) {
	skybox := []Descriptor{
		{Type: vulkan.DescriptorTypeUniformBuffer},
		{Type: vulkan.DescriptorTypeCombinedImageSampler},
	}
	sizes := PoolSizes(8, lighting, skybox)

	want := map[vulkan.DescriptorType]uint32{
		vulkan.DescriptorTypeInputAttachment:      32,
		vulkan.DescriptorTypeUniformBuffer:        24,
		vulkan.DescriptorTypeCombinedImageSampler: 8,
	}
	if len(sizes) != len(want) {
		t.Fatalf("got %d pool sizes, want %d", len(sizes), len(want))
	}
	for _, size := range sizes {
		if size.DescriptorCount != want[size.Type] {
			t.Errorf("type %v: count %d, want %d", size.Type, size.DescriptorCount, want[size.Type])
		}
	}
	if sizes[0].Type != vulkan.DescriptorTypeInputAttachment {
		t.Errorf("sizes should keep first-seen order, got %v first", sizes[0].Type)
	}
}

func TestWritesBindInOrder(t *testing.T) {
	writes := Writes(nil, lighting)
	if len(writes) != len(lighting) {
		t.Fatalf("got %d writes, want %d", len(writes), len(lighting))
	}
	for i, w := range writes {
		if w.DstBinding != uint32(i) {
			t.Errorf("write %d bound to %d", i, w.DstBinding)
		}
		isImage := w.DescriptorType == vulkan.DescriptorTypeInputAttachment
		if isImage && (len(w.PImageInfo) != 1 || w.PImageInfo[0].ImageLayout != vulkan.ImageLayoutShaderReadOnlyOptimal) {
			t.Errorf("write %d: bad image info %+v", i, w.PImageInfo)
		}
		if !isImage && len(w.PBufferInfo) != 1 {
			t.Errorf("write %d: missing buffer info", i)
		}
	}
}

func TestWritesSkipUnknownTypes(t *testing.T) {
	writes := Writes(nil, []Descriptor{
		{Type: vulkan.DescriptorTypeStorageImage},
		{Type: vulkan.DescriptorTypeUniformBuffer},
	})
	if len(writes) != 1 || writes[0].DstBinding != 1 {
		t.Fatalf("writes = %+v", writes)
	}
}
