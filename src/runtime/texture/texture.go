package texture

import (
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

const format = vulkan.FormatR8g8b8a8Srgb

var ErrFaceMismatch = errors.New("cube faces differ in size")

// Texture is a sampled image. Samplers are shared and live outside.
type Texture struct {
	device    *device.Device
	image     vulkan.Image
	memory    vulkan.DeviceMemory
	ImageView vulkan.ImageView
	Width     int
	Height    int
	Layers    int
}

func subresource(layers int) vulkan.ImageSubresourceRange {
	return vulkan.ImageSubresourceRange{
		AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     uint32(layers),
	}
}

func upload(dev *device.Device, batch *device.Batch, layers []*TextureConfig, flags vulkan.ImageCreateFlagBits, viewType vulkan.ImageViewType) (*Texture, error) {
	width, height := layers[0].Width, layers[0].Height
	data := make([]uint8, 0, len(layers)*len(layers[0].Data))
	for _, layer := range layers {
		if layer.Width != width || layer.Height != height {
			return nil, errors.Wrapf(ErrFaceMismatch, "%dx%d against %dx%d", layer.Width, layer.Height, width, height)
		}
		data = append(data, layer.Data...)
	}

	image, memory, err := dev.CreateImageWithInfo(vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		Flags:     vulkan.ImageCreateFlags(flags),
		ImageType: vulkan.ImageType2d,
		Format:    format,
		Extent: vulkan.Extent3D{
			Width:  uint32(width),
			Height: uint32(height),
			Depth:  1,
		},
		MipLevels:   1,
		ArrayLayers: uint32(len(layers)),
		Samples:     vulkan.SampleCount1Bit,
		Tiling:      vulkan.ImageTilingOptimal,
		Usage:       vulkan.ImageUsageFlags(vulkan.ImageUsageSampledBit | vulkan.ImageUsageTransferDstBit),
		SharingMode: vulkan.SharingModeExclusive,
	}, vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	t := &Texture{
		device: dev,
		image:  image,
		memory: memory,
		Width:  width,
		Height: height,
		Layers: len(layers),
	}

	staging, err := device.Stage(batch, data)
	if err != nil {
		t.Close()
		return nil, err
	}

	layerSize := vulkan.DeviceSize(len(layers[0].Data))
	regions := make([]vulkan.BufferImageCopy, len(layers))
	for i := range regions {
		regions[i] = vulkan.BufferImageCopy{
			BufferOffset: layerSize * vulkan.DeviceSize(i),
			ImageSubresource: vulkan.ImageSubresourceLayers{
				AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				BaseArrayLayer: uint32(i),
				LayerCount:     1,
			},
			ImageExtent: vulkan.Extent3D{
				Width:  uint32(width),
				Height: uint32(height),
				Depth:  1,
			},
		}
	}

	batch.Record(func(cb vulkan.CommandBuffer) {
		barrier := vulkan.ImageMemoryBarrier{
			SType:               vulkan.StructureTypeImageMemoryBarrier,
			OldLayout:           vulkan.ImageLayoutUndefined,
			NewLayout:           vulkan.ImageLayoutTransferDstOptimal,
			SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			Image:               image,
			SubresourceRange:    subresource(len(layers)),
			SrcAccessMask:       0,
			DstAccessMask:       vulkan.AccessFlags(vulkan.AccessTransferWriteBit),
		}
		vulkan.CmdPipelineBarrier(
			cb,
			vulkan.PipelineStageFlags(vulkan.PipelineStageTopOfPipeBit),
			vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
			0,
			0, nil,
			0, nil,
			1, []vulkan.ImageMemoryBarrier{barrier},
		)

		vulkan.CmdCopyBufferToImage(cb, staging, image, vulkan.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)

		barrier.OldLayout = vulkan.ImageLayoutTransferDstOptimal
		barrier.NewLayout = vulkan.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderReadBit)

		vulkan.CmdPipelineBarrier(
			cb,
			vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
			vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit),
			0,
			0, nil,
			0, nil,
			1, []vulkan.ImageMemoryBarrier{barrier},
		)
	})

	if t.ImageView, err = dev.CreateImageView(vulkan.ImageViewCreateInfo{
		Image:            image,
		ViewType:         viewType,
		Format:           format,
		SubresourceRange: subresource(len(layers)),
	}); err != nil {
		t.Close()
		return nil, errors.Wrap(err, "texture view")
	}

	return t, nil
}

// New records the upload of a 2D texture into batch. The texture is usable once
// the batch is submitted.
func New(dev *device.Device, batch *device.Batch, config *TextureConfig) (*Texture, error) {
	if config == nil || config.Width == 0 || config.Height == 0 {
		return nil, errors.New("empty texture")
	}
	return upload(dev, batch, []*TextureConfig{config}, 0, vulkan.ImageViewType2d)
}

// NewCube records the upload of a cube map. Faces are +X, -X, +Y, -Y, +Z, -Z
// and must share one size.
func NewCube(dev *device.Device, batch *device.Batch, faces [6]*TextureConfig) (*Texture, error) {
	for i, face := range faces {
		if face == nil || face.Width == 0 || face.Height == 0 {
			return nil, errors.Newf("empty cube face %d", i)
		}
	}
	return upload(dev, batch, faces[:], vulkan.ImageCreateCubeCompatibleBit, vulkan.ImageViewTypeCube)
}

// NewSampler creates the linear repeat sampler shared by every texture.
func NewSampler(dev *device.Device) (vulkan.Sampler, error) {
	var sampler vulkan.Sampler
	if err := vulkan.Error(vulkan.CreateSampler(dev.LogicalDevice, &vulkan.SamplerCreateInfo{
		SType:        vulkan.StructureTypeSamplerCreateInfo,
		MagFilter:    vulkan.FilterLinear,
		MinFilter:    vulkan.FilterLinear,
		MipmapMode:   vulkan.SamplerMipmapModeNearest,
		AddressModeU: vulkan.SamplerAddressModeRepeat,
		AddressModeV: vulkan.SamplerAddressModeRepeat,
		AddressModeW: vulkan.SamplerAddressModeRepeat,
		CompareOp:    vulkan.CompareOpAlways,
		BorderColor:  vulkan.BorderColorFloatOpaqueBlack,
	}, nil, &sampler)); err != nil {
		return nil, errors.Wrap(err, "create sampler")
	}
	return sampler, nil
}

func (t *Texture) Close() {
	if t.ImageView != nil {
		vulkan.DestroyImageView(t.device.LogicalDevice, t.ImageView, nil)
	}
	vulkan.DestroyImage(t.device.LogicalDevice, t.image, nil)
	vulkan.FreeMemory(t.device.LogicalDevice, t.memory, nil)
}
