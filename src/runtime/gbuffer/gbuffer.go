// Package gbuffer owns the swapchain-sized off-screen attachments of the deferred
// pass together with one framebuffer per swapchain image.
//
// A Set is never resized. Recreation builds a new Set and closes the old one.
package gbuffer

import (
	"github.com/WowVeryLogin/deferred_engine/src/runtime/device"
	"github.com/WowVeryLogin/deferred_engine/src/runtime/renderpass"
	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

type Attachment struct {
	Image  vulkan.Image
	memory vulkan.DeviceMemory
	View   vulkan.ImageView
	Format vulkan.Format
}

type Set struct {
	device *device.Device
	Extent vulkan.Extent2D

	Color    Attachment
	Normal   Attachment
	Position Attachment
	Specular Attachment
	Depth    Attachment

	Framebuffers []vulkan.Framebuffer
}

func newAttachment(dev *device.Device, format vulkan.Format, extent vulkan.Extent2D, usage vulkan.ImageUsageFlagBits, aspect vulkan.ImageAspectFlagBits) (Attachment, error) {
	image, memory, err := dev.CreateImageWithInfo(vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: vulkan.ImageType2d,
		Extent: vulkan.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        vulkan.ImageTilingOptimal,
		InitialLayout: vulkan.ImageLayoutUndefined,
		Usage:         vulkan.ImageUsageFlags(usage | vulkan.ImageUsageInputAttachmentBit | vulkan.ImageUsageTransientAttachmentBit),
		Samples:       vulkan.SampleCount1Bit,
		SharingMode:   vulkan.SharingModeExclusive,
	}, vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return Attachment{}, err
	}

	view, err := dev.CreateImageView(vulkan.ImageViewCreateInfo{
		Image:    image,
		ViewType: vulkan.ImageViewType2d,
		Format:   format,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask:     vulkan.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		vulkan.DestroyImage(dev.LogicalDevice, image, nil)
		vulkan.FreeMemory(dev.LogicalDevice, memory, nil)
		return Attachment{}, err
	}

	return Attachment{Image: image, memory: memory, View: view, Format: format}, nil
}

func (a *Attachment) close(dev *device.Device) {
	if a.View != nil {
		vulkan.DestroyImageView(dev.LogicalDevice, a.View, nil)
	}
	if a.Image != nil {
		vulkan.DestroyImage(dev.LogicalDevice, a.Image, nil)
		vulkan.FreeMemory(dev.LogicalDevice, a.memory, nil)
	}
	*a = Attachment{}
}

// New creates every attachment at extent and a framebuffer for each swapchain
// view. On error nothing is leaked.
func New(
	dev *device.Device,
	renderPass vulkan.RenderPass,
	formats renderpass.Formats,
	swapchainViews []vulkan.ImageView,
	extent vulkan.Extent2D,
) (*Set, error) {
	s := &Set{device: dev, Extent: extent}

	color := vulkan.ImageUsageColorAttachmentBit
	targets := []struct {
		dst    *Attachment
		format vulkan.Format
		usage  vulkan.ImageUsageFlagBits
		aspect vulkan.ImageAspectFlagBits
		name   string
	}{
		{&s.Color, formats.Color, color, vulkan.ImageAspectColorBit, "color"},
		{&s.Normal, formats.Normal, color, vulkan.ImageAspectColorBit, "normal"},
		{&s.Position, formats.Position, color, vulkan.ImageAspectColorBit, "position"},
		{&s.Specular, formats.Specular, color, vulkan.ImageAspectColorBit, "specular"},
		{&s.Depth, formats.Depth, vulkan.ImageUsageDepthStencilAttachmentBit, vulkan.ImageAspectDepthBit, "depth"},
	}
	for _, target := range targets {
		attachment, err := newAttachment(dev, target.format, extent, target.usage, target.aspect)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "%s attachment", target.name)
		}
		*target.dst = attachment
	}

	s.Framebuffers = make([]vulkan.Framebuffer, 0, len(swapchainViews))
	for i, view := range swapchainViews {
		views := s.Views(view)
		var framebuffer vulkan.Framebuffer
		if err := vulkan.Error(vulkan.CreateFramebuffer(dev.LogicalDevice, &vulkan.FramebufferCreateInfo{
			SType:           vulkan.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: uint32(len(views)),
			PAttachments:    views,
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}, nil, &framebuffer)); err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "create framebuffer %d", i)
		}
		s.Framebuffers = append(s.Framebuffers, framebuffer)
	}

	return s, nil
}

// Views lists the attachment views for one framebuffer in render pass order.
func (s *Set) Views(final vulkan.ImageView) []vulkan.ImageView {
	views := make([]vulkan.ImageView, renderpass.AttachmentCount)
	views[renderpass.Final] = final
	views[renderpass.Color] = s.Color.View
	views[renderpass.Normal] = s.Normal.View
	views[renderpass.Position] = s.Position.View
	views[renderpass.Specular] = s.Specular.View
	views[renderpass.Depth] = s.Depth.View
	return views
}

// Inputs lists the views the lighting subpass reads: color, normal, position, specular.
func (s *Set) Inputs() [4]vulkan.ImageView {
	return [4]vulkan.ImageView{s.Color.View, s.Normal.View, s.Position.View, s.Specular.View}
}

func (s *Set) Close() {
	for _, framebuffer := range s.Framebuffers {
		vulkan.DestroyFramebuffer(s.device.LogicalDevice, framebuffer, nil)
	}
	s.Framebuffers = nil
	for _, a := range []*Attachment{&s.Color, &s.Normal, &s.Position, &s.Specular, &s.Depth} {
		a.close(s.device)
	}
}
